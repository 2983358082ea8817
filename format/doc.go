// Package format provides the binary format for compiled Move-style bytecode
// modules and scripts.
//
// A compiled module is a closed set of pools (identifiers, addresses,
// constants, signatures, handles, instantiations) plus struct and function
// definitions. Every cross reference is a typed index into a pool, so the
// in-memory value has no pointers between entities and is safe to share
// between goroutines once built.
//
// # Decoding
//
// Deserialize never trusts the producer. Every read is bounds checked against
// the remaining window, signature tokens are decoded without recursion and
// limited in depth, and the result is checked with Check before it is
// returned:
//
//	data, _ := os.ReadFile("Coin.mv")
//	m, err := format.Deserialize(data)
//	if errors.IsKind(err, errors.KindBufferOverrun) {
//	    // truncated blob
//	}
//
// # Building
//
// Producers accumulate entries with a ModuleBuilder and freeze it with
// Build. Identifiers, addresses, module handles, signatures and constants are
// interned:
//
//	b, _ := format.NewModuleBuilder(format.MustParseAddress("0x1"), "Coin")
//	b.DefineStruct("Coin", format.Abilities(format.AbilityStore), nil, false,
//	    format.FieldDecl{Name: "value", Type: format.U64Type()})
//	m, err := b.Build()
//
// # Encoding
//
// Serialize is deterministic and inverts Deserialize:
//
//	blob, _ := format.Serialize(m)
//	same, _ := format.Deserialize(blob)
//
// # Signature Tokens
//
// SignatureToken trees are walked with Preorder, PreorderWithDepth or Fold,
// all of which keep their work list on the heap. Substitute replaces type
// parameters with concrete arguments.
package format
