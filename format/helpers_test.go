package format_test

import (
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	"github.com/wippyai/move-binary-format/format"
)

// coinModule builds 0x1::Coin: generic and native structs, field and struct
// instantiations, constants, a generic call site, an entry function, a native
// function and a friend.
func coinModule(t *testing.T) *format.CompiledModule {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	std := format.MustParseAddress("0x1")
	b, err := format.NewModuleBuilder(std, "Coin")
	must(err)

	signer, err := b.ModuleHandle(std, "Signer")
	must(err)
	borrowAddress, err := b.ExternalFunction(signer, "borrow_address", nil,
		format.Signature{format.ReferenceTo(format.SignerType())},
		format.Signature{format.ReferenceTo(format.AddressType())})
	must(err)

	coinDef, _, err := b.DefineStruct("Coin", format.Abilities(format.AbilityKey, format.AbilityStore), nil, false,
		format.FieldDecl{Name: "value", Type: format.U64Type()})
	must(err)
	boxDef, _, err := b.DefineStruct("Box", format.Abilities(format.AbilityCopy, format.AbilityDrop, format.AbilityStore),
		[]format.StructTypeParameter{
			{Constraints: format.EmptyAbilities},
			{Constraints: format.SingletonAbility(format.AbilityDrop), IsPhantom: true},
		}, false,
		format.FieldDecl{Name: "item", Type: format.TypeParam(0)})
	must(err)
	_, _, err = b.DefineStruct("Handle", format.EmptyAbilities, nil, true)
	must(err)

	valueField, err := b.FieldHandle(format.FieldHandle{Owner: coinDef, Field: 0})
	must(err)
	itemField, err := b.FieldHandle(format.FieldHandle{Owner: boxDef, Field: 0})
	must(err)
	boxArgs, err := b.Signature(format.U64Type(), format.BoolType())
	must(err)
	boxInst, err := b.StructDefInstantiation(format.StructDefInstantiation{Def: boxDef, TypeParameters: boxArgs})
	must(err)
	itemInst, err := b.FieldInstantiation(format.FieldInstantiation{Handle: itemField, TypeParameters: boxArgs})
	must(err)

	greeting, err := format.NewConstant(format.VectorOf(format.U8Type()), []byte("hello"))
	must(err)
	greetingIdx, err := b.Constant(greeting)
	must(err)
	limit, err := format.NewConstant(format.U128Type(), uint256.NewInt(1<<62))
	must(err)
	_, err = b.Constant(limit)
	must(err)

	_, identity, err := b.DefineFunction(format.FunctionDecl{
		Name:           "identity",
		TypeParameters: []format.AbilitySet{format.EmptyAbilities},
		Parameters:     format.Signature{format.TypeParam(0)},
		Return:         format.Signature{format.TypeParam(0)},
		Visibility:     format.VisibilityPublic,
		Code: []format.Bytecode{
			format.Local(format.OpMoveLoc, 0),
			format.Op(format.OpRet),
		},
	})
	must(err)
	u64Args, err := b.Signature(format.U64Type())
	must(err)
	identityU64, err := b.FunctionInstantiation(format.FunctionInstantiation{Handle: identity, TypeParameters: u64Args})
	must(err)
	u8Elem, err := b.Signature(format.U8Type())
	must(err)

	_, _, err = b.DefineFunction(format.FunctionDecl{
		Name:       "value",
		Parameters: format.Signature{format.ReferenceTo(format.StructType(0))},
		Return:     format.Signature{format.U64Type()},
		Visibility: format.VisibilityPublic,
		Code: []format.Bytecode{
			format.Local(format.OpMoveLoc, 0),
			format.FieldOp(format.OpImmBorrowField, valueField),
			format.Op(format.OpReadRef),
			format.Op(format.OpRet),
		},
	})
	must(err)

	_, _, err = b.DefineFunction(format.FunctionDecl{
		Name:       "run",
		Parameters: format.Signature{format.SignerType(), format.U64Type()},
		Locals:     format.Signature{format.U64Type(), format.VectorOf(format.U8Type()), format.BoolType()},
		Acquires:   []format.StructDefinitionIndex{coinDef},
		Visibility: format.VisibilityScript,
		IsEntry:    true,
		Code: []format.Bytecode{
			format.Local(format.OpCopyLoc, 1),
			format.CallGeneric(identityU64),
			format.Local(format.OpStLoc, 2),
			format.LdConst(greetingIdx),
			format.Local(format.OpStLoc, 3),
			format.Op(format.OpLdTrue),
			format.BranchTo(format.OpBrFalse, 10),
			format.LdU128(uint256.NewInt(42)),
			format.Op(format.OpPop),
			format.BranchTo(format.OpBranch, 12),
			format.LdU8(7),
			format.Op(format.OpPop),
			format.VecOp(format.OpVecPack, u8Elem, 0),
			format.Op(format.OpPop),
			format.Local(format.OpImmBorrowLoc, 0),
			format.Call(borrowAddress),
			format.Op(format.OpPop),
			format.StructOp(format.OpMoveFrom, coinDef),
			format.Op(format.OpPop),
			format.LdU64(0),
			format.Op(format.OpLdFalse),
			format.StructGenericOp(format.OpPackGeneric, boxInst),
			format.FieldGenericOp(format.OpImmBorrowFieldGeneric, itemInst),
			format.Op(format.OpPop),
			format.Op(format.OpRet),
		},
	})
	must(err)

	_, _, err = b.DefineFunction(format.FunctionDecl{
		Name:       "hash",
		Parameters: format.Signature{format.VectorOf(format.U8Type())},
		Return:     format.Signature{format.VectorOf(format.U8Type())},
		Visibility: format.VisibilityFriend,
		Native:     true,
	})
	must(err)

	must(b.Friend(format.MustParseAddress("0x2"), "Market"))

	m, err := b.Build()
	must(err)
	return m
}

// genericScript builds a script with a type parameter calling a generic
// function of another module.
func genericScript(t *testing.T) *format.CompiledScript {
	t.Helper()
	b := format.NewScriptBuilder()
	coin, err := b.ModuleHandle(format.MustParseAddress("0x1"), "Coin")
	if err != nil {
		t.Fatal(err)
	}
	identity, err := b.ExternalFunction(coin, "identity",
		[]format.AbilitySet{format.EmptyAbilities},
		format.Signature{format.TypeParam(0)},
		format.Signature{format.TypeParam(0)})
	if err != nil {
		t.Fatal(err)
	}
	args, err := b.Signature(format.TypeParam(0))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := b.FunctionInstantiation(format.FunctionInstantiation{Handle: identity, TypeParameters: args})
	if err != nil {
		t.Fatal(err)
	}
	code := []format.Bytecode{
		format.Local(format.OpMoveLoc, 0),
		format.CallGeneric(inst),
		format.Op(format.OpPop),
		format.Op(format.OpRet),
	}
	if err := b.SetEntry([]format.AbilitySet{format.SingletonAbility(format.AbilityDrop)},
		format.Signature{format.TypeParam(0)}, nil, code); err != nil {
		t.Fatal(err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// seedStream hands out generated bytes one at a time and zero once drained.
type seedStream struct {
	seeds []uint8
	at    int
}

func (s *seedStream) next() uint8 {
	if s.at >= len(s.seeds) {
		return 0
	}
	v := s.seeds[s.at]
	s.at++
	return v
}

func (s *seedStream) drained() bool { return s.at >= len(s.seeds) }

// tokenFromSeeds grows a token tree from a seed stream. Type parameters stay
// below params; with params 0 none are produced. Every branch consumes a seed,
// so the tree is bounded by the stream length.
func tokenFromSeeds(s *seedStream, params int) format.SignatureToken {
	if s.drained() {
		return format.U64Type()
	}
	v := s.next()
	switch v % 12 {
	case 0:
		return format.BoolType()
	case 1:
		return format.U8Type()
	case 2:
		return format.U128Type()
	case 3:
		return format.AddressType()
	case 4:
		return format.SignerType()
	case 5:
		return format.VectorOf(tokenFromSeeds(s, params))
	case 6:
		return format.ReferenceTo(tokenFromSeeds(s, params))
	case 7:
		return format.MutableReferenceTo(tokenFromSeeds(s, params))
	case 8:
		return format.StructType(format.StructHandleIndex(v / 12))
	case 9:
		args := make([]format.SignatureToken, 1+int(s.next()%3))
		for i := range args {
			args[i] = tokenFromSeeds(s, params)
		}
		return format.StructInstantiationType(format.StructHandleIndex(v/12), args...)
	case 10:
		if params > 0 {
			return format.TypeParam(format.TypeParameterIndex(int(v/12) % params))
		}
		return format.U8Type()
	default:
		return format.U64Type()
	}
}

// valueTokenFromSeed picks a token that can appear in any signature of a
// module without referring to handles or type parameters.
func valueTokenFromSeed(v uint8) format.SignatureToken {
	leaves := []format.SignatureToken{
		format.BoolType(), format.U8Type(), format.U64Type(), format.U128Type(), format.AddressType(),
	}
	tok := leaves[int(v)%len(leaves)]
	for i := 0; i < int(v/64); i++ {
		tok = format.VectorOf(tok)
	}
	return tok
}

// seededModule builds a module from generated data: one constant per number
// and per byte string, one struct and one function per signature seed group.
// Empty byte strings and empty seed groups give empty vectors, empty
// signatures and field-less structs.
func seededModule(numbers []uint64, strs [][]byte, groups [][]uint8) (*format.CompiledModule, error) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x42"), "Seeded")
	if err != nil {
		return nil, err
	}
	for _, n := range numbers {
		c, err := format.NewConstant(format.U64Type(), n)
		if err != nil {
			return nil, err
		}
		if _, err := b.Constant(c); err != nil {
			return nil, err
		}
	}
	for _, s := range strs {
		c, err := format.NewConstant(format.VectorOf(format.U8Type()), s)
		if err != nil {
			return nil, err
		}
		if _, err := b.Constant(c); err != nil {
			return nil, err
		}
	}
	for i, g := range groups {
		var fields []format.FieldDecl
		var sig format.Signature
		for j, v := range g {
			tok := valueTokenFromSeed(v)
			fields = append(fields, format.FieldDecl{Name: fmt.Sprintf("f%d", j), Type: tok})
			sig = append(sig, tok)
		}
		if _, _, err := b.DefineStruct(fmt.Sprintf("S%d", i), format.EmptyAbilities, nil, false, fields...); err != nil {
			return nil, err
		}
		half := len(sig) / 2
		if _, _, err := b.DefineFunction(format.FunctionDecl{
			Name:       fmt.Sprintf("fun%d", i),
			Parameters: sig[:half],
			Locals:     sig[half:],
			Visibility: format.VisibilityPublic,
			Code:       []format.Bytecode{format.Op(format.OpRet)},
		}); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
