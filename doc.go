// Package movebinaryformat provides a Go implementation of the Move binary
// format for compiled modules and scripts.
//
// This library reads and writes the versioned, table-based container that
// Move compilers emit, checks every cross-table index on load, and exposes
// the decoded pools through typed accessors.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	movebinaryformat/    Root package (documentation only)
//	├── format/          Binary model, deserializer, serializer, bounds checks
//	│   └── internal/    ULEB128 and little-endian reader/writer primitives
//	├── abi/             Exposed-function and struct ABI in JSON, YAML and CBOR
//	├── release/         Release directory loading, blob cache, dependency order
//	├── config/          TOML configuration for limits, logging and the cache
//	├── errors/          Structured error types for debugging
//	└── cmd/movedump/    Inspect blobs from the command line or a TUI
//
// # Quick Start
//
// Decode a module, inspect it and write it back:
//
//	m, err := format.Deserialize(blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(m.SelfID()) // 0x1::Coin
//
//	out, err := format.Serialize(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// bytes.Equal(blob, out) for any canonical blob
//
// Limits such as the maximum type nesting depth come from a
// format.DeserializerConfig, usually built from a config.Config:
//
//	cfg, err := config.Load("movedump.toml")
//	m, err := format.DeserializeWithConfig(blob, cfg.DeserializerConfig())
//
// # Releases
//
// A release is a directory of *.mv module blobs. The release package loads
// one concurrently and sorts the result so that each module follows its
// dependencies:
//
//	mods, err := release.LoadDir(ctx, "build/release", format.DefaultDeserializerConfig())
//	ordered, err := release.DependencyOrder(mods)
//
// # Thread Safety
//
// CompiledModule and CompiledScript are immutable once decoded or built and
// are safe for concurrent reads. ModuleBuilder is not thread-safe.
package movebinaryformat
