// Package abi describes the externally visible surface of a compiled module:
// its friends, exposed functions and declared structs, with every type
// written out in fully-qualified form.
//
// A ModuleABI encodes to JSON, YAML or canonical CBOR. Types use a tagged
// shape keyed by "type":
//
//	{"type": "vector", "items": {"type": "u8"}}
//	{"type": "reference", "mutable": false, "to": {"type": "signer"}}
//	{"type": "struct", "address": "0x1", "module": "Coin", "name": "Coin", "generic_type_params": []}
//	{"type": "generic_type_param", "index": 0}
package abi
