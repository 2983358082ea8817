package abi_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/move-binary-format/abi"
	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// configModule builds 0x1::Config with generic, phantom, native and
// cross-module struct types and functions of every visibility.
func configModule(t *testing.T) *format.CompiledModule {
	t.Helper()
	std := format.MustParseAddress("0x1")
	b, err := format.NewModuleBuilder(std, "Config")
	require.NoError(t, err)

	event, err := b.ModuleHandle(std, "Event")
	require.NoError(t, err)
	eventHandle, err := b.ExternalStruct(event, "EventHandle", format.SingletonAbility(format.AbilityStore),
		format.StructTypeParameter{Constraints: format.EmptyAbilities})
	require.NoError(t, err)

	copyDropStore := format.Abilities(format.AbilityCopy, format.AbilityDrop, format.AbilityStore)
	storeKey := format.Abilities(format.AbilityStore, format.AbilityKey)

	_, _, err = b.DefineStruct("Config", storeKey,
		[]format.StructTypeParameter{{Constraints: copyDropStore}}, false,
		format.FieldDecl{Name: "payload", Type: format.TypeParam(0)})
	require.NoError(t, err)
	_, capHandle, err := b.DefineStruct("Cap", storeKey,
		[]format.StructTypeParameter{{Constraints: format.EmptyAbilities, IsPhantom: true}}, false,
		format.FieldDecl{Name: "dummy_field", Type: format.BoolType()})
	require.NoError(t, err)
	_, epoch, err := b.DefineStruct("Epoch", format.Abilities(format.AbilityDrop, format.AbilityStore), nil, false,
		format.FieldDecl{Name: "epoch", Type: format.U64Type()})
	require.NoError(t, err)
	_, _, err = b.DefineStruct("Events", format.SingletonAbility(format.AbilityKey), nil, false,
		format.FieldDecl{Name: "events", Type: format.StructInstantiationType(eventHandle, format.StructType(epoch))})
	require.NoError(t, err)
	_, _, err = b.DefineStruct("Raw", format.EmptyAbilities, nil, true)
	require.NoError(t, err)

	ret := []format.Bytecode{format.Op(format.OpRet)}
	decls := []format.FunctionDecl{
		{
			Name:           "get",
			TypeParameters: []format.AbilitySet{copyDropStore},
			Return:         format.Signature{format.TypeParam(0)},
			Visibility:     format.VisibilityPublic,
			Code:           ret,
		},
		{
			Name:           "set",
			TypeParameters: []format.AbilitySet{copyDropStore},
			Parameters:     format.Signature{format.ReferenceTo(format.SignerType()), format.TypeParam(0)},
			Visibility:     format.VisibilityFriend,
			Code:           ret,
		},
		{Name: "helper", Code: ret},
		{
			Name:       "start",
			Parameters: format.Signature{format.SignerType()},
			IsEntry:    true,
			Code:       ret,
		},
		{
			Name:           "cap_of",
			TypeParameters: []format.AbilitySet{format.EmptyAbilities},
			Parameters:     format.Signature{format.MutableReferenceTo(format.StructInstantiationType(capHandle, format.TypeParam(0)))},
			Return:         format.Signature{format.VectorOf(format.U8Type())},
			Visibility:     format.VisibilityPublic,
			Native:         true,
		},
	}
	for _, d := range decls {
		_, _, err := b.DefineFunction(d)
		require.NoError(t, err, d.Name)
	}
	require.NoError(t, b.Friend(std, "System"))

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

const configABI = `{
  "address": "0x1",
  "name": "Config",
  "friends": [{"address": "0x1", "name": "System"}],
  "exposed_functions": [
    {
      "name": "get",
      "visibility": "public",
      "is_entry": false,
      "generic_type_params": [{"constraints": ["copy", "drop", "store"]}],
      "params": [],
      "return": [{"type": "generic_type_param", "index": 0}]
    },
    {
      "name": "set",
      "visibility": "friend",
      "is_entry": false,
      "generic_type_params": [{"constraints": ["copy", "drop", "store"]}],
      "params": [
        {"type": "reference", "mutable": false, "to": {"type": "signer"}},
        {"type": "generic_type_param", "index": 0}
      ],
      "return": []
    },
    {
      "name": "start",
      "visibility": "private",
      "is_entry": true,
      "generic_type_params": [],
      "params": [{"type": "signer"}],
      "return": []
    },
    {
      "name": "cap_of",
      "visibility": "public",
      "is_entry": false,
      "generic_type_params": [{"constraints": []}],
      "params": [
        {
          "type": "reference",
          "mutable": true,
          "to": {
            "type": "struct",
            "address": "0x1",
            "module": "Config",
            "name": "Cap",
            "generic_type_params": [{"type": "generic_type_param", "index": 0}]
          }
        }
      ],
      "return": [{"type": "vector", "items": {"type": "u8"}}]
    }
  ],
  "structs": [
    {
      "name": "Config",
      "is_native": false,
      "abilities": ["store", "key"],
      "generic_type_params": [{"constraints": ["copy", "drop", "store"], "is_phantom": false}],
      "fields": [{"name": "payload", "type": {"type": "generic_type_param", "index": 0}}]
    },
    {
      "name": "Cap",
      "is_native": false,
      "abilities": ["store", "key"],
      "generic_type_params": [{"constraints": [], "is_phantom": true}],
      "fields": [{"name": "dummy_field", "type": {"type": "bool"}}]
    },
    {
      "name": "Epoch",
      "is_native": false,
      "abilities": ["drop", "store"],
      "generic_type_params": [],
      "fields": [{"name": "epoch", "type": {"type": "u64"}}]
    },
    {
      "name": "Events",
      "is_native": false,
      "abilities": ["key"],
      "generic_type_params": [],
      "fields": [
        {
          "name": "events",
          "type": {
            "type": "struct",
            "address": "0x1",
            "module": "Event",
            "name": "EventHandle",
            "generic_type_params": [
              {"type": "struct", "address": "0x1", "module": "Config", "name": "Epoch", "generic_type_params": []}
            ]
          }
        }
      ]
    },
    {
      "name": "Raw",
      "is_native": true,
      "abilities": [],
      "generic_type_params": [],
      "fields": []
    }
  ]
}`

func TestFromModule(t *testing.T) {
	a, err := abi.FromModule(configModule(t))
	require.NoError(t, err)

	out, err := abi.Marshal(a, abi.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, configABI, string(out))
}

func TestFromModule_Basic(t *testing.T) {
	a, err := abi.FromModule(format.BasicTestModule())
	require.NoError(t, err)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"address": "0x0",
		"name": "<SELF>",
		"friends": [],
		"exposed_functions": [],
		"structs": [{
			"name": "Bar",
			"is_native": false,
			"abilities": [],
			"generic_type_params": [],
			"fields": [{"name": "x", "type": {"type": "u64"}}]
		}]
	}`, string(out))
}

func TestFromModule_Nil(t *testing.T) {
	_, err := abi.FromModule(nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestMoveType_String(t *testing.T) {
	a, err := abi.FromModule(configModule(t))
	require.NoError(t, err)

	var capOf abi.Function
	for _, f := range a.ExposedFunctions {
		if f.Name == "cap_of" {
			capOf = f
		}
	}
	require.Len(t, capOf.Params, 1)
	assert.Equal(t, "&mut 0x1::Config::Cap<T0>", capOf.Params[0].String())
	assert.Equal(t, "vector<u8>", capOf.Return[0].String())
	assert.Equal(t, "0x1::Event::EventHandle<0x1::Config::Epoch>", a.Structs[3].Fields[0].Type.String())
}

func TestEncode_RoundTrip(t *testing.T) {
	want, err := abi.FromModule(configModule(t))
	require.NoError(t, err)

	for _, f := range []abi.Format{abi.FormatJSON, abi.FormatYAML, abi.FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			data, err := abi.Marshal(want, f)
			require.NoError(t, err)

			got, err := abi.Unmarshal(data, f)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			again, err := abi.Marshal(got, f)
			require.NoError(t, err)
			assert.Equal(t, data, again, "encoding is not deterministic")
		})
	}
}

func TestEncode_YAML(t *testing.T) {
	a, err := abi.FromModule(configModule(t))
	require.NoError(t, err)

	out, err := abi.Marshal(a, abi.FormatYAML)
	require.NoError(t, err)
	for _, want := range []string{
		"name: Config",
		"visibility: friend",
		"is_phantom: true",
		"type: generic_type_param",
	} {
		assert.Contains(t, string(out), want)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := abi.ParseFormat("cbor")
	require.NoError(t, err)
	assert.Equal(t, abi.FormatCBOR, f)

	_, err = abi.ParseFormat("xml")
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = abi.Marshal(&abi.ModuleABI{}, abi.Format("xml"))
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown type", `{"structs":[{"name":"S","fields":[{"name":"f","type":{"type":"tuple"}}]}]}`},
		{"vector without items", `{"exposed_functions":[{"name":"f","params":[{"type":"vector"}]}]}`},
		{"negative index", `{"exposed_functions":[{"name":"f","params":[{"type":"generic_type_param","index":-1}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := abi.Unmarshal([]byte(tt.data), abi.FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindMalformed), "got %v", err)
		})
	}
}
