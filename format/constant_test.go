package format_test

import (
	"reflect"
	"testing"

	"github.com/holiman/uint256"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

func TestConstant_Values(t *testing.T) {
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	addr := format.MustParseAddress("0xCAFE")
	tests := []struct {
		name  string
		typ   format.SignatureToken
		value any
		want  any
		data  []byte
	}{
		{"bool", format.BoolType(), true, true, []byte{1}},
		{"u8", format.U8Type(), uint8(200), uint8(200), []byte{200}},
		{"u64", format.U64Type(), uint64(0x0102), uint64(0x0102), []byte{2, 1, 0, 0, 0, 0, 0, 0}},
		{"u128", format.U128Type(), big, *big, append(make([]byte, 15), 0x80)},
		{"address", format.AddressType(), addr, addr, addr[:]},
		{"bytes", format.VectorOf(format.U8Type()), []byte("hi"), []byte("hi"), []byte{2, 'h', 'i'}},
		{"vector of u64", format.VectorOf(format.U64Type()), []any{uint64(1)}, []any{uint64(1)}, []byte{1, 1, 0, 0, 0, 0, 0, 0, 0}},
		{
			"nested vector",
			format.VectorOf(format.VectorOf(format.BoolType())),
			[]any{[]any{true, false}, []any{}},
			[]any{[]any{true, false}, []any{}},
			[]byte{2, 2, 1, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := format.NewConstant(tt.typ, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c.Data, tt.data) {
				t.Errorf("Data = % x, want % x", c.Data, tt.data)
			}
			got, err := c.Value()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
			same, _ := format.NewConstant(tt.typ, tt.value)
			if !c.Equal(same) {
				t.Error("equal constants compare unequal")
			}
		})
	}
}

func TestConstant_Rejected(t *testing.T) {
	tooBig := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	tests := []struct {
		name  string
		typ   format.SignatureToken
		value any
	}{
		{"signer", format.SignerType(), nil},
		{"struct", format.StructType(0), nil},
		{"reference", format.ReferenceTo(format.U8Type()), uint8(1)},
		{"type parameter", format.VectorOf(format.TypeParam(0)), []any{}},
		{"wrong go type", format.U64Type(), 7},
		{"u128 out of range", format.U128Type(), tooBig},
		{"element mismatch", format.VectorOf(format.BoolType()), []any{uint8(1)}},
		{"vector without element", format.SignatureToken{Kind: format.TokenVector}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := format.NewConstant(tt.typ, tt.value); !errors.IsKind(err, errors.KindInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestConstant_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		c    format.Constant
	}{
		{"trailing bytes", format.Constant{Type: format.U8Type(), Data: []byte{1, 2}}},
		{"short u64", format.Constant{Type: format.U64Type(), Data: []byte{1, 2, 3}}},
		{"bad bool", format.Constant{Type: format.BoolType(), Data: []byte{2}}},
		{"empty u64", format.Constant{Type: format.U64Type()}},
		{"empty vector", format.Constant{Type: format.VectorOf(format.U8Type()), Data: []byte{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.c.Value(); !errors.IsKind(err, errors.KindMalformed) {
				t.Fatalf("expected malformed, got %v", err)
			}
			b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
			if err != nil {
				t.Fatal(err)
			}
			if _, err := b.Constant(tt.c); !errors.IsKind(err, errors.KindInvalidInput) {
				t.Fatalf("builder accepted the payload: %v", err)
			}
		})
	}
}

func TestDeserialize_ConstantPayloadMustMatchType(t *testing.T) {
	// A u64 constant with an empty payload.
	blob := rawBlob(format.VersionMax, []dirEntry{
		{format.TableSignatures, 0, 1},
		{format.TableConstantPool, 1, 2},
	},
		0x00,
		0x03, 0x00,
		0x00, 0x00, 0x00, 0x01, byte(format.OpRet))
	if _, err := format.DeserializeScript(blob); !errors.IsKind(err, errors.KindMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}
