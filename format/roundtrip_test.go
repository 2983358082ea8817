package format_test

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/kr/pretty"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

func TestModule_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		module func(t *testing.T) *format.CompiledModule
	}{
		{"empty", func(*testing.T) *format.CompiledModule { return format.EmptyModule() }},
		{"basic", func(*testing.T) *format.CompiledModule { return format.BasicTestModule() }},
		{"coin", coinModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.module(t)
			blob, err := format.Serialize(m)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			back, err := format.Deserialize(blob)
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if !reflect.DeepEqual(m, back) {
				t.Fatalf("round trip mismatch:\n%v", pretty.Diff(m, back))
			}
			again, err := format.Serialize(back)
			if err != nil {
				t.Fatalf("Serialize again: %v", err)
			}
			if !bytes.Equal(blob, again) {
				t.Fatal("serialization is not deterministic")
			}
		})
	}
}

func TestModule_RoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("built modules survive serialization unchanged", prop.ForAll(
		func(numbers []uint64, strs [][]byte, groups [][]uint8) string {
			m, err := seededModule(numbers, strs, groups)
			if err != nil {
				return "build: " + err.Error()
			}
			blob, err := format.Serialize(m)
			if err != nil {
				return "serialize: " + err.Error()
			}
			back, err := format.Deserialize(blob)
			if err != nil {
				return "deserialize: " + err.Error()
			}
			if !reflect.DeepEqual(m, back) {
				return fmt.Sprint(pretty.Diff(m, back))
			}
			again, err := format.Serialize(back)
			if err != nil {
				return "serialize again: " + err.Error()
			}
			if !bytes.Equal(blob, again) {
				return "serialization is not deterministic"
			}
			return ""
		},
		gen.SliceOf(gen.UInt64()),
		gen.SliceOfN(3, gen.SliceOf(gen.UInt8())),
		gen.SliceOfN(3, gen.SliceOf(gen.UInt8())),
	))
	properties.TestingRun(t)
}

func TestScript_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		script func(t *testing.T) *format.CompiledScript
	}{
		{"empty", func(*testing.T) *format.CompiledScript { return format.EmptyScript() }},
		{"basic", func(*testing.T) *format.CompiledScript { return format.BasicTestScript() }},
		{"generic", genericScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.script(t)
			blob, err := format.SerializeScript(s)
			if err != nil {
				t.Fatalf("SerializeScript: %v", err)
			}
			back, err := format.DeserializeScript(blob)
			if err != nil {
				t.Fatalf("DeserializeScript: %v", err)
			}
			if !reflect.DeepEqual(s, back) {
				t.Fatalf("round trip mismatch:\n%v", pretty.Diff(s, back))
			}
			again, err := format.SerializeScript(back)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(blob, again) {
				t.Fatal("serialization is not deterministic")
			}
		})
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	a, err := format.Serialize(coinModule(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := format.Serialize(coinModule(t))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("independently built equal modules serialize differently")
	}
}

func TestSerialize_Header(t *testing.T) {
	blob, err := format.Serialize(format.EmptyModule())
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x0B, 0xEB, 0x1C, 0xA1, byte(format.VersionMax), 0, 0, 0}
	if !bytes.HasPrefix(blob, want) {
		t.Fatalf("header = % x, want % x", blob[:8], want)
	}
}

func TestModule_VersionIsPreserved(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "Old")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetVersion(2); err != nil {
		t.Fatal(err)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	blob, err := format.Serialize(m)
	if err != nil {
		t.Fatal(err)
	}
	back, err := format.Deserialize(blob)
	if err != nil {
		t.Fatal(err)
	}
	if back.Version() != 2 {
		t.Errorf("Version() = %d, want 2", back.Version())
	}
}

func TestSerialize_EntryFunctionNeedsVersion(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetVersion(3); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.DefineFunction(format.FunctionDecl{
		Name:       "main",
		Visibility: format.VisibilityPublic,
		IsEntry:    true,
		Code:       []format.Bytecode{format.Op(format.OpRet)},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected entry function below version 4 to be rejected")
	}
}

func TestDeserialize_BasicModuleShape(t *testing.T) {
	blob, err := format.Serialize(format.BasicTestModule())
	if err != nil {
		t.Fatal(err)
	}
	m, err := format.Deserialize(blob)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.FunctionDefs().Len(); got != 1 {
		t.Errorf("function defs = %d", got)
	}
	_, foo, ok := m.FindFunctionDef("foo")
	if !ok {
		t.Fatal("foo not found")
	}
	if foo.Visibility != format.VisibilityPrivate || foo.Code == nil || len(foo.Code.Code) != 1 {
		t.Errorf("foo = %# v", pretty.Formatter(foo))
	}
	_, bar, ok := m.FindStructDef("Bar")
	if !ok {
		t.Fatal("Bar not found")
	}
	f, ok := bar.Field(0)
	if !ok || m.IdentifierAt(f.Name) != "x" || f.Signature.Token.Kind != format.TokenU64 {
		t.Errorf("Bar.x = %# v", pretty.Formatter(f))
	}
	if _, err := m.ConstantPool().Get(0); !errors.IsKind(err, errors.KindIndexOutOfBounds) {
		t.Errorf("empty constant pool Get(0): %v", err)
	}
}
