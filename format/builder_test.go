package format_test

import (
	"testing"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

func TestModuleBuilder_Interning(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}

	a1, _ := b.Identifier("value")
	a2, _ := b.Identifier("value")
	if a1 != a2 {
		t.Errorf("identifier interned twice: %d, %d", a1, a2)
	}

	s1, _ := b.Signature(format.VectorOf(format.U8Type()), format.BoolType())
	s2, _ := b.Signature(format.VectorOf(format.U8Type()), format.BoolType())
	s3, _ := b.Signature(format.VectorOf(format.U64Type()), format.BoolType())
	if s1 != s2 {
		t.Errorf("signature interned twice: %d, %d", s1, s2)
	}
	if s1 == s3 {
		t.Error("different signatures share an index")
	}

	empty, _ := b.Signature()
	if empty != format.NoTypeArguments {
		t.Errorf("empty signature at %d, want NoTypeArguments", empty)
	}

	m1, _ := b.ModuleHandle(format.MustParseAddress("0x1"), "M")
	if m1 != b.SelfHandle() {
		t.Errorf("self handle re-interned at %d", m1)
	}

	c, err := format.NewConstant(format.U64Type(), uint64(7))
	if err != nil {
		t.Fatal(err)
	}
	c1, _ := b.Constant(c)
	c2, _ := b.Constant(c)
	if c1 != c2 {
		t.Errorf("constant interned twice: %d, %d", c1, c2)
	}
}

func TestModuleBuilder_Frozen(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Identifier("late"); !errors.IsKind(err, errors.KindBuilderFrozen) {
		t.Errorf("Identifier after Build: %v", err)
	}
	if _, err := b.Build(); !errors.IsKind(err, errors.KindBuilderFrozen) {
		t.Errorf("second Build: %v", err)
	}
	if _, _, err := b.DefineFunction(format.FunctionDecl{Name: "f"}); !errors.IsKind(err, errors.KindBuilderFrozen) {
		t.Errorf("DefineFunction after Build: %v", err)
	}

	sb := format.NewScriptBuilder()
	if err := sb.SetEntry(nil, nil, nil, []format.Bytecode{format.Op(format.OpRet)}); err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Build(); err != nil {
		t.Fatal(err)
	}
	if err := sb.SetEntry(nil, nil, nil, nil); !errors.IsKind(err, errors.KindBuilderFrozen) {
		t.Errorf("SetEntry after Build: %v", err)
	}
}

func TestModuleBuilder_InvalidInput(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Identifier("1abc"); !errors.IsKind(err, errors.KindMalformed) {
		t.Errorf("invalid identifier: %v", err)
	}
	if err := b.SetVersion(format.VersionMax + 1); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("SetVersion: %v", err)
	}
	if err := b.Friend(format.MustParseAddress("0x2"), "F"); err != nil {
		t.Fatal(err)
	}
	if err := b.Friend(format.MustParseAddress("0x2"), "F"); !errors.IsKind(err, errors.KindDuplicate) {
		t.Errorf("duplicate friend: %v", err)
	}
	if _, err := format.NewModuleBuilder(format.AccountAddress{}, ""); err == nil {
		t.Error("empty module name accepted")
	}
}

func TestModuleBuilder_LocalDefinitions(t *testing.T) {
	t.Run("function", func(t *testing.T) {
		b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
		if err != nil {
			t.Fatal(err)
		}
		other, _ := b.ModuleHandle(format.MustParseAddress("0x1"), "Other")
		h, err := b.ExternalFunction(other, "f", nil, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.FunctionDef(format.FunctionDefinition{
			Function: h,
			Code:     &format.CodeUnit{Code: []format.Bytecode{format.Op(format.OpRet)}},
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Build(); !errors.IsKind(err, errors.KindInvalidLocalDefinition) {
			t.Fatalf("expected invalid local definition, got %v", err)
		}
	})
	t.Run("struct", func(t *testing.T) {
		b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
		if err != nil {
			t.Fatal(err)
		}
		other, _ := b.ModuleHandle(format.MustParseAddress("0x1"), "Other")
		h, err := b.ExternalStruct(other, "S", format.EmptyAbilities)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.StructDef(format.StructDefinition{StructHandle: h, FieldInformation: format.NativeFields()}); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Build(); !errors.IsKind(err, errors.KindInvalidLocalDefinition) {
			t.Fatalf("expected invalid local definition, got %v", err)
		}
	})
}

func TestModuleBuilder_BoundsRejected(t *testing.T) {
	tests := []struct {
		name string
		decl format.FunctionDecl
		kind errors.Kind
	}{
		{
			name: "local out of range",
			decl: format.FunctionDecl{
				Name:       "f",
				Parameters: format.Signature{format.U64Type()},
				Code:       []format.Bytecode{format.Local(format.OpCopyLoc, 1), format.Op(format.OpRet)},
			},
			kind: errors.KindIndexOutOfBounds,
		},
		{
			name: "call of missing handle",
			decl: format.FunctionDecl{
				Name: "f",
				Code: []format.Bytecode{format.Call(9), format.Op(format.OpRet)},
			},
			kind: errors.KindIndexOutOfBounds,
		},
		{
			name: "type parameter out of range",
			decl: format.FunctionDecl{
				Name:           "f",
				TypeParameters: []format.AbilitySet{format.EmptyAbilities},
				Parameters:     format.Signature{format.TypeParam(1)},
				Code:           []format.Bytecode{format.Op(format.OpRet)},
			},
			kind: errors.KindTypeParameterRange,
		},
		{
			name: "operand does not fit opcode",
			decl: format.FunctionDecl{
				Name: "f",
				Code: []format.Bytecode{{Opcode: format.OpCall, Imm: format.U8Imm{Value: 1}}},
			},
			kind: errors.KindMalformed,
		},
		{
			name: "vector element signature is empty",
			decl: format.FunctionDecl{
				Name: "f",
				Code: []format.Bytecode{format.VecOp(format.OpVecLen, 0, 0), format.Op(format.OpRet)},
			},
			kind: errors.KindMalformed,
		},
		{
			name: "too deep",
			decl: format.FunctionDecl{
				Name:       "f",
				Parameters: format.Signature{nestedVector(256, format.U8Type())},
				Code:       []format.Bytecode{format.Op(format.OpRet)},
			},
			kind: errors.KindExceededMaxTypeDepth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
			if err != nil {
				t.Fatal(err)
			}
			if _, _, err := b.DefineFunction(tt.decl); err != nil {
				t.Fatal(err)
			}
			if _, err := b.Build(); !errors.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestModuleBuilder_StructInstantiationArity(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}
	_, box, err := b.DefineStruct("Box", format.EmptyAbilities,
		[]format.StructTypeParameter{{Constraints: format.EmptyAbilities}}, false,
		format.FieldDecl{Name: "v", Type: format.TypeParam(0)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Signature(format.StructInstantiationType(box, format.U8Type(), format.U8Type())); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); !errors.IsKind(err, errors.KindTypeParameterRange) {
		t.Fatalf("expected type parameter range, got %v", err)
	}
}
