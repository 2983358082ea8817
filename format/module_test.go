package format_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

func TestPool(t *testing.T) {
	p := format.NewPool[format.IdentifierIndex, format.Identifier]("a", "b", "c")
	if p.Len() != 3 || p.Kind() != format.IndexIdentifier {
		t.Fatalf("Len() = %d, Kind() = %s", p.Len(), p.Kind())
	}
	v, err := p.Get(2)
	if err != nil || v != "c" {
		t.Errorf("Get(2) = %q, %v", v, err)
	}
	if _, err := p.Get(3); !errors.IsKind(err, errors.KindIndexOutOfBounds) {
		t.Errorf("Get(3): %v", err)
	}
	var order []format.Identifier
	for i, id := range p.All() {
		if int(i) != len(order) {
			t.Fatalf("All() yielded index %d at position %d", i, len(order))
		}
		order = append(order, id)
	}
	if !reflect.DeepEqual(order, p.Slice()) {
		t.Errorf("All() = %v, Slice() = %v", order, p.Slice())
	}
	s := p.Slice()
	s[0] = "z"
	if v, _ := p.Get(0); v != "a" {
		t.Error("Slice() aliases the pool")
	}
}

func TestReindex(t *testing.T) {
	m := coinModule(t)
	def, err := format.Reindex(format.StructHandleIndex(1), m.StructDefs())
	if err != nil {
		t.Fatal(err)
	}
	if def != 1 {
		t.Errorf("Reindex() = %d", def)
	}
	if _, err := format.Reindex(format.StructHandleIndex(7), m.StructDefs()); !errors.IsKind(err, errors.KindIndexOutOfBounds) {
		t.Errorf("Reindex out of range: %v", err)
	}
}

func TestModule_Identity(t *testing.T) {
	m := coinModule(t)
	if got := m.SelfID().String(); got != "0x1::Coin" {
		t.Errorf("SelfID() = %s", got)
	}
	if m.Name() != "Coin" || m.Address() != format.MustParseAddress("0x1") {
		t.Errorf("Name() = %s, Address() = %s", m.Name(), m.Address())
	}
	deps := m.ImmediateDependencies()
	if len(deps) != 1 || deps[0].String() != "0x1::Signer" {
		t.Errorf("ImmediateDependencies() = %v", deps)
	}
	friends := m.Friends()
	if len(friends) != 1 || friends[0].String() != "0x2::Market" {
		t.Errorf("Friends() = %v", friends)
	}

	script := format.BasicTestScript()
	sdeps := script.ImmediateDependencies()
	if len(sdeps) != 1 || sdeps[0].String() != "0x1::Coin" {
		t.Errorf("script ImmediateDependencies() = %v", sdeps)
	}
	if len(format.EmptyModule().ImmediateDependencies()) != 0 {
		t.Error("empty module has dependencies")
	}
}

func TestModule_FindDefinitions(t *testing.T) {
	m := coinModule(t)
	_, hash, ok := m.FindFunctionDef("hash")
	if !ok {
		t.Fatal("hash not found")
	}
	if !hash.IsNative() || hash.Visibility != format.VisibilityFriend || !hash.IsExposed() {
		t.Errorf("hash = %+v", hash)
	}
	_, run, ok := m.FindFunctionDef("run")
	if !ok || !run.IsEntry || len(run.Acquires) != 1 {
		t.Errorf("run = %+v", run)
	}
	if _, _, ok := m.FindFunctionDef("missing"); ok {
		t.Error("found a missing function")
	}
	_, handle, ok := m.FindStructDef("Handle")
	if !ok || !handle.IsNative() || handle.FieldCount() != 0 {
		t.Errorf("Handle = %+v", handle)
	}
	if _, ok := handle.Field(0); ok {
		t.Error("native struct has a field")
	}
}

func TestModule_NoTypeArgumentsInstantiation(t *testing.T) {
	b, err := format.NewModuleBuilder(format.MustParseAddress("0x1"), "M")
	if err != nil {
		t.Fatal(err)
	}
	_, f, err := b.DefineFunction(format.FunctionDecl{
		Name:       "f",
		Parameters: format.Signature{format.U64Type()},
		Return:     format.Signature{format.BoolType()},
		Code:       []format.Bytecode{format.Op(format.OpLdTrue), format.Op(format.OpRet)},
	})
	if err != nil {
		t.Fatal(err)
	}
	fi, err := b.FunctionInstantiation(format.FunctionInstantiation{Handle: f, TypeParameters: format.NoTypeArguments})
	if err != nil {
		t.Fatal(err)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	args, err := m.TypeArgumentsOf(format.NoTypeArguments)
	if err != nil || len(args) != 0 {
		t.Fatalf("TypeArgumentsOf(NoTypeArguments) = %v, %v", args, err)
	}
	base, err := m.FunctionSignatureOf(f)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := m.InstantiatedSignature(fi)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(base, inst) {
		t.Errorf("InstantiatedSignature() = %+v, want %+v", inst, base)
	}
}

func TestModule_InstantiatedSignature(t *testing.T) {
	m := coinModule(t)
	sig, err := m.InstantiatedSignature(0)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Parameters.String() != "(u64)" || sig.Return.String() != "(u64)" {
		t.Errorf("identity<u64> = %s -> %s", sig.Parameters, sig.Return)
	}
	if _, err := m.InstantiatedSignature(5); !errors.IsKind(err, errors.KindIndexOutOfBounds) {
		t.Errorf("missing instantiation: %v", err)
	}

	s := genericScript(t)
	ssig, err := s.InstantiatedSignature(0)
	if err != nil {
		t.Fatal(err)
	}
	if ssig.Parameters.String() != "(T0)" {
		t.Errorf("script instantiation = %s", ssig.Parameters)
	}
}

func TestModule_FieldTypes(t *testing.T) {
	m := coinModule(t)
	tok, err := m.FieldTypeOf(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != format.TokenU64 {
		t.Errorf("Coin.value = %s", tok.String())
	}
	item, err := m.InstantiatedFieldType(0)
	if err != nil {
		t.Fatal(err)
	}
	if item.Kind != format.TokenU64 {
		t.Errorf("Box<u64, bool>.item = %s", item.String())
	}
	if _, err := m.FieldTypeOf(1, nil); !errors.IsKind(err, errors.KindTypeParameterRange) {
		t.Errorf("generic field without arguments: %v", err)
	}
}

func TestModule_Abilities(t *testing.T) {
	m := coinModule(t)
	copyDropStore := format.Abilities(format.AbilityCopy, format.AbilityDrop, format.AbilityStore)
	tests := []struct {
		name        string
		tok         format.SignatureToken
		constraints []format.AbilitySet
		want        format.AbilitySet
	}{
		{"primitive", format.U64Type(), nil, format.PrimitiveAbilities},
		{"signer", format.SignerType(), nil, format.SignerAbilities},
		{"vector of primitive", format.VectorOf(format.U8Type()), nil, copyDropStore},
		{"vector of signer", format.VectorOf(format.SignerType()), nil, format.SingletonAbility(format.AbilityDrop)},
		{"reference", format.ReferenceTo(format.StructType(0)), nil, format.ReferenceAbilities},
		{"resource", format.StructType(0), nil, format.Abilities(format.AbilityKey, format.AbilityStore)},
		{"instantiation", format.StructInstantiationType(1, format.U64Type(), format.BoolType()), nil, copyDropStore},
		{"instantiation with signer", format.StructInstantiationType(1, format.SignerType(), format.BoolType()), nil, format.SingletonAbility(format.AbilityDrop)},
		{"phantom argument ignored", format.StructInstantiationType(1, format.U8Type(), format.SignerType()), nil, copyDropStore},
		{"type parameter", format.TypeParam(0), []format.AbilitySet{format.SingletonAbility(format.AbilityKey)}, format.SingletonAbility(format.AbilityKey)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.AbilitiesOf(&tt.tok, tt.constraints)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("AbilitiesOf(%s) = %s, want %s", tt.tok.String(), got, tt.want)
			}
		})
	}

	got, err := m.StructDefAbilities(1, []format.AbilitySet{format.SignerAbilities, format.EmptyAbilities})
	if err != nil {
		t.Fatal(err)
	}
	if got != format.SingletonAbility(format.AbilityDrop) {
		t.Errorf("StructDefAbilities() = %s", got)
	}
}

func TestCodeUnit_ControlFlow(t *testing.T) {
	m := coinModule(t)
	_, run, ok := m.FindFunctionDef("run")
	if !ok {
		t.Fatal("run not found")
	}
	targets := run.Code.BranchTargets()
	if targets.Count() != 2 || !targets.Test(10) || !targets.Test(12) {
		t.Errorf("BranchTargets() = %v", targets)
	}
	blocks := run.Code.BasicBlocks()
	want := []format.CodeOffset{0, 7, 10, 12}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("BasicBlocks() = %v, want %v", blocks, want)
	}
}

func TestCompiledScript_Accessors(t *testing.T) {
	s := format.BasicTestScript()
	code := s.Code()
	code.Code[0] = format.Op(format.OpNop)
	if s.Code().Code[0].Opcode != format.OpCopyLoc {
		t.Error("Code() aliases the script")
	}
	params := s.SignatureAt(s.Parameters())
	if params.String() != "(u64)" {
		t.Errorf("parameters = %s", params)
	}
	if len(s.TypeParameters()) != 0 {
		t.Errorf("TypeParameters() = %v", s.TypeParameters())
	}
}

func TestCompiledModule_AccessorsReturnCopies(t *testing.T) {
	m := coinModule(t)
	want, err := format.Serialize(m)
	if err != nil {
		t.Fatal(err)
	}

	for _, def := range m.FunctionDefs().All() {
		if def.Code != nil {
			def.Code.Code[0] = format.Op(format.OpNop)
			def.Code.Locals = 99
		}
		for i := range def.Acquires {
			def.Acquires[i] = 99
		}
	}
	for _, def := range m.StructDefs().All() {
		for i := range def.FieldInformation.Fields {
			def.FieldInformation.Fields[i].Signature.Token = format.SignerType()
		}
	}
	for _, sig := range m.Signatures().All() {
		for i := range sig {
			if sig[i].Inner != nil {
				sig[i].Inner.Kind = format.TokenSigner
			}
			sig[i] = format.SignerType()
		}
	}
	for _, h := range m.StructHandles().All() {
		for i := range h.TypeParameters {
			h.TypeParameters[i].IsPhantom = !h.TypeParameters[i].IsPhantom
		}
	}
	for _, h := range m.FunctionHandles().All() {
		for i := range h.TypeParameters {
			h.TypeParameters[i] = format.AllAbilities()
		}
	}
	for _, c := range m.ConstantPool().Slice() {
		c.Data[0] ^= 0xFF
	}
	for i := range m.FunctionDefs().Len() {
		def := m.FunctionDefAt(format.FunctionDefinitionIndex(i))
		if def.Code != nil {
			def.Code.Code[0] = format.Op(format.OpNop)
		}
		if _, found, ok := m.FindFunctionDef(string(m.FunctionName(def.Function))); ok && found.Code != nil {
			found.Code.Code[0] = format.Op(format.OpNop)
		}
	}
	c := m.ConstantAt(0)
	c.Data[0] ^= 0xFF
	sig := m.SignatureAt(1)
	if len(sig) > 0 {
		sig[0] = format.SignerType()
	}
	if def := m.StructDefAt(0); def.FieldCount() > 0 {
		def.FieldInformation.Fields[0].Name = 0
	}

	got, err := format.Serialize(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("changing values returned by accessors changed the module")
	}
}
