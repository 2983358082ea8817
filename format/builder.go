package format

import (
	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format/internal/binary"
)

// poolBuilder interns entries of the pools modules and scripts share.
type poolBuilder struct {
	p           *pools
	identifiers map[Identifier]IdentifierIndex
	addresses   map[AccountAddress]AddressIdentifierIndex
	modules     map[ModuleHandle]ModuleHandleIndex
	signatures  map[uint64][]SignatureIndex
	constants   map[string]ConstantPoolIndex
	frozen      bool
}

func newPoolBuilder(p *pools) poolBuilder {
	return poolBuilder{
		p:           p,
		identifiers: make(map[Identifier]IdentifierIndex),
		addresses:   make(map[AccountAddress]AddressIdentifierIndex),
		modules:     make(map[ModuleHandle]ModuleHandleIndex),
		signatures:  make(map[uint64][]SignatureIndex),
		constants:   make(map[string]ConstantPoolIndex),
	}
}

func (b *poolBuilder) checkOpen() error {
	if b.frozen {
		return errors.New(errors.PhaseBuild, errors.KindBuilderFrozen).
			Detail("builder already produced its result").
			Build()
	}
	return nil
}

// Identifier interns a name.
func (b *poolBuilder) Identifier(name string) (IdentifierIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	id, err := NewIdentifier(name)
	if err != nil {
		return 0, err
	}
	if idx, ok := b.identifiers[id]; ok {
		return idx, nil
	}
	idx, err := b.p.identifiers.push(id)
	if err != nil {
		return 0, err
	}
	b.identifiers[id] = idx
	return idx, nil
}

// Address interns an account address.
func (b *poolBuilder) Address(addr AccountAddress) (AddressIdentifierIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if idx, ok := b.addresses[addr]; ok {
		return idx, nil
	}
	idx, err := b.p.addressIdentifiers.push(addr)
	if err != nil {
		return 0, err
	}
	b.addresses[addr] = idx
	return idx, nil
}

// ModuleHandle interns a handle for the module addr::name.
func (b *poolBuilder) ModuleHandle(addr AccountAddress, name string) (ModuleHandleIndex, error) {
	a, err := b.Address(addr)
	if err != nil {
		return 0, err
	}
	n, err := b.Identifier(name)
	if err != nil {
		return 0, err
	}
	h := ModuleHandle{Address: a, Name: n}
	if idx, ok := b.modules[h]; ok {
		return idx, nil
	}
	idx, err := b.p.moduleHandles.push(h)
	if err != nil {
		return 0, err
	}
	b.modules[h] = idx
	return idx, nil
}

// Signature interns a token list. The empty list is always NoTypeArguments.
func (b *poolBuilder) Signature(tokens ...SignatureToken) (SignatureIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if len(tokens) > SignatureSizeMax {
		return 0, errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Path("signatures").
			Detail("signature has %d tokens, limit %d", len(tokens), SignatureSizeMax).
			Build()
	}
	sig := Signature(tokens).Clone()
	h := sig.Hash()
	for _, idx := range b.signatures[h] {
		if b.p.signatures.entries[idx].Equal(sig) {
			return idx, nil
		}
	}
	idx, err := b.p.signatures.push(sig)
	if err != nil {
		return 0, err
	}
	b.signatures[h] = append(b.signatures[h], idx)
	return idx, nil
}

// Constant interns a constant.
func (b *poolBuilder) Constant(c Constant) (ConstantPoolIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if len(c.Data) > ConstantSizeMax {
		return 0, errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Path("constant_pool").
			Detail("constant payload of %d bytes exceeds %d", len(c.Data), ConstantSizeMax).
			Build()
	}
	if _, err := c.Value(); err != nil {
		return 0, errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Path("constant_pool").
			Detail("payload does not encode a %s", c.Type.String()).
			Cause(err).
			Build()
	}
	w := binary.NewWriter()
	writeToken(w, &c.Type)
	w.WriteBytes(c.Data)
	key := string(w.Bytes())
	if idx, ok := b.constants[key]; ok {
		return idx, nil
	}
	c = Constant{Type: c.Type.Clone(), Data: append([]byte(nil), c.Data...)}
	idx, err := b.p.constantPool.push(c)
	if err != nil {
		return 0, err
	}
	b.constants[key] = idx
	return idx, nil
}

// StructHandle appends a struct handle.
func (b *poolBuilder) StructHandle(h StructHandle) (StructHandleIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if len(h.TypeParameters) > TypeParameterCountMax {
		return 0, errors.InvalidInput(errors.PhaseBuild, "too many struct type parameters")
	}
	h.TypeParameters = append([]StructTypeParameter(nil), h.TypeParameters...)
	return b.p.structHandles.push(h)
}

// FunctionHandle appends a function handle.
func (b *poolBuilder) FunctionHandle(h FunctionHandle) (FunctionHandleIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if len(h.TypeParameters) > TypeParameterCountMax {
		return 0, errors.InvalidInput(errors.PhaseBuild, "too many function type parameters")
	}
	h.TypeParameters = append([]AbilitySet(nil), h.TypeParameters...)
	return b.p.functionHandles.push(h)
}

// FunctionInstantiation appends a function instantiation.
func (b *poolBuilder) FunctionInstantiation(fi FunctionInstantiation) (FunctionInstantiationIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	return b.p.functionInstantiations.push(fi)
}

// ExternalStruct declares a handle for a struct of another module.
func (b *poolBuilder) ExternalStruct(module ModuleHandleIndex, name string, abilities AbilitySet, typeParams ...StructTypeParameter) (StructHandleIndex, error) {
	n, err := b.Identifier(name)
	if err != nil {
		return 0, err
	}
	return b.StructHandle(StructHandle{Module: module, Name: n, Abilities: abilities, TypeParameters: typeParams})
}

// ExternalFunction declares a handle for a function of another module.
func (b *poolBuilder) ExternalFunction(module ModuleHandleIndex, name string, typeParams []AbilitySet, params, returns Signature) (FunctionHandleIndex, error) {
	n, err := b.Identifier(name)
	if err != nil {
		return 0, err
	}
	p, err := b.Signature(params...)
	if err != nil {
		return 0, err
	}
	r, err := b.Signature(returns...)
	if err != nil {
		return 0, err
	}
	return b.FunctionHandle(FunctionHandle{Module: module, Name: n, Parameters: p, Return: r, TypeParameters: typeParams})
}

// ModuleBuilder accumulates a module and freezes it with Build. Index 0 of
// the module handle pool is the module itself and index 0 of the signature
// pool is the empty NoTypeArguments list.
type ModuleBuilder struct {
	poolBuilder
	m *CompiledModule
}

// NewModuleBuilder starts a module named addr::name at the current version.
func NewModuleBuilder(addr AccountAddress, name string) (*ModuleBuilder, error) {
	m := &CompiledModule{}
	m.version = VersionMax
	b := &ModuleBuilder{m: m, poolBuilder: newPoolBuilder(&m.pools)}
	self, err := b.ModuleHandle(addr, name)
	if err != nil {
		return nil, err
	}
	m.selfHandle = self
	if _, err := b.Signature(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetVersion selects the format version of the result.
func (b *ModuleBuilder) SetVersion(v uint32) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if v < VersionMin || v > VersionMax {
		return errors.InvalidInput(errors.PhaseBuild, "unsupported version")
	}
	b.m.version = v
	return nil
}

// SelfHandle returns the handle index of the module being built.
func (b *ModuleBuilder) SelfHandle() ModuleHandleIndex {
	return b.m.selfHandle
}

// FieldHandle appends a field handle.
func (b *ModuleBuilder) FieldHandle(fh FieldHandle) (FieldHandleIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	return b.m.fieldHandles.push(fh)
}

// StructDefInstantiation appends a struct instantiation.
func (b *ModuleBuilder) StructDefInstantiation(si StructDefInstantiation) (StructDefInstantiationIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	return b.m.structDefInstantiations.push(si)
}

// FieldInstantiation appends a field instantiation.
func (b *ModuleBuilder) FieldInstantiation(fi FieldInstantiation) (FieldInstantiationIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	return b.m.fieldInstantiations.push(fi)
}

// StructDef appends a struct definition.
func (b *ModuleBuilder) StructDef(d StructDefinition) (StructDefinitionIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if len(d.FieldInformation.Fields) == 0 {
		d.FieldInformation.Fields = nil
	}
	return b.m.structDefs.push(d.clone())
}

// FunctionDef appends a function definition.
func (b *ModuleBuilder) FunctionDef(d FunctionDefinition) (FunctionDefinitionIndex, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if d.Code != nil {
		code := *d.Code
		code.Code = append([]Bytecode(nil), code.Code...)
		d.Code = &code
	}
	if len(d.Acquires) > AcquiresCountMax {
		return 0, errors.InvalidInput(errors.PhaseBuild, "acquires list too long")
	}
	d.Acquires = append([]StructDefinitionIndex(nil), d.Acquires...)
	return b.m.functionDefs.push(d)
}

// Friend declares addr::name a friend of the module.
func (b *ModuleBuilder) Friend(addr AccountAddress, name string) error {
	a, err := b.Address(addr)
	if err != nil {
		return err
	}
	n, err := b.Identifier(name)
	if err != nil {
		return err
	}
	h := ModuleHandle{Address: a, Name: n}
	for _, f := range b.m.friendDecls {
		if f == h {
			return errors.New(errors.PhaseBuild, errors.KindDuplicate).
				Path("friend_decls").
				Detail("%s::%s declared twice", addr.ShortString(), name).
				Build()
		}
	}
	b.m.friendDecls = append(b.m.friendDecls, h)
	return nil
}

// FieldDecl names one field of a struct declared with DefineStruct.
type FieldDecl struct {
	Type SignatureToken
	Name string
}

// DefineStruct declares a struct of this module: its handle and definition.
// A nil fields slice with native set declares a native struct.
func (b *ModuleBuilder) DefineStruct(name string, abilities AbilitySet, typeParams []StructTypeParameter, native bool, fields ...FieldDecl) (StructDefinitionIndex, StructHandleIndex, error) {
	h, err := b.ExternalStruct(b.m.selfHandle, name, abilities, typeParams...)
	if err != nil {
		return 0, 0, err
	}
	info := NativeFields()
	if !native {
		if len(fields) > FieldCountMax {
			return 0, 0, errors.InvalidInput(errors.PhaseBuild, "too many fields in struct "+name)
		}
		defs := make([]FieldDefinition, 0, len(fields))
		for _, f := range fields {
			n, err := b.Identifier(f.Name)
			if err != nil {
				return 0, 0, err
			}
			defs = append(defs, FieldDefinition{Name: n, Signature: TypeSignature{Token: f.Type.Clone()}})
		}
		info = DeclaredFields(defs...)
	}
	d, err := b.StructDef(StructDefinition{StructHandle: h, FieldInformation: info})
	if err != nil {
		return 0, 0, err
	}
	return d, h, nil
}

// FunctionDecl describes a function declared with DefineFunction. Native
// functions get no code unit; Locals and Code are ignored for them.
type FunctionDecl struct {
	Name           string
	TypeParameters []AbilitySet
	Parameters     Signature
	Return         Signature
	Locals         Signature
	Acquires       []StructDefinitionIndex
	Code           []Bytecode
	Visibility     Visibility
	IsEntry        bool
	Native         bool
}

// DefineFunction declares a function of this module: its handle and definition.
func (b *ModuleBuilder) DefineFunction(decl FunctionDecl) (FunctionDefinitionIndex, FunctionHandleIndex, error) {
	h, err := b.ExternalFunction(b.m.selfHandle, decl.Name, decl.TypeParameters, decl.Parameters, decl.Return)
	if err != nil {
		return 0, 0, err
	}
	def := FunctionDefinition{
		Function:   h,
		Visibility: decl.Visibility,
		IsEntry:    decl.IsEntry,
		Acquires:   decl.Acquires,
	}
	if !decl.Native {
		locals, err := b.Signature(decl.Locals...)
		if err != nil {
			return 0, 0, err
		}
		def.Code = &CodeUnit{Locals: locals, Code: decl.Code}
	}
	d, err := b.FunctionDef(def)
	if err != nil {
		return 0, 0, err
	}
	return d, h, nil
}

// Build checks the module and freezes the builder. Further calls fail with
// KindBuilderFrozen.
func (b *ModuleBuilder) Build() (*CompiledModule, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if err := Check(b.m); err != nil {
		return nil, err
	}
	b.frozen = true
	return b.m, nil
}

// ScriptBuilder accumulates a script and freezes it with Build.
type ScriptBuilder struct {
	poolBuilder
	s *CompiledScript
}

// NewScriptBuilder starts an empty script at the current version. The
// signature pool starts with the empty NoTypeArguments list.
func NewScriptBuilder() *ScriptBuilder {
	s := &CompiledScript{}
	s.version = VersionMax
	b := &ScriptBuilder{s: s, poolBuilder: newPoolBuilder(&s.pools)}
	// An empty pool always has room.
	_, _ = b.Signature()
	return b
}

// SetEntry sets the entry point: type parameters, parameters, locals and code.
func (b *ScriptBuilder) SetEntry(typeParams []AbilitySet, params, locals Signature, code []Bytecode) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if len(typeParams) > TypeParameterCountMax {
		return errors.InvalidInput(errors.PhaseBuild, "too many script type parameters")
	}
	p, err := b.Signature(params...)
	if err != nil {
		return err
	}
	l, err := b.Signature(locals...)
	if err != nil {
		return err
	}
	b.s.typeParameters = append([]AbilitySet(nil), typeParams...)
	b.s.parameters = p
	b.s.code = CodeUnit{Locals: l, Code: append([]Bytecode(nil), code...)}
	return nil
}

// Build checks the script and freezes the builder.
func (b *ScriptBuilder) Build() (*CompiledScript, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if err := CheckScript(b.s); err != nil {
		return nil, err
	}
	b.frozen = true
	return b.s, nil
}
