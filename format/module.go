package format

import (
	"github.com/wippyai/move-binary-format/errors"
)

// pools are the tables modules and scripts have in common.
type pools struct {
	moduleHandles          Pool[ModuleHandleIndex, ModuleHandle]
	structHandles          Pool[StructHandleIndex, StructHandle]
	functionHandles        Pool[FunctionHandleIndex, FunctionHandle]
	functionInstantiations Pool[FunctionInstantiationIndex, FunctionInstantiation]
	signatures             Pool[SignatureIndex, Signature]
	identifiers            Pool[IdentifierIndex, Identifier]
	addressIdentifiers     Pool[AddressIdentifierIndex, AccountAddress]
	constantPool           Pool[ConstantPoolIndex, Constant]
	version                uint32
}

// Version returns the format version the value was decoded from or built for.
func (p *pools) Version() uint32 { return p.version }

// ModuleHandles returns the module handle pool.
func (p *pools) ModuleHandles() Pool[ModuleHandleIndex, ModuleHandle] { return p.moduleHandles }

// StructHandles returns the struct handle pool.
func (p *pools) StructHandles() Pool[StructHandleIndex, StructHandle] { return p.structHandles }

// FunctionHandles returns the function handle pool.
func (p *pools) FunctionHandles() Pool[FunctionHandleIndex, FunctionHandle] {
	return p.functionHandles
}

// FunctionInstantiations returns the function instantiation pool.
func (p *pools) FunctionInstantiations() Pool[FunctionInstantiationIndex, FunctionInstantiation] {
	return p.functionInstantiations
}

// Signatures returns the signature pool.
func (p *pools) Signatures() Pool[SignatureIndex, Signature] { return p.signatures }

// Identifiers returns the identifier pool.
func (p *pools) Identifiers() Pool[IdentifierIndex, Identifier] { return p.identifiers }

// AddressIdentifiers returns the address pool.
func (p *pools) AddressIdentifiers() Pool[AddressIdentifierIndex, AccountAddress] {
	return p.addressIdentifiers
}

// ConstantPool returns the constant pool.
func (p *pools) ConstantPool() Pool[ConstantPoolIndex, Constant] { return p.constantPool }

// The *At accessors index pools directly and return copies. They panic on an
// invalid index, which cannot happen for indices read from a checked value.

func (p *pools) ModuleHandleAt(i ModuleHandleIndex) ModuleHandle { return p.moduleHandles.entries[i] }
func (p *pools) StructHandleAt(i StructHandleIndex) StructHandle {
	return p.structHandles.entries[i].clone()
}
func (p *pools) FunctionHandleAt(i FunctionHandleIndex) FunctionHandle {
	return p.functionHandles.entries[i].clone()
}
func (p *pools) FunctionInstantiationAt(i FunctionInstantiationIndex) FunctionInstantiation {
	return p.functionInstantiations.entries[i]
}
func (p *pools) SignatureAt(i SignatureIndex) Signature    { return p.signatures.entries[i].Clone() }
func (p *pools) IdentifierAt(i IdentifierIndex) Identifier { return p.identifiers.entries[i] }
func (p *pools) ConstantAt(i ConstantPoolIndex) Constant   { return p.constantPool.entries[i].clone() }
func (p *pools) AddressIdentifierAt(i AddressIdentifierIndex) AccountAddress {
	return p.addressIdentifiers.entries[i]
}

// ModuleIDFor resolves a module handle to its address and name.
func (p *pools) ModuleIDFor(h ModuleHandle) ModuleID {
	return ModuleID{
		Address: p.AddressIdentifierAt(h.Address),
		Name:    p.IdentifierAt(h.Name),
	}
}

// StructName returns the name of a struct handle.
func (p *pools) StructName(i StructHandleIndex) Identifier {
	return p.identifiers.entries[p.structHandles.entries[i].Name]
}

// FunctionName returns the name of a function handle.
func (p *pools) FunctionName(i FunctionHandleIndex) Identifier {
	return p.identifiers.entries[p.functionHandles.entries[i].Name]
}

// TypeArgumentsOf returns the type argument list stored at idx. NoTypeArguments
// resolves to the empty list.
func (p *pools) TypeArgumentsOf(idx SignatureIndex) (Signature, error) {
	return p.signatures.Get(idx)
}

// FunctionSignatureOf assembles the signature of a function handle.
func (p *pools) FunctionSignatureOf(idx FunctionHandleIndex) (FunctionSignature, error) {
	h, err := p.functionHandles.Get(idx)
	if err != nil {
		return FunctionSignature{}, err
	}
	params, err := p.signatures.Get(h.Parameters)
	if err != nil {
		return FunctionSignature{}, err
	}
	rets, err := p.signatures.Get(h.Return)
	if err != nil {
		return FunctionSignature{}, err
	}
	return FunctionSignature{Parameters: params, Return: rets, TypeParameters: h.TypeParameters}, nil
}

// InstantiatedSignature resolves the concrete signature a generic call site
// sees. An instantiation with NoTypeArguments yields the base signature
// unchanged.
func (p *pools) InstantiatedSignature(idx FunctionInstantiationIndex) (FunctionSignature, error) {
	inst, err := p.functionInstantiations.Get(idx)
	if err != nil {
		return FunctionSignature{}, err
	}
	base, err := p.FunctionSignatureOf(inst.Handle)
	if err != nil {
		return FunctionSignature{}, err
	}
	args, err := p.TypeArgumentsOf(inst.TypeParameters)
	if err != nil {
		return FunctionSignature{}, err
	}
	if len(args) == 0 && len(base.TypeParameters) == 0 {
		return base, nil
	}
	return base.Instantiate(args)
}

// AbilitiesOf computes the abilities of a token. constraints holds the
// abilities of the enclosing type parameters.
func (p *pools) AbilitiesOf(t *SignatureToken, constraints []AbilitySet) (AbilitySet, error) {
	return Fold(t, func(n *SignatureToken, kids []AbilitySet) (AbilitySet, error) {
		switch n.Kind {
		case TokenBool, TokenU8, TokenU64, TokenU128, TokenAddress:
			return PrimitiveAbilities, nil
		case TokenSigner:
			return SignerAbilities, nil
		case TokenReference, TokenMutableReference:
			return ReferenceAbilities, nil
		case TokenVector:
			if len(kids) != 1 {
				return 0, errors.Malformed(errors.PhaseBounds, []string{"signatures"}, "vector without element type")
			}
			return VectorAbilities.Intersect(kids[0]), nil
		case TokenStruct:
			h, err := p.structHandles.Get(n.Struct)
			if err != nil {
				return 0, err
			}
			return h.Abilities, nil
		case TokenStructInstantiation:
			h, err := p.structHandles.Get(n.Struct)
			if err != nil {
				return 0, err
			}
			return PolymorphicAbilities(h.Abilities, h.PhantomParameters(), kids)
		case TokenTypeParameter:
			if int(n.TypeParam) >= len(constraints) {
				return 0, errors.TypeParameterRange(errors.PhaseBounds, nil, int(n.TypeParam), len(constraints))
			}
			return constraints[n.TypeParam], nil
		}
		return 0, errors.Malformed(errors.PhaseBounds, nil, "unknown token kind %d", n.Kind)
	})
}

// CompiledModule is a deserialized or built module. It is immutable and safe
// for concurrent use.
type CompiledModule struct {
	pools
	fieldHandles            Pool[FieldHandleIndex, FieldHandle]
	structDefInstantiations Pool[StructDefInstantiationIndex, StructDefInstantiation]
	fieldInstantiations     Pool[FieldInstantiationIndex, FieldInstantiation]
	structDefs              Pool[StructDefinitionIndex, StructDefinition]
	functionDefs            Pool[FunctionDefinitionIndex, FunctionDefinition]
	friendDecls             []ModuleHandle
	selfHandle              ModuleHandleIndex
}

// FieldHandles returns the field handle pool.
func (m *CompiledModule) FieldHandles() Pool[FieldHandleIndex, FieldHandle] { return m.fieldHandles }

// StructDefInstantiations returns the struct instantiation pool.
func (m *CompiledModule) StructDefInstantiations() Pool[StructDefInstantiationIndex, StructDefInstantiation] {
	return m.structDefInstantiations
}

// FieldInstantiations returns the field instantiation pool.
func (m *CompiledModule) FieldInstantiations() Pool[FieldInstantiationIndex, FieldInstantiation] {
	return m.fieldInstantiations
}

// StructDefs returns the struct definitions.
func (m *CompiledModule) StructDefs() Pool[StructDefinitionIndex, StructDefinition] {
	return m.structDefs
}

// FunctionDefs returns the function definitions.
func (m *CompiledModule) FunctionDefs() Pool[FunctionDefinitionIndex, FunctionDefinition] {
	return m.functionDefs
}

func (m *CompiledModule) FieldHandleAt(i FieldHandleIndex) FieldHandle {
	return m.fieldHandles.entries[i]
}
func (m *CompiledModule) StructDefAt(i StructDefinitionIndex) StructDefinition {
	return m.structDefs.entries[i].clone()
}
func (m *CompiledModule) FunctionDefAt(i FunctionDefinitionIndex) FunctionDefinition {
	return m.functionDefs.entries[i].clone()
}

// FriendDecls returns the modules allowed to call friend functions.
func (m *CompiledModule) FriendDecls() []ModuleHandle {
	out := make([]ModuleHandle, len(m.friendDecls))
	copy(out, m.friendDecls)
	return out
}

// SelfHandleIndex returns the index of the module's own handle.
func (m *CompiledModule) SelfHandleIndex() ModuleHandleIndex { return m.selfHandle }

// SelfHandle returns the module's own handle.
func (m *CompiledModule) SelfHandle() ModuleHandle { return m.ModuleHandleAt(m.selfHandle) }

// SelfID returns the module's address and name.
func (m *CompiledModule) SelfID() ModuleID { return m.ModuleIDFor(m.SelfHandle()) }

// Name returns the module's name.
func (m *CompiledModule) Name() Identifier { return m.IdentifierAt(m.SelfHandle().Name) }

// Address returns the module's address.
func (m *CompiledModule) Address() AccountAddress {
	return m.AddressIdentifierAt(m.SelfHandle().Address)
}

// ImmediateDependencies returns every module referenced by a handle other
// than the module itself, in handle order.
func (m *CompiledModule) ImmediateDependencies() []ModuleID {
	self := m.SelfID()
	var deps []ModuleID
	for i, h := range m.moduleHandles.each() {
		if i == m.selfHandle {
			continue
		}
		id := m.ModuleIDFor(h)
		if id == self {
			continue
		}
		deps = append(deps, id)
	}
	return deps
}

// Friends returns the ids of the friend modules.
func (m *CompiledModule) Friends() []ModuleID {
	var out []ModuleID
	for _, h := range m.friendDecls {
		out = append(out, m.ModuleIDFor(h))
	}
	return out
}

// FindStructDef finds a struct definition by name.
func (m *CompiledModule) FindStructDef(name string) (StructDefinitionIndex, StructDefinition, bool) {
	for i, d := range m.structDefs.each() {
		if string(m.StructName(d.StructHandle)) == name {
			return i, d.clone(), true
		}
	}
	return 0, StructDefinition{}, false
}

// FindFunctionDef finds a function definition by name.
func (m *CompiledModule) FindFunctionDef(name string) (FunctionDefinitionIndex, FunctionDefinition, bool) {
	for i, d := range m.functionDefs.each() {
		if string(m.FunctionName(d.Function)) == name {
			return i, d.clone(), true
		}
	}
	return 0, FunctionDefinition{}, false
}

// FieldTypeOf returns the declared type of a field with the owner's type
// parameters replaced by typeArgs. Pass nil for non-generic owners.
func (m *CompiledModule) FieldTypeOf(idx FieldHandleIndex, typeArgs []SignatureToken) (SignatureToken, error) {
	fh, err := m.fieldHandles.Get(idx)
	if err != nil {
		return SignatureToken{}, err
	}
	def, err := m.structDefs.Get(fh.Owner)
	if err != nil {
		return SignatureToken{}, err
	}
	field, ok := def.Field(fh.Field)
	if !ok {
		return SignatureToken{}, errors.OutOfBounds(errors.PhaseBounds, []string{"field_handles", itoa(int(idx))}, int(fh.Field), def.FieldCount())
	}
	return field.Signature.Token.Substitute(typeArgs)
}

// InstantiatedFieldType resolves a field instantiation to the concrete type
// of the field.
func (m *CompiledModule) InstantiatedFieldType(idx FieldInstantiationIndex) (SignatureToken, error) {
	fi, err := m.fieldInstantiations.Get(idx)
	if err != nil {
		return SignatureToken{}, err
	}
	args, err := m.TypeArgumentsOf(fi.TypeParameters)
	if err != nil {
		return SignatureToken{}, err
	}
	return m.FieldTypeOf(fi.Handle, args)
}

// StructDefAbilities returns the abilities of a struct definition
// instantiated with the given argument abilities.
func (m *CompiledModule) StructDefAbilities(idx StructDefinitionIndex, args []AbilitySet) (AbilitySet, error) {
	def, err := m.structDefs.Get(idx)
	if err != nil {
		return 0, err
	}
	h := m.StructHandleAt(def.StructHandle)
	return PolymorphicAbilities(h.Abilities, h.PhantomParameters(), args)
}

// CompiledScript is a deserialized or built script: common pools plus one
// entry code unit.
type CompiledScript struct {
	pools
	typeParameters []AbilitySet
	code           CodeUnit
	parameters     SignatureIndex
}

// TypeParameters returns the ability constraints of the script's type parameters.
func (s *CompiledScript) TypeParameters() []AbilitySet {
	out := make([]AbilitySet, len(s.typeParameters))
	copy(out, s.typeParameters)
	return out
}

// Parameters returns the index of the script's parameter signature.
func (s *CompiledScript) Parameters() SignatureIndex { return s.parameters }

// Code returns the script's code unit.
func (s *CompiledScript) Code() CodeUnit {
	c := s.code
	c.Code = append([]Bytecode(nil), s.code.Code...)
	return c
}

// ImmediateDependencies returns every module the script references.
func (s *CompiledScript) ImmediateDependencies() []ModuleID {
	var deps []ModuleID
	for _, h := range s.moduleHandles.each() {
		if s.IdentifierAt(h.Name) == SelfIdentifier {
			continue
		}
		deps = append(deps, s.ModuleIDFor(h))
	}
	return deps
}
