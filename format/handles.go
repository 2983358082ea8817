package format

import "slices"

// ModuleHandle references a module by address and name. The module may be
// the current one or an external dependency.
type ModuleHandle struct {
	Address AddressIdentifierIndex
	Name    IdentifierIndex
}

// StructTypeParameter declares one type parameter of a generic struct.
type StructTypeParameter struct {
	Constraints AbilitySet
	// IsPhantom parameters do not take part in ability derivation.
	IsPhantom bool
}

// StructHandle references a struct declared in some module.
type StructHandle struct {
	TypeParameters []StructTypeParameter
	Module         ModuleHandleIndex
	Name           IdentifierIndex
	Abilities      AbilitySet
}

func (h StructHandle) clone() StructHandle {
	h.TypeParameters = slices.Clone(h.TypeParameters)
	return h
}

// TypeParameterConstraints returns the constraint of every type parameter.
func (h StructHandle) TypeParameterConstraints() []AbilitySet {
	out := make([]AbilitySet, len(h.TypeParameters))
	for i, p := range h.TypeParameters {
		out[i] = p.Constraints
	}
	return out
}

// PhantomParameters returns which type parameters are phantom.
func (h StructHandle) PhantomParameters() []bool {
	out := make([]bool, len(h.TypeParameters))
	for i, p := range h.TypeParameters {
		out[i] = p.IsPhantom
	}
	return out
}

// FunctionHandle references a function declared in some module.
type FunctionHandle struct {
	TypeParameters []AbilitySet
	Module         ModuleHandleIndex
	Name           IdentifierIndex
	Parameters     SignatureIndex
	Return         SignatureIndex
}

func (h FunctionHandle) clone() FunctionHandle {
	h.TypeParameters = slices.Clone(h.TypeParameters)
	return h
}

// FieldHandle addresses a field by owning definition and position.
type FieldHandle struct {
	Owner StructDefinitionIndex
	Field MemberCount
}

// StructDefInstantiation binds a generic struct definition to type arguments.
type StructDefInstantiation struct {
	Def            StructDefinitionIndex
	TypeParameters SignatureIndex
}

// FunctionInstantiation binds a function handle to type arguments.
type FunctionInstantiation struct {
	Handle         FunctionHandleIndex
	TypeParameters SignatureIndex
}

// FieldInstantiation binds a field handle to the type arguments of its owner.
type FieldInstantiation struct {
	Handle         FieldHandleIndex
	TypeParameters SignatureIndex
}
