package abi

import (
	"strconv"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// ModuleABI is the externally visible surface of a compiled module.
type ModuleABI struct {
	Address          string     `json:"address" yaml:"address"`
	Name             string     `json:"name" yaml:"name"`
	Friends          []ModuleID `json:"friends" yaml:"friends"`
	ExposedFunctions []Function `json:"exposed_functions" yaml:"exposed_functions"`
	Structs          []Struct   `json:"structs" yaml:"structs"`
}

// ModuleID names a module by address and name.
type ModuleID struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
}

// Function describes a function callable from outside its module.
type Function struct {
	Name              string              `json:"name" yaml:"name"`
	Visibility        string              `json:"visibility" yaml:"visibility"`
	IsEntry           bool                `json:"is_entry" yaml:"is_entry"`
	GenericTypeParams []FunctionTypeParam `json:"generic_type_params" yaml:"generic_type_params"`
	Params            []MoveType          `json:"params" yaml:"params"`
	Return            []MoveType          `json:"return" yaml:"return"`
}

// FunctionTypeParam is a function's type parameter.
type FunctionTypeParam struct {
	Constraints []string `json:"constraints" yaml:"constraints"`
}

// Struct describes a struct declared by the module.
type Struct struct {
	Name              string            `json:"name" yaml:"name"`
	IsNative          bool              `json:"is_native" yaml:"is_native"`
	Abilities         []string          `json:"abilities" yaml:"abilities"`
	GenericTypeParams []StructTypeParam `json:"generic_type_params" yaml:"generic_type_params"`
	Fields            []Field           `json:"fields" yaml:"fields"`
}

// StructTypeParam is a struct's type parameter.
type StructTypeParam struct {
	Constraints []string `json:"constraints" yaml:"constraints"`
	IsPhantom   bool     `json:"is_phantom" yaml:"is_phantom"`
}

// Field is one declared struct field.
type Field struct {
	Name string   `json:"name" yaml:"name"`
	Type MoveType `json:"type" yaml:"type"`
}

// FromModule extracts the ABI of m. Private non-entry functions are omitted.
// Functions and structs keep their definition order.
func FromModule(m *format.CompiledModule) (*ModuleABI, error) {
	if m == nil {
		return nil, errors.InvalidInput(errors.PhaseABI, "nil module")
	}
	self := m.SelfID()
	out := &ModuleABI{
		Address:          self.Address.ShortString(),
		Name:             string(self.Name),
		Friends:          make([]ModuleID, 0, len(m.FriendDecls())),
		ExposedFunctions: []Function{},
		Structs:          make([]Struct, 0, m.StructDefs().Len()),
	}
	for _, id := range m.Friends() {
		out.Friends = append(out.Friends, moduleID(id))
	}

	for i, def := range m.FunctionDefs().All() {
		if !def.IsExposed() {
			continue
		}
		fn, err := function(m, def)
		if err != nil {
			return nil, withPath(err, "function_defs", int(i))
		}
		out.ExposedFunctions = append(out.ExposedFunctions, fn)
	}

	for i, def := range m.StructDefs().All() {
		s, err := structDef(m, def)
		if err != nil {
			return nil, withPath(err, "struct_defs", int(i))
		}
		out.Structs = append(out.Structs, s)
	}
	return out, nil
}

func function(m *format.CompiledModule, def format.FunctionDefinition) (Function, error) {
	h, err := m.FunctionHandles().Get(def.Function)
	if err != nil {
		return Function{}, err
	}
	sig, err := m.FunctionSignatureOf(def.Function)
	if err != nil {
		return Function{}, err
	}
	params, err := moveTypes(m, sig.Parameters)
	if err != nil {
		return Function{}, err
	}
	ret, err := moveTypes(m, sig.Return)
	if err != nil {
		return Function{}, err
	}
	tps := make([]FunctionTypeParam, 0, len(h.TypeParameters))
	for _, c := range h.TypeParameters {
		tps = append(tps, FunctionTypeParam{Constraints: c.Names()})
	}
	return Function{
		Name:              string(m.FunctionName(def.Function)),
		Visibility:        def.Visibility.String(),
		IsEntry:           def.IsEntry,
		GenericTypeParams: tps,
		Params:            params,
		Return:            ret,
	}, nil
}

func structDef(m *format.CompiledModule, def format.StructDefinition) (Struct, error) {
	h, err := m.StructHandles().Get(def.StructHandle)
	if err != nil {
		return Struct{}, err
	}
	tps := make([]StructTypeParam, 0, len(h.TypeParameters))
	for _, tp := range h.TypeParameters {
		tps = append(tps, StructTypeParam{Constraints: tp.Constraints.Names(), IsPhantom: tp.IsPhantom})
	}
	fields := make([]Field, 0, def.FieldCount())
	for _, f := range def.FieldInformation.Fields {
		name, err := m.Identifiers().Get(f.Name)
		if err != nil {
			return Struct{}, err
		}
		t, err := FromToken(m, &f.Signature.Token)
		if err != nil {
			return Struct{}, err
		}
		fields = append(fields, Field{Name: string(name), Type: t})
	}
	return Struct{
		Name:              string(m.StructName(def.StructHandle)),
		IsNative:          def.IsNative(),
		Abilities:         h.Abilities.Names(),
		GenericTypeParams: tps,
		Fields:            fields,
	}, nil
}

func moveTypes(m *format.CompiledModule, sig format.Signature) ([]MoveType, error) {
	out := make([]MoveType, 0, len(sig))
	for i := range sig {
		t, err := FromToken(m, &sig[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func moduleID(id format.ModuleID) ModuleID {
	return ModuleID{Address: id.Address.ShortString(), Name: string(id.Name)}
}

func withPath(err error, table string, index int) error {
	return errors.New(errors.PhaseABI, errors.KindOf(err)).
		Path(table, strconv.Itoa(index)).
		Detail("cannot describe entry").
		Cause(err).
		Build()
}
