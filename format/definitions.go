package format

import "slices"

// FieldDefinition is one declared field of a struct.
type FieldDefinition struct {
	Signature TypeSignature
	Name      IdentifierIndex
}

// StructFieldInformation is either native (no visible layout) or a declared
// ordered list of fields.
type StructFieldInformation struct {
	Fields []FieldDefinition
	Native bool
}

// NativeFields returns the field information of a native struct.
func NativeFields() StructFieldInformation {
	return StructFieldInformation{Native: true}
}

// DeclaredFields returns the field information of a struct with the given fields.
func DeclaredFields(fields ...FieldDefinition) StructFieldInformation {
	return StructFieldInformation{Fields: fields}
}

// StructDefinition owns the layout of a struct declared in this module.
type StructDefinition struct {
	FieldInformation StructFieldInformation
	StructHandle     StructHandleIndex
}

func (d StructDefinition) clone() StructDefinition {
	if d.FieldInformation.Fields == nil {
		return d
	}
	fields := make([]FieldDefinition, len(d.FieldInformation.Fields))
	for i, f := range d.FieldInformation.Fields {
		fields[i] = FieldDefinition{Name: f.Name, Signature: TypeSignature{Token: f.Signature.Token.Clone()}}
	}
	d.FieldInformation.Fields = fields
	return d
}

// IsNative reports whether the struct has no declared layout.
func (d StructDefinition) IsNative() bool {
	return d.FieldInformation.Native
}

// FieldCount returns the number of declared fields; zero for native structs.
func (d StructDefinition) FieldCount() int {
	return len(d.FieldInformation.Fields)
}

// Field returns the field at offset.
func (d StructDefinition) Field(offset MemberCount) (FieldDefinition, bool) {
	if d.FieldInformation.Native || int(offset) >= len(d.FieldInformation.Fields) {
		return FieldDefinition{}, false
	}
	return d.FieldInformation.Fields[offset], true
}

// Visibility controls who may call a function.
type Visibility uint8

const (
	VisibilityPrivate Visibility = 0
	VisibilityPublic  Visibility = 1
	// VisibilityScript functions may only be called from scripts or other script functions.
	VisibilityScript Visibility = 2
	// VisibilityFriend functions may be called by modules in the friend list.
	VisibilityFriend Visibility = 3
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	case VisibilityScript:
		return "script"
	case VisibilityFriend:
		return "friend"
	default:
		return "unknown"
	}
}

func (v Visibility) valid() bool {
	return v <= VisibilityFriend
}

// FunctionDefinition owns a function declared in this module. Native
// functions have no code.
type FunctionDefinition struct {
	Code       *CodeUnit
	Acquires   []StructDefinitionIndex
	Function   FunctionHandleIndex
	Visibility Visibility
	IsEntry    bool
}

func (d FunctionDefinition) clone() FunctionDefinition {
	if d.Code != nil {
		code := *d.Code
		code.Code = slices.Clone(code.Code)
		d.Code = &code
	}
	d.Acquires = slices.Clone(d.Acquires)
	return d
}

// IsNative reports whether the function has no body.
func (d FunctionDefinition) IsNative() bool {
	return d.Code == nil
}

// IsExposed reports whether the function is callable from outside the module.
func (d FunctionDefinition) IsExposed() bool {
	return d.Visibility != VisibilityPrivate || d.IsEntry
}
