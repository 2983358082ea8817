package format

import (
	"iter"
	"strconv"

	"github.com/wippyai/move-binary-format/errors"
)

// TableIndex is the raw integer behind every pool index.
type TableIndex = uint16

// TableIndexMax is the largest index any pool can be addressed with.
const TableIndexMax = 0xFFFF

// IndexKind names the pool an index points into.
type IndexKind uint8

const (
	IndexModuleHandle IndexKind = iota
	IndexStructHandle
	IndexFunctionHandle
	IndexFieldHandle
	IndexFriendDeclaration
	IndexFunctionInstantiation
	IndexFieldInstantiation
	IndexStructDefinition
	IndexStructDefInstantiation
	IndexFunctionDefinition
	IndexFieldDefinition
	IndexSignature
	IndexIdentifier
	IndexAddressIdentifier
	IndexConstantPool
	IndexLocal
	IndexCodeDefinition
	IndexTypeParameter
	IndexMemberCount
)

var indexKindNames = [...]string{
	IndexModuleHandle:           "module_handles",
	IndexStructHandle:           "struct_handles",
	IndexFunctionHandle:         "function_handles",
	IndexFieldHandle:            "field_handles",
	IndexFriendDeclaration:      "friend_decls",
	IndexFunctionInstantiation:  "function_instantiations",
	IndexFieldInstantiation:     "field_instantiations",
	IndexStructDefinition:       "struct_defs",
	IndexStructDefInstantiation: "struct_def_instantiations",
	IndexFunctionDefinition:     "function_defs",
	IndexFieldDefinition:        "field_defs",
	IndexSignature:              "signatures",
	IndexIdentifier:             "identifiers",
	IndexAddressIdentifier:      "address_identifiers",
	IndexConstantPool:           "constant_pool",
	IndexLocal:                  "locals",
	IndexCodeDefinition:         "code",
	IndexTypeParameter:          "type_parameters",
	IndexMemberCount:            "member_count",
}

func (k IndexKind) String() string {
	if int(k) < len(indexKindNames) {
		return indexKindNames[k]
	}
	return "unknown_index_kind(" + strconv.Itoa(int(k)) + ")"
}

// Index is implemented by every typed pool index. The Kind method is the
// phantom marker tying an index type to the pool it addresses.
type Index interface {
	~uint16
	Kind() IndexKind
}

// Typed indices. Each one addresses exactly one pool.
type (
	ModuleHandleIndex           uint16
	StructHandleIndex           uint16
	FunctionHandleIndex         uint16
	FieldHandleIndex            uint16
	FunctionInstantiationIndex  uint16
	FieldInstantiationIndex     uint16
	StructDefinitionIndex       uint16
	StructDefInstantiationIndex uint16
	FunctionDefinitionIndex     uint16
	SignatureIndex              uint16
	IdentifierIndex             uint16
	AddressIdentifierIndex      uint16
	ConstantPoolIndex           uint16
)

func (ModuleHandleIndex) Kind() IndexKind           { return IndexModuleHandle }
func (StructHandleIndex) Kind() IndexKind           { return IndexStructHandle }
func (FunctionHandleIndex) Kind() IndexKind         { return IndexFunctionHandle }
func (FieldHandleIndex) Kind() IndexKind            { return IndexFieldHandle }
func (FunctionInstantiationIndex) Kind() IndexKind  { return IndexFunctionInstantiation }
func (FieldInstantiationIndex) Kind() IndexKind     { return IndexFieldInstantiation }
func (StructDefinitionIndex) Kind() IndexKind       { return IndexStructDefinition }
func (StructDefInstantiationIndex) Kind() IndexKind { return IndexStructDefInstantiation }
func (FunctionDefinitionIndex) Kind() IndexKind     { return IndexFunctionDefinition }
func (SignatureIndex) Kind() IndexKind              { return IndexSignature }
func (IdentifierIndex) Kind() IndexKind             { return IndexIdentifier }
func (AddressIdentifierIndex) Kind() IndexKind      { return IndexAddressIdentifier }
func (ConstantPoolIndex) Kind() IndexKind           { return IndexConstantPool }

// Non-pool indices used by code and signatures.
type (
	// LocalIndex addresses a parameter or local of the current function.
	LocalIndex = uint8
	// TypeParameterIndex addresses a type parameter of the enclosing generic.
	TypeParameterIndex = uint16
	// MemberCount is a field count or field offset within a struct.
	MemberCount = uint16
	// CodeOffset is an absolute instruction position within a code unit.
	CodeOffset = uint16
)

// NoTypeArguments is the reserved signature slot holding the empty type
// argument list. Non-generic instantiations point here so generic and
// non-generic call sites share one opcode shape.
const NoTypeArguments SignatureIndex = 0

// Pool is an ordered, append-only sequence addressed by the index type I.
// Insertion order is index order. Pools handed out by a CompiledModule are
// read-only views.
type Pool[I Index, T any] struct {
	entries []T
}

// NewPool creates a pool holding entries in order.
func NewPool[I Index, T any](entries ...T) Pool[I, T] {
	return Pool[I, T]{entries: entries}
}

// Len returns the number of entries.
func (p Pool[I, T]) Len() int {
	return len(p.entries)
}

// Kind returns the pool kind named by the index type.
func (p Pool[I, T]) Kind() IndexKind {
	var zero I
	return zero.Kind()
}

// Get returns the entry at idx or an IndexOutOfBounds error.
func (p Pool[I, T]) Get(idx I) (T, error) {
	if int(idx) >= len(p.entries) {
		var zero T
		return zero, errors.OutOfBounds(errors.PhaseBounds, []string{p.Kind().String()}, int(idx), len(p.entries))
	}
	return cloneEntry(p.entries[idx]), nil
}

// Has reports whether idx addresses an entry.
func (p Pool[I, T]) Has(idx I) bool {
	return int(idx) < len(p.entries)
}

// All iterates entries in index order.
func (p Pool[I, T]) All() iter.Seq2[I, T] {
	return func(yield func(I, T) bool) {
		for i, e := range p.entries {
			if !yield(I(i), cloneEntry(e)) {
				return
			}
		}
	}
}

// each is All without copying, for package code that only reads.
func (p Pool[I, T]) each() iter.Seq2[I, T] {
	return func(yield func(I, T) bool) {
		for i, e := range p.entries {
			if !yield(I(i), e) {
				return
			}
		}
	}
}

// Slice returns a copy of the entries.
func (p Pool[I, T]) Slice() []T {
	out := make([]T, len(p.entries))
	for i, e := range p.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// cloner is implemented by entries that own slices. Entries leave a pool
// only as copies, so a module cannot be changed through its accessors.
type cloner[T any] interface {
	clone() T
}

func cloneEntry[T any](e T) T {
	if c, ok := any(e).(cloner[T]); ok {
		return c.clone()
	}
	return e
}

func (p *Pool[I, T]) push(e T) (I, error) {
	if len(p.entries) > TableIndexMax {
		var zero I
		return zero, errors.New(errors.PhaseBuild, errors.KindIndexOutOfBounds).
			Path(p.Kind().String()).
			Detail("pool is full (%d entries)", len(p.entries)).
			Build()
	}
	p.entries = append(p.entries, e)
	return I(len(p.entries) - 1), nil
}

// Reindex converts an index of one pool type to another, checking that the
// result addresses an entry of target.
func Reindex[To Index, From Index, T any](from From, target Pool[To, T]) (To, error) {
	to := To(from)
	if !target.Has(to) {
		return 0, errors.New(errors.PhaseBounds, errors.KindIndexOutOfBounds).
			Path(target.Kind().String()).
			Detail("%s index %d does not address %s (length %d)", from.Kind(), uint16(from), target.Kind(), target.Len()).
			Value(int(from)).
			Build()
	}
	return to, nil
}
