package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDeserialize Phase = "deserialize" // binary to module
	PhaseSerialize   Phase = "serialize"   // module to binary
	PhaseBounds      Phase = "bounds"      // index/offset checks
	PhaseBuild       Phase = "build"       // builder construction
	PhaseSubstitute  Phase = "substitute"  // type parameter substitution
	PhaseLoad        Phase = "load"        // release loading
	PhaseABI         Phase = "abi"         // ABI extraction
	PhaseConfig      Phase = "config"      // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedHeader        Kind = "malformed_header"
	KindBufferOverrun          Kind = "buffer_overrun"
	KindIndexOutOfBounds       Kind = "index_out_of_bounds"
	KindInvalidTableLayout     Kind = "invalid_table_layout"
	KindExceededMaxTypeDepth   Kind = "exceeded_max_type_depth"
	KindTypeParameterRange     Kind = "type_parameter_out_of_range"
	KindInvalidAbilitySet      Kind = "invalid_ability_set"
	KindInvalidCodeOffset      Kind = "invalid_code_offset"
	KindMalformed              Kind = "malformed"
	KindInvalidLocalDefinition Kind = "invalid_local_definition"
	KindBuilderFrozen          Kind = "builder_frozen"
	KindDuplicate              Kind = "duplicate"
	KindNotFound               Kind = "not_found"
	KindCyclicDependency       Kind = "cyclic_dependency"
	KindInvalidInput           Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind, regardless of phase.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the table/entry path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedHeader creates a bad magic/version error
func MalformedHeader(detail string, args ...any) *Error {
	return New(PhaseDeserialize, KindMalformedHeader).Detail(detail, args...).Build()
}

// BufferOverrun creates a truncated input error
func BufferOverrun(path []string, want, have int) *Error {
	return &Error{
		Phase:  PhaseDeserialize,
		Kind:   KindBufferOverrun,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", want, have),
		Value:  want,
	}
}

// OutOfBounds creates an index out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIndexOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// TableLayout creates an invalid table layout error
func TableLayout(path []string, detail string, args ...any) *Error {
	return New(PhaseDeserialize, KindInvalidTableLayout).Path(path...).Detail(detail, args...).Build()
}

// TypeDepth creates an exceeded type depth error
func TypeDepth(phase Phase, path []string, depth, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExceededMaxTypeDepth,
		Path:   path,
		Detail: fmt.Sprintf("type nesting depth %d exceeds limit %d", depth, limit),
		Value:  depth,
	}
}

// TypeParameterRange creates a type parameter index error
func TypeParameterRange(phase Phase, path []string, index, arity int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeParameterRange,
		Path:   path,
		Detail: fmt.Sprintf("type parameter %d out of range (%d type arguments)", index, arity),
		Value:  index,
	}
}

// InvalidAbilitySet creates an ability set encoding error
func InvalidAbilitySet(phase Phase, path []string, bits byte) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidAbilitySet,
		Path:   path,
		Detail: fmt.Sprintf("invalid ability bits 0x%02x", bits),
		Value:  bits,
	}
}

// InvalidCodeOffset creates a branch target error
func InvalidCodeOffset(phase Phase, path []string, offset, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidCodeOffset,
		Path:   path,
		Detail: fmt.Sprintf("branch offset %d outside code of length %d", offset, length),
		Value:  offset,
	}
}

// Malformed creates a malformed data error
func Malformed(phase Phase, path []string, detail string, args ...any) *Error {
	return New(phase, KindMalformed).Path(path...).Detail(detail, args...).Build()
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a release loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// CyclicDependency reports a dependency cycle through the named modules
type CyclicDependency struct {
	Modules []string
}

// NewCyclicDependency wraps the cycle in an *Error of KindCyclicDependency
func NewCyclicDependency(modules []string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindCyclicDependency,
		Detail: fmt.Sprintf("dependency cycle through %d module(s): %s", len(modules), strings.Join(modules, " -> ")),
		Cause:  &CyclicDependency{Modules: modules},
	}
}

func (e *CyclicDependency) Error() string {
	if len(e.Modules) == 0 {
		return "cyclic dependency"
	}
	return "cyclic dependency: " + strings.Join(e.Modules, " -> ")
}

// Is reports whether target matches this error type
func (e *CyclicDependency) Is(target error) bool {
	_, ok := target.(*CyclicDependency)
	return ok
}
