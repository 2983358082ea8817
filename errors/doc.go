// Package errors provides structured error types for the move-binary-format library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes the offending table/entry path, the offending value and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDeserialize, errors.KindInvalidTableLayout).
//		Path("identifiers").
//		Detail("table overlaps signatures").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseBounds, []string{"struct_handles", "3"}, 10, 5)
//	err := errors.InvalidCodeOffset(errors.PhaseDeserialize, path, 5, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches on Kind alone, which is what most callers want.
package errors
