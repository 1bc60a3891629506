package compiler

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compile failures.
type ErrorCode string

const (
	// CodeConstruction means the unit carried builder errors. The pipeline
	// refused to run and Errors holds them verbatim.
	CodeConstruction ErrorCode = "E200"

	// CodeUnsupportedFeature means the Strict policy rejected a construct
	// the target dialect lacks.
	CodeUnsupportedFeature ErrorCode = "E201"

	// CodeUnknownPass means the pass list named a pass that does not exist.
	CodeUnknownPass ErrorCode = "E202"
)

// CompileError is returned by Compile for every failure it classifies.
type CompileError struct {
	Code    ErrorCode
	Message string

	// Errors are the underlying causes. For CodeConstruction these are the
	// unit's construction errors in the order they were recorded.
	Errors []error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case 1:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Errors[0])
	default:
		return fmt.Sprintf("%s: %s (%d errors): %v", e.Code, e.Message, len(e.Errors), errors.Join(e.Errors...))
	}
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (e *CompileError) Unwrap() []error {
	return e.Errors
}

// Is matches any *CompileError with the same code, so callers can test
// errors.Is(err, &CompileError{Code: CodeUnknownPass}).
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *CompileError in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
