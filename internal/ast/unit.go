package ast

import (
	"errors"
	"fmt"
)

// ConstructionError is a problem the builder detected while accumulating a
// statement: a malformed argument, a missing table, mismatched value counts.
type ConstructionError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unit is the boundary between an untrusted, partially built statement and
// one that is ready for optimization. A unit either carries a clean Stmt or
// a non-empty Errors list; the compiler refuses to run on the latter.
type Unit struct {
	Stmt   Statement
	Errors []error
}

// NewUnit wraps a statement with no construction errors.
func NewUnit(stmt Statement) *Unit {
	return &Unit{Stmt: stmt}
}

// AddError records a construction error against field.
func (u *Unit) AddError(field, format string, args ...any) {
	u.Errors = append(u.Errors, &ConstructionError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err returns the construction errors joined, or nil when the unit is clean.
// A unit without a statement is always an error.
func (u *Unit) Err() error {
	if len(u.Errors) > 0 {
		return errors.Join(u.Errors...)
	}
	if u.Stmt == nil {
		return &ConstructionError{Field: "statement", Message: "no statement was built"}
	}
	return nil
}
