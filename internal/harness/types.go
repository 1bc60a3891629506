package harness

import "github.com/roach88/sqlopt/internal/ir"

// Output is what one dialect produced for a scenario.
type Output struct {
	Dialect string
	SQL     string
	Params  []ir.Value

	// Applied lists the passes that changed the tree.
	Applied []string

	// Code and Error are set when compilation failed.
	Code  string
	Error string

	// Executed is set when the SQL ran against the fixture.
	Executed     bool
	Rows         [][]string
	RowsAffected int64
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Outputs holds one entry per target dialect, in dialect.All order.
	Outputs []Output

	// Errors contains one message per failed expectation.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []Output{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Output returns the output for dialect name, or nil.
func (r *Result) Output(name string) *Output {
	for i := range r.Outputs {
		if r.Outputs[i].Dialect == name {
			return &r.Outputs[i]
		}
	}
	return nil
}
