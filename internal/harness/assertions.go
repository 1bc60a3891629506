package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // sql, params, applied, error, rows or equivalent
	Dialect  string
	Expected string
	Actual   string

	// Output is the full output of the failing dialect, for context.
	Output *Output
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (%s)\n", e.Type, e.Dialect)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if o := e.Output; o != nil {
		fmt.Fprintf(&buf, "\nOutput:\n")
		if o.Error != "" {
			fmt.Fprintf(&buf, "  error: %s\n", o.Error)
		} else {
			fmt.Fprintf(&buf, "  sql: %s\n", o.SQL)
			fmt.Fprintf(&buf, "  params: %s\n", formatParams(o.Params))
			fmt.Fprintf(&buf, "  applied: %v\n", o.Applied)
		}
	}

	return buf.String()
}

func formatParams(params []ir.Value) string {
	parts := make([]string, len(params))
	for i, p := range params {
		b, err := ir.MarshalCanonical(p)
		if err != nil {
			parts[i] = fmt.Sprint(p)
			continue
		}
		parts[i] = string(b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// assertError checks the failure, or the absence of one.
func assertError(exp Expectation, out *Output) error {
	switch {
	case exp.Error == "" && out.Error != "":
		return &AssertionError{Type: "error", Dialect: out.Dialect, Expected: "no error", Actual: out.Error}
	case exp.Error == "":
		return nil
	case out.Error == "":
		return &AssertionError{Type: "error", Dialect: out.Dialect, Expected: exp.Error, Actual: "no error", Output: out}
	case out.Code == exp.Error || strings.Contains(out.Error, exp.Error):
		return nil
	default:
		return &AssertionError{Type: "error", Dialect: out.Dialect, Expected: exp.Error, Actual: out.Error}
	}
}

func assertSQL(exp Expectation, out *Output) error {
	if exp.SQL == "" || exp.SQL == out.SQL {
		return nil
	}
	return &AssertionError{Type: "sql", Dialect: out.Dialect, Expected: exp.SQL, Actual: out.SQL, Output: out}
}

// assertParams compares values by exact identity: 1 and 1.0 match, the
// string '1' and the number 1 do not.
func assertParams(exp Expectation, out *Output) error {
	if exp.Params.Kind == 0 {
		return nil
	}
	want := exp.expectedParams()
	equal := len(want) == len(out.Params)
	for i := 0; equal && i < len(want); i++ {
		equal = ir.Key(want[i]) == ir.Key(out.Params[i])
	}
	if equal {
		return nil
	}
	return &AssertionError{
		Type:     "params",
		Dialect:  out.Dialect,
		Expected: formatParams(want),
		Actual:   formatParams(out.Params),
		Output:   out,
	}
}

func assertApplied(exp Expectation, out *Output) error {
	if exp.Applied == nil || slices.Equal(exp.Applied, out.Applied) {
		return nil
	}
	return &AssertionError{
		Type:     "applied",
		Dialect:  out.Dialect,
		Expected: fmt.Sprint(exp.Applied),
		Actual:   fmt.Sprint(out.Applied),
		Output:   out,
	}
}

func assertRows(exp Expectation, out *Output) error {
	if exp.Rows == nil {
		return nil
	}
	if !out.Executed {
		return &AssertionError{Type: "rows", Dialect: out.Dialect, Expected: fmt.Sprint(exp.Rows), Actual: "not executed", Output: out}
	}
	if rowsEqual(exp.Rows, out.Rows) {
		return nil
	}
	return &AssertionError{Type: "rows", Dialect: out.Dialect, Expected: fmt.Sprint(exp.Rows), Actual: fmt.Sprint(out.Rows), Output: out}
}

func rowsEqual(a, b [][]string) bool {
	return slices.EqualFunc(a, b, func(x, y []string) bool { return slices.Equal(x, y) })
}

// EvaluateExpectations checks every expectation of s against result and
// returns one message per failure, in dialect order.
func EvaluateExpectations(result *Result, s *Scenario) []string {
	var errors []string

	for _, d := range dialect.All {
		exp, ok := s.expectation(d)
		if !ok {
			continue
		}
		out := result.Output(d.String())
		if out == nil {
			errors = append(errors, fmt.Sprintf("expect.%s: dialect was not compiled", d))
			continue
		}

		if err := assertError(exp, out); err != nil {
			errors = append(errors, err.Error())
			continue
		}
		if exp.Error != "" {
			continue
		}
		for _, check := range []func(Expectation, *Output) error{assertSQL, assertParams, assertApplied, assertRows} {
			if err := check(exp, out); err != nil {
				errors = append(errors, err.Error())
			}
		}
	}

	return errors
}
