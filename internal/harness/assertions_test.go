package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ir"
)

func paramsNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return *doc.Content[0]
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     "sql",
		Dialect:  "postgres",
		Expected: "SELECT 1",
		Actual:   "SELECT 2",
		Output:   &Output{Dialect: "postgres", SQL: "SELECT 2", Params: []ir.Value{ir.String("a"), ir.Null{}}, Applied: []string{"fold_constants"}},
	}
	assert.Equal(t, "Assertion failed: sql (postgres)\n"+
		"  Expected: SELECT 1\n"+
		"  Actual: SELECT 2\n"+
		"\nOutput:\n"+
		"  sql: SELECT 2\n"+
		"  params: [\"a\", null]\n"+
		"  applied: [fold_constants]\n", err.Error())

	bare := &AssertionError{Type: "error", Dialect: "mysql", Expected: "no error", Actual: "E201: x"}
	assert.Equal(t, "Assertion failed: error (mysql)\n  Expected: no error\n  Actual: E201: x\n", bare.Error())
}

func TestAssertError(t *testing.T) {
	failed := &Output{Dialect: "mysql", Code: "E201", Error: "E201: cannot render for mysql under strict policy: ILIKE is not supported by mysql"}
	ok := &Output{Dialect: "mysql", SQL: "SELECT 1"}

	assert.NoError(t, assertError(Expectation{}, ok))
	assert.NoError(t, assertError(Expectation{Error: "E201"}, failed))
	assert.NoError(t, assertError(Expectation{Error: "ILIKE is not supported"}, failed))
	assert.Error(t, assertError(Expectation{Error: "E202"}, failed))
	assert.Error(t, assertError(Expectation{}, failed))
	assert.Error(t, assertError(Expectation{Error: "E201"}, ok))
}

func TestAssertParams(t *testing.T) {
	out := &Output{Dialect: "postgres", Params: []ir.Value{ir.Int(1), ir.String("a")}}

	assert.NoError(t, assertParams(Expectation{}, out))
	assert.NoError(t, assertParams(Expectation{Params: paramsNode(t, "[1, a]")}, out))
	assert.NoError(t, assertParams(Expectation{Params: paramsNode(t, "[1.0, a]")}, out))
	assert.Error(t, assertParams(Expectation{Params: paramsNode(t, `["1", a]`)}, out))
	assert.Error(t, assertParams(Expectation{Params: paramsNode(t, "[1]")}, out))
	assert.NoError(t, assertParams(Expectation{Params: paramsNode(t, "[]")}, &Output{}))
}

func TestAssertApplied(t *testing.T) {
	out := &Output{Dialect: "postgres", Applied: []string{"a", "b"}}

	assert.NoError(t, assertApplied(Expectation{}, out))
	assert.NoError(t, assertApplied(Expectation{Applied: []string{"a", "b"}}, out))
	assert.Error(t, assertApplied(Expectation{Applied: []string{"b", "a"}}, out))
	assert.Error(t, assertApplied(Expectation{Applied: []string{}}, out))
}

func TestAssertRows(t *testing.T) {
	exp := Expectation{Rows: [][]string{{"1", "NULL"}}}

	assert.NoError(t, assertRows(Expectation{}, &Output{}))
	assert.NoError(t, assertRows(exp, &Output{Executed: true, Rows: [][]string{{"1", "NULL"}}}))
	assert.ErrorContains(t, assertRows(exp, &Output{Dialect: "sqlite"}), "not executed")
	assert.Error(t, assertRows(exp, &Output{Executed: true, Rows: [][]string{{"1", ""}}}))
	assert.Error(t, assertRows(exp, &Output{Executed: true}))
}

func TestEvaluateExpectations_SkipsChecksAfterExpectedError(t *testing.T) {
	s := &Scenario{Expect: map[string]Expectation{"mysql": {Error: "E201"}}}
	result := &Result{Outputs: []Output{{Dialect: "mysql", Code: "E201", Error: "E201: x"}}}
	assert.Empty(t, EvaluateExpectations(result, s))

	s = &Scenario{Expect: map[string]Expectation{"sqlite": {SQL: "SELECT 1"}}}
	assert.Equal(t, []string{"expect.sqlite: dialect was not compiled"}, EvaluateExpectations(&Result{}, s))
}
