package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/compiler"
	"github.com/roach88/sqlopt/internal/config"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/exec"
	"github.com/roach88/sqlopt/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	scenario *Scenario
	unit     *ast.Unit
	cfg      *config.File
	ids      compiler.IDGenerator
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Decode the query document and the config overrides
//  2. Compile the query for every dialect in dialect.All
//  3. Run the SQLite output against the fixture, if there is one
//  4. Check the equivalence of optimized and unoptimized SQLite output
//  5. Evaluate every expectation
//
// An error is returned only when the scenario itself cannot be used; a
// failed expectation is reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for fixture execution.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := scenario.document()
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}
	cfg, err := scenario.configFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		unit:     doc.Unit,
		cfg:      cfg,
		ids:      testutil.NewFixedIDGenerator("harness-" + scenario.Name),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	for _, d := range dialect.All {
		out, err := h.compile(ctx, d, cfg.Passes())
		if err != nil {
			return nil, err
		}
		result.Outputs = append(result.Outputs, *out)
	}

	if scenario.Equivalent {
		if msg, err := h.checkEquivalence(ctx, result.Output(dialect.SQLite.String())); err != nil {
			return nil, err
		} else if msg != "" {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateExpectations(result, scenario) {
		result.AddError(msg)
	}
	return result, nil
}

// compile renders the unit for d and, for SQLite with a fixture, runs it.
func (h *Harness) compile(ctx context.Context, d dialect.Dialect, passes []string) (*Output, error) {
	f := h.cfg.ForDialect(d)
	rc, err := f.RenderConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}

	out := &Output{Dialect: d.String()}
	res, err := compiler.Compile(h.unit, compiler.Options{
		Render: rc,
		Passes: passes,
		Logger: h.logger,
		IDs:    h.ids,
	})
	if err != nil {
		out.Code = string(compiler.CodeOf(err))
		out.Error = err.Error()
		return out, nil
	}
	out.SQL = res.SQL
	out.Params = res.Params
	out.Applied = res.Applied
	if out.Applied == nil {
		out.Applied = []string{}
	}

	if h.scenario.executes(d) {
		outcome, err := h.execute(ctx, res.SQL, res.Args())
		if err != nil {
			// The fixture ran, so the failure belongs to the statement.
			out.Error = fmt.Sprintf("execution failed: %v", err)
			return out, nil
		}
		out.Executed = true
		out.Rows = outcome.Rows.Strings()
		out.RowsAffected = outcome.RowsAffected
	}
	return out, nil
}

// execute runs sql on a fresh in-memory database holding the fixture.
func (h *Harness) execute(ctx context.Context, sql string, args []any) (*exec.Outcome, error) {
	db, err := exec.OpenSQLite(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory database: %w", err)
	}
	defer db.Close()

	for i, stmt := range h.scenario.Fixture {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("fixture[%d]: %w", i, err)
		}
	}
	return exec.Run(ctx, db, sql, args, exec.ReturnsRows(h.unit.Stmt))
}

// checkEquivalence compiles SQLite without passes and compares its rows
// with the optimized output. Row order is ignored unless the query orders
// its result.
func (h *Harness) checkEquivalence(ctx context.Context, optimized *Output) (string, error) {
	if optimized == nil || !optimized.Executed {
		return "equivalence: optimized SQLite output did not execute", nil
	}
	baseline, err := h.compile(ctx, dialect.SQLite, nil)
	if err != nil {
		return "", err
	}
	if !baseline.Executed {
		return fmt.Sprintf("equivalence: unoptimized SQLite output did not execute: %s", baseline.Error), nil
	}

	want, got := baseline.Rows, optimized.Rows
	if !ordered(h.unit.Stmt) {
		want, got = sortedRows(want), sortedRows(got)
	}
	if !rowsEqual(want, got) || baseline.RowsAffected != optimized.RowsAffected {
		err := &AssertionError{
			Type:     "equivalent",
			Dialect:  dialect.SQLite.String(),
			Expected: fmt.Sprintf("%v (unoptimized: %s)", want, baseline.SQL),
			Actual:   fmt.Sprintf("%v (optimized: %s)", got, optimized.SQL),
		}
		return err.Error(), nil
	}
	return "", nil
}

func ordered(stmt ast.Statement) bool {
	q, ok := stmt.(*ast.Query)
	return ok && len(q.OrderBy) > 0
}

func sortedRows(rows [][]string) [][]string {
	out := append([][]string(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Join(out[i], "\x00") < strings.Join(out[j], "\x00")
	})
	return out
}
