// Package compiler runs a built statement through the whole pipeline:
// construction check, optimizer passes, mapping to the render tree, feature
// validation and rendering.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/mapper"
	"github.com/roach88/sqlopt/internal/optimize"
	"github.com/roach88/sqlopt/internal/queryir"
	"github.com/roach88/sqlopt/internal/querysql"
)

// Options configures one compilation.
type Options struct {
	Render querysql.Config

	// Passes is the ordered pass list. Nil or empty runs no passes.
	Passes []string

	// Logger receives pass and compile records. Nil means slog.Default().
	Logger *slog.Logger

	// IDs generates compile IDs. Nil means UUIDv7Generator.
	IDs IDGenerator
}

// DefaultOptions renders for d with querysql.DefaultConfig and runs every
// pass in default order.
func DefaultOptions(d dialect.Dialect) Options {
	return Options{
		Render: querysql.DefaultConfig(d),
		Passes: optimize.DefaultOrder(),
	}
}

// Result is one compiled statement.
type Result struct {
	ID      string
	Dialect dialect.Dialect
	SQL     string
	Params  []ir.Value

	// Applied lists the passes that changed the tree, in run order.
	Applied []string

	// Fingerprint identifies SQL plus ordered params; see ir.Fingerprint.
	Fingerprint string
}

// Args returns Params converted for database/sql.
func (r *Result) Args() []any {
	return ir.ToDriverSlice(r.Params)
}

// Compile compiles unit with opts.
//
// The unit's statement is cloned before optimizing, so the caller's tree is
// never modified and the same unit can be compiled for several dialects.
// Failures are *CompileError values: E200 when the unit carries
// construction errors, E201 when the Strict policy rejects a construct and
// E202 for an unknown pass name.
func Compile(unit *ast.Unit, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	stmt, err := prepare(unit)
	if err != nil {
		return nil, err
	}
	pipeline, err := optimize.NewPipeline(opts.Passes...)
	if err != nil {
		return nil, unknownPass(err)
	}

	id := ids.Generate()
	_, report := pipeline.Run(stmt)
	for _, name := range report.Applied {
		logger.Debug("pass applied", "pass", name, "compile_id", id)
	}

	res, err := querysql.Render(mapper.Map(stmt), opts.Render)
	if err != nil {
		var unsupported *queryir.UnsupportedFeatureError
		if errors.As(err, &unsupported) {
			return nil, &CompileError{
				Code:    CodeUnsupportedFeature,
				Message: fmt.Sprintf("cannot render for %s under strict policy", opts.Render.Dialect),
				Errors:  []error{err},
			}
		}
		return nil, fmt.Errorf("render: %w", err)
	}

	fp, err := ir.Fingerprint(res.SQL, res.Params)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	logger.Info("compiled",
		"dialect", opts.Render.Dialect.String(),
		"policy", opts.Render.Policy.String(),
		"params", len(res.Params),
		"compile_id", id,
	)

	return &Result{
		ID:          id,
		Dialect:     opts.Render.Dialect,
		SQL:         res.SQL,
		Params:      res.Params,
		Applied:     report.Applied,
		Fingerprint: fp,
	}, nil
}

// DialectReport is the feature check of one statement against one dialect.
type DialectReport struct {
	Dialect    dialect.Dialect
	Violations []queryir.Violation
}

// Supported reports whether the statement renders natively.
func (r DialectReport) Supported() bool {
	return len(r.Violations) == 0
}

// Check optimizes unit with passes and reports, for every dialect in
// dialect.All, the constructs that dialect cannot express natively. It
// never renders.
func Check(unit *ast.Unit, passes []string) ([]DialectReport, error) {
	stmt, err := prepare(unit)
	if err != nil {
		return nil, err
	}
	pipeline, err := optimize.NewPipeline(passes...)
	if err != nil {
		return nil, unknownPass(err)
	}
	pipeline.Run(stmt)

	tree := mapper.Map(stmt)
	reports := make([]DialectReport, 0, len(dialect.All))
	for _, d := range dialect.All {
		reports = append(reports, DialectReport{Dialect: d, Violations: queryir.Validate(tree, d)})
	}
	return reports, nil
}

// prepare refuses units with construction errors and returns a private
// copy of the statement.
func prepare(unit *ast.Unit) (ast.Statement, error) {
	if unit == nil {
		unit = &ast.Unit{}
	}
	if err := unit.Err(); err != nil {
		causes := unit.Errors
		if len(causes) == 0 {
			causes = []error{err}
		}
		return nil, &CompileError{
			Code:    CodeConstruction,
			Message: "statement has construction errors",
			Errors:  causes,
		}
	}
	return ast.Clone(unit.Stmt), nil
}

func unknownPass(err error) error {
	return &CompileError{
		Code:    CodeUnknownPass,
		Message: "invalid pass list",
		Errors:  []error{err},
	}
}
