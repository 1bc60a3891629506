package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/mapper"
	"github.com/roach88/sqlopt/internal/querysql"
)

func items(exprs ...ast.Expr) []ast.SelectItem {
	out := make([]ast.SelectItem, len(exprs))
	for i, e := range exprs {
		out[i] = ast.SelectItem{Expr: e}
	}
	return out
}

func table(name string) *ast.TableRef { return &ast.TableRef{Name: name} }

func selectFrom(from ast.TableFactor, exprs ...ast.Expr) *ast.Select {
	return &ast.Select{Projection: items(exprs...), From: from}
}

func query(s *ast.Select) *ast.Query { return &ast.Query{Body: s} }

func derived(s *ast.Select, alias string) *ast.Derived {
	return &ast.Derived{Query: query(s), Alias: alias}
}

func star() *ast.Star { return &ast.Star{} }

func gt(l, r ast.Expr) ast.Expr { return ast.Bin(l, ">", r) }

func lt(l, r ast.Expr) ast.Expr { return ast.Bin(l, "<", r) }

// render prints stmt for Postgres with smart quoting.
func render(t *testing.T, stmt ast.Statement) (string, []ir.Value) {
	t.Helper()
	return renderFor(t, stmt, dialect.Postgres)
}

func renderFor(t *testing.T, stmt ast.Statement, d dialect.Dialect) (string, []ir.Value) {
	t.Helper()
	cfg := querysql.DefaultConfig(d)
	cfg.Quoting = dialect.QuoteSmart
	res, err := querysql.Render(mapper.Map(stmt), cfg)
	require.NoError(t, err)
	return res.SQL, res.Params
}

func sqlOf(t *testing.T, stmt ast.Statement) string {
	t.Helper()
	s, _ := render(t, stmt)
	return s
}

// unchanged asserts that pass reports no change and leaves stmt as it was.
func unchanged(t *testing.T, pass func(ast.Statement) bool, stmt ast.Statement) {
	t.Helper()
	before := ast.Clone(stmt)
	require.False(t, pass(stmt))
	require.Equal(t, before, stmt)
}

// idempotent applies pass twice and asserts the second run is a no-op.
func idempotent(t *testing.T, pass func(ast.Statement) bool, stmt ast.Statement) {
	t.Helper()
	require.True(t, pass(stmt))
	once := ast.Clone(stmt)
	require.False(t, pass(stmt))
	require.Equal(t, once, stmt)
}
