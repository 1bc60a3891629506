package optimize_test

import (
	"database/sql"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/mapper"
	"github.com/roach88/sqlopt/internal/optimize"
	"github.com/roach88/sqlopt/internal/querysql"
	"github.com/roach88/sqlopt/internal/testutil"
)

const fixture = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, role TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, status TEXT, total INTEGER);
INSERT INTO users VALUES (1, 'ann', 'admin'), (2, 'bob', NULL), (3, 'cy', 'dev'), (4, NULL, 'dev');
INSERT INTO orders VALUES
  (10, 1, 'open', 5), (11, 1, 'closed', 7), (12, 2, 'open', NULL),
  (13, NULL, 'open', 3), (14, 3, 'void', 9), (15, 3, 'open', 1);
`

func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.SQLite(t, fixture)
}

// rows runs stmt on db and returns its rows as sorted strings.
func rows(t *testing.T, db *sql.DB, stmt ast.Statement) []string {
	t.Helper()
	cfg := querysql.DefaultConfig(dialect.SQLite)
	res, err := querysql.Render(mapper.Map(stmt), cfg)
	require.NoError(t, err)

	rs, err := db.Query(res.SQL, res.Args()...)
	require.NoError(t, err, res.SQL)
	defer rs.Close()

	cols, err := rs.Columns()
	require.NoError(t, err)
	var out []string
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rs.Scan(ptrs...))
		out = append(out, fmt.Sprint(vals...))
	}
	require.NoError(t, rs.Err())
	slices.Sort(out)
	return out
}

func TestEquivalence_SQLite(t *testing.T) {
	userOrders := func(where ast.Expr) *ast.Query {
		s := selectFrom(table("orders"), ast.Col("orders", "user_id"))
		s.Where = where
		return query(s)
	}

	cases := map[string]func() ast.Statement{
		"dedup in list": func() ast.Statement {
			s := selectFrom(table("users"), ast.Col("users", "id"))
			s.Where = &ast.InList{X: ast.Col("users", "role"), List: []ast.Expr{ast.Lit("dev"), ast.Lit("dev"), ast.Null(), ast.Lit("admin")}}
			return query(s)
		},
		"in to exists": func() ast.Statement {
			return usersWhere(&ast.InSubquery{
				X:     ast.Col("users", "id"),
				Query: userOrders(ast.Eq(ast.Col("orders", "status"), ast.P("open"))),
			})
		},
		"in to exists under OR": func() ast.Statement {
			return usersWhere(ast.Or(
				ast.Eq(ast.Col("users", "role"), ast.Lit("dev")),
				&ast.InSubquery{X: ast.Col("users", "id"), Query: userOrders(nil)},
			))
		},
		"not in untouched": func() ast.Statement {
			return usersWhere(&ast.InSubquery{X: ast.Col("users", "id"), Query: userOrders(nil), Not: true})
		},
		"simplify exists": func() ast.Statement {
			sub := selectFrom(table("orders"), ast.Col("orders", "total"))
			sub.Where = ast.Eq(ast.Col("orders", "user_id"), ast.Col("users", "id"))
			sub.OrderBy = []ast.OrderItem{{Expr: ast.Col("orders", "total"), Desc: true}}
			return usersWhere(&ast.Exists{Query: query(sub)})
		},
		"flatten": func() ast.Statement {
			inner := selectFrom(table("orders"), ast.Col("id"), ast.Col("status"))
			inner.Where = gt(ast.Col("orders", "total"), ast.P(2))
			s := selectFrom(derived(inner, "o"), ast.Col("o", "id"))
			s.Where = ast.Eq(ast.Col("o", "status"), ast.Lit("open"))
			return query(s)
		},
		"pushdown with join": func() ast.Statement {
			inner := selectFrom(table("orders"), ast.Col("user_id"), ast.Col("total"))
			s := selectFrom(table("users"), ast.Col("users", "name"), ast.Col("o", "total"))
			s.Joins = []*ast.Join{{
				Kind:  ast.InnerJoin,
				Table: &ast.Derived{Query: &ast.Query{Body: inner, OrderBy: []ast.OrderItem{{Expr: ast.Col("total")}}}, Alias: "o"},
				On:    ast.Eq(ast.Col("o", "user_id"), ast.Col("users", "id")),
			}}
			s.Where = ast.And(gt(ast.Col("o", "total"), ast.P(4)), ast.Eq(ast.Col("users", "role"), ast.Lit("admin")))
			return query(s)
		},
		"pullup renamed": func() ast.Statement {
			inner := &ast.Select{
				Projection: []ast.SelectItem{
					{Expr: ast.Col("id")},
					{Expr: ast.Col("total"), Alias: "amount"},
				},
				From:  table("orders"),
				Where: &ast.IsNull{X: ast.Col("orders", "user_id"), Not: true},
			}
			s := selectFrom(derived(inner, "o"), ast.Col("o", "id"))
			s.Where = gt(ast.Col("o", "amount"), ast.Lit(2))
			q := query(s)
			q.OrderBy = []ast.OrderItem{{Expr: ast.Col("o", "amount")}}
			return q
		},
		"correlated bare name": func() ast.Statement {
			return correlatedOverDerived(ast.Col("id"))
		},
		"distinct blocks": func() ast.Statement {
			inner := selectFrom(table("orders"), ast.Col("status"))
			inner.Distinct = true
			s := selectFrom(derived(inner, "s"), ast.Col("s", "status"))
			s.Where = ast.Bin(ast.Col("s", "status"), "<>", ast.Lit("void"))
			return query(s)
		},
		"limited derived keeps order": func() ast.Statement {
			inner := selectFrom(table("orders"), ast.Col("id"))
			inner.OrderBy = []ast.OrderItem{{Expr: ast.Col("id"), Desc: true}}
			inner.Limit = &ast.Limit{Count: ast.Lit(2)}
			return query(selectFrom(derived(inner, "s"), ast.Col("s", "id")))
		},
	}

	db := openFixture(t)
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			want := rows(t, db, build())

			stmt := build()
			p, err := optimize.NewPipeline(optimize.DefaultOrder()...)
			require.NoError(t, err)
			p.Run(stmt)

			assert.Equal(t, want, rows(t, db, stmt))
		})
	}
}

// A bare name that resolved past a derived table keeps resolving there
// when flattening or pullup runs on its own.
func TestEquivalence_InliningKeepsBindings(t *testing.T) {
	db := openFixture(t)
	want := rows(t, db, correlatedOverDerived(ast.Col("id")))
	require.Equal(t, []string{"1", "2", "3"}, want)

	for _, name := range []string{"flatten_subqueries", "predicate_pullup"} {
		t.Run(name, func(t *testing.T) {
			p, err := optimize.NewPipeline(name)
			require.NoError(t, err)
			stmt := correlatedOverDerived(ast.Col("id"))
			_, report := p.Run(stmt)

			assert.Empty(t, report.Applied)
			assert.Equal(t, want, rows(t, db, stmt))
		})
	}
}

// Every pass combination keeps the Nth placeholder bound to the Nth value.
func TestEquivalence_PlaceholderAlignment(t *testing.T) {
	build := func() ast.Statement {
		inner := selectFrom(table("orders"), ast.Col("id"), ast.Col("user_id"), ast.Col("total"))
		inner.Where = ast.Bin(ast.Col("total"), ">=", ast.P(1))
		s := selectFrom(derived(inner, "o"), ast.Col("o", "id"), &ast.Func{Name: "coalesce", Args: []ast.Expr{ast.Col("o", "total"), ast.P(0)}})
		s.Where = ast.And(
			ast.Bin(ast.Col("o", "total"), "<", ast.P(9)),
			&ast.InSubquery{X: ast.Col("o", "user_id"), Query: usersWhere(ast.Bin(ast.Col("users", "role"), "=", ast.P("dev")))},
		)
		return query(s)
	}

	db := openFixture(t)
	want := rows(t, db, build())

	names := optimize.DefaultOrder()
	for mask := 0; mask < 1<<len(names); mask++ {
		var enabled []string
		for i, n := range names {
			if mask&(1<<i) != 0 {
				enabled = append(enabled, n)
			}
		}
		p, err := optimize.NewPipeline(enabled...)
		require.NoError(t, err)
		stmt := build()
		p.Run(stmt)

		for _, d := range dialect.All {
			cfg := querysql.DefaultConfig(d)
			res, err := querysql.Render(mapper.Map(stmt), cfg)
			require.NoError(t, err)
			assert.Equal(t, countPlaceholders(res.SQL), len(res.Params), "%v %s", enabled, d)
		}
		assert.Equal(t, want, rows(t, db, stmt), "%v", enabled)
	}
}

func countPlaceholders(s string) int {
	n := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inString = !inString
		case inString:
		case s[i] == '?':
			n++
		case s[i] == '$' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			n++
		}
	}
	return n
}
