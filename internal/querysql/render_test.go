package querysql

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/queryir"
	"github.com/roach88/sqlopt/internal/testutil"
)

func id(parts ...string) *queryir.Ident { return &queryir.Ident{Parts: parts} }

func lit(v any) *queryir.Literal { return &queryir.Literal{Value: ir.MustOf(v)} }

func param(v any) *queryir.Param { return &queryir.Param{Value: ir.MustOf(v)} }

func bin(l queryir.Expr, op string, r queryir.Expr) *queryir.Binary {
	return &queryir.Binary{Op: op, L: l, R: r}
}

func cols(names ...string) []queryir.SelectItem {
	out := make([]queryir.SelectItem, len(names))
	for i, n := range names {
		out[i] = queryir.SelectItem{Expr: id(n)}
	}
	return out
}

func from(table string, columns ...string) *queryir.Select {
	return &queryir.Select{Columns: cols(columns...), From: &queryir.Table{Name: table}}
}

func smart(d dialect.Dialect) Config {
	cfg := DefaultConfig(d)
	cfg.Quoting = dialect.QuoteSmart
	return cfg
}

func render(t *testing.T, stmt queryir.Statement, cfg Config) *Result {
	t.Helper()
	res, err := Render(stmt, cfg)
	require.NoError(t, err)
	return res
}

func TestRender_SimpleSelectAlwaysQuoted(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: cols("id", "name"),
		From:    &queryir.Table{Name: "users"},
		Where:   bin(id("id"), "=", param(7)),
	}}

	res := render(t, q, DefaultConfig(dialect.Postgres))
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "id" = $1`, res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(7)}, res.Params)
	assert.Equal(t, []any{int64(7)}, res.Args())

	res = render(t, q, DefaultConfig(dialect.MySQL))
	assert.Equal(t, "SELECT `id`, `name` FROM `users` WHERE `id` = ?", res.SQL)
}

func TestRender_SmartQuotingReservedWord(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: cols("order", "total"),
		From:    &queryir.Table{Name: "users", Alias: "u"},
	}}
	assert.Equal(t, "SELECT `order`, total FROM users AS u", render(t, q, smart(dialect.MySQL)).SQL)

	cfg := smart(dialect.Postgres)
	cfg.PreserveCase = true
	assert.Equal(t, `SELECT "order", "total" FROM "users" AS "u"`, render(t, q, cfg).SQL)
}

func TestRender_QualifiedIdentifiersAndStar(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: []queryir.SelectItem{{Expr: &queryir.Star{Table: "u"}}, {Expr: id("o", "total")}},
		From:    &queryir.Table{Schema: "app", Name: "users", Alias: "u"},
	}}
	assert.Equal(t, `SELECT "u".*, "o"."total" FROM "app"."users" AS "u"`, render(t, q, DefaultConfig(dialect.SQLite)).SQL)
}

func TestRender_PlaceholderStyles(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: cols("a"),
		From:    &queryir.Table{Name: "t"},
		Where:   bin(bin(id("a"), "=", param(1)), "AND", bin(id("b"), "=", param("x"))),
	}}

	assert.Equal(t, "SELECT a FROM t WHERE a = $1 AND b = $2", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT a FROM t WHERE a = ? AND b = ?", render(t, q, smart(dialect.SQLite)).SQL)

	cfg := smart(dialect.SQLite)
	cfg.Placeholder = dialect.PlaceholderNumbered
	assert.Equal(t, "SELECT a FROM t WHERE a = $1 AND b = $2", render(t, q, cfg).SQL)

	cfg = smart(dialect.Postgres)
	cfg.Placeholder = dialect.PlaceholderQuestion
	assert.Equal(t, "SELECT a FROM t WHERE a = ? AND b = ?", render(t, q, cfg).SQL)
}

func ilike() *queryir.Query {
	return &queryir.Query{Body: &queryir.Select{
		Columns: cols("name"),
		From:    &queryir.Table{Name: "users"},
		Where:   &queryir.Like{X: id("name"), Pattern: lit("%x%"), ILike: true},
	}}
}

func TestRender_ILikeDegradesUnderLenient(t *testing.T) {
	assert.Equal(t, "SELECT name FROM users WHERE name ILIKE '%x%'", render(t, ilike(), smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT name FROM users WHERE name LIKE '%x%'", render(t, ilike(), smart(dialect.MySQL)).SQL)
	assert.Equal(t, "SELECT name FROM users WHERE name LIKE '%x%'", render(t, ilike(), smart(dialect.SQLite)).SQL)
}

func TestRender_StrictRejectsBeforeEmitting(t *testing.T) {
	cfg := smart(dialect.MySQL)
	cfg.Policy = dialect.Strict

	res, err := Render(ilike(), cfg)
	assert.Nil(t, res)
	var ufe *queryir.UnsupportedFeatureError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "ILIKE", ufe.Feature)
	assert.Equal(t, dialect.MySQL, ufe.Dialect)
}

func TestRender_NilStatement(t *testing.T) {
	_, err := Render(nil, DefaultConfig(dialect.Postgres))
	assert.Error(t, err)
}

func limited(limit, offset queryir.Expr) *queryir.Query {
	return &queryir.Query{Body: from("t", "id"), Limit: limit, Offset: offset}
}

func TestRender_MySQLLimitStyles(t *testing.T) {
	q := limited(lit(10), lit(20))

	cfg := smart(dialect.MySQL)
	assert.Equal(t, "SELECT id FROM t LIMIT 10 OFFSET 20", render(t, q, cfg).SQL)

	cfg.MySQLLimit = dialect.OffsetCommaLimit
	assert.Equal(t, "SELECT id FROM t LIMIT 20, 10", render(t, q, cfg).SQL)
	assert.Equal(t, "SELECT id FROM t LIMIT 10", render(t, limited(lit(10), nil), cfg).SQL)
}

func TestRender_OffsetOnly(t *testing.T) {
	q := limited(nil, lit(5))

	assert.Equal(t, "SELECT id FROM t OFFSET 5", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT id FROM t LIMIT -1 OFFSET 5", render(t, q, smart(dialect.SQLite)).SQL)

	db := testutil.SQLite(t, "CREATE TABLE t (id INTEGER)", "INSERT INTO t VALUES (1), (2), (3), (4), (5), (6), (7)")
	rows, err := db.Query(render(t, q, smart(dialect.SQLite)).SQL)
	require.NoError(t, err)
	defer rows.Close()
	var got []int
	for rows.Next() {
		var n int
		require.NoError(t, rows.Scan(&n))
		got = append(got, n)
	}
	require.NoError(t, rows.Err())
	assert.Len(t, got, 2)
	assert.Equal(t, "SELECT id FROM t LIMIT 18446744073709551615 OFFSET 5", render(t, q, smart(dialect.MySQL)).SQL)

	cfg := smart(dialect.MySQL)
	cfg.MySQLLimit = dialect.OffsetCommaLimit
	assert.Equal(t, "SELECT id FROM t LIMIT 5, 18446744073709551615", render(t, q, cfg).SQL)
}

func TestRender_CommaLimitKeepsParamAlignment(t *testing.T) {
	cfg := smart(dialect.MySQL)
	cfg.MySQLLimit = dialect.OffsetCommaLimit
	res := render(t, limited(param(10), param(20)), cfg)

	assert.Equal(t, "SELECT id FROM t LIMIT ?, ?", res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(20), ir.Int(10)}, res.Params)
}

func TestRender_DistinctOn(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		DistinctOn: []queryir.Expr{id("a")},
		Columns:    cols("a", "b"),
		From:       &queryir.Table{Name: "t"},
	}}
	assert.Equal(t, "SELECT DISTINCT ON (a) a, b FROM t", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT DISTINCT a, b FROM t", render(t, q, smart(dialect.MySQL)).SQL)
}

func TestRender_NullsOrdering(t *testing.T) {
	q := &queryir.Query{
		Body:    from("t", "a"),
		OrderBy: []queryir.OrderItem{{Expr: id("a"), Desc: true, Nulls: queryir.NullsLast}},
	}
	assert.Equal(t, "SELECT a FROM t ORDER BY a DESC NULLS LAST", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT a FROM t ORDER BY a DESC", render(t, q, smart(dialect.SQLite)).SQL)

	cfg := smart(dialect.MySQL)
	cfg.EmulateNullsOrdering = true
	assert.Equal(t, "SELECT a FROM t ORDER BY (a IS NULL) ASC, a DESC", render(t, q, cfg).SQL)

	q.OrderBy[0] = queryir.OrderItem{Expr: bin(id("a"), "+", param(1)), Nulls: queryir.NullsFirst}
	res := render(t, q, cfg)
	assert.Equal(t, "SELECT a FROM t ORDER BY (a + ? IS NULL) DESC, a + ?", res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.Int(1)}, res.Params, "a duplicated term duplicates its values")
}

func TestRender_GroupByModifiers(t *testing.T) {
	grouped := func(g *queryir.GroupBy) *queryir.Query {
		return &queryir.Query{Body: &queryir.Select{
			Columns: []queryir.SelectItem{
				{Expr: id("a")}, {Expr: id("b")},
				{Expr: &queryir.Func{Name: "count", Args: []queryir.Expr{&queryir.Star{}}}},
			},
			From:    &queryir.Table{Name: "t"},
			GroupBy: g,
		}}
	}
	rollup := grouped(&queryir.GroupBy{Kind: queryir.GroupRollup, Exprs: []queryir.Expr{id("a"), id("b")}})
	cube := grouped(&queryir.GroupBy{Kind: queryir.GroupCube, Exprs: []queryir.Expr{id("a"), id("b")}})
	sets := grouped(&queryir.GroupBy{Kind: queryir.GroupingSets, Sets: [][]queryir.Expr{{id("a")}, {id("a"), id("b")}, {}}})
	totals := grouped(&queryir.GroupBy{Kind: queryir.GroupTotals, Exprs: []queryir.Expr{id("a"), id("b")}})

	const head = "SELECT a, b, count(*) FROM t"
	tests := []struct {
		name    string
		query   *queryir.Query
		dialect dialect.Dialect
		want    string
	}{
		{"rollup postgres", rollup, dialect.Postgres, head + " GROUP BY ROLLUP (a, b)"},
		{"rollup mysql", rollup, dialect.MySQL, head + " GROUP BY a, b WITH ROLLUP"},
		{"rollup sqlite", rollup, dialect.SQLite, head + " GROUP BY a, b"},
		{"cube postgres", cube, dialect.Postgres, head + " GROUP BY CUBE (a, b)"},
		{"cube mysql", cube, dialect.MySQL, head + " GROUP BY a, b"},
		{"sets postgres", sets, dialect.Postgres, head + " GROUP BY GROUPING SETS ((a), (a, b), ())"},
		{"sets mysql", sets, dialect.MySQL, head + " GROUP BY a, b"},
		{"sets sqlite", sets, dialect.SQLite, head + " GROUP BY a, b"},
		{"totals postgres", totals, dialect.Postgres, head + " GROUP BY a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.query, smart(tt.dialect)).SQL)
		})
	}
}

func TestRender_GroupByPlainPrefix(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: cols("r"),
		From:    &queryir.Table{Name: "t"},
		GroupBy: &queryir.GroupBy{Kind: queryir.GroupRollup, Plain: []queryir.Expr{id("r")}, Exprs: []queryir.Expr{id("a")}},
	}}
	assert.Equal(t, "SELECT r FROM t GROUP BY r, ROLLUP (a)", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT r FROM t GROUP BY r, a WITH ROLLUP", render(t, q, smart(dialect.MySQL)).SQL)
}

func upsert(doUpdate bool) *queryir.Insert {
	ins := &queryir.Insert{
		Table:     &queryir.Table{Name: "users"},
		Columns:   []string{"id", "name"},
		Rows:      [][]queryir.Expr{{param(1), param("ann")}},
		Returning: cols("id"),
	}
	ins.OnConflict = &queryir.OnConflict{Target: []string{"id"}, DoUpdate: doUpdate}
	if doUpdate {
		ins.OnConflict.Set = []queryir.Assignment{{Column: "name", FromInserted: true}}
	}
	return ins
}

func TestRender_UpsertDoUpdate(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name RETURNING id",
		render(t, upsert(true), smart(dialect.Postgres)).SQL)
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name RETURNING id",
		render(t, upsert(true), smart(dialect.SQLite)).SQL)
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES (?, ?) AS new ON DUPLICATE KEY UPDATE name = new.name",
		render(t, upsert(true), smart(dialect.MySQL)).SQL)
}

func TestRender_UpsertDoNothing(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING RETURNING id",
		render(t, upsert(false), smart(dialect.Postgres)).SQL)
	assert.Equal(t,
		"INSERT OR IGNORE INTO users (id, name) VALUES (?, ?) RETURNING id",
		render(t, upsert(false), smart(dialect.SQLite)).SQL)
	assert.Equal(t,
		"INSERT IGNORE INTO users (id, name) VALUES (?, ?)",
		render(t, upsert(false), smart(dialect.MySQL)).SQL)
}

func TestRender_UpsertPredicate(t *testing.T) {
	ins := upsert(true)
	ins.Returning = nil
	ins.OnConflict.Where = bin(id("users", "version"), "<", param(3))

	res := render(t, ins, smart(dialect.Postgres))
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name WHERE users.version < $3",
		res.SQL)
	assert.Len(t, res.Params, 3)

	res = render(t, ins, smart(dialect.MySQL))
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES (?, ?) AS new ON DUPLICATE KEY UPDATE name = IF(users.version < ?, new.name, name)",
		res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.String("ann"), ir.Int(3)}, res.Params)
}

func TestRender_UpsertConstraintAndSelectSource(t *testing.T) {
	ins := &queryir.Insert{
		Table:   &queryir.Table{Name: "t"},
		Columns: []string{"a"},
		Query:   &queryir.Query{Body: from("s", "a")},
		OnConflict: &queryir.OnConflict{
			Constraint: "t_pkey",
			DoUpdate:   true,
			Set:        []queryir.Assignment{{Column: "a", FromInserted: true}},
		},
	}
	assert.Equal(t,
		"INSERT INTO t (a) SELECT a FROM s ON CONFLICT ON CONSTRAINT t_pkey DO UPDATE SET a = EXCLUDED.a",
		render(t, ins, smart(dialect.Postgres)).SQL)
	assert.Equal(t,
		"INSERT INTO t (a) SELECT a FROM s ON DUPLICATE KEY UPDATE a = VALUES(a)",
		render(t, ins, smart(dialect.MySQL)).SQL)
}

func TestRender_UpsertSelectSourceRunsOnSQLite(t *testing.T) {
	upsertFrom := func(body queryir.Body) *queryir.Insert {
		return &queryir.Insert{
			Table:   &queryir.Table{Name: "t"},
			Columns: []string{"a", "b"},
			Query:   &queryir.Query{Body: body},
			OnConflict: &queryir.OnConflict{
				Target:   []string{"a"},
				DoUpdate: true,
				Set:      []queryir.Assignment{{Column: "b", FromInserted: true}},
			},
		}
	}
	tests := []struct {
		name string
		ins  *queryir.Insert
		sql  string
	}{
		{
			"select",
			upsertFrom(from("s", "a", "b")),
			"INSERT INTO t (a, b) SELECT a, b FROM s WHERE TRUE ON CONFLICT (a) DO UPDATE SET b = excluded.b",
		},
		{
			"set operation",
			upsertFrom(&queryir.SetOp{Op: queryir.Union, All: true, Left: from("s", "a", "b"), Right: from("u", "a", "b")}),
			"INSERT INTO t (a, b) SELECT * FROM (SELECT a, b FROM s UNION ALL SELECT a, b FROM u) AS src WHERE TRUE ON CONFLICT (a) DO UPDATE SET b = excluded.b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, tt.ins, smart(dialect.SQLite))
			require.Equal(t, tt.sql, res.SQL)

			db := testutil.SQLite(t,
				"CREATE TABLE t (a INTEGER PRIMARY KEY, b TEXT)",
				"CREATE TABLE s (a INTEGER, b TEXT)",
				"CREATE TABLE u (a INTEGER, b TEXT)",
				"INSERT INTO t VALUES (1, 'old')",
				"INSERT INTO s VALUES (1, 'new'), (2, 'two')",
				"INSERT INTO u VALUES (3, 'three')",
			)
			_, err := db.Exec(res.SQL, res.Args()...)
			require.NoError(t, err)

			var n int
			require.NoError(t, db.QueryRow("SELECT count(*) FROM t").Scan(&n))
			var b string
			require.NoError(t, db.QueryRow("SELECT b FROM t WHERE a = 1").Scan(&b))
			assert.Equal(t, "new", b)
			if tt.name == "select" {
				assert.Equal(t, 2, n)
			} else {
				assert.Equal(t, 3, n)
			}
		})
	}

	filtered := upsertFrom(&queryir.Select{
		Columns: cols("a", "b"),
		From:    &queryir.Table{Name: "s"},
		Where:   bin(id("a"), ">", param(0)),
	})
	assert.Equal(t,
		"INSERT INTO t (a, b) SELECT a, b FROM s WHERE a > ? ON CONFLICT (a) DO UPDATE SET b = excluded.b",
		render(t, filtered, smart(dialect.SQLite)).SQL)
	assert.Equal(t,
		"INSERT INTO t (a, b) SELECT a, b FROM s ON CONFLICT (a) DO UPDATE SET b = EXCLUDED.b",
		render(t, upsertFrom(from("s", "a", "b")), smart(dialect.Postgres)).SQL)
}

func TestRender_MySQLUpsertPredicateSeesOldRow(t *testing.T) {
	versioned := func(where queryir.Expr) *queryir.Insert {
		ins := upsert(true)
		ins.Returning = nil
		ins.Columns = []string{"id", "name", "version"}
		ins.Rows = [][]queryir.Expr{{param(1), param("ann"), param(2)}}
		ins.OnConflict.Set = []queryir.Assignment{
			{Column: "version", FromInserted: true},
			{Column: "name", FromInserted: true},
		}
		ins.OnConflict.Where = where
		return ins
	}

	res := render(t, versioned(bin(id("users", "version"), "<", param(3))), smart(dialect.MySQL))
	assert.Equal(t,
		"INSERT INTO users (id, name, version) VALUES (?, ?, ?) AS new ON DUPLICATE KEY UPDATE "+
			"name = IF(users.version < ?, new.name, name), version = IF(users.version < ?, new.version, version)",
		res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.String("ann"), ir.Int(2), ir.Int(3), ir.Int(3)}, res.Params)

	both := bin(bin(id("users", "version"), "<", param(3)), "AND", bin(id("name"), "<>", lit("bob")))
	res = render(t, versioned(both), smart(dialect.MySQL))
	assert.Equal(t,
		"INSERT INTO users (id, name, version) VALUES (?, ?, ?) AS new ON DUPLICATE KEY UPDATE "+
			"version = IF((@sqlopt_upsert := users.version < ? AND name <> 'bob'), new.version, version), "+
			"name = IF(@sqlopt_upsert, new.name, name)",
		res.SQL)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.String("ann"), ir.Int(2), ir.Int(3)}, res.Params)

	// Postgres evaluates the predicate once against the existing row.
	assert.Equal(t,
		"INSERT INTO users (id, name, version) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE "+
			"SET version = EXCLUDED.version, name = EXCLUDED.name WHERE users.version < $4 AND name <> 'bob'",
		render(t, versioned(both), smart(dialect.Postgres)).SQL)
}

func TestRender_InsertAliasOnMySQL(t *testing.T) {
	ins := upsert(true)
	ins.Returning = nil
	ins.Table.Alias = "u"
	ins.OnConflict.Where = bin(id("u", "version"), "<", param(3))

	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES (?, ?) AS new ON DUPLICATE KEY UPDATE name = IF(users.version < ?, new.name, name)",
		render(t, ins, smart(dialect.MySQL)).SQL)
	assert.Equal(t,
		"INSERT INTO users AS u (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name WHERE u.version < $3",
		render(t, ins, smart(dialect.Postgres)).SQL)

	ins.OnConflict.Where = nil
	assert.Equal(t,
		"INSERT INTO users (id, name) VALUES (?, ?) AS new ON DUPLICATE KEY UPDATE name = new.name",
		render(t, ins, smart(dialect.MySQL)).SQL)
}

func TestRender_DefaultValues(t *testing.T) {
	ins := &queryir.Insert{Table: &queryir.Table{Name: "t"}, DefaultValues: true}
	assert.Equal(t, "INSERT INTO t DEFAULT VALUES", render(t, ins, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "INSERT INTO t VALUES ()", render(t, ins, smart(dialect.MySQL)).SQL)
}

func TestRender_ReturningOmittedOnMySQL(t *testing.T) {
	del := &queryir.Delete{
		Table:     &queryir.Table{Name: "t"},
		Where:     bin(id("id"), "=", param(1)),
		Returning: cols("id"),
	}
	assert.Equal(t, "DELETE FROM t WHERE id = $1 RETURNING id", render(t, del, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "DELETE FROM t WHERE id = ? RETURNING id", render(t, del, smart(dialect.SQLite)).SQL)
	assert.Equal(t, "DELETE FROM t WHERE id = ?", render(t, del, smart(dialect.MySQL)).SQL)

	upd := &queryir.Update{
		Table:     &queryir.Table{Name: "t"},
		Set:       []queryir.Assignment{{Column: "a", Value: param(1)}},
		Returning: cols("a"),
	}
	assert.Equal(t, "UPDATE t SET a = ?", render(t, upd, smart(dialect.MySQL)).SQL)
	assert.Equal(t, "UPDATE t SET a = $1 RETURNING a", render(t, upd, smart(dialect.Postgres)).SQL)
}

func TestRender_DeleteUsing(t *testing.T) {
	del := &queryir.Delete{
		Table: &queryir.Table{Name: "t"},
		Using: []queryir.TableSource{&queryir.Table{Name: "u"}},
		Where: bin(id("t", "id"), "=", id("u", "id")),
	}
	assert.Equal(t, "DELETE FROM t USING u WHERE t.id = u.id", render(t, del, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "DELETE FROM t USING t, u WHERE t.id = u.id", render(t, del, smart(dialect.MySQL)).SQL)
	assert.Equal(t, "DELETE FROM t WHERE rowid IN (SELECT t.rowid FROM t, u WHERE t.id = u.id)", render(t, del, smart(dialect.SQLite)).SQL)
}

func TestRender_UpdateFrom(t *testing.T) {
	upd := &queryir.Update{
		Table: &queryir.Table{Name: "t"},
		Set:   []queryir.Assignment{{Column: "a", Value: param(1)}, {Column: "b", FromInserted: true}},
		From:  &queryir.Table{Name: "f"},
		Where: bin(id("t", "id"), "=", id("f", "id")),
	}
	assert.Equal(t, "UPDATE t SET a = $1, b = f.b FROM f WHERE t.id = f.id", render(t, upd, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "UPDATE t SET a = ?, b = f.b FROM f WHERE t.id = f.id", render(t, upd, smart(dialect.SQLite)).SQL)
	assert.Equal(t, "UPDATE t, f SET a = ?, b = f.b WHERE t.id = f.id", render(t, upd, smart(dialect.MySQL)).SQL)
}

func TestRender_AliasKeywordToggles(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: []queryir.SelectItem{{Expr: id("a"), Alias: "x"}},
		From:    &queryir.Table{Name: "users", Alias: "u"},
	}}
	cfg := smart(dialect.Postgres)
	cfg.TableAliasAS = false
	assert.Equal(t, "SELECT a AS x FROM users u", render(t, q, cfg).SQL)

	cfg.TableAliasAS = true
	cfg.ColumnAliasAS = false
	assert.Equal(t, "SELECT a x FROM users AS u", render(t, q, cfg).SQL)
}

func TestRender_CaseFold(t *testing.T) {
	q := &queryir.Query{Body: from("Users", "Name")}

	cfg := smart(dialect.Postgres)
	cfg.CaseFold = dialect.FoldUpper
	assert.Equal(t, "SELECT NAME FROM USERS", render(t, q, cfg).SQL)

	cfg = DefaultConfig(dialect.Postgres)
	cfg.CaseFold = dialect.FoldLower
	assert.Equal(t, `SELECT "name" FROM "users"`, render(t, q, cfg).SQL)
}

func TestRender_SetOperations(t *testing.T) {
	limitedLeft := &queryir.Select{
		Columns: cols("a"),
		From:    &queryir.Table{Name: "t"},
		OrderBy: []queryir.OrderItem{{Expr: id("a")}},
		Limit:   lit(1),
	}
	q := &queryir.Query{Body: &queryir.SetOp{Op: queryir.Union, All: true, Left: limitedLeft, Right: from("u", "a")}}
	assert.Equal(t, "(SELECT a FROM t ORDER BY a LIMIT 1) UNION ALL SELECT a FROM u", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT * FROM (SELECT a FROM t ORDER BY a LIMIT 1) UNION ALL SELECT a FROM u", render(t, q, smart(dialect.SQLite)).SQL)

	right := &queryir.Query{Body: &queryir.SetOp{
		Op:    queryir.Union,
		Left:  from("t", "a"),
		Right: &queryir.SetOp{Op: queryir.Intersect, Left: from("u", "a"), Right: from("v", "a")},
	}}
	assert.Equal(t, "SELECT a FROM t UNION (SELECT a FROM u INTERSECT SELECT a FROM v)", render(t, right, smart(dialect.MySQL)).SQL)

	left := &queryir.Query{Body: &queryir.SetOp{
		Op:    queryir.Intersect,
		Left:  &queryir.SetOp{Op: queryir.Union, Left: from("t", "a"), Right: from("u", "a")},
		Right: from("v", "a"),
	}}
	assert.Equal(t, "(SELECT a FROM t UNION SELECT a FROM u) INTERSECT SELECT a FROM v", render(t, left, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "SELECT a FROM t UNION SELECT a FROM u INTERSECT SELECT a FROM v", render(t, left, smart(dialect.SQLite)).SQL)

	chain := &queryir.Query{Body: &queryir.SetOp{
		Op:    queryir.Except,
		Left:  &queryir.SetOp{Op: queryir.Union, Left: from("t", "a"), Right: from("u", "a")},
		Right: from("v", "a"),
	}}
	assert.Equal(t, "SELECT a FROM t UNION SELECT a FROM u EXCEPT SELECT a FROM v", render(t, chain, smart(dialect.Postgres)).SQL)
}

func TestRender_CTE(t *testing.T) {
	q := &queryir.Query{
		With: &queryir.With{CTEs: []queryir.CTE{{
			Name:         "c",
			Columns:      []string{"x"},
			Materialized: queryir.Materialized,
			Query:        &queryir.Query{Body: &queryir.Select{Columns: []queryir.SelectItem{{Expr: lit(1)}}}},
		}}},
		Body: &queryir.Select{From: &queryir.Table{Name: "c"}},
	}
	assert.Equal(t, "WITH c (x) AS MATERIALIZED (SELECT 1) SELECT * FROM c", render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, "WITH c (x) AS (SELECT 1) SELECT * FROM c", render(t, q, smart(dialect.SQLite)).SQL)

	q.With.Recursive = true
	assert.Equal(t, "WITH RECURSIVE c (x) AS (SELECT 1) SELECT * FROM c", render(t, q, smart(dialect.MySQL)).SQL)
}

func TestRender_Precedence(t *testing.T) {
	tests := []struct {
		name string
		expr queryir.Expr
		want string
	}{
		{"or under and", bin(bin(bin(id("a"), "=", lit(1)), "OR", bin(id("b"), "=", lit(2))), "AND", bin(id("c"), "=", lit(3))),
			"(a = 1 OR b = 2) AND c = 3"},
		{"and chain", bin(bin(id("a"), "AND", id("b")), "AND", id("c")), "a AND b AND c"},
		{"right and chain", bin(id("a"), "AND", bin(id("b"), "AND", id("c"))), "a AND b AND c"},
		{"add under mul", bin(bin(id("a"), "+", id("b")), "*", id("c")), "(a + b) * c"},
		{"right sub", bin(id("a"), "-", bin(id("b"), "-", id("c"))), "a - (b - c)"},
		{"not and", &queryir.Unary{Op: "NOT", X: bin(id("a"), "AND", id("b"))}, "NOT (a AND b)"},
		{"not compare", &queryir.Unary{Op: "NOT", X: bin(id("a"), "=", id("b"))}, "NOT a = b"},
		{"is null", bin(bin(id("a"), "+", lit(1)), "IS", lit(nil)), "a + 1 IS NULL"},
		{"is not null of compare", bin(bin(id("a"), "=", id("b")), "IS NOT", lit(nil)), "(a = b) IS NOT NULL"},
		{"negate negative", &queryir.Unary{Op: "-", X: lit(-5)}, "-(-5)"},
		{"between", &queryir.Between{X: id("a"), Lo: lit(1), Hi: lit(5), Not: true}, "a NOT BETWEEN 1 AND 5"},
		{"in list", &queryir.InList{X: id("a"), List: []queryir.Expr{lit(1), lit("x")}, Not: true}, "a NOT IN (1, 'x')"},
		{"case", &queryir.Case{Whens: []queryir.When{{Cond: bin(id("a"), ">", lit(0)), Result: lit("pos")}}, Else: lit("neg")},
			"CASE WHEN a > 0 THEN 'pos' ELSE 'neg' END"},
		{"cast", &queryir.Cast{X: id("a"), Type: "TEXT"}, "CAST(a AS TEXT)"},
		{"window", &queryir.Window{
			Func:        &queryir.Func{Name: "row_number"},
			PartitionBy: []queryir.Expr{id("g")},
			OrderBy:     []queryir.OrderItem{{Expr: id("v"), Desc: true}},
		}, "row_number() OVER (PARTITION BY g ORDER BY v DESC)"},
		{"distinct agg", &queryir.Func{Name: "count", Distinct: true, Args: []queryir.Expr{id("a")}}, "count(DISTINCT a)"},
		{"like escape", &queryir.Like{X: id("a"), Pattern: lit("x!%"), Escape: lit("!")}, "a LIKE 'x!%' ESCAPE '!'"},
		{"raw", &queryir.Raw{SQL: "now()"}, "now()"},
		{"bool", lit(true), "TRUE"},
		{"decimal", &queryir.Literal{Value: ir.MustDecimal("1.50")}, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queryir.Query{Body: &queryir.Select{Columns: []queryir.SelectItem{{Expr: tt.expr}}}}
			assert.Equal(t, "SELECT "+tt.want, render(t, q, smart(dialect.Postgres)).SQL)
		})
	}
}

func TestRender_StringEscaping(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{Columns: []queryir.SelectItem{{Expr: lit(`it's a \ test`)}}}}
	assert.Equal(t, `SELECT 'it''s a \ test'`, render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, `SELECT 'it''s a \\ test'`, render(t, q, smart(dialect.MySQL)).SQL)
}

func TestRender_BytesLiteral(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{Columns: []queryir.SelectItem{{Expr: &queryir.Literal{Value: ir.Bytes{0xde, 0xad}}}}}}
	assert.Equal(t, `SELECT '\xdead'::bytea`, render(t, q, smart(dialect.Postgres)).SQL)
	assert.Equal(t, `SELECT X'dead'`, render(t, q, smart(dialect.SQLite)).SQL)
}

func TestRender_ConcatOnMySQL(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{Columns: []queryir.SelectItem{{Expr: bin(id("a"), "||", lit("x"))}}}}
	assert.Equal(t, "SELECT a || 'x'", render(t, q, smart(dialect.SQLite)).SQL)
	assert.Equal(t, "SELECT CONCAT(a, 'x')", render(t, q, smart(dialect.MySQL)).SQL)
}

func TestRender_JoinsAndDerivedTables(t *testing.T) {
	q := &queryir.Query{Body: &queryir.Select{
		Columns: cols("a"),
		From:    &queryir.Table{Name: "t"},
		Joins: []queryir.Join{
			{Kind: queryir.LeftJoin, Table: &queryir.Table{Name: "u"}, On: bin(id("u", "id"), "=", id("t", "id"))},
			{Kind: queryir.InnerJoin, Table: &queryir.Table{Name: "v"}, Using: []string{"id"}},
			{Kind: queryir.CrossJoin, Table: &queryir.DerivedTable{Alias: "d", Lateral: true, Query: &queryir.Query{Body: from("w", "b")}}},
		},
	}}
	assert.Equal(t,
		"SELECT a FROM t LEFT JOIN u ON u.id = t.id JOIN v USING (id) CROSS JOIN LATERAL (SELECT b FROM w) AS d",
		render(t, q, smart(dialect.Postgres)).SQL)
}

var placeholderRE = regexp.MustCompile(`\$(\d+)`)

func TestRender_NumberedPlaceholdersFollowReadingOrder(t *testing.T) {
	q := &queryir.Query{
		With: &queryir.With{CTEs: []queryir.CTE{{Name: "c", Query: &queryir.Query{Body: &queryir.Select{
			Columns: cols("x"),
			From:    &queryir.Table{Name: "cx"},
			Where:   bin(id("x"), ">", param("p1")),
		}}}}},
		Body: &queryir.Select{
			Columns: []queryir.SelectItem{{Expr: bin(id("a"), "+", param("p2"))}},
			From:    &queryir.Table{Name: "c"},
			Where: &queryir.InSubquery{X: id("a"), Query: &queryir.Query{Body: &queryir.Select{
				Columns: cols("y"),
				From:    &queryir.Table{Name: "u"},
				Where:   bin(id("y"), "<", param("p3")),
			}}},
			Having: bin(&queryir.Func{Name: "count", Args: []queryir.Expr{&queryir.Star{}}}, ">", param("p4")),
		},
		Limit: param("p5"),
	}
	res := render(t, q, smart(dialect.Postgres))

	matches := placeholderRE.FindAllStringSubmatch(res.SQL, -1)
	require.Len(t, matches, len(res.Params))
	for i, m := range matches {
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
		assert.Equal(t, ir.String("p"+strconv.Itoa(i+1)), res.Params[i])
	}
}
