package optimize

import (
	"slices"
	"strings"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/walk"
)

// splitAnd returns the top-level conjuncts of e. Parenthesized conjunctions
// are split as well.
func splitAnd(e ast.Expr) []ast.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Binary:
		if strings.EqualFold(n.Op, "AND") {
			return append(splitAnd(n.L), splitAnd(n.R)...)
		}
	case *ast.Paren:
		if b, ok := n.X.(*ast.Binary); ok && strings.EqualFold(b.Op, "AND") {
			return splitAnd(b)
		}
	}
	return []ast.Expr{e}
}

// joinAnd rebuilds a left-deep conjunction. An empty list is nil.
func joinAnd(list []ast.Expr) ast.Expr {
	return ast.And(list...)
}

var aggregates = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"total": true, "group_concat": true, "string_agg": true, "array_agg": true,
	"json_agg": true, "jsonb_agg": true, "json_group_array": true,
	"json_group_object": true, "json_arrayagg": true, "json_objectagg": true,
	"bool_and": true, "bool_or": true, "every": true, "bit_and": true,
	"bit_or": true, "bit_xor": true, "stddev": true, "variance": true,
	"any_value": true,
}

// volatile functions may return a different value per evaluation, so the
// number of times they run must not change.
var volatile = map[string]bool{
	"random": true, "rand": true, "uuid": true, "gen_random_uuid": true,
	"uuid_generate_v4": true, "nextval": true, "setseed": true, "newid": true,
	"randomblob": true, "changes": true, "last_insert_rowid": true,
	"last_insert_id": true, "sleep": true, "pg_sleep": true,
}

func funcNamed(set map[string]bool) func(ast.Expr) bool {
	return func(e ast.Expr) bool {
		f, ok := e.(*ast.Func)
		return ok && set[strings.ToLower(f.Name)]
	}
}

func hasAggregate(e ast.Expr) bool { return walk.Any(e, funcNamed(aggregates)) }

func hasVolatile(e ast.Expr) bool { return walk.Any(e, funcNamed(volatile)) }

func hasWindow(e ast.Expr) bool {
	return walk.Any(e, func(x ast.Expr) bool {
		_, ok := x.(*ast.Window)
		return ok
	})
}

func hasSubquery(e ast.Expr) bool {
	return walk.Any(e, func(x ast.Expr) bool {
		switch x.(type) {
		case *ast.InSubquery, *ast.Exists, *ast.Subquery:
			return true
		}
		return false
	})
}

func hasRaw(e ast.Expr) bool {
	return walk.Any(e, func(x ast.Expr) bool {
		_, ok := x.(*ast.Raw)
		return ok
	})
}

func hasStar(e ast.Expr) bool {
	return walk.Any(e, func(x ast.Expr) bool {
		_, ok := x.(*ast.Star)
		return ok
	})
}

func itemsHave(items []ast.SelectItem, pred func(ast.Expr) bool) bool {
	for _, it := range items {
		if pred(it.Expr) {
			return true
		}
	}
	return false
}

// itemName is the column name a projection item exposes to its parent, or
// "" when it has none.
func itemName(it ast.SelectItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	if id, ok := it.Expr.(*ast.Ident); ok {
		return id.Column()
	}
	return ""
}

// projected maps each exposed column name to its projection expression.
// Names projected more than once are left out.
func projected(items []ast.SelectItem) map[string]ast.Expr {
	out := make(map[string]ast.Expr, len(items))
	dup := make(map[string]bool)
	for _, it := range items {
		name := itemName(it)
		if name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			dup[name] = true
		}
		out[name] = it.Expr
	}
	for name := range dup {
		delete(out, name)
	}
	return out
}

// rowBounded reports whether q or its SELECT body restricts which rows
// survive.
func rowBounded(q *ast.Query) bool {
	if q.Limit.HasRowBound() {
		return true
	}
	if s, ok := q.Body.(*ast.Select); ok && s.Limit.HasRowBound() {
		return true
	}
	return false
}

// levelExprs lists every expression a SELECT evaluates at its own level,
// together with the clauses of the query wrapping it.
func levelExprs(q *ast.Query, s *ast.Select) []ast.Expr {
	var out []ast.Expr
	out = append(out, s.DistinctOn...)
	for _, it := range s.Projection {
		out = append(out, it.Expr)
	}
	for _, j := range s.Joins {
		out = append(out, j.On)
	}
	out = append(out, s.Where)
	if s.GroupBy != nil {
		out = append(out, s.GroupBy.Exprs...)
	}
	out = append(out, s.Having)
	for _, o := range s.OrderBy {
		out = append(out, o.Expr)
	}
	for _, o := range q.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}

func anyUnqualified(exprs []ast.Expr) bool {
	for _, e := range exprs {
		for _, id := range walk.Idents(e) {
			if len(id.Parts) < 2 {
				return true
			}
		}
	}
	return false
}

// plainJoins reports whether no join resolves columns by name.
func plainJoins(joins []*ast.Join) bool {
	for _, j := range joins {
		if len(j.Using) > 0 {
			return false
		}
		switch j.Kind {
		case ast.NaturalJoin, ast.NaturalLeftJoin, ast.NaturalRightJoin, ast.NaturalFullJoin:
			return false
		}
	}
	return true
}

// nullsLeft reports whether any join may null-extend the rows to its left.
func nullsLeft(joins []*ast.Join) bool {
	for _, j := range joins {
		if j.Kind.NullsLeft() {
			return true
		}
	}
	return false
}

// derivedSlot is a derived table in FROM or JOIN position together with a
// way to replace it.
type derivedSlot struct {
	d       *ast.Derived
	join    *ast.Join // nil for FROM
	replace func(ast.TableFactor)
}

func derivedSlots(s *ast.Select) []derivedSlot {
	var out []derivedSlot
	if d, ok := s.From.(*ast.Derived); ok {
		out = append(out, derivedSlot{d: d, replace: func(t ast.TableFactor) { s.From = t }})
	}
	for _, j := range s.Joins {
		if d, ok := j.Table.(*ast.Derived); ok {
			out = append(out, derivedSlot{d: d, join: j, replace: func(t ast.TableFactor) { j.Table = t }})
		}
	}
	return out
}

// innerColumns reports whether every column reference in exprs belongs to
// the single table exposed as name: unqualified, or qualified with name.
func innerColumns(name string, exprs ...ast.Expr) bool {
	for _, e := range exprs {
		for _, id := range walk.Idents(e) {
			switch len(id.Parts) {
			case 1:
			case 2:
				if id.Parts[0] != name {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// subqueryIdents returns the column references inside the subqueries of
// e, at any depth.
func subqueryIdents(e ast.Expr) []*ast.Ident {
	var out []*ast.Ident
	collect := walk.Visitor{Expr: func(x ast.Expr) ast.Expr {
		if id, ok := x.(*ast.Ident); ok {
			out = append(out, id)
		}
		return x
	}}
	walk.Inspect(e, func(x ast.Expr) bool {
		switch n := x.(type) {
		case *ast.InSubquery:
			walk.Query(n.Query, collect)
		case *ast.Exists:
			walk.Query(n.Query, collect)
		case *ast.Subquery:
			walk.Query(n.Query, collect)
		}
		return true
	})
	return out
}

// inlineSafe reports whether replacing the derived table alias, whose
// columns are cols, by its base table leaves every column reference of the
// level bound where it was.
//
// A bare name that is not a column of the derived table resolves past it
// today but could hit a column of the base table once it is inlined, so
// every bare name at the level must be in cols. Bare ORDER BY items naming
// an output column are exempt. Bare names inside subqueries are never
// requalified, so they must name a column the derived table passes through
// unrenamed. References qualified with alias must name one of cols.
func inlineSafe(q *ast.Query, s *ast.Select, alias string, cols map[string]ast.Expr) bool {
	outputs := make(map[string]bool)
	for _, it := range s.Projection {
		if it.Alias != "" {
			outputs[it.Alias] = true
		}
	}
	var exprs []ast.Expr
	exprs = append(exprs, s.DistinctOn...)
	for _, it := range s.Projection {
		exprs = append(exprs, it.Expr)
	}
	for _, j := range s.Joins {
		exprs = append(exprs, j.On)
	}
	exprs = append(exprs, s.Where, s.Having)
	if s.GroupBy != nil {
		exprs = append(exprs, s.GroupBy.Exprs...)
	}
	// Dialects disagree on whether a bare GROUP BY or HAVING name means
	// the output alias or the input column.
	grouping := []ast.Expr{s.Having}
	if s.GroupBy != nil {
		grouping = append(grouping, s.GroupBy.Exprs...)
	}
	for _, e := range grouping {
		for _, id := range walk.Idents(e) {
			if len(id.Parts) == 1 && outputs[id.Parts[0]] {
				return false
			}
		}
	}
	for _, o := range append(slices.Clone(s.OrderBy), q.OrderBy...) {
		if id, ok := o.Expr.(*ast.Ident); ok && len(id.Parts) == 1 && outputs[id.Parts[0]] {
			continue
		}
		exprs = append(exprs, o.Expr)
	}

	for _, e := range exprs {
		for _, id := range walk.Idents(e) {
			if !boundTo(id, alias, cols, false) {
				return false
			}
		}
		for _, id := range subqueryIdents(e) {
			if !boundTo(id, alias, cols, true) {
				return false
			}
		}
	}
	return true
}

func boundTo(id *ast.Ident, alias string, cols map[string]ast.Expr, nested bool) bool {
	switch {
	case len(id.Parts) == 1:
		e, ok := cols[id.Parts[0]]
		if !ok || !nested {
			return ok
		}
		col, plain := e.(*ast.Ident)
		return plain && col.Column() == id.Parts[0]
	case len(id.Parts) == 2 && id.Parts[0] == alias:
		_, ok := cols[id.Parts[1]]
		return ok
	}
	return true
}

// requalify points every column reference of e at alias. e must satisfy
// innerColumns.
func requalify(e ast.Expr, alias string) {
	for _, id := range walk.Idents(e) {
		id.Parts = []string{alias, id.Column()}
	}
}

// declares reports whether any query nested in exprs exposes a table under
// name, which would shadow an outer reference to it.
func declares(name string, exprs []ast.Expr) bool {
	found := false
	check := func(t ast.TableFactor) {
		switch n := t.(type) {
		case *ast.TableRef:
			found = found || n.Exposed() == name
		case *ast.Derived:
			found = found || n.Alias == name
		}
	}
	v := walk.Visitor{Query: func(q *ast.Query, top bool) {
		if q.With != nil {
			for _, cte := range q.With.CTEs {
				found = found || cte.Name == name
			}
		}
		for _, s := range walk.Selects(q) {
			check(s.From)
			for _, j := range s.Joins {
				check(j.Table)
			}
		}
	}}
	for _, e := range exprs {
		walk.Expr(e, v)
	}
	return found
}

// forEachSelectQuery calls fn for every query in stmt whose body is a
// single SELECT, innermost first.
func forEachSelectQuery(stmt ast.Statement, fn func(q *ast.Query, s *ast.Select)) {
	walk.Statement(stmt, walk.Visitor{
		Order: walk.PostOrder,
		Query: func(q *ast.Query, top bool) {
			if s, ok := q.Body.(*ast.Select); ok {
				fn(q, s)
			}
		},
	})
}
