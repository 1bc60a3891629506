// Package mapper projects the relational AST into the queryir render tree.
//
// Map is total: every construct the AST can hold maps to something the
// renderer can print. The result shares no nodes with its input, and every
// placeholder and literal of the input appears exactly once in the output,
// in the same relative order.
package mapper

import (
	"strconv"
	"strings"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/queryir"
	"github.com/roach88/sqlopt/internal/walk"
)

// Map converts stmt into a render tree. A nil or unknown statement maps to
// nil.
func Map(stmt ast.Statement) queryir.Statement {
	switch s := stmt.(type) {
	case *ast.Query:
		return Query(s)
	case *ast.Insert:
		return mapInsert(s)
	case *ast.Update:
		return mapUpdate(s)
	case *ast.Delete:
		return mapDelete(s)
	default:
		return nil
	}
}

// Query maps one query.
func Query(q *ast.Query) *queryir.Query {
	if q == nil {
		return nil
	}
	out := &queryir.Query{
		Body:    mapBody(q.Body),
		OrderBy: mapOrder(q.OrderBy),
	}
	out.Limit, out.Offset = mapLimit(q.Limit)
	if q.With != nil {
		out.With = &queryir.With{Recursive: q.With.Recursive}
		for _, cte := range q.With.CTEs {
			out.With.CTEs = append(out.With.CTEs, queryir.CTE{
				Name:         cte.Name,
				Columns:      append([]string(nil), cte.Columns...),
				Materialized: queryir.Materialization(cte.Materialized),
				Query:        Query(cte.Query),
			})
		}
	}
	return out
}

func mapBody(b ast.SetExpr) queryir.Body {
	switch n := b.(type) {
	case *ast.Select:
		return mapSelect(n)
	case *ast.SetOp:
		return &queryir.SetOp{
			Op:     queryir.SetOpKind(n.Op),
			All:    n.All,
			ByName: n.ByName,
			Left:   mapBody(n.Left),
			Right:  mapBody(n.Right),
		}
	default:
		return &queryir.Select{}
	}
}

func mapSelect(s *ast.Select) *queryir.Select {
	out := &queryir.Select{
		Distinct:   s.Distinct,
		DistinctOn: mapExprs(s.DistinctOn),
		Columns:    mapItems(s.Projection),
		From:       mapSource(s.From),
		Joins:      mapJoins(s.Joins),
		Where:      Expr(s.Where),
		GroupBy:    mapGroupBy(s.GroupBy),
		Having:     Expr(s.Having),
		OrderBy:    mapOrder(s.OrderBy),
	}
	out.Limit, out.Offset = mapLimit(s.Limit)
	return out
}

func mapItems(items []ast.SelectItem) []queryir.SelectItem {
	if items == nil {
		return nil
	}
	out := make([]queryir.SelectItem, len(items))
	for i, it := range items {
		out[i] = queryir.SelectItem{Expr: Expr(it.Expr), Alias: it.Alias}
	}
	return out
}

func mapTable(t *ast.TableRef) *queryir.Table {
	if t == nil {
		return nil
	}
	return &queryir.Table{Schema: t.Schema, Name: t.Name, Alias: t.Alias}
}

func mapSource(t ast.TableFactor) queryir.TableSource {
	switch n := t.(type) {
	case *ast.TableRef:
		return mapTable(n)
	case *ast.Derived:
		return &queryir.DerivedTable{Query: Query(n.Query), Alias: n.Alias, Lateral: n.Lateral}
	default:
		return nil
	}
}

func mapJoins(joins []*ast.Join) []queryir.Join {
	if joins == nil {
		return nil
	}
	out := make([]queryir.Join, len(joins))
	for i, j := range joins {
		out[i] = queryir.Join{
			Kind:  queryir.JoinKind(j.Kind),
			Table: mapSource(j.Table),
			On:    Expr(j.On),
			Using: append([]string(nil), j.Using...),
		}
	}
	return out
}

func mapOrder(items []ast.OrderItem) []queryir.OrderItem {
	if items == nil {
		return nil
	}
	out := make([]queryir.OrderItem, len(items))
	for i, it := range items {
		out[i] = queryir.OrderItem{
			Expr:  Expr(it.Expr),
			Desc:  it.Desc,
			Nulls: queryir.NullsOrder(it.Nulls),
		}
	}
	return out
}

// mapLimit resolves every written LIMIT form into two optional counts.
// LIMIT ALL means no count. Numeric text literals become integers.
func mapLimit(l *ast.Limit) (limit, offset queryir.Expr) {
	if l == nil {
		return nil, nil
	}
	if !l.All {
		limit = boundExpr(l.Count)
	}
	return limit, boundExpr(l.Offset)
}

func boundExpr(e ast.Expr) queryir.Expr {
	if lit, ok := e.(*ast.Literal); ok {
		if s, ok := lit.Value.(ir.String); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64); err == nil {
				return &queryir.Literal{Value: ir.Int(n)}
			}
		}
	}
	return Expr(e)
}

// mapGroupBy folds every GROUP BY spelling into one modifier tag.
//
// Trailing modifiers (WITH ROLLUP/CUBE/TOTALS) apply to the whole list.
// Otherwise the first ROLLUP(...), CUBE(...) or GROUPING SETS item sets the
// tag and plain items stay in Plain; any further modifier items degrade to
// their flattened members.
func mapGroupBy(g *ast.GroupBy) *queryir.GroupBy {
	if g == nil {
		return nil
	}
	switch g.Modifier {
	case ast.GroupWithRollup:
		return &queryir.GroupBy{Kind: queryir.GroupRollup, Exprs: flatItems(g.Exprs)}
	case ast.GroupWithCube:
		return &queryir.GroupBy{Kind: queryir.GroupCube, Exprs: flatItems(g.Exprs)}
	case ast.GroupWithTotals:
		return &queryir.GroupBy{Kind: queryir.GroupTotals, Exprs: flatItems(g.Exprs)}
	}

	out := &queryir.GroupBy{Kind: queryir.GroupPlain}
	for _, item := range g.Exprs {
		switch n := item.(type) {
		case *ast.Rollup:
			if out.Kind == queryir.GroupPlain {
				out.Kind = queryir.GroupRollup
				out.Exprs = mapExprs(n.Exprs)
				continue
			}
		case *ast.Cube:
			if out.Kind == queryir.GroupPlain {
				out.Kind = queryir.GroupCube
				out.Exprs = mapExprs(n.Exprs)
				continue
			}
		case *ast.GroupingSets:
			if out.Kind == queryir.GroupPlain {
				out.Kind = queryir.GroupingSets
				out.Sets = make([][]queryir.Expr, len(n.Sets))
				for i, set := range n.Sets {
					out.Sets[i] = mapExprs(set)
					if out.Sets[i] == nil {
						out.Sets[i] = []queryir.Expr{}
					}
				}
				continue
			}
		}
		out.Plain = append(out.Plain, flatItems([]ast.Expr{item})...)
	}
	return out
}

// flatItems maps grouping items, replacing modifier nodes by their members.
func flatItems(items []ast.Expr) []queryir.Expr {
	var out []queryir.Expr
	for _, item := range items {
		switch n := item.(type) {
		case *ast.Rollup:
			out = append(out, flatItems(n.Exprs)...)
		case *ast.Cube:
			out = append(out, flatItems(n.Exprs)...)
		case *ast.GroupingSets:
			for _, set := range n.Sets {
				out = append(out, flatItems(set)...)
			}
		default:
			out = append(out, Expr(item))
		}
	}
	return out
}

func mapExprs(list []ast.Expr) []queryir.Expr {
	if list == nil {
		return nil
	}
	out := make([]queryir.Expr, len(list))
	for i, e := range list {
		out[i] = Expr(e)
	}
	return out
}

func mapAssignments(set []ast.Assignment) []queryir.Assignment {
	if set == nil {
		return nil
	}
	out := make([]queryir.Assignment, len(set))
	for i, a := range set {
		out[i] = queryir.Assignment{Column: a.Column, FromInserted: a.FromInserted}
		if !a.FromInserted {
			out[i].Value = Expr(a.Value)
		}
	}
	return out
}

func mapInsert(s *ast.Insert) *queryir.Insert {
	out := &queryir.Insert{
		Table:         mapTable(s.Table),
		Columns:       append([]string(nil), s.Columns...),
		Query:         Query(s.Query),
		DefaultValues: s.DefaultValues,
		Returning:     mapItems(s.Returning),
	}
	for _, row := range s.Rows {
		out.Rows = append(out.Rows, mapExprs(row))
	}
	if oc := s.OnConflict; oc != nil {
		out.OnConflict = &queryir.OnConflict{
			Target:     append([]string(nil), oc.Target...),
			Constraint: oc.Constraint,
			DoUpdate:   oc.Action == ast.DoUpdate,
		}
		if out.OnConflict.DoUpdate {
			out.OnConflict.Set = mapAssignments(oc.Set)
			out.OnConflict.Where = Expr(oc.Where)
		}
	}
	return out
}

func mapUpdate(s *ast.Update) *queryir.Update {
	return &queryir.Update{
		Table:     mapTable(s.Table),
		Set:       mapAssignments(s.Set),
		From:      mapSource(s.From),
		Joins:     mapJoins(s.Joins),
		Where:     Expr(s.Where),
		Returning: mapItems(s.Returning),
	}
}

func mapDelete(s *ast.Delete) *queryir.Delete {
	out := &queryir.Delete{
		Table:     mapTable(s.Table),
		Where:     Expr(s.Where),
		Returning: mapItems(s.Returning),
	}
	for _, u := range s.Using {
		out.Using = append(out.Using, mapSource(u))
	}
	return out
}

// Expr maps one expression. Expr(nil) is nil.
func Expr(e ast.Expr) queryir.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Ident:
		return &queryir.Ident{Parts: append([]string(nil), n.Parts...)}
	case *ast.Param:
		return &queryir.Param{Value: n.Value}
	case *ast.Literal:
		return &queryir.Literal{Value: n.Value}
	case *ast.Star:
		return &queryir.Star{Table: n.Table}
	case *ast.Tuple:
		return &queryir.Tuple{Items: mapExprs(n.Items)}
	case *ast.Unary:
		return &queryir.Unary{Op: n.Op, X: Expr(n.X)}
	case *ast.Binary:
		return &queryir.Binary{Op: n.Op, L: Expr(n.L), R: Expr(n.R)}
	case *ast.Paren:
		return &queryir.Paren{X: Expr(n.X)}
	case *ast.Func:
		return mapFunc(n)
	case *ast.Like:
		return &queryir.Like{
			X:       Expr(n.X),
			Pattern: Expr(n.Pattern),
			Escape:  Expr(n.Escape),
			Not:     n.Not,
			ILike:   n.CaseInsensitive,
		}
	case *ast.Cast:
		return &queryir.Cast{X: Expr(n.X), Type: n.Type}
	case *ast.Collate:
		return &queryir.Collate{X: Expr(n.X), Collation: n.Collation}
	case *ast.Window:
		fn := mapFunc(n.Func)
		if fn == nil {
			fn = &queryir.Func{Name: "ROW_NUMBER"}
		}
		return &queryir.Window{
			Func:        fn,
			PartitionBy: mapExprs(n.PartitionBy),
			OrderBy:     mapOrder(n.OrderBy),
			Frame:       n.Frame,
		}
	case *ast.Case:
		out := &queryir.Case{Operand: Expr(n.Operand), Else: Expr(n.Else)}
		for _, w := range n.Whens {
			out.Whens = append(out.Whens, queryir.When{Cond: Expr(w.Cond), Result: Expr(w.Result)})
		}
		return out
	case *ast.Raw:
		return &queryir.Raw{SQL: n.SQL}
	case *ast.Between:
		return mapBetween(n)
	case *ast.IsNull:
		op := "IS"
		if n.Not {
			op = "IS NOT"
		}
		return &queryir.Binary{Op: op, L: Expr(n.X), R: &queryir.Literal{Value: ir.Null{}}}
	case *ast.InList:
		return &queryir.InList{X: Expr(n.X), List: mapExprs(n.List), Not: n.Not}
	case *ast.InSubquery:
		return &queryir.InSubquery{X: Expr(n.X), Query: Query(n.Query), Not: n.Not}
	case *ast.Exists:
		return &queryir.Exists{Query: Query(n.Query), Not: n.Not}
	case *ast.Subquery:
		return &queryir.Subquery{Query: Query(n.Query)}
	case *ast.Rollup:
		return &queryir.Func{Name: "ROLLUP", Args: mapExprs(n.Exprs)}
	case *ast.Cube:
		return &queryir.Func{Name: "CUBE", Args: mapExprs(n.Exprs)}
	case *ast.GroupingSets:
		fn := &queryir.Func{Name: "GROUPING SETS"}
		for _, set := range n.Sets {
			fn.Args = append(fn.Args, &queryir.Tuple{Items: mapExprs(set)})
		}
		return fn
	default:
		return &queryir.Raw{SQL: "NULL"}
	}
}

func mapFunc(f *ast.Func) *queryir.Func {
	if f == nil {
		return nil
	}
	return &queryir.Func{Name: f.Name, Args: mapExprs(f.Args), Distinct: f.Distinct}
}

// mapBetween flattens x BETWEEN lo AND hi into (x >= lo AND x <= hi).
//
// Flattening writes x twice, so it only happens when x is a pure
// expression without placeholders; otherwise a Between node is kept and
// the renderer prints BETWEEN natively.
func mapBetween(n *ast.Between) queryir.Expr {
	if !duplicable(n.X) {
		return &queryir.Between{X: Expr(n.X), Lo: Expr(n.Lo), Hi: Expr(n.Hi), Not: n.Not}
	}
	var flat queryir.Expr = &queryir.Paren{X: &queryir.Binary{
		Op: "AND",
		L:  &queryir.Binary{Op: ">=", L: Expr(n.X), R: Expr(n.Lo)},
		R:  &queryir.Binary{Op: "<=", L: Expr(n.X), R: Expr(n.Hi)},
	}}
	if n.Not {
		flat = &queryir.Unary{Op: "NOT", X: flat}
	}
	return flat
}

// duplicable reports whether evaluating e twice is indistinguishable from
// evaluating it once and introduces no extra placeholder.
func duplicable(e ast.Expr) bool {
	return !walk.Any(e, func(x ast.Expr) bool {
		switch x.(type) {
		case *ast.Param, *ast.Func, *ast.Window, *ast.Raw,
			*ast.Subquery, *ast.InSubquery, *ast.Exists:
			return true
		}
		return false
	})
}
