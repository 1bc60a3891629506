package optimize

import (
	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/walk"
)

// PullupPredicates lifts a derived table over a single base table out of
// FROM or an inner join, merging its WHERE into the outer WHERE:
//
//	SELECT s.a FROM (SELECT a, b AS c FROM t WHERE t.b > 0) AS s WHERE s.c < 5
//	SELECT s.a FROM t AS s WHERE s.b > 0 AND s.b < 5
//
// The inner projection must be plain columns, possibly renamed; outer
// references to a renamed column are rewritten to the base column. The
// inner block must not change cardinality.
func PullupPredicates(stmt ast.Statement) bool {
	changed := false
	forEachSelectQuery(stmt, func(q *ast.Query, outer *ast.Select) {
		if nullsLeft(outer.Joins) || itemsHave(outer.Projection, hasStar) {
			return
		}
		for _, slot := range derivedSlots(outer) {
			if slot.d.Lateral || slot.d.Alias == "" {
				continue
			}
			if slot.join != nil && slot.join.Kind != ast.InnerJoin && slot.join.Kind != ast.CrossJoin {
				continue
			}
			if pullup(q, outer, slot) {
				changed = true
			}
		}
	})
	return changed
}

func pullup(q *ast.Query, outer *ast.Select, slot derivedSlot) bool {
	alias := slot.d.Alias
	inner, t := pullable(slot.d.Query)
	if inner == nil {
		return false
	}

	level := levelExprs(q, outer)
	if len(outer.Joins) > 0 && (!plainJoins(outer.Joins) || anyUnqualified(level)) {
		return false
	}
	if declares(alias, level) {
		return false
	}
	if slot.join != nil && slot.join.On != nil && declares(alias, []ast.Expr{slot.join.On}) {
		return false
	}

	cols := projected(inner.Projection)
	if len(cols) != len(inner.Projection) || !inlineSafe(q, outer, alias, cols) {
		return false
	}

	// With a single source, unqualified names of s's columns belong to s.
	if len(outer.Joins) == 0 {
		qualifyLevel(q, outer, alias, cols)
	}

	for _, it := range inner.Projection {
		requalify(it.Expr, alias)
	}
	requalify(inner.Where, alias)

	subst := func(e ast.Expr) ast.Expr {
		return walk.Expr(e, walk.Visitor{
			Order: walk.PostOrder,
			Expr: func(x ast.Expr) ast.Expr {
				id, ok := x.(*ast.Ident)
				if !ok || len(id.Parts) != 2 || id.Parts[0] != alias {
					return x
				}
				if repl, ok := cols[id.Column()]; ok {
					return ast.CloneExpr(repl)
				}
				return x
			},
		})
	}

	for i := range outer.Projection {
		it := &outer.Projection[i]
		before := itemName(*it)
		it.Expr = subst(it.Expr)
		if it.Alias == "" && before != "" && itemName(*it) != before {
			it.Alias = before
		}
	}
	for i := range outer.DistinctOn {
		outer.DistinctOn[i] = subst(outer.DistinctOn[i])
	}
	for _, j := range outer.Joins {
		j.On = subst(j.On)
	}
	outer.Where = subst(outer.Where)
	if outer.GroupBy != nil {
		for i := range outer.GroupBy.Exprs {
			outer.GroupBy.Exprs[i] = subst(outer.GroupBy.Exprs[i])
		}
	}
	outer.Having = subst(outer.Having)
	for i := range outer.OrderBy {
		outer.OrderBy[i].Expr = subst(outer.OrderBy[i].Expr)
	}
	for i := range q.OrderBy {
		q.OrderBy[i].Expr = subst(q.OrderBy[i].Expr)
	}

	slot.replace(&ast.TableRef{Schema: t.Schema, Name: t.Name, Alias: alias})
	outer.Where = ast.And(inner.Where, outer.Where)
	return true
}

// qualifyLevel qualifies the bare references to cols at the level with
// alias. Bare names in GROUP BY, HAVING and ORDER BY that match an output
// alias keep pointing at the output column.
func qualifyLevel(q *ast.Query, s *ast.Select, alias string, cols map[string]ast.Expr) {
	outputs := make(map[string]bool)
	for _, it := range s.Projection {
		if it.Alias != "" {
			outputs[it.Alias] = true
		}
	}
	qualify := func(e ast.Expr, skipOutputs bool) {
		for _, id := range walk.Idents(e) {
			if len(id.Parts) != 1 {
				continue
			}
			if _, ok := cols[id.Parts[0]]; !ok || (skipOutputs && outputs[id.Parts[0]]) {
				continue
			}
			id.Parts = []string{alias, id.Parts[0]}
		}
	}
	for _, it := range s.Projection {
		qualify(it.Expr, false)
	}
	for _, e := range s.DistinctOn {
		qualify(e, false)
	}
	qualify(s.Where, false)
	if s.GroupBy != nil {
		for _, e := range s.GroupBy.Exprs {
			qualify(e, true)
		}
	}
	qualify(s.Having, true)
	for _, o := range s.OrderBy {
		qualify(o.Expr, true)
	}
	for _, o := range q.OrderBy {
		qualify(o.Expr, true)
	}
}

// pullable returns the inner SELECT and its base table when q projects
// plain columns of one table without changing its cardinality.
func pullable(q *ast.Query) (*ast.Select, *ast.TableRef) {
	if q.With != nil || q.Limit != nil {
		return nil, nil
	}
	s, ok := q.Body.(*ast.Select)
	if !ok {
		return nil, nil
	}
	if s.Distinct || len(s.DistinctOn) > 0 || s.GroupBy != nil || s.Having != nil ||
		s.Limit != nil || len(s.Joins) > 0 {
		return nil, nil
	}
	t, ok := s.From.(*ast.TableRef)
	if !ok || len(s.Projection) == 0 {
		return nil, nil
	}
	for _, it := range s.Projection {
		id, ok := it.Expr.(*ast.Ident)
		if !ok || !innerColumns(t.Exposed(), id) {
			return nil, nil
		}
	}
	if hasSubquery(s.Where) || hasVolatile(s.Where) || !innerColumns(t.Exposed(), s.Where) {
		return nil, nil
	}
	return s, t
}
