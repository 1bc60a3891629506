package optimize

import (
	"github.com/roach88/sqlopt/internal/ast"
)

// FlattenSubqueries replaces FROM (SELECT cols FROM t [WHERE p]) AS s with
// FROM t AS s, moving p into the outer WHERE.
//
// The inner projection must be plain column references that keep their
// names, and the inner block must not change cardinality (DISTINCT, GROUP
// BY, HAVING, LIMIT) or join anything. Every column reference of the
// outer level, subqueries included, must keep its binding once the base
// table takes the derived table's place.
func FlattenSubqueries(stmt ast.Statement) bool {
	changed := false
	forEachSelectQuery(stmt, func(q *ast.Query, outer *ast.Select) {
		d, ok := outer.From.(*ast.Derived)
		if !ok || d.Lateral || d.Alias == "" {
			return
		}
		inner, t := flattenable(d.Query)
		if inner == nil {
			return
		}
		level := levelExprs(q, outer)
		if itemsHave(outer.Projection, hasStar) {
			return
		}
		if len(outer.Joins) > 0 && (nullsLeft(outer.Joins) || !plainJoins(outer.Joins) || anyUnqualified(level)) {
			return
		}
		if !inlineSafe(q, outer, d.Alias, projected(inner.Projection)) {
			return
		}

		requalify(inner.Where, d.Alias)
		outer.From = &ast.TableRef{Schema: t.Schema, Name: t.Name, Alias: d.Alias}
		outer.Where = ast.And(inner.Where, outer.Where)
		changed = true
	})
	return changed
}

// flattenable returns the inner SELECT and its base table when q is a
// plain projection of one table.
func flattenable(q *ast.Query) (*ast.Select, *ast.TableRef) {
	if q.With != nil || len(q.OrderBy) > 0 || q.Limit != nil {
		return nil, nil
	}
	s, ok := q.Body.(*ast.Select)
	if !ok {
		return nil, nil
	}
	if s.Distinct || len(s.DistinctOn) > 0 || s.GroupBy != nil || s.Having != nil ||
		s.Limit != nil || len(s.OrderBy) > 0 || len(s.Joins) > 0 {
		return nil, nil
	}
	t, ok := s.From.(*ast.TableRef)
	if !ok || len(s.Projection) == 0 {
		return nil, nil
	}
	for _, it := range s.Projection {
		id, ok := it.Expr.(*ast.Ident)
		if !ok || (it.Alias != "" && it.Alias != id.Column()) {
			return nil, nil
		}
		if !innerColumns(t.Exposed(), id) {
			return nil, nil
		}
	}
	if hasSubquery(s.Where) || hasVolatile(s.Where) || !innerColumns(t.Exposed(), s.Where) {
		return nil, nil
	}
	return s, t
}
