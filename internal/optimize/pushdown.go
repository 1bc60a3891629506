package optimize

import (
	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/walk"
)

// PushdownPredicates moves outer WHERE conjuncts that only read columns of
// one derived table into that derived table's WHERE.
//
// A conjunct moves when every column it references is alias.col and each
// col is a plain column of the inner projection. The inner block must not
// deduplicate, group or bound its rows. Derived tables on the nullable
// side of an outer join are left alone.
func PushdownPredicates(stmt ast.Statement) bool {
	changed := false
	forEachSelectQuery(stmt, func(q *ast.Query, outer *ast.Select) {
		if outer.Where == nil || nullsLeft(outer.Joins) {
			return
		}
		for _, slot := range derivedSlots(outer) {
			if slot.d.Lateral || slot.d.Alias == "" {
				continue
			}
			if slot.join != nil && slot.join.Kind != ast.InnerJoin && slot.join.Kind != ast.CrossJoin {
				continue
			}
			inner := pushTarget(slot.d.Query)
			if inner == nil {
				continue
			}
			cols := projected(inner.Projection)

			var keep []ast.Expr
			for _, c := range splitAnd(outer.Where) {
				pushed, ok := rewriteForInner(c, slot.d.Alias, cols)
				if !ok {
					keep = append(keep, c)
					continue
				}
				inner.Where = ast.And(inner.Where, pushed)
				changed = true
			}
			outer.Where = joinAnd(keep)
			if outer.Where == nil {
				return
			}
		}
	})
	return changed
}

// pushTarget returns the SELECT a predicate may be pushed into, or nil.
func pushTarget(q *ast.Query) *ast.Select {
	if rowBounded(q) {
		return nil
	}
	s, ok := q.Body.(*ast.Select)
	if !ok {
		return nil
	}
	if s.Distinct || len(s.DistinctOn) > 0 || s.GroupBy != nil || s.Having != nil {
		return nil
	}
	if itemsHave(s.Projection, hasWindow) || itemsHave(s.Projection, hasStar) ||
		itemsHave(s.Projection, hasAggregate) || itemsHave(s.Projection, hasVolatile) {
		return nil
	}
	return s
}

// rewriteForInner returns conjunct c restated over the inner projection,
// or false when c cannot move.
func rewriteForInner(c ast.Expr, alias string, cols map[string]ast.Expr) (ast.Expr, bool) {
	if hasSubquery(c) || hasAggregate(c) || hasWindow(c) || hasRaw(c) || hasStar(c) || hasVolatile(c) {
		return nil, false
	}
	ids := walk.Idents(c)
	if len(ids) == 0 {
		return nil, false
	}
	for _, id := range ids {
		if len(id.Parts) != 2 || id.Parts[0] != alias {
			return nil, false
		}
		if _, ok := cols[id.Column()].(*ast.Ident); !ok {
			return nil, false
		}
	}

	return walk.Expr(c, walk.Visitor{
		Order: walk.PostOrder,
		Expr: func(e ast.Expr) ast.Expr {
			id, ok := e.(*ast.Ident)
			if !ok {
				return e
			}
			return ast.CloneExpr(cols[id.Column()])
		},
	}), true
}
