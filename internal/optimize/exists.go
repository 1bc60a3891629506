package optimize

import (
	"strings"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/walk"
)

// InToExists rewrites x IN (SELECT col FROM ... WHERE p) into
// EXISTS (SELECT 1 FROM ... WHERE p AND col = x).
//
// Only predicates in filtering position are rewritten (WHERE, HAVING, ON,
// reached through AND, OR and parentheses), where a NULL result and a
// false one are indistinguishable. NOT IN is never rewritten.
func InToExists(stmt ast.Statement) bool {
	changed := false
	rewrite := func(e ast.Expr) ast.Expr {
		out, ok := inToExists(e)
		changed = changed || ok
		return out
	}
	walk.Statement(stmt, walk.Visitor{
		Order: walk.PostOrder,
		Query: func(q *ast.Query, top bool) {
			for _, s := range walk.Selects(q) {
				s.Where = rewrite(s.Where)
				s.Having = rewrite(s.Having)
				for _, j := range s.Joins {
					j.On = rewrite(j.On)
				}
			}
		},
	})
	switch s := stmt.(type) {
	case *ast.Update:
		s.Where = rewrite(s.Where)
		for _, j := range s.Joins {
			j.On = rewrite(j.On)
		}
	case *ast.Delete:
		s.Where = rewrite(s.Where)
	}
	return changed
}

func inToExists(e ast.Expr) (ast.Expr, bool) {
	switch n := e.(type) {
	case *ast.Binary:
		if !strings.EqualFold(n.Op, "AND") && !strings.EqualFold(n.Op, "OR") {
			return e, false
		}
		l, lok := inToExists(n.L)
		r, rok := inToExists(n.R)
		n.L, n.R = l, r
		return n, lok || rok
	case *ast.Paren:
		x, ok := inToExists(n.X)
		n.X = x
		return n, ok
	case *ast.InSubquery:
		if ex := existsFor(n); ex != nil {
			return ex, true
		}
	}
	return e, false
}

func existsFor(in *ast.InSubquery) *ast.Exists {
	if in.Not || in.Query == nil || in.Query.Limit != nil {
		return nil
	}
	s, ok := in.Query.Body.(*ast.Select)
	if !ok || len(s.Projection) != 1 {
		return nil
	}
	if s.GroupBy != nil || s.Having != nil || s.Limit != nil || len(s.DistinctOn) > 0 {
		return nil
	}
	proj := s.Projection[0].Expr
	if hasStar(proj) || hasAggregate(proj) || hasWindow(proj) {
		return nil
	}

	if _, tuple := in.X.(*ast.Tuple); tuple || in.X == nil {
		return nil
	}
	if hasSubquery(in.X) || hasAggregate(in.X) || hasWindow(in.X) || hasVolatile(in.X) || hasRaw(in.X) {
		return nil
	}
	inner := exposedNames(s)
	for _, id := range walk.Idents(in.X) {
		if len(id.Parts) < 2 || inner[id.Parts[len(id.Parts)-2]] {
			return nil
		}
	}

	s.Projection = []ast.SelectItem{{Expr: ast.Lit(1)}}
	s.Distinct = false
	s.OrderBy = nil
	s.Where = ast.And(s.Where, ast.Eq(proj, in.X))
	in.Query.OrderBy = nil
	return &ast.Exists{Query: in.Query}
}

// exposedNames lists the names a SELECT's sources are visible under.
func exposedNames(s *ast.Select) map[string]bool {
	out := make(map[string]bool)
	add := func(t ast.TableFactor) {
		switch n := t.(type) {
		case *ast.TableRef:
			out[n.Exposed()] = true
			out[n.Name] = true
		case *ast.Derived:
			out[n.Alias] = true
		}
	}
	add(s.From)
	for _, j := range s.Joins {
		add(j.Table)
	}
	return out
}

// SimplifyExists replaces the projection of every EXISTS subquery with the
// constant 1 and drops its ORDER BY. LIMIT is kept. The arms of a UNION
// body are simplified together.
//
// A projection holding an aggregate without GROUP BY is kept: such a query
// yields exactly one row however many rows its FROM produces.
func SimplifyExists(stmt ast.Statement) bool {
	changed := false
	walk.Statement(stmt, walk.Visitor{
		Order: walk.PostOrder,
		Expr: func(e ast.Expr) ast.Expr {
			ex, ok := e.(*ast.Exists)
			if !ok || ex.Query == nil {
				return e
			}
			if simplifyExists(ex.Query) {
				changed = true
			}
			return e
		},
	})
	return changed
}

func simplifyExists(q *ast.Query) bool {
	changed := false
	if len(q.OrderBy) > 0 {
		q.OrderBy = nil
		changed = true
	}
	arms, ok := unionArms(q.Body)
	if !ok {
		return changed
	}
	// An arm that keeps its projection fixes the column count of every arm.
	project := true
	for _, s := range arms {
		if s.GroupBy == nil && itemsHave(s.Projection, hasAggregate) {
			project = false
		}
	}
	for _, s := range arms {
		if project && !isConstOne(s.Projection) {
			s.Projection = []ast.SelectItem{{Expr: ast.Lit(1)}}
			changed = true
		}
		if len(s.OrderBy) > 0 {
			s.OrderBy = nil
			changed = true
		}
	}
	return changed
}

// unionArms returns the SELECT blocks of b when b is one SELECT or a tree
// of positional UNIONs. INTERSECT and EXCEPT compare rows, so their arms
// cannot change projection.
func unionArms(b ast.SetExpr) ([]*ast.Select, bool) {
	switch n := b.(type) {
	case *ast.Select:
		return []*ast.Select{n}, true
	case *ast.SetOp:
		if n.Op != ast.Union || n.ByName {
			return nil, false
		}
		left, ok := unionArms(n.Left)
		if !ok {
			return nil, false
		}
		right, ok := unionArms(n.Right)
		if !ok {
			return nil, false
		}
		return append(left, right...), true
	}
	return nil, false
}

func isConstOne(items []ast.SelectItem) bool {
	if len(items) != 1 || items[0].Alias != "" {
		return false
	}
	lit, ok := items[0].Expr.(*ast.Literal)
	return ok && ir.Equal(lit.Value, ir.Int(1))
}
