package walk

import "github.com/roach88/sqlopt/internal/ast"

// Inspect calls fn for e and, while fn returns true, for each of e's child
// expressions in reading order. It is read-only and stays within one query
// level: it does not enter the queries of subquery nodes.
func Inspect(e ast.Expr, fn func(ast.Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	each := func(list []ast.Expr) {
		for _, x := range list {
			Inspect(x, fn)
		}
	}
	switch n := e.(type) {
	case *ast.Tuple:
		each(n.Items)
	case *ast.Unary:
		Inspect(n.X, fn)
	case *ast.Binary:
		Inspect(n.L, fn)
		Inspect(n.R, fn)
	case *ast.Paren:
		Inspect(n.X, fn)
	case *ast.Func:
		each(n.Args)
	case *ast.Like:
		Inspect(n.X, fn)
		Inspect(n.Pattern, fn)
		Inspect(n.Escape, fn)
	case *ast.Cast:
		Inspect(n.X, fn)
	case *ast.Collate:
		Inspect(n.X, fn)
	case *ast.Window:
		if n.Func != nil {
			each(n.Func.Args)
		}
		each(n.PartitionBy)
		for _, o := range n.OrderBy {
			Inspect(o.Expr, fn)
		}
	case *ast.Case:
		Inspect(n.Operand, fn)
		for _, wh := range n.Whens {
			Inspect(wh.Cond, fn)
			Inspect(wh.Result, fn)
		}
		Inspect(n.Else, fn)
	case *ast.Between:
		Inspect(n.X, fn)
		Inspect(n.Lo, fn)
		Inspect(n.Hi, fn)
	case *ast.IsNull:
		Inspect(n.X, fn)
	case *ast.InList:
		Inspect(n.X, fn)
		each(n.List)
	case *ast.InSubquery:
		Inspect(n.X, fn)
	case *ast.Rollup:
		each(n.Exprs)
	case *ast.Cube:
		each(n.Exprs)
	case *ast.GroupingSets:
		for _, set := range n.Sets {
			each(set)
		}
	}
}

// Any reports whether pred holds for e or any expression Inspect reaches
// from it.
func Any(e ast.Expr, pred func(ast.Expr) bool) bool {
	found := false
	Inspect(e, func(x ast.Expr) bool {
		if found {
			return false
		}
		if pred(x) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Idents returns the column references at e's query level in reading order.
func Idents(e ast.Expr) []*ast.Ident {
	var out []*ast.Ident
	Inspect(e, func(x ast.Expr) bool {
		if id, ok := x.(*ast.Ident); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Selects returns the SELECT blocks making up q's body, left to right.
// It does not descend into subqueries.
func Selects(q *ast.Query) []*ast.Select {
	if q == nil {
		return nil
	}
	var out []*ast.Select
	var visit func(ast.SetExpr)
	visit = func(b ast.SetExpr) {
		switch n := b.(type) {
		case *ast.Select:
			out = append(out, n)
		case *ast.SetOp:
			visit(n.Left)
			visit(n.Right)
		}
	}
	visit(q.Body)
	return out
}
