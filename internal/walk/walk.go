// Package walk traverses the relational AST.
//
// One Visitor carries two optional callbacks: Expr is called for every
// expression and may return a replacement, Query is called for every query
// (the statement's own and every subquery, CTE and derived table). Order
// selects whether callbacks run before or after the node's children are
// visited. Optimizer passes that must see already-rewritten children use
// PostOrder.
//
// Reachability covers projections, DISTINCT ON, FROM and JOIN sources and
// their ON clauses, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT/OFFSET bounds,
// function and window arguments, CASE arms, IN/EXISTS/scalar subqueries,
// CTE bodies, and the value, conflict and RETURNING parts of DML.
package walk

import "github.com/roach88/sqlopt/internal/ast"

// Order selects when callbacks run relative to a node's children.
type Order int

const (
	PreOrder Order = iota
	PostOrder
)

// Visitor configures one traversal. Nil callbacks are skipped.
type Visitor struct {
	Order Order

	// Expr is called once per expression. The returned expression replaces
	// the visited one in its parent; return the argument to keep it.
	Expr func(ast.Expr) ast.Expr

	// Query is called once per query. top is true only for the query that
	// is itself the statement.
	Query func(q *ast.Query, top bool)
}

// Statement walks every expression and query reachable from stmt.
func Statement(stmt ast.Statement, v Visitor) {
	w := &walker{v: v}
	switch s := stmt.(type) {
	case *ast.Query:
		w.query(s, true)
	case *ast.Insert:
		w.insert(s)
	case *ast.Update:
		w.update(s)
	case *ast.Delete:
		w.delete(s)
	}
}

// Query walks q as if it were the top-level statement.
func Query(q *ast.Query, v Visitor) {
	(&walker{v: v}).query(q, true)
}

// Select walks the clauses of a single SELECT block.
func Select(s *ast.Select, v Visitor) {
	(&walker{v: v}).sel(s)
}

// Expr walks e and returns its (possibly replaced) root.
func Expr(e ast.Expr, v Visitor) ast.Expr {
	return (&walker{v: v}).expr(e)
}

type walker struct {
	v Visitor
}

func (w *walker) query(q *ast.Query, top bool) {
	if q == nil {
		return
	}
	if w.v.Order == PreOrder && w.v.Query != nil {
		w.v.Query(q, top)
	}
	if q.With != nil {
		for _, cte := range q.With.CTEs {
			w.query(cte.Query, false)
		}
	}
	w.body(q.Body)
	w.order(q.OrderBy)
	w.limit(q.Limit)
	if w.v.Order == PostOrder && w.v.Query != nil {
		w.v.Query(q, top)
	}
}

func (w *walker) body(b ast.SetExpr) {
	switch n := b.(type) {
	case *ast.Select:
		w.sel(n)
	case *ast.SetOp:
		w.body(n.Left)
		w.body(n.Right)
	}
}

func (w *walker) sel(s *ast.Select) {
	if s == nil {
		return
	}
	w.exprs(s.DistinctOn)
	w.items(s.Projection)
	w.table(s.From)
	w.joins(s.Joins)
	s.Where = w.expr(s.Where)
	if s.GroupBy != nil {
		w.exprs(s.GroupBy.Exprs)
	}
	s.Having = w.expr(s.Having)
	w.order(s.OrderBy)
	w.limit(s.Limit)
}

func (w *walker) items(items []ast.SelectItem) {
	for i := range items {
		items[i].Expr = w.expr(items[i].Expr)
	}
}

func (w *walker) table(t ast.TableFactor) {
	if d, ok := t.(*ast.Derived); ok {
		w.query(d.Query, false)
	}
}

func (w *walker) joins(joins []*ast.Join) {
	for _, j := range joins {
		w.table(j.Table)
		j.On = w.expr(j.On)
	}
}

func (w *walker) order(items []ast.OrderItem) {
	for i := range items {
		items[i].Expr = w.expr(items[i].Expr)
	}
}

func (w *walker) limit(l *ast.Limit) {
	if l == nil {
		return
	}
	l.Count = w.expr(l.Count)
	l.Offset = w.expr(l.Offset)
}

func (w *walker) exprs(list []ast.Expr) {
	for i := range list {
		list[i] = w.expr(list[i])
	}
}

func (w *walker) assignments(set []ast.Assignment) {
	for i := range set {
		set[i].Value = w.expr(set[i].Value)
	}
}

func (w *walker) insert(s *ast.Insert) {
	for _, row := range s.Rows {
		w.exprs(row)
	}
	w.query(s.Query, false)
	if oc := s.OnConflict; oc != nil {
		w.assignments(oc.Set)
		oc.Where = w.expr(oc.Where)
	}
	w.items(s.Returning)
}

func (w *walker) update(s *ast.Update) {
	w.assignments(s.Set)
	w.table(s.From)
	w.joins(s.Joins)
	s.Where = w.expr(s.Where)
	w.items(s.Returning)
}

func (w *walker) delete(s *ast.Delete) {
	for _, t := range s.Using {
		w.table(t)
	}
	s.Where = w.expr(s.Where)
	w.items(s.Returning)
}

func (w *walker) expr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	if w.v.Order == PreOrder && w.v.Expr != nil {
		e = w.v.Expr(e)
		if e == nil {
			return nil
		}
	}
	w.children(e)
	if w.v.Order == PostOrder && w.v.Expr != nil {
		e = w.v.Expr(e)
	}
	return e
}

func (w *walker) children(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Tuple:
		w.exprs(n.Items)
	case *ast.Unary:
		n.X = w.expr(n.X)
	case *ast.Binary:
		n.L = w.expr(n.L)
		n.R = w.expr(n.R)
	case *ast.Paren:
		n.X = w.expr(n.X)
	case *ast.Func:
		w.exprs(n.Args)
	case *ast.Like:
		n.X = w.expr(n.X)
		n.Pattern = w.expr(n.Pattern)
		n.Escape = w.expr(n.Escape)
	case *ast.Cast:
		n.X = w.expr(n.X)
	case *ast.Collate:
		n.X = w.expr(n.X)
	case *ast.Window:
		if n.Func != nil {
			w.exprs(n.Func.Args)
		}
		w.exprs(n.PartitionBy)
		w.order(n.OrderBy)
	case *ast.Case:
		n.Operand = w.expr(n.Operand)
		for i := range n.Whens {
			n.Whens[i].Cond = w.expr(n.Whens[i].Cond)
			n.Whens[i].Result = w.expr(n.Whens[i].Result)
		}
		n.Else = w.expr(n.Else)
	case *ast.Between:
		n.X = w.expr(n.X)
		n.Lo = w.expr(n.Lo)
		n.Hi = w.expr(n.Hi)
	case *ast.IsNull:
		n.X = w.expr(n.X)
	case *ast.InList:
		n.X = w.expr(n.X)
		w.exprs(n.List)
	case *ast.InSubquery:
		n.X = w.expr(n.X)
		w.query(n.Query, false)
	case *ast.Exists:
		w.query(n.Query, false)
	case *ast.Subquery:
		w.query(n.Query, false)
	case *ast.Rollup:
		w.exprs(n.Exprs)
	case *ast.Cube:
		w.exprs(n.Exprs)
	case *ast.GroupingSets:
		for _, set := range n.Sets {
			w.exprs(set)
		}
	}
}
