package ast

import (
	"slices"

	"github.com/roach88/sqlopt/internal/ir"
)

// Clone returns a deep copy of stmt that shares no nodes with it.
// Values are immutable and are shared; Bytes values are copied.
func Clone(stmt Statement) Statement {
	switch s := stmt.(type) {
	case *Query:
		return CloneQuery(s)
	case *Insert:
		return cloneInsert(s)
	case *Update:
		return cloneUpdate(s)
	case *Delete:
		return cloneDelete(s)
	default:
		return nil
	}
}

// CloneQuery deep-copies a query.
func CloneQuery(q *Query) *Query {
	if q == nil {
		return nil
	}
	out := &Query{
		Body:    cloneSetExpr(q.Body),
		OrderBy: cloneOrder(q.OrderBy),
		Limit:   cloneLimit(q.Limit),
	}
	if q.With != nil {
		out.With = &With{Recursive: q.With.Recursive}
		for _, cte := range q.With.CTEs {
			out.With.CTEs = append(out.With.CTEs, &CTE{
				Name:         cte.Name,
				Columns:      slices.Clone(cte.Columns),
				Materialized: cte.Materialized,
				Query:        CloneQuery(cte.Query),
			})
		}
	}
	return out
}

func cloneSetExpr(b SetExpr) SetExpr {
	switch n := b.(type) {
	case *Select:
		return CloneSelect(n)
	case *SetOp:
		return &SetOp{
			Op:     n.Op,
			All:    n.All,
			ByName: n.ByName,
			Left:   cloneSetExpr(n.Left),
			Right:  cloneSetExpr(n.Right),
		}
	default:
		return nil
	}
}

// CloneSelect deep-copies one SELECT block.
func CloneSelect(s *Select) *Select {
	if s == nil {
		return nil
	}
	out := &Select{
		Distinct:   s.Distinct,
		DistinctOn: cloneExprs(s.DistinctOn),
		Projection: cloneItems(s.Projection),
		From:       cloneTable(s.From),
		Joins:      cloneJoins(s.Joins),
		Where:      CloneExpr(s.Where),
		Having:     CloneExpr(s.Having),
		OrderBy:    cloneOrder(s.OrderBy),
		Limit:      cloneLimit(s.Limit),
	}
	if s.GroupBy != nil {
		out.GroupBy = &GroupBy{Exprs: cloneExprs(s.GroupBy.Exprs), Modifier: s.GroupBy.Modifier}
	}
	return out
}

func cloneItems(items []SelectItem) []SelectItem {
	if items == nil {
		return nil
	}
	out := make([]SelectItem, len(items))
	for i, it := range items {
		out[i] = SelectItem{Expr: CloneExpr(it.Expr), Alias: it.Alias}
	}
	return out
}

func cloneTable(t TableFactor) TableFactor {
	switch n := t.(type) {
	case *TableRef:
		c := *n
		return &c
	case *Derived:
		return &Derived{Query: CloneQuery(n.Query), Alias: n.Alias, Lateral: n.Lateral}
	default:
		return nil
	}
}

func cloneJoins(joins []*Join) []*Join {
	if joins == nil {
		return nil
	}
	out := make([]*Join, len(joins))
	for i, j := range joins {
		out[i] = &Join{
			Kind:  j.Kind,
			Table: cloneTable(j.Table),
			On:    CloneExpr(j.On),
			Using: slices.Clone(j.Using),
		}
	}
	return out
}

func cloneOrder(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for i, it := range items {
		out[i] = OrderItem{Expr: CloneExpr(it.Expr), Desc: it.Desc, Nulls: it.Nulls}
	}
	return out
}

func cloneLimit(l *Limit) *Limit {
	if l == nil {
		return nil
	}
	return &Limit{Count: CloneExpr(l.Count), Offset: CloneExpr(l.Offset), All: l.All, Comma: l.Comma}
}

func cloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = CloneExpr(e)
	}
	return out
}

func cloneValue(v ir.Value) ir.Value {
	if b, ok := v.(ir.Bytes); ok {
		return slices.Clone(b)
	}
	return v
}

// CloneExpr deep-copies an expression. CloneExpr(nil) is nil.
func CloneExpr(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *Ident:
		return &Ident{Parts: slices.Clone(n.Parts)}
	case *Param:
		return &Param{Value: cloneValue(n.Value)}
	case *Literal:
		return &Literal{Value: cloneValue(n.Value)}
	case *Star:
		return &Star{Table: n.Table}
	case *Tuple:
		return &Tuple{Items: cloneExprs(n.Items)}
	case *Unary:
		return &Unary{Op: n.Op, X: CloneExpr(n.X)}
	case *Binary:
		return &Binary{Op: n.Op, L: CloneExpr(n.L), R: CloneExpr(n.R)}
	case *Paren:
		return &Paren{X: CloneExpr(n.X)}
	case *Func:
		return cloneFunc(n)
	case *Like:
		return &Like{
			X:               CloneExpr(n.X),
			Pattern:         CloneExpr(n.Pattern),
			Escape:          CloneExpr(n.Escape),
			Not:             n.Not,
			CaseInsensitive: n.CaseInsensitive,
		}
	case *Cast:
		return &Cast{X: CloneExpr(n.X), Type: n.Type}
	case *Collate:
		return &Collate{X: CloneExpr(n.X), Collation: n.Collation}
	case *Window:
		return &Window{
			Func:        cloneFunc(n.Func),
			PartitionBy: cloneExprs(n.PartitionBy),
			OrderBy:     cloneOrder(n.OrderBy),
			Frame:       n.Frame,
		}
	case *Case:
		out := &Case{Operand: CloneExpr(n.Operand), Else: CloneExpr(n.Else)}
		for _, w := range n.Whens {
			out.Whens = append(out.Whens, When{Cond: CloneExpr(w.Cond), Result: CloneExpr(w.Result)})
		}
		return out
	case *Raw:
		return &Raw{SQL: n.SQL}
	case *Between:
		return &Between{X: CloneExpr(n.X), Lo: CloneExpr(n.Lo), Hi: CloneExpr(n.Hi), Not: n.Not}
	case *IsNull:
		return &IsNull{X: CloneExpr(n.X), Not: n.Not}
	case *InList:
		return &InList{X: CloneExpr(n.X), List: cloneExprs(n.List), Not: n.Not}
	case *InSubquery:
		return &InSubquery{X: CloneExpr(n.X), Query: CloneQuery(n.Query), Not: n.Not}
	case *Exists:
		return &Exists{Query: CloneQuery(n.Query), Not: n.Not}
	case *Subquery:
		return &Subquery{Query: CloneQuery(n.Query)}
	case *Rollup:
		return &Rollup{Exprs: cloneExprs(n.Exprs)}
	case *Cube:
		return &Cube{Exprs: cloneExprs(n.Exprs)}
	case *GroupingSets:
		out := &GroupingSets{}
		for _, set := range n.Sets {
			out.Sets = append(out.Sets, cloneExprs(set))
		}
		return out
	default:
		return e
	}
}

func cloneFunc(f *Func) *Func {
	if f == nil {
		return nil
	}
	return &Func{Name: f.Name, Args: cloneExprs(f.Args), Distinct: f.Distinct}
}

func cloneAssignments(set []Assignment) []Assignment {
	if set == nil {
		return nil
	}
	out := make([]Assignment, len(set))
	for i, a := range set {
		out[i] = Assignment{Column: a.Column, Value: CloneExpr(a.Value), FromInserted: a.FromInserted}
	}
	return out
}

func cloneTableRef(t *TableRef) *TableRef {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneInsert(s *Insert) *Insert {
	out := &Insert{
		Table:         cloneTableRef(s.Table),
		Columns:       slices.Clone(s.Columns),
		Query:         CloneQuery(s.Query),
		DefaultValues: s.DefaultValues,
		Returning:     cloneItems(s.Returning),
	}
	for _, row := range s.Rows {
		out.Rows = append(out.Rows, cloneExprs(row))
	}
	if s.OnConflict != nil {
		oc := s.OnConflict
		out.OnConflict = &OnConflict{
			Target:     slices.Clone(oc.Target),
			Constraint: oc.Constraint,
			Action:     oc.Action,
			Set:        cloneAssignments(oc.Set),
			Where:      CloneExpr(oc.Where),
		}
	}
	return out
}

func cloneUpdate(s *Update) *Update {
	return &Update{
		Table:     cloneTableRef(s.Table),
		Set:       cloneAssignments(s.Set),
		From:      cloneTable(s.From),
		Joins:     cloneJoins(s.Joins),
		Where:     CloneExpr(s.Where),
		Returning: cloneItems(s.Returning),
	}
}

func cloneDelete(s *Delete) *Delete {
	out := &Delete{
		Table:     cloneTableRef(s.Table),
		Where:     CloneExpr(s.Where),
		Returning: cloneItems(s.Returning),
	}
	for _, u := range s.Using {
		out.Using = append(out.Using, cloneTable(u))
	}
	return out
}
