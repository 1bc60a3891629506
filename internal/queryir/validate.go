package queryir

import (
	"fmt"

	"github.com/roach88/sqlopt/internal/dialect"
)

// UnsupportedFeatureError names one construct the target dialect cannot
// express under the Strict policy.
type UnsupportedFeatureError struct {
	Feature string
	Dialect dialect.Dialect
}

// Error implements the error interface.
func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s is not supported by %s", e.Feature, e.Dialect)
}

// Category orders violations. Lower categories are reported first.
type Category int

const (
	CategoryDistinctOn Category = iota
	CategoryILike
	CategoryNullsOrdering
	CategoryGrouping
	CategoryMaterialization
	CategoryByName
)

// Violation is one unsupported construct found in a tree.
type Violation struct {
	Category Category
	Feature  string
}

// Validate returns every construct in stmt that d cannot express natively,
// in reading order. It ignores policy.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement, d dialect.Dialect) []Violation {
	v := &validator{caps: d.Caps(), dialect: d}
	v.validateStatement(stmt)
	return v.violations
}

// CheckFeatures applies policy to Validate. Under Lenient it always returns
// nil. Under Strict it returns the violation with the lowest category,
// first in reading order within that category, as an
// *UnsupportedFeatureError.
func CheckFeatures(stmt Statement, d dialect.Dialect, policy dialect.Policy) error {
	if policy != dialect.Strict {
		return nil
	}
	violations := Validate(stmt, d)
	if len(violations) == 0 {
		return nil
	}
	first := violations[0]
	for _, vi := range violations[1:] {
		if vi.Category < first.Category {
			first = vi
		}
	}
	return &UnsupportedFeatureError{Feature: first.Feature, Dialect: d}
}

// validator accumulates violations during traversal.
type validator struct {
	caps       dialect.Capabilities
	dialect    dialect.Dialect
	violations []Violation
}

func (v *validator) add(c Category, feature string) {
	v.violations = append(v.violations, Violation{Category: c, Feature: feature})
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case *Query:
		v.validateQuery(s)
	case *Insert:
		for _, row := range s.Rows {
			v.exprs(row)
		}
		v.validateQuery(s.Query)
		if s.OnConflict != nil {
			for _, a := range s.OnConflict.Set {
				v.expr(a.Value)
			}
			v.expr(s.OnConflict.Where)
		}
		v.items(s.Returning)
	case *Update:
		for _, a := range s.Set {
			v.expr(a.Value)
		}
		v.source(s.From)
		v.joins(s.Joins)
		v.expr(s.Where)
		v.items(s.Returning)
	case *Delete:
		for _, u := range s.Using {
			v.source(u)
		}
		v.expr(s.Where)
		v.items(s.Returning)
	}
}

func (v *validator) validateQuery(q *Query) {
	if q == nil {
		return
	}
	if q.With != nil {
		for _, cte := range q.With.CTEs {
			switch cte.Materialized {
			case Materialized:
				if !v.caps.MaterializedCTE {
					v.add(CategoryMaterialization, "CTE MATERIALIZED")
				}
			case NotMaterialized:
				if !v.caps.MaterializedCTE {
					v.add(CategoryMaterialization, "CTE NOT MATERIALIZED")
				}
			}
			v.validateQuery(cte.Query)
		}
	}
	v.body(q.Body)
	v.order(q.OrderBy)
	v.expr(q.Limit)
	v.expr(q.Offset)
}

func (v *validator) body(b Body) {
	switch n := b.(type) {
	case *Select:
		v.validateSelect(n)
	case *SetOp:
		// No target dialect renders BY NAME correctly.
		if n.ByName {
			v.add(CategoryByName, n.Op.String()+" BY NAME")
		}
		v.body(n.Left)
		v.body(n.Right)
	}
}

func (v *validator) validateSelect(s *Select) {
	if len(s.DistinctOn) > 0 && !v.caps.DistinctOn {
		v.add(CategoryDistinctOn, "DISTINCT ON")
	}
	v.exprs(s.DistinctOn)
	v.items(s.Columns)
	v.source(s.From)
	v.joins(s.Joins)
	v.expr(s.Where)
	if g := s.GroupBy; g != nil {
		v.grouping(g)
		v.exprs(g.Flatten())
	}
	v.expr(s.Having)
	v.order(s.OrderBy)
	v.expr(s.Limit)
	v.expr(s.Offset)
}

func (v *validator) grouping(g *GroupBy) {
	switch g.Kind {
	case GroupRollup:
		if !v.dialect.SupportsRollup() {
			v.add(CategoryGrouping, "GROUP BY ROLLUP")
		}
	case GroupCube:
		if !v.caps.Grouping.Has(dialect.GroupingCube) {
			v.add(CategoryGrouping, "GROUP BY CUBE")
		}
	case GroupingSets:
		if !v.caps.Grouping.Has(dialect.GroupingSets) {
			v.add(CategoryGrouping, "GROUPING SETS")
		}
	}
}

func (v *validator) source(t TableSource) {
	if d, ok := t.(*DerivedTable); ok {
		v.validateQuery(d.Query)
	}
}

func (v *validator) joins(joins []Join) {
	for _, j := range joins {
		v.source(j.Table)
		v.expr(j.On)
	}
}

func (v *validator) items(items []SelectItem) {
	for _, it := range items {
		v.expr(it.Expr)
	}
}

func (v *validator) order(items []OrderItem) {
	for _, o := range items {
		switch o.Nulls {
		case NullsFirst:
			if !v.caps.NullsOrdering {
				v.add(CategoryNullsOrdering, "NULLS FIRST")
			}
		case NullsLast:
			if !v.caps.NullsOrdering {
				v.add(CategoryNullsOrdering, "NULLS LAST")
			}
		}
		v.expr(o.Expr)
	}
}

func (v *validator) exprs(list []Expr) {
	for _, e := range list {
		v.expr(e)
	}
}

func (v *validator) expr(e Expr) {
	switch n := e.(type) {
	case nil:
	case *Tuple:
		v.exprs(n.Items)
	case *Unary:
		v.expr(n.X)
	case *Binary:
		v.expr(n.L)
		v.expr(n.R)
	case *Paren:
		v.expr(n.X)
	case *Func:
		v.exprs(n.Args)
	case *Like:
		if n.ILike && !v.caps.ILike {
			v.add(CategoryILike, "ILIKE")
		}
		v.expr(n.X)
		v.expr(n.Pattern)
		v.expr(n.Escape)
	case *Cast:
		v.expr(n.X)
	case *Collate:
		v.expr(n.X)
	case *Window:
		if n.Func != nil {
			v.exprs(n.Func.Args)
		}
		v.exprs(n.PartitionBy)
		v.order(n.OrderBy)
	case *Case:
		v.expr(n.Operand)
		for _, w := range n.Whens {
			v.expr(w.Cond)
			v.expr(w.Result)
		}
		v.expr(n.Else)
	case *Between:
		v.expr(n.X)
		v.expr(n.Lo)
		v.expr(n.Hi)
	case *InList:
		v.expr(n.X)
		v.exprs(n.List)
	case *InSubquery:
		v.expr(n.X)
		v.validateQuery(n.Query)
	case *Exists:
		v.validateQuery(n.Query)
	case *Subquery:
		v.validateQuery(n.Query)
	}
}
