package ast

import "github.com/roach88/sqlopt/internal/ir"

// Expr is a scalar or boolean expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode()
}

// Ident is a column reference path such as a, t.a or s.t.a.
type Ident struct {
	Parts []string
}

// Qualifier returns every part but the last ("t" for t.a, "" for a).
func (i *Ident) Qualifier() string {
	if len(i.Parts) < 2 {
		return ""
	}
	return i.Parts[len(i.Parts)-2]
}

// Column returns the last part of the path.
func (i *Ident) Column() string {
	if len(i.Parts) == 0 {
		return ""
	}
	return i.Parts[len(i.Parts)-1]
}

// Param is a bound-parameter placeholder carrying its value.
type Param struct {
	Value ir.Value
}

// Literal is a constant written inline in the SQL text.
type Literal struct {
	Value ir.Value
}

// Star is `*` or `table.*`.
type Star struct {
	Table string
}

// Tuple is a parenthesized row constructor (a, b, c).
type Tuple struct {
	Items []Expr
}

// Unary is a prefix operator: NOT, -, +, ~.
type Unary struct {
	Op string
	X  Expr
}

// Binary is an infix operator: comparison, arithmetic, AND, OR, ||, IS.
type Binary struct {
	Op string
	L  Expr
	R  Expr
}

// Paren is an explicit parenthesization.
type Paren struct {
	X Expr
}

// Func is a function call. Distinct marks an aggregate's DISTINCT argument.
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool
}

// Like is [NOT] LIKE / ILIKE with an optional ESCAPE expression.
type Like struct {
	X               Expr
	Pattern         Expr
	Escape          Expr
	Not             bool
	CaseInsensitive bool
}

// Cast is CAST(x AS type).
type Cast struct {
	X    Expr
	Type string
}

// Collate is x COLLATE name.
type Collate struct {
	X         Expr
	Collation string
}

// Window is a window function call: fn(...) OVER (PARTITION BY ... ORDER BY ... frame).
type Window struct {
	Func        *Func
	PartitionBy []Expr
	OrderBy     []OrderItem
	Frame       string
}

// When is one WHEN ... THEN ... arm.
type When struct {
	Cond   Expr
	Result Expr
}

// Case is CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type Case struct {
	Operand Expr
	Whens   []When
	Else    Expr
}

// Raw is an opaque SQL fragment emitted verbatim.
type Raw struct {
	SQL string
}

// Between is x [NOT] BETWEEN lo AND hi.
type Between struct {
	X   Expr
	Lo  Expr
	Hi  Expr
	Not bool
}

// IsNull is x IS [NOT] NULL.
type IsNull struct {
	X   Expr
	Not bool
}

// InList is x [NOT] IN (v1, ..., vn).
type InList struct {
	X    Expr
	List []Expr
	Not  bool
}

// InSubquery is x [NOT] IN (subquery).
type InSubquery struct {
	X     Expr
	Query *Query
	Not   bool
}

// Exists is [NOT] EXISTS (subquery).
type Exists struct {
	Query *Query
	Not   bool
}

// Subquery is a scalar subquery.
type Subquery struct {
	Query *Query
}

// Rollup is ROLLUP(a, b) written as a GROUP BY item.
type Rollup struct {
	Exprs []Expr
}

// Cube is CUBE(a, b) written as a GROUP BY item.
type Cube struct {
	Exprs []Expr
}

// GroupingSets is GROUPING SETS ((a), (a, b), ()) written as a GROUP BY item.
type GroupingSets struct {
	Sets [][]Expr
}

func (*Ident) exprNode()        {}
func (*Param) exprNode()        {}
func (*Literal) exprNode()      {}
func (*Star) exprNode()         {}
func (*Tuple) exprNode()        {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*Paren) exprNode()        {}
func (*Func) exprNode()         {}
func (*Like) exprNode()         {}
func (*Cast) exprNode()         {}
func (*Collate) exprNode()      {}
func (*Window) exprNode()       {}
func (*Case) exprNode()         {}
func (*Raw) exprNode()          {}
func (*Between) exprNode()      {}
func (*IsNull) exprNode()       {}
func (*InList) exprNode()       {}
func (*InSubquery) exprNode()   {}
func (*Exists) exprNode()       {}
func (*Subquery) exprNode()     {}
func (*Rollup) exprNode()       {}
func (*Cube) exprNode()         {}
func (*GroupingSets) exprNode() {}

// Col builds an identifier from dotted parts: Col("t", "a") is t.a.
func Col(parts ...string) *Ident {
	return &Ident{Parts: parts}
}

// P builds a placeholder for v. It panics on values ir.Of cannot convert.
func P(v any) *Param {
	return &Param{Value: ir.MustOf(v)}
}

// Lit builds an inline literal for v. It panics on values ir.Of cannot convert.
func Lit(v any) *Literal {
	return &Literal{Value: ir.MustOf(v)}
}

// Null builds the NULL literal.
func Null() *Literal {
	return &Literal{Value: ir.Null{}}
}

// Bin builds a binary expression.
func Bin(l Expr, op string, r Expr) *Binary {
	return &Binary{Op: op, L: l, R: r}
}

// Eq builds l = r.
func Eq(l, r Expr) *Binary {
	return Bin(l, "=", r)
}

// And conjoins the non-nil predicates left-associatively.
// Returns nil when every input is nil.
func And(preds ...Expr) Expr {
	var out Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &Binary{Op: "AND", L: out, R: p}
	}
	return out
}

// Or disjoins the non-nil predicates left-associatively.
func Or(preds ...Expr) Expr {
	var out Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &Binary{Op: "OR", L: out, R: p}
	}
	return out
}
