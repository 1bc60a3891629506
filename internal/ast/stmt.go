package ast

// Statement is the root of one compilation unit.
// Implemented by *Query, *Insert, *Update and *Delete.
type Statement interface {
	statementNode()
}

func (*Query) statementNode()  {}
func (*Insert) statementNode() {}
func (*Update) statementNode() {}
func (*Delete) statementNode() {}

// Query is a full query expression: optional WITH clause, a body, and the
// statement-level ORDER BY / LIMIT that apply to the body as a whole.
//
// Query is also the node type for every subquery (derived tables, EXISTS,
// IN-subqueries, scalar subqueries, CTE bodies).
type Query struct {
	With    *With
	Body    SetExpr
	OrderBy []OrderItem
	Limit   *Limit
}

// With is a WITH clause: an ordered list of named CTEs.
type With struct {
	Recursive bool
	CTEs      []*CTE
}

// Materialization is the optional CTE materialization hint.
type Materialization int

const (
	MaterializeDefault Materialization = iota
	Materialized
	NotMaterialized
)

// CTE is one named common table expression.
type CTE struct {
	Name         string
	Columns      []string
	Materialized Materialization
	Query        *Query
}

// SetExpr is the body of a Query.
// Implemented by *Select and *SetOp.
type SetExpr interface {
	setExprNode()
}

func (*Select) setExprNode() {}
func (*SetOp) setExprNode()  {}

// SetOpKind names a set operation.
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// SetOp composes two bodies. Chains are left-associative: a UNION b UNION c
// is SetOp{Left: SetOp{a, b}, Right: c}.
type SetOp struct {
	Op     SetOpKind
	All    bool
	ByName bool
	Left   SetExpr
	Right  SetExpr
}

// Select is one SELECT block.
type Select struct {
	Distinct   bool
	DistinctOn []Expr
	Projection []SelectItem
	From       TableFactor // nil for SELECT without FROM
	Joins      []*Join
	Where      Expr
	GroupBy    *GroupBy
	Having     Expr
	OrderBy    []OrderItem
	Limit      *Limit
}

// SelectItem is one projection entry. Expr is a *Star for `*` and `t.*`.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// TableFactor is a FROM or JOIN source.
// Implemented by *TableRef and *Derived.
type TableFactor interface {
	tableFactorNode()
}

func (*TableRef) tableFactorNode() {}
func (*Derived) tableFactorNode()  {}

// TableRef names a base table (or CTE).
type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

// Exposed returns the name other clauses use to qualify this table's
// columns: the alias when present, else the table name.
func (t *TableRef) Exposed() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Derived is a subquery in FROM position.
type Derived struct {
	Query   *Query
	Alias   string
	Lateral bool
}

// JoinKind is the join type.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
	NaturalJoin
	NaturalLeftJoin
	NaturalRightJoin
	NaturalFullJoin
)

// NullsLeft reports whether rows of the left-hand side may come out
// null-extended.
func (k JoinKind) NullsLeft() bool {
	switch k {
	case RightJoin, FullJoin, NaturalRightJoin, NaturalFullJoin:
		return true
	}
	return false
}

// NullsRight reports whether the joined table may come out null-extended.
func (k JoinKind) NullsRight() bool {
	switch k {
	case LeftJoin, FullJoin, NaturalLeftJoin, NaturalFullJoin:
		return true
	}
	return false
}

// Join is one JOIN clause entry.
type Join struct {
	Kind  JoinKind
	Table TableFactor
	On    Expr
	Using []string
}

// GroupModifier is a trailing GROUP BY modifier written after the list
// (MySQL `WITH ROLLUP`, ClickHouse `WITH CUBE` / `WITH TOTALS`).
type GroupModifier int

const (
	GroupNoModifier GroupModifier = iota
	GroupWithRollup
	GroupWithCube
	GroupWithTotals
)

// GroupBy is a GROUP BY clause as written. Items may themselves be
// *Rollup, *Cube or *GroupingSets nodes (the function-call spelling).
type GroupBy struct {
	Exprs    []Expr
	Modifier GroupModifier
}

// NullsOrder is an explicit NULLS FIRST / NULLS LAST request.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr  Expr
	Desc  bool
	Nulls NullsOrder
}

// Limit is a LIMIT/OFFSET clause in the form it was written.
//
//   - LIMIT n [OFFSET m]      Count=n, Offset=m
//   - LIMIT m, n  (MySQL)     Count=n, Offset=m, Comma=true
//   - LIMIT ALL [OFFSET m]    All=true, Count=nil
//   - OFFSET m                Count=nil, Offset=m
type Limit struct {
	Count  Expr
	Offset Expr
	All    bool
	Comma  bool
}

// HasRowBound reports whether the clause restricts which rows survive.
func (l *Limit) HasRowBound() bool {
	if l == nil {
		return false
	}
	return (l.Count != nil && !l.All) || l.Offset != nil
}
