package queryir

import "github.com/roach88/sqlopt/internal/ir"

// Statement is the root of a render tree.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode()
}

func (*Query) statementNode()  {}
func (*Insert) statementNode() {}
func (*Update) statementNode() {}
func (*Delete) statementNode() {}

// Query is WITH ... body ORDER BY ... LIMIT ... OFFSET ...
type Query struct {
	With    *With
	Body    Body
	OrderBy []OrderItem
	Limit   Expr
	Offset  Expr
}

// With is a WITH clause.
type With struct {
	Recursive bool
	CTEs      []CTE
}

// Materialization is a CTE materialization hint.
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

// Body is the body of a Query.
//
// This is a sealed interface - implemented by *Select and *SetOp.
type Body interface {
	bodyNode()
}

func (*Select) bodyNode() {}
func (*SetOp) bodyNode()  {}

// SetOpKind is UNION, INTERSECT or EXCEPT.
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

// SetOp composes two bodies left-associatively.
type SetOp struct {
	Op     SetOpKind
	All    bool
	ByName bool
	Left   Body
	Right  Body
}

// Select is one SELECT block.
type Select struct {
	Distinct   bool
	DistinctOn []Expr
	Columns    []SelectItem
	From       TableSource
	Joins      []Join
	Where      Expr
	GroupBy    *GroupBy
	Having     Expr
	OrderBy    []OrderItem
	Limit      Expr
	Offset     Expr
}

// SelectItem is one projection or RETURNING entry.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// TableSource is a FROM/JOIN/USING source.
//
// This is a sealed interface - implemented by *Table and *DerivedTable.
type TableSource interface {
	tableSourceNode()
}

func (*Table) tableSourceNode()        {}
func (*DerivedTable) tableSourceNode() {}

// Table is a named table.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// DerivedTable is a subquery in FROM position.
type DerivedTable struct {
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

// Keyword returns the SQL spelling of the join type.
func (k JoinKind) Keyword() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	case NaturalJoin:
		return "NATURAL JOIN"
	case NaturalLeftJoin:
		return "NATURAL LEFT JOIN"
	case NaturalRightJoin:
		return "NATURAL RIGHT JOIN"
	case NaturalFullJoin:
		return "NATURAL FULL JOIN"
	default:
		return "JOIN"
	}
}

// Join is one JOIN entry.
type Join struct {
	Kind  JoinKind
	Table TableSource
	On    Expr
	Using []string
}

// GroupKind is the single normalized GROUP BY modifier.
type GroupKind int

const (
	GroupPlain GroupKind = iota
	GroupRollup
	GroupCube
	GroupingSets
	GroupTotals
)

func (k GroupKind) String() string {
	switch k {
	case GroupRollup:
		return "ROLLUP"
	case GroupCube:
		return "CUBE"
	case GroupingSets:
		return "GROUPING SETS"
	case GroupTotals:
		return "WITH TOTALS"
	default:
		return "PLAIN"
	}
}

// GroupBy is a normalized GROUP BY clause.
//
// Plain holds ordinary grouping items. For GroupRollup, GroupCube and
// GroupTotals, Exprs holds the modifier's arguments; for GroupingSets, Sets
// holds the sets and Exprs is empty. Every expression appears once.
type GroupBy struct {
	Kind  GroupKind
	Plain []Expr
	Exprs []Expr
	Sets  [][]Expr
}

// Flatten returns every grouping expression in reading order: Plain, then
// Exprs, then each set's members.
func (g *GroupBy) Flatten() []Expr {
	if g == nil {
		return nil
	}
	out := make([]Expr, 0, len(g.Plain)+len(g.Exprs))
	out = append(out, g.Plain...)
	out = append(out, g.Exprs...)
	for _, set := range g.Sets {
		out = append(out, set...)
	}
	return out
}

// NullsOrder is an explicit NULLS FIRST/LAST request.
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

// Insert is INSERT INTO table ...
type Insert struct {
	Table         *Table
	Columns       []string
	Rows          [][]Expr
	Query         *Query
	DefaultValues bool
	OnConflict    *OnConflict
	Returning     []SelectItem
}

// Assignment is column = value, or column = <value from the inserted row>
// when FromInserted is set.
type Assignment struct {
	Column       string
	Value        Expr
	FromInserted bool
}

// OnConflict is the normalized upsert clause.
type OnConflict struct {
	Target     []string
	Constraint string
	DoUpdate   bool
	Set        []Assignment
	Where      Expr
}

// UsesInserted reports whether any assignment reads the inserted row.
func (oc *OnConflict) UsesInserted() bool {
	if oc == nil {
		return false
	}
	for _, a := range oc.Set {
		if a.FromInserted {
			return true
		}
	}
	return false
}

// Update is UPDATE table SET ...
type Update struct {
	Table     *Table
	Set       []Assignment
	From      TableSource
	Joins     []Join
	Where     Expr
	Returning []SelectItem
}

// Delete is DELETE FROM table ...
type Delete struct {
	Table     *Table
	Using     []TableSource
	Where     Expr
	Returning []SelectItem
}

// Expr is a render-tree expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode()
}

// Ident is a possibly qualified identifier path.
type Ident struct {
	Parts []string
}

// Param is a placeholder bound to Value.
type Param struct {
	Value ir.Value
}

// Literal is an inline constant. SQL NULL is Literal{Value: ir.Null{}}.
type Literal struct {
	Value ir.Value
}

// Star is * or table.*.
type Star struct {
	Table string
}

// Tuple is (a, b, ...).
type Tuple struct {
	Items []Expr
}

// Unary is a prefix operator.
type Unary struct {
	Op string
	X  Expr
}

// Binary is an infix operator, including IS and IS NOT.
type Binary struct {
	Op string
	L  Expr
	R  Expr
}

// Paren is an explicit parenthesization.
type Paren struct {
	X Expr
}

// Func is a function call.
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool
}

// Like is [NOT] LIKE or ILIKE.
type Like struct {
	X       Expr
	Pattern Expr
	Escape  Expr
	Not     bool
	ILike   bool
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

// Window is fn(...) OVER (...).
type Window struct {
	Func        *Func
	PartitionBy []Expr
	OrderBy     []OrderItem
	Frame       string
}

// When is one CASE arm.
type When struct {
	Cond   Expr
	Result Expr
}

// Case is CASE [operand] WHEN ... END.
type Case struct {
	Operand Expr
	Whens   []When
	Else    Expr
}

// Raw is verbatim SQL text.
type Raw struct {
	SQL string
}

// Between is kept only when flattening it would evaluate an operand twice.
type Between struct {
	X   Expr
	Lo  Expr
	Hi  Expr
	Not bool
}

// InList is x [NOT] IN (list).
type InList struct {
	X    Expr
	List []Expr
	Not  bool
}

// InSubquery is x [NOT] IN (query).
type InSubquery struct {
	X     Expr
	Query *Query
	Not   bool
}

// Exists is [NOT] EXISTS (query).
type Exists struct {
	Query *Query
	Not   bool
}

// Subquery is a scalar subquery.
type Subquery struct {
	Query *Query
}

func (*Ident) exprNode()      {}
func (*Param) exprNode()      {}
func (*Literal) exprNode()    {}
func (*Star) exprNode()       {}
func (*Tuple) exprNode()      {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Paren) exprNode()      {}
func (*Func) exprNode()       {}
func (*Like) exprNode()       {}
func (*Cast) exprNode()       {}
func (*Collate) exprNode()    {}
func (*Window) exprNode()     {}
func (*Case) exprNode()       {}
func (*Raw) exprNode()        {}
func (*Between) exprNode()    {}
func (*InList) exprNode()     {}
func (*InSubquery) exprNode() {}
func (*Exists) exprNode()     {}
func (*Subquery) exprNode()   {}
