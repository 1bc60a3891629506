package ast

// Assignment is one SET entry.
//
// When FromInserted is true the value is "whatever the row being inserted
// carries for Column" and Value is ignored; the renderer spells that per
// dialect (EXCLUDED.col, new.col).
type Assignment struct {
	Column       string
	Value        Expr
	FromInserted bool
}

// ConflictAction is what an upsert does on a key collision.
type ConflictAction int

const (
	DoNothing ConflictAction = iota
	DoUpdate
)

// OnConflict is the normalized upsert clause. Exactly one of Target and
// Constraint is normally set; both empty means "any conflict".
type OnConflict struct {
	Target     []string
	Constraint string
	Action     ConflictAction
	Set        []Assignment
	Where      Expr
}

// Insert is INSERT INTO table [(columns)] {VALUES rows | query | DEFAULT VALUES}.
type Insert struct {
	Table         *TableRef
	Columns       []string
	Rows          [][]Expr
	Query         *Query
	DefaultValues bool
	OnConflict    *OnConflict
	Returning     []SelectItem
}

// Update is UPDATE table SET ... [FROM ...] [WHERE ...] [RETURNING ...].
type Update struct {
	Table     *TableRef
	Set       []Assignment
	From      TableFactor
	Joins     []*Join
	Where     Expr
	Returning []SelectItem
}

// Delete is DELETE FROM table [USING ...] [WHERE ...] [RETURNING ...].
type Delete struct {
	Table     *TableRef
	Using     []TableFactor
	Where     Expr
	Returning []SelectItem
}
