package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/queryir"
)

// Result is rendered SQL text plus the values for its placeholders, in
// placeholder order.
type Result struct {
	SQL    string
	Params []ir.Value
}

// Args returns Params converted for database/sql.
func (r *Result) Args() []any {
	return ir.ToDriverSlice(r.Params)
}

// Renderer turns render trees into SQL text for one configuration.
// A Renderer is stateless and safe for concurrent use.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a Renderer for cfg.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render renders stmt with cfg. See (*Renderer).Render.
func Render(stmt queryir.Statement, cfg Config) (*Result, error) {
	return NewRenderer(cfg).Render(stmt)
}

// Render converts a render tree to parameterized SQL.
//
// Under the Strict policy the tree is checked with queryir.CheckFeatures
// first and an unsupported construct fails the render before any text is
// produced. Under Lenient every tree renders, degrading constructs the
// dialect lacks.
func (r *Renderer) Render(stmt queryir.Statement) (*Result, error) {
	if stmt == nil {
		return nil, fmt.Errorf("cannot render nil statement")
	}
	if err := queryir.CheckFeatures(stmt, r.cfg.Dialect, r.cfg.Policy); err != nil {
		return nil, err
	}

	p := newPrinter(r.cfg)
	switch s := stmt.(type) {
	case *queryir.Query:
		p.query(s)
	case *queryir.Insert:
		p.insert(s)
	case *queryir.Update:
		p.update(s)
	case *queryir.Delete:
		p.delete(s)
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
	return &Result{SQL: p.b.String(), Params: p.params}, nil
}

// printer is the state of one render. It is never shared.
type printer struct {
	cfg    Config
	caps   dialect.Capabilities
	style  dialect.PlaceholderStyle
	folder *dialect.Folder

	b      strings.Builder
	params []ir.Value

	// renames maps a qualifier to the one printed in its place.
	renames map[string]string
}

func newPrinter(cfg Config) *printer {
	return &printer{
		cfg:    cfg,
		caps:   cfg.Dialect.Caps(),
		style:  cfg.placeholderStyle(),
		folder: dialect.NewFolder(cfg.CaseFold),
	}
}

// scratch returns a printer with the same configuration whose output is
// discarded by the caller. It must only be used on parameter-free input.
func (p *printer) scratch() *printer {
	return &printer{cfg: p.cfg, caps: p.caps, style: p.style, folder: p.folder}
}

func (p *printer) write(s string) { p.b.WriteString(s) }

func (p *printer) is(d dialect.Dialect) bool { return p.cfg.Dialect == d }

func (p *printer) ident(name string) string {
	return dialect.Quote(p.folder.Fold(name), p.cfg.Dialect, p.cfg.Quoting, p.cfg.PreserveCase)
}

func (p *printer) path(parts []string) {
	for i, part := range parts {
		if i > 0 {
			p.write(".")
		}
		p.write(p.ident(part))
	}
}

func (p *printer) identList(names []string) {
	for i, n := range names {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.ident(n))
	}
}

func (p *printer) placeholder(v ir.Value) {
	p.params = append(p.params, v)
	if p.style == dialect.PlaceholderNumbered {
		p.write("$" + strconv.Itoa(len(p.params)))
		return
	}
	p.write("?")
}

func (p *printer) tableAlias(alias string) {
	if alias == "" {
		return
	}
	if p.cfg.TableAliasAS {
		p.write(" AS ")
	} else {
		p.write(" ")
	}
	p.write(p.ident(alias))
}

func (p *printer) table(t *queryir.Table) {
	if t.Schema != "" {
		p.write(p.ident(t.Schema) + ".")
	}
	p.write(p.ident(t.Name))
	p.tableAlias(t.Alias)
}

func exposed(t *queryir.Table) string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

func (p *printer) source(t queryir.TableSource) {
	switch n := t.(type) {
	case *queryir.Table:
		p.table(n)
	case *queryir.DerivedTable:
		if n.Lateral {
			p.write("LATERAL ")
		}
		p.write("(")
		p.query(n.Query)
		p.write(")")
		p.tableAlias(n.Alias)
	}
}

func (p *printer) joins(joins []queryir.Join) {
	for _, j := range joins {
		p.write(" " + j.Kind.Keyword() + " ")
		p.source(j.Table)
		switch {
		case len(j.Using) > 0:
			p.write(" USING (")
			p.identList(j.Using)
			p.write(")")
		case j.On != nil:
			p.write(" ON ")
			p.expr(j.On)
		}
	}
}

func (p *printer) items(items []queryir.SelectItem) {
	for i, it := range items {
		if i > 0 {
			p.write(", ")
		}
		p.expr(it.Expr)
		if it.Alias != "" {
			if p.cfg.ColumnAliasAS {
				p.write(" AS ")
			} else {
				p.write(" ")
			}
			p.write(p.ident(it.Alias))
		}
	}
}

func (p *printer) returning(items []queryir.SelectItem) {
	if len(items) == 0 || !p.caps.Returning {
		return
	}
	p.write(" RETURNING ")
	p.items(items)
}

func (p *printer) where(e queryir.Expr) {
	if e == nil {
		return
	}
	p.write(" WHERE ")
	p.expr(e)
}

// query renders WITH ... body ORDER BY ... LIMIT ...
func (p *printer) query(q *queryir.Query) {
	if q == nil {
		return
	}
	if q.With != nil && len(q.With.CTEs) > 0 {
		p.write("WITH ")
		if q.With.Recursive {
			p.write("RECURSIVE ")
		}
		for i, cte := range q.With.CTEs {
			if i > 0 {
				p.write(", ")
			}
			p.write(p.ident(cte.Name))
			if len(cte.Columns) > 0 {
				p.write(" (")
				p.identList(cte.Columns)
				p.write(")")
			}
			p.write(" AS ")
			if p.caps.MaterializedCTE {
				switch cte.Materialized {
				case queryir.Materialized:
					p.write("MATERIALIZED ")
				case queryir.NotMaterialized:
					p.write("NOT MATERIALIZED ")
				}
			}
			p.write("(")
			p.query(cte.Query)
			p.write(")")
		}
		p.write(" ")
	}
	p.body(q.Body)
	p.orderBy(q.OrderBy)
	p.limit(q.Limit, q.Offset)
}

func (p *printer) body(b queryir.Body) {
	switch n := b.(type) {
	case *queryir.Select:
		p.sel(n)
	case *queryir.SetOp:
		p.setOp(n)
	}
}

func setOpPrec(k queryir.SetOpKind) int {
	if k == queryir.Intersect {
		return 2
	}
	return 1
}

// setOp renders a compound query. INTERSECT binds tighter than UNION and
// EXCEPT except on SQLite, where all compound operators are equal and
// evaluated left to right. BY NAME has no rendering and is dropped.
func (p *printer) setOp(n *queryir.SetOp) {
	left := false
	if l, ok := n.Left.(*queryir.SetOp); ok && !p.is(dialect.SQLite) {
		left = setOpPrec(l.Op) < setOpPrec(n.Op)
	}
	p.operand(n.Left, left)

	p.write(" " + n.Op.String() + " ")
	if n.All {
		p.write("ALL ")
	}

	_, rightCompound := n.Right.(*queryir.SetOp)
	p.operand(n.Right, rightCompound)
}

// operand renders one side of a compound query, grouping it when forced
// or when it carries its own ORDER BY or LIMIT.
func (p *printer) operand(b queryir.Body, force bool) {
	if s, ok := b.(*queryir.Select); ok {
		force = force || len(s.OrderBy) > 0 || s.Limit != nil || s.Offset != nil
	}
	if !force {
		p.body(b)
		return
	}
	if p.is(dialect.SQLite) {
		// SQLite has no parenthesized compound operands.
		p.write("SELECT * FROM (")
		p.body(b)
		p.write(")")
		return
	}
	p.write("(")
	p.body(b)
	p.write(")")
}

func (p *printer) sel(s *queryir.Select) {
	p.write("SELECT ")
	switch {
	case len(s.DistinctOn) > 0 && p.caps.DistinctOn:
		p.write("DISTINCT ON (")
		p.exprList(s.DistinctOn)
		p.write(") ")
	case s.Distinct || len(s.DistinctOn) > 0:
		p.write("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		p.write("*")
	} else {
		p.items(s.Columns)
	}
	if s.From != nil {
		p.write(" FROM ")
		p.source(s.From)
	}
	p.joins(s.Joins)
	p.where(s.Where)
	p.groupBy(s.GroupBy)
	if s.Having != nil {
		p.write(" HAVING ")
		p.expr(s.Having)
	}
	p.orderBy(s.OrderBy)
	p.limit(s.Limit, s.Offset)
}
