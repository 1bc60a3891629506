package querydoc

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ast"
)

func (b *builder) target(o *obj) *ast.TableRef {
	if !o.has("table") {
		b.errorf(o.sub("table"), o.node, "target table is required")
		return nil
	}
	return b.tableRef(o.sub("table"), o.get("table"))
}

func (b *builder) returning(o *obj) []ast.SelectItem {
	if !o.has("returning") {
		return nil
	}
	return b.items(o.sub("returning"), o.get("returning"))
}

func (b *builder) insert(path string, n *yaml.Node) *ast.Insert {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	s := &ast.Insert{
		Table:         b.target(o),
		Columns:       o.strings("columns"),
		DefaultValues: o.boolean("default_values"),
	}

	sources := 0
	if s.DefaultValues {
		sources++
		if len(s.Columns) > 0 {
			b.errorf(o.sub("columns"), o.node, "default_values takes no column list")
		}
	}
	if o.has("values") {
		sources++
		s.Rows = b.rows(o.sub("values"), o.get("values"), len(s.Columns))
	}
	if o.has("query") {
		sources++
		s.Query = b.query(o.sub("query"), o.get("query"))
	}
	if sources != 1 {
		b.errorf(path, o.node, "insert needs exactly one of values, query or default_values")
	}

	if o.has("on_conflict") {
		s.OnConflict = b.onConflict(o.sub("on_conflict"), o.get("on_conflict"))
	}
	s.Returning = b.returning(o)
	o.finish()
	return s
}

// rows decodes VALUES rows. Every row must have width values; width 0
// means the first row decides.
func (b *builder) rows(path string, n *yaml.Node, width int) [][]ast.Expr {
	var out [][]ast.Expr
	list := b.list(path, n, false)
	if len(list) == 0 {
		b.errorf(path, n, "values needs at least one row")
	}
	for i, r := range list {
		p := index(path, i)
		row := b.values(p, r)
		if width == 0 {
			width = len(row)
		}
		if len(row) != width {
			b.errorf(p, r, "row has %d values, want %d", len(row), width)
		}
		out = append(out, row)
	}
	return out
}

func (b *builder) onConflict(path string, n *yaml.Node) *ast.OnConflict {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	oc := &ast.OnConflict{
		Target:     o.strings("target"),
		Constraint: o.str("constraint"),
	}
	if len(oc.Target) > 0 && oc.Constraint != "" {
		b.errorf(path, o.node, "target and constraint are mutually exclusive")
	}
	if o.has("set") {
		oc.Set = b.assignments(o.sub("set"), o.get("set"))
	}

	action := strings.ToLower(o.str("action"))
	switch {
	case action == "nothing" || (action == "" && len(oc.Set) == 0):
		oc.Action = ast.DoNothing
		if len(oc.Set) > 0 {
			b.errorf(o.sub("set"), o.node, "do nothing takes no set list")
		}
	case action == "update" || action == "":
		oc.Action = ast.DoUpdate
		if len(oc.Set) == 0 {
			b.errorf(o.sub("set"), o.node, "do update needs a set list")
		}
	default:
		b.errorf(o.sub("action"), o.node, "unknown conflict action %q (want nothing or update)", action)
	}

	if o.has("where") {
		oc.Where = b.expr(o.sub("where"), o.get("where"))
		if oc.Action != ast.DoUpdate {
			b.errorf(o.sub("where"), o.node, "where applies only to do update")
		}
	}
	o.finish()
	return oc
}

// assignments decodes SET entries: {column: c, value: v} or
// {column: c, inserted: true}.
func (b *builder) assignments(path string, n *yaml.Node) []ast.Assignment {
	var out []ast.Assignment
	list := b.list(path, n, false)
	if len(list) == 0 {
		b.errorf(path, n, "set needs at least one assignment")
	}
	for i, c := range list {
		p := index(path, i)
		o := b.object(p, c)
		if o == nil {
			continue
		}
		a := ast.Assignment{Column: o.str("column"), FromInserted: o.boolean("inserted")}
		if a.Column == "" {
			b.errorf(p, o.node, "column is required")
		}
		switch {
		case a.FromInserted && o.has("value"):
			b.errorf(p, o.node, "value and inserted are mutually exclusive")
			o.get("value")
		case o.has("value"):
			a.Value = b.value(o.sub("value"), o.get("value"))
		case !a.FromInserted:
			b.errorf(p, o.node, "assignment needs a value")
		}
		o.finish()
		out = append(out, a)
	}
	return out
}

func (b *builder) update(path string, n *yaml.Node) *ast.Update {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	s := &ast.Update{Table: b.target(o)}
	if o.has("set") {
		s.Set = b.assignments(o.sub("set"), o.get("set"))
	} else {
		b.errorf(o.sub("set"), o.node, "update needs a set list")
	}
	for _, a := range s.Set {
		if a.FromInserted {
			b.errorf(o.sub("set"), o.node, "inserted values exist only in on_conflict")
			break
		}
	}
	if o.has("from") {
		s.From = b.tableFactor(o.sub("from"), o.get("from"))
	}
	if o.has("joins") {
		s.Joins = b.joins(o.sub("joins"), o.get("joins"))
		if s.From == nil {
			b.errorf(o.sub("joins"), o.node, "joins need a from table")
		}
	}
	if o.has("where") {
		s.Where = b.expr(o.sub("where"), o.get("where"))
	}
	s.Returning = b.returning(o)
	o.finish()
	return s
}

func (b *builder) delete(path string, n *yaml.Node) *ast.Delete {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	s := &ast.Delete{Table: b.target(o)}
	if o.has("using") {
		p := o.sub("using")
		for i, t := range b.list(p, o.get("using"), true) {
			if f := b.tableFactor(index(p, i), t); f != nil {
				s.Using = append(s.Using, f)
			}
		}
	}
	if o.has("where") {
		s.Where = b.expr(o.sub("where"), o.get("where"))
	}
	s.Returning = b.returning(o)
	o.finish()
	return s
}
