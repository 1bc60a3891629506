package querydoc

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ast"
)

var setOps = []struct {
	key string
	op  ast.SetOpKind
	all bool
}{
	{"union", ast.Union, false},
	{"union_all", ast.Union, true},
	{"intersect", ast.Intersect, false},
	{"intersect_all", ast.Intersect, true},
	{"except", ast.Except, false},
	{"except_all", ast.Except, true},
}

var queryKeys = []string{"with", "select", "order_by", "limit", "offset", "limit_all", "limit_comma"}

func isQueryKey(o *obj) bool {
	for _, k := range queryKeys {
		if o.has(k) {
			return true
		}
	}
	for _, s := range setOps {
		if o.has(s.key) {
			return true
		}
	}
	return false
}

// statement picks the statement kind from the root mapping.
func (b *builder) statement(o *obj) ast.Statement {
	var kinds []string
	for _, k := range []string{"insert", "update", "delete"} {
		if o.has(k) {
			kinds = append(kinds, k)
		}
	}
	if isQueryKey(o) {
		kinds = append(kinds, "query")
	}
	switch len(kinds) {
	case 0:
		b.errorf(o.path, o.node, "document holds no statement (want a query, insert, update or delete)")
		return nil
	case 1:
	default:
		b.errorf(o.path, o.node, "document holds more than one statement: %s", strings.Join(kinds, ", "))
		for _, k := range o.keys {
			o.get(k)
		}
		return nil
	}

	switch kinds[0] {
	case "insert":
		if s := b.insert(o.sub("insert"), o.get("insert")); s != nil {
			return s
		}
	case "update":
		if s := b.update(o.sub("update"), o.get("update")); s != nil {
			return s
		}
	case "delete":
		if s := b.delete(o.sub("delete"), o.get("delete")); s != nil {
			return s
		}
	default:
		return b.queryFrom(o)
	}
	return nil
}

// query decodes a mapping that is a whole query.
func (b *builder) query(path string, n *yaml.Node) *ast.Query {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	q := b.queryFrom(o)
	o.finish()
	return q
}

func (b *builder) queryFrom(o *obj) *ast.Query {
	q := &ast.Query{}
	if o.has("with") {
		q.With = b.with(o.sub("with"), o.get("with"))
	}
	q.Body = b.bodyFrom(o)
	if o.has("order_by") {
		q.OrderBy = b.orderBy(o.sub("order_by"), o.get("order_by"))
	}
	q.Limit = b.limitFrom(o)
	return q
}

func (b *builder) with(path string, n *yaml.Node) *ast.With {
	w := &ast.With{}
	var ctes []*yaml.Node
	if resolve(n) != nil && resolve(n).Kind == yaml.MappingNode {
		o := b.object(path, n)
		w.Recursive = o.boolean("recursive")
		ctes = b.list(o.sub("ctes"), o.get("ctes"), false)
		path = o.sub("ctes")
		o.finish()
	} else {
		ctes = b.list(path, n, false)
	}

	for i, c := range ctes {
		p := index(path, i)
		o := b.object(p, c)
		if o == nil {
			continue
		}
		cte := &ast.CTE{Name: o.str("name"), Columns: o.strings("columns")}
		if cte.Name == "" {
			b.errorf(p, o.node, "name is required")
		}
		if o.has("materialized") {
			if o.boolean("materialized") {
				cte.Materialized = ast.Materialized
			} else {
				cte.Materialized = ast.NotMaterialized
			}
		}
		if o.has("query") {
			cte.Query = b.query(o.sub("query"), o.get("query"))
		} else {
			b.errorf(p, o.node, "query is required")
		}
		o.finish()
		w.CTEs = append(w.CTEs, cte)
	}
	if len(w.CTEs) == 0 {
		b.errorf(path, n, "with needs at least one CTE")
	}
	return w
}

// bodyFrom reads the select block or set operation held by o.
func (b *builder) bodyFrom(o *obj) ast.SetExpr {
	var keys []string
	if o.has("select") {
		keys = append(keys, "select")
	}
	for _, s := range setOps {
		if o.has(s.key) {
			keys = append(keys, s.key)
		}
	}
	if len(keys) != 1 {
		if len(keys) == 0 {
			b.errorf(o.path, o.node, "query needs a select or a set operation")
		} else {
			b.errorf(o.path, o.node, "query has more than one body: %s", strings.Join(keys, ", "))
		}
		o.get("by_name")
		return nil
	}

	if keys[0] == "select" {
		if s := b.selectBlock(o.sub("select"), o.get("select")); s != nil {
			return s
		}
		return nil
	}
	for _, s := range setOps {
		if s.key != keys[0] {
			continue
		}
		byName := o.boolean("by_name")
		path := o.sub(s.key)
		operands := b.list(path, o.get(s.key), false)
		if len(operands) < 2 {
			b.errorf(path, o.node, "%s needs at least two operands", s.key)
			return nil
		}
		var out ast.SetExpr
		for i, n := range operands {
			body := b.body(index(path, i), n)
			if out == nil {
				out = body
				continue
			}
			out = &ast.SetOp{Op: s.op, All: s.all, ByName: byName, Left: out, Right: body}
		}
		return out
	}
	return nil
}

// body decodes a set-operation operand: {select: ...} or a nested set op.
func (b *builder) body(path string, n *yaml.Node) ast.SetExpr {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	body := b.bodyFrom(o)
	o.finish()
	return body
}

func (b *builder) selectBlock(path string, n *yaml.Node) *ast.Select {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	s := &ast.Select{Distinct: o.boolean("distinct")}
	if o.has("distinct_on") {
		s.DistinctOn = b.exprs(o.sub("distinct_on"), o.get("distinct_on"))
	}
	if o.has("columns") {
		s.Projection = b.items(o.sub("columns"), o.get("columns"))
	}
	if len(s.Projection) == 0 {
		b.errorf(path, o.node, "columns is required")
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
	if o.has("group_by") {
		s.GroupBy = b.groupBy(o.sub("group_by"), o.get("group_by"))
	}
	if o.has("having") {
		s.Having = b.expr(o.sub("having"), o.get("having"))
	}
	if o.has("order_by") {
		s.OrderBy = b.orderBy(o.sub("order_by"), o.get("order_by"))
	}
	s.Limit = b.limitFrom(o)
	o.finish()
	return s
}

// items decodes a projection or RETURNING list.
func (b *builder) items(path string, n *yaml.Node) []ast.SelectItem {
	var out []ast.SelectItem
	for i, c := range b.list(path, n, true) {
		p := index(path, i)
		c = resolve(c)
		if c == nil || c.Kind != yaml.MappingNode {
			out = append(out, ast.SelectItem{Expr: b.expr(p, c)})
			continue
		}
		o := b.object(p, c)
		item := ast.SelectItem{Alias: o.str("as")}
		if o.has("expr") {
			item.Expr = b.expr(o.sub("expr"), o.get("expr"))
		} else {
			item.Expr = b.exprFrom(o)
		}
		o.finish()
		out = append(out, item)
	}
	return out
}

func (b *builder) tableRef(path string, n *yaml.Node) *ast.TableRef {
	n = resolve(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		return splitTable(n.Value)
	}
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	t := b.tableFrom(o)
	o.finish()
	return t
}

func (b *builder) tableFrom(o *obj) *ast.TableRef {
	t := splitTable(o.str("table"))
	if t.Name == "" {
		b.errorf(o.path, o.node, "table name is required")
	}
	if s := o.str("schema"); s != "" {
		t.Schema = s
	}
	t.Alias = o.str("as")
	return t
}

func splitTable(name string) *ast.TableRef {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return &ast.TableRef{Schema: schema, Name: table}
	}
	return &ast.TableRef{Name: name}
}

func (b *builder) tableFactor(path string, n *yaml.Node) ast.TableFactor {
	n = resolve(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		return splitTable(n.Value)
	}
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	t := b.factorFrom(o)
	o.finish()
	return t
}

// factorFrom reads a base table or a derived table from o.
func (b *builder) factorFrom(o *obj) ast.TableFactor {
	if o.has("subquery") {
		if o.has("table") {
			b.errorf(o.path, o.node, "table and subquery are mutually exclusive")
		}
		d := &ast.Derived{
			Query:   b.query(o.sub("subquery"), o.get("subquery")),
			Alias:   o.str("as"),
			Lateral: o.boolean("lateral"),
		}
		if d.Alias == "" {
			b.errorf(o.path, o.node, "a derived table needs an alias (as)")
		}
		return d
	}
	return b.tableFrom(o)
}

var joinKinds = map[string]ast.JoinKind{
	"":              ast.InnerJoin,
	"inner":         ast.InnerJoin,
	"left":          ast.LeftJoin,
	"right":         ast.RightJoin,
	"full":          ast.FullJoin,
	"cross":         ast.CrossJoin,
	"natural":       ast.NaturalJoin,
	"natural_left":  ast.NaturalLeftJoin,
	"natural_right": ast.NaturalRightJoin,
	"natural_full":  ast.NaturalFullJoin,
}

func (b *builder) joins(path string, n *yaml.Node) []*ast.Join {
	var out []*ast.Join
	for i, c := range b.list(path, n, false) {
		p := index(path, i)
		o := b.object(p, c)
		if o == nil {
			continue
		}
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(o.str("kind"))), " ", "_")
		kind, ok := joinKinds[name]
		if !ok {
			b.errorf(o.sub("kind"), o.node, "unknown join kind %q", name)
		}
		j := &ast.Join{Kind: kind, Table: b.factorFrom(o), Using: o.strings("using")}
		if o.has("on") {
			j.On = b.expr(o.sub("on"), o.get("on"))
		}

		conditionless := kind == ast.CrossJoin || kind >= ast.NaturalJoin
		switch {
		case j.On != nil && len(j.Using) > 0:
			b.errorf(p, o.node, "on and using are mutually exclusive")
		case conditionless && (j.On != nil || len(j.Using) > 0):
			b.errorf(p, o.node, "%s join takes no on or using", name)
		case !conditionless && j.On == nil && len(j.Using) == 0:
			b.errorf(p, o.node, "join needs on or using")
		}
		o.finish()
		out = append(out, j)
	}
	return out
}

var groupModifiers = map[string]ast.GroupModifier{
	"":       ast.GroupNoModifier,
	"rollup": ast.GroupWithRollup,
	"cube":   ast.GroupWithCube,
	"totals": ast.GroupWithTotals,
}

func (b *builder) groupBy(path string, n *yaml.Node) *ast.GroupBy {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return &ast.GroupBy{Exprs: b.exprs(path, n)}
	}
	o := b.object(path, n)
	g := &ast.GroupBy{}
	if o.has("exprs") {
		g.Exprs = b.exprs(o.sub("exprs"), o.get("exprs"))
	} else {
		g.Exprs = []ast.Expr{b.exprFrom(o)}
	}
	name := strings.ToLower(o.str("modifier"))
	mod, ok := groupModifiers[name]
	if !ok {
		b.errorf(o.sub("modifier"), o.node, "unknown group by modifier %q (want rollup, cube or totals)", name)
	}
	g.Modifier = mod
	o.finish()
	return g
}

func (b *builder) orderBy(path string, n *yaml.Node) []ast.OrderItem {
	var out []ast.OrderItem
	for i, c := range b.list(path, n, true) {
		p := index(path, i)
		c = resolve(c)
		if c == nil || c.Kind != yaml.MappingNode {
			out = append(out, ast.OrderItem{Expr: b.expr(p, c)})
			continue
		}
		o := b.object(p, c)
		item := ast.OrderItem{Desc: o.boolean("desc")}
		switch nulls := strings.ToLower(o.str("nulls")); nulls {
		case "":
		case "first":
			item.Nulls = ast.NullsFirst
		case "last":
			item.Nulls = ast.NullsLast
		default:
			b.errorf(o.sub("nulls"), o.node, "unknown nulls order %q (want first or last)", nulls)
		}
		if o.has("expr") {
			item.Expr = b.expr(o.sub("expr"), o.get("expr"))
		} else {
			item.Expr = b.exprFrom(o)
		}
		o.finish()
		out = append(out, item)
	}
	return out
}

// limitFrom reads limit, offset, limit_all and limit_comma from o.
func (b *builder) limitFrom(o *obj) *ast.Limit {
	if !o.has("limit") && !o.has("offset") && !o.has("limit_all") && !o.has("limit_comma") {
		return nil
	}
	l := &ast.Limit{All: o.boolean("limit_all"), Comma: o.boolean("limit_comma")}
	if o.has("limit") {
		l.Count = b.value(o.sub("limit"), o.get("limit"))
	}
	if o.has("offset") {
		l.Offset = b.value(o.sub("offset"), o.get("offset"))
	}
	switch {
	case l.All && l.Count != nil:
		b.errorf(o.sub("limit_all"), o.node, "limit_all and limit are mutually exclusive")
	case l.Comma && (l.Count == nil || l.Offset == nil):
		b.errorf(o.sub("limit_comma"), o.node, "limit_comma needs both limit and offset")
	case l.Count == nil && l.Offset == nil && !l.All:
		return nil
	}
	return l
}
