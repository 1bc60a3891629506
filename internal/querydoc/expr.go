package querydoc

import (
	"encoding/hex"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/ir"
)

// exprKeys are the keys that name an expression form. A mapping in
// expression position holds exactly one of them.
var exprKeys = []string{
	"col", "lit", "hex", "param", "star", "op", "and", "or", "not", "fn",
	"in", "in_query", "exists", "between", "is_null", "like", "ilike",
	"cast", "collate", "case", "raw", "subquery", "tuple", "paren",
	"rollup", "cube", "grouping_sets",
}

var binaryOps = map[string]bool{
	"OR": true, "AND": true,
	"=": true, "<>": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"IS": true, "IS NOT": true,
	"||": true, "+": true, "-": true, "*": true, "/": true, "%": true,
}

var unaryOps = map[string]bool{"NOT": true, "-": true, "+": true, "~": true}

// expr decodes n in expression position.
func (b *builder) expr(path string, n *yaml.Node) ast.Expr {
	n = resolve(n)
	if n == nil {
		b.errorf(path, nil, "expression is required")
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" {
			return column(n.Value)
		}
		return b.literal(path, n)
	case yaml.MappingNode:
		o := b.object(path, n)
		e := b.exprFrom(o)
		o.finish()
		return e
	default:
		b.errorf(path, n, "expected an expression, got %s", kindName(n))
		return nil
	}
}

// value decodes n in value position: bare scalars are literals.
func (b *builder) value(path string, n *yaml.Node) ast.Expr {
	if r := resolve(n); r != nil && r.Kind == yaml.ScalarNode {
		return b.literal(path, r)
	}
	return b.expr(path, n)
}

func (b *builder) exprs(path string, n *yaml.Node) []ast.Expr {
	items := b.list(path, n, true)
	out := make([]ast.Expr, 0, len(items))
	for i, c := range items {
		out = append(out, b.expr(index(path, i), c))
	}
	return out
}

func (b *builder) values(path string, n *yaml.Node) []ast.Expr {
	items := b.list(path, n, false)
	out := make([]ast.Expr, 0, len(items))
	for i, c := range items {
		out = append(out, b.value(index(path, i), c))
	}
	return out
}

// column turns "t.a", "*" or "t.*" into an identifier or star.
func column(text string) ast.Expr {
	if text == "*" {
		return &ast.Star{}
	}
	if t, ok := strings.CutSuffix(text, ".*"); ok {
		return &ast.Star{Table: t}
	}
	return &ast.Ident{Parts: strings.Split(text, ".")}
}

func (b *builder) literal(path string, n *yaml.Node) ast.Expr {
	v, ok := b.scalar(path, n)
	if !ok {
		return nil
	}
	return &ast.Literal{Value: v}
}

// scalar converts a YAML scalar to an exact value. Numbers keep their
// written text, so 1.50 is the decimal 1.50 and never a float.
func (b *builder) scalar(path string, n *yaml.Node) (ir.Value, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		b.errorf(path, n, "expected a scalar value, got %s", kindName(n))
		return nil, false
	}
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, true
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			b.errorf(path, n, "invalid boolean %q", n.Value)
			return nil, false
		}
		return ir.Bool(v), true
	case "!!int":
		if v, err := ir.ParseNumber(n.Value); err == nil {
			return v, true
		}
		var v int64
		if err := n.Decode(&v); err != nil {
			b.errorf(path, n, "integer %s is out of range", n.Value)
			return nil, false
		}
		return ir.Int(v), true
	case "!!float":
		v, err := ir.ParseNumber(n.Value)
		if err != nil {
			b.errorf(path, n, "%s is not an exact number", n.Value)
			return nil, false
		}
		return v, true
	case "!!str", "":
		return ir.String(n.Value), true
	default:
		b.errorf(path, n, "unsupported scalar type %s", n.ShortTag())
		return nil, false
	}
}

// exprFrom decodes the expression form held by o. Keys that are not part
// of that form are left for the caller's finish to report.
func (b *builder) exprFrom(o *obj) ast.Expr {
	if o == nil {
		return nil
	}
	var forms []string
	for _, k := range exprKeys {
		if o.has(k) {
			forms = append(forms, k)
		}
	}
	switch len(forms) {
	case 0:
		b.errorf(o.path, o.node, "not an expression (want one of %s)", strings.Join(exprKeys, ", "))
		return nil
	case 1:
	default:
		b.errorf(o.path, o.node, "expression has more than one form: %s", strings.Join(forms, ", "))
		for _, k := range forms {
			o.get(k)
		}
		return nil
	}

	key := forms[0]
	path, n := o.sub(key), o.get(key)
	switch key {
	case "col":
		return b.colExpr(path, n)
	case "lit":
		return b.literal(path, n)
	case "hex":
		return b.hexLiteral(path, n)
	case "param":
		return b.param(path, n)
	case "star":
		if r := resolve(n); r != nil && r.ShortTag() == "!!null" {
			return &ast.Star{}
		}
		return &ast.Star{Table: o.str(key)}
	case "op":
		return b.operator(o, path, n)
	case "and":
		return ast.And(b.nonEmpty(path, n, b.exprs(path, n))...)
	case "or":
		return ast.Or(b.nonEmpty(path, n, b.exprs(path, n))...)
	case "not":
		return &ast.Unary{Op: "NOT", X: b.expr(path, n)}
	case "fn":
		return b.function(o)
	case "in":
		return &ast.InList{X: b.operand(o), List: b.nonEmpty(path, n, b.values(path, n)), Not: o.boolean("negate")}
	case "in_query":
		return &ast.InSubquery{X: b.operand(o), Query: b.query(path, n), Not: o.boolean("negate")}
	case "exists":
		return &ast.Exists{Query: b.query(path, n), Not: o.boolean("negate")}
	case "between":
		bounds := b.values(path, n)
		if len(bounds) != 2 {
			b.errorf(path, n, "between needs exactly two bounds, got %d", len(bounds))
			bounds = append(bounds, nil, nil)
		}
		return &ast.Between{X: b.operand(o), Lo: bounds[0], Hi: bounds[1], Not: o.boolean("negate")}
	case "is_null":
		return &ast.IsNull{X: b.expr(path, n), Not: o.boolean("negate")}
	case "like", "ilike":
		l := &ast.Like{
			X:               b.operand(o),
			Pattern:         b.value(path, n),
			Not:             o.boolean("negate"),
			CaseInsensitive: key == "ilike",
		}
		if o.has("escape") {
			l.Escape = b.value(o.sub("escape"), o.get("escape"))
		}
		return l
	case "cast":
		c := &ast.Cast{X: b.expr(path, n), Type: o.str("type")}
		if c.Type == "" {
			b.errorf(o.sub("type"), o.node, "cast needs a type")
		}
		return c
	case "collate":
		c := &ast.Collate{X: b.expr(path, n), Collation: o.str("collation")}
		if c.Collation == "" {
			b.errorf(o.sub("collation"), o.node, "collate needs a collation")
		}
		return c
	case "case":
		return b.caseExpr(path, n)
	case "raw":
		sql := o.str(key)
		if strings.TrimSpace(sql) == "" {
			b.errorf(path, n, "raw fragment is empty")
		}
		return &ast.Raw{SQL: sql}
	case "subquery":
		return &ast.Subquery{Query: b.query(path, n)}
	case "tuple":
		return &ast.Tuple{Items: b.nonEmpty(path, n, b.exprs(path, n))}
	case "paren":
		return &ast.Paren{X: b.expr(path, n)}
	case "rollup":
		return &ast.Rollup{Exprs: b.exprs(path, n)}
	case "cube":
		return &ast.Cube{Exprs: b.exprs(path, n)}
	case "grouping_sets":
		gs := &ast.GroupingSets{}
		for i, set := range b.list(path, n, false) {
			if r := resolve(set); r != nil && r.Kind == yaml.SequenceNode && len(r.Content) == 0 {
				gs.Sets = append(gs.Sets, nil)
				continue
			}
			gs.Sets = append(gs.Sets, b.exprs(index(path, i), set))
		}
		return gs
	}
	return nil
}

func (b *builder) nonEmpty(path string, n *yaml.Node, list []ast.Expr) []ast.Expr {
	if len(list) == 0 {
		b.errorf(path, n, "list must not be empty")
	}
	return list
}

// operand reads the x key that in, between and like test.
func (b *builder) operand(o *obj) ast.Expr {
	if !o.has("x") {
		b.errorf(o.sub("x"), o.node, "operand x is required")
		return nil
	}
	return b.expr(o.sub("x"), o.get("x"))
}

func (b *builder) colExpr(path string, n *yaml.Node) ast.Expr {
	r := resolve(n)
	if r != nil && r.Kind == yaml.ScalarNode && r.Value != "" {
		return &ast.Ident{Parts: strings.Split(r.Value, ".")}
	}
	if r != nil && r.Kind == yaml.SequenceNode && len(r.Content) > 0 {
		var parts []string
		for i, c := range r.Content {
			c = resolve(c)
			if c == nil || c.Kind != yaml.ScalarNode || c.Value == "" {
				b.errorf(index(path, i), c, "expected a name part, got %s", kindName(c))
				return nil
			}
			parts = append(parts, c.Value)
		}
		return &ast.Ident{Parts: parts}
	}
	b.errorf(path, n, "expected a column name, got %s", kindName(r))
	return nil
}

func (b *builder) hexBytes(path string, n *yaml.Node) (ir.Bytes, bool) {
	r := resolve(n)
	if r == nil || r.Kind != yaml.ScalarNode {
		b.errorf(path, r, "expected hex text, got %s", kindName(r))
		return nil, false
	}
	raw, err := hex.DecodeString(r.Value)
	if err != nil {
		b.errorf(path, r, "invalid hex: %v", err)
		return nil, false
	}
	return ir.Bytes(raw), true
}

func (b *builder) hexLiteral(path string, n *yaml.Node) ast.Expr {
	v, ok := b.hexBytes(path, n)
	if !ok {
		return nil
	}
	return &ast.Literal{Value: v}
}

// param decodes {param: v} and {param: {hex: ...}}.
func (b *builder) param(path string, n *yaml.Node) ast.Expr {
	r := resolve(n)
	if r != nil && r.Kind == yaml.MappingNode {
		o := b.object(path, r)
		v, ok := b.hexBytes(o.sub("hex"), o.get("hex"))
		o.finish()
		if !ok {
			return nil
		}
		return &ast.Param{Value: v}
	}
	v, ok := b.scalar(path, r)
	if !ok {
		return nil
	}
	return &ast.Param{Value: v}
}

func (b *builder) operator(o *obj, path string, n *yaml.Node) ast.Expr {
	op := strings.ToUpper(strings.Join(strings.Fields(o.str("op")), " "))
	argsPath := o.sub("args")
	args := b.exprs(argsPath, o.get("args"))

	switch {
	case len(args) == 1 && unaryOps[op]:
		return &ast.Unary{Op: op, X: args[0]}
	case len(args) == 2 && binaryOps[op]:
		return ast.Bin(args[0], op, args[1])
	case len(args) > 2 && op == "AND":
		return ast.And(args...)
	case len(args) > 2 && op == "OR":
		return ast.Or(args...)
	case !binaryOps[op] && !unaryOps[op]:
		b.errorf(path, n, "unknown operator %q", op)
	default:
		b.errorf(argsPath, o.node, "operator %s cannot take %d arguments", op, len(args))
	}
	return nil
}

func (b *builder) function(o *obj) ast.Expr {
	f := &ast.Func{Name: o.str("fn"), Distinct: o.boolean("distinct")}
	if f.Name == "" {
		b.errorf(o.sub("fn"), o.node, "function name is required")
	}
	if o.has("args") {
		f.Args = b.exprs(o.sub("args"), o.get("args"))
	}
	if !o.has("over") {
		return f
	}

	path := o.sub("over")
	w := &ast.Window{Func: f}
	over := b.object(path, o.get("over"))
	if over == nil {
		return w
	}
	if over.has("partition_by") {
		w.PartitionBy = b.exprs(over.sub("partition_by"), over.get("partition_by"))
	}
	if over.has("order_by") {
		w.OrderBy = b.orderBy(over.sub("order_by"), over.get("order_by"))
	}
	w.Frame = over.str("frame")
	over.finish()
	return w
}

func (b *builder) caseExpr(path string, n *yaml.Node) ast.Expr {
	o := b.object(path, n)
	if o == nil {
		return nil
	}
	c := &ast.Case{}
	if o.has("operand") {
		c.Operand = b.expr(o.sub("operand"), o.get("operand"))
	}
	whens := b.list(o.sub("whens"), o.get("whens"), false)
	if len(whens) == 0 {
		b.errorf(o.sub("whens"), o.node, "case needs at least one when")
	}
	for i, w := range whens {
		p := index(o.sub("whens"), i)
		wo := b.object(p, w)
		if wo == nil {
			continue
		}
		c.Whens = append(c.Whens, ast.When{
			Cond:   b.expr(wo.sub("when"), wo.get("when")),
			Result: b.value(wo.sub("then"), wo.get("then")),
		})
		wo.finish()
	}
	if o.has("else") {
		c.Else = b.value(o.sub("else"), o.get("else"))
	}
	o.finish()
	return c
}
