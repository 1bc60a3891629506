package querysql

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/queryir"
)

// Binding strength, loosest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precConcat
	precAdd
	precMul
	precUnary
	precAtom
)

func binaryPrec(op string) int {
	switch strings.ToUpper(op) {
	case "OR":
		return precOr
	case "AND":
		return precAnd
	case "=", "<>", "!=", "<", ">", "<=", ">=", "IS", "IS NOT", "LIKE", "IN":
		return precCompare
	case "||":
		return precConcat
	case "+", "-":
		return precAdd
	case "*", "/", "%":
		return precMul
	default:
		return precCompare
	}
}

func associative(op string) bool {
	switch strings.ToUpper(op) {
	case "AND", "OR", "+", "*", "||":
		return true
	}
	return false
}

func exprPrec(e queryir.Expr) int {
	switch n := e.(type) {
	case *queryir.Binary:
		return binaryPrec(n.Op)
	case *queryir.Unary:
		if strings.EqualFold(n.Op, "NOT") {
			return precNot
		}
		return precUnary
	case *queryir.Like, *queryir.Between, *queryir.InList, *queryir.InSubquery:
		return precCompare
	case *queryir.Collate:
		return precUnary
	default:
		return precAtom
	}
}

// operandOf prints e, parenthesized when it binds looser than min.
func (p *printer) operandOf(e queryir.Expr, min int) {
	if exprPrec(e) < min {
		p.write("(")
		p.expr(e)
		p.write(")")
		return
	}
	p.expr(e)
}

func (p *printer) exprList(list []queryir.Expr) {
	for i, e := range list {
		if i > 0 {
			p.write(", ")
		}
		p.expr(e)
	}
}

// expr is the one recursive expression printer shared by every statement
// kind.
func (p *printer) expr(e queryir.Expr) {
	switch n := e.(type) {
	case nil:
		p.write("NULL")
	case *queryir.Ident:
		if to, ok := p.renames[n.Parts[0]]; ok && len(n.Parts) > 1 {
			p.path(append([]string{to}, n.Parts[1:]...))
			return
		}
		p.path(n.Parts)
	case *queryir.Param:
		p.placeholder(n.Value)
	case *queryir.Literal:
		p.literal(n.Value)
	case *queryir.Star:
		if n.Table != "" {
			p.write(p.ident(n.Table) + ".")
		}
		p.write("*")
	case *queryir.Tuple:
		p.write("(")
		p.exprList(n.Items)
		p.write(")")
	case *queryir.Unary:
		p.unary(n)
	case *queryir.Binary:
		p.binary(n)
	case *queryir.Paren:
		p.write("(")
		p.expr(n.X)
		p.write(")")
	case *queryir.Func:
		p.fn(n)
	case *queryir.Like:
		p.like(n)
	case *queryir.Cast:
		p.write("CAST(")
		p.expr(n.X)
		p.write(" AS " + n.Type + ")")
	case *queryir.Collate:
		p.operandOf(n.X, precAtom)
		p.write(" COLLATE " + n.Collation)
	case *queryir.Window:
		p.fn(n.Func)
		p.write(" OVER (")
		sep := ""
		if len(n.PartitionBy) > 0 {
			p.write("PARTITION BY ")
			p.exprList(n.PartitionBy)
			sep = " "
		}
		if len(n.OrderBy) > 0 {
			p.write(sep + "ORDER BY ")
			p.orderItems(n.OrderBy)
			sep = " "
		}
		if n.Frame != "" {
			p.write(sep + n.Frame)
		}
		p.write(")")
	case *queryir.Case:
		p.write("CASE")
		if n.Operand != nil {
			p.write(" ")
			p.expr(n.Operand)
		}
		for _, w := range n.Whens {
			p.write(" WHEN ")
			p.expr(w.Cond)
			p.write(" THEN ")
			p.expr(w.Result)
		}
		if n.Else != nil {
			p.write(" ELSE ")
			p.expr(n.Else)
		}
		p.write(" END")
	case *queryir.Raw:
		p.write(n.SQL)
	case *queryir.Between:
		p.operandOf(n.X, precConcat)
		if n.Not {
			p.write(" NOT")
		}
		p.write(" BETWEEN ")
		p.operandOf(n.Lo, precConcat)
		p.write(" AND ")
		p.operandOf(n.Hi, precConcat)
	case *queryir.InList:
		p.operandOf(n.X, precConcat)
		if n.Not {
			p.write(" NOT")
		}
		p.write(" IN (")
		p.exprList(n.List)
		p.write(")")
	case *queryir.InSubquery:
		p.operandOf(n.X, precConcat)
		if n.Not {
			p.write(" NOT")
		}
		p.write(" IN (")
		p.query(n.Query)
		p.write(")")
	case *queryir.Exists:
		if n.Not {
			p.write("NOT ")
		}
		p.write("EXISTS (")
		p.query(n.Query)
		p.write(")")
	case *queryir.Subquery:
		p.write("(")
		p.query(n.Query)
		p.write(")")
	}
}

func (p *printer) unary(n *queryir.Unary) {
	op := strings.ToUpper(n.Op)
	if op == "NOT" {
		p.write("NOT ")
		p.operandOf(n.X, precNot)
		return
	}
	p.write(n.Op)
	// Two adjacent minus signs would start a comment.
	if exprPrec(n.X) <= precUnary || negativeLiteral(n.X) {
		p.write("(")
		p.expr(n.X)
		p.write(")")
		return
	}
	p.expr(n.X)
}

func negativeLiteral(e queryir.Expr) bool {
	lit, ok := e.(*queryir.Literal)
	if !ok {
		return false
	}
	switch v := lit.Value.(type) {
	case ir.Int:
		return v < 0
	case ir.Decimal:
		return v.IsNegative()
	}
	return false
}

func (p *printer) binary(n *queryir.Binary) {
	// MySQL reads || as OR.
	if n.Op == "||" && p.is(dialect.MySQL) {
		p.write("CONCAT(")
		p.expr(n.L)
		p.write(", ")
		p.expr(n.R)
		p.write(")")
		return
	}

	prec := binaryPrec(n.Op)
	// Comparisons do not chain: a = b = c needs grouping on either side.
	if prec == precCompare {
		p.operandOf(n.L, precConcat)
	} else {
		p.operandOf(n.L, prec)
	}
	p.write(" " + strings.ToUpper(n.Op) + " ")

	rp := exprPrec(n.R)
	same := false
	if rb, ok := n.R.(*queryir.Binary); ok {
		same = strings.EqualFold(rb.Op, n.Op) && associative(n.Op)
	}
	if rp < prec || (rp == prec && !same) {
		p.write("(")
		p.expr(n.R)
		p.write(")")
		return
	}
	p.expr(n.R)
}

func (p *printer) fn(f *queryir.Func) {
	if f == nil {
		return
	}
	p.write(f.Name + "(")
	if f.Distinct {
		p.write("DISTINCT ")
	}
	p.exprList(f.Args)
	p.write(")")
}

func (p *printer) like(n *queryir.Like) {
	p.operandOf(n.X, precConcat)
	if n.Not {
		p.write(" NOT")
	}
	if n.ILike && p.caps.ILike {
		p.write(" ILIKE ")
	} else {
		p.write(" LIKE ")
	}
	p.operandOf(n.Pattern, precConcat)
	if n.Escape != nil {
		p.write(" ESCAPE ")
		p.operandOf(n.Escape, precConcat)
	}
}

func (p *printer) literal(v ir.Value) {
	switch val := v.(type) {
	case nil, ir.Null:
		p.write("NULL")
	case ir.String:
		p.write(p.quoteString(string(val)))
	case ir.Int:
		p.write(strconv.FormatInt(int64(val), 10))
	case ir.Decimal:
		p.write(val.String())
	case ir.Bool:
		if val {
			p.write("TRUE")
		} else {
			p.write("FALSE")
		}
	case ir.Bytes:
		if p.is(dialect.Postgres) {
			p.write(`'\x` + hex.EncodeToString(val) + `'::bytea`)
			return
		}
		p.write("X'" + hex.EncodeToString(val) + "'")
	}
}

func (p *printer) quoteString(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	if p.caps.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + s + "'"
}

// hasParam reports whether a placeholder is reachable from e at its own
// query level or inside a subquery.
func hasParam(e queryir.Expr) bool {
	return anyExpr(e, func(x queryir.Expr) bool {
		switch x.(type) {
		case *queryir.Param:
			return true
		case *queryir.InSubquery, *queryir.Exists, *queryir.Subquery:
			// Conservative: subqueries are never deduplicated.
			return true
		}
		return false
	})
}

// anyExpr reports whether match holds for e or any expression below it at
// the same query level. Subquery bodies are not entered; match sees the
// subquery node itself.
func anyExpr(e queryir.Expr, match func(queryir.Expr) bool) bool {
	if e == nil {
		return false
	}
	if match(e) {
		return true
	}
	anyOf := func(list []queryir.Expr) bool {
		for _, x := range list {
			if anyExpr(x, match) {
				return true
			}
		}
		return false
	}
	switch n := e.(type) {
	case *queryir.Tuple:
		return anyOf(n.Items)
	case *queryir.Unary:
		return anyExpr(n.X, match)
	case *queryir.Binary:
		return anyExpr(n.L, match) || anyExpr(n.R, match)
	case *queryir.Paren:
		return anyExpr(n.X, match)
	case *queryir.Func:
		return anyOf(n.Args)
	case *queryir.Like:
		return anyExpr(n.X, match) || anyExpr(n.Pattern, match) || anyExpr(n.Escape, match)
	case *queryir.Cast:
		return anyExpr(n.X, match)
	case *queryir.Collate:
		return anyExpr(n.X, match)
	case *queryir.Window:
		if n.Func != nil && anyOf(n.Func.Args) {
			return true
		}
		if anyOf(n.PartitionBy) {
			return true
		}
		for _, o := range n.OrderBy {
			if anyExpr(o.Expr, match) {
				return true
			}
		}
	case *queryir.Case:
		if anyExpr(n.Operand, match) || anyExpr(n.Else, match) {
			return true
		}
		for _, w := range n.Whens {
			if anyExpr(w.Cond, match) || anyExpr(w.Result, match) {
				return true
			}
		}
	case *queryir.Between:
		return anyExpr(n.X, match) || anyExpr(n.Lo, match) || anyExpr(n.Hi, match)
	case *queryir.InList:
		return anyExpr(n.X, match) || anyOf(n.List)
	case *queryir.InSubquery:
		return anyExpr(n.X, match)
	}
	return false
}
