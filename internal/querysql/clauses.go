package querysql

import (
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/queryir"
)

func (p *printer) orderBy(items []queryir.OrderItem) {
	if len(items) == 0 {
		return
	}
	p.write(" ORDER BY ")
	p.orderItems(items)
}

func (p *printer) orderItems(items []queryir.OrderItem) {
	for i, o := range items {
		if i > 0 {
			p.write(", ")
		}
		if o.Nulls != queryir.NullsDefault && !p.caps.NullsOrdering && p.cfg.EmulateNullsOrdering {
			// false sorts before true: NULLS FIRST wants IS NULL descending.
			p.write("(")
			p.operandOf(o.Expr, precConcat)
			p.write(" IS NULL)")
			if o.Nulls == queryir.NullsFirst {
				p.write(" DESC")
			} else {
				p.write(" ASC")
			}
			p.write(", ")
		}
		p.expr(o.Expr)
		if o.Desc {
			p.write(" DESC")
		}
		if p.caps.NullsOrdering {
			switch o.Nulls {
			case queryir.NullsFirst:
				p.write(" NULLS FIRST")
			case queryir.NullsLast:
				p.write(" NULLS LAST")
			}
		}
	}
}

// groupBy prints the normalized GROUP BY. Modifiers the dialect lacks are
// dropped and their members printed as a plain list.
func (p *printer) groupBy(g *queryir.GroupBy) {
	if g == nil {
		return
	}
	native := false
	switch g.Kind {
	case queryir.GroupRollup:
		native = p.caps.Grouping.Has(dialect.GroupingRollup)
	case queryir.GroupCube:
		native = p.caps.Grouping.Has(dialect.GroupingCube)
	case queryir.GroupingSets:
		native = p.caps.Grouping.Has(dialect.GroupingSets)
	}

	if native {
		p.write(" GROUP BY ")
		p.exprList(g.Plain)
		if len(g.Plain) > 0 {
			p.write(", ")
		}
		switch g.Kind {
		case queryir.GroupRollup:
			p.write("ROLLUP (")
			p.exprList(g.Exprs)
			p.write(")")
		case queryir.GroupCube:
			p.write("CUBE (")
			p.exprList(g.Exprs)
			p.write(")")
		case queryir.GroupingSets:
			p.write("GROUPING SETS (")
			for i, set := range g.Sets {
				if i > 0 {
					p.write(", ")
				}
				p.write("(")
				p.exprList(set)
				p.write(")")
			}
			p.write(")")
		}
		return
	}

	flat := g.Flatten()
	if g.Kind == queryir.GroupingSets {
		flat = p.dedupe(flat)
	}
	if len(flat) == 0 {
		return
	}
	p.write(" GROUP BY ")
	p.exprList(flat)
	if g.Kind == queryir.GroupRollup && p.caps.RollupSuffix {
		p.write(" WITH ROLLUP")
	}
}

// dedupe drops repeated parameter-free expressions by their rendered text.
// Expressions holding placeholders are always kept so that no bound value
// is lost.
func (p *printer) dedupe(list []queryir.Expr) []queryir.Expr {
	seen := make(map[string]bool, len(list))
	out := make([]queryir.Expr, 0, len(list))
	for _, e := range list {
		if hasParam(e) {
			out = append(out, e)
			continue
		}
		s := p.scratch()
		s.expr(e)
		key := s.b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// limit prints LIMIT/OFFSET. Dialects whose grammar needs a count before
// OFFSET get the capability table's unbounded count.
func (p *printer) limit(limit, offset queryir.Expr) {
	if limit == nil && offset == nil {
		return
	}
	unbounded := p.caps.UnboundedLimit

	if p.is(dialect.MySQL) && p.cfg.MySQLLimit == dialect.OffsetCommaLimit && offset != nil {
		p.write(" LIMIT ")
		p.expr(offset)
		p.write(", ")
		if limit != nil {
			p.expr(limit)
		} else {
			p.write(unbounded)
		}
		return
	}

	switch {
	case limit != nil:
		p.write(" LIMIT ")
		p.expr(limit)
	case unbounded != "":
		// OFFSET alone: SQLite reads a negative count as no limit, MySQL
		// takes the largest unsigned count.
		p.write(" LIMIT " + unbounded)
	}
	if offset != nil {
		p.write(" OFFSET ")
		p.expr(offset)
	}
}
