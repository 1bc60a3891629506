package querysql

import (
	"maps"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/queryir"
)

const (
	// mysqlRowAlias names the inserted row in ON DUPLICATE KEY UPDATE.
	mysqlRowAlias = "new"
	// mysqlUpsertVar holds the upsert predicate as evaluated on the old row.
	mysqlUpsertVar = "@sqlopt_upsert"
	// upsertSourceAlias names a SELECT source wrapped to carry a WHERE.
	upsertSourceAlias = "src"
)

func (p *printer) insert(s *queryir.Insert) {
	oc := s.OnConflict
	ignore := oc != nil && !oc.DoUpdate

	p.write(p.insertPrefix(ignore))
	if s.Table.Schema != "" {
		p.write(p.ident(s.Table.Schema) + ".")
	}
	p.write(p.ident(s.Table.Name))
	// INSERT only accepts the AS spelling of a table alias. MySQL accepts
	// none, so its references to the alias print the table name instead.
	if s.Table.Alias != "" && !p.is(dialect.MySQL) {
		p.write(" AS " + p.ident(s.Table.Alias))
	}
	if len(s.Columns) > 0 {
		p.write(" (")
		p.identList(s.Columns)
		p.write(")")
	}

	// MySQL names the inserted row with a row alias after VALUES.
	rowAlias := p.is(dialect.MySQL) && oc != nil && oc.DoUpdate && oc.UsesInserted() && s.Query == nil

	switch {
	case s.Query != nil:
		p.write(" ")
		p.query(p.upsertSource(s))
	case s.DefaultValues || len(s.Rows) == 0:
		if p.is(dialect.MySQL) {
			p.write(" VALUES ()")
		} else {
			p.write(" DEFAULT VALUES")
		}
	default:
		p.write(" VALUES ")
		for i, row := range s.Rows {
			if i > 0 {
				p.write(", ")
			}
			p.write("(")
			p.exprList(row)
			p.write(")")
		}
	}
	if rowAlias {
		p.write(" AS " + p.ident(mysqlRowAlias))
	}

	if oc != nil {
		if p.is(dialect.MySQL) && s.Table.Alias != "" {
			p.renames = map[string]string{s.Table.Alias: s.Table.Name}
		}
		p.onConflict(s, oc)
		p.renames = nil
	}
	p.returning(s.Returning)
}

// upsertSource returns the SELECT source of s. SQLite parses an ON that
// follows a WHERE-less SELECT ... FROM as a join constraint, so under DO
// UPDATE the source always carries a WHERE.
func (p *printer) upsertSource(s *queryir.Insert) *queryir.Query {
	q := s.Query
	if !p.is(dialect.SQLite) || s.OnConflict == nil || !s.OnConflict.DoUpdate {
		return q
	}
	always := &queryir.Literal{Value: ir.Bool(true)}
	if sel, ok := q.Body.(*queryir.Select); ok {
		if sel.Where != nil {
			return q
		}
		body := *sel
		body.Where = always
		out := *q
		out.Body = &body
		return &out
	}
	return &queryir.Query{Body: &queryir.Select{
		Columns: []queryir.SelectItem{{Expr: &queryir.Star{}}},
		From:    &queryir.DerivedTable{Query: q, Alias: upsertSourceAlias},
		Where:   always,
	}}
}

func (p *printer) insertPrefix(ignore bool) string {
	switch {
	case ignore && p.is(dialect.MySQL):
		return "INSERT IGNORE INTO "
	case ignore && p.is(dialect.SQLite):
		return "INSERT OR IGNORE INTO "
	default:
		return "INSERT INTO "
	}
}

func (p *printer) onConflict(s *queryir.Insert, oc *queryir.OnConflict) {
	if p.is(dialect.MySQL) {
		if !oc.DoUpdate {
			return
		}
		p.write(" ON DUPLICATE KEY UPDATE ")
		// Assignments run left to right and later ones see earlier results.
		// Columns the predicate reads are assigned last; when it reads more
		// than one, the first assignment records its verdict for the rest.
		set, reads := oc.Set, upsertReads(oc)
		if len(reads) > 0 {
			set = make([]queryir.Assignment, 0, len(oc.Set))
			for _, a := range oc.Set {
				if !reads[a.Column] {
					set = append(set, a)
				}
			}
			for _, a := range oc.Set {
				if reads[a.Column] {
					set = append(set, a)
				}
			}
		}
		capture := len(reads) > 1
		for i, a := range set {
			if i > 0 {
				p.write(", ")
			}
			p.write(p.ident(a.Column) + " = ")
			// MySQL has no upsert predicate: keep the old value when it fails.
			if oc.Where != nil {
				p.write("IF(")
				switch {
				case capture && i == 0:
					p.write("(" + mysqlUpsertVar + " := ")
					p.expr(oc.Where)
					p.write(")")
				case capture:
					p.write(mysqlUpsertVar)
				default:
					p.expr(oc.Where)
				}
				p.write(", ")
				p.assignedValue(s, a)
				p.write(", " + p.ident(a.Column) + ")")
				continue
			}
			p.assignedValue(s, a)
		}
		return
	}

	if !oc.DoUpdate && p.is(dialect.SQLite) {
		return
	}
	p.write(" ON CONFLICT")
	switch {
	case len(oc.Target) > 0:
		p.write(" (")
		p.identList(oc.Target)
		p.write(")")
	case oc.Constraint != "" && p.is(dialect.Postgres):
		p.write(" ON CONSTRAINT " + p.ident(oc.Constraint))
	}
	if !oc.DoUpdate {
		p.write(" DO NOTHING")
		return
	}
	p.write(" DO UPDATE SET ")
	for i, a := range oc.Set {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.ident(a.Column) + " = ")
		p.assignedValue(s, a)
	}
	p.where(oc.Where)
}

// upsertReads returns the assigned columns the upsert predicate reads. A
// subquery in the predicate counts as reading all of them.
func upsertReads(oc *queryir.OnConflict) map[string]bool {
	reads := make(map[string]bool)
	if oc.Where == nil {
		return reads
	}
	assigned := make(map[string]bool, len(oc.Set))
	for _, a := range oc.Set {
		assigned[a.Column] = true
	}
	anyExpr(oc.Where, func(x queryir.Expr) bool {
		switch n := x.(type) {
		case *queryir.Ident:
			col := n.Parts[len(n.Parts)-1]
			if assigned[col] && (len(n.Parts) == 1 || n.Parts[len(n.Parts)-2] != mysqlRowAlias) {
				reads[col] = true
			}
		case *queryir.InSubquery, *queryir.Exists, *queryir.Subquery:
			maps.Copy(reads, assigned)
		}
		return false
	})
	return reads
}

// assignedValue prints an upsert assignment's value, spelling "value from
// the row being inserted" per dialect.
func (p *printer) assignedValue(s *queryir.Insert, a queryir.Assignment) {
	if !a.FromInserted {
		p.expr(a.Value)
		return
	}
	switch {
	case p.is(dialect.MySQL) && s.Query != nil:
		p.write("VALUES(" + p.ident(a.Column) + ")")
	case p.is(dialect.MySQL):
		p.write(p.ident(mysqlRowAlias) + "." + p.ident(a.Column))
	case p.is(dialect.SQLite):
		p.write("excluded." + p.ident(a.Column))
	default:
		p.write("EXCLUDED." + p.ident(a.Column))
	}
}

func (p *printer) update(s *queryir.Update) {
	p.write("UPDATE ")
	p.table(s.Table)

	// MySQL joins extra sources in the UPDATE list instead of FROM.
	if p.is(dialect.MySQL) && s.From != nil {
		p.write(", ")
		p.source(s.From)
		p.joins(s.Joins)
	}

	p.write(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.ident(a.Column) + " = ")
		if a.FromInserted {
			p.write(p.fromRowColumn(s, a.Column))
			continue
		}
		p.expr(a.Value)
	}

	if !p.is(dialect.MySQL) && s.From != nil {
		p.write(" FROM ")
		p.source(s.From)
		p.joins(s.Joins)
	}
	p.where(s.Where)
	p.returning(s.Returning)
}

// fromRowColumn spells "the same column of the source row" for UPDATE:
// the FROM source's column when there is one, else the column itself.
func (p *printer) fromRowColumn(s *queryir.Update, column string) string {
	var qual string
	switch src := s.From.(type) {
	case *queryir.Table:
		qual = exposed(src)
	case *queryir.DerivedTable:
		qual = src.Alias
	}
	if qual == "" {
		return p.ident(column)
	}
	return p.ident(qual) + "." + p.ident(column)
}

func (p *printer) delete(s *queryir.Delete) {
	p.write("DELETE FROM ")

	if len(s.Using) == 0 {
		p.table(s.Table)
		p.where(s.Where)
		p.returning(s.Returning)
		return
	}

	target := exposed(s.Table)
	switch p.cfg.Dialect {
	case dialect.MySQL:
		// DELETE FROM t USING t, u: the target must appear in USING.
		p.write(p.ident(target) + " USING ")
		p.table(s.Table)
		for _, u := range s.Using {
			p.write(", ")
			p.source(u)
		}
		p.where(s.Where)
	case dialect.SQLite:
		// SQLite has no DELETE ... USING; select the target rowids instead.
		p.table(s.Table)
		p.write(" WHERE rowid IN (SELECT " + p.ident(target) + ".rowid FROM ")
		p.table(s.Table)
		for _, u := range s.Using {
			p.write(", ")
			p.source(u)
		}
		p.where(s.Where)
		p.write(")")
		p.returning(s.Returning)
	default:
		p.table(s.Table)
		p.write(" USING ")
		for i, u := range s.Using {
			if i > 0 {
				p.write(", ")
			}
			p.source(u)
		}
		p.where(s.Where)
		p.returning(s.Returning)
	}
}
