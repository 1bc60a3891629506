package optimize

import (
	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/walk"
)

// RemoveSubqueryOrderBy drops ORDER BY from derived tables that keep every
// row. A derived table bounded by LIMIT or OFFSET keeps its ORDER BY, as
// does one using DISTINCT ON, where the order picks the surviving row.
func RemoveSubqueryOrderBy(stmt ast.Statement) bool {
	changed := false
	strip := func(t ast.TableFactor) {
		d, ok := t.(*ast.Derived)
		if !ok || d.Query == nil || rowBounded(d.Query) {
			return
		}
		s, ok := d.Query.Body.(*ast.Select)
		if !ok || len(s.DistinctOn) > 0 {
			return
		}
		if len(s.OrderBy) > 0 || len(d.Query.OrderBy) > 0 {
			s.OrderBy = nil
			d.Query.OrderBy = nil
			changed = true
		}
	}

	walk.Statement(stmt, walk.Visitor{
		Query: func(q *ast.Query, top bool) {
			for _, s := range walk.Selects(q) {
				strip(s.From)
				for _, j := range s.Joins {
					strip(j.Table)
				}
			}
		},
	})
	switch s := stmt.(type) {
	case *ast.Update:
		strip(s.From)
		for _, j := range s.Joins {
			strip(j.Table)
		}
	case *ast.Delete:
		for _, u := range s.Using {
			strip(u)
		}
	}
	return changed
}
