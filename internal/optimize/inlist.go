package optimize

import (
	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/walk"
)

// DedupInList drops repeated literal values from every IN list, keeping the
// first occurrence of each. Values are compared by ir.Key, so 1 and 1.0 are
// one value but '1' and 1 are not. Placeholders and other non-literal
// elements are always kept.
func DedupInList(stmt ast.Statement) bool {
	changed := false
	walk.Statement(stmt, walk.Visitor{
		Order: walk.PostOrder,
		Expr: func(e ast.Expr) ast.Expr {
			in, ok := e.(*ast.InList)
			if !ok || len(in.List) < 2 {
				return e
			}
			seen := make(map[string]bool, len(in.List))
			kept := in.List[:0]
			for _, item := range in.List {
				if lit, ok := item.(*ast.Literal); ok {
					key := ir.Key(lit.Value)
					if seen[key] {
						changed = true
						continue
					}
					seen[key] = true
				}
				kept = append(kept, item)
			}
			clear(in.List[len(kept):])
			in.List = kept
			return e
		},
	})
	return changed
}
