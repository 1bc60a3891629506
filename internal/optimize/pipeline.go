package optimize

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlopt/internal/ast"
)

// Pass names accepted by NewPipeline.
const (
	PassDedupInList           = "dedup_in_list"
	PassFlattenSubqueries     = "flatten_subqueries"
	PassPredicatePushdown     = "predicate_pushdown"
	PassPredicatePullup       = "predicate_pullup"
	PassInToExists            = "in_to_exists"
	PassSimplifyExists        = "simplify_exists"
	PassRemoveSubqueryOrderBy = "remove_subquery_order_by"
)

// Pass is one named rewrite. Apply mutates the statement in place and
// reports whether it changed anything. Passes never fail.
type Pass struct {
	Name        string
	Description string
	Apply       func(ast.Statement) bool
}

var registry = []Pass{
	{PassDedupInList, "collapse repeated literal values in IN lists", DedupInList},
	{PassFlattenSubqueries, "inline plain-column derived tables over one table", FlattenSubqueries},
	{PassPredicatePushdown, "move outer WHERE conjuncts into derived tables", PushdownPredicates},
	{PassPredicatePullup, "lift derived tables out of FROM, merging their WHERE", PullupPredicates},
	{PassInToExists, "rewrite x IN (subquery) as a correlated EXISTS", InToExists},
	{PassSimplifyExists, "project 1 and drop ORDER BY inside EXISTS", SimplifyExists},
	{PassRemoveSubqueryOrderBy, "drop ORDER BY from unbounded derived tables", RemoveSubqueryOrderBy},
}

// Passes returns every pass in default order.
func Passes() []Pass {
	return slices.Clone(registry)
}

// DefaultOrder returns the pass names in default order.
func DefaultOrder() []string {
	names := make([]string, len(registry))
	for i, p := range registry {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a pass by name.
func Lookup(name string) (Pass, bool) {
	i := slices.IndexFunc(registry, func(p Pass) bool { return p.Name == name })
	if i < 0 {
		return Pass{}, false
	}
	return registry[i], true
}

// UnknownPassError names a pass that does not exist.
type UnknownPassError struct {
	Name string
}

func (e *UnknownPassError) Error() string {
	return fmt.Sprintf("unknown pass %q (known: %s)", e.Name, strings.Join(DefaultOrder(), ", "))
}

// Pipeline applies passes in a fixed, caller-chosen order.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds a pipeline running names in the given order. A name
// may repeat. An empty list is a pipeline that does nothing.
func NewPipeline(names ...string) (*Pipeline, error) {
	p := &Pipeline{passes: make([]Pass, 0, len(names))}
	for _, name := range names {
		pass, ok := Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, &UnknownPassError{Name: name}
		}
		p.passes = append(p.passes, pass)
	}
	return p, nil
}

// Names returns the configured pass names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name
	}
	return names
}

// Report lists the passes that changed the statement, in run order.
type Report struct {
	Applied []string
}

// Run applies every pass to stmt in order and returns it. stmt is mutated
// in place; clone it first to keep the original.
func (p *Pipeline) Run(stmt ast.Statement) (ast.Statement, *Report) {
	report := &Report{}
	if stmt == nil {
		return nil, report
	}
	for _, pass := range p.passes {
		if pass.Apply(stmt) {
			report.Applied = append(report.Applied, pass.Name)
		}
	}
	return stmt, report
}
