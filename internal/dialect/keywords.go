package dialect

import (
	"slices"
	"strings"
	"sync"
)

// reservedWords is the union of words reserved by at least one target
// dialect. An identifier spelled like one of these is always quoted.
var reservedWords = []string{
	"add", "all", "alter", "analyze", "and", "any", "array", "as", "asc",
	"asymmetric", "between", "both", "by", "call", "case", "cast", "check",
	"collate", "column", "constraint", "create", "cross", "cube",
	"current_date", "current_time", "current_timestamp", "current_user",
	"database", "default", "deferrable", "delete", "desc", "distinct", "do",
	"drop", "else", "end", "escape", "except", "exists", "explain", "false",
	"fetch", "for", "foreign", "from", "full", "grant", "group", "grouping",
	"having", "if", "ignore", "ilike", "in", "index", "inner", "insert",
	"intersect", "interval", "into", "is", "isnull", "join", "key", "lateral",
	"leading", "left", "like", "limit", "localtime", "localtimestamp",
	"match", "natural", "not", "notnull", "null", "nulls", "of", "offset",
	"on", "only", "or", "order", "outer", "over", "partition", "placing",
	"primary", "range", "recursive", "references", "regexp", "rename",
	"replace", "returning", "right", "rlike", "rollup", "row", "rows",
	"select", "session_user", "set", "similar", "some", "symmetric", "table",
	"then", "to", "trailing", "true", "union", "unique", "update", "usage",
	"user", "using", "values", "variadic", "when", "where", "window", "with",
}

// keywords is built on first use and never mutated afterwards.
var keywords = sync.OnceValue(func() []string {
	out := slices.Clone(reservedWords)
	slices.Sort(out)
	return slices.Compact(out)
})

// IsReserved reports whether word is a reserved keyword in any target
// dialect. Comparison is case-insensitive.
func IsReserved(word string) bool {
	_, found := slices.BinarySearch(keywords(), strings.ToLower(word))
	return found
}
