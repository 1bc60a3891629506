// Package dialect holds everything that differs between the three target
// SQL engines, in one capability table that the otherwise dialect-agnostic
// validator and renderer consult.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect is a target SQL engine.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	SQLite
)

// All lists every dialect in a stable order.
var All = []Dialect{Postgres, MySQL, SQLite}

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

// Parse resolves a dialect name. Common aliases are accepted.
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q (want postgres, mysql or sqlite)", name)
	}
}

// Policy decides what happens to a construct the dialect cannot express.
type Policy int

const (
	// Lenient degrades unsupported constructs silently while rendering.
	Lenient Policy = iota
	// Strict rejects them before any text is emitted.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy resolves "strict" or "lenient".
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lenient", "":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want strict or lenient)", name)
	}
}

// PlaceholderStyle is how bound-parameter markers are spelled.
type PlaceholderStyle int

const (
	// PlaceholderDefault picks the dialect's native style.
	PlaceholderDefault PlaceholderStyle = iota
	// PlaceholderNumbered is $1, $2, ...
	PlaceholderNumbered
	// PlaceholderQuestion is ? for every parameter.
	PlaceholderQuestion
)

// ParsePlaceholder resolves "numbered", "question" or "" (dialect default).
func ParsePlaceholder(name string) (PlaceholderStyle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return PlaceholderDefault, nil
	case "numbered", "dollar", "$n":
		return PlaceholderNumbered, nil
	case "question", "?":
		return PlaceholderQuestion, nil
	default:
		return 0, fmt.Errorf("unknown placeholder style %q (want numbered or question)", name)
	}
}

// LimitStyle selects between the two MySQL spellings of LIMIT with OFFSET.
type LimitStyle int

const (
	// LimitOffset is LIMIT lim OFFSET off.
	LimitOffset LimitStyle = iota
	// OffsetCommaLimit is LIMIT off, lim.
	OffsetCommaLimit
)

// ParseLimitStyle resolves "limit_offset" or "offset_comma_limit".
func ParseLimitStyle(name string) (LimitStyle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "limit_offset":
		return LimitOffset, nil
	case "offset_comma_limit", "comma":
		return OffsetCommaLimit, nil
	default:
		return 0, fmt.Errorf("unknown mysql limit style %q (want limit_offset or offset_comma_limit)", name)
	}
}

// Grouping is a set of natively supported GROUP BY modifiers.
type Grouping uint8

const (
	GroupingRollup Grouping = 1 << iota
	GroupingCube
	GroupingSets
)

// Has reports whether every modifier in m is in g.
func (g Grouping) Has(m Grouping) bool {
	return g&m == m
}

// Capabilities is one row of the dialect capability table.
type Capabilities struct {
	// QuoteChar delimits identifiers; an embedded QuoteChar is doubled.
	QuoteChar byte
	// Placeholder is the native placeholder style.
	Placeholder PlaceholderStyle

	DistinctOn      bool
	ILike           bool
	NullsOrdering   bool
	MaterializedCTE bool
	Returning       bool

	// Grouping lists modifiers accepted as ROLLUP(...)-style GROUP BY items.
	Grouping Grouping
	// RollupSuffix means ROLLUP is spelled GROUP BY a, b WITH ROLLUP.
	RollupSuffix bool

	// BackslashEscapes means a backslash inside a string literal is an
	// escape character and must itself be escaped.
	BackslashEscapes bool

	// UnboundedLimit is the LIMIT argument written when only OFFSET is
	// wanted but the grammar requires a count. Empty means OFFSET may stand
	// alone.
	UnboundedLimit string
}

var capabilities = [...]Capabilities{
	Postgres: {
		QuoteChar:       '"',
		Placeholder:     PlaceholderNumbered,
		DistinctOn:      true,
		ILike:           true,
		NullsOrdering:   true,
		MaterializedCTE: true,
		Returning:       true,
		Grouping:        GroupingRollup | GroupingCube | GroupingSets,
	},
	MySQL: {
		QuoteChar:        '`',
		Placeholder:      PlaceholderQuestion,
		RollupSuffix:     true,
		BackslashEscapes: true,
		UnboundedLimit:   "18446744073709551615",
	},
	SQLite: {
		QuoteChar:      '"',
		Placeholder:    PlaceholderQuestion,
		Returning:      true,
		UnboundedLimit: "-1",
	},
}

// Caps returns the capability row for d.
func (d Dialect) Caps() Capabilities {
	if d < 0 || int(d) >= len(capabilities) {
		return capabilities[Postgres]
	}
	return capabilities[d]
}

// SupportsRollup reports whether ROLLUP survives rendering on d in some
// spelling (native function form or trailing WITH ROLLUP).
func (d Dialect) SupportsRollup() bool {
	c := d.Caps()
	return c.Grouping.Has(GroupingRollup) || c.RollupSuffix
}
