package querysql

import "github.com/roach88/sqlopt/internal/dialect"

// Config is the immutable per-render configuration.
type Config struct {
	Dialect dialect.Dialect

	Quoting      dialect.QuoteMode
	PreserveCase bool
	CaseFold     dialect.CaseFold

	// Placeholder overrides the dialect's native placeholder style.
	Placeholder dialect.PlaceholderStyle

	Policy dialect.Policy

	// MySQLLimit picks LIMIT lim OFFSET off or LIMIT off, lim on MySQL.
	MySQLLimit dialect.LimitStyle

	TableAliasAS  bool
	ColumnAliasAS bool

	// EmulateNullsOrdering synthesizes (expr IS NULL) sort terms on
	// dialects without NULLS FIRST/LAST instead of dropping the request.
	EmulateNullsOrdering bool
}

// DefaultConfig returns the configuration used when nothing is specified:
// always quote, native placeholders, Lenient policy, AS on every alias.
func DefaultConfig(d dialect.Dialect) Config {
	return Config{
		Dialect:       d,
		Quoting:       dialect.QuoteAlways,
		Policy:        dialect.Lenient,
		MySQLLimit:    dialect.LimitOffset,
		TableAliasAS:  true,
		ColumnAliasAS: true,
	}
}

func (c Config) placeholderStyle() dialect.PlaceholderStyle {
	if c.Placeholder != dialect.PlaceholderDefault {
		return c.Placeholder
	}
	return c.Dialect.Caps().Placeholder
}
