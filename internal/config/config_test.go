package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/optimize"
	"github.com/roach88/sqlopt/internal/querysql"
)

func TestDefault(t *testing.T) {
	f := Default()
	require.NoError(t, f.Validate())

	cfg, err := f.RenderConfig()
	require.NoError(t, err)
	assert.Equal(t, querysql.DefaultConfig(dialect.Postgres), cfg)
	assert.Equal(t, optimize.DefaultOrder(), f.Passes())
}

func TestParse_FullFile(t *testing.T) {
	f, err := Parse([]byte(`
dialect: mysql
quoting: smart
preserve_case: true
placeholder: numbered
policy: strict
mysql_limit: offset_comma_limit
table_alias_as: false
column_alias_as: true
case_fold: lower
emulate_nulls_ordering: true
passes: [in_to_exists, dedup_in_list]
`))
	require.NoError(t, err)

	cfg, err := f.RenderConfig()
	require.NoError(t, err)
	assert.Equal(t, querysql.Config{
		Dialect:              dialect.MySQL,
		Quoting:              dialect.QuoteSmart,
		PreserveCase:         true,
		CaseFold:             dialect.FoldLower,
		Placeholder:          dialect.PlaceholderNumbered,
		Policy:               dialect.Strict,
		MySQLLimit:           dialect.OffsetCommaLimit,
		TableAliasAS:         false,
		ColumnAliasAS:        true,
		EmulateNullsOrdering: true,
	}, cfg)
	assert.Equal(t, []string{"in_to_exists", "dedup_in_list"}, f.Passes())
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	f, err := Parse([]byte("dialect: sqlite\n"))
	require.NoError(t, err)

	cfg, err := f.RenderConfig()
	require.NoError(t, err)
	assert.Equal(t, querysql.DefaultConfig(dialect.SQLite), cfg)
	assert.Equal(t, optimize.DefaultOrder(), f.Passes())
}

func TestParse_EmptyDocument(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestParse_EmptyPassListDisablesOptimization(t *testing.T) {
	f, err := Parse([]byte("passes: []\n"))
	require.NoError(t, err)
	assert.Empty(t, f.Passes())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "dialct: mysql\n", "field dialct not found"},
		{"bad dialect", "dialect: oracle\n", `unknown dialect "oracle"`},
		{"bad quoting", "quoting: never\n", `unknown quoting mode "never"`},
		{"bad policy", "policy: loose\n", `unknown policy "loose"`},
		{"bad fold", "case_fold: title\n", `unknown case fold "title"`},
		{"bad pass", "passes: [dedup_in_list, magic]\n", `unknown pass "magic"`},
		{"not yaml", "dialect: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlopt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: sqlite\nquoting: smart\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", f.Dialect)
	assert.Equal(t, "smart", f.Quoting)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestForDialect(t *testing.T) {
	f := Default()
	mysql := f.ForDialect(dialect.MySQL)

	assert.Equal(t, "mysql", mysql.Dialect)
	assert.Equal(t, "postgres", f.Dialect)

	mysql.PassList[0] = "changed"
	assert.Equal(t, optimize.PassDedupInList, f.PassList[0])
}
