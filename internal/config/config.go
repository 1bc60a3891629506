// Package config loads the sqlopt configuration file: the render
// configuration and the ordered optimizer pass list.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/optimize"
	"github.com/roach88/sqlopt/internal/querysql"
)

// File is the decoded configuration file. Enumerations stay as text until
// RenderConfig resolves them, so a file can be inspected and overridden
// before it is validated.
type File struct {
	Dialect      string `yaml:"dialect"`
	Quoting      string `yaml:"quoting"`
	PreserveCase bool   `yaml:"preserve_case"`

	// Placeholder is "numbered", "question" or empty for the dialect default.
	Placeholder string `yaml:"placeholder,omitempty"`

	Policy     string `yaml:"policy"`
	MySQLLimit string `yaml:"mysql_limit"`

	TableAliasAS  bool `yaml:"table_alias_as"`
	ColumnAliasAS bool `yaml:"column_alias_as"`

	CaseFold             string `yaml:"case_fold"`
	EmulateNullsOrdering bool   `yaml:"emulate_nulls_ordering"`

	// PassList is the ordered pass list. An explicit empty or null list
	// disables optimization; omitting the key keeps the default order.
	PassList []string `yaml:"passes"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Dialect:       dialect.Postgres.String(),
		Quoting:       "always",
		Policy:        dialect.Lenient.String(),
		MySQLLimit:    "limit_offset",
		TableAliasAS:  true,
		ColumnAliasAS: true,
		CaseFold:      "none",
		PassList:      optimize.DefaultOrder(),
	}
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data over Default. Unknown keys are rejected so typos
// surface instead of silently keeping a default. The result is validated.
func Parse(data []byte) (*File, error) {
	f := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return f, nil
}

// Validate checks every enumeration and pass name.
func (f *File) Validate() error {
	if _, err := f.RenderConfig(); err != nil {
		return err
	}
	for _, name := range f.PassList {
		if _, ok := optimize.Lookup(name); !ok {
			return &optimize.UnknownPassError{Name: name}
		}
	}
	return nil
}

// RenderConfig resolves the file into a renderer configuration.
func (f *File) RenderConfig() (querysql.Config, error) {
	d, err := dialect.Parse(f.Dialect)
	if err != nil {
		return querysql.Config{}, err
	}
	cfg := querysql.DefaultConfig(d)
	cfg.PreserveCase = f.PreserveCase
	cfg.TableAliasAS = f.TableAliasAS
	cfg.ColumnAliasAS = f.ColumnAliasAS
	cfg.EmulateNullsOrdering = f.EmulateNullsOrdering

	if cfg.Quoting, err = dialect.ParseQuoteMode(f.Quoting); err != nil {
		return querysql.Config{}, err
	}
	if cfg.Placeholder, err = dialect.ParsePlaceholder(f.Placeholder); err != nil {
		return querysql.Config{}, err
	}
	if cfg.Policy, err = dialect.ParsePolicy(f.Policy); err != nil {
		return querysql.Config{}, err
	}
	if cfg.MySQLLimit, err = dialect.ParseLimitStyle(f.MySQLLimit); err != nil {
		return querysql.Config{}, err
	}
	if cfg.CaseFold, err = dialect.ParseCaseFold(f.CaseFold); err != nil {
		return querysql.Config{}, err
	}
	return cfg, nil
}

// Passes returns a copy of the ordered pass list.
func (f *File) Passes() []string {
	return append([]string(nil), f.PassList...)
}

// ForDialect returns a copy of f targeting d.
func (f *File) ForDialect(d dialect.Dialect) *File {
	cp := *f
	cp.Dialect = d.String()
	cp.PassList = f.Passes()
	return &cp
}
