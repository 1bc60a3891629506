package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/config"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/querydoc"
)

// Scenario defines a conformance test scenario: one query and what each
// dialect must make of it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is an inline query document.
	Query yaml.Node `yaml:"query"`

	// QueryFile is a query document path, relative to the scenario file.
	// Exactly one of Query and QueryFile is set.
	QueryFile string `yaml:"query_file,omitempty"`

	// Config overrides the default configuration, using the keys of the
	// configuration file. Its dialect is ignored: every dialect is compiled.
	Config yaml.Node `yaml:"config,omitempty"`

	// Fixture is SQL run on a fresh SQLite database before each execution.
	Fixture []string `yaml:"fixture,omitempty"`

	// Equivalent requires the optimized and unoptimized SQLite outputs to
	// return the same rows from the fixture.
	Equivalent bool `yaml:"equivalent,omitempty"`

	// Expect maps dialect names to expectations.
	Expect map[string]Expectation `yaml:"expect"`
}

// Expectation is what one dialect must produce. Empty fields are not
// checked.
type Expectation struct {
	// SQL is the exact rendered text.
	SQL string `yaml:"sql,omitempty"`

	// Params is the ordered parameter list, each item written as the v of
	// {param: v}.
	Params yaml.Node `yaml:"params,omitempty"`

	// Applied is the exact list of passes that changed the tree.
	Applied []string `yaml:"applied,omitempty"`

	// Error is an error code (E200, E201, E202) or a fragment of the
	// error message. When empty the compilation must succeed.
	Error string `yaml:"error,omitempty"`

	// Rows is the exact result set from the fixture, NULL written as "NULL".
	// Only valid for sqlite.
	Rows [][]string `yaml:"rows,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. A query_file is
// resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving query_file relative to basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "expects:" does not silently test nothing.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.QueryFile != "" && !filepath.IsAbs(scenario.QueryFile) && basePath != "" {
		scenario.QueryFile = filepath.Join(basePath, scenario.QueryFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files directly inside dir, or
// dir itself when it is a file, sorted by path.
func FindScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasQuery := s.Query.Kind != 0
	switch {
	case hasQuery && s.QueryFile != "":
		return fmt.Errorf("query and query_file are mutually exclusive")
	case !hasQuery && s.QueryFile == "":
		return fmt.Errorf("query or query_file is required")
	case s.QueryFile != "":
		if _, err := os.Stat(s.QueryFile); os.IsNotExist(err) {
			return fmt.Errorf("query file not found: %s", s.QueryFile)
		}
	}

	if _, err := s.configFile(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if s.Equivalent && len(s.Fixture) == 0 {
		return fmt.Errorf("equivalent requires a fixture")
	}
	if len(s.Expect) == 0 && !s.Equivalent {
		return fmt.Errorf("expect is required unless equivalent is set")
	}

	names := make([]string, 0, len(s.Expect))
	for name := range s.Expect {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[dialect.Dialect]string, len(names))
	for _, name := range names {
		d, err := dialect.Parse(name)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		if prev, dup := seen[d]; dup {
			return fmt.Errorf("expect: %q and %q name the same dialect", prev, name)
		}
		seen[d] = name
		if err := validateExpectation(name, d, s.Expect[name], len(s.Fixture) > 0); err != nil {
			return err
		}
	}

	return nil
}

func validateExpectation(name string, d dialect.Dialect, e Expectation, fixture bool) error {
	if e.Error != "" && (e.SQL != "" || e.Params.Kind != 0 || e.Applied != nil || e.Rows != nil) {
		return fmt.Errorf("expect.%s: error excludes sql, params, applied and rows", name)
	}
	if e.Params.Kind != 0 {
		if e.Params.Kind != yaml.SequenceNode {
			return fmt.Errorf("expect.%s.params: expected a list", name)
		}
		for i, p := range e.Params.Content {
			if _, err := querydoc.Value(p); err != nil {
				return fmt.Errorf("expect.%s.params[%d]: %w", name, i, err)
			}
		}
	}
	if e.Rows != nil {
		if d != dialect.SQLite {
			return fmt.Errorf("expect.%s.rows: rows can only be checked for sqlite", name)
		}
		if !fixture {
			return fmt.Errorf("expect.%s.rows: rows require a fixture", name)
		}
	}
	return nil
}

// configFile decodes the config overrides over the defaults.
func (s *Scenario) configFile() (*config.File, error) {
	if s.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

// document decodes the scenario's query.
func (s *Scenario) document() (*querydoc.Document, error) {
	if s.QueryFile != "" {
		return querydoc.Load(s.QueryFile)
	}
	return querydoc.FromNode(&s.Query, true), nil
}

// expectation returns the expectation for d, if any.
func (s *Scenario) expectation(d dialect.Dialect) (Expectation, bool) {
	for name, e := range s.Expect {
		if parsed, err := dialect.Parse(name); err == nil && parsed == d {
			return e, true
		}
	}
	return Expectation{}, false
}

// expectedParams decodes e.Params. Validation has already checked it.
func (e Expectation) expectedParams() []ir.Value {
	out := make([]ir.Value, 0, len(e.Params.Content))
	for _, p := range e.Params.Content {
		v, _ := querydoc.Value(p)
		out = append(out, v)
	}
	return out
}

// executes reports whether outputs for d run against the fixture.
func (s *Scenario) executes(d dialect.Dialect) bool {
	return d == dialect.SQLite && len(s.Fixture) > 0
}
