package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sqlopt/internal/ir"
)

// Snapshot captures every dialect's output for a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Outputs      []Output
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	outputs := make([]any, len(s.Outputs))
	for i, o := range s.Outputs {
		m := map[string]any{"dialect": o.Dialect}
		if o.Error != "" {
			m["error"] = o.Error
		} else {
			m["sql"] = o.SQL
			m["params"] = o.Params
			m["applied"] = o.Applied
		}
		if o.Executed {
			rows := make([]any, len(o.Rows))
			for j, r := range o.Rows {
				rows[j] = r
			}
			m["rows"] = rows
			m["rows_affected"] = o.RowsAffected
		}
		outputs[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"outputs":       outputs,
	}
}

// Marshal returns the snapshot's canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares every dialect's output
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also assert on Pass. Returns an error
// if the scenario could not be run; a golden mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Outputs: result.Outputs}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
