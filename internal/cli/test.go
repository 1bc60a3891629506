package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the verdict on one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult sums up a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios using the harness framework.

Each scenario compiles one query document for every dialect and checks
the expected SQL, parameters, applied passes and errors. Scenarios with a
fixture also run the SQLite output on an in-memory database. When
golden/<scenario>.golden exists next to a scenario, every dialect's output
must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  sqlopt test ./scenarios
  sqlopt test ./scenarios --filter "upsert*"
  sqlopt test ./scenarios --update
  sqlopt test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	formatter := opts.formatter(cmd)
	if len(files) == 0 && formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	summary := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, path := range files {
		v := judgeScenario(cmd.Context(), path, opts.Update)
		if formatter.Format != "json" {
			v.print(formatter.Writer)
		}
		summary.Scenarios = append(summary.Scenarios, v.ScenarioResult)
		if v.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if formatter.Format == "json" {
		return outputTestJSON(formatter, summary)
	}
	return outputTestText(formatter, summary)
}

// findScenarioFiles lists the scenario files of dir (or dir itself when
// it is a file) whose name matches filter.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	paths, err := harness.FindScenarios(dir)
	if err != nil || filter == "" {
		return paths, err
	}

	var files []string
	for _, path := range paths {
		matched, err := filepath.Match(filter, stem(path))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			files = append(files, path)
		}
	}
	return files, nil
}

// verdict is a scenario result plus what the text output says about it.
type verdict struct {
	ScenarioResult
	note    string   // appended to the pass line
	details []string // printed under the fail line
}

func pass(name, note string) verdict {
	return verdict{ScenarioResult: ScenarioResult{Name: name, Pass: true}, note: note}
}

func fail(name string, errs []string, details ...string) verdict {
	if len(details) == 0 {
		details = errs
	}
	return verdict{ScenarioResult: ScenarioResult{Name: name, Errors: errs}, details: details}
}

func (v verdict) print(w io.Writer) {
	if v.Pass {
		if v.note != "" {
			fmt.Fprintf(w, "✓ %s %s\n", v.Name, v.note)
		} else {
			fmt.Fprintf(w, "✓ %s\n", v.Name)
		}
		return
	}
	fmt.Fprintf(w, "✗ %s\n", v.Name)
	for _, d := range v.details {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

// judgeScenario loads and runs the scenario at path. Expectations decide
// the verdict, and when golden/<stem>.golden exists next to the scenario
// every dialect's output must also match it byte for byte. With update the
// golden file is rewritten instead of compared.
func judgeScenario(ctx context.Context, path string, update bool) verdict {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return fail(filepath.Base(path),
			[]string{fmt.Sprintf("failed to load scenario: %v", err)},
			fmt.Sprintf("Load error: %v", err))
	}

	result, err := harness.RunContext(ctx, s)
	if err != nil {
		return fail(s.Name,
			[]string{fmt.Sprintf("execution failed: %v", err)},
			fmt.Sprintf("Execution error: %v", err))
	}
	snapshot, err := snapshotOf(s, result).Marshal()
	if err != nil {
		return fail(s.Name, []string{fmt.Sprintf("failed to marshal outputs: %v", err)})
	}

	golden := goldenFilePath(path)
	if update {
		if err := writeGolden(golden, snapshot); err != nil {
			return fail(s.Name,
				[]string{fmt.Sprintf("failed to update golden file: %v", err)},
				fmt.Sprintf("Golden update error: %v", err))
		}
		return pass(s.Name, "(golden updated)")
	}

	want, err := os.ReadFile(golden)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fail(s.Name,
			[]string{fmt.Sprintf("golden comparison failed: %v", err)},
			fmt.Sprintf("Golden comparison error: %v", err))
	case !bytes.Equal(want, snapshot):
		return fail(s.Name,
			[]string{"output does not match golden file"},
			"Golden file mismatch (run with --update to regenerate)")
	}

	if !result.Pass {
		return fail(s.Name, result.Errors)
	}
	return pass(s.Name, "")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns the golden file of a scenario file.
func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", stem(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func snapshotOf(scenario *harness.Scenario, result *harness.Result) *harness.Snapshot {
	return &harness.Snapshot{ScenarioName: scenario.Name, Outputs: result.Outputs}
}

func outputTestJSON(formatter *OutputFormatter, summary TestResult) error {
	response := CLIResponse{Status: "ok", Data: summary}
	if summary.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", summary.Failed),
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if response.Error != nil {
		return NewExitError(ExitFailure, response.Error.Message)
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, summary TestResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
