package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/compiler"
)

// DialectCheck is the feature check of one dialect.
type DialectCheck struct {
	Dialect   string   `json:"dialect"`
	Supported bool     `json:"supported"`
	Features  []string `json:"unsupported,omitempty"`
}

// CheckResult holds the feature check of every dialect.
type CheckResult struct {
	Name     string         `json:"name,omitempty"`
	Dialects []DialectCheck `json:"dialects"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &CompileFlags{}

	cmd := &cobra.Command{
		Use:   "check <query-doc>",
		Short: "Report which dialects can express a query natively",
		Long: `Optimize a query document and report, for postgres, mysql and sqlite,
every construct the dialect cannot express natively. Nothing is rendered.

Under the lenient policy those constructs are degraded when rendering;
under --strict they are errors, and check exits with status 1 when any
dialect has one.

Examples:
  sqlopt check query.yaml
  sqlopt check query.yaml --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, flags, args[0], cmd)
		},
	}

	flags.register(cmd)

	return cmd
}

func runCheck(opts *RootOptions, flags *CompileFlags, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := LoadDocument(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	file, err := flags.Resolve(cmd, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	formatter.VerboseLog("Checking %s with passes %v", path, file.Passes())

	reports, err := compiler.Check(doc.Unit, file.Passes())
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := CheckResult{Name: doc.Name, Dialects: make([]DialectCheck, 0, len(reports))}
	unsupported := 0
	for _, r := range reports {
		dc := DialectCheck{Dialect: r.Dialect.String(), Supported: r.Supported()}
		for _, v := range r.Violations {
			dc.Features = append(dc.Features, v.Feature)
		}
		if !dc.Supported {
			unsupported++
		}
		result.Dialects = append(result.Dialects, dc)
	}

	failed := flags.Strict && unsupported > 0
	if formatter.Format == "json" {
		return outputCheckJSON(formatter, result, failed, unsupported)
	}
	return outputCheckText(formatter, result, failed, unsupported)
}

func outputCheckJSON(formatter *OutputFormatter, result CheckResult, failed bool, unsupported int) error {
	if !failed {
		return formatter.Success(result)
	}

	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    string(compiler.CodeUnsupportedFeature),
			Message: fmt.Sprintf("%d dialect(s) cannot express the query under strict policy", unsupported),
		},
	}
	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, response.Error.Message)
}

func outputCheckText(formatter *OutputFormatter, result CheckResult, failed bool, unsupported int) error {
	w := formatter.Writer
	for _, dc := range result.Dialects {
		if dc.Supported {
			fmt.Fprintf(w, "✓ %s\n", dc.Dialect)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", dc.Dialect)
		for _, f := range dc.Features {
			fmt.Fprintf(w, "  %s is not supported\n", f)
		}
	}

	if failed {
		msg := fmt.Sprintf("%d dialect(s) cannot express the query under strict policy", unsupported)
		fmt.Fprintf(w, "\n%s\n", msg)
		return NewExitError(ExitFailure, msg)
	}
	return nil
}
