package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/compiler"
	"github.com/roach88/sqlopt/internal/exec"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	CompileFlags
	DSN string
}

// ExecOutput is a compiled statement and what running it produced.
type ExecOutput struct {
	RenderOutput
	Columns      []string   `json:"columns,omitempty"`
	Rows         [][]string `json:"rows,omitempty"`
	RowsAffected int64      `json:"rows_affected"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <query-doc>",
		Short: "Compile a query document and run it",
		Long: `Compile a query document for the database named by --dsn and run it.

A DSN starting with postgres:// or postgresql:// connects with pgx and
renders for postgres. Anything else is a SQLite database file (optionally
prefixed with sqlite://) and renders for sqlite. Queries and statements
with RETURNING print their rows; other statements print the number of
rows affected.

Examples:
  sqlopt exec query.yaml --dsn ./app.db
  sqlopt exec update.yaml --dsn postgres://localhost/app --strict`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "SQLite file or postgres:// DSN (required)")
	_ = cmd.MarkFlagRequired("dsn")
	opts.CompileFlags.register(cmd)

	return cmd
}

func runExec(opts *ExecOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	ctx := cmd.Context()

	doc, err := LoadDocument(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	file, err := opts.Resolve(cmd, exec.Kind(opts.DSN))
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	copts, err := compileOptions(file, opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	res, err := compiler.Compile(doc.Unit, copts)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	rendered, err := newRenderOutput(doc.Name, res)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	formatter.VerboseLog("-- %s", res.SQL)

	ex, err := exec.Open(ctx, opts.DSN)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeConnectFail, Message: err.Error(), Err: err})
	}
	defer func() {
		if closeErr := ex.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	outcome, err := exec.Run(ctx, ex, res.SQL, res.Args(), exec.ReturnsRows(doc.Unit.Stmt))
	if err != nil {
		return formatter.Fail(ExitFailure, &LoadError{Code: ErrCodeExecFailed, Message: err.Error(), Err: err})
	}
	logger.Info("executed", "compile_id", res.ID, "rows_affected", outcome.RowsAffected)

	out := ExecOutput{RenderOutput: *rendered, RowsAffected: outcome.RowsAffected}
	if outcome.Rows != nil {
		out.Columns = outcome.Rows.Columns
		out.Rows = outcome.Rows.Strings()
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	return printExecOutput(formatter, out, outcome.Rows != nil)
}

func printExecOutput(formatter *OutputFormatter, out ExecOutput, hasRows bool) error {
	w := formatter.Writer
	if !hasRows {
		fmt.Fprintf(w, "%d row(s) affected\n", out.RowsAffected)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(out.Columns, "\t"))
	for _, row := range out.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d row(s))\n", len(out.Rows))
	return nil
}
