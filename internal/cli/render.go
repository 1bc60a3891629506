package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/compiler"
	"github.com/roach88/sqlopt/internal/ir"
	"github.com/roach88/sqlopt/internal/watch"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	CompileFlags
	Dialect string
	Watch   bool

	// Debounce overrides the watcher's debounce delay (for testing).
	Debounce time.Duration
}

// RenderOutput is one compiled statement as the CLI prints it.
type RenderOutput struct {
	Name        string            `json:"name,omitempty"`
	Dialect     string            `json:"dialect"`
	SQL         string            `json:"sql"`
	Params      []json.RawMessage `json:"params"`
	Applied     []string          `json:"applied"`
	Fingerprint string            `json:"fingerprint"`
	CompileID   string            `json:"compile_id"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <query-doc>",
		Short: "Compile a query document to SQL",
		Long: `Compile a YAML or CUE query document and print the SQL and its
ordered parameters.

The dialect, quoting, policy and pass list come from --config; flags
override them. With --watch the document (and the config file) are
re-rendered whenever they change, until interrupted.

Examples:
  sqlopt render query.yaml
  sqlopt render query.cue --dialect mysql --strict
  sqlopt render query.yaml --passes dedup_in_list,in_to_exists
  sqlopt render query.yaml --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return watchRender(opts, args[0], cmd)
			}
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (postgres|mysql|sqlite), overriding the config")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-render when the document or config changes")
	opts.CompileFlags.register(cmd)

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	out, err := render(opts, path, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	formatter.VerboseLog("compile %s: %s, fingerprint %s", out.CompileID, out.Dialect, out.Fingerprint)

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	printRenderOutput(formatter, out)
	return nil
}

// render loads, configures and compiles the document at path.
func render(opts *RenderOptions, path string, cmd *cobra.Command) (*RenderOutput, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	file, err := opts.Resolve(cmd, opts.Dialect)
	if err != nil {
		return nil, err
	}
	copts, err := compileOptions(file, opts.RootOptions)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Compile(doc.Unit, copts)
	if err != nil {
		return nil, err
	}
	return newRenderOutput(doc.Name, res)
}

func newRenderOutput(name string, res *compiler.Result) (*RenderOutput, error) {
	params, err := rawParams(res.Params)
	if err != nil {
		return nil, err
	}
	applied := res.Applied
	if applied == nil {
		applied = []string{}
	}
	return &RenderOutput{
		Name:        name,
		Dialect:     res.Dialect.String(),
		SQL:         res.SQL,
		Params:      params,
		Applied:     applied,
		Fingerprint: res.Fingerprint,
		CompileID:   res.ID,
	}, nil
}

// rawParams encodes each value as canonical JSON: decimals print without
// float rounding and bytes as {"$bytes": base64}.
func rawParams(values []ir.Value) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, err := ir.MarshalCanonical(v)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i+1, err)
		}
		out[i] = b
	}
	return out, nil
}

func printRenderOutput(formatter *OutputFormatter, out *RenderOutput) {
	w := formatter.Writer
	fmt.Fprintln(w, out.SQL)
	if len(out.Params) > 0 {
		parts := make([]string, len(out.Params))
		for i, p := range out.Params {
			parts[i] = string(p)
		}
		fmt.Fprintf(w, "-- params: [%s]\n", strings.Join(parts, ", "))
	}
	if len(out.Applied) > 0 {
		fmt.Fprintf(w, "-- applied: %s\n", strings.Join(out.Applied, ", "))
	}
}

// watchRender renders once, then again after every change, until the
// command's context ends or the process is interrupted. Failed renders are
// printed and watching continues.
func watchRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	renderOnce := func() {
		mu.Lock()
		defer mu.Unlock()
		_ = runRender(opts, path, cmd)
	}

	paths := []string{path}
	if opts.Config != "" {
		paths = append(paths, opts.Config)
	}
	wopts := []watch.Option{
		watch.WithLogger(logger),
		watch.WithOnChange(func(changed []string) {
			if formatter.Format != "json" {
				fmt.Fprintf(formatter.Writer, "\n-- changed: %s\n", strings.Join(changed, ", "))
			}
			renderOnce()
		}),
		watch.WithOnError(func(err error) {
			formatter.VerboseLog("watch error: %v", err)
		}),
	}
	if opts.Debounce > 0 {
		wopts = append(wopts, watch.WithDebounceDelay(opts.Debounce))
	}

	w, err := watch.New(paths, wopts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if err := w.Start(); err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer w.Stop()

	renderOnce()
	formatter.VerboseLog("watching %s (Ctrl-C to stop)", strings.Join(paths, ", "))

	<-ctx.Done()
	logger.Info("watch stopped")
	return nil
}
