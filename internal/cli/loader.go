package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/compiler"
	"github.com/roach88/sqlopt/internal/config"
	"github.com/roach88/sqlopt/internal/dialect"
	"github.com/roach88/sqlopt/internal/optimize"
	"github.com/roach88/sqlopt/internal/querydoc"
)

// Error codes for CLI output. Compile failures keep the compiler's own
// codes (E200, E201, E202).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeLoadFailed  = "E004" // Query document could not be decoded
	ErrCodeConfig      = "E008" // Invalid configuration or flags
	ErrCodeExecFailed  = "E009" // Statement execution failed
	ErrCodeConnectFail = "E010" // Database could not be opened
	ErrCodeTestFailed  = "E011" // One or more scenarios failed
)

// LoadError is a query document or configuration that could not be used.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadDocument reads a YAML or CUE query document.
func LoadDocument(path string) (*querydoc.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query document not found: %s", path), Err: err}
	}
	doc, err := querydoc.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
	}
	return doc, nil
}

// CompileFlags are the flags shared by every command that compiles.
type CompileFlags struct {
	Config     string
	Strict     bool
	Passes     []string
	NoOptimize bool
}

func (f *CompileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Config, "config", "c", "", "configuration file (YAML)")
	cmd.Flags().BoolVar(&f.Strict, "strict", false, "reject constructs the dialect cannot express")
	cmd.Flags().StringSliceVar(&f.Passes, "passes", nil, "comma-separated pass list, replacing the configured one")
	cmd.Flags().BoolVar(&f.NoOptimize, "no-optimize", false, "run no optimizer passes")
}

// Resolve loads the configuration file, if any, and applies the flags
// over it. An empty target keeps the configured dialect.
func (f *CompileFlags) Resolve(cmd *cobra.Command, target string) (*config.File, error) {
	file := config.Default()
	if f.Config != "" {
		if _, err := os.Stat(f.Config); os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", f.Config), Err: err}
		}
		loaded, err := config.Load(f.Config)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
		}
		file = loaded
	}

	if target != "" {
		d, err := dialect.Parse(target)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
		}
		file = file.ForDialect(d)
	}
	if f.Strict {
		file.Policy = dialect.Strict.String()
	}
	if cmd.Flags().Changed("passes") {
		file.PassList = append([]string{}, f.Passes...)
	}
	if f.NoOptimize {
		file.PassList = nil
	}

	// Pass names are left to the compiler, which reports them as E202.
	if _, err := file.RenderConfig(); err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}
	return file, nil
}

// compileOptions turns a resolved configuration into compiler options.
func compileOptions(file *config.File, opts *RootOptions) (compiler.Options, error) {
	rc, err := file.RenderConfig()
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{
		Render: rc,
		Passes: file.Passes(),
		Logger: opts.logger(),
	}, nil
}

// errorCode classifies err for CLI output.
func errorCode(err error) string {
	if code := compiler.CodeOf(err); code != "" {
		return string(code)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var unknown *optimize.UnknownPassError
	if errors.As(err, &unknown) {
		return string(compiler.CodeUnknownPass)
	}
	return ErrCodeGeneric
}

// errorMessage is err without the code prefix errorCode already reports.
func errorMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		msg := ce.Message
		for _, cause := range ce.Errors {
			msg += "\n  " + cause.Error()
		}
		return msg
	}
	return err.Error()
}
