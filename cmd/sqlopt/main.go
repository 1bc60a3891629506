// Command sqlopt compiles query documents into optimized, dialect-correct
// SQL.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/sqlopt/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return cli.ExitSuccess
	}

	// Errors with a cause were already reported in the chosen format.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Err == nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if !errors.As(err, &exitErr) {
		return cli.ExitCommandError
	}
	return exitErr.Code
}
