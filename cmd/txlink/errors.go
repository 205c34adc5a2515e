package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Process exit codes. Found and not-found outcomes both exit 0.
const (
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the process exit code for a failed command. A reported
// error has already been printed.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// exactArgs is cobra.ExactArgs with the usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError(fmt.Errorf("%s requires exactly %d argument(s), got %d", cmd.Name(), n, len(args)))
		}
		return nil
	}
}
