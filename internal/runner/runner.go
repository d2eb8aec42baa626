// Package runner executes the external Postgres client tools.
package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Policy controls how a command's failure is handled.
type Policy int

const (
	// IgnoreFailure discards all output and swallows a non-zero exit.
	// Used for steps that may legitimately fail, like dropping a table
	// that does not exist.
	IgnoreFailure Policy = iota

	// PropagateFailure inherits stdout/stderr and returns the command's
	// error. Used where the operator needs to see load failures.
	PropagateFailure
)

// Runner runs a fully-formed external command line synchronously.
type Runner interface {
	Run(ctx context.Context, policy Policy, name string, args ...string) error
}

// Exec is the real Runner backed by os/exec.
type Exec struct{}

// New returns a Runner that invokes real processes.
func New() *Exec {
	return &Exec{}
}

// Run executes name with args and blocks until it exits.
func (*Exec) Run(ctx context.Context, policy Policy, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	if policy == PropagateFailure {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	_ = cmd.Run()
	return nil
}
