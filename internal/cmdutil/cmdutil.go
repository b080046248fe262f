// Package cmdutil runs external commands with a bounded deadline so a
// stalled subprocess never hangs a supervised task.
package cmdutil

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Run executes a command bounded by timeout and returns its combined
// output. If the command exceeds the timeout it is killed and an error is
// returned.
func Run(timeout time.Duration, name string, args ...string) ([]byte, error) {
	return RunContext(context.Background(), timeout, name, args...)
}

// RunContext executes a command under a deadline derived from ctx, so
// callers on a supervised task can have the subprocess killed both on
// their own cancellation and on the fixed timeout, whichever comes first.
func RunContext(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("command timed out after %v: %s %v", timeout, name, args)
	}
	return output, err
}
