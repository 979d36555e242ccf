// Package diag runs operator diagnostic commands. It is deliberately
// isolated from the lifecycle manager: it holds no store or authority
// handle, executes only allow-listed binaries, never interprets shell
// syntax, and truncates output before it travels back to the operator.
package diag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
)

// MaxOutputLen caps how much command output is returned.
const MaxOutputLen = 3500

// runCommand is a seam for tests.
var runCommand = func(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// Runner executes allow-listed diagnostic commands with a bounded timeout.
type Runner struct {
	allowed map[string]struct{}
	timeout time.Duration
	logger  logging.Logger
}

func NewRunner(allowlist []string, timeout time.Duration, logger logging.Logger) *Runner {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = struct{}{}
	}
	return &Runner{
		allowed: allowed,
		timeout: timeout,
		logger:  logger.With("module", "diag"),
	}
}

// Run splits commandLine on whitespace (no shell interpretation), checks the
// binary against the allowlist and executes it. The returned output combines
// stdout, falling back to stderr, truncated to MaxOutputLen.
func (r *Runner) Run(ctx context.Context, commandLine string) (string, int, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return "", 0, fmt.Errorf("%w: empty command", common.ErrValidation)
	}

	name := fields[0]
	if _, ok := r.allowed[name]; !ok {
		return "", 0, fmt.Errorf("%w: command %q is not allow-listed", common.ErrUnauthorized, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info(ctx, "running diagnostic command", "cmd", name)

	stdout, stderr, code, err := runCommand(ctx, name, fields[1:]...)
	if err != nil {
		return "", 0, fmt.Errorf("run %s: %w", name, err)
	}

	out := stdout
	if out == "" {
		out = stderr
	}
	if out == "" {
		out = "No output."
	}
	return Truncate(out), code, nil
}

// Truncate cuts s at MaxOutputLen, marking the cut.
func Truncate(s string) string {
	if len(s) <= MaxOutputLen {
		return s
	}
	return s[:MaxOutputLen] + "\n...[truncated]"
}
