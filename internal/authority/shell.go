package authority

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
	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// useraddExitNameInUse is useradd's documented exit status for a duplicate
// username.
const useraddExitNameInUse = 9

type commandResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// commandRunner executes a command with optional stdin. A non-zero exit is
// reported through commandResult, not through the error; the error is
// reserved for start failures and context expiry.
type commandRunner func(ctx context.Context, stdin string, name string, args ...string) (commandResult, error)

func runCommand(ctx context.Context, stdin string, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{stdout: stdout.String(), stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, err
	}
	return res, nil
}

// Shell drives the host user database through the standard admin utilities
// (useradd, chpasswd, chage, passwd, deluser). It must run with sufficient
// privileges to invoke them.
type Shell struct {
	timeout time.Duration
	logger  logging.Logger
	run     commandRunner
}

// NewShell returns a Shell whose every invocation is bounded by timeout.
func NewShell(timeout time.Duration, logger logging.Logger) *Shell {
	return &Shell{
		timeout: timeout,
		logger:  logger.With("module", "authority"),
		run:     runCommand,
	}
}

// exec runs one admin utility with the configured timeout. The stdin value
// is deliberately excluded from logging: chpasswd receives the secret there.
func (s *Shell) exec(ctx context.Context, stdin string, name string, args ...string) (commandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug(ctx, "running authority command", "cmd", name, "args", strings.Join(args, " "))

	res, err := s.run(ctx, stdin, name, args...)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", common.ErrAuthority, name, err)
	}
	return res, nil
}

// classify converts a non-zero utility exit into one of the sentinel errors,
// keeping the stderr diagnostic as payload.
func classify(op string, res commandResult) error {
	stderr := strings.TrimSpace(res.stderr)
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "does not exist") || strings.Contains(lower, "unknown user") {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	if strings.Contains(lower, "already exists") {
		return fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
	}
	return fmt.Errorf("%w: %s: exit %d: %s", common.ErrAuthority, op, res.exitCode, stderr)
}

func (s *Shell) Exists(ctx context.Context, username string) (bool, error) {
	res, err := s.exec(ctx, "", "id", username)
	if err != nil {
		return false, err
	}
	return res.exitCode == 0, nil
}

func (s *Shell) CreateAccount(ctx context.Context, username string) error {
	res, err := s.exec(ctx, "", "useradd", "-m", "-s", "/bin/bash", username)
	if err != nil {
		return err
	}
	if res.exitCode == useraddExitNameInUse {
		return fmt.Errorf("create account: %w", common.ErrAlreadyExists)
	}
	if res.exitCode != 0 {
		return classify("create account", res)
	}
	return nil
}

// SetSecret feeds "username:secret" to chpasswd on stdin so the secret never
// appears in the process table or in log output.
func (s *Shell) SetSecret(ctx context.Context, username, secret string) error {
	res, err := s.exec(ctx, fmt.Sprintf("%s:%s\n", username, secret), "chpasswd")
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return classify("set secret", res)
	}
	return nil
}

func (s *Shell) SetExpiry(ctx context.Context, username string, exp models.Expiry) error {
	arg := "-1" // chage's token for "no expiry"
	if !exp.IsNever() {
		arg = exp.String()
	}
	res, err := s.exec(ctx, "", "chage", "-E", arg, username)
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return classify("set expiry", res)
	}
	return nil
}

func (s *Shell) Lock(ctx context.Context, username string) error {
	res, err := s.exec(ctx, "", "passwd", "-l", username)
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return classify("lock", res)
	}
	return nil
}

func (s *Shell) Unlock(ctx context.Context, username string) error {
	res, err := s.exec(ctx, "", "passwd", "-u", username)
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return classify("unlock", res)
	}
	return nil
}

func (s *Shell) DeleteAccount(ctx context.Context, username string, purge bool) error {
	args := []string{username}
	if purge {
		args = []string{"--remove-home", username}
	}
	res, err := s.exec(ctx, "", "deluser", args...)
	if err != nil {
		return err
	}
	if res.exitCode != 0 {
		return classify("delete account", res)
	}
	return nil
}

func (s *Shell) StatusReport(ctx context.Context, username string) (string, error) {
	res, err := s.exec(ctx, "", "chage", "-l", username)
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", classify("status report", res)
	}
	return res.stdout, nil
}
