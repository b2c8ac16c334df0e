// ABOUTME: Thin command runner for the relay's admin binaries and service manager
// ABOUTME: Arguments go straight to exec as argv; nothing is interpreted by a shell

package turn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured output of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// CommandError reports a command that could not start or exited non-zero.
// Result carries whatever output was captured.
type CommandError struct {
	Name   string
	Args   []string // redacted
	Result Result
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec under a per-command timeout.
type ExecRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecRunner creates a runner. A zero timeout means no limit beyond ctx.
func NewExecRunner(timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		timeout: timeout,
		logger:  logger.With("component", "runner"),
	}
}

// Run executes name with args and returns its output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	redacted := redactArgs(args)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		r.logger.Debug("command failed", "cmd", name, "args", redacted, "exit", res.ExitCode, "duration", time.Since(start), "error", err)
		return res, &CommandError{Name: name, Args: redacted, Result: res, Err: err}
	}

	r.logger.Debug("command finished", "cmd", name, "args", redacted, "duration", time.Since(start))
	return res, nil
}

// redactArgs hides the value following a password flag.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-p" || out[i] == "--password" {
			out[i+1] = "***"
			i++
		}
	}
	return out
}

// Stderr returns the captured stderr of a failed command, if any.
func Stderr(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Result.Stderr
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
