// pattern: Imperative Shell

package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"

	"crafthub/internal/logging"
)

// Spec describes one external command.
type Spec struct {
	Name   string // short label used in logs, e.g. "git-clone"
	Binary string
	Args   []string
	Dir    string
	// Env is appended to the parent environment. Later entries win.
	Env []string
}

// apply copies the working directory and extra environment onto cmd.
func (s Spec) apply(cmd *exec.Cmd) *exec.Cmd {
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	return cmd
}

func (s Spec) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Binary
}

// Output is what a finished command wrote.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Diagnostic returns the text to show a user when the command failed:
// stderr when present, stdout otherwise, trimmed.
func (o Output) Diagnostic() string {
	if s := strings.TrimSpace(string(o.Stderr)); s != "" {
		return s
	}
	return strings.TrimSpace(string(o.Stdout))
}

// SpawnError means the binary could not be started at all.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string { return e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError means the command ran and exited non-zero.
type ExitError struct {
	Binary string
	Code   int
	Output Output
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
}

// Runner is the narrow capability the core needs from the OS: run and
// wait, run and stream, or spawn and forget.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Output, error)
	Stream(ctx context.Context, spec Spec, onLine func(string)) (Output, error)
	StartDetached(spec Spec) error
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	logger *logging.ScopedLogger
}

// NewExecRunner creates an ExecRunner. A nil logger is allowed.
func NewExecRunner(logger *logging.ScopedLogger) *ExecRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecRunner{logger: logger}
}

// Run starts the command, waits for it, and captures stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Output, error) {
	cmd := spec.apply(exec.CommandContext(ctx, spec.Binary, spec.Args...))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "process", spec.label(), "binary", spec.Binary, "args", spec.Args)

	if err := cmd.Start(); err != nil {
		r.logger.Error("failed to start command", "process", spec.label(), "error", err)
		return Output{ExitCode: -1}, &SpawnError{Binary: spec.Binary, Err: err}
	}

	err := cmd.Wait()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	return r.finish(ctx, spec, out, err)
}

// Stream runs the command attached to a pseudo-terminal so tools that only
// report progress to a TTY (git) still do, and calls onLine for every line
// or carriage-return-terminated update. The combined output is returned in
// Output.Stdout. Where no pty is available it falls back to Run.
func (r *ExecRunner) Stream(ctx context.Context, spec Spec, onLine func(string)) (Output, error) {
	if _, err := exec.LookPath(spec.Binary); err != nil {
		return Output{ExitCode: -1}, &SpawnError{Binary: spec.Binary, Err: err}
	}

	cmd := spec.apply(exec.CommandContext(ctx, spec.Binary, spec.Args...))

	r.logger.Debug("streaming command", "process", spec.label(), "binary", spec.Binary, "args", spec.Args)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 120})
	if err != nil {
		if errors.Is(err, pty.ErrUnsupported) {
			out, runErr := r.Run(ctx, spec)
			emitLines(out.Stderr, onLine)
			return out, runErr
		}
		r.logger.Error("failed to start command", "process", spec.label(), "error", err)
		return Output{ExitCode: -1}, &SpawnError{Binary: spec.Binary, Err: err}
	}
	defer func() { _ = ptmx.Close() }()

	var combined bytes.Buffer
	scanner := bufio.NewScanner(io.TeeReader(ptmx, &combined))
	scanner.Split(scanTerminalLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if onLine != nil {
			onLine(line)
		}
	}
	// Reading the master side returns EIO once the child exits; that is
	// the normal end of stream, so the scanner error is ignored.

	err = cmd.Wait()
	return r.finish(ctx, spec, Output{Stdout: combined.Bytes()}, err)
}

func (r *ExecRunner) finish(ctx context.Context, spec Spec, out Output, err error) (Output, error) {
	if err == nil {
		r.logger.Debug("command exited cleanly", "process", spec.label())
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		r.logger.Warn("command cancelled", "process", spec.label(), "error", ctxErr)
		return out, fmt.Errorf("%s: %w", spec.Binary, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		r.logger.Warn("command exited", "process", spec.label(), "exit_code", out.ExitCode)
		return out, &ExitError{Binary: spec.Binary, Code: out.ExitCode, Output: out}
	}

	out.ExitCode = -1
	return out, fmt.Errorf("%s: %w", spec.Binary, err)
}

// StartDetached starts the command in its own session with no stdio and
// returns without waiting. A background goroutine reaps the child.
func (r *ExecRunner) StartDetached(spec Spec) error {
	cmd := spec.apply(exec.Command(spec.Binary, spec.Args...))
	cmd.SysProcAttr = detachedAttrs()

	if err := cmd.Start(); err != nil {
		r.logger.Error("failed to start detached process", "process", spec.label(), "error", err)
		return &SpawnError{Binary: spec.Binary, Err: err}
	}

	pid := cmd.Process.Pid
	r.logger.Info("detached process started", "process", spec.label(), "binary", spec.Binary, "pid", pid)

	go func() {
		err := cmd.Wait()
		r.logger.Debug("detached process exited", "process", spec.label(), "pid", pid, "error", err)
	}()
	return nil
}

// scanTerminalLines is a bufio.SplitFunc that treats both \n and \r as
// line terminators.
func scanTerminalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func emitLines(data []byte, onLine func(string)) {
	if onLine == nil {
		return
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Split(scanTerminalLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			onLine(line)
		}
	}
}
