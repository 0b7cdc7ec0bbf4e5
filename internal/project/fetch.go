// pattern: Imperative Shell

package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crafthub/internal/logging"
	"crafthub/internal/process"
)

// nonInteractiveGit keeps git and credential helpers from prompting. Under
// a pty git would otherwise wait on the terminal for a username forever.
var nonInteractiveGit = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GCM_INTERACTIVE=never",
}

// Fetcher shallow-clones template repositories with the git CLI.
type Fetcher struct {
	runner    process.Runner
	gitBinary string
	timeout   time.Duration
	logger    *logging.ScopedLogger
}

// NewFetcher creates a Fetcher. An empty gitBinary means "git"; a zero
// timeout leaves the clone unbounded.
func NewFetcher(runner process.Runner, gitBinary string, timeout time.Duration, logger *logging.ScopedLogger) *Fetcher {
	if gitBinary == "" {
		gitBinary = "git"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Fetcher{runner: runner, gitBinary: gitBinary, timeout: timeout, logger: logger}
}

// Fetch clones templateURL into dest with history depth 1. When onOutput is
// non-nil the clone runs with --progress and every output line is passed to
// it as it arrives.
func (f *Fetcher) Fetch(ctx context.Context, templateURL, dest string, onOutput func(string)) error {
	if templateURL == "" {
		return withKind(ErrInvalidTemplate, fmt.Errorf("template URL is required"))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{"clone", "--depth", "1"}
	if onOutput != nil {
		args = append(args, "--progress")
	}
	args = append(args, "--", templateURL, dest)
	spec := process.Spec{Name: "git-clone", Binary: f.gitBinary, Args: args, Env: nonInteractiveGit}

	f.logger.Info("cloning template", "url", templateURL, "dest", dest)

	var out process.Output
	var err error
	if onOutput != nil {
		out, err = f.runner.Stream(ctx, spec, onOutput)
	} else {
		out, err = f.runner.Run(ctx, spec)
	}
	if err == nil {
		f.logger.Info("template cloned", "url", templateURL, "dest", dest)
		return nil
	}

	var spawnErr *process.SpawnError
	var exitErr *process.ExitError
	switch {
	case errors.As(err, &spawnErr):
		f.logger.Error("git could not be started", "binary", f.gitBinary, "error", err)
		return withKind(ErrToolUnavailable, fmt.Errorf("failed to execute git: %w", spawnErr.Err))
	case errors.As(err, &exitErr):
		diag := exitErr.Output.Diagnostic()
		f.logger.Error("git clone failed", "url", templateURL, "exit_code", exitErr.Code, "output", diag)
		return withKind(ErrToolFailed, fmt.Errorf("git clone failed: %s", diag))
	case errors.Is(err, context.DeadlineExceeded):
		f.logger.Error("git clone timed out", "url", templateURL, "timeout", f.timeout)
		if f.timeout > 0 {
			return withKind(ErrToolFailed, fmt.Errorf("git clone timed out after %s", f.timeout))
		}
		return withKind(ErrToolFailed, fmt.Errorf("git clone timed out"))
	case errors.Is(err, context.Canceled):
		return withKind(ErrToolFailed, fmt.Errorf("git clone cancelled"))
	default:
		f.logger.Error("git clone failed", "url", templateURL, "error", err, "output", out.Diagnostic())
		return withKind(ErrToolFailed, fmt.Errorf("git clone failed: %w", err))
	}
}
