// pattern: Imperative Shell

package editor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"crafthub/internal/logging"
	"crafthub/internal/process"
)

var (
	ErrProjectNotFound = errors.New("project path does not exist")
	ErrSpawnFailed     = errors.New("failed to launch editor")
)

// Launcher opens a project in an editor without waiting for it.
type Launcher struct {
	runner process.Runner
	logger *logging.ScopedLogger
}

func NewLauncher(runner process.Runner, logger *logging.ScopedLogger) *Launcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Launcher{runner: runner, logger: logger}
}

// Launch starts executablePath with projectPath as its only argument in its
// own session and returns once the process has been started.
func (l *Launcher) Launch(executablePath, projectPath string) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("%w: no editor selected", ErrSpawnFailed)
	}
	info, err := os.Stat(projectPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectPath)
	}

	spec := process.Spec{
		Name:   "editor",
		Binary: executablePath,
		Args:   []string{projectPath},
		Dir:    projectPath,
	}
	if err := l.runner.StartDetached(spec); err != nil {
		l.logger.Error("editor launch failed", "editor", executablePath, "project", projectPath, "error", err)
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	l.logger.Info("editor launched", "editor", executablePath, "project", projectPath)
	return nil
}
