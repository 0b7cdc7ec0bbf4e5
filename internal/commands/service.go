// pattern: Imperative Shell

package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"crafthub/internal/config"
	"crafthub/internal/discovery"
	"crafthub/internal/editor"
	"crafthub/internal/logging"
	"crafthub/internal/process"
	"crafthub/internal/project"
)

var (
	ErrInvalidURL   = errors.New("invalid login URL")
	ErrNoEditor     = errors.New("no editor selected")
	ErrTargetLocked = errors.New("another creation is in progress for this location")
)

const targetLockSubdir = "locks"

var lockRetryDelay = 100 * time.Millisecond

// Options configures a Service. Zero values pick the real implementations.
type Options struct {
	Config   config.Config
	DataDir  string // holds per-target lock files; empty disables locking
	Runner   process.Runner
	LookPath config.LookPathFunc
	GOOS     string
	Logs     logging.LoggerProvider
}

// Service is the one entry point every host surface (CLI, HTTP, TUI) calls.
// Each method is independent and safe to call from multiple goroutines.
type Service struct {
	cfg      config.Config
	dataDir  string
	goos     string
	runner   process.Runner
	creator  *project.Creator
	scanner  *discovery.Scanner
	locator  *editor.Locator
	launcher *editor.Launcher
	logger   *logging.ScopedLogger
}

func New(opts Options) *Service {
	logs := opts.Logs
	logFor := func(scope string) *logging.ScopedLogger {
		if logs == nil {
			return logging.NopLogger()
		}
		return logs.For(scope)
	}

	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	runner := opts.Runner
	if runner == nil {
		runner = process.NewExecRunner(logFor("process"))
	}

	cfg := opts.Config
	projectLog := logFor("project")
	fetcher := project.NewFetcher(runner, cfg.GitBinary, time.Duration(cfg.CloneTimeout), projectLog)
	manifest := project.Manifest{
		File:        cfg.Manifest.File,
		Placeholder: cfg.Manifest.Placeholder,
		Replacement: cfg.Manifest.Replacement,
	}

	editorLog := logFor("editor")
	return &Service{
		cfg:      cfg,
		dataDir:  opts.DataDir,
		goos:     goos,
		runner:   runner,
		creator:  project.NewCreator(fetcher, manifest, projectLog),
		scanner:  discovery.NewScanner(manifest, logFor("discovery")),
		locator:  editor.NewLocator(editor.FromConfig(cfg.Editors, goos), opts.LookPath, editorLog),
		launcher: editor.NewLauncher(runner, editorLog),
		logger:   logFor("commands"),
	}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() config.Config {
	return s.cfg
}

// EditorCandidates returns the candidate table used for detection.
func (s *Service) EditorCandidates() []editor.Candidate {
	return s.locator.Candidates()
}

// StartLoginFlow opens url in the user's browser and returns once the
// opener has been started.
func (s *Service) StartLoginFlow(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w %q: missing host", ErrInvalidURL, rawURL)
	}

	spec := browserOpener(s.goos, u.String())
	if err := s.runner.StartDetached(spec); err != nil {
		s.logger.Error("failed to open browser", "opener", spec.Binary, "error", err)
		return fmt.Errorf("failed to open browser: %w", err)
	}
	s.logger.Info("login flow started", "host", u.Host)
	return nil
}

func browserOpener(goos, target string) process.Spec {
	switch goos {
	case "darwin":
		return process.Spec{Name: "browser", Binary: "open", Args: []string{target}}
	case "windows":
		return process.Spec{Name: "browser", Binary: "rundll32", Args: []string{"url.dll,FileProtocolHandler", target}}
	default:
		return process.Spec{Name: "browser", Binary: "xdg-open", Args: []string{target}}
	}
}

// CreateNewProject creates <path>/<name> from template, which may be a
// configured template name or a clone URL. An empty path uses the
// configured projects directory; an empty template uses the default one.
// The returned Result carries the confirmation message.
func (s *Service) CreateNewProject(ctx context.Context, name, path, template string, onProgress project.ProgressFunc) (project.Result, error) {
	templateURL, err := s.cfg.ResolveTemplate(template)
	if err != nil {
		return project.Result{}, &inputError{err: err}
	}
	if strings.TrimSpace(path) == "" {
		path = s.cfg.ResolveProjectsDir()
	} else {
		path = config.ExpandHome(path)
	}

	unlock, err := s.lockTarget(ctx, project.ResolvePath(path, name))
	if err != nil {
		return project.Result{}, err
	}
	defer unlock()

	return s.creator.Create(ctx, project.Request{Name: name, BaseDir: path, TemplateURL: templateURL}, onProgress)
}

// lockTarget serializes creations of the same target across processes.
func (s *Service) lockTarget(ctx context.Context, target string) (func(), error) {
	if s.dataDir == "" {
		return func() {}, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	sum := sha256.Sum256([]byte(abs))
	dir := filepath.Join(s.dataDir, targetLockSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrTargetLocked, abs)
		}
		return nil, fmt.Errorf("failed to acquire creation lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrTargetLocked, abs)
	}
	return func() { _ = fl.Unlock() }, nil
}

// PruneTargetLocks removes per-target lock files under dataDir that no
// creation currently holds, returning how many were removed.
func PruneTargetLocks(dataDir string) (int, error) {
	dir := filepath.Join(dataDir, targetLockSubdir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read lock directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fl := flock.New(path)
		locked, err := fl.TryLock()
		if err != nil || !locked {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
		_ = fl.Unlock()
	}
	return removed, nil
}

// ListProjects scans the projects directory for template-derived projects.
// The slice is never nil.
func (s *Service) ListProjects() []discovery.Project {
	return s.scanner.ScanAll([]string{s.cfg.ResolveProjectsDir()})
}

// DetectEditors lists installed editors. The slice is never nil.
func (s *Service) DetectEditors() ([]editor.Info, error) {
	return s.locator.Detect(), nil
}

// DefaultEditor resolves the configured default_editor against detected
// editors, falling back to the first one detected.
func (s *Service) DefaultEditor() (editor.Info, bool) {
	return editor.Preferred(s.cfg.DefaultEditor, s.locator.Detect())
}

// OpenProjectInEditor launches the editor on projectPath without waiting.
// editorRef is an executable path or the slug of a detected editor; empty
// means the default editor.
func (s *Service) OpenProjectInEditor(projectPath, editorRef string) error {
	editorRef = strings.TrimSpace(editorRef)
	if editorRef == "" {
		info, ok := s.DefaultEditor()
		if !ok {
			return ErrNoEditor
		}
		s.logger.Debug("using default editor", "editor", info.ExecutablePath)
		return s.launcher.Launch(info.ExecutablePath, config.ExpandHome(projectPath))
	}
	exe := editorRef
	if !strings.ContainsAny(editorRef, `/\`) {
		if info, ok := s.locator.Lookup(editorRef); ok {
			exe = info.ExecutablePath
		}
	}
	return s.launcher.Launch(exe, config.ExpandHome(projectPath))
}
