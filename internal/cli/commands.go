// pattern: Imperative Shell
package cli

import (
	"fmt"
	"path/filepath"

	"crafthub/internal/commands"
	"crafthub/internal/config"
	"crafthub/internal/instance"
	"crafthub/internal/logging"
)

// ResolveDataDir returns the directory holding the lock, port, log and
// per-target lock files. It is the config directory.
func ResolveDataDir(configDir string) string {
	return config.Dir(configDir)
}

// LoadConfig loads config.yaml from configDir, or the default location when
// configDir is empty.
func LoadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// NewLogManager opens the rotating log file in dataDir.
func NewLogManager(dataDir, level string) (*logging.Manager, error) {
	return logging.NewManager(logging.Config{
		FilePath:       filepath.Join(dataDir, "crafthub.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          level,
	})
}

// environment lazily builds what local commands need.
type environment struct {
	app       *App
	configDir string
	version   string
}

// session is one command's loaded config, logs and service.
type session struct {
	cfg  config.Config
	logs *logging.Manager
	svc  *commands.Service
}

func (s *session) close() {
	_ = s.logs.Close()
}

func (e *environment) open() (*session, error) {
	cfg, err := LoadConfig(e.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dataDir := ResolveDataDir(e.configDir)
	logs, err := NewLogManager(dataDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	svc := commands.New(commands.Options{Config: cfg, DataDir: dataDir, Logs: logs})
	return &session{cfg: cfg, logs: logs, svc: svc}, nil
}

func (e *environment) delegate() *Delegate {
	return &Delegate{ConfigDir: e.configDir, ExitFunc: e.app.ExitFunc, Stderr: e.app.Stderr}
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(version string, configDir string) *App {
	app := NewApp(version)
	env := &environment{app: app, configDir: configDir, version: version}

	app.AddCommand(&Command{
		Name:    "create",
		Summary: "Create a project from a template",
		Usage:   createUsage,
		Run:     env.runCreate,
	})

	app.AddCommand(&Command{
		Name:    "login",
		Summary: "Open the login page in the browser",
		Usage:   loginUsage,
		Run:     env.runLogin,
	})

	app.AddCommand(&Command{
		Name:    "projects",
		Summary: "List projects in the projects directory",
		Usage:   projectsUsage,
		Run:     env.runProjects,
	})

	app.AddCommand(&Command{
		Name:    "serve",
		Summary: "Run the HTTP host without the TUI",
		Usage:   serveUsage,
		Run:     env.runServe,
	})

	app.AddCommand(&Command{
		Name:    "status",
		Summary: "Show the running host, if any",
		Usage:   "Usage: crafthub status",
		Run:     env.runStatus,
	})

	app.AddCommand(&Command{
		Name:    "doctor",
		Summary: "Check git, config and editors",
		Usage:   "Usage: crafthub doctor",
		Run:     env.runDoctor,
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove stale lock, port and creation-lock files",
		Usage:   "Usage: crafthub cleanup",
		Run: func(args []string) error {
			return runCleanupCommand(app, configDir)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: crafthub version",
		Run: func(args []string) error {
			fmt.Fprintln(app.Stdout, version)
			return nil
		},
	})

	editorsGroup := app.AddGroup("editors", "Detect installed editors and open projects")
	env.registerEditorCommands(editorsGroup)

	return app
}

// runCleanupCommand removes stale lock and port files from a crashed host.
func runCleanupCommand(app *App, configDir string) error {
	dataDir := ResolveDataDir(configDir)

	fl, err := instance.Lock(dataDir)
	if err != nil {
		return fmt.Errorf("a crafthub host appears to be running, stop it first")
	}
	instance.Cleanup(dataDir, fl)
	pruned, err := commands.PruneTargetLocks(dataDir)
	if err != nil {
		return err
	}
	if pruned > 0 {
		fmt.Fprintf(app.Stdout, "Removed %d stale creation lock(s).\n", pruned)
	}
	fmt.Fprintln(app.Stdout, "Cleaned up stale lock and port files.")
	return nil
}
