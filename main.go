// pattern: Imperative Shell
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"crafthub/internal/cli"
	"crafthub/internal/commands"
	"crafthub/internal/events"
	"crafthub/internal/host"
	"crafthub/internal/instance"
	"crafthub/internal/tui"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/crafthub)")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, *configDir)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	app := cli.BuildApp(version, *configDir)
	if app.Execute(flag.Args()) {
		runTUI(*configDir)
	}
}

// runTUI launches the interactive wizard. It also hosts the HTTP API unless
// another crafthub host already owns the data directory.
func runTUI(configDir string) {
	cfg, err := cli.LoadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}

	dataDir := cli.ResolveDataDir(configDir)

	logManager, err := cli.NewLogManager(dataDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("application starting", "version", version)

	svc := commands.New(commands.Options{Config: cfg, DataDir: dataDir, Logs: logManager})

	model := tui.NewModel(tui.Options{
		Config:  cfg,
		Backend: svc,
		Logs:    logManager,
		Entries: logManager.Entries(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	h, err := host.Start(host.Options{
		DataDir: dataDir,
		Version: version,
		Bind:    cfg.Web.Bind,
		Port:    cfg.Web.Port,
		Service: svc,
		Logs:    logManager,
		Notify:  func(msg any) { p.Send(msg) },
	})
	switch {
	case errors.Is(err, instance.ErrAlreadyRunning):
		appLogger.Warn("another host is running, the wizard runs without the HTTP API")
	case err != nil:
		appLogger.Error("host failed to start", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	default:
		go p.Send(events.WebListenURLMsg{URL: h.URL()})
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Stop(ctx); err != nil {
				appLogger.Error("host shutdown error", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		appLogger.Error("application exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	appLogger.Info("application stopped")
}
