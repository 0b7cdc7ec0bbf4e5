// pattern: Imperative Shell

// Package host runs the long-lived crafthub host: the single-instance lock,
// the HTTP API, and the editor directory watcher.
package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofrs/flock"

	"crafthub/internal/commands"
	"crafthub/internal/editor"
	"crafthub/internal/events"
	"crafthub/internal/instance"
	"crafthub/internal/logging"
	"crafthub/internal/web"
)

// Options configures Start.
type Options struct {
	DataDir string
	Version string
	Bind    string
	Port    int // 0 picks an ephemeral port
	Service *commands.Service
	Logs    logging.LoggerProvider
	// Notify receives events.* messages for an in-process TUI. Optional.
	Notify func(any)
}

// Host is a running host. Stop releases everything Start acquired.
type Host struct {
	dataDir string
	lock    *flock.Flock
	server  *web.Server
	logger  *logging.ScopedLogger
	cancel  context.CancelFunc
	served  chan error
	watched chan struct{}
}

// Start takes the instance lock, starts serving and watching, and records
// the listen address for Discover. It fails with instance.ErrAlreadyRunning
// when another host owns dataDir.
func Start(opts Options) (*Host, error) {
	logger := opts.Logs.For("app")

	fl, err := instance.Lock(opts.DataDir)
	if err != nil {
		return nil, err
	}

	server := web.New(web.Config{Bind: opts.Bind, Port: opts.Port, Version: opts.Version}, opts.Service, opts.Notify, opts.Logs)
	ln, err := server.Listen()
	if err != nil {
		instance.Cleanup(opts.DataDir, fl)
		return nil, err
	}
	if err := instance.WritePort(opts.DataDir, server.Addr()); err != nil {
		logger.Error("failed to write port file", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		dataDir: opts.DataDir,
		lock:    fl,
		server:  server,
		logger:  logger,
		cancel:  cancel,
		served:  make(chan error, 1),
		watched: make(chan struct{}),
	}

	go func() {
		err := server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server error", "error", err)
		}
		h.served <- err
	}()

	onChange := func() {
		server.PublishEditors()
		if opts.Notify != nil {
			opts.Notify(events.EditorsChangedMsg{})
		}
	}
	watcher, err := editor.NewWatcher(opts.Service.EditorCandidates(), onChange, opts.Logs.For("editor"))
	if err != nil {
		logger.Warn("editor watcher unavailable", "error", err)
		close(h.watched)
	} else {
		go func() {
			defer close(h.watched)
			_ = watcher.Start(ctx)
		}()
	}

	logger.Info("host started", "addr", server.Addr(), "data_dir", opts.DataDir)
	return h, nil
}

// URL returns the base URL of the HTTP API.
func (h *Host) URL() string {
	return fmt.Sprintf("http://%s", h.server.Addr())
}

// Done receives the result of Serve once the server stops.
func (h *Host) Done() <-chan error {
	return h.served
}

// Stop shuts the server down, stops the watcher, and releases the lock.
func (h *Host) Stop(ctx context.Context) error {
	h.cancel()
	err := h.server.Shutdown(ctx)
	<-h.watched
	instance.Cleanup(h.dataDir, h.lock)
	h.logger.Info("host stopped")
	return err
}
