// pattern: Imperative Shell
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"crafthub/internal/host"
)

const serveUsage = "Usage: crafthub serve [--bind ADDR] [--port N]"

// runServe runs the host in the foreground until interrupted.
func (e *environment) runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bind := fs.String("bind", "", "listen address (default: web.bind)")
	port := fs.Int("port", -1, "listen port, 0 for any (default: web.port)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return usageError{serveUsage}
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	opts := host.Options{
		DataDir: ResolveDataDir(e.configDir),
		Version: e.version,
		Bind:    s.cfg.Web.Bind,
		Port:    s.cfg.Web.Port,
		Service: s.svc,
		Logs:    s.logs,
	}
	if *bind != "" {
		opts.Bind = *bind
	}
	if *port >= 0 {
		opts.Port = *port
	}

	h, err := host.Start(opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.app.Stdout, "crafthub host listening on %s\n", h.URL())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	var serveErr error
	select {
	case <-sig:
	case serveErr = <-h.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}
