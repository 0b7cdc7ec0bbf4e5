package host

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"crafthub/internal/commands"
	"crafthub/internal/config"
	"crafthub/internal/instance"
	"crafthub/internal/logging"
	"crafthub/internal/process"
)

func newTestOptions(t *testing.T) Options {
	t.Helper()
	lm := logging.NewTestLogManager(200)
	t.Cleanup(func() { _ = lm.Close() })

	cfg := config.DefaultConfig()
	cfg.Editors.ReplaceDefaults = true
	dataDir := t.TempDir()
	return Options{
		DataDir: dataDir,
		Version: "test",
		Bind:    "127.0.0.1",
		Service: commands.New(commands.Options{Config: cfg, DataDir: dataDir, Runner: &process.Fake{}, Logs: lm}),
		Logs:    lm,
	}
}

func TestStart_DiscoverableUntilStopped(t *testing.T) {
	opts := newTestOptions(t)

	h, err := Start(opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	baseURL, err := instance.Discover(opts.DataDir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if baseURL != h.URL() {
		t.Errorf("Discover() = %q, want %q", baseURL, h.URL())
	}

	health, err := instance.NewClient(baseURL).Health()
	if err != nil || health.Version != "test" {
		t.Errorf("Health() = %+v, %v", health, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	select {
	case err := <-h.Done():
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve() = %v, want ErrServerClosed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	if _, err := instance.Discover(opts.DataDir); !errors.Is(err, instance.ErrNoInstance) {
		t.Errorf("Discover() after Stop = %v, want ErrNoInstance", err)
	}
}

func TestStart_SecondHostRefused(t *testing.T) {
	opts := newTestOptions(t)

	h, err := Start(opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = h.Stop(context.Background()) }()

	if _, err := Start(opts); !errors.Is(err, instance.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}
