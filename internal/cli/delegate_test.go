// pattern: Imperative Shell
package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crafthub/internal/instance"
)

// fakeHost registers srv as the running host in a fresh data dir.
func fakeHost(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	fl, err := instance.Lock(dir)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	t.Cleanup(func() { instance.Cleanup(dir, fl) })
	if err := instance.WritePort(dir, strings.TrimPrefix(srv.URL, "http://")); err != nil {
		t.Fatalf("WritePort: %v", err)
	}
	return dir
}

func healthServer(extra http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok","version":"1.0.0","pid":42,"started_at":"2026-01-01T00:00:00Z"}`))
			return
		}
		extra(w, r)
	}))
}

func TestDelegate_Run_NoInstance_ExitsCode2(t *testing.T) {
	exitCode := -1
	stderr := &bytes.Buffer{}
	d := Delegate{
		ConfigDir: t.TempDir(),
		ExitFunc:  func(code int) { exitCode = code },
		Stderr:    stderr,
	}

	called := false
	d.Run(func(*instance.Client) error {
		called = true
		return nil
	})

	if called {
		t.Error("fn should not be called without a host")
	}
	if exitCode != 2 {
		t.Errorf("exit code = %d, want 2", exitCode)
	}
	if !strings.Contains(stderr.String(), "no running crafthub host found") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestDelegate_Run_Success(t *testing.T) {
	srv := healthServer(http.NotFound)
	defer srv.Close()
	dir := fakeHost(t, srv)

	exitCode := -1
	d := Delegate{ConfigDir: dir, ExitFunc: func(code int) { exitCode = code }, Stderr: &bytes.Buffer{}}

	var health instance.Health
	d.Run(func(c *instance.Client) error {
		h, err := c.Health()
		health = h
		return err
	})

	if exitCode != -1 {
		t.Errorf("exit code = %d, want no exit", exitCode)
	}
	if health.Version != "1.0.0" || health.PID != 42 {
		t.Errorf("health = %+v", health)
	}
}

func TestDelegate_Run_StatusError_PrintsServerMessage(t *testing.T) {
	srv := healthServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"a folder named \"MyGame\" already exists in /tmp"}`))
	})
	defer srv.Close()
	dir := fakeHost(t, srv)

	exitCode := -1
	stderr := &bytes.Buffer{}
	d := Delegate{ConfigDir: dir, ExitFunc: func(code int) { exitCode = code }, Stderr: stderr}

	d.Run(func(c *instance.Client) error {
		_, err := c.CreateProject("MyGame", "/tmp", "")
		return err
	})

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if stderr.String() != "error: a folder named \"MyGame\" already exists in /tmp\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestDelegate_Run_PlainError_ExitsCode1(t *testing.T) {
	srv := healthServer(http.NotFound)
	defer srv.Close()
	dir := fakeHost(t, srv)

	exitCode := -1
	stderr := &bytes.Buffer{}
	d := Delegate{ConfigDir: dir, ExitFunc: func(code int) { exitCode = code }, Stderr: stderr}
	d.Run(func(*instance.Client) error { return errors.New("boom") })

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if stderr.String() != "error: boom\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestPrintJSON_NonTerminal_WritesRaw(t *testing.T) {
	buf := &bytes.Buffer{}
	data := []byte(`{"a":1}`)
	if err := PrintJSON(buf, data); err != nil {
		t.Fatal(err)
	}
	if buf.String() != `{"a":1}` {
		t.Errorf("output = %q", buf.String())
	}
}
