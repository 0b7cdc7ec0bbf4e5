// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"crafthub/internal/instance"
)

// Delegate coordinates discovering a running crafthub host and delegating
// a CLI command to it via HTTP. It handles error classification (no host vs
// other errors) and exit code logic.
type Delegate struct {
	// ConfigDir is the config directory for lock/port file discovery.
	ConfigDir string

	// ExitFunc is called to exit the process. Defaults to os.Exit.
	ExitFunc func(int)

	// Stderr is where error messages are written. Defaults to os.Stderr.
	Stderr io.Writer

	// ClientTimeout is the HTTP client timeout. Defaults to 10 seconds.
	// Project creation waits for a clone, so it sets a longer one.
	ClientTimeout time.Duration
}

func (d *Delegate) discover() *instance.Client {
	if d.ExitFunc == nil {
		d.ExitFunc = os.Exit
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.ClientTimeout == 0 {
		d.ClientTimeout = 10 * time.Second
	}

	baseURL, err := instance.Discover(ResolveDataDir(d.ConfigDir))
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %v\n", err)
		if errors.Is(err, instance.ErrNoInstance) {
			d.ExitFunc(2)
		} else {
			d.ExitFunc(1)
		}
		return nil
	}
	return instance.NewClientWithTimeout(baseURL, d.ClientTimeout)
}

// Run executes a delegated command by discovering the running host and
// invoking fn with an HTTP client targeting it.
//
// Exit codes:
// - 2: no running crafthub host found
// - 1: any other error (connection, client method failed, etc.)
// - 0: success (fn returned nil)
func (d *Delegate) Run(fn func(*instance.Client) error) {
	client := d.discover()
	if client == nil {
		return
	}

	if err := fn(client); err != nil {
		var se *instance.StatusError
		if errors.As(err, &se) {
			fmt.Fprintf(d.Stderr, "error: %s\n", se.Message)
		} else {
			fmt.Fprintf(d.Stderr, "error: %v\n", err)
		}
		d.ExitFunc(1)
	}
}

// PrintJSON writes JSON data to w, indented when w is a terminal.
func PrintJSON(w io.Writer, data []byte) error {
	if !isTerminal(w) {
		_, err := w.Write(data)
		return err
	}
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		_, err := w.Write(data)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(obj)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
