// pattern: Imperative Shell
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "crafthub.lock"
	portFileName = "crafthub.port"
)

// ErrAlreadyRunning is returned by Lock when another host holds the lock.
var ErrAlreadyRunning = errors.New("another crafthub host is already running")

// Lock takes the exclusive host lock in dataDir, creating the directory if
// needed. The caller must defer Cleanup.
func Lock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return fl, nil
}

// WritePort records the host's listener address for Discover.
func WritePort(dataDir, addr string) error {
	return os.WriteFile(filepath.Join(dataDir, portFileName), []byte(addr), 0o600)
}

// Cleanup removes the port file and releases the lock.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(filepath.Join(dataDir, portFileName))
	if fl != nil {
		_ = fl.Unlock()
	}
}
