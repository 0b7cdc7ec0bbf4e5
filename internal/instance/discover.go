// pattern: Imperative Shell
package instance

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const healthTimeout = 2 * time.Second

// ErrNoInstance means no host holds the lock in the data directory.
var ErrNoInstance = errors.New("no running crafthub host found (start one with 'crafthub serve')")

// Discover returns the base URL (e.g. "http://127.0.0.1:12345") of the host
// running against dataDir after checking that it answers /api/health.
func Discover(dataDir string) (string, error) {
	// Getting the lock means nobody else has it.
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoInstance
		}
		return "", fmt.Errorf("failed to check lock: %w", err)
	}
	if locked {
		_ = fl.Unlock()
		return "", ErrNoInstance
	}

	data, err := os.ReadFile(filepath.Join(dataDir, portFileName))
	if err != nil {
		return "", fmt.Errorf("crafthub host detected but port file missing (try 'crafthub cleanup'): %w", err)
	}
	addr := strings.TrimSpace(string(data))
	if addr == "" {
		return "", fmt.Errorf("crafthub port file is empty (try 'crafthub cleanup')")
	}

	baseURL := fmt.Sprintf("http://%s", addr)

	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return "", fmt.Errorf("crafthub host not responding (try 'crafthub cleanup'): %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crafthub health check failed (status %d)", resp.StatusCode)
	}

	return baseURL, nil
}
