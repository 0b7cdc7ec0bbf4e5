// pattern: Imperative Shell

package editor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"crafthub/internal/config"
	"crafthub/internal/logging"
)

// Locator finds installed editors from a candidate table.
type Locator struct {
	candidates []Candidate
	lookPath   config.LookPathFunc
	logger     *logging.ScopedLogger
}

// NewLocator creates a Locator. A nil lookPath uses exec.LookPath.
func NewLocator(candidates []Candidate, lookPath config.LookPathFunc, logger *logging.ScopedLogger) *Locator {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Locator{candidates: candidates, lookPath: lookPath, logger: logger}
}

// NewDefaultLocator builds a Locator for the running OS from config.
func NewDefaultLocator(cfg config.EditorsConfig, logger *logging.ScopedLogger) *Locator {
	return NewLocator(FromConfig(cfg, runtime.GOOS), nil, logger)
}

// Candidates returns the table the locator searches.
func (l *Locator) Candidates() []Candidate {
	return append([]Candidate(nil), l.candidates...)
}

// Detect returns the installed editors in candidate order. PATH lookup wins
// over fallback directories; the first executable found for a candidate is
// used. Editors resolving to the same real file are reported once. The
// result is never nil.
func (l *Locator) Detect() []Info {
	found := make([]Info, 0, len(l.candidates))
	seen := make(map[string]string)

	for _, c := range l.candidates {
		path, ok := l.find(c)
		if !ok {
			continue
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			real = path
		}
		if prev, dup := seen[real]; dup {
			l.logger.Debug("skipping duplicate editor", "slug", c.Slug, "same_as", prev, "path", real)
			continue
		}
		seen[real] = c.Slug

		found = append(found, Info{DisplayName: c.DisplayName, Slug: c.Slug, ExecutablePath: path})
	}

	l.logger.Debug("editor detection finished", "candidates", len(l.candidates), "found", len(found))
	return found
}

// Lookup returns the detected editor with the given slug.
func (l *Locator) Lookup(slug string) (Info, bool) {
	for _, info := range l.Detect() {
		if info.Slug == slug {
			return info, true
		}
	}
	return Info{}, false
}

func (l *Locator) find(c Candidate) (string, bool) {
	for _, exe := range c.Executables {
		if p, err := l.lookPath(exe); err == nil && p != "" {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			return p, true
		}
	}
	for _, exe := range c.Executables {
		for _, dir := range c.FallbackDirs {
			p := filepath.Join(config.ExpandHome(dir), exe)
			if isRegularFile(p) {
				return p, true
			}
		}
	}
	return "", false
}

// isRegularFile follows symlinks, so a link into an app bundle counts.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
