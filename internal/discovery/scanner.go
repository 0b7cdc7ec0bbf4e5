// pattern: Imperative Shell

package discovery

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"crafthub/internal/logging"
	"crafthub/internal/project"
)

// Scanner discovers projects in configured scan paths.
type Scanner struct {
	manifest project.Manifest
	logger   *logging.ScopedLogger
}

// NewScanner creates a scanner recognizing projects by manifest.File.
func NewScanner(manifest project.Manifest, logger *logging.ScopedLogger) *Scanner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scanner{manifest: manifest, logger: logger}
}

// ScanAll walks each path one level deep and returns the directories that
// contain the manifest file, sorted by name. Missing or unreadable paths
// are skipped.
func (s *Scanner) ScanAll(paths []string) []Project {
	projects := []Project{}
	seen := make(map[string]bool)

	for _, scanPath := range paths {
		entries, err := os.ReadDir(scanPath)
		if err != nil {
			s.logger.Debug("skipping scan path", "path", scanPath, "error", err)
			continue
		}

		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			projectPath := filepath.Join(scanPath, entry.Name())
			// Stat follows links, so a symlinked project directory counts.
			if info, err := os.Stat(projectPath); err != nil || !info.IsDir() {
				continue
			}

			// Resolve symlinks to get canonical path
			resolved, err := filepath.EvalSymlinks(projectPath)
			if err != nil {
				resolved = projectPath
			}
			if seen[resolved] {
				continue
			}
			seen[resolved] = true

			p, ok := s.inspect(entry.Name(), resolved)
			if ok {
				projects = append(projects, p)
			}
		}
	}

	slices.SortFunc(projects, func(a, b Project) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return projects
}

func (s *Scanner) inspect(name, dir string) (Project, bool) {
	manifestPath := s.manifest.Path(dir)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Project{}, false
	}

	p := Project{
		Name:    name,
		Path:    dir,
		Renamed: s.manifest.Placeholder == "" || !strings.Contains(string(data), s.manifest.Placeholder),
		HasGit:  exists(filepath.Join(dir, ".git")),
	}
	pkg, ok, err := project.PackageName(manifestPath)
	if err != nil {
		s.logger.Debug("manifest not parseable", "path", manifestPath, "error", err)
	} else if ok {
		p.PackageName = pkg
	}
	return p, true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
