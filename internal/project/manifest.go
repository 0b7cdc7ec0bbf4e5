package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Manifest describes the one textual substitution applied to a freshly
// cloned template: every occurrence of Placeholder in File is replaced by
// Replacement formatted with the project name.
type Manifest struct {
	File        string // file name relative to the project root
	Placeholder string
	Replacement string // fmt format with a single %s
}

// Path returns the manifest location inside projectPath.
func (m Manifest) Path(projectPath string) string {
	return filepath.Join(projectPath, m.File)
}

// Rewrite substitutes the placeholder in the manifest at path. It reports
// whether anything was replaced. A missing manifest is not an error and
// neither is a manifest without the placeholder; the file is only written
// when its content changes.
func (m Manifest) Rewrite(path, newName string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", m.File, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", m.File, err)
	}

	content := string(data)
	if m.Placeholder == "" || !strings.Contains(content, m.Placeholder) {
		return false, nil
	}

	updated := strings.ReplaceAll(content, m.Placeholder, fmt.Sprintf(m.Replacement, newName))
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", m.File, err)
	}
	return true, nil
}

// PackageName reads package.name from a TOML manifest. ok is false when
// the file is not TOML or has no package name.
func PackageName(path string) (name string, ok bool, err error) {
	if filepath.Ext(path) != ".toml" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	var doc struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", false, err
	}
	if doc.Package.Name == "" {
		return "", false, nil
	}
	return doc.Package.Name, true, nil
}
