// pattern: Functional Core

package project

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxNameLen = 100

// validNameRe matches names that are safe as a single path element and as a
// TOML string value: alphanumeric start, then alphanumerics, spaces, dots,
// underscores and hyphens.
var validNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]*$`)

// ValidateName rejects names that could escape the base directory or
// produce an unusable folder.
func ValidateName(name string) error {
	if name == "" {
		return withKind(ErrInvalidName, fmt.Errorf("invalid project name: name cannot be empty"))
	}
	if len(name) > maxNameLen {
		return withKind(ErrInvalidName, fmt.Errorf("invalid project name: longer than %d characters", maxNameLen))
	}
	if strings.Contains(name, "..") {
		return withKind(ErrInvalidName, fmt.Errorf("invalid project name: cannot contain '..'"))
	}
	if !validNameRe.MatchString(name) {
		return withKind(ErrInvalidName, fmt.Errorf("invalid project name: %q must start with a letter or digit and may contain letters, digits, spaces, '.', '_' and '-'", name))
	}
	if strings.HasSuffix(name, " ") || strings.HasSuffix(name, ".") {
		return withKind(ErrInvalidName, fmt.Errorf("invalid project name: cannot end with a space or '.'"))
	}
	return nil
}

// ResolvePath joins the base directory and project name.
func ResolvePath(baseDir, name string) string {
	return filepath.Join(baseDir, name)
}

// Exists reports whether anything (file, directory, dangling symlink)
// occupies path. It always asks the filesystem.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
