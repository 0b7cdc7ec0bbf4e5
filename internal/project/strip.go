package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// MetadataDir is the version-control directory removed after cloning.
const MetadataDir = ".git"

// StripHistory removes the cloned repository's .git directory so the new
// project has no tie to the template's history or remote. A missing
// directory is not an error.
func StripHistory(projectPath string) error {
	gitDir := filepath.Join(projectPath, MetadataDir)
	if err := os.RemoveAll(gitDir); err != nil {
		return fmt.Errorf("failed to remove %s directory: %w", MetadataDir, err)
	}
	return nil
}
