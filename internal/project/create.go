// pattern: Imperative Shell

package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"crafthub/internal/logging"
)

// Progress step names reported during Create.
const (
	StepValidate = "validate"
	StepClone    = "clone"
	StepStrip    = "strip"
	StepManifest = "manifest"
)

// Progress statuses.
const (
	StatusStarted   = "started"
	StatusOutput    = "output"
	StatusCompleted = "completed"
	StatusWarning   = "warning"
	StatusFailed    = "failed"
)

// ProgressStep is one update emitted while a project is being created.
type ProgressStep struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProgressFunc receives progress updates. It is called on the creating
// goroutine and must not block for long.
type ProgressFunc func(ProgressStep)

// Request is one "create a project from a template" invocation.
type Request struct {
	Name        string
	BaseDir     string
	TemplateURL string
}

// Result describes a created project.
type Result struct {
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	Message         string   `json:"message"`
	ManifestUpdated bool     `json:"manifest_updated"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Creator runs the clone, strip and manifest steps in order.
type Creator struct {
	fetcher  *Fetcher
	manifest Manifest
	logger   *logging.ScopedLogger
}

// NewCreator creates a Creator.
func NewCreator(fetcher *Fetcher, manifest Manifest, logger *logging.ScopedLogger) *Creator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Creator{fetcher: fetcher, manifest: manifest, logger: logger}
}

// Create materializes <BaseDir>/<Name> from the template.
//
// Nothing on disk is touched unless the name is valid and the target does
// not exist. Once the clone succeeds the directory is never removed: a
// failed history strip is reported as a warning, and a failed manifest
// rewrite returns ErrPartial together with the partial Result.
//
// The existence check and the clone are not atomic; callers that may race
// on the same target should serialize on it.
func (c *Creator) Create(ctx context.Context, req Request, onProgress ProgressFunc) (Result, error) {
	report := func(step, status, msg string) {
		if status == StatusOutput {
			c.logger.Debug(msg, "step", step)
		} else {
			c.logger.Info(msg, "step", step, "status", status)
		}
		if onProgress != nil {
			onProgress(ProgressStep{Step: step, Status: status, Message: msg})
		}
	}
	fail := func(step string, err error) (Result, error) {
		report(step, StatusFailed, err.Error())
		return Result{}, err
	}

	name := req.Name
	report(StepValidate, StatusStarted, "Checking project name and location")

	if err := ValidateName(name); err != nil {
		return fail(StepValidate, err)
	}
	if strings.TrimSpace(req.BaseDir) == "" {
		return fail(StepValidate, withKind(ErrInvalidName, fmt.Errorf("project location is required")))
	}
	baseDir, err := filepath.Abs(req.BaseDir)
	if err != nil {
		return fail(StepValidate, fmt.Errorf("invalid project location %q: %w", req.BaseDir, err))
	}

	target := ResolvePath(baseDir, name)
	exists, err := Exists(target)
	if err != nil {
		return fail(StepValidate, fmt.Errorf("cannot check %s: %w", target, err))
	}
	if exists {
		return fail(StepValidate, withKind(ErrAlreadyExists,
			fmt.Errorf("a folder named %q already exists in %s", name, baseDir)))
	}
	report(StepValidate, StatusCompleted, "Target "+target+" is free")

	report(StepClone, StatusStarted, "Cloning template "+req.TemplateURL)
	var onOutput func(string)
	if onProgress != nil {
		onOutput = func(line string) { report(StepClone, StatusOutput, line) }
	}
	if err := c.fetcher.Fetch(ctx, req.TemplateURL, target, onOutput); err != nil {
		return fail(StepClone, err)
	}
	report(StepClone, StatusCompleted, "Template cloned")

	result := Result{
		Name:    name,
		Path:    target,
		Message: fmt.Sprintf("Project %s created successfully!", name),
	}

	report(StepStrip, StatusStarted, "Detaching from template history")
	if err := StripHistory(target); err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		report(StepStrip, StatusWarning, err.Error())
	} else {
		report(StepStrip, StatusCompleted, "Template history removed")
	}

	manifestPath := c.manifest.Path(target)
	report(StepManifest, StatusStarted, "Renaming project in "+c.manifest.File)
	updated, err := c.manifest.Rewrite(manifestPath, name)
	if err != nil {
		report(StepManifest, StatusFailed, err.Error())
		return result, withKind(ErrPartial, err)
	}
	result.ManifestUpdated = updated

	if warning := c.verifyManifest(manifestPath, name); warning != "" {
		result.Warnings = append(result.Warnings, warning)
		report(StepManifest, StatusWarning, warning)
	} else if updated {
		report(StepManifest, StatusCompleted, c.manifest.File+" updated")
	} else {
		report(StepManifest, StatusCompleted, "No "+c.manifest.File+" placeholder to rename")
	}

	c.logger.Info("project created", "name", name, "path", target, "warnings", len(result.Warnings))
	return result, nil
}

// verifyManifest re-reads a TOML manifest after the textual rewrite and
// returns a warning when its package name still differs from name.
func (c *Creator) verifyManifest(path, name string) string {
	got, ok, err := PackageName(path)
	if err != nil {
		c.logger.Debug("manifest is not valid TOML, skipping name check", "path", path, "error", err)
		return ""
	}
	if !ok || got == name {
		return ""
	}
	return fmt.Sprintf("%s name field not updated: package name is %q", c.manifest.File, got)
}

// IsPartial reports whether err left a project directory behind.
func IsPartial(err error) bool {
	return errors.Is(err, ErrPartial)
}
