// pattern: Imperative Shell
package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"crafthub/internal/config"
	"crafthub/internal/instance"
	"crafthub/internal/process"
)

// minGitVersion is the oldest git known to support every clone flag used.
const minGitVersion = ">= 1.7.10"

var errDoctorFailed = errors.New("doctor found problems")

// runDoctor checks the environment and prints one line per check.
func (e *environment) runDoctor(args []string) error {
	out := e.app.Stdout
	failed := false
	report := func(ok bool, what, detail string) {
		mark := "ok  "
		if !ok {
			mark = "FAIL"
			failed = true
		}
		fmt.Fprintf(out, "[%s] %-10s %s\n", mark, what, detail)
	}

	dataDir := ResolveDataDir(e.configDir)
	configPath := filepath.Join(config.Dir(e.configDir), "config.yaml")

	s, err := e.open()
	if err != nil {
		report(false, "config", err.Error())
		return errDoctorFailed
	}
	defer s.close()
	report(true, "config", configPath)

	gitPath, err := s.cfg.GitPath()
	if err != nil {
		report(false, "git", fmt.Sprintf("%s not found: %v", s.cfg.GitBinary, err))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ver, err := gitVersion(ctx, process.NewExecRunner(s.logs.For("doctor")), gitPath)
		cancel()
		if err != nil {
			report(false, "git", err.Error())
		} else {
			ok, detail := checkGitVersion(ver)
			report(ok, "git", fmt.Sprintf("%s (%s)", detail, gitPath))
		}
	}

	if names := s.cfg.TemplateNames(); len(names) > 0 {
		report(true, "templates", strings.Join(names, ", "))
	} else {
		report(true, "templates", "none configured, pass --template URL to create")
	}

	editors, _ := s.svc.DetectEditors()
	slugs := make([]string, 0, len(editors))
	for _, info := range editors {
		slugs = append(slugs, info.Slug)
	}
	if len(slugs) == 0 {
		report(true, "editors", "none detected")
	} else {
		report(true, "editors", strings.Join(slugs, ", "))
	}

	if url, err := instance.Discover(dataDir); err == nil {
		report(true, "host", "running at "+url)
	} else if errors.Is(err, instance.ErrNoInstance) {
		report(true, "host", "not running")
	} else {
		report(false, "host", err.Error())
	}

	if failed {
		return errDoctorFailed
	}
	return nil
}

// gitVersion runs `git --version` and parses the result.
func gitVersion(ctx context.Context, runner process.Runner, gitPath string) (*semver.Version, error) {
	res, err := runner.Run(ctx, process.Spec{Name: "git-version", Binary: gitPath, Args: []string{"--version"}})
	if err != nil {
		return nil, fmt.Errorf("git --version failed: %w", err)
	}
	return parseGitVersion(string(res.Stdout))
}

// parseGitVersion extracts the version from output such as
// "git version 2.39.3 (Apple Git-145)" or "git version 2.44.0.windows.1".
func parseGitVersion(output string) (*semver.Version, error) {
	fields := strings.Fields(output)
	if len(fields) < 3 || fields[0] != "git" || fields[1] != "version" {
		return nil, fmt.Errorf("unrecognized git version output %q", strings.TrimSpace(output))
	}
	parts := strings.Split(fields[2], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return semver.NewVersion(strings.Join(parts, "."))
}

func checkGitVersion(v *semver.Version) (bool, string) {
	c, err := semver.NewConstraint(minGitVersion)
	if err != nil {
		return false, err.Error()
	}
	if !c.Check(v) {
		return false, fmt.Sprintf("git %s is too old, need %s", v, minGitVersion)
	}
	return true, "git " + v.String()
}
