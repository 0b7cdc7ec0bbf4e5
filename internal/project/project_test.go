package project

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"crafthub/internal/logging"
	"crafthub/internal/process"
)

const placeholderManifest = `[package]
name = "fantasy-craft-default-template"
version = "0.1.0"
edition = "2021"
`

func defaultManifest() Manifest {
	return Manifest{
		File:        "Cargo.toml",
		Placeholder: `name = "fantasy-craft-default-template"`,
		Replacement: `name = "%s"`,
	}
}

func testLogger(t *testing.T) *logging.ScopedLogger {
	t.Helper()
	lm := logging.NewTestLogManager(200)
	t.Cleanup(func() { _ = lm.Close() })
	return lm.For("test")
}

// cloneInto returns a fake git handler that materializes files at the
// clone destination (the last argument).
func cloneInto(files map[string]string) func(process.Spec) (process.Output, error) {
	return func(spec process.Spec) (process.Output, error) {
		dest := spec.Args[len(spec.Args)-1]
		for rel, content := range files {
			p := filepath.Join(dest, rel)
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				return process.Output{}, err
			}
			if err := os.WriteFile(p, []byte(content), 0644); err != nil {
				return process.Output{}, err
			}
		}
		return process.Output{}, nil
	}
}

func newTestCreator(t *testing.T, runner process.Runner) *Creator {
	t.Helper()
	logger := testLogger(t)
	return NewCreator(NewFetcher(runner, "git", 0, logger), defaultManifest(), logger)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"MyGame", true},
		{"my-game_2", true},
		{"Space Shooter", true},
		{"v1.2", true},
		{"", false},
		{"..", false},
		{"../escape", false},
		{"a/b", false},
		{`a\b`, false},
		{".hidden", false},
		{"-flag", false},
		{"trailing.", false},
		{"trailing ", false},
		{`quote"name`, false},
		{strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateName(%q) error = %v, valid = %v", tt.name, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error should be ErrInvalidName, got %v", tt.name, err)
		}
		if err != nil && !strings.HasPrefix(err.Error(), "invalid project name: ") {
			t.Errorf("ValidateName(%q) message = %q", tt.name, err.Error())
		}
	}
}

func TestResolvePath(t *testing.T) {
	got := ResolvePath(filepath.Join("tmp", "projects"), "MyGame")
	if got != filepath.Join("tmp", "projects", "MyGame") {
		t.Errorf("ResolvePath() = %q", got)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if ok, err := Exists(filepath.Join(dir, "missing")); ok || err != nil {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
	if ok, err := Exists(dir); !ok || err != nil {
		t.Errorf("Exists(dir) = %v, %v", ok, err)
	}
}

func TestCreate_Success(t *testing.T) {
	base := t.TempDir()
	runner := &process.Fake{Handler: cloneInto(map[string]string{
		".git/HEAD":   "ref: refs/heads/main\n",
		"Cargo.toml":  placeholderManifest,
		"src/main.rs": "fn main() {}\n",
	})}
	c := newTestCreator(t, runner)

	var steps []ProgressStep
	res, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: base, TemplateURL: "https://example.com/t.git"},
		func(s ProgressStep) { steps = append(steps, s) })
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	target := filepath.Join(base, "MyGame")
	if res.Path != target {
		t.Errorf("Path = %q, want %q", res.Path, target)
	}
	if !strings.Contains(res.Message, "MyGame") {
		t.Errorf("Message = %q, should contain project name", res.Message)
	}
	if _, err := os.Stat(filepath.Join(target, ".git")); !os.IsNotExist(err) {
		t.Error(".git should have been removed")
	}
	data, _ := os.ReadFile(filepath.Join(target, "Cargo.toml"))
	if !strings.Contains(string(data), `name = "MyGame"`) {
		t.Errorf("manifest not rewritten:\n%s", data)
	}
	if !res.ManifestUpdated || len(res.Warnings) != 0 {
		t.Errorf("ManifestUpdated=%v Warnings=%v", res.ManifestUpdated, res.Warnings)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("git called %d times, want 1", len(calls))
	}
	wantArgs := []string{"clone", "--depth", "1", "--progress", "--", "https://example.com/t.git", target}
	if strings.Join(calls[0].Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("git args = %q, want %q", calls[0].Args, wantArgs)
	}

	var order []string
	for _, s := range steps {
		if s.Status == StatusCompleted {
			order = append(order, s.Step)
		}
	}
	if strings.Join(order, ",") != "validate,clone,strip,manifest" {
		t.Errorf("completed steps = %v", order)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "MyGame")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	runner := &process.Fake{Handler: cloneInto(map[string]string{"README.md": "x"})}
	c := newTestCreator(t, runner)

	for i := 0; i < 2; i++ {
		_, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: base, TemplateURL: "https://example.com/t.git"}, nil)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("call %d: error = %v, want ErrAlreadyExists", i, err)
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("message = %q", err.Error())
		}
	}

	if len(runner.Calls()) != 0 {
		t.Error("git must not run when the target exists")
	}
	entries, _ := os.ReadDir(target)
	if len(entries) != 0 {
		t.Errorf("existing directory was modified: %v", entries)
	}
}

func TestCreate_InvalidNameTouchesNothing(t *testing.T) {
	base := t.TempDir()
	runner := &process.Fake{}
	c := newTestCreator(t, runner)

	_, err := c.Create(context.Background(), Request{Name: "../evil", BaseDir: base, TemplateURL: "https://example.com/t.git"}, nil)
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("error = %v, want ErrInvalidName", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("git must not run for an invalid name")
	}
}

func TestCreate_MissingBaseDir(t *testing.T) {
	c := newTestCreator(t, &process.Fake{})
	_, err := c.Create(context.Background(), Request{Name: "MyGame", TemplateURL: "https://example.com/t.git"}, nil)
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("error = %v, want ErrInvalidName", err)
	}
}

func TestCreate_GitUnavailable(t *testing.T) {
	runner := &process.Fake{Handler: func(process.Spec) (process.Output, error) {
		return process.Output{}, &process.SpawnError{Binary: "git", Err: exec.ErrNotFound}
	}}
	c := newTestCreator(t, runner)

	_, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: t.TempDir(), TemplateURL: "https://example.com/t.git"}, nil)
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("error = %v, want ErrToolUnavailable", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to execute git: ") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCreate_CloneFailedPassesDiagnostic(t *testing.T) {
	runner := &process.Fake{Handler: func(spec process.Spec) (process.Output, error) {
		out := process.Output{Stderr: []byte("fatal: repository 'https://example.com/t.git/' not found\n"), ExitCode: 128}
		return out, &process.ExitError{Binary: "git", Code: 128, Output: out}
	}}
	c := newTestCreator(t, runner)

	_, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: t.TempDir(), TemplateURL: "https://example.com/t.git"}, nil)
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("error = %v, want ErrToolFailed", err)
	}
	want := "git clone failed: fatal: repository 'https://example.com/t.git/' not found"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestCreate_NoManifestIsSuccess(t *testing.T) {
	runner := &process.Fake{Handler: cloneInto(map[string]string{"index.html": "<html></html>"})}
	c := newTestCreator(t, runner)

	res, err := c.Create(context.Background(), Request{Name: "Site", BaseDir: t.TempDir(), TemplateURL: "https://example.com/t.git"}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ManifestUpdated || len(res.Warnings) != 0 {
		t.Errorf("ManifestUpdated=%v Warnings=%v", res.ManifestUpdated, res.Warnings)
	}
}

func TestCreate_PlaceholderMissingWarns(t *testing.T) {
	runner := &process.Fake{Handler: cloneInto(map[string]string{
		"Cargo.toml": "[package]\nname = 'something-else'\n",
	})}
	c := newTestCreator(t, runner)

	res, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: t.TempDir(), TemplateURL: "https://example.com/t.git"}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ManifestUpdated {
		t.Error("ManifestUpdated should be false when the placeholder is absent")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "name field not updated") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestCreate_StripFailureIsWarning(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	runner := &process.Fake{Handler: func(spec process.Spec) (process.Output, error) {
		out, err := cloneInto(map[string]string{
			".git/objects/pack/x": "x",
			"Cargo.toml":          placeholderManifest,
		})(spec)
		dest := spec.Args[len(spec.Args)-1]
		// A read-only parent keeps RemoveAll from unlinking the file.
		_ = os.Chmod(filepath.Join(dest, ".git", "objects", "pack"), 0555)
		return out, err
	}}
	c := newTestCreator(t, runner)

	base := t.TempDir()
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(base, "MyGame", ".git", "objects", "pack"), 0755) })

	res, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: base, TemplateURL: "https://example.com/t.git"}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v, strip failure must not be fatal", err)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "failed to remove .git") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if !res.ManifestUpdated {
		t.Error("manifest step should still run after a strip warning")
	}
}

func TestCreate_ManifestWriteFailureIsPartial(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced")
	}
	runner := &process.Fake{Handler: func(spec process.Spec) (process.Output, error) {
		out, err := cloneInto(map[string]string{"Cargo.toml": placeholderManifest})(spec)
		dest := spec.Args[len(spec.Args)-1]
		_ = os.Chmod(filepath.Join(dest, "Cargo.toml"), 0444)
		return out, err
	}}
	c := newTestCreator(t, runner)

	base := t.TempDir()
	res, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: base, TemplateURL: "https://example.com/t.git"}, nil)
	if !IsPartial(err) {
		t.Fatalf("error = %v, want ErrPartial", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to update Cargo.toml") {
		t.Errorf("message = %q", err.Error())
	}
	if res.Path == "" {
		t.Error("partial result should carry the project path")
	}
	if _, err := os.Stat(filepath.Join(base, "MyGame")); err != nil {
		t.Error("partial project must not be rolled back")
	}
}

func TestFetch_Timeout(t *testing.T) {
	runner := &process.Fake{Handler: func(process.Spec) (process.Output, error) {
		return process.Output{}, context.DeadlineExceeded
	}}
	f := NewFetcher(runner, "", 1, nil)

	err := f.Fetch(context.Background(), "https://example.com/t.git", t.TempDir()+"/x", nil)
	if !errors.Is(err, ErrToolFailed) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("error = %v", err)
	}
	if args := runner.Calls()[0].Args; strings.Contains(strings.Join(args, " "), "--progress") {
		t.Errorf("--progress must only be passed when streaming, got %v", args)
	}
}

func TestFetch_CallerDeadlineMessage(t *testing.T) {
	runner := &process.Fake{Handler: func(process.Spec) (process.Output, error) {
		return process.Output{}, context.DeadlineExceeded
	}}
	f := NewFetcher(runner, "", 0, nil)

	err := f.Fetch(context.Background(), "https://example.com/t.git", t.TempDir()+"/x", nil)
	if err == nil || err.Error() != "git clone timed out" {
		t.Fatalf("error = %v, want plain timeout message", err)
	}
}

func TestFetch_EmptyURLIsInvalidTemplate(t *testing.T) {
	runner := &process.Fake{}
	err := NewFetcher(runner, "", 0, nil).Fetch(context.Background(), "", t.TempDir()+"/x", nil)
	if !errors.Is(err, ErrInvalidTemplate) || errors.Is(err, ErrToolFailed) {
		t.Fatalf("error = %v, want ErrInvalidTemplate only", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("git must not run without a URL")
	}
}

func TestFetch_DisablesPrompts(t *testing.T) {
	runner := &process.Fake{}
	f := NewFetcher(runner, "", 0, nil)
	if err := f.Fetch(context.Background(), "https://example.com/t.git", t.TempDir()+"/x", func(string) {}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	env := strings.Join(runner.Calls()[0].Env, " ")
	for _, want := range []string{"GIT_TERMINAL_PROMPT=0", "GCM_INTERACTIVE=never"} {
		if !strings.Contains(env, want) {
			t.Errorf("clone env %q missing %s", env, want)
		}
	}
}

// A server demanding credentials must fail the streaming clone quickly
// rather than leave git waiting on the pty for a username.
func TestFetch_AuthRequiredFailsWhileStreaming(t *testing.T) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not installed")
	}
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no pseudo-terminal support")
	}
	// Isolate from user credential helpers and force prompting on in the
	// parent so only the clone's own environment can disable it.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_TERMINAL_PROMPT", "1")
	t.Setenv("GIT_ASKPASS", "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="templates"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	logger := testLogger(t)
	f := NewFetcher(process.NewExecRunner(logger), gitPath, 0, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var lines []string
	err = f.Fetch(ctx, srv.URL+"/private.git", filepath.Join(t.TempDir(), "dest"), func(l string) {
		lines = append(lines, l)
	})
	if ctx.Err() != nil {
		t.Fatalf("clone hung until the deadline; output %q", lines)
	}
	if !errors.Is(err, ErrToolFailed) || !strings.HasPrefix(err.Error(), "git clone failed: ") {
		t.Fatalf("error = %v, want git clone failure", err)
	}
}

func TestManifestRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	content := placeholderManifest + "\n[workspace.metadata]\n" + `name = "fantasy-craft-default-template"` + "\n"
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	updated, err := defaultManifest().Rewrite(path, "MyGame")
	if err != nil || !updated {
		t.Fatalf("Rewrite() = %v, %v", updated, err)
	}
	data, _ := os.ReadFile(path)
	if strings.Count(string(data), `name = "MyGame"`) != 2 {
		t.Errorf("every occurrence should be replaced:\n%s", data)
	}
	if info, _ := os.Stat(path); runtime.GOOS != "windows" && info.Mode().Perm() != 0640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}

	name, ok, err := PackageName(path)
	if err != nil || !ok || name != "MyGame" {
		t.Errorf("PackageName() = %q, %v, %v", name, ok, err)
	}
}

func TestManifestRewrite_Missing(t *testing.T) {
	updated, err := defaultManifest().Rewrite(filepath.Join(t.TempDir(), "Cargo.toml"), "MyGame")
	if err != nil || updated {
		t.Errorf("Rewrite(missing) = %v, %v; want false, nil", updated, err)
	}
}

func TestPackageName_NonToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	_ = os.WriteFile(path, []byte(`{"name":"x"}`), 0644)
	if _, ok, err := PackageName(path); ok || err != nil {
		t.Errorf("PackageName(json) = %v, %v", ok, err)
	}
}

func TestStripHistory_Missing(t *testing.T) {
	if err := StripHistory(t.TempDir()); err != nil {
		t.Errorf("StripHistory() without .git = %v, want nil", err)
	}
}

// TestCreate_RealGit clones a local template repository with the real git
// binary.
func TestCreate_RealGit(t *testing.T) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not installed")
	}

	tmpl := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpl, "Cargo.toml"), []byte(placeholderManifest), 0644); err != nil {
		t.Fatal(err)
	}
	gitRun := func(args ...string) {
		t.Helper()
		cmd := exec.Command(gitPath, args...)
		cmd.Dir = tmpl
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	gitRun("init", "-q")
	gitRun("add", ".")
	gitRun("-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "-q", "-m", "template")

	logger := testLogger(t)
	c := NewCreator(NewFetcher(process.NewExecRunner(logger), gitPath, 0, logger), defaultManifest(), logger)

	base := t.TempDir()
	res, err := c.Create(context.Background(), Request{Name: "MyGame", BaseDir: base, TemplateURL: "file://" + filepath.ToSlash(tmpl)}, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(res.Path, ".git")); !os.IsNotExist(err) {
		t.Error(".git should not exist after creation")
	}
	name, ok, _ := PackageName(filepath.Join(res.Path, "Cargo.toml"))
	if !ok || name != "MyGame" {
		t.Errorf("package name = %q, want MyGame", name)
	}
}
