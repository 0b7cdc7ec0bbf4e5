package editor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"crafthub/internal/config"
	"crafthub/internal/process"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return p
}

// fakeLookPath resolves only the names in found.
func fakeLookPath(found map[string]string) config.LookPathFunc {
	return func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
}

func TestDetect_PathLookupWins(t *testing.T) {
	pathDir := t.TempDir()
	fallbackDir := t.TempDir()
	onPath := writeExecutable(t, pathDir, "code")
	writeExecutable(t, fallbackDir, "code")

	l := NewLocator([]Candidate{
		{Slug: "vscode", DisplayName: "Visual Studio Code", Executables: []string{"code"}, FallbackDirs: []string{fallbackDir}},
	}, fakeLookPath(map[string]string{"code": onPath}), nil)

	got := l.Detect()
	if len(got) != 1 {
		t.Fatalf("Detect() = %v, want 1 editor", got)
	}
	want := Info{DisplayName: "Visual Studio Code", Slug: "vscode", ExecutablePath: onPath}
	if got[0] != want {
		t.Errorf("Detect()[0] = %+v, want %+v", got[0], want)
	}
}

func TestDetect_FallbackDirectory(t *testing.T) {
	fallbackDir := t.TempDir()
	zed := writeExecutable(t, fallbackDir, "zeditor")
	if err := os.Mkdir(filepath.Join(fallbackDir, "subl"), 0755); err != nil {
		t.Fatal(err)
	}

	l := NewLocator([]Candidate{
		{Slug: "zed", DisplayName: "Zed", Executables: []string{"zed", "zeditor"}, FallbackDirs: []string{fallbackDir}},
		{Slug: "sublime", DisplayName: "Sublime Text", Executables: []string{"subl"}, FallbackDirs: []string{fallbackDir}},
	}, fakeLookPath(nil), nil)

	got := l.Detect()
	if len(got) != 1 || got[0].Slug != "zed" || got[0].ExecutablePath != zed {
		t.Errorf("Detect() = %+v, want only zed at %s (a directory named subl is not an editor)", got, zed)
	}
}

func TestDetect_NothingInstalledIsEmptyNotNil(t *testing.T) {
	l := NewLocator(DefaultCandidates("linux"), fakeLookPath(nil), nil)
	// Default fallback dirs are real system dirs; swap them for an empty one.
	empty := t.TempDir()
	for i := range l.candidates {
		l.candidates[i].FallbackDirs = []string{empty}
	}

	got := l.Detect()
	if got == nil {
		t.Fatal("Detect() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Detect() = %v, want none", got)
	}
}

func TestDetect_DeduplicatesByRealPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	real := writeExecutable(t, dir, "code-real")
	link := filepath.Join(dir, "codium")
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}

	l := NewLocator([]Candidate{
		{Slug: "vscode", DisplayName: "Visual Studio Code", Executables: []string{"code-real"}, FallbackDirs: []string{dir}},
		{Slug: "vscodium", DisplayName: "VSCodium", Executables: []string{"codium"}, FallbackDirs: []string{dir}},
	}, fakeLookPath(nil), nil)

	got := l.Detect()
	if len(got) != 1 || got[0].Slug != "vscode" {
		t.Errorf("Detect() = %+v, want only the first candidate", got)
	}
}

func TestDetect_ReturnedPathsExist(t *testing.T) {
	for _, info := range NewLocator(DefaultCandidates(runtime.GOOS), nil, nil).Detect() {
		if _, err := os.Stat(info.ExecutablePath); err != nil {
			t.Errorf("%s: executable %s does not exist: %v", info.Slug, info.ExecutablePath, err)
		}
	}
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, dir, "neovide")
	l := NewLocator([]Candidate{
		{Slug: "neovide", DisplayName: "Neovide", Executables: []string{"neovide"}, FallbackDirs: []string{dir}},
	}, fakeLookPath(nil), nil)

	if info, ok := l.Lookup("neovide"); !ok || info.DisplayName != "Neovide" {
		t.Errorf("Lookup(neovide) = %+v, %v", info, ok)
	}
	if _, ok := l.Lookup("vscode"); ok {
		t.Error("Lookup(vscode) should miss")
	}
}

func TestDefaultCandidates(t *testing.T) {
	linux := DefaultCandidates("linux")
	if len(linux) != 10 {
		t.Fatalf("expected 10 default candidates, got %d", len(linux))
	}
	if linux[0].Slug != "vscode" || linux[0].Executables[0] != "code" {
		t.Errorf("first candidate = %+v", linux[0])
	}
	for _, c := range linux {
		if len(c.FallbackDirs) == 0 {
			t.Errorf("%s has no linux fallback dirs", c.Slug)
		}
	}

	var darwinCode Candidate
	for _, c := range DefaultCandidates("darwin") {
		if c.Slug == "vscode" {
			darwinCode = c
		}
	}
	if last := darwinCode.FallbackDirs[len(darwinCode.FallbackDirs)-1]; !strings.Contains(last, "Visual Studio Code.app") {
		t.Errorf("darwin vscode should probe its app bundle, got %v", darwinCode.FallbackDirs)
	}

	for _, c := range DefaultCandidates("windows") {
		if len(c.FallbackDirs) != 0 {
			t.Errorf("windows candidates should rely on PATH only, %s has %v", c.Slug, c.FallbackDirs)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.EditorsConfig{Candidates: []config.EditorCandidate{
		{Slug: "vscode", DisplayName: "Code (custom)", Executables: []string{"code-insiders"}},
		{Slug: "helix", Executables: []string{"hx"}, FallbackDirs: []string{"/opt/helix"}},
	}}

	got := FromConfig(cfg, "linux")
	if len(got) != 11 {
		t.Fatalf("expected 11 candidates, got %d", len(got))
	}
	if got[0].DisplayName != "Code (custom)" || got[0].Executables[0] != "code-insiders" {
		t.Errorf("vscode should be replaced in place, got %+v", got[0])
	}
	if len(got[0].FallbackDirs) == 0 {
		t.Error("configured candidate without dirs should get platform defaults")
	}
	helix := got[len(got)-1]
	if helix.Slug != "helix" || helix.DisplayName != "helix" || helix.FallbackDirs[0] != "/opt/helix" {
		t.Errorf("appended candidate = %+v", helix)
	}

	cfg.ReplaceDefaults = true
	if got := FromConfig(cfg, "linux"); len(got) != 2 {
		t.Errorf("ReplaceDefaults: expected 2 candidates, got %d", len(got))
	}
}

func TestLaunch(t *testing.T) {
	project := t.TempDir()
	runner := &process.Fake{}
	l := NewLauncher(runner, nil)

	if err := l.Launch("/usr/bin/code", project); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	started := runner.Started()
	if len(started) != 1 {
		t.Fatalf("expected 1 detached start, got %d", len(started))
	}
	if started[0].Binary != "/usr/bin/code" || len(started[0].Args) != 1 || started[0].Args[0] != project {
		t.Errorf("started %+v", started[0])
	}
	if len(runner.Calls()) != 0 {
		t.Error("Launch must not wait on the editor")
	}
}

func TestLaunch_MissingProject(t *testing.T) {
	runner := &process.Fake{}
	err := NewLauncher(runner, nil).Launch("/usr/bin/code", filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("error = %v, want ErrProjectNotFound", err)
	}
	if len(runner.Started()) != 0 {
		t.Error("nothing should be started for a missing project")
	}
}

func TestLaunch_SpawnFailure(t *testing.T) {
	runner := &process.Fake{StartErr: &process.SpawnError{Binary: "/nope", Err: exec.ErrNotFound}}
	err := NewLauncher(runner, nil).Launch("/nope", t.TempDir())
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("error = %v, want ErrSpawnFailed", err)
	}
	if !strings.Contains(err.Error(), exec.ErrNotFound.Error()) {
		t.Errorf("message should carry the cause: %q", err.Error())
	}
}

func TestLaunch_RealProcessReturnsImmediately(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not installed")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "slow-editor")
	if err := os.WriteFile(script, []byte("#!"+sh+"\nsleep 5\n"), 0755); err != nil {
		t.Fatal(err)
	}

	l := NewLauncher(process.NewExecRunner(nil), nil)
	start := time.Now()
	if err := l.Launch(script, dir); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Launch blocked for %v", elapsed)
	}
}

func TestWatcher_ReportsNewExecutable(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan struct{}, 1)
	w, err := NewWatcher([]Candidate{
		{Slug: "zed", Executables: []string{"zed"}, FallbackDirs: []string{dir, dir}},
	}, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.settle = 20 * time.Millisecond
	if len(w.Dirs()) != 1 {
		t.Errorf("duplicate dirs should be collapsed, got %v", w.Dirs())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register.
	time.Sleep(200 * time.Millisecond)

	writeExecutable(t, dir, "unrelated")
	writeExecutable(t, dir, "zed")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for change notification")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop on cancel")
	}
}

func TestWatcher_NoDirectories(t *testing.T) {
	w, err := NewWatcher([]Candidate{
		{Slug: "zed", Executables: []string{"zed"}, FallbackDirs: []string{filepath.Join(t.TempDir(), "missing")}},
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Errorf("Start() = %v, want nil", err)
	}
}

func TestPreferred(t *testing.T) {
	dir := t.TempDir()
	code := writeExecutable(t, dir, "code")
	zed := writeExecutable(t, dir, "zed")
	custom := writeExecutable(t, dir, "my-editor")
	detected := []Info{
		{DisplayName: "VS Code", Slug: "code", ExecutablePath: code},
		{DisplayName: "Zed", Slug: "zed", ExecutablePath: zed},
	}

	tests := []struct {
		name     string
		ref      string
		detected []Info
		wantSlug string
		wantPath string
		wantOK   bool
	}{
		{name: "empty falls back to first", ref: "", detected: detected, wantSlug: "code", wantPath: code, wantOK: true},
		{name: "slug", ref: "zed", detected: detected, wantSlug: "zed", wantPath: zed, wantOK: true},
		{name: "detected path", ref: zed, detected: detected, wantSlug: "zed", wantPath: zed, wantOK: true},
		{name: "custom path", ref: custom, detected: detected, wantSlug: CustomSlug, wantPath: custom, wantOK: true},
		{name: "custom path with nothing detected", ref: custom, detected: nil, wantSlug: CustomSlug, wantPath: custom, wantOK: true},
		{name: "unknown slug falls back", ref: "vim", detected: detected, wantSlug: "code", wantPath: code, wantOK: true},
		{name: "missing path falls back", ref: filepath.Join(dir, "gone"), detected: detected, wantSlug: "code", wantPath: code, wantOK: true},
		{name: "nothing at all", ref: "vim", detected: nil, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Preferred(tt.ref, tt.detected)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Slug != tt.wantSlug || got.ExecutablePath != tt.wantPath {
				t.Errorf("Preferred(%q) = %+v, want slug %q path %q", tt.ref, got, tt.wantSlug, tt.wantPath)
			}
		})
	}
}

func TestPreferred_SymlinkMatchesDetected(t *testing.T) {
	dir := t.TempDir()
	code := writeExecutable(t, dir, "code")
	link := filepath.Join(dir, "code-link")
	if err := os.Symlink(code, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	detected := []Info{{DisplayName: "VS Code", Slug: "code", ExecutablePath: code}}

	got, ok := Preferred(link, detected)
	if !ok || got.Slug != "code" {
		t.Errorf("Preferred(link) = %+v, %v; want the detected code entry", got, ok)
	}
}
