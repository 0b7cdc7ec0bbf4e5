//go:build e2e
// +build e2e

package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"crafthub/internal/commands"
	"crafthub/internal/config"
	"crafthub/internal/logging"
	"crafthub/internal/tui"
)

// SkipIfGitMissing skips the test if git is not available.
func SkipIfGitMissing(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("Skipping test: git not found in PATH")
	}
}

// TemplateRepo creates a local git repository shaped like a game template:
// a Cargo.toml carrying the placeholder name and one committed source file.
// It returns the repository path, usable as a clone URL.
func TemplateRepo(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "template")
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatalf("Failed to create template dir: %v", err)
	}
	files := map[string]string{
		"Cargo.toml":  "[package]\n" + config.DefaultManifestPlaceholder + "\nversion = \"0.1.0\"\nedition = \"2021\"\n",
		"src/main.rs": "fn main() {}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	git(t, dir, "init", "--quiet")
	git(t, dir, "add", ".")
	git(t, dir, "-c", "user.name=crafthub", "-c", "user.email=crafthub@example.com", "commit", "--quiet", "-m", "template")
	return dir
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// TestConfig returns a config whose default template is templateURL and
// whose projects land in projectsDir. Editor detection sees nothing.
func TestConfig(projectsDir, templateURL string) config.Config {
	cfg := config.DefaultConfig()
	cfg.ProjectsDir = projectsDir
	cfg.Templates = map[string]string{"local": templateURL}
	cfg.DefaultTemplate = "local"
	cfg.CloneTimeout = config.Duration(time.Minute)
	cfg.Editors = config.EditorsConfig{ReplaceDefaults: true}
	return cfg
}

// TestLogManager returns a log manager closed at the end of the test.
func TestLogManager(t *testing.T) *logging.TestLogManager {
	t.Helper()
	lm := logging.NewTestLogManager(1000)
	t.Cleanup(func() { _ = lm.Close() })
	return lm
}

// TestService builds a service that runs the real git binary.
func TestService(t *testing.T, cfg config.Config, logs logging.LoggerProvider) *commands.Service {
	t.Helper()
	return commands.New(commands.Options{Config: cfg, DataDir: t.TempDir(), Logs: logs})
}

// TUITestRunner drives the TUI through Update() calls. Commands run
// concurrently and their messages are fed back on the test goroutine, so
// blocking commands (progress waits, timers) never stall the runner.
type TUITestRunner struct {
	t     *testing.T
	model tui.Model
	msgs  chan tea.Msg
}

// NewTUITestRunner creates a new test runner with the given model.
func NewTUITestRunner(t *testing.T, model tui.Model) *TUITestRunner {
	return &TUITestRunner{
		t:     t,
		model: model,
		msgs:  make(chan tea.Msg, 256),
	}
}

// Model returns the current model state.
func (r *TUITestRunner) Model() tui.Model {
	return r.model
}

// Init runs the Init command.
func (r *TUITestRunner) Init() {
	r.t.Helper()
	r.run(r.model.Init())
}

// PressKey simulates pressing a regular key.
func (r *TUITestRunner) PressKey(key rune) {
	r.t.Helper()
	r.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
}

// PressSpecialKey simulates pressing a special key like Enter or Tab.
func (r *TUITestRunner) PressSpecialKey(keyType tea.KeyType) {
	r.t.Helper()
	r.update(tea.KeyMsg{Type: keyType})
}

// TypeText types a string character by character.
func (r *TUITestRunner) TypeText(text string) {
	r.t.Helper()
	for _, ch := range text {
		r.PressKey(ch)
	}
}

// SendWindowSize sends a window size message.
func (r *TUITestRunner) SendWindowSize(width, height int) {
	r.t.Helper()
	r.update(tea.WindowSizeMsg{Width: width, Height: height})
}

// WaitFor processes messages until cond holds or timeout passes.
func (r *TUITestRunner) WaitFor(cond func(tui.Model) bool, timeout time.Duration) bool {
	r.t.Helper()
	deadline := time.After(timeout)
	for !cond(r.model) {
		select {
		case msg := <-r.msgs:
			r.dispatch(msg)
		case <-deadline:
			return false
		}
	}
	return true
}

func (r *TUITestRunner) update(msg tea.Msg) {
	model, cmd := r.model.Update(msg)
	r.model = model.(tui.Model)
	r.run(cmd)
}

func (r *TUITestRunner) dispatch(msg tea.Msg) {
	switch msg := msg.(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			r.run(c)
		}
	case tea.QuitMsg:
		// Skip quit messages
	default:
		r.update(msg)
	}
}

func (r *TUITestRunner) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { r.msgs <- cmd() }()
}
