package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"crafthub/internal/config"
	"crafthub/internal/editor"
	"crafthub/internal/logging"
	"crafthub/internal/project"
)

// fakeBackend records calls and replays canned progress.
type fakeBackend struct {
	mu sync.Mutex

	steps  []project.ProgressStep
	result project.Result
	err    error
	// block, when set, holds creation until closed or cancelled.
	block     chan struct{}
	cancelled chan struct{}

	editors []editor.Info
	openErr error

	gotName, gotPath, gotTemplate string
	opened                        [][2]string
}

func (f *fakeBackend) CreateNewProject(ctx context.Context, name, path, template string, onProgress project.ProgressFunc) (project.Result, error) {
	f.mu.Lock()
	f.gotName, f.gotPath, f.gotTemplate = name, path, template
	f.mu.Unlock()

	for _, s := range f.steps {
		onProgress(s)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			if f.cancelled != nil {
				close(f.cancelled)
			}
			return project.Result{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeBackend) DetectEditors() ([]editor.Info, error) {
	return f.editors, nil
}

func (f *fakeBackend) OpenProjectInEditor(projectPath, editorRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, [2]string{projectPath, editorRef})
	return f.openErr
}

func (f *fakeBackend) args() (string, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotName, f.gotPath, f.gotTemplate
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.DefaultTemplate = "starter"
	cfg.Templates = map[string]string{
		"starter": "https://example.com/starter.git",
		"physics": "https://example.com/physics.git",
	}
	return cfg
}

func newTestModel(backend *fakeBackend) Model {
	m := NewModel(Options{
		Config:  testConfig(),
		Backend: backend,
		Logs:    logging.NewTestLogManager(100),
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func press(m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m, cmd
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// pumpUntil runs cmd and every command it leads to concurrently, feeding
// results into Update until cond holds. Timers that never fire in time are
// simply abandoned.
func pumpUntil(t *testing.T, m Model, cmd tea.Cmd, cond func(Model) bool) Model {
	t.Helper()
	msgs := make(chan tea.Msg, 256)
	run := func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() { msgs <- c() }()
	}
	run(cmd)

	timeout := time.After(5 * time.Second)
	for !cond(m) {
		select {
		case msg := <-msgs:
			if msg == nil {
				continue
			}
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					run(c)
				}
				continue
			}
			updated, next := m.Update(msg)
			m = updated.(Model)
			run(next)
		case <-timeout:
			t.Fatalf("condition not reached; status=%q screen=%d", m.statusMessage, m.screen)
		}
	}
	return m
}
