package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"crafthub/internal/config"
	"crafthub/internal/editor"
	"crafthub/internal/logging"
	"crafthub/internal/project"
)

// Backend runs the host commands the wizard needs. *commands.Service
// implements it.
type Backend interface {
	CreateNewProject(ctx context.Context, name, path, template string, onProgress project.ProgressFunc) (project.Result, error)
	DetectEditors() ([]editor.Info, error)
	OpenProjectInEditor(projectPath, editorRef string) error
}

// Options configures NewModel.
type Options struct {
	Config  config.Config
	Backend Backend
	Logs    logging.LoggerProvider
	// Entries feeds the log panel and the status line. Optional.
	Entries <-chan logging.LogEntry
}

type screen int

const (
	screenForm screen = iota
	screenCreating
	screenResult
	screenEditors
)

// maxLogEntries bounds the in-memory log panel buffer.
const maxLogEntries = 500

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles

	cfg     config.Config
	backend Backend
	logger  *logging.ScopedLogger
	entries <-chan logging.LogEntry
	copy    func(string) error

	screen screen
	webURL string

	// Wizard form.
	templates        []string
	formTemplateIdx  int
	formCustomURL    textinput.Model
	formBaseDir      textinput.Model
	formName         textinput.Model
	formFocusedField FormField
	formError        string

	// Creation progress.
	formStatusSpinner spinner.Model
	formTitlePulse    int
	formStatusSteps   []FormStatusStep
	formCurrentStep   string
	formOutputLine    string
	createSeq         int
	cancelCreate      context.CancelFunc

	// Outcome of the last creation.
	result    project.Result
	resultErr error

	// Editor picker.
	editors    []editor.Info
	editorList list.Model

	statusLevel   StatusLevel
	statusMessage string

	logPanelOpen bool
	logBuffer    []logging.LogEntry
	logViewport  viewport.Model
	logReady     bool

	lastCtrlCTime time.Time
}

// NewModel creates the wizard model.
func NewModel(opts Options) Model {
	logger := logging.NopLogger()
	if opts.Logs != nil {
		logger = opts.Logs.For("tui")
	}
	styles := NewStyles(opts.Config.Theme)

	editorList := list.New([]list.Item{}, newEditorDelegate(styles), 0, 0)
	editorList.SetShowTitle(false)
	editorList.SetShowStatusBar(false)
	editorList.SetShowHelp(false)
	editorList.SetFilteringEnabled(true)

	m := Model{
		styles:     styles,
		cfg:        opts.Config,
		backend:    opts.Backend,
		logger:     logger,
		entries:    opts.Entries,
		copy:       clipboard.WriteAll,
		templates:  templateOptions(opts.Config),
		editorList: editorList,

		formStatusSpinner: newSpinner(styles),
	}
	m.initForm()
	return m
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.detectEditors(), m.waitForLogEntries())
}

// Screen accessors for tests.

func (m Model) IsCreating() bool      { return m.screen == screenCreating }
func (m Model) IsShowingResult() bool { return m.screen == screenResult }
func (m Model) IsPickingEditor() bool { return m.screen == screenEditors }

// Result returns the last creation result and error.
func (m Model) Result() (project.Result, error) {
	return m.result, m.resultErr
}

// Editors returns the most recently detected editors.
func (m Model) Editors() []editor.Info {
	return m.editors
}

// StatusMessage returns the status bar text.
func (m Model) StatusMessage() string {
	return m.statusMessage
}

// WebURL returns the host URL shown in the header, if any.
func (m Model) WebURL() string {
	return m.webURL
}

// SetClipboard replaces the clipboard writer.
func (m *Model) SetClipboard(fn func(string) error) {
	m.copy = fn
}
