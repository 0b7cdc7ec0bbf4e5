// pattern: Imperative Shell

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"crafthub/internal/editor"
	"crafthub/internal/events"
	"crafthub/internal/logging"
)

// doubleCtrlCWindow is the maximum time between two ctrl+c presses to trigger quit.
const doubleCtrlCWindow = 500 * time.Millisecond

// statusClearDelay is how long success and info messages stay visible.
const statusClearDelay = 4 * time.Second

// StatusLevel classifies the status bar message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusLoading
	StatusSuccess
	StatusError
)

type editorsDetectedMsg struct {
	editors []editor.Info
	err     error
}

type editorOpenedMsg struct {
	editor editor.Info
	path   string
	err    error
}

type clipboardMsg struct {
	text string
	err  error
}

// logEntriesMsg delivers log entries from the logging channel.
type logEntriesMsg struct {
	entries []logging.LogEntry
}

// clearStatusMsg is sent after a timed delay to clear the status bar.
type clearStatusMsg struct {
	message string
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.screen != screenCreating {
			return m, nil
		}
		var cmd tea.Cmd
		m.formStatusSpinner, cmd = m.formStatusSpinner.Update(msg)
		return m, cmd

	case formTitlePulseMsg:
		if m.screen != screenCreating {
			return m, nil
		}
		m.formTitlePulse = (m.formTitlePulse + 1) % 4
		return m, tickTitlePulse()

	case formProgressMsg:
		if msg.id == m.createSeq && m.screen == screenCreating {
			m.applyProgress(msg.step)
		}
		// Keep draining so the creation goroutine never blocks.
		return m, waitForProgress(msg.ch)

	case formCreationDoneMsg:
		if msg.id != m.createSeq || m.screen != screenCreating {
			return m, nil
		}
		m.finishFormSubmission(msg.result, msg.err)
		if msg.err != nil {
			m.logger.Warn("project creation failed", "name", m.FormName(), "error", msg.err)
			cmd := m.setStatus(StatusError, msg.err.Error())
			return m, cmd
		}
		m.logger.Info("project created", "name", msg.result.Name, "path", msg.result.Path, "warnings", len(msg.result.Warnings))
		cmd := m.setStatus(StatusSuccess, msg.result.Message)
		return m, cmd

	case editorsDetectedMsg:
		if msg.err != nil {
			cmd := m.setStatus(StatusError, "editor detection failed: "+msg.err.Error())
			return m, cmd
		}
		m.editors = withDefaultEditor(m.cfg.DefaultEditor, msg.editors)
		cmd := m.editorList.SetItems(toListItems(m.editors))
		return m, cmd

	case editorOpenedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to open editor", "editor", msg.editor.Slug, "error", msg.err)
			cmd := m.setStatus(StatusError, msg.err.Error())
			return m, cmd
		}
		m.logger.Info("opened project in editor", "editor", msg.editor.Slug, "path", msg.path)
		if m.screen == screenEditors {
			m.screen = screenResult
		}
		cmd := m.setStatus(StatusSuccess, fmt.Sprintf("Opened %s in %s", msg.path, msg.editor.DisplayName))
		return m, cmd

	case clipboardMsg:
		if msg.err != nil {
			cmd := m.setStatus(StatusError, "copy failed: "+msg.err.Error())
			return m, cmd
		}
		cmd := m.setStatus(StatusSuccess, "Copied "+msg.text)
		return m, cmd

	case logEntriesMsg:
		m.appendLogEntries(msg.entries)
		return m, m.waitForLogEntries()

	case clearStatusMsg:
		if m.statusMessage == msg.message && m.statusLevel != StatusError {
			m.statusMessage = ""
			m.statusLevel = StatusInfo
		}
		return m, nil

	case events.ProjectCreatedMsg:
		m.logger.Info("project created via web API", "name", msg.Name, "path", msg.Path)
		cmd := m.setStatus(StatusSuccess, fmt.Sprintf("%s (via web)", msg.Message))
		return m, cmd

	case events.EditorsChangedMsg:
		return m, m.detectEditors()

	case events.WebListenURLMsg:
		m.webURL = msg.URL
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	cmd := m.updateFocusedInput(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.logger.Debug("key pressed", "key", msg.String(), "screen", int(m.screen))

	// Handle quit shortcuts first (ctrl+d always, ctrl+c double-press)
	switch msg.Type {
	case tea.KeyCtrlD:
		m.abortCreation()
		return m, tea.Quit
	case tea.KeyCtrlC:
		now := time.Now()
		if !m.lastCtrlCTime.IsZero() && now.Sub(m.lastCtrlCTime) <= doubleCtrlCWindow {
			m.abortCreation()
			return m, tea.Quit
		}
		m.lastCtrlCTime = now
		cmd := m.setStatus(StatusInfo, "ctrl+c ctrl+c to quit")
		return m, cmd
	case tea.KeyCtrlL:
		m.logPanelOpen = !m.logPanelOpen
		m.resize()
		return m, nil
	}

	switch m.screen {
	case screenCreating:
		return m.handleCreatingKey(msg)
	case screenResult:
		return m.handleResultKey(msg)
	case screenEditors:
		return m.handleEditorsKey(msg)
	default:
		return m.handleFormKey(msg)
	}
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.initForm()
		return m, nil

	case tea.KeyEnter:
		if errMsg := m.validateForm(); errMsg != "" {
			m.formError = errMsg
			return m, nil
		}
		m.formError = ""
		m.createSeq++
		m.logger.Info("creating project", "name", m.FormName(), "template", m.FormTemplate(), "base_dir", m.FormBaseDir())
		spinnerCmd := m.startFormSubmission()
		createCmd, cancel := m.createProjectWithProgress(m.createSeq)
		m.cancelCreate = cancel
		return m, tea.Batch(spinnerCmd, createCmd)

	case tea.KeyTab, tea.KeyDown:
		if msg.Type == tea.KeyDown && m.formFocusedField == FieldTemplate {
			if m.formTemplateIdx < len(m.templates)-1 {
				m.formTemplateIdx++
			}
			return m, nil
		}
		cmd := m.nextField(1)
		return m, cmd

	case tea.KeyShiftTab, tea.KeyUp:
		if msg.Type == tea.KeyUp && m.formFocusedField == FieldTemplate {
			if m.formTemplateIdx > 0 {
				m.formTemplateIdx--
			}
			return m, nil
		}
		cmd := m.nextField(-1)
		return m, cmd
	}

	if m.focusedInput() == nil {
		return m, nil
	}
	m.formError = ""
	cmd := m.updateFocusedInput(msg)
	return m, cmd
}

// updateFocusedInput forwards msg to the focused text input, if any.
func (m *Model) updateFocusedInput(msg tea.Msg) tea.Cmd {
	if m.screen != screenForm {
		return nil
	}
	in := m.focusedInput()
	if in == nil {
		return nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return cmd
}

func (m Model) handleCreatingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEscape {
		m.logger.Info("project creation cancelled", "name", m.FormName())
		m.cancelSubmission()
		cmd := m.setStatus(StatusInfo, "Creation cancelled")
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	failed := m.resultErr != nil

	switch msg.String() {
	case "y":
		if m.result.Path != "" {
			return m, m.copyToClipboard(m.result.Path)
		}
	case "e", "enter":
		if failed {
			// Back to the filled-in form to fix the input.
			m.screen = screenForm
			return m, nil
		}
		if len(m.editors) == 0 {
			cmd := m.setStatus(StatusInfo, "No editors found. Add one under editors.candidates in config.yaml.")
			return m, tea.Batch(m.detectEditors(), cmd)
		}
		m.screen = screenEditors
		m.editorList.ResetFilter()
		m.editorList.Select(m.defaultEditorIndex())
		return m, nil
	case "n":
		m.initForm()
		return m, nil
	case "esc":
		if failed {
			m.screen = screenForm
			return m, nil
		}
		m.initForm()
		return m, nil
	}
	return m, nil
}

func (m Model) handleEditorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editorList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.editorList, cmd = m.editorList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		item, ok := m.editorList.SelectedItem().(editorItem)
		if !ok {
			return m, nil
		}
		cmd := m.setStatus(StatusLoading, "Opening "+item.info.DisplayName)
		return m, tea.Batch(cmd, m.openEditor(m.result.Path, item.info))
	case "esc":
		if m.editorList.FilterState() == list.FilterApplied {
			m.editorList.ResetFilter()
			return m, nil
		}
		m.screen = screenResult
		return m, nil
	case "r":
		return m, m.detectEditors()
	}

	var cmd tea.Cmd
	m.editorList, cmd = m.editorList.Update(msg)
	return m, cmd
}

// abortCreation cancels an in-flight clone before quitting.
func (m *Model) abortCreation() {
	if m.cancelCreate != nil {
		m.cancelCreate()
		m.cancelCreate = nil
	}
}

// setStatus updates the status bar and schedules clearing non-errors.
func (m *Model) setStatus(level StatusLevel, message string) tea.Cmd {
	m.statusLevel = level
	m.statusMessage = message
	if level == StatusError || level == StatusLoading {
		return nil
	}
	return tea.Tick(statusClearDelay, func(time.Time) tea.Msg {
		return clearStatusMsg{message: message}
	})
}

// resize applies the layout to the list and log viewport.
func (m *Model) resize() {
	layout := ComputeLayout(m.width, m.height, m.logPanelOpen)
	m.editorList.SetSize(m.width-4, layout.ContentListHeight())

	if !m.logPanelOpen {
		return
	}
	if !m.logReady {
		m.logViewport = viewport.New(layout.Logs.Width, layout.Logs.Height-1)
		m.logReady = true
	} else {
		m.logViewport.Width = layout.Logs.Width
		m.logViewport.Height = layout.Logs.Height - 1
	}
	m.updateLogViewportContent()
}

func (m Model) detectEditors() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		editors, err := backend.DetectEditors()
		return editorsDetectedMsg{editors: editors, err: err}
	}
}

func (m Model) openEditor(path string, info editor.Info) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		err := backend.OpenProjectInEditor(path, info.ExecutablePath)
		return editorOpenedMsg{editor: info, path: path, err: err}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	write := m.copy
	return func() tea.Msg {
		return clipboardMsg{text: text, err: write(text)}
	}
}

// waitForLogEntries blocks for one entry, then drains whatever else is
// already buffered.
func (m Model) waitForLogEntries() tea.Cmd {
	ch := m.entries
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		first, ok := <-ch
		if !ok {
			return nil
		}
		entries := []logging.LogEntry{first}
		for len(entries) < 100 {
			select {
			case e, ok := <-ch:
				if !ok {
					return logEntriesMsg{entries: entries}
				}
				entries = append(entries, e)
			default:
				return logEntriesMsg{entries: entries}
			}
		}
		return logEntriesMsg{entries: entries}
	}
}

// appendLogEntries buffers entries for the log panel. The newest problem
// entry is surfaced on the status line when nothing more important is
// showing.
func (m *Model) appendLogEntries(entries []logging.LogEntry) {
	m.logBuffer = append(m.logBuffer, entries...)
	if over := len(m.logBuffer) - maxLogEntries; over > 0 {
		m.logBuffer = m.logBuffer[over:]
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.IsProblem() || e.Scope == "tui" {
			continue
		}
		if m.statusLevel != StatusError && m.statusLevel != StatusLoading {
			m.statusLevel = StatusInfo
			m.statusMessage = fmt.Sprintf("[%s] %s", e.Scope, e.Message)
		}
		break
	}
	if m.logReady {
		m.updateLogViewportContent()
	}
}

func (m *Model) updateLogViewportContent() {
	m.logViewport.SetContent(m.renderLogLines())
	m.logViewport.GotoBottom()
}

// withDefaultEditor prepends a configured default that detection did not
// find, such as an executable path outside the candidate table.
func withDefaultEditor(ref string, detected []editor.Info) []editor.Info {
	pref, ok := editor.Preferred(ref, detected)
	if !ok || pref.Slug != editor.CustomSlug {
		return detected
	}
	return append([]editor.Info{pref}, detected...)
}

// defaultEditorIndex is the picker row the cursor starts on.
func (m Model) defaultEditorIndex() int {
	pref, ok := editor.Preferred(m.cfg.DefaultEditor, m.editors)
	if !ok {
		return 0
	}
	for i, info := range m.editors {
		if info.ExecutablePath == pref.ExecutablePath {
			return i
		}
	}
	return 0
}
