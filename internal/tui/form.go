// pattern: Imperative Shell

package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crafthub/internal/config"
	"crafthub/internal/project"
)

// FormField represents the currently focused form field.
type FormField int

const (
	FieldTemplate FormField = iota
	FieldCustomURL
	FieldBaseDir
	FieldName
	fieldCount // Used for wrap-around
)

// customTemplateOption is the last template choice; it reveals a URL input.
const customTemplateOption = "other (enter a git URL)"

// FormStatusStep is a finished creation step shown under the form.
type FormStatusStep struct {
	Success bool
	Warning bool
	Message string
}

// templateOptions lists configured template names, default first, then a
// default given as a bare URL, then the custom choice.
func templateOptions(cfg config.Config) []string {
	var opts []string
	if cfg.DefaultTemplate != "" && config.IsTemplateURL(cfg.DefaultTemplate) {
		opts = append(opts, cfg.DefaultTemplate)
	}
	opts = append(opts, cfg.TemplateNames()...)
	return append(opts, customTemplateOption)
}

// Form state accessors for testing and view rendering.

// FormTemplate returns the template reference the form would submit.
func (m Model) FormTemplate() string {
	if m.customTemplateSelected() {
		return strings.TrimSpace(m.formCustomURL.Value())
	}
	return m.templates[m.formTemplateIdx]
}

// FormBaseDir returns the current base directory input.
func (m Model) FormBaseDir() string {
	return m.formBaseDir.Value()
}

// FormName returns the current project name input.
func (m Model) FormName() string {
	return m.formName.Value()
}

// FormFocusedField returns the currently focused form field.
func (m Model) FormFocusedField() FormField {
	return m.formFocusedField
}

// FormError returns any validation error message.
func (m Model) FormError() string {
	return m.formError
}

// FormStatusSteps returns the finished creation steps.
func (m Model) FormStatusSteps() []FormStatusStep {
	return m.formStatusSteps
}

func (m Model) customTemplateSelected() bool {
	return m.templates[m.formTemplateIdx] == customTemplateOption
}

func newTextInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	return ti
}

// initForm resets the wizard to an empty form focused on the template.
func (m *Model) initForm() {
	m.screen = screenForm
	m.formTemplateIdx = 0
	m.formCustomURL = newTextInput("https://github.com/you/template.git")
	m.formBaseDir = newTextInput(m.cfg.ResolveProjectsDir())
	m.formName = newTextInput("MyGame")
	m.formFocusedField = FieldTemplate
	m.formError = ""

	m.formTitlePulse = 0
	m.formStatusSteps = nil
	m.formCurrentStep = ""
	m.formOutputLine = ""
	m.cancelCreate = nil

	if len(m.templates) == 1 {
		// Only the custom choice exists.
		m.focusField(FieldCustomURL)
	}
}

// focusField moves focus, blurring every text input but the new one.
func (m *Model) focusField(f FormField) tea.Cmd {
	m.formFocusedField = f
	m.formCustomURL.Blur()
	m.formBaseDir.Blur()
	m.formName.Blur()
	if in := m.focusedInput(); in != nil {
		return in.Focus()
	}
	return nil
}

func (m *Model) focusedInput() *textinput.Model {
	switch m.formFocusedField {
	case FieldCustomURL:
		return &m.formCustomURL
	case FieldBaseDir:
		return &m.formBaseDir
	case FieldName:
		return &m.formName
	}
	return nil
}

// nextField cycles focus forward, skipping the URL input unless the custom
// template is selected.
func (m *Model) nextField(step int) tea.Cmd {
	f := m.formFocusedField
	for {
		f = FormField((int(f) + step + int(fieldCount)) % int(fieldCount))
		if f != FieldCustomURL || m.customTemplateSelected() {
			break
		}
	}
	return m.focusField(f)
}

// validateForm returns a message for the first invalid input, or "".
func (m Model) validateForm() string {
	if m.FormTemplate() == "" {
		return "Template URL is required"
	}
	if m.customTemplateSelected() && !config.IsTemplateURL(m.FormTemplate()) {
		return "Template must be a git URL or a path"
	}
	if err := project.ValidateName(m.formName.Value()); err != nil {
		return err.Error()
	}
	return ""
}

// formTitlePulseMsg triggers the title pulse animation.
type formTitlePulseMsg struct{}

// startFormSubmission switches to the progress screen with a spinner.
func (m *Model) startFormSubmission() tea.Cmd {
	m.screen = screenCreating
	m.formTitlePulse = 0
	m.formStatusSteps = nil
	m.formCurrentStep = ""
	m.formOutputLine = ""
	m.result = project.Result{}
	m.resultErr = nil

	m.formStatusSpinner = newSpinner(m.styles)
	return tea.Batch(m.formStatusSpinner.Tick, tickTitlePulse())
}

func newSpinner(styles *Styles) spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.flavor.Teal().Hex))
	return s
}

// tickTitlePulse returns a command that ticks the title pulse every 200ms.
func tickTitlePulse() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return formTitlePulseMsg{}
	})
}

// addFormStatusStep appends a finished step to the progress list.
func (m *Model) addFormStatusStep(success, warning bool, message string) {
	m.formStatusSteps = append(m.formStatusSteps, FormStatusStep{
		Success: success,
		Warning: warning,
		Message: message,
	})
}

// applyProgress folds one creation update into the progress screen.
func (m *Model) applyProgress(step project.ProgressStep) {
	switch step.Status {
	case project.StatusStarted:
		m.formCurrentStep = step.Message
		m.formOutputLine = ""
	case project.StatusOutput:
		if line := cleanOutputLine(step.Message); line != "" {
			m.formOutputLine = line
		}
	case project.StatusCompleted:
		m.addFormStatusStep(true, false, step.Message)
		m.formCurrentStep = ""
		m.formOutputLine = ""
	case project.StatusWarning:
		m.addFormStatusStep(true, true, step.Message)
		m.formCurrentStep = ""
	case project.StatusFailed:
		m.addFormStatusStep(false, false, step.Message)
		m.formCurrentStep = ""
	}
}

// finishFormSubmission records the outcome and shows the result screen.
func (m *Model) finishFormSubmission(res project.Result, err error) {
	m.screen = screenResult
	m.result = res
	m.resultErr = err
	m.formCurrentStep = ""
	m.formOutputLine = ""
	if m.cancelCreate != nil {
		m.cancelCreate()
		m.cancelCreate = nil
	}
}

// cancelSubmission aborts an in-flight creation and returns to the form.
func (m *Model) cancelSubmission() {
	if m.cancelCreate != nil {
		m.cancelCreate()
		m.cancelCreate = nil
	}
	m.screen = screenForm
	m.formStatusSteps = nil
	m.formCurrentStep = ""
	m.formOutputLine = ""
}

// formProgressMsg delivers a single progress update during creation.
type formProgressMsg struct {
	id   int
	step project.ProgressStep
	ch   <-chan tea.Msg
}

// formCreationDoneMsg is sent when creation completes.
type formCreationDoneMsg struct {
	id     int
	result project.Result
	err    error
}

// createProjectWithProgress starts creation in the background and returns
// a command that waits for its first update. The returned cancel func
// aborts the clone. Messages carry id so a cancelled run's late updates
// can be told apart from the current one.
func (m Model) createProjectWithProgress(id int) (tea.Cmd, context.CancelFunc) {
	name := strings.TrimSpace(m.formName.Value())
	baseDir := strings.TrimSpace(m.formBaseDir.Value())
	template := m.FormTemplate()
	backend := m.backend

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, 64)

	go func() {
		res, err := backend.CreateNewProject(ctx, name, baseDir, template, func(step project.ProgressStep) {
			// Drop updates rather than stall the clone when the UI falls behind.
			select {
			case ch <- formProgressMsg{id: id, step: step, ch: ch}:
			default:
			}
		})
		ch <- formCreationDoneMsg{id: id, result: res, err: err}
		close(ch)
	}()

	return waitForProgress(ch), cancel
}

// waitForProgress returns a command that waits for the next message from
// a creation goroutine.
func waitForProgress(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
