// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"crafthub/internal/logging"
)

// View renders the TUI.
func (m Model) View() string {
	layout := ComputeLayout(m.width, m.height, m.logPanelOpen)

	subtitle := "New project wizard"
	if m.webURL != "" {
		subtitle = "Host API at " + m.webURL
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.TitleStyle().MarginBottom(0).Render("crafthub"),
		m.styles.SubtitleStyle().Render(subtitle),
	)

	var content string
	switch m.screen {
	case screenCreating:
		content = m.renderFormSubmitting()
	case screenResult:
		content = m.renderResult()
	case screenEditors:
		content = m.renderEditorPicker()
	default:
		content = m.renderCreateForm()
	}
	content = lipgloss.NewStyle().Height(layout.Content.Height).Render(content)

	parts := []string{header, content}
	if m.logPanelOpen {
		separator := lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.styles.flavor.Surface1().Hex)).
			Render(strings.Repeat("─", max(layout.Separator.Width, 0)))
		parts = append(parts, separator, m.renderLogPanel(layout))
	}
	parts = append(parts, m.renderStatusBar(layout.StatusBar.Width))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// fieldLabel renders a form label, highlighted when focused.
func (m Model) fieldLabel(field FormField, label string) string {
	if m.formFocusedField == field {
		return m.styles.AccentStyle().Render("▸ " + label)
	}
	return "  " + label
}

// renderCreateForm renders the wizard form.
func (m Model) renderCreateForm() string {
	title := m.styles.TitleStyle().Render("Create Project")

	tmpl := m.templates[m.formTemplateIdx]
	templateValue := m.styles.AccentStyle().Render(tmpl)
	if m.formFocusedField == FieldTemplate && len(m.templates) > 1 {
		templateValue += m.styles.HelpStyle().Render(fmt.Sprintf(" (↑↓ to change, %d/%d)", m.formTemplateIdx+1, len(m.templates)))
	}
	lines := []string{title, m.fieldLabel(FieldTemplate, "Template:   ") + templateValue}

	if m.customTemplateSelected() {
		lines = append(lines, m.fieldLabel(FieldCustomURL, "Git URL:    ")+m.formCustomURL.View())
	}
	lines = append(lines,
		m.fieldLabel(FieldBaseDir, "Location:   ")+m.formBaseDir.View(),
		m.fieldLabel(FieldName, "Name:       ")+m.formName.View(),
	)

	if m.formError != "" {
		lines = append(lines, "", m.styles.ErrorStyle().Render("Error: "+m.formError))
	}

	lines = append(lines, "", m.styles.HelpStyle().Render("tab: next field • enter: create • esc: clear"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderFormSubmitting renders progress while a project is being created.
func (m Model) renderFormSubmitting() string {
	title := m.renderPulsingTitle("Creating " + m.FormName())

	parts := []string{
		title,
		m.styles.DisabledStyle().Render("Template:  " + truncatePath(m.FormTemplate(), m.width-14)),
		m.styles.DisabledStyle().Render("Location:  " + truncatePath(m.targetDir(), m.width-14)),
		"",
	}
	parts = append(parts, m.renderSteps()...)

	if m.formCurrentStep != "" {
		parts = append(parts, m.formStatusSpinner.View()+" "+m.formCurrentStep)
		if m.formOutputLine != "" {
			parts = append(parts, "  "+m.styles.HelpStyle().Render(truncatePath(m.formOutputLine, m.width-4)))
		}
	}

	parts = append(parts, "", m.styles.HelpStyle().Render("esc: cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// targetDir is the base directory the form will create into.
func (m Model) targetDir() string {
	if dir := strings.TrimSpace(m.FormBaseDir()); dir != "" {
		return dir
	}
	return m.cfg.ResolveProjectsDir()
}

func (m Model) renderSteps() []string {
	var lines []string
	for _, step := range m.formStatusSteps {
		var icon string
		switch {
		case !step.Success:
			icon = m.styles.ErrorStyle().Render("✗")
		case step.Warning:
			icon = m.styles.WarningStyle().Render("!")
		default:
			icon = m.styles.SuccessStyle().Render("✓")
		}
		lines = append(lines, icon+" "+step.Message)
	}
	return lines
}

// renderResult shows the outcome of the last creation.
func (m Model) renderResult() string {
	var parts []string
	if m.resultErr != nil {
		parts = append(parts, m.styles.ErrorStyle().Render("Project not created"))
	} else {
		parts = append(parts, m.styles.TitleStyle().Render("Project created"))
	}
	parts = append(parts, m.renderSteps()...)
	parts = append(parts, "")

	if m.resultErr != nil {
		parts = append(parts, m.styles.ErrorStyle().Render(m.resultErr.Error()))
		if m.result.Path != "" {
			parts = append(parts, m.styles.InfoStyle().Render("Files were left in "+truncatePath(m.result.Path, m.width-20)))
		}
		help := "enter/esc: back to form"
		if m.result.Path != "" {
			help += " • y: copy path"
		}
		parts = append(parts, "", m.styles.HelpStyle().Render(help))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts,
		m.styles.SuccessStyle().Render(m.result.Message),
		m.styles.InfoStyle().Render("Path: ")+m.styles.AccentStyle().Render(truncatePath(m.result.Path, m.width-10)),
	)
	if len(m.result.Warnings) > 0 {
		parts = append(parts, "", m.styles.WarningStyle().Render("Warnings:"), formatWarnings(m.result.Warnings))
	}
	if steps := NextSteps(m.result, m.cfg.Manifest.File); len(steps) > 0 {
		parts = append(parts, "", m.styles.SubtitleStyle().Render("Next steps:"))
		for _, a := range steps {
			parts = append(parts, fmt.Sprintf("  %-22s %s", a.Label, m.styles.AccentStyle().Render(a.Command)))
		}
	}
	parts = append(parts, "", m.styles.HelpStyle().Render("enter/e: open in editor • y: copy path • n: new project"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderEditorPicker renders the installed editor list.
func (m Model) renderEditorPicker() string {
	title := m.styles.TitleStyle().Render("Open " + m.result.Name + " in")
	if len(m.editors) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			m.styles.InfoStyle().Render("No editors found."),
			"",
			m.styles.HelpStyle().Render("r: rescan • esc: back"),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.editorList.View(),
		m.styles.HelpStyle().Render("↑/↓: select • /: filter • enter: open • r: rescan • esc: back"),
	)
}

// renderPulsingTitle renders a title that pulses between dim and bright.
func (m Model) renderPulsingTitle(text string) string {
	var style lipgloss.Style
	switch m.formTitlePulse {
	case 0:
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.styles.flavor.Mauve().Hex))
	case 1, 3:
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.styles.flavor.Text().Hex))
	case 2:
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.styles.flavor.Overlay1().Hex))
	default:
		style = m.styles.TitleStyle()
	}
	return style.MarginBottom(1).Render(text)
}

func (m Model) renderStatusBar(width int) string {
	var statusIcon string
	var messageStyle lipgloss.Style

	switch m.statusLevel {
	case StatusLoading:
		statusIcon = m.formStatusSpinner.View()
		messageStyle = m.styles.InfoStatusStyle()
	case StatusSuccess:
		statusIcon = m.styles.SuccessStyle().Render("✓")
		messageStyle = m.styles.SuccessStyle()
	case StatusError:
		statusIcon = m.styles.ErrorStyle().Render("✗")
		messageStyle = m.styles.ErrorStyle()
	default:
		messageStyle = m.styles.InfoStatusStyle()
	}

	help := m.styles.HelpStyle().Render("ctrl+l: logs • ctrl+c ctrl+c: quit")
	room := width - lipgloss.Width(help) - 4
	message := m.statusMessage
	if room > 0 {
		message = ansi.Truncate(message, room, "…")
	}

	var statusText string
	if statusIcon != "" {
		statusText = statusIcon + " " + messageStyle.Render(message)
	} else if message != "" {
		statusText = messageStyle.Render(message)
	}

	spacerWidth := width - lipgloss.Width(statusText) - lipgloss.Width(help) - 2
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, statusText, strings.Repeat(" ", spacerWidth), help)
}

// renderLogEntry formats a single log entry for display.
func (m Model) renderLogEntry(entry logging.LogEntry) string {
	ts := m.styles.LogTimestampStyle().Render(entry.Timestamp.Format("15:04:05"))
	level := m.styles.LogLevelStyle(entry.Level).Render(fmt.Sprintf("%-5s", entry.Level))
	scope := m.styles.LogScopeStyle().Render("[" + entry.Scope + "]")
	return fmt.Sprintf("%s %s %s %s", ts, level, scope, entry.Message)
}

func (m Model) renderLogLines() string {
	if len(m.logBuffer) == 0 {
		return m.styles.InfoStyle().Render("No log entries")
	}
	lines := make([]string, len(m.logBuffer))
	for i, e := range m.logBuffer {
		lines[i] = m.renderLogEntry(e)
	}
	return strings.Join(lines, "\n")
}

// renderLogPanel renders the log panel content.
func (m Model) renderLogPanel(layout Layout) string {
	header := m.styles.PanelHeaderStyle().Width(layout.Logs.Width).Render(fmt.Sprintf(" Logs (%d)", len(m.logBuffer)))
	if m.logReady {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.logViewport.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Width(layout.Logs.Width).Height(max(layout.Logs.Height-1, 1)).Render(m.renderLogLines()),
	)
}
