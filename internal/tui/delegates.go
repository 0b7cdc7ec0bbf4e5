// pattern: Imperative Shell

package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crafthub/internal/editor"
)

// editorItem wraps a detected editor for display in a list.
type editorItem struct {
	info editor.Info
}

func (i editorItem) Title() string {
	return i.info.DisplayName
}

func (i editorItem) Description() string {
	return fmt.Sprintf("%s | %s", i.info.Slug, i.info.ExecutablePath)
}

// FilterValue matches on both the display name and the slug.
func (i editorItem) FilterValue() string {
	return i.info.DisplayName + " " + i.info.Slug
}

// editorDelegate handles rendering of editor items in a list.
type editorDelegate struct {
	styles *Styles
}

func newEditorDelegate(styles *Styles) editorDelegate {
	return editorDelegate{styles: styles}
}

func (d editorDelegate) Height() int {
	return 2
}

func (d editorDelegate) Spacing() int {
	return 1
}

func (d editorDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a single editor item. Executable paths are truncated to
// the list width.
func (d editorDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(editorItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(d.styles.flavor.Text().Hex))
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(d.styles.flavor.Subtext0().Hex))

	if isSelected {
		titleStyle = titleStyle.
			Bold(true).
			Foreground(lipgloss.Color(d.styles.flavor.Mauve().Hex))
		descStyle = descStyle.
			Foreground(lipgloss.Color(d.styles.flavor.Overlay0().Hex))
	}

	indicator := "  "
	if isSelected {
		indicator = lipgloss.NewStyle().
			Foreground(lipgloss.Color(d.styles.flavor.Mauve().Hex)).
			Render("▸ ")
	}

	bullet := lipgloss.NewStyle().
		Foreground(lipgloss.Color(d.styles.flavor.Green().Hex)).
		Render("●")

	title := titleStyle.Render(ei.Title())
	desc := descStyle.Render(truncatePath(ei.Description(), m.Width()-4))

	_, _ = fmt.Fprintf(w, "%s%s %s\n%s%s", indicator, bullet, title, "    ", desc)
}

// toListItems converts editors to list items.
func toListItems(editors []editor.Info) []list.Item {
	items := make([]list.Item, len(editors))
	for i, e := range editors {
		items[i] = editorItem{info: e}
	}
	return items
}
