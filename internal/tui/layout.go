// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int // Left position (0-indexed)
	Y      int // Top position (0-indexed)
	Width  int // Width in cells
	Height int // Height in lines
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // App title and host URL
	Content   Region // Wizard, progress, result or editor picker
	Separator Region // Rule above the log panel (1 line when logs open)
	Logs      Region // Log panel when open
	StatusBar Region // Status bar (1 line)
}

// Fixed heights for chrome elements
const (
	headerHeight    = 2 // Title + subtitle
	statusBarHeight = 1
	marginHeight    = 2 // Top + bottom margins
	separatorHeight = 1
	minContent      = 4
)

// ComputeLayout calculates regions based on terminal dimensions.
// When logPanelOpen is true, content and logs split the space 60/40.
func ComputeLayout(width, height int, logPanelOpen bool) Layout {
	availableHeight := height - headerHeight - statusBarHeight - marginHeight
	if availableHeight < minContent {
		availableHeight = minContent
	}

	contentHeight, logsHeight := availableHeight, 0
	if logPanelOpen {
		logsHeight = int(float64(availableHeight)*0.4) - separatorHeight
		if logsHeight < 1 {
			logsHeight = 1
		}
		contentHeight = availableHeight - logsHeight - separatorHeight
	}

	y := 0
	header := Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	content := Region{X: 0, Y: y, Width: width, Height: contentHeight}
	y += contentHeight

	var separator, logs Region
	if logPanelOpen {
		separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight
		logs = Region{X: 0, Y: y, Width: width, Height: logsHeight}
		y += logsHeight
	}

	return Layout{
		Header:    header,
		Content:   content,
		Separator: separator,
		Logs:      logs,
		StatusBar: Region{X: 0, Y: y, Width: width, Height: statusBarHeight},
	}
}

// ContentListHeight returns the height available for the editor list
// after the picker's title and help lines.
func (l Layout) ContentListHeight() int {
	h := l.Content.Height - 4
	if h < 1 {
		h = 1
	}
	return h
}
