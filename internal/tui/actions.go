// pattern: Functional Core

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"crafthub/internal/project"
)

// ActionCommand is a follow-up command shown after a project is created.
type ActionCommand struct {
	Label   string // Short description
	Command string // The command to run
}

// NextSteps returns the commands to suggest for a created project.
// Cargo commands are only offered when the Cargo manifest was found.
func NextSteps(res project.Result, manifestFile string) []ActionCommand {
	if res.Path == "" {
		return nil
	}
	actions := []ActionCommand{
		{Label: "Enter the project", Command: "cd " + shellQuote(res.Path)},
	}
	if manifestFile == "Cargo.toml" && res.ManifestUpdated {
		actions = append(actions,
			ActionCommand{Label: "Build and run", Command: "cargo run"},
		)
	}
	actions = append(actions, ActionCommand{Label: "Start version control", Command: "git init"})
	return actions
}

// shellQuote quotes p for a POSIX shell when it contains anything but
// safe characters.
func shellQuote(p string) string {
	if p != "" && strings.IndexFunc(p, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '_' || r == '-' || r == '~' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return p
	}
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// cleanOutputLine strips terminal escapes and carriage-return rewrites from
// a git progress line.
func cleanOutputLine(line string) string {
	line = ansi.Strip(line)
	if i := strings.LastIndex(line, "\r"); i >= 0 {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

// truncatePath shortens s to width cells, keeping the tail since the end of
// a path is the informative part.
func truncatePath(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return ansi.Truncate(s, width, "")
	}
	return "…" + ansi.TruncateLeft(s, ansi.StringWidth(s)-width+1, "")
}

// formatWarnings renders warnings as a bulleted block.
func formatWarnings(warnings []string) string {
	var sb strings.Builder
	for _, w := range warnings {
		fmt.Fprintf(&sb, "• %s\n", w)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
