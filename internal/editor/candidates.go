// pattern: Functional Core

package editor

import (
	"crafthub/internal/config"
)

// Info is a detected editor.
type Info struct {
	DisplayName    string `json:"display_name"`
	Slug           string `json:"slug"`
	ExecutablePath string `json:"executable_path"`
}

// Candidate is one known editor: the executable names to look for on PATH,
// and directories probed directly when PATH lookup fails. FallbackDirs may
// start with "~".
type Candidate struct {
	Slug         string
	DisplayName  string
	Executables  []string
	FallbackDirs []string
}

var linuxDirs = []string{
	"/usr/local/bin",
	"/usr/bin",
	"/snap/bin",
	"/var/lib/flatpak/exports/bin",
	"~/.local/share/flatpak/exports/bin",
	"~/.local/bin",
}

var darwinDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"~/.local/bin",
}

// darwinBundles maps a slug to the CLI directory inside its app bundle.
var darwinBundles = map[string]string{
	"vscode":    "/Applications/Visual Studio Code.app/Contents/Resources/app/bin",
	"vscodium":  "/Applications/VSCodium.app/Contents/Resources/app/bin",
	"cursor":    "/Applications/Cursor.app/Contents/Resources/app/bin",
	"sublime":   "/Applications/Sublime Text.app/Contents/SharedSupport/bin",
	"rustrover": "/Applications/RustRover.app/Contents/MacOS",
	"idea":      "/Applications/IntelliJ IDEA.app/Contents/MacOS",
	"fleet":     "/Applications/Fleet.app/Contents/MacOS",
}

var defaultTable = []Candidate{
	{Slug: "vscode", DisplayName: "Visual Studio Code", Executables: []string{"code"}},
	{Slug: "vscodium", DisplayName: "VSCodium", Executables: []string{"codium"}},
	{Slug: "cursor", DisplayName: "Cursor", Executables: []string{"cursor"}},
	{Slug: "zed", DisplayName: "Zed", Executables: []string{"zed", "zeditor"}},
	{Slug: "sublime", DisplayName: "Sublime Text", Executables: []string{"subl"}},
	{Slug: "rustrover", DisplayName: "RustRover", Executables: []string{"rustrover"}},
	{Slug: "idea", DisplayName: "IntelliJ IDEA", Executables: []string{"idea"}},
	{Slug: "fleet", DisplayName: "Fleet", Executables: []string{"fleet"}},
	{Slug: "neovide", DisplayName: "Neovide", Executables: []string{"neovide"}},
	{Slug: "vscode-flatpak", DisplayName: "Visual Studio Code (Flatpak)", Executables: []string{"com.visualstudio.code"}},
}

// FallbackDirs returns the directories probed for goos when an executable
// is not on PATH. Windows relies on PATH only.
func FallbackDirs(goos string) []string {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return append([]string(nil), linuxDirs...)
	case "darwin":
		return append([]string(nil), darwinDirs...)
	default:
		return nil
	}
}

// DefaultCandidates returns the built-in candidate table for goos, in
// priority order.
func DefaultCandidates(goos string) []Candidate {
	common := FallbackDirs(goos)
	out := make([]Candidate, 0, len(defaultTable))
	for _, c := range defaultTable {
		c.Executables = append([]string(nil), c.Executables...)
		c.FallbackDirs = append([]string(nil), common...)
		if goos == "darwin" {
			if dir, ok := darwinBundles[c.Slug]; ok {
				c.FallbackDirs = append(c.FallbackDirs, dir)
			}
		}
		out = append(out, c)
	}
	return out
}

// FromConfig merges configured candidates into the defaults for goos.
// A configured candidate whose slug matches a default replaces it in place;
// others are appended. With ReplaceDefaults only the configured candidates
// are used. Configured candidates without fallback dirs get the platform
// defaults.
func FromConfig(cfg config.EditorsConfig, goos string) []Candidate {
	var out []Candidate
	if !cfg.ReplaceDefaults {
		out = DefaultCandidates(goos)
	}

	index := make(map[string]int, len(out))
	for i, c := range out {
		index[c.Slug] = i
	}

	for _, ec := range cfg.Candidates {
		c := Candidate{
			Slug:         ec.Slug,
			DisplayName:  ec.DisplayName,
			Executables:  append([]string(nil), ec.Executables...),
			FallbackDirs: append([]string(nil), ec.FallbackDirs...),
		}
		if c.DisplayName == "" {
			c.DisplayName = c.Slug
		}
		if len(c.FallbackDirs) == 0 {
			c.FallbackDirs = FallbackDirs(goos)
		}
		if i, ok := index[c.Slug]; ok {
			out[i] = c
			continue
		}
		index[c.Slug] = len(out)
		out = append(out, c)
	}
	return out
}
