// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	flag "github.com/spf13/pflag"

	"crafthub/internal/commands"
	"crafthub/internal/editor"
	"crafthub/internal/instance"
)

const (
	editorsListUsage = "Usage: crafthub editors list [--json] [--host]"
	editorsOpenUsage = "Usage: crafthub editors open <project-path> [editor-path|slug] [--host]"
)

// registerEditorCommands registers the editors command group commands.
func (e *environment) registerEditorCommands(group *Group) {
	group.AddCommand(&Command{
		Name:    "list",
		Summary: "List installed editors",
		Usage:   editorsListUsage,
		Run:     e.runEditorsList,
	})
	group.AddCommand(&Command{
		Name:    "open",
		Summary: "Open a project in an editor",
		Usage:   editorsOpenUsage,
		Run:     e.runEditorsOpen,
	})
}

func (e *environment) runEditorsList(args []string) error {
	fs := flag.NewFlagSet("editors list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print JSON")
	viaHost := fs.Bool("host", false, "list the editors the running host sees")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return usageError{editorsListUsage}
	}

	if *viaHost {
		e.delegate().Run(func(c *instance.Client) error {
			data, err := c.Editors()
			if err != nil {
				return err
			}
			if *asJSON {
				return PrintJSON(e.app.Stdout, data)
			}
			var editors []editor.Info
			if err := json.Unmarshal(data, &editors); err != nil {
				return fmt.Errorf("invalid response from host: %w", err)
			}
			renderEditors(e.app.Stdout, editors)
			return nil
		})
		return nil
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	editors, err := s.svc.DetectEditors()
	if err != nil {
		return err
	}
	if *asJSON {
		data, err := json.Marshal(editors)
		if err != nil {
			return err
		}
		return PrintJSON(e.app.Stdout, append(data, '\n'))
	}
	renderEditors(e.app.Stdout, editors)
	return nil
}

// renderEditors prints editors as a table, or a hint when there are none.
func renderEditors(w io.Writer, editors []editor.Info) {
	if len(editors) == 0 {
		fmt.Fprintln(w, "No editors found. Add one under editors.candidates in config.yaml.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"SLUG", "EDITOR", "EXECUTABLE"})
	for _, info := range editors {
		tw.AppendRow(table.Row{info.Slug, info.DisplayName, info.ExecutablePath})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
	})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func (e *environment) runEditorsOpen(args []string) error {
	fs := flag.NewFlagSet("editors open", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	viaHost := fs.Bool("host", false, "launch the editor from the running host")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 || fs.NArg() > 2 {
		return usageError{editorsOpenUsage}
	}
	// Arg returns "" when the editor is omitted, which selects the default.
	projectPath, editorRef := fs.Arg(0), fs.Arg(1)

	if *viaHost {
		e.delegate().Run(func(c *instance.Client) error {
			return c.OpenEditor(projectPath, editorRef)
		})
		return nil
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	if editorRef == "" {
		info, ok := s.svc.DefaultEditor()
		if !ok {
			return commands.ErrNoEditor
		}
		editorRef = info.ExecutablePath
	}
	if err := s.svc.OpenProjectInEditor(projectPath, editorRef); err != nil {
		return err
	}
	fmt.Fprintf(e.app.Stdout, "Opened %s in %s\n", projectPath, editorRef)
	return nil
}
