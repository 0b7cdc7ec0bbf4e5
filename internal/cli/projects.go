// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	flag "github.com/spf13/pflag"

	"crafthub/internal/discovery"
	"crafthub/internal/instance"
)

const projectsUsage = "Usage: crafthub projects [--json] [--host]"

// runProjects lists the projects found in projects_dir.
func (e *environment) runProjects(args []string) error {
	fs := flag.NewFlagSet("projects", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print JSON")
	viaHost := fs.Bool("host", false, "list the projects the running host sees")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return usageError{projectsUsage}
	}

	if *viaHost {
		e.delegate().Run(func(c *instance.Client) error {
			data, err := c.Projects()
			if err != nil {
				return err
			}
			if *asJSON {
				return PrintJSON(e.app.Stdout, data)
			}
			var projects []discovery.Project
			if err := json.Unmarshal(data, &projects); err != nil {
				return fmt.Errorf("invalid response from host: %w", err)
			}
			renderProjects(e.app.Stdout, projects)
			return nil
		})
		return nil
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	projects := s.svc.ListProjects()
	if *asJSON {
		data, err := json.Marshal(projects)
		if err != nil {
			return err
		}
		return PrintJSON(e.app.Stdout, append(data, '\n'))
	}
	renderProjects(e.app.Stdout, projects)
	return nil
}

func renderProjects(w io.Writer, projects []discovery.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"NAME", "PACKAGE", "GIT", "PATH"})
	for _, p := range projects {
		pkg := p.PackageName
		if !p.Renamed {
			pkg += " (template)"
		}
		git := ""
		if p.HasGit {
			git = "yes"
		}
		tw.AppendRow(table.Row{p.Name, pkg, git, p.Path})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}
