// pattern: Imperative Shell
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	flag "github.com/spf13/pflag"

	"crafthub/internal/commands"
	"crafthub/internal/instance"
	"crafthub/internal/project"
)

const (
	createUsage = "Usage: crafthub create <name> [--path DIR] [--template NAME|URL] [--open[=SLUG|PATH]] [--host]"
	loginUsage  = "Usage: crafthub login <url> [--host]"

	// defaultEditorArg is what a bare --open parses to.
	defaultEditorArg = "default"
)

// runCreate creates a project locally, or through the running host with
// --host so its TUI and event stream see the progress.
func (e *environment) runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.StringP("path", "p", "", "parent directory (default: projects_dir)")
	template := fs.StringP("template", "t", "", "template name or clone URL (default: default_template)")
	openRef := fs.String("open", "", "open the new project in this editor (bare: default_editor)")
	fs.Lookup("open").NoOptDefVal = defaultEditorArg
	viaHost := fs.Bool("host", false, "send the request to the running host")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return usageError{createUsage}
	}
	name := fs.Arg(0)
	openRequested := fs.Changed("open")
	if *openRef == defaultEditorArg {
		*openRef = ""
	}

	if *viaHost {
		d := e.delegate()
		d.ClientTimeout = 10 * time.Minute
		d.Run(func(c *instance.Client) error {
			data, err := c.CreateProject(name, *path, *template)
			if err != nil {
				return err
			}
			if err := PrintJSON(e.app.Stdout, data); err != nil {
				return err
			}
			if !openRequested {
				return nil
			}
			var created struct {
				Path string `json:"path"`
			}
			if err := json.Unmarshal(data, &created); err != nil {
				return fmt.Errorf("invalid response from host: %w", err)
			}
			return c.OpenEditor(created.Path, *openRef)
		})
		return nil
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := s.svc.CreateNewProject(ctx, name, *path, *template, progressPrinter(e.app.Stderr))
	if err != nil {
		if project.IsPartial(err) {
			fmt.Fprintf(e.app.Stderr, "project files were left in %s\n", res.Path)
		}
		return err
	}
	fmt.Fprintln(e.app.Stdout, res.Message)

	if openRequested {
		ref := *openRef
		if ref == "" {
			info, ok := s.svc.DefaultEditor()
			if !ok {
				return commands.ErrNoEditor
			}
			ref = info.ExecutablePath
		}
		if err := s.svc.OpenProjectInEditor(res.Path, ref); err != nil {
			return err
		}
		fmt.Fprintf(e.app.Stdout, "Opened %s in %s\n", res.Path, ref)
	}
	return nil
}

// progressPrinter renders creation progress as plain lines. Git's
// percentage updates are dropped except the final ", done." line.
func progressPrinter(w io.Writer) project.ProgressFunc {
	return func(p project.ProgressStep) {
		msg := strings.TrimSpace(ansi.Strip(p.Message))
		switch p.Status {
		case project.StatusStarted:
			fmt.Fprintf(w, "==> %s\n", msg)
		case project.StatusOutput:
			if msg == "" || (strings.Contains(msg, "%") && !strings.Contains(msg, "done")) {
				return
			}
			fmt.Fprintf(w, "    %s\n", msg)
		case project.StatusWarning:
			fmt.Fprintf(w, "warning: %s\n", msg)
		case project.StatusCompleted:
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}
}

func (e *environment) runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	viaHost := fs.Bool("host", false, "open the browser from the running host")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return usageError{loginUsage}
	}
	url := fs.Arg(0)

	if *viaHost {
		e.delegate().Run(func(c *instance.Client) error {
			return c.Login(url)
		})
		return nil
	}

	s, err := e.open()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.svc.StartLoginFlow(url); err != nil {
		return err
	}
	fmt.Fprintln(e.app.Stdout, "Opened the login page in your browser.")
	return nil
}
