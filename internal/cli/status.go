// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"fmt"

	"crafthub/internal/editor"
	"crafthub/internal/instance"
)

// runStatus reports the running host. Exits 2 when there is none.
func (e *environment) runStatus(args []string) error {
	e.delegate().Run(func(c *instance.Client) error {
		h, err := c.Health()
		if err != nil {
			return err
		}
		data, err := c.Editors()
		if err != nil {
			return err
		}
		var editors []editor.Info
		if err := json.Unmarshal(data, &editors); err != nil {
			return fmt.Errorf("invalid response from host: %w", err)
		}

		fmt.Fprintf(e.app.Stdout, "crafthub host running at %s\n", c.BaseURL())
		fmt.Fprintf(e.app.Stdout, "  version:  %s\n", h.Version)
		fmt.Fprintf(e.app.Stdout, "  pid:      %d\n", h.PID)
		fmt.Fprintf(e.app.Stdout, "  started:  %s\n", h.StartedAt)
		fmt.Fprintf(e.app.Stdout, "  editors:  %d\n", len(editors))
		return nil
	})
	return nil
}
