// package events contains message types shared between web and tui packages.
package events

// ProjectCreatedMsg is sent by the web server after it created a project.
type ProjectCreatedMsg struct {
	Name    string
	Path    string
	Message string
}

// EditorsChangedMsg is sent when the editor directory watcher fires.
type EditorsChangedMsg struct{}

// WebListenURLMsg is sent when the web server starts listening.
type WebListenURLMsg struct{ URL string }
