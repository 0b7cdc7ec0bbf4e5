// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"crafthub/internal/discovery"
	"crafthub/internal/editor"
	"crafthub/internal/logging"
	"crafthub/internal/project"
)

// Commands is the host command surface the server exposes.
// *commands.Service satisfies it.
type Commands interface {
	StartLoginFlow(url string) error
	CreateNewProject(ctx context.Context, name, path, template string, onProgress project.ProgressFunc) (project.Result, error)
	ListProjects() []discovery.Project
	DetectEditors() ([]editor.Info, error)
	OpenProjectInEditor(projectPath, editorRef string) error
}

// Server serves the JSON API and the event stream.
type Server struct {
	httpServer *http.Server
	commands   Commands
	notifyTUI  func(any)
	logger     *logging.ScopedLogger
	addr       string
	listener   net.Listener
	events     *eventBroker
	version    string
	startedAt  time.Time
}

// Config holds web server configuration.
type Config struct {
	Bind    string
	Port    int
	Version string
}

// New creates a web server.
// notifyTUI, when non-nil, receives events.* messages after mutations so a
// TUI running in the same process stays in sync.
func New(cfg Config, cmds Commands, notifyTUI func(any), logProvider logging.LoggerProvider) *Server {
	logger := logProvider.For("web")
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		commands:  cmds,
		notifyTUI: notifyTUI,
		logger:    logger,
		addr:      addr,
		events:    newEventBroker(),
		version:   cfg.Version,
		startedAt: time.Now().UTC(),
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/login", s.localJSON(s.handleLogin))
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.localJSON(s.handleCreateProject))
	mux.HandleFunc("GET /api/editors", s.handleListEditors)
	mux.HandleFunc("POST /api/editors/open", s.localJSON(s.handleOpenEditor))

	return s
}

// Listen binds the server to its configured address and returns the listener.
// Call Serve() after Listen() to start accepting connections; the split lets
// callers learn the real address when the port is 0.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on the listener. Blocks until the server stops.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web server started", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Addr returns the address the server is listening on.
// Only valid after Listen() has been called.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("web server shutting down")
	s.events.Close()
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.version,
		PID:       os.Getpid(),
		StartedAt: s.startedAt.Format(time.RFC3339),
	})
}
