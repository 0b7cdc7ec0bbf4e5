// pattern: Imperative Shell

package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"

	"crafthub/internal/commands"
	"crafthub/internal/events"
	"crafthub/internal/project"
)

type loginRequest struct {
	URL string `json:"url"`
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	TemplateURL string `json:"template_url"`
}

type openEditorRequest struct {
	ProjectPath string `json:"project_path"`
	EditorPath  string `json:"editor_path"`
}

// ProjectResponse is the JSON representation of a created project.
type ProjectResponse struct {
	Message  string   `json:"message"`
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Warnings []string `json:"warnings"`
}

// handleLogin handles POST /api/login.
// Opens the URL in the host's browser. Returns 400 for a bad URL.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.commands.StartLoginFlow(req.URL); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
}

// handleCreateProject handles POST /api/projects.
// Creates the project, streaming progress to event subscribers while the
// request is in flight. Returns 201 on success, 409 when the target exists,
// 400 for invalid input and 502 when git fails. A project left behind by a
// failed manifest rewrite is reported with 500 and its path.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	onProgress := func(step project.ProgressStep) {
		s.events.Publish(Event{Type: EventProgress, Project: req.Name, Step: &step})
	}

	result, err := s.commands.CreateNewProject(r.Context(), req.Name, req.Path, req.TemplateURL, onProgress)
	if err != nil {
		s.logger.Warn("project creation failed", "name", req.Name, "error", err)
		if project.IsPartial(err) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "path": result.Path})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}

	if s.notifyTUI != nil {
		s.notifyTUI(events.ProjectCreatedMsg{Name: result.Name, Path: result.Path, Message: result.Message})
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusCreated, ProjectResponse{
		Message:  result.Message,
		Name:     result.Name,
		Path:     result.Path,
		Warnings: warnings,
	})
}

// handleListProjects handles GET /api/projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.commands.ListProjects())
}

// handleListEditors handles GET /api/editors.
func (s *Server) handleListEditors(w http.ResponseWriter, r *http.Request) {
	editors, err := s.commands.DetectEditors()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, editors)
}

// handleOpenEditor handles POST /api/editors/open.
// An empty editor_path opens the default editor.
// Returns as soon as the editor has been started.
func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	var req openEditorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.commands.OpenProjectInEditor(req.ProjectPath, req.EditorPath); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
}

// statusFor maps a command error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, project.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, commands.ErrTargetLocked):
		return http.StatusConflict
	case commands.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, project.ErrToolFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const maxBodyBytes = 1 << 20

// localJSON guards a mutating endpoint. A browser page on another origin can
// send a "simple" POST without a preflight, so the body must be declared
// application/json (which forces one) and any Origin must be local.
func (s *Server) localJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !isLocalOrigin(origin) {
			s.logger.Warn("rejected cross-origin request", "path", r.URL.Path, "origin", origin)
			writeError(w, http.StatusForbidden, "cross-origin requests are not allowed")
			return
		}
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		next(w, r)
	}
}

// isLocalOrigin reports whether origin is a loopback http(s) origin.
func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
