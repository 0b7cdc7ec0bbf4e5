// pattern: Imperative Shell
package instance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin HTTP client for a running crafthub host.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
}

// NewClient creates a Client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 10*time.Second)
}

// NewClientWithTimeout creates a Client with a custom timeout. Project
// creation waits for a full clone, so callers use a longer one there.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the host URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches the host's health record.
func (c *Client) Health() (Health, error) {
	var h Health
	body, err := c.get("/api/health")
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("invalid health response: %w", err)
	}
	return h, nil
}

// Editors returns the raw JSON editor list detected by the host.
func (c *Client) Editors() ([]byte, error) {
	return c.get("/api/editors")
}

// Projects returns the raw JSON list of projects under the host's
// projects directory.
func (c *Client) Projects() ([]byte, error) {
	return c.get("/api/projects")
}

// CreateProject asks the host to create a project and returns the raw JSON
// result.
func (c *Client) CreateProject(name, path, template string) ([]byte, error) {
	return c.postJSON("/api/projects", map[string]string{
		"name":         name,
		"path":         path,
		"template_url": template,
	})
}

// OpenEditor asks the host to open projectPath in an editor (path or slug).
func (c *Client) OpenEditor(projectPath, editorRef string) error {
	_, err := c.postJSON("/api/editors/open", map[string]string{
		"project_path": projectPath,
		"editor_path":  editorRef,
	})
	return err
}

// Login asks the host to start the browser login flow.
func (c *Client) Login(url string) error {
	_, err := c.postJSON("/api/login", map[string]string{"url": url})
	return err
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to crafthub: %w", err)
	}
	return readResponse(resp)
}

func (c *Client) postJSON(path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to crafthub: %w", err)
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Message: extractErrorMessage(body)}
	}
	return body, nil
}

// StatusError is a non-2xx answer from the host. Message is the host's
// error text, suitable for showing to the user as-is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crafthub returned status %d: %s", e.Code, e.Message)
}

// extractErrorMessage returns the "error" field of a JSON body, or the raw
// body when there is none.
func extractErrorMessage(body []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(body)
}
