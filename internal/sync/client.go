// Package sync implements the client side of PairPad: the file store
// client, the presence tracker, the change feed and the convergence
// engine that keeps an editor session converged with the shared store.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pairpad/pairpad/internal/keycodec"
	"github.com/pairpad/pairpad/internal/models"
)

// ErrStoreUnavailable marks transient transport failures. Callers retry
// these; anything else is a hard failure.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrUnauthorized is returned when credentials or tokens are rejected.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned for missing records.
var ErrNotFound = errors.New("not found")

// APIError carries the server's error envelope for non-retryable failures.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is maps status classes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrStoreUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

// Session is what the server hands back on login or registration.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        *models.User `json:"user"`
}

// Client is an HTTP client for the PairPad API. Methods are single-shot;
// retry policy belongs to the caller.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", body, &session); err != nil {
		return nil, err
	}
	c.token = session.AccessToken
	return &session, nil
}

// Register creates an account and installs the returned token.
func (c *Client) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	body := map[string]string{
		"username":     username,
		"password":     password,
		"display_name": displayName,
	}
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", body, &session); err != nil {
		return nil, err
	}
	c.token = session.AccessToken
	return &session, nil
}

// CreateProject creates a project seeded with the starter files.
func (c *Client) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	body := map[string]string{"name": name, "description": description}
	var project models.Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns the caller's owned and shared projects.
func (c *Client) ListProjects(ctx context.Context) ([]*models.ProjectSummary, error) {
	var summaries []*models.ProjectSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/projects", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetProject fetches a single project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/projects/"+url.PathEscape(projectID), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project. Owner only.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/projects/"+url.PathEscape(projectID), nil, nil)
}

// ShareProject grants another user access. Owner only.
func (c *Client) ShareProject(ctx context.Context, projectID, username string) error {
	body := map[string]string{"username": username}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/projects/"+url.PathEscape(projectID)+"/share", body, nil)
}

// UnshareProject revokes a user's access. Owner only.
func (c *Client) UnshareProject(ctx context.Context, projectID, username string) error {
	return c.doJSON(ctx, http.MethodDelete,
		"/api/v1/projects/"+url.PathEscape(projectID)+"/share/"+url.PathEscape(username), nil, nil)
}

// ListFiles returns the full file table snapshot keyed by name.
func (c *Client) ListFiles(ctx context.Context, projectID string) (Snapshot, error) {
	var snapshot Snapshot
	if err := c.doJSON(ctx, http.MethodGet, c.filesPath(projectID, ""), nil, &snapshot); err != nil {
		return nil, err
	}
	if snapshot == nil {
		snapshot = Snapshot{}
	}
	return snapshot, nil
}

// GetFile fetches a single file record by name.
func (c *Client) GetFile(ctx context.Context, projectID, name string) (*models.File, error) {
	var file models.File
	if err := c.doJSON(ctx, http.MethodGet, c.filesPath(projectID, name), nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// PutFile overwrites a record. The file's lastModified travels as-is so
// the caller controls the conflict timestamp.
func (c *Client) PutFile(ctx context.Context, projectID string, file *models.File) (*models.File, error) {
	body := map[string]any{
		"content":      file.Content,
		"type":         file.Type,
		"lastModified": file.LastModified,
	}
	var stored models.File
	if err := c.doJSON(ctx, http.MethodPut, c.filesPath(projectID, file.Name), body, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// DeleteFile removes a record. Deleting a missing file is a no-op.
func (c *Client) DeleteFile(ctx context.Context, projectID, name string) error {
	return c.doJSON(ctx, http.MethodDelete, c.filesPath(projectID, name), nil, nil)
}

// Heartbeat refreshes this session's presence record.
func (c *Client) Heartbeat(ctx context.Context, projectID, sessionID, viewingFile string) error {
	body := map[string]string{"viewingFile": viewingFile}
	return c.doJSON(ctx, http.MethodPut, c.presencePath(projectID, sessionID), body, nil)
}

// ActivePresence returns sessions inside the liveness window.
func (c *Client) ActivePresence(ctx context.Context, projectID string) ([]*models.Presence, error) {
	var entries []*models.Presence
	if err := c.doJSON(ctx, http.MethodGet, c.presencePath(projectID, ""), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReleasePresence removes this session's presence record.
func (c *Client) ReleasePresence(ctx context.Context, projectID, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.presencePath(projectID, sessionID), nil, nil)
}

func (c *Client) filesPath(projectID, name string) string {
	p := "/api/v1/projects/" + url.PathEscape(projectID) + "/files"
	if name != "" {
		// Escaping keeps URL metacharacters in names (?, #, %) intact;
		// chi hands the decoded key back to the server handler.
		p += "/" + url.PathEscape(keycodec.Encode(name))
	}
	return p
}

func (c *Client) presencePath(projectID, sessionID string) string {
	p := "/api/v1/projects/" + url.PathEscape(projectID) + "/presence"
	if sessionID != "" {
		p += "/" + url.PathEscape(sessionID)
	}
	return p
}

// doJSON performs one request and decodes the server's data envelope.
func (c *Client) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	payload, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%w: read response: %v", ErrStoreUnavailable, readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if out == nil || len(payload) == 0 {
			return nil
		}
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return json.Unmarshal(envelope.Data, out)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(payload, &envelope)
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
}
