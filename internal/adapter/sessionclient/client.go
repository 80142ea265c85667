// Package sessionclient provides an HTTP client for the session REST API.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// Client is an HTTP client for the session API, acting as one user.
type Client struct {
	baseURL    string
	userID     string
	header     string
	httpClient *http.Client
}

// NewClient creates a new session client. header names the identity header
// the server trusts; empty means X-User-ID.
func NewClient(baseURL, userID, header string) *Client {
	if header == "" {
		header = "X-User-ID"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		userID:  userID,
		header:  header,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ErrorResponse represents an error response from the session API.
type ErrorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type sessionResponse struct {
	Session *domain.Session `json:"session"`
}

// List calls GET /v1/sessions with the server's default limit.
func (c *Client) List(ctx context.Context) ([]domain.SessionSummary, error) {
	return c.ListN(ctx, 0)
}

// ListN calls GET /v1/sessions?limit=n. n <= 0 uses the server default.
func (c *Client) ListN(ctx context.Context, n int) ([]domain.SessionSummary, error) {
	path := "/v1/sessions"
	if n > 0 {
		path += "?limit=" + strconv.Itoa(n)
	}
	var out struct {
		Sessions []domain.SessionSummary `json:"sessions"`
	}
	if err := c.do(ctx, "list", "", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// Get calls GET /v1/sessions/{id}.
func (c *Client) Get(ctx context.Context, id string) (*domain.Session, error) {
	var out sessionResponse
	if err := c.do(ctx, "get", id, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Current calls GET /v1/sessions/current. It returns nil when the user has
// no sessions.
func (c *Client) Current(ctx context.Context) (*domain.Session, error) {
	var out sessionResponse
	if err := c.do(ctx, "current", "", http.MethodGet, "/v1/sessions/current", nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Create calls POST /v1/sessions.
func (c *Client) Create(ctx context.Context, req domain.CreateSessionRequest) (*domain.Session, error) {
	var out sessionResponse
	if err := c.do(ctx, "create", "", http.MethodPost, "/v1/sessions", req, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Append calls POST /v1/sessions/chat.
func (c *Client) Append(ctx context.Context, req domain.AppendMessageRequest) (*domain.Session, error) {
	var out sessionResponse
	if err := c.do(ctx, "append", req.SessionID, http.MethodPost, "/v1/sessions/chat", req, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Update calls PUT /v1/sessions/{id}.
func (c *Client) Update(ctx context.Context, id string, req domain.UpdateSessionRequest) (*domain.Session, error) {
	var out sessionResponse
	if err := c.do(ctx, "update", id, http.MethodPut, "/v1/sessions/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Delete calls DELETE /v1/sessions/{id}.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, "delete", id, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// DeleteAll calls DELETE /v1/sessions.
func (c *Client) DeleteAll(ctx context.Context) (int, error) {
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := c.do(ctx, "delete_all", "", http.MethodDelete, "/v1/sessions", nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// Export calls GET /v1/sessions/{id}/export and returns the transcript.
func (c *Client) Export(ctx context.Context, id, format string) ([]byte, error) {
	path := "/v1/sessions/" + url.PathEscape(id) + "/export?format=" + url.QueryEscape(format)
	resp, err := c.send(ctx, "export", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("export", id, resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, op, id, method, path string, in, out interface{}) error {
	resp, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return responseError(op, id, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path string, in interface{}) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(c.header, c.userID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.PersistenceError{Op: op, Err: err}
	}
	return resp, nil
}

// responseError maps an error status back onto the domain taxonomy.
func responseError(op, id string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp ErrorResponse
	if json.Unmarshal(respBody, &errResp) != nil || errResp.Error == "" {
		errResp.Error = strings.TrimSpace(string(respBody))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		reason := errResp.Reason
		if reason == "" {
			reason = errResp.Error
		}
		return &domain.ValidationError{Field: errResp.Field, Reason: reason}
	case http.StatusNotFound:
		return &domain.NotFoundError{Resource: "session", ID: id}
	case http.StatusBadGateway:
		return &domain.UpstreamStreamError{Op: op, Message: errResp.Error}
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("session api: %s", errResp.Error)}
	default:
		return fmt.Errorf("session api error (status %d): %s", resp.StatusCode, errResp.Error)
	}
}
