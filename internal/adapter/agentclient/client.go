// Package agentclient provides the HTTP client for the conversational agent
// service.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// Client is an HTTP client for the agent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new agent client. Streaming responses are unbounded,
// so the underlying client has no overall timeout; callers bound requests
// through the context and the stream idle timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Stream opens POST /chat/stream and returns the event-stream body. The
// caller owns the body and must close it.
func (c *Client) Stream(ctx context.Context, threadID, message string) (io.ReadCloser, error) {
	httpReq, err := c.newChatRequest(ctx, "/chat/stream", threadID, message)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamStreamError{Op: "stream", Message: "failed to reach agent", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("stream", resp)
	}
	return resp.Body, nil
}

// Chat calls the single-shot POST /chat endpoint.
func (c *Client) Chat(ctx context.Context, threadID, message string) (string, error) {
	httpReq, err := c.newChatRequest(ctx, "/chat", threadID, message)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.UpstreamStreamError{Op: "chat", Message: "failed to reach agent", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("chat", resp)
	}

	var out domain.AgentChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.UpstreamStreamError{Op: "chat", Message: "invalid response body", Err: err}
	}
	return out.Response, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &domain.UpstreamStreamError{Op: "health", Message: "failed to reach agent", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &domain.UpstreamStreamError{Op: "health", Message: fmt.Sprintf("agent returned status %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) newChatRequest(ctx context.Context, path, threadID, message string) (*http.Request, error) {
	body, err := json.Marshal(domain.AgentChatRequest{ThreadID: threadID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func statusError(op string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.UpstreamStreamError{
		Op:      op,
		Message: fmt.Sprintf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
	}
}
