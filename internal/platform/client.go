// Package platform is the REST client for the troubleshooting platform. The
// sync core consumes GetEvents, SendChatMessage, and GetSessionStatus; the
// remaining endpoints feed peripheral console views and are passed through
// without interpretation.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/triageops/console/internal/domain"
)

// Client talks to the platform REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. timeout bounds every request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// GetEvents fetches the full ordered event history for a session. Used by
// the reconnection controller to replay events missed during a gap.
func (c *Client) GetEvents(ctx context.Context, sessionID string) ([]domain.TaskEvent, error) {
	var events []domain.TaskEvent
	err := c.get(ctx, "/api/sessions/"+url.PathEscape(sessionID)+"/events", &events)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.GetEvents: %w", err)
	}
	return events, nil
}

// SendChatMessage submits an operator chat message. The canonical stored
// message is returned; the assistant's reply arrives over the session
// stream, not in this response.
func (c *Client) SendChatMessage(ctx context.Context, sessionID, content string) (*domain.ChatMessage, error) {
	body := map[string]string{"content": content}
	var msg domain.ChatMessage
	err := c.post(ctx, "/api/sessions/"+url.PathEscape(sessionID)+"/chat", body, &msg)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.SendChatMessage: %w", err)
	}
	return &msg, nil
}

// GetSessionStatus fetches the platform's phase/confidence summary.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	var status domain.SessionStatus
	err := c.get(ctx, "/api/sessions/"+url.PathEscape(sessionID)+"/status", &status)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.GetSessionStatus: %w", err)
	}
	return &status, nil
}

// ListFindings fetches the structured findings for a session.
func (c *Client) ListFindings(ctx context.Context, sessionID string) ([]domain.Finding, error) {
	var findings []domain.Finding
	err := c.get(ctx, "/api/sessions/"+url.PathEscape(sessionID)+"/findings", &findings)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.ListFindings: %w", err)
	}
	return findings, nil
}

// GetProposedFix fetches the remediation proposal for a session, opaque to
// the console.
func (c *Client) GetProposedFix(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var fix json.RawMessage
	err := c.get(ctx, "/api/sessions/"+url.PathEscape(sessionID)+"/fix", &fix)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.GetProposedFix: %w", err)
	}
	return fix, nil
}

// RunPromQLQuery executes a metrics query through the platform and returns
// the raw result for the dashboard views.
func (c *Client) RunPromQLQuery(ctx context.Context, query string) (json.RawMessage, error) {
	body := map[string]string{"query": query}
	var result json.RawMessage
	err := c.post(ctx, "/api/query/promql", body, &result)
	if err != nil {
		return nil, fmt.Errorf("platform.Client.RunPromQLQuery: %w", err)
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded amount of the body for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
