// Package client provides a REST client for the fieldlog server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

// RequestIDHeader carries a per-request id the server echoes into its logs.
const RequestIDHeader = "X-Request-Id"

// Client talks to the fieldlog HTTP API. It implements the capture
// boundaries (Directory, InteractionSink, Extractor).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new REST client.
// If baseURL is empty, uses FIELDLOG_SERVER_URL env var or defaults to localhost:8000/api.
// Timeout can be configured via FIELDLOG_CLIENT_TIMEOUT env var (default 2m, extraction calls an LLM three times).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("FIELDLOG_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000/api"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("FIELDLOG_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response. Detail holds the server's "detail" field
// when the body carried one.
type APIError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %s - %s", e.Status, e.Detail)
}

// ErrorDetail returns the user-facing message reported by the server.
func (e *APIError) ErrorDetail() string {
	return e.Detail
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			apiErr.Detail = s
		} else {
			apiErr.Detail = string(payload.Detail)
		}
		return apiErr
	}
	apiErr.Detail = strings.TrimSpace(string(body))
	return apiErr
}

// do sends a JSON request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// HEALTH & STATS
// =============================================================================

// Health is the API root response.
type Health struct {
	Message string `json:"message"`
	Storage string `json:"storage"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stats returns the server's in-memory runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var s metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// HCP OPERATIONS
// =============================================================================

// SearchHCPs returns HCPs whose name contains query.
func (c *Client) SearchHCPs(ctx context.Context, query string) ([]models.HCP, error) {
	var hcps []models.HCP
	if err := c.do(ctx, http.MethodGet, "/hcps/search?q="+url.QueryEscape(query), nil, &hcps); err != nil {
		return nil, err
	}
	return hcps, nil
}

// GetHCP fetches one HCP by id.
func (c *Client) GetHCP(ctx context.Context, id string) (*models.HCP, error) {
	var h models.HCP
	if err := c.do(ctx, http.MethodGet, "/hcps/"+url.PathEscape(id), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHCP creates an HCP record.
func (c *Client) CreateHCP(ctx context.Context, input models.HCPInput) (*models.HCP, error) {
	var h models.HCP
	if err := c.do(ctx, http.MethodPost, "/hcps", input, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// =============================================================================
// INTERACTION OPERATIONS
// =============================================================================

// CreateInteraction submits a normalized interaction.
func (c *Client) CreateInteraction(ctx context.Context, i models.Interaction) (*models.Interaction, error) {
	var out models.Interaction
	if err := c.do(ctx, http.MethodPost, "/interactions", i, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInteraction fetches one interaction by id.
func (c *Client) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	var out models.Interaction
	if err := c.do(ctx, http.MethodGet, "/interactions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInteraction applies a scalar patch to an interaction.
func (c *Client) UpdateInteraction(ctx context.Context, id string, patch models.InteractionPatch) (*models.Interaction, error) {
	var out models.Interaction
	if err := c.do(ctx, http.MethodPatch, "/interactions/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// AGENT OPERATIONS
// =============================================================================

// Converse runs one conversational turn on the server.
func (c *Client) Converse(ctx context.Context, req models.ConversationRequest) (*models.ConversationResult, error) {
	var out models.ConversationResult
	if err := c.do(ctx, http.MethodPost, "/agent/conversational", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditViaAgent asks the server to edit an interaction from a natural-language request.
func (c *Client) EditViaAgent(ctx context.Context, id string, req models.EditRequest) (*models.EditResult, error) {
	var out models.EditResult
	if err := c.do(ctx, http.MethodPost, "/agent/edit/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// SubscribeEvents streams extraction events until ctx is cancelled or the
// connection drops. Return an error from onEvent to stop.
func (c *Client) SubscribeEvents(ctx context.Context, onEvent func(notify.Event) error) error {
	wsEndpoint := c.baseURL + "/events"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set(RequestIDHeader, uuid.NewString())

	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var ev notify.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
}
