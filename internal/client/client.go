// Package client talks to a running echocloset server for the CLI.
package client

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

	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/store"
)

const httpTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server said %d: %s", e.Status, e.Message)
}

// Client talks to the echocloset server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL, e.g. http://127.0.0.1:37778.
func New(serverURL string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/api/health", nil, &out) == nil
}

// EchoResult is the reply to Echo.
type EchoResult struct {
	Entry   store.Entry `json:"entry"`
	Message string      `json:"message"`
}

// Echo records a journal line.
func (c *Client) Echo(ctx context.Context, text string) (*EchoResult, error) {
	var out EchoResult
	if err := c.do(ctx, http.MethodPost, "/api/echoes", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hoard is a pending hoard and its cooldown deadline.
type Hoard struct {
	Entry    store.Entry `json:"entry"`
	Deadline time.Time   `json:"deadline"`
}

// HoardResult is the reply to CreateHoard.
type HoardResult struct {
	Hoard   Hoard  `json:"hoard"`
	Message string `json:"message"`
}

// CreateHoard records something the owner wants to buy. A nil cooldown lets
// the server pick its default.
func (c *Client) CreateHoard(ctx context.Context, description string, cooldownDays *int, ownerID string) (*HoardResult, error) {
	req := map[string]any{"description": description, "owner_id": ownerID}
	if cooldownDays != nil {
		req["cooldown_days"] = *cooldownDays
	}
	var out HoardResult
	if err := c.do(ctx, http.MethodPost, "/api/hoards", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hoards lists ownerID's pending hoards.
func (c *Client) Hoards(ctx context.Context, ownerID string) ([]Hoard, error) {
	var out struct {
		Hoards []Hoard `json:"hoards"`
	}
	path := "/api/hoards?" + url.Values{"owner_id": {ownerID}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Hoards, nil
}

// Recent lists the last count entries, optionally only from the last days.
func (c *Client) Recent(ctx context.Context, count, days int) ([]store.Entry, error) {
	q := url.Values{"count": {strconv.Itoa(count)}}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out struct {
		Entries []store.Entry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/entries?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Analyze fetches the emotion histogram for the last days.
func (c *Client) Analyze(ctx context.Context, days int) (*engine.Analysis, error) {
	var out engine.Analysis
	path := "/api/analyze?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WipeTicket is the server's challenge for a wipe.
type WipeTicket struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Entries   int    `json:"entries"`
	Message   string `json:"message"`
}

// RequestWipe asks for a wipe confirmation token.
func (c *Client) RequestWipe(ctx context.Context) (*WipeTicket, error) {
	var out WipeTicket
	if err := c.do(ctx, http.MethodPost, "/api/wipe", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WipeResult is the reply to ConfirmWipe.
type WipeResult struct {
	Wiped   int    `json:"wiped"`
	Message string `json:"message"`
}

// ConfirmWipe redeems token and deletes everything.
func (c *Client) ConfirmWipe(ctx context.Context, token string) (*WipeResult, error) {
	var out WipeResult
	if err := c.do(ctx, http.MethodPost, "/api/wipe/confirm", map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan triggers an expiry scan now.
func (c *Client) Scan(ctx context.Context) (*engine.ScanResult, error) {
	var out engine.ScanResult
	if err := c.do(ctx, http.MethodPost, "/api/scan", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GhostState is the reply to ToggleGhost.
type GhostState struct {
	Ghost   bool   `json:"ghost"`
	Window  string `json:"window"`
	Message string `json:"message"`
}

// ToggleGhost flips ghost mode on the server.
func (c *Client) ToggleGhost(ctx context.Context) (*GhostState, error) {
	var out GhostState
	if err := c.do(ctx, http.MethodPost, "/api/ghost", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}
