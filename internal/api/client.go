package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

// Error is the only failure shape the client surfaces: every non-2xx status,
// transport failure, and malformed success body is normalized into it so
// callers branch uniformly on Status and never see a raw transport error.
type Error struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// ErrTokenMissing is returned before any network I/O when an endpoint
// requires authentication and no token is available.
func errTokenMissing() *Error {
	return &Error{Message: "authentication token is missing", Status: http.StatusUnauthorized}
}

// TokenSource supplies the current bearer token, empty when unauthenticated.
type TokenSource func() string

// Client is the marketplace HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Token      TokenSource
	Cache      *Cache
	Log        *slog.Logger
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Timeout:    10 * time.Second,
		Cache:      NewCache(),
		Log:        slog.Default(),
	}
}

func (c *Client) token() string {
	if c.Token == nil {
		return ""
	}
	return c.Token()
}

// get issues a cached read. A hit for the tag returns the stored value
// without touching the network unless the target URL differs from the one
// the entry was stored under, in which case the entry is refreshed.
// Concurrent calls with the same tag but different URLs race last-writer-wins.
func (c *Client) get(ctx context.Context, tag, endpoint string, out any) error {
	url := c.url(endpoint)
	if c.Cache != nil {
		if cached, ok := c.Cache.Lookup(tag, url); ok {
			return decodeInto(cached, out)
		}
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, c.token())
	if err != nil {
		return err
	}
	if c.Cache != nil {
		c.Cache.Store(tag, url, raw)
	}
	return decodeInto(raw, out)
}

// getAuthed is get with a fail-fast token requirement.
func (c *Client) getAuthed(ctx context.Context, tag, endpoint string, out any) error {
	if c.token() == "" {
		return errTokenMissing()
	}
	return c.get(ctx, tag, endpoint, out)
}

// mutate issues a write and drops the listed cache tags on success so the
// next read refetches instead of serving a stale entry.
func (c *Client) mutate(ctx context.Context, method, endpoint string, body, out any, stale ...string) error {
	if c.token() == "" {
		return errTokenMissing()
	}
	raw, err := c.do(ctx, method, endpoint, body, c.token())
	if err != nil {
		return err
	}
	if c.Cache != nil {
		c.Cache.Invalidate(stale...)
	}
	return decodeInto(raw, out)
}

// noContentBody is synthesized for HTTP 204 responses.
const noContentBody = `{"success":true,"message":"Operation successful (No Content)"}`

// do is the narrow waist every request goes through. It returns the response
// body as raw JSON or an *Error; it never returns a raw transport error.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, token string) (json.RawMessage, error) {
	// Read-only fallback: the poller calls the client from a cron goroutine,
	// so do must not write shared fields.
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, &Error{Message: fmt.Sprintf("encode request body: %v", err), Status: http.StatusInternalServerError}
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		// Transport failures default to 500 so callers can still branch on Status.
		return nil, &Error{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage(noContentBody), nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if isJSONContentType(resp.Header.Get("Content-Type")) {
			if !json.Valid(data) {
				c.Log.Warn("invalid JSON in success response", "method", method, "endpoint", endpoint)
				return nil, &Error{Message: "invalid JSON in response", Status: http.StatusInternalServerError}
			}
			return json.RawMessage(data), nil
		}
		return wrapText(string(data)), nil
	}
	return nil, newStatusError(resp.StatusCode, data)
}

// newStatusError builds the normalized error for a non-2xx response: the body
// is JSON-parsed when possible and its message field extracted, otherwise the
// raw text is wrapped.
func newStatusError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if json.Valid(body) {
		e.Data = json.RawMessage(body)
		var probe struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &probe); err == nil && probe.Message != "" {
			e.Message = probe.Message
			return e
		}
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func wrapText(text string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"message": text})
	return json.RawMessage(b)
}

func isJSONContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func decodeInto(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err), Status: http.StatusInternalServerError}
	}
	return nil
}

func (c *Client) url(endpoint string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
