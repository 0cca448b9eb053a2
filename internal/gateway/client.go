package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"classfeed/internal/util"
)

// TokenSource yields the current session token for outbound requests.
// An empty string means no session; the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Client is the single outbound channel to the classroom service.
// It attaches the service API key to every request and the bearer token when
// one exists; no other package constructs authorization headers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	tokens         TokenSource
	onUnauthorized func()
}

// New constructs a service client. The unauthorized hook and token source are
// wired afterwards by the session layer.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetTokenSource wires the provider of the current bearer token.
func (c *Client) SetTokenSource(src TokenSource) {
	c.tokens = src
}

// SetUnauthorizedHook registers the callback fired when an authenticated
// request comes back 401. It runs on its own goroutine so session teardown
// never blocks the calling request.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

// envelope is the service's fixed response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Request-Id", util.NewID())

	authenticated := false
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.classify(resp, path, authenticated)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: "undecodable response body"}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "service reported failure"
		}
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: "unexpected payload shape: " + err.Error()}
	}
	return nil
}

// classify maps a non-2xx response onto the error taxonomy. The unauthorized
// hook fires only when the failed request actually carried a bearer token,
// and never for /signin: a 401 there means bad credentials, not a dead
// session, even when a previous session's token rode along.
func (c *Client) classify(resp *http.Response, path string, authenticated bool) error {
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	msg := env.Message
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if authenticated && path != "/signin" && c.onUnauthorized != nil {
			slog.Warn("session rejected by service", "path", path)
			go c.onUnauthorized()
		}
		return &APIError{Kind: KindAuth, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusForbidden:
		return &APIError{Kind: KindForbidden, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 500:
		return &APIError{Kind: KindServer, Status: resp.StatusCode, Message: msg}
	default:
		return &APIError{Kind: KindValidation, Status: resp.StatusCode, Message: msg}
	}
}
