package portalx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Navigator is the adapter that performs the redirect side effect when the
// server invalidates the session. The client only decides that the session
// is invalid; the embedding application decides what navigating means.
type Navigator interface {
	CurrentPath() string
	NavigateToLogin()
}

type noopNavigator struct{}

func (noopNavigator) CurrentPath() string { return "" }
func (noopNavigator) NavigateToLogin()    {}

// Client talks to the billing portal. Every request carries the session
// bearer token when one exists, plus any ambient cookies collected by the
// jar, so both authentication schemes work. Requests are bounded by the
// configured timeout and are never retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
	store      *SessionStore
	tokens     oauth2.TokenSource
	navigator  Navigator
	logger     *zap.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The configured request
// timeout is still applied.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNavigator installs the redirect adapter invoked after a 401.
func WithNavigator(nav Navigator) ClientOption {
	return func(c *Client) {
		c.navigator = nav
	}
}

// WithClientLogger sets the logger for request failures.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a portal client bound to the given session store.
func NewClient(cfg Config, store *SessionStore, opts ...ClientOption) (*Client, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	client := &Client{
		cfg:       cfg,
		store:     store,
		tokens:    store,
		navigator: noopNavigator{},
		logger:    zap.NewNop(),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient.Timeout == 0 {
		client.httpClient.Timeout = cfg.RequestTimeout
	}
	if client.httpClient.Jar == nil {
		client.httpClient.Jar = jar
	}
	return client, nil
}

// Authenticated reports whether a bearer token is currently available.
func (c *Client) Authenticated() bool {
	_, err := c.tokens.Token()
	return err == nil
}

// Get issues a GET against the portal and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body and returns the raw response body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, newError(ErrCodeInternal, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, newError(ErrCodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok, err := c.tokens.Token(); err == nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}
	// No token: the request goes out unauthenticated and the server decides.

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("portal request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, newError(ErrCodeConnection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrCodeConnection, err)
	}

	if isSessionInvalid(resp.StatusCode) {
		c.invalidateSession()
		return nil, newError(ErrCodeUnauthorized, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractErrorMessage(data)
		c.logger.Warn("portal returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return nil, newServerError(ErrCodeBadResponse, message, fmt.Errorf("status %d", resp.StatusCode))
	}
	return data, nil
}

// isSessionInvalid is the decision half of the 401 handling: it classifies a
// response status as "this session is no longer valid". The side effects
// live in invalidateSession.
func isSessionInvalid(status int) bool {
	return status == http.StatusUnauthorized
}

// invalidateSession clears the session and redirects to the login surface.
// The clear, including its notification, completes before any navigation, so
// subscribers observe the logout first. Navigation is skipped when the
// application is already at the login surface.
func (c *Client) invalidateSession() {
	c.store.Clear()
	if c.navigator.CurrentPath() != c.cfg.LoginPath {
		c.navigator.NavigateToLogin()
	}
}

// extractErrorMessage pulls a human-readable message out of an error payload:
// the structured error field wins, then the structured message field. An
// empty result means the caller falls back to its generic message.
func extractErrorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
