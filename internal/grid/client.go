package grid

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

	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

// DefaultBaseURL is the Automate REST API root
const DefaultBaseURL = "https://api.browserstack.com/automate"

// DefaultTimeout bounds a single request to the grid
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 512

// Client talks to the grid's session REST API
type Client struct {
	baseURL    string
	creds      models.Credentials
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// Option customises a Client
type Option func(*Client)

// WithBaseURL points the client at another grid (or the local simulator)
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLimiter throttles outbound calls per account
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a grid client authenticating with creds
func NewClient(creds models.Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetSession handles GET {base}/sessions/{id}.json
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.SessionDetails, error) {
	var env models.SessionEnvelope
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID), nil, &env); err != nil {
		return nil, err
	}
	return &env.AutomationSession, nil
}

// SetSessionStatus handles PUT {base}/sessions/{id}.json
func (c *Client) SetSessionStatus(ctx context.Context, update models.StatusUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}
	return c.do(ctx, http.MethodPut, sessionPath(update.SessionID), body, nil)
}

// ListBuildSessions handles GET {base}/builds/{id}/sessions.json
func (c *Client) ListBuildSessions(ctx context.Context, buildID string) ([]models.SessionDetails, error) {
	var envs []models.SessionEnvelope
	path := "/builds/" + url.PathEscape(buildID) + "/sessions.json"
	if err := c.do(ctx, http.MethodGet, path, nil, &envs); err != nil {
		return nil, err
	}

	sessions := make([]models.SessionDetails, 0, len(envs))
	for _, env := range envs {
		sessions = append(sessions, env.AutomationSession)
	}
	return sessions, nil
}

func sessionPath(sessionID string) string {
	return "/sessions/" + url.PathEscape(sessionID) + ".json"
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if !c.creds.Configured() {
		return ErrMissingCredentials
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.creds.Username); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.AccessKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", method, path, ErrSessionNotFound)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
