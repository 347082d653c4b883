// Package client talks to the RunCoach assistant service over HTTP.
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
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/profile"
)

var ErrUnauthorized = errors.New("assistant service rejected the credentials")

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant service returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the service rooted at baseURL, e.g.
// "http://localhost:8000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Replies involving tool calls can take a while.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("module", "client"))
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request done",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

type chatRequest struct {
	Message     string           `json:"message"`
	UserProfile *profile.Profile `json:"user_profile"`
}

type chatResponse struct {
	Response *string `json:"response"`
	Success  bool    `json:"success"`
}

// Send posts one user message and returns the raw reply text.
func (c *Client) Send(ctx context.Context, message string, p *profile.Profile) (string, error) {
	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", chatRequest{Message: message, UserProfile: p}, &resp); err != nil {
		return "", err
	}
	if resp.Response == nil {
		return "", fmt.Errorf("chat response has no response field")
	}
	if !resp.Success {
		return "", fmt.Errorf("assistant reported failure: %s", *resp.Response)
	}
	return *resp.Response, nil
}

// Reset clears the service-side conversation memory.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, nil)
}

// LoadProfile returns the stored profile, or nil when none has been saved.
func (c *Client) LoadProfile(ctx context.Context) (*profile.Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &raw); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	p := profile.Default()
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

func (c *Client) SaveProfile(ctx context.Context, p profile.Profile) error {
	return c.do(ctx, http.MethodPost, "/profile", p, nil)
}

func (c *Client) QuickQuestions(ctx context.Context) ([]string, error) {
	var resp struct {
		Questions []string `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/quick-questions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

type SearchResult struct {
	Results string   `json:"results"`
	Sources []string `json:"sources"`
}

func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var res SearchResult
	path := "/search?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Token asks the service for a bearer token for clientID.
func (c *Client) Token(ctx context.Context, clientID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/token", map[string]string{"client_id": clientID}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
