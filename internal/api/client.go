// Package api provides a client for the finance tracker REST backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:5000"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "fintrack-tui/1.0"
)

var (
	// ErrUnauthorized indicates the bearer token is missing, expired or invalid.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound indicates the endpoint does not exist on this backend.
	ErrNotFound = errors.New("api: not found")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s returned status %d", e.Path, e.Code)
}

// Options tune a Client.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs authenticated JSON requests against the backend.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for baseURL. An empty token sends requests
// without an Authorization header.
func NewClient(baseURL, token string, opts Options) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
	}
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HasToken reports whether requests carry a bearer credential.
func (c *Client) HasToken() bool { return c.token != "" }

// GetRaw performs a GET request and returns the response body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	//nolint:gosec // URL is built from the configured backend base URL
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Path: path, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}
	return body, nil
}
