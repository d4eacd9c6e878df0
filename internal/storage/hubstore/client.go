// Package hubstore talks to the remote collection/frontier storage
// service over HTTP. It implements both backend interfaces against the
// hosted API: newline-delimited JSON bodies, basic-auth with the API key,
// and no transactional guarantees whatsoever.
package hubstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/frontier"
)

// Config identifies the remote project and endpoint.
type Config struct {
	Endpoint  string
	APIKey    string
	ProjectID string
	Timeout   time.Duration
}

// Client is the shared HTTP session used by the queue and state
// backends.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds the session. The endpoint must be reachable when the
// first request goes out; construction itself does no I/O.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("hubstore endpoint is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("hubstore project id is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// do sends one request with auth applied. Transport failures come back
// tagged transient so the retry layer can tell them from API rejections.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	u := c.cfg.Endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, frontier.Fatal("build request", err)
	}
	if c.cfg.APIKey != "" {
		req.SetBasicAuth(c.cfg.APIKey, "")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-jsonlines")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, frontier.Transient(fmt.Sprintf("%s %s", method, path), err)
	}
	return resp, nil
}

// drainClose reads out and closes a response body so the connection can
// be reused.
func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
