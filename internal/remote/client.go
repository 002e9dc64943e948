// Package remote resolves launch arguments through an HTTP resolution
// service, such as one started with `launchargs serve`.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abramin/launchargs/internal/launch"
	"github.com/abramin/launchargs/internal/model"
)

// DefaultTimeout bounds one resolution round trip.
const DefaultTimeout = 30 * time.Second

// Client is a launch.Resolver backed by a remote service.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

var _ launch.Resolver = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the service at endpoint. A zero timeout uses
// DefaultTimeout.
func New(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("remote endpoint is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve posts req to the service. A response without a body is reported
// as launch.ErrResolutionUnavailable. Requests are not retried.
func (c *Client) Resolve(ctx context.Context, req *model.Request) (*model.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/resolve", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("resolution request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("resolution round trip",
		zap.String("endpoint", c.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned status %d: %s",
			launch.ErrResolutionUnavailable, resp.StatusCode, errorMessage(resp.Body))
	}

	var result model.Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Body == nil {
		return nil, launch.ErrResolutionUnavailable
	}
	return &result, nil
}

// errorMessage extracts the {"error": ...} message of a failed call, or the
// raw body when it is not JSON.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
