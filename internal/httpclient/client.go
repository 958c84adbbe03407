// Package httpclient provides the shared HTTP client used for feed polling
// and thumbnail fetching, with retry handling for flaky remote endpoints.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty.Client with retry logic and timeout handling
type Client struct {
	resty  *resty.Client
	logger *slog.Logger
}

// Config holds configuration for the HTTP client
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Proxy      string
	Debug      bool
	Logger     *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		UserAgent:  "hoist/1.0",
	}
}

// New creates an HTTP client with the given configuration
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.UserAgent == "" {
		config.UserAgent = "hoist/1.0"
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/atom+xml, application/xml, text/xml, */*")

	if config.Proxy != "" {
		restyClient.SetProxy(config.Proxy)
	}

	// Retry on network errors, 5xx server errors, and 429 rate limiting
	restyClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	client := &Client{
		resty:  restyClient,
		logger: config.Logger,
	}

	if config.Debug && config.Logger != nil {
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logger.Debug("http response",
				"status", r.StatusCode(),
				"url", r.Request.URL,
				"time", r.Time())
			return nil
		})
	}

	return client
}

// Get performs a GET request with context support
func (c *Client) Get(ctx context.Context, url string) (*resty.Response, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return resp, fmt.Errorf("HTTP error %d for %s", resp.StatusCode(), url)
	}

	return resp, nil
}

// SetHeader sets a default header for all requests
func (c *Client) SetHeader(key, value string) {
	c.resty.SetHeader(key, value)
}
