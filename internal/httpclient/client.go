// Package httpclient provides the authenticated fetch primitive used
// for both directory listings and file bodies.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// Config mirrors the transport knobs the tool exposes. The zero Timeout
// is deliberate: a request that never completes stalls its concurrency
// slot rather than being cancelled mid-flight.
type Config struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	IdleConnTimeout       time.Duration
	ExpectContinueTimeout time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	InsecureSkipVerify    bool
	EnableHTTP2           bool
	UserAgent             string

	// Username and Password are sent as HTTP basic auth on every request.
	Username string
	Password string
}

// DefaultConfig returns transport settings tuned for many small
// concurrent requests against a single host.
func DefaultConfig() Config {
	return Config{
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		EnableHTTP2:           true,
		UserAgent:             "ragesync",
	}
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d error for '%s'", e.StatusCode, e.URL)
}

// Response is the subset of an HTTP response the sync engine consumes.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client wraps net/http.Client with the archive's authentication.
type Client struct {
	client *http.Client
	config Config
	logger zerolog.Logger
}

// New creates a client with a custom transport built from config.
func New(config Config, logger zerolog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	log := logger.With().Str("component", "HTTPClient").Logger()

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			log.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config: config,
		logger: log,
	}
}

// Fetch performs an authenticated GET and returns the status and body.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	req.SetBasicAuth(c.config.Username, c.config.Password)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}

	c.logger.Debug().
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Int("content_size", len(body)).
		Msg("Fetched")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// FetchOK is Fetch with the status check folded in: any non-2xx status
// becomes an *HTTPError.
func (c *Client) FetchOK(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp.Body, nil
}
