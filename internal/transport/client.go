// Package transport is the outbound HTTP client shared by the listing fetcher and the detail extractor.
// Every request carries a fresh random user-agent, waits on a shared rate limiter,
// and retries transient failures with backoff.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/retry"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20

	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// ErrBodyTooLarge is returned when a response exceeds the configured body limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt (429 and 5xx).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RequestObserver receives one call per completed attempt. status is the HTTP code or "error".
type RequestObserver interface {
	ObserveRequest(status string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	Timeout           time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

// Client performs GET requests with per-request user-agents, throttling and retries.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	retry    retry.Config
	maxBody  int64
	log      logger.Logger
	observer RequestObserver
	newAgent func() string
}

// Option configures a Client.
type Option func(*Client)

// WithObserver attaches a RequestObserver.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithUserAgent sends ua on every request instead of a random identifier.
// An empty ua keeps the random default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.newAgent = func() string { return ua }
		}
	}
}

// NewClient creates a Client. A zero RequestsPerSecond disables throttling.
func NewClient(cfg Config, log logger.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		limiter: limiter,
		retry: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff,
			MaxDelay:     cfg.MaxBackoff,
		},
		maxBody:  cfg.MaxBodyBytes,
		log:      log,
		newAgent: randomUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.Debug("Retrying outbound request",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	return c
}

// WithMaxAttempts returns a client that shares c's connections, rate limiter and
// observer but makes at most n attempts per request.
func (c *Client) WithMaxAttempts(n int) *Client {
	clone := *c
	clone.retry.MaxAttempts = max(n, 1)
	return &clone
}

// Get fetches rawURL. Non-2xx responses are returned as *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	var resp *Response
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		r, err := c.do(ctx, rawURL)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.newAgent())

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = res.Body.Close() }()
	c.observe(strconv.Itoa(res.StatusCode), start)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, c.maxBody))
		return nil, &StatusError{URL: rawURL, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("GET %s: %w", rawURL, ErrBodyTooLarge)
	}

	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(status, time.Since(start))
	}
}

// randomUserAgent returns a fresh random identifier per request.
func randomUserAgent() string {
	return uuid.NewString()
}
