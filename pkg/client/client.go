// Package client provides the course-discovery API client with retry,
// backoff and page traversal.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for discovery client operations.
var (
	discoveryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_requests_total",
		Help: "Total discovery requests by endpoint and status",
	}, []string{"endpoint", "status"})

	discoveryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discovery_request_duration_seconds",
		Help:    "Discovery request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	}, []string{"endpoint"})

	discoveryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_errors_total",
		Help: "Total discovery errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of discovery call failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (connection, timeout, reset).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassStatus represents responses with status >= 400.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassDecode represents response bodies that are not valid JSON pages.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassCancelled represents a cancelled or expired caller context.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// Client is the discovery service client.
type Client struct {
	http   HTTPClient
	config Config
	logger zerolog.Logger

	// sleep blocks for the backoff duration; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// MaxRetriesLimit bounds Config.MaxRetries.
const MaxRetriesLimit = 32

// Config holds the client configuration.
type Config struct {
	// HTTP is the authenticated HTTP collaborator (REQUIRED).
	HTTP HTTPClient

	// Retry
	MaxRetries    int           // retries after the first attempt, per search page
	BackoffFactor time.Duration // sleep before retry k is BackoffFactor * 2^(k-1)

	// HTTPTimeout bounds a single request.
	HTTPTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig(httpClient HTTPClient) Config {
	return Config{
		HTTP:          httpClient,
		MaxRetries:    4,
		BackoffFactor: 2 * time.Second,
		HTTPTimeout:   15 * time.Second,
	}
}

// New creates a new discovery client.
func New(cfg Config) (*Client, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("http client is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.MaxRetries > MaxRetriesLimit {
		return nil, fmt.Errorf("max_retries must be <= %d (got %d)", MaxRetriesLimit, cfg.MaxRetries)
	}

	if cfg.BackoffFactor < 0 {
		return nil, fmt.Errorf("backoff_factor must be >= 0 (got %s)", cfg.BackoffFactor)
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("http_timeout must be > 0 (got %s)", cfg.HTTPTimeout)
	}

	return &Client{
		http:   cfg.HTTP,
		config: cfg,
		logger: log.With().Str("component", "discovery-client").Logger(),
		sleep:  sleepContext,
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// classifyError categorizes a failed request for metrics and retry decisions.
// A per-request timeout is a network error; only the caller's own context
// being done, or a request that cannot be admitted before it ends, counts as
// cancellation.
func classifyError(ctx context.Context, err error) ErrorClass {
	if errors.Is(err, ErrRequestNotSent) {
		return ErrorClassCancelled
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ErrorClassCancelled
	}
	return ErrorClassNetwork
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
