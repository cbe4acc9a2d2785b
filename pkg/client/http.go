package client

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

	"github.com/Sternrassler/course-discovery-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HTTPClient is the token-bearing HTTP collaborator the discovery client talks through.
type HTTPClient interface {
	Post(ctx context.Context, path string, body any, params url.Values, timeout time.Duration) (*Response, error)
	Get(ctx context.Context, path string, params url.Values, timeout time.Duration) (*Response, error)
}

// Throttle gates requests on server-signalled throttling shared between workers.
// Implemented by ratelimit.Tracker.
type Throttle interface {
	Wait(ctx context.Context) error
	Observe(ctx context.Context, statusCode int, header http.Header) error
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Page decodes the body as a discovery page.
func (r *Response) Page() (*pagination.Page, error) {
	return pagination.DecodePage(r.Body)
}

// TransportConfig holds the configuration of the default HTTPClient implementation.
type TransportConfig struct {
	// BaseURL of the discovery service, e.g. "https://discovery.example.com".
	BaseURL string

	// HTTPClient performs the requests. Usually an oauth2 client so every
	// request carries a bearer token.
	HTTPClient *http.Client

	// UserAgent header sent with every request.
	UserAgent string

	// RequestsPerSecond paces outgoing requests. 0 disables pacing.
	RequestsPerSecond float64

	// Throttle is optional shared throttle state.
	Throttle Throttle
}

// Transport is the default HTTPClient.
type Transport struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	throttle   Throttle
	logger     zerolog.Logger
}

// NewTransport creates a Transport.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	t := &Transport{
		baseURL:    base,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		throttle:   cfg.Throttle,
		logger:     log.With().Str("component", "discovery-transport").Logger(),
	}

	if cfg.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return t, nil
}

// Post sends body as JSON.
func (t *Transport) Post(ctx context.Context, path string, body any, params url.Values, timeout time.Duration) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return t.do(ctx, http.MethodPost, path, payload, params, timeout)
}

// Get performs a GET request.
func (t *Transport) Get(ctx context.Context, path string, params url.Values, timeout time.Duration) (*Response, error) {
	return t.do(ctx, http.MethodGet, path, nil, params, timeout)
}

func (t *Transport) do(ctx context.Context, method, path string, payload []byte, params url.Values, timeout time.Duration) (*Response, error) {
	if t.throttle != nil {
		if err := t.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: throttle wait: %w", ErrRequestNotSent, err)
		}
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter wait: %w", ErrRequestNotSent, err)
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.resolve(path, params), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	elapsed := time.Since(start)

	if t.throttle != nil {
		if err := t.throttle.Observe(ctx, resp.StatusCode, resp.Header); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to record throttle state")
		}
	}

	t.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("Discovery request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
		Elapsed:    elapsed,
	}, nil
}

// resolve joins the endpoint path onto the base URL and encodes params.
func (t *Transport) resolve(path string, params url.Values) string {
	u := *t.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = params.Encode()
	return u.String()
}
