package client

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/course-discovery-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	discoveryRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_retries_total",
		Help: "Total number of retry attempts by endpoint",
	}, []string{"endpoint"})

	discoveryRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discovery_retry_backoff_seconds",
		Help:    "Backoff duration before retries by endpoint",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	}, []string{"endpoint"})

	discoveryRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_retry_exhausted_total",
		Help: "Total number of pages that exhausted every attempt by endpoint",
	}, []string{"endpoint"})
)

// calculateBackoff returns the sleep before retrying after the given failed attempt.
// The result saturates at the largest Duration instead of overflowing.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	factor := c.config.BackoffFactor
	if factor <= 0 || attempt < 1 {
		return 0
	}

	shift := attempt - 1
	if shift >= 63 || factor > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return factor << shift
}

// retrieveSearchPage POSTs one search page, retrying transport failures and
// status >= 400 up to MaxRetries times.
//
// After the last attempt a transport error is returned. A bad status is not:
// the last body is decoded as-is, so an empty object ends the traversal with
// no further results.
func (c *Client) retrieveSearchPage(ctx context.Context, filter ContentFilter, page int, params url.Values) (*pagination.Page, error) {
	c.logger.Info().Int("page", page).Msg("Retrieving results from course-discovery")

	var (
		resp    *Response
		lastErr error
	)

	for attempt := 1; ; attempt++ {
		var class ErrorClass
		resp, lastErr = c.http.Post(ctx, SearchAllEndpoint, filter, params, c.config.HTTPTimeout)

		if lastErr != nil {
			class = classifyError(ctx, lastErr)
			discoveryErrorsTotal.WithLabelValues(string(class)).Inc()
			discoveryRequestsTotal.WithLabelValues(SearchAllEndpoint, string(class)).Inc()
			c.logger.Error().
				Err(lastErr).
				Int("page", page).
				Int("attempt", attempt).
				Msg("Error while retrieving results from course-discovery")
		} else {
			discoveryRequestsTotal.WithLabelValues(SearchAllEndpoint, strconv.Itoa(resp.StatusCode)).Inc()
			discoveryRequestDuration.WithLabelValues(SearchAllEndpoint).Observe(resp.Elapsed.Seconds())
			c.logger.Info().
				Int("page", page).
				Int("status", resp.StatusCode).
				Float64("elapsed_seconds", resp.Elapsed.Seconds()).
				Msg("Retrieved results from course-discovery")

			if resp.StatusCode < 400 {
				break
			}
			class = ErrorClassStatus
			discoveryErrorsTotal.WithLabelValues(string(class)).Inc()
		}

		if !shouldRetry(class) {
			return nil, &DiscoveryError{Endpoint: SearchAllEndpoint, Class: class, Err: lastErr}
		}

		if attempt > c.config.MaxRetries {
			discoveryRetryExhaustedTotal.WithLabelValues(SearchAllEndpoint).Inc()
			c.logger.Warn().
				Int("page", page).
				Int("attempts", attempt).
				Str("error_class", string(class)).
				Msg("Retry attempts exhausted")

			if lastErr != nil {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt,
					&DiscoveryError{Endpoint: SearchAllEndpoint, Class: class, Err: lastErr})
			}
			break
		}

		backoff := c.calculateBackoff(attempt)
		discoveryRetriesTotal.WithLabelValues(SearchAllEndpoint).Inc()
		discoveryRetryBackoffSeconds.WithLabelValues(SearchAllEndpoint).Observe(backoff.Seconds())
		c.logger.Warn().
			Str("endpoint", SearchAllEndpoint).
			Int("attempt", attempt).
			Dur("sleep", backoff).
			Msg("Failed request detected, backing off before retrying")

		if err := c.sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}

	result, err := resp.Page()
	if err != nil {
		discoveryErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &DiscoveryError{
			Endpoint:   SearchAllEndpoint,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Err:        err,
		}
	}

	return result, nil
}
