package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when every attempt for a page failed at the transport level.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the context is cancelled while backing off.
	ErrCancelled = errors.New("cancelled during backoff")

	// ErrRequestNotSent is returned when a request could not be admitted by the
	// throttle or rate limiter before the caller's context ends.
	ErrRequestNotSent = errors.New("request not sent before context end")

	// ErrUnknownEndpoint is returned for an EndpointKind the client does not know.
	ErrUnknownEndpoint = errors.New("unknown endpoint kind")
)

// DiscoveryError carries the endpoint and classification of a failed discovery call.
type DiscoveryError struct {
	Endpoint   string
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("discovery %s error on %s (status %d): %v",
			e.Class, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("discovery %s error on %s: %v", e.Class, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// shouldRetry reports whether a failure of this class is retried on the search path.
// List pages are never retried.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassNetwork, ErrorClassStatus:
		return true
	default:
		// decode errors and cancellation are terminal
		return false
	}
}
