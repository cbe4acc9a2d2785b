package client

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		class    ErrorClass
		expected bool
	}{
		{name: "network error should retry", class: ErrorClassNetwork, expected: true},
		{name: "bad status should retry", class: ErrorClassStatus, expected: true},
		{name: "decode error should not retry", class: ErrorClassDecode, expected: false},
		{name: "cancellation should not retry", class: ErrorClassCancelled, expected: false},
		{name: "empty class should not retry", class: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.class); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.expected)
			}
		})
	}
}

func TestDiscoveryError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DiscoveryError
		expected string
	}{
		{
			name: "with status",
			err: &DiscoveryError{
				Endpoint:   CoursesEndpoint,
				StatusCode: 200,
				Class:      ErrorClassDecode,
				Err:        errors.New("invalid character '<'"),
			},
			expected: "discovery decode error on /api/v1/courses/ (status 200): invalid character '<'",
		},
		{
			name: "transport failure",
			err: &DiscoveryError{
				Endpoint: SearchAllEndpoint,
				Class:    ErrorClassNetwork,
				Err:      errors.New("connection reset"),
			},
			expected: "discovery network error on /api/v1/search/all/: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDiscoveryError_Unwrap(t *testing.T) {
	inner := chunkedEncodingError{}
	err := &DiscoveryError{Class: ErrorClassNetwork, Err: inner}

	var target chunkedEncodingError
	if !errors.As(err, &target) {
		t.Error("errors.As should find the wrapped transport error")
	}
}
