// Package ratelimit tracks server-signalled throttling of the discovery service.
// A 429 response with Retry-After puts every worker sharing the Redis instance
// into a cooldown until the server's deadline passes.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyCooldownUntil = "discovery:throttle:cooldown_until"
	RedisKeyLastUpdate    = "discovery:throttle:last_update"
)

const (
	// DefaultRetryAfter is the cooldown used when a 429 carries no usable Retry-After header.
	DefaultRetryAfter = 60 * time.Second

	// MaxCooldown caps a single cooldown so a bogus header cannot stall workers for hours.
	MaxCooldown = 10 * time.Minute
)

// ThrottleState is the shared throttle state.
type ThrottleState struct {
	// CooldownUntil is when requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// InCooldown reports whether requests should wait.
func (s *ThrottleState) InCooldown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// TimeUntilReset returns the remaining cooldown, 0 if none.
func (s *ThrottleState) TimeUntilReset() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads the Retry-After header as delta-seconds or an HTTP date.
// Missing or unparseable values yield DefaultRetryAfter; the result is capped at MaxCooldown.
func ParseRetryAfter(headers http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(headers.Get("Retry-After"))
	if value == "" {
		return DefaultRetryAfter
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return DefaultRetryAfter
	}

	if d < 0 {
		return 0
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
