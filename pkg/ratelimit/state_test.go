package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestThrottleState_InCooldown(t *testing.T) {
	tests := []struct {
		name     string
		until    time.Time
		expected bool
	}{
		{name: "zero state", until: time.Time{}, expected: false},
		{name: "cooldown in future", until: time.Now().Add(30 * time.Second), expected: true},
		{name: "cooldown passed", until: time.Now().Add(-1 * time.Second), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &ThrottleState{CooldownUntil: tt.until}
			if got := state.InCooldown(); got != tt.expected {
				t.Errorf("InCooldown() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestThrottleState_TimeUntilReset(t *testing.T) {
	state := &ThrottleState{CooldownUntil: time.Now().Add(-time.Minute)}
	if got := state.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for past cooldown", got)
	}

	state = &ThrottleState{CooldownUntil: time.Now().Add(time.Minute)}
	got := state.TimeUntilReset()
	if got < 59*time.Second || got > time.Minute {
		t.Errorf("TimeUntilReset() = %v, want about 1m", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "missing header", value: "", expected: DefaultRetryAfter},
		{name: "delta seconds", value: "120", expected: 120 * time.Second},
		{name: "zero seconds", value: "0", expected: 0},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), expected: 90 * time.Second},
		{name: "date in the past", value: now.Add(-time.Hour).Format(http.TimeFormat), expected: 0},
		{name: "garbage", value: "soon", expected: DefaultRetryAfter},
		{name: "capped", value: "86400", expected: MaxCooldown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}

			if got := ParseRetryAfter(headers, now); got != tt.expected {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}
