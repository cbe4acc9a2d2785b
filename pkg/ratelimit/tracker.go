package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	throttleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_throttled_responses_total",
		Help: "Total number of 429 responses received from discovery",
	})

	throttleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_throttle_waits_total",
		Help: "Total number of requests delayed by a shared throttle cooldown",
	})

	throttleCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discovery_throttle_cooldown_seconds",
		Help: "Cooldown length last requested by discovery",
	})
)

// Tracker stores throttle cooldowns in Redis and gates requests on them.
// It satisfies client.Throttle.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current throttle state from Redis.
// Returns an empty (not throttled) state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	if t.redis == nil {
		return &ThrottleState{}, nil
	}

	untilMs, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	lastMs, lastErr := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if lastErr != nil && !errors.Is(lastErr, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", lastErr)
	}

	state := &ThrottleState{}
	if err == nil {
		state.CooldownUntil = time.UnixMilli(untilMs)
	}
	if lastErr == nil {
		state.LastUpdate = time.UnixMilli(lastMs)
	}
	return state, nil
}

// Observe records a cooldown when the response is 429 Too Many Requests.
// Other statuses are ignored.
func (t *Tracker) Observe(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests {
		return nil
	}
	throttleResponsesTotal.Inc()

	now := time.Now()
	cooldown := ParseRetryAfter(headers, now)
	throttleCooldownSeconds.Set(cooldown.Seconds())

	if t.redis == nil || cooldown <= 0 {
		return nil
	}

	until := now.Add(cooldown)

	// Keys expire with the cooldown.
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, until.UnixMilli(), cooldown)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("until", until).
		Msg("Discovery throttled - cooling down")

	return nil
}

// Wait blocks while a cooldown is active or until ctx is done.
// Redis errors are logged and the request is allowed through.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Throttle state unavailable, not waiting")
		return nil
	}

	if !state.InCooldown() {
		return nil
	}

	wait := state.TimeUntilReset()
	throttleWaitsTotal.Inc()
	t.logger.Warn().
		Dur("wait", wait).
		Dur("state_age", time.Since(state.LastUpdate)).
		Msg("Discovery cooldown active - delaying request")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
