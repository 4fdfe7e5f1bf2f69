package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mspacademy/labtrack/pkg/storage"
)

const (
	ratelimitKeyPrefix = "ratelimit:"

	// ratelimitGrace pads the store TTL past the window so a key is not
	// purged while its newest timestamps are still countable.
	ratelimitGrace = 5 * time.Minute
)

// RateLimiter is a sliding-window request counter backed by the key-value
// store. Each identifier maps to an ordered list of request timestamps; the
// list is pruned on every check.
//
// The limiter fails open: a storage error during the check allows the
// request. Set FailClosed for deployments that prefer rejecting over
// running unprotected.
type RateLimiter struct {
	store storage.Store

	// MaxRequests per Window for the default Allow call.
	MaxRequests int
	Window      time.Duration

	// FailClosed rejects requests on storage errors instead of allowing.
	FailClosed bool

	now func() time.Time
}

// NewRateLimiter creates a limiter with the given defaults.
func NewRateLimiter(store storage.Store, maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		store:       store,
		MaxRequests: maxRequests,
		Window:      window,
		now:         time.Now,
	}
}

// Allow checks the identifier against the configured limits.
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) bool {
	return rl.AllowN(ctx, identifier, rl.MaxRequests, rl.Window)
}

// AllowN checks the identifier against explicit limits. Rejected requests
// are not recorded, so a full window drains after exactly one window of
// silence rather than being pushed out by further attempts.
func (rl *RateLimiter) AllowN(ctx context.Context, identifier string, maxRequests int, window time.Duration) bool {
	key := ratelimitKeyPrefix + identifier
	now := rl.now().UTC()
	cutoff := now.Add(-window)

	var timestamps []time.Time
	data, err := rl.store.Get(ctx, key)
	if err != nil && err != storage.ErrNotFound {
		return rl.failOpen()
	}
	if err == nil {
		if err := json.Unmarshal(data, &timestamps); err != nil {
			// Corrupt window; start a fresh one
			timestamps = nil
		}
	}

	// Prune entries outside the sliding window
	recent := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= maxRequests {
		return false
	}

	recent = append(recent, now)
	updated, err := json.Marshal(recent)
	if err != nil {
		return rl.failOpen()
	}
	if err := rl.store.Put(ctx, key, updated, window+ratelimitGrace); err != nil {
		return rl.failOpen()
	}

	return true
}

// Reset clears the window for an identifier.
func (rl *RateLimiter) Reset(ctx context.Context, identifier string) error {
	return rl.store.Delete(ctx, ratelimitKeyPrefix+identifier)
}

func (rl *RateLimiter) failOpen() bool {
	return !rl.FailClosed
}
