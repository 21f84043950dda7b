package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

const (
	ratelimitKeyPrefix = "ratelimit"

	defaultRateLimitThreshold = 5
	defaultRateLimitWindow    = time.Hour
)

// RateLimiter gates issuance per identifier using a renewing fixed window:
// every recorded request resets the window expiry rather than sliding it.
// Record is a store-level atomic increment, so concurrent issuance requests
// for the same identifier cannot lose counts.
type RateLimiter struct {
	store     port.KVStore
	threshold int
	window    time.Duration
}

// NewRateLimiter constructs a limiter over the provided store. Non-positive
// threshold or window fall back to 5 requests per hour.
func NewRateLimiter(store port.KVStore, threshold int, window time.Duration) *RateLimiter {
	if threshold <= 0 {
		threshold = defaultRateLimitThreshold
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	return &RateLimiter{store: store, threshold: threshold, window: window}
}

// Allow reports whether another issuance for the identifier fits in the
// current window. When denied, retryAfter carries the remaining window TTL.
func (l *RateLimiter) Allow(ctx context.Context, identifier string) (allowed bool, retryAfter time.Duration, err error) {
	key := l.key(identifier)

	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt counter: treat as absent rather than locking the
		// identifier out.
		return true, 0, nil
	}

	if count < int64(l.threshold) {
		return true, 0, nil
	}

	if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	return false, retryAfter, nil
}

// Record counts an issuance against the identifier and renews the window.
func (l *RateLimiter) Record(ctx context.Context, identifier string) error {
	if _, err := l.store.Increment(ctx, l.key(identifier), l.window); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Window returns the configured window duration.
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

func (l *RateLimiter) key(identifier string) string {
	return ratelimitKeyPrefix + ":" + identifier
}
