package port

import (
	"context"
	"time"
)

// KVStore exposes the uniform get/set-with-expiry operations the verification
// layer is written against. Two interchangeable backends implement it: the
// shared Redis cache and a process-local fallback map. Callers must treat
// every method as potentially blocking on network I/O.
type KVStore interface {
	// Get returns the stored value or repository.ErrNotFound when the key is
	// absent or its TTL has elapsed.
	Get(ctx context.Context, key string) (string, error)
	// Set stores the value with the supplied TTL. A non-positive TTL falls
	// back to the backend's default of one hour.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Increment atomically increments the integer counter at key and renews
	// its TTL, returning the new count. Missing keys start at zero.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL returns the remaining lifetime of the key, or
	// repository.ErrNotFound when it is absent or expired.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
