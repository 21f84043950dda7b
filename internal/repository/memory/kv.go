package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

const defaultTTL = time.Hour

type entry struct {
	value     string
	expiresAt time.Time
}

// KVStore is the process-local fallback used when the shared Redis cache is
// not configured or unreachable at startup. Entries carry their own expiry;
// reads treat expired entries as absent and evict them lazily, so no reaper
// goroutine is needed.
type KVStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewKVStore constructs an empty in-memory KV adapter.
func NewKVStore() *KVStore {
	return &KVStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *KVStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Get returns the stored value or repository.ErrNotFound when the key is
// absent or expired.
func (s *KVStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return "", repository.ErrNotFound
	}
	return e.value, nil
}

// Set stores the value with the supplied TTL, defaulting when non-positive.
func (s *KVStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Increment bumps the counter under the store lock and renews its TTL,
// mirroring the Redis pipeline's atomicity.
func (s *KVStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if e, ok := s.live(key); ok {
		if parsed, err := strconv.ParseInt(e.value, 10, 64); err == nil {
			count = parsed
		}
	}
	count++

	s.entries[key] = entry{
		value:     strconv.FormatInt(count, 10),
		expiresAt: s.now().Add(ttl),
	}
	return count, nil
}

// TTL returns the remaining lifetime of the key.
func (s *KVStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return e.expiresAt.Sub(s.now()), nil
}

// live returns the entry when present and unexpired, evicting it otherwise.
// Callers must hold the lock.
func (s *KVStore) live(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

var _ port.KVStore = (*KVStore)(nil)
