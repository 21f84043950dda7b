package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

const (
	defaultKeyPrefix = "proz"

	// defaultTTL applies when a caller passes a non-positive TTL, matching
	// the in-memory fallback so both backends behave identically.
	defaultTTL = time.Hour
)

// KVStore implements port.KVStore on top of a shared Redis instance. Redis
// itself enforces expiry; Increment renews the window TTL on every call.
type KVStore struct {
	client *red.Client
	prefix string
}

// NewKVStore constructs a Redis-backed KV adapter with the provided key
// prefix.
func NewKVStore(client *red.Client, keyPrefix string) *KVStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &KVStore{client: client, prefix: prefix}
}

// Get returns the stored value or repository.ErrNotFound when absent.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, red.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set stores the value with the supplied TTL, defaulting when non-positive.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Increment atomically bumps the counter and renews its TTL in a single
// pipeline, so concurrent issuance requests cannot lose updates.
func (s *KVStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	full := s.key(key)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	pipe.Expire(ctx, full, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	return incr.Val(), nil
}

// TTL returns the remaining lifetime of the key.
func (s *KVStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	// -2: key missing; -1: no expiry set, which the adapter never does.
	if d < 0 {
		return 0, repository.ErrNotFound
	}
	return d, nil
}

func (s *KVStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ port.KVStore = (*KVStore)(nil)
