package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/bwanakweli4ever/prozlab-backend/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestKVStore_SetGet(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKVStore(client, "proz")

	ctx := context.Background()

	if err := store.Set(ctx, "verify:email_verification:tok", "payload", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	val, err := store.Get(ctx, "verify:email_verification:tok")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if val != "payload" {
		t.Fatalf("expected payload, got %s", val)
	}

	remaining := server.TTL("proz:verify:email_verification:tok")
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", remaining)
	}
}

func TestKVStore_GetMissing(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewKVStore(client, "proz")

	if _, err := store.Get(context.Background(), "absent"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStore_ExpiryEvicts(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKVStore(client, "proz")

	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	server.FastForward(time.Minute + time.Second)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestKVStore_DefaultTTLApplied(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKVStore(client, "proz")

	if err := store.Set(context.Background(), "k", "v", 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	remaining := server.TTL("proz:k")
	if remaining != time.Hour {
		t.Fatalf("expected default ttl of 1h, got %v", remaining)
	}
}

func TestKVStore_IncrementRenewsWindow(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKVStore(client, "proz")

	ctx := context.Background()
	window := time.Hour

	count, err := store.Increment(ctx, "ratelimit:alice@example.com", window)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	server.FastForward(30 * time.Minute)

	count, err = store.Increment(ctx, "ratelimit:alice@example.com", window)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	remaining := server.TTL("proz:ratelimit:alice@example.com")
	if remaining != window {
		t.Fatalf("expected renewed window of %v, got %v", window, remaining)
	}
}

func TestKVStore_TTLMissingKey(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewKVStore(client, "proz")

	if _, err := store.TTL(context.Background(), "absent"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStore_DefaultPrefix(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewKVStore(client, "")

	if err := store.Set(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if !server.Exists("proz:k") {
		t.Fatalf("expected key under default proz prefix")
	}
}
