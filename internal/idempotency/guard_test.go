package idempotency

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testGuard(t *testing.T, g Guard) {
	t.Helper()
	ctx := context.Background()
	key := uuid.NewString()

	ok, err := g.Claim(ctx, key)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = g.Claim(ctx, key)
	if err != nil || ok {
		t.Fatalf("second claim: expected rejection, got ok=%v err=%v", ok, err)
	}

	if err := g.Release(ctx, key); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, _ = g.Claim(ctx, key)
	if !ok {
		t.Error("expected claim to succeed after release")
	}
	g.Release(ctx, key)
}

func testConcurrentClaims(t *testing.T, g Guard) {
	t.Helper()
	key := uuid.NewString()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Claim(context.Background(), key); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
	g.Release(context.Background(), key)
}

func TestMemoryGuard(t *testing.T) {
	testGuard(t, NewMemoryGuard(time.Hour))
	testConcurrentClaims(t, NewMemoryGuard(time.Hour))
}

func TestMemoryGuardExpiry(t *testing.T) {
	g := NewMemoryGuard(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if ok, _ := g.Claim(context.Background(), "k"); !ok {
		t.Fatal("expected first claim to succeed")
	}
	now = now.Add(30 * time.Second)
	if ok, _ := g.Claim(context.Background(), "k"); ok {
		t.Error("expected claim within ttl to fail")
	}
	now = now.Add(time.Minute)
	if ok, _ := g.Claim(context.Background(), "k"); !ok {
		t.Error("expected claim after ttl to succeed")
	}
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisGuard(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	testGuard(t, NewRedisGuard(client, time.Minute))
	testConcurrentClaims(t, NewRedisGuard(client, time.Minute))
}
