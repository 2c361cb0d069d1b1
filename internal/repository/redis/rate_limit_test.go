package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *red.Client {
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

	return client
}

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "test:rl", TTL: time.Minute})

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	window := time.Minute

	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "login:192.0.2.1", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "login:192.0.2.1", window, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts in window, got %d", count)
	}

	// A different identifier is an independent window.
	count, err = repo.CountAttempts(ctx, "login:203.0.113.9", window, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty window for other identifier, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "test:rl"})

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	window := time.Minute

	if err := repo.RecordAttempt(ctx, "login:192.0.2.1", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login:192.0.2.1", now.Add(-10*time.Second)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, "login:192.0.2.1", window, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "login:192.0.2.1", window, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stale attempt to be trimmed, got %d in window", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "test:rl"})

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	window := time.Minute

	if _, ok, err := repo.OldestAttempt(ctx, "login:192.0.2.1", window, now); err != nil || ok {
		t.Fatalf("expected no attempts, got ok=%v err=%v", ok, err)
	}

	oldest := now.Add(-30 * time.Second)
	if err := repo.RecordAttempt(ctx, "login:192.0.2.1", oldest); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login:192.0.2.1", now.Add(-5*time.Second)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	got, ok, err := repo.OldestAttempt(ctx, "login:192.0.2.1", window, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected an attempt inside the window")
	}
	if !got.Equal(oldest) {
		t.Fatalf("expected oldest attempt %v, got %v", oldest, got)
	}
}

func TestRateLimitRepository_WindowValidation(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	ctx := context.Background()
	now := time.Now()

	if _, err := repo.CountAttempts(ctx, "x", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
	if err := repo.TrimWindow(ctx, "x", -time.Second, now); err == nil {
		t.Fatalf("expected error for negative window")
	}
}
