package dedupe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGuard_ClaimOnce(t *testing.T) {
	g := NewMemoryGuard(time.Hour)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "call_1")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = g.Claim(ctx, "call_1")
	if err != nil || ok {
		t.Fatalf("second claim should be rejected: ok=%v err=%v", ok, err)
	}
	ok, _ = g.Claim(ctx, "call_2")
	if !ok {
		t.Fatalf("other keys must be independent")
	}
}

func TestMemoryGuard_ReleaseAllowsRetry(t *testing.T) {
	g := NewMemoryGuard(time.Hour)
	ctx := context.Background()

	_, _ = g.Claim(ctx, "call_1")
	if err := g.Release(ctx, "call_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := g.Claim(ctx, "call_1"); !ok {
		t.Fatalf("expected claim after release")
	}
}

func TestMemoryGuard_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g := NewMemoryGuard(time.Minute)
	g.Now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = g.Claim(ctx, "call_1")
	now = now.Add(59 * time.Second)
	if ok, _ := g.Claim(ctx, "call_1"); ok {
		t.Fatalf("claim still held inside ttl")
	}
	now = now.Add(2 * time.Second)
	if ok, _ := g.Claim(ctx, "call_1"); !ok {
		t.Fatalf("expected claim after ttl")
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	if _, err := NewMemoryGuard(0).Claim(ctx, "  "); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if _, err := NewRedisGuard(nil, 0).Claim(ctx, ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestRedisGuard_KeyAndNilClient(t *testing.T) {
	g := NewRedisGuard(nil, 0)
	if got := g.Key(" call_1 "); got != "dedupe:vapi:call_1" {
		t.Fatalf("unexpected key %q", got)
	}
	if g.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %v", g.ttl)
	}
	if _, err := g.Claim(context.Background(), "call_1"); err == nil {
		t.Fatalf("expected error without a client")
	}
	if releaseScript == nil {
		t.Fatalf("expected release script to be initialized")
	}
}
