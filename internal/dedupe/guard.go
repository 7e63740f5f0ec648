package dedupe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrEmptyKey = errors.New("dedupe: key is required")

// Guard claims an external event id so that redeliveries are processed once.
//
// Claim returns false when the key is already held. Release gives the key back
// after a failed attempt so the vendor's retry can succeed.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryGuard is a single-process guard for tests and local development.
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]time.Time

	Now func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{ttl: ttl, held: make(map[string]time.Time), Now: time.Now}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, ErrEmptyKey
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.Now()
	if exp, ok := g.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.held[key] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}
