package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL covers the vendor's retry window with room to spare.
const DefaultTTL = 24 * time.Hour

const defaultPrefix = "dedupe:vapi:"

// RedisGuard claims keys with SET NX PX. Each claim stores a random token,
// and Release only deletes the key while it still holds that token, so a
// claim that expired and was re-taken elsewhere is left alone.
type RedisGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	owner  string
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, prefix: defaultPrefix, owner: uuid.NewString()}
}

// Key returns the redis key used for an external id.
func (g *RedisGuard) Key(id string) string {
	return g.prefix + strings.TrimSpace(id)
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}
	if g.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := g.rdb.SetNX(ctx, g.Key(key), g.owner, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: claim %s: %w", key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
-- KEYS[1] = claim key
-- ARGV[1] = owner token
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if g.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := releaseScript.Run(ctx, g.rdb, []string{g.Key(key)}, g.owner).Err(); err != nil {
		return fmt.Errorf("dedupe: release %s: %w", key, err)
	}
	return nil
}
