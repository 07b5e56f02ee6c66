package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// seenTTL bounds how long a dedup key survives. The set is append-only from
// the engine's point of view; the TTL only keeps an always-on deployment
// from growing without bound, and is far longer than any window in which a
// pool could plausibly re-qualify as new.
const seenTTL = 7 * 24 * time.Hour

// SeenSet implements domain.SeenSet on Redis, one string key per entry. The
// namespace separates the seen-pool set from the sent-token set so both can
// share a database.
type SeenSet struct {
	rdb       *redis.Client
	namespace string
}

// NewSeenSet creates a SeenSet under the given namespace (e.g. "seen" or
// "sent").
func NewSeenSet(c *Client, namespace string) *SeenSet {
	return &SeenSet{rdb: c.Underlying(), namespace: namespace}
}

func (s *SeenSet) key(chainID, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.namespace, chainID, key)
}

// Add inserts the key, returning true when it was not present before. The
// insert is a single SETNX so check-and-set is atomic across instances.
func (s *SeenSet) Add(ctx context.Context, chainID, key string) (bool, error) {
	wasNew, err := s.rdb.SetNX(ctx, s.key(chainID, key), 1, seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: seen set add %s: %w", key, err)
	}
	return wasNew, nil
}

// Contains reports whether the key is present.
func (s *SeenSet) Contains(ctx context.Context, chainID, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(chainID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: seen set contains %s: %w", key, err)
	}
	return n > 0, nil
}

var _ domain.SeenSet = (*SeenSet)(nil)
