package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// PendingStore implements domain.PendingDeploymentStore on a Redis sorted
// set per chain: member = address, score = first-seen time in unix
// nanoseconds. Scores make the TTL sweep a single ZREMRANGEBYSCORE.
type PendingStore struct {
	rdb *redis.Client
}

// NewPendingStore creates a PendingStore backed by the given Client.
func NewPendingStore(c *Client) *PendingStore {
	return &PendingStore{rdb: c.Underlying()}
}

func pendingKey(chainID string) string {
	return "pending:" + chainID
}

// Put records the address as pending. Re-recording refreshes its score.
func (s *PendingStore) Put(ctx context.Context, dep domain.PendingDeployment) error {
	err := s.rdb.ZAdd(ctx, pendingKey(dep.ChainID), redis.Z{
		Score:  float64(dep.FirstSeenAt.UnixNano()),
		Member: dep.Address,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: pending put %s: %w", dep.Address, err)
	}
	return nil
}

// Get returns the pending entry, or domain.ErrNotFound.
func (s *PendingStore) Get(ctx context.Context, chainID, address string) (domain.PendingDeployment, error) {
	score, err := s.rdb.ZScore(ctx, pendingKey(chainID), address).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PendingDeployment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PendingDeployment{}, fmt.Errorf("redis: pending get %s: %w", address, err)
	}
	return domain.PendingDeployment{
		Address:     address,
		ChainID:     chainID,
		FirstSeenAt: time.Unix(0, int64(score)),
	}, nil
}

// Delete removes the entry if present.
func (s *PendingStore) Delete(ctx context.Context, chainID, address string) error {
	if err := s.rdb.ZRem(ctx, pendingKey(chainID), address).Err(); err != nil {
		return fmt.Errorf("redis: pending delete %s: %w", address, err)
	}
	return nil
}

// Addresses returns the currently pending addresses for a chain, oldest
// first.
func (s *PendingStore) Addresses(ctx context.Context, chainID string) ([]string, error) {
	addrs, err := s.rdb.ZRange(ctx, pendingKey(chainID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: pending addresses %s: %w", chainID, err)
	}
	return addrs, nil
}

// Expire purges entries whose first-seen time is older than the TTL and
// returns how many were removed.
func (s *PendingStore) Expire(ctx context.Context, chainID string, now time.Time, ttl time.Duration) (int, error) {
	cutoff := now.Add(-ttl).UnixNano()
	removed, err := s.rdb.ZRemRangeByScore(
		ctx, pendingKey(chainID),
		"-inf", fmt.Sprintf("%d", cutoff),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: pending expire %s: %w", chainID, err)
	}
	return int(removed), nil
}

var _ domain.PendingDeploymentStore = (*PendingStore)(nil)
