package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

func TestMemorySeenSet(t *testing.T) {
	s := NewMemorySeenSet()
	ctx := context.Background()

	wasNew, err := s.Add(ctx, "eth", "pool-1")
	require.NoError(t, err)
	assert.True(t, wasNew)

	wasNew, err = s.Add(ctx, "eth", "pool-1")
	require.NoError(t, err)
	assert.False(t, wasNew)

	// Same key on another chain is independent.
	wasNew, err = s.Add(ctx, "bsc", "pool-1")
	require.NoError(t, err)
	assert.True(t, wasNew)

	present, err := s.Contains(ctx, "eth", "pool-1")
	require.NoError(t, err)
	assert.True(t, present)

	present, err = s.Contains(ctx, "eth", "pool-2")
	require.NoError(t, err)
	assert.False(t, present)

	assert.Equal(t, 2, s.Len())
}

func TestMemoryPendingStore(t *testing.T) {
	s := NewMemoryPendingStore()
	ctx := context.Background()
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	dep := domain.PendingDeployment{Address: "0xaaa", ChainID: "eth", FirstSeenAt: t0}
	require.NoError(t, s.Put(ctx, dep))

	got, err := s.Get(ctx, "eth", "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, dep, got)

	_, err = s.Get(ctx, "eth", "0xbbb")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "bsc", "0xaaa")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Re-recording refreshes the first-seen time.
	dep.FirstSeenAt = t0.Add(time.Hour)
	require.NoError(t, s.Put(ctx, dep))
	got, err = s.Get(ctx, "eth", "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), got.FirstSeenAt)

	addrs, err := s.Addresses(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa"}, addrs)

	require.NoError(t, s.Delete(ctx, "eth", "0xaaa"))
	_, err = s.Get(ctx, "eth", "0xaaa")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryPendingStoreExpire(t *testing.T) {
	s := NewMemoryPendingStore()
	ctx := context.Background()
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, domain.PendingDeployment{Address: "0xold", ChainID: "eth", FirstSeenAt: t0}))
	require.NoError(t, s.Put(ctx, domain.PendingDeployment{Address: "0xfresh", ChainID: "eth", FirstSeenAt: t0.Add(71 * time.Hour)}))

	removed, err := s.Expire(ctx, "eth", t0.Add(73*time.Hour), 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, "eth", "0xold")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "eth", "0xfresh")
	assert.NoError(t, err)
}
