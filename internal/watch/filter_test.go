package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

func newTestFilter(t *testing.T, age AgeChecker) (*Filter, *stubAlerter, *stubAudit, *time.Time) {
	t.Helper()

	alerter := &stubAlerter{}
	audit := &stubAudit{}
	sent := NewMemorySeenSet()
	dispatcher := NewDispatcher(sent, alerter, audit, nil, testLogger())

	f := NewFilter(
		FilterConfig{
			MinLiquidityUSD:    5000,
			MinVolumeUSD:       2000,
			ConfirmationWindow: 2 * time.Minute,
		},
		NewMemorySeenSet(),
		sent,
		age,
		dispatcher,
		audit,
		testLogger(),
	)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	return f, alerter, audit, &now
}

func TestFilterPromotesAfterVolumeConfirmation(t *testing.T) {
	f, alerter, _, now := newTestFilter(t, stubAge{isNew: true})
	ctx := context.Background()

	// First sighting: liquidity qualifies, volume does not.
	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "6000", volume1h: "500",
	}))
	assert.Equal(t, 1, f.PendingCount("eth"))
	assert.Zero(t, alerter.count())

	// Next cycle inside the window: volume crossed the bar.
	*now = now.Add(30 * time.Second)
	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "6000", volume1h: "2500",
	}))
	assert.Equal(t, 1, alerter.count())
	assert.Zero(t, f.PendingCount("eth"))

	// Further cycles never alert again.
	*now = now.Add(30 * time.Second)
	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "9000", volume1h: "9000",
	}))
	assert.Equal(t, 1, alerter.count())
}

func TestFilterPromotesInFirstCycleWhenBothQualify(t *testing.T) {
	f, alerter, _, _ := newTestFilter(t, stubAge{isNew: true})

	f.ProcessCycle(context.Background(), "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "6000", volume1h: "2500",
	}))
	assert.Equal(t, 1, alerter.count())
	assert.Zero(t, f.PendingCount("eth"))
}

func TestFilterRejectsBelowLiquidity(t *testing.T) {
	f, alerter, audit, now := newTestFilter(t, stubAge{isNew: true})
	ctx := context.Background()

	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "LOW",
		liquidity: "4000", volume1h: "9000",
	}))
	assert.Zero(t, f.PendingCount("eth"))
	assert.Zero(t, alerter.count())
	assert.Contains(t, audit.classifications(), "below_liquidity")

	// The pool was marked seen at first sighting; growing into the
	// threshold later does not readmit it.
	*now = now.Add(time.Minute)
	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "LOW",
		liquidity: "8000", volume1h: "9000",
	}))
	assert.Zero(t, f.PendingCount("eth"))
	assert.Zero(t, alerter.count())
}

func TestFilterConfirmationWindowExpiry(t *testing.T) {
	f, alerter, audit, now := newTestFilter(t, stubAge{isNew: true})
	ctx := context.Background()

	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "SLOW",
		liquidity: "6000", volume1h: "100",
	}))
	require.Equal(t, 1, f.PendingCount("eth"))

	// Volume qualifies only after the window has already elapsed: the entry
	// is dropped without an alert.
	*now = now.Add(3 * time.Minute)
	f.ProcessCycle(ctx, "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "SLOW",
		liquidity: "6000", volume1h: "5000",
	}))
	assert.Zero(t, alerter.count())
	assert.Zero(t, f.PendingCount("eth"))
	assert.Contains(t, audit.classifications(), "confirmation_expired")
}

func TestFilterAgeGateRejectsOldTokens(t *testing.T) {
	f, alerter, audit, _ := newTestFilter(t, stubAge{isNew: false})

	f.ProcessCycle(context.Background(), "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "OLD",
		liquidity: "6000", volume1h: "2500",
	}))
	assert.Zero(t, f.PendingCount("eth"))
	assert.Zero(t, alerter.count())
	assert.Contains(t, audit.classifications(), "not_new")
}

func TestFilterChainsAreIndependent(t *testing.T) {
	f, alerter, _, _ := newTestFilter(t, stubAge{isNew: true})
	ctx := context.Background()

	spec := poolSpec{
		poolID: "0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "6000", volume1h: "2500",
	}
	f.ProcessCycle(ctx, "eth", page(spec))
	f.ProcessCycle(ctx, "bsc", page(spec))

	// Same pool id on two chains: both alert, dedup is per chain.
	assert.Equal(t, 2, alerter.count())
}

func TestFilterEventFields(t *testing.T) {
	alerter := &stubAlerter{}
	listings := &stubListings{}
	sent := NewMemorySeenSet()
	dispatcher := NewDispatcher(sent, alerter, nil, listings, testLogger())

	f := NewFilter(
		FilterConfig{MinLiquidityUSD: 5000, MinVolumeUSD: 2000, ConfirmationWindow: 2 * time.Minute},
		NewMemorySeenSet(), sent, stubAge{isNew: true}, dispatcher, nil, testLogger(),
	)

	f.ProcessCycle(context.Background(), "eth", page(poolSpec{
		poolID: "eth_0xpool1", tokenAddr: "0xaaa", symbol: "NEW",
		liquidity: "6000", volume1h: "2500",
	}))

	events := listings.all()
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "eth", e.ChainID)
	assert.Equal(t, "0xaaa", e.TokenAddress)
	assert.Equal(t, "NEW", e.TokenSymbol)
	assert.Equal(t, "eth_0xpool1", e.PoolID)
	assert.Equal(t, domain.DetectedViaPoll, e.DetectedVia)
	assert.Equal(t, domain.MatchThreshold, e.Match)
	assert.InDelta(t, 6000, e.LiquidityUSD, 0.001)
	assert.InDelta(t, 2500, e.VolumeUSD, 0.001)
}
