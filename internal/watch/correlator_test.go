package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

const (
	routerAddr   = "0x10ed43c718714eb63d5aa57b78b54704e256024e"
	deployerAddr = "0x1111111111111111111111111111111111111111"
)

func newTestCorrelator(t *testing.T, cfg CorrelatorConfig) (*Correlator, *stubListings, *stubAlerter, *time.Time) {
	t.Helper()

	alerter := &stubAlerter{}
	listings := &stubListings{}
	dispatcher := NewDispatcher(NewMemorySeenSet(), alerter, nil, listings, testLogger())

	c := NewCorrelator(
		cfg,
		map[string][]string{"bsc": {routerAddr}},
		NewClassifier(nil),
		NewMemoryPendingStore(),
		dispatcher,
		testLogger(),
	)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, listings, alerter, &now
}

func deployTx(from string) domain.PendingTx {
	return domain.PendingTx{
		ChainID: "bsc",
		Hash:    "0xdeadbeef",
		From:    from,
		Input:   "0x60806040aaaa",
	}
}

func routerTx(from, input string) domain.PendingTx {
	return domain.PendingTx{
		ChainID: "bsc",
		Hash:    "0xfeedface",
		From:    from,
		To:      routerAddr,
		Input:   input,
	}
}

func TestCorrelatorDeployThenRouterMatch(t *testing.T) {
	c, listings, alerter, now := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	*now = now.Add(10 * time.Minute)
	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))

	events := listings.all()
	require.Len(t, events, 1)
	assert.Equal(t, deployerAddr, events[0].TokenAddress)
	assert.Equal(t, routerAddr, events[0].DexAddress)
	assert.Equal(t, domain.DetectedViaStream, events[0].DetectedVia)
	assert.Equal(t, domain.MatchExactAddress, events[0].Match)
	assert.Equal(t, 1, alerter.count())

	// The pending entry is consumed; the same pair matches only once.
	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Len(t, listings.all(), 1)
}

func TestCorrelatorIgnoresNonRouterDestinations(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	tx := routerTx(deployerAddr, "0xf305d719aaaa")
	tx.To = "0x2222222222222222222222222222222222222222"
	c.HandleTx(ctx, tx)

	assert.Empty(t, listings.all())
}

func TestCorrelatorIgnoresUnknownSenders(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Empty(t, listings.all())
}

func TestCorrelatorTTLExpiry(t *testing.T) {
	c, listings, _, now := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	*now = now.Add(73 * time.Hour)
	c.ExpireOnce(ctx)

	// A router call after expiry matches nothing and emits nothing.
	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Empty(t, listings.all())
}

func TestCorrelatorAgedEntryNeverEmits(t *testing.T) {
	// TTL elapsed but the sweep has not run yet: the lazy check on the
	// match path must still refuse to emit.
	c, listings, _, now := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	*now = now.Add(73 * time.Hour)
	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Empty(t, listings.all())
}

func TestCorrelatorDeployHeuristicDisabledByDefault(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{PendingTTL: 72 * time.Hour})
	ctx := context.Background()

	// Deploy-like input but with a destination set: not a creation, and the
	// heuristic is off.
	tx := deployTx(deployerAddr)
	tx.To = "0x3333333333333333333333333333333333333333"
	c.HandleTx(ctx, tx)

	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Empty(t, listings.all())
}

func TestCorrelatorDeployHeuristicEnabled(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{
		PendingTTL:           72 * time.Hour,
		InputDeployHeuristic: true,
	})
	ctx := context.Background()

	tx := deployTx(deployerAddr)
	tx.To = "0x3333333333333333333333333333333333333333"
	c.HandleTx(ctx, tx)

	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	require.Len(t, listings.all(), 1)
	assert.Equal(t, domain.MatchExactAddress, listings.all()[0].Match)
}

func TestCorrelatorCalldataSubstringMatch(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{
		PendingTTL:             72 * time.Hour,
		CalldataSubstringMatch: true,
	})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	// The liquidity call comes from an unrelated sender, but the pending
	// address is embedded in the call data.
	sender := "0x4444444444444444444444444444444444444444"
	input := "0xf305d719000000000000000000000000" + deployerAddr[2:] + "0000"
	c.HandleTx(ctx, routerTx(sender, input))

	events := listings.all()
	require.Len(t, events, 1)
	assert.Equal(t, deployerAddr, events[0].TokenAddress)
	assert.Equal(t, domain.MatchHeuristicSubstring, events[0].Match)
}

func TestCorrelatorSubstringAgedEntryNeverEmits(t *testing.T) {
	// Same lazy TTL check as the exact-address path: an entry past its TTL
	// that the sweep has not purged yet must not match via call data either.
	c, listings, _, now := newTestCorrelator(t, CorrelatorConfig{
		PendingTTL:             72 * time.Hour,
		CalldataSubstringMatch: true,
	})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	*now = now.Add(73 * time.Hour)
	sender := "0x4444444444444444444444444444444444444444"
	input := "0xf305d719000000000000000000000000" + deployerAddr[2:] + "0000"
	c.HandleTx(ctx, routerTx(sender, input))
	assert.Empty(t, listings.all())

	// The aged entry is deleted on that path, so nothing lingers for the
	// sweep either.
	addrs, err := c.pending.Addresses(ctx, "bsc")
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestCorrelatorSubstringRequiresLiquiditySelector(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{
		PendingTTL:             72 * time.Hour,
		CalldataSubstringMatch: true,
	})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))

	sender := "0x4444444444444444444444444444444444444444"
	input := "0xabcdef12000000000000000000000000" + deployerAddr[2:]
	c.HandleTx(ctx, routerTx(sender, input))

	assert.Empty(t, listings.all())
}

func TestCorrelatorKeepPendingOnMatch(t *testing.T) {
	c, listings, _, _ := newTestCorrelator(t, CorrelatorConfig{
		PendingTTL:         72 * time.Hour,
		KeepPendingOnMatch: true,
	})
	ctx := context.Background()

	c.HandleTx(ctx, deployTx(deployerAddr))
	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	require.Len(t, listings.all(), 1)

	// The entry survives the match, but the sent-token dedup still caps the
	// pair at one alert.
	addrs, err := c.pending.Addresses(ctx, "bsc")
	require.NoError(t, err)
	assert.Contains(t, addrs, deployerAddr)

	c.HandleTx(ctx, routerTx(deployerAddr, "0xf305d719aaaa"))
	assert.Len(t, listings.all(), 1)
}
