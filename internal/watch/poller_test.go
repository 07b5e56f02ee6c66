package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Theoretician9/telegram-leads-bot/internal/platform/geckoterminal"
)

// pagedFetcher serves canned pages keyed by page number.
type pagedFetcher struct {
	pages map[int]*geckoterminal.PoolsPage
	errAt int // page number that fails, 0 for never
	calls []int
}

func (f *pagedFetcher) GetPools(_ context.Context, _ string, page, _ int) (*geckoterminal.PoolsPage, error) {
	f.calls = append(f.calls, page)
	if f.errAt != 0 && page == f.errAt {
		return nil, errors.New("upstream 500")
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &geckoterminal.PoolsPage{}, nil
}

func newCycleFilter() (*Filter, *stubListings) {
	listings := &stubListings{}
	sent := NewMemorySeenSet()
	dispatcher := NewDispatcher(sent, nil, nil, listings, testLogger())
	f := NewFilter(
		FilterConfig{MinLiquidityUSD: 5000, MinVolumeUSD: 2000, ConfirmationWindow: 2 * time.Minute},
		NewMemorySeenSet(), sent, stubAge{isNew: true}, dispatcher, nil, testLogger(),
	)
	return f, listings
}

func TestPollerMergesPages(t *testing.T) {
	filter, listings := newCycleFilter()

	fetcher := &pagedFetcher{pages: map[int]*geckoterminal.PoolsPage{
		1: page(
			poolSpec{poolID: "eth_0xp1", tokenAddr: "0xaaa", symbol: "A", liquidity: "6000", volume1h: "2500"},
			poolSpec{poolID: "eth_0xp2", tokenAddr: "0xbbb", symbol: "B", liquidity: "1000", volume1h: "2500"},
		),
		2: page(
			poolSpec{poolID: "eth_0xp3", tokenAddr: "0xccc", symbol: "C", liquidity: "7000", volume1h: "3000"},
		),
	}}

	p := NewPoller(PollerConfig{Pages: 3, PerPage: 2}, fetcher, filter, testLogger())
	p.cycle(context.Background(), "eth")

	// Page 2 returned fewer than per_page records, so page 3 is not
	// requested. Both qualifying pools across the pages alert.
	assert.Equal(t, []int{1, 2}, fetcher.calls)
	assert.Len(t, listings.all(), 2)
}

func TestPollerEvaluatesPartialResultOnPageFailure(t *testing.T) {
	filter, listings := newCycleFilter()

	fetcher := &pagedFetcher{
		pages: map[int]*geckoterminal.PoolsPage{
			1: page(poolSpec{poolID: "eth_0xp1", tokenAddr: "0xaaa", symbol: "A", liquidity: "6000", volume1h: "2500"}),
		},
		errAt: 2,
	}

	p := NewPoller(PollerConfig{Pages: 3, PerPage: 1}, fetcher, filter, testLogger())
	p.cycle(context.Background(), "eth")

	assert.Equal(t, []int{1, 2}, fetcher.calls)
	assert.Len(t, listings.all(), 1, "page 1 results still evaluated")
}

func TestPollerStaggerRespectsCancellation(t *testing.T) {
	filter, _ := newCycleFilter()
	p := NewPoller(PollerConfig{Interval: time.Hour, Pages: 1, PerPage: 10}, &pagedFetcher{}, filter, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.RunChain(ctx, "eth", time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
