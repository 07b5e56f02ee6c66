package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theoretician9/telegram-leads-bot/internal/config"
	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

type stubListingStore struct {
	events []domain.ListingEvent
	err    error
	calls  int
}

func (s *stubListingStore) Insert(context.Context, domain.ListingEvent) error { return nil }

func (s *stubListingStore) ListRecent(_ context.Context, limit int) ([]domain.ListingEvent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func TestLogRecentListings(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults()
	a := New(&cfg, slog.New(slog.NewTextHandler(&buf, nil)))

	store := &stubListingStore{events: []domain.ListingEvent{
		{ChainID: "bsc", TokenAddress: "0xabc"},
		{ChainID: "eth", TokenAddress: "0xdef"},
	}}
	a.logRecentListings(context.Background(), &Dependencies{Listings: store})

	require.Equal(t, 1, store.calls)
	assert.Contains(t, buf.String(), "recent listings")
	assert.Contains(t, buf.String(), "latest_chain=bsc")
	assert.Contains(t, buf.String(), "latest_token=0xabc")
}

func TestLogRecentListingsSkipsWithoutStore(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults()
	a := New(&cfg, slog.New(slog.NewTextHandler(&buf, nil)))

	a.logRecentListings(context.Background(), &Dependencies{})
	assert.Empty(t, buf.String())
}

func TestLogRecentListingsSwallowsLookupErrors(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults()
	a := New(&cfg, slog.New(slog.NewTextHandler(&buf, nil)))

	a.logRecentListings(context.Background(), &Dependencies{
		Listings: &stubListingStore{err: errors.New("connection refused")},
	})
	assert.Contains(t, buf.String(), "listing history lookup failed")
}
