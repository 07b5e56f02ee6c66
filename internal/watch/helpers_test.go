package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/geckoterminal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAlerter records every delivered alert.
type stubAlerter struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (s *stubAlerter) Notify(_ context.Context, _, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, message)
	return nil
}

func (s *stubAlerter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.titles)
}

// stubAudit records audit rows by event name and classification.
type stubAudit struct {
	mu   sync.Mutex
	rows []auditRow
}

type auditRow struct {
	event  string
	detail map[string]any
}

func (s *stubAudit) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, auditRow{event: event, detail: detail})
	return nil
}

func (s *stubAudit) classifications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.rows {
		if c, ok := r.detail["classification"].(string); ok {
			out = append(out, c)
		}
	}
	return out
}

// stubAge classifies every address by a fixed answer.
type stubAge struct{ isNew bool }

func (s stubAge) IsNew(context.Context, string, string) bool { return s.isNew }

// stubListings records inserted listing events.
type stubListings struct {
	mu     sync.Mutex
	events []domain.ListingEvent
}

func (s *stubListings) Insert(_ context.Context, event domain.ListingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubListings) ListRecent(context.Context, int) ([]domain.ListingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ListingEvent(nil), s.events...), nil
}

func (s *stubListings) all() []domain.ListingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ListingEvent(nil), s.events...)
}

// poolSpec is shorthand for building one pool entry of a snapshot page.
type poolSpec struct {
	poolID    string
	tokenAddr string
	symbol    string
	liquidity string
	volume1h  string
}

// page builds a PoolsPage the way the API would return it: raw records plus
// the included token/dex side-table.
func page(specs ...poolSpec) *geckoterminal.PoolsPage {
	p := &geckoterminal.PoolsPage{}
	for i, s := range specs {
		tokenID := "token-" + s.poolID
		dexID := "dex-1"

		rec := geckoterminal.PoolRecord{
			ID:   s.poolID,
			Type: "pool",
			Attributes: geckoterminal.PoolAttributes{
				Name:         s.symbol + " / WETH",
				ReserveInUSD: s.liquidity,
				VolumeUSD:    geckoterminal.VolumeUSD{H1: s.volume1h},
			},
		}
		rec.Relationships.BaseToken.Data = geckoterminal.RelationshipData{ID: tokenID, Type: "token"}
		rec.Relationships.QuoteToken.Data = geckoterminal.RelationshipData{ID: "token-weth", Type: "token"}
		rec.Relationships.Dex.Data = geckoterminal.RelationshipData{ID: dexID, Type: "dex"}
		p.Data = append(p.Data, rec)

		p.Included = append(p.Included, geckoterminal.Included{
			ID:   tokenID,
			Type: "token",
			Attributes: geckoterminal.IncludedAttributes{
				Address: s.tokenAddr,
				Name:    s.symbol + " Token",
				Symbol:  s.symbol,
			},
		})
		if i == 0 {
			p.Included = append(p.Included,
				geckoterminal.Included{
					ID:         "token-weth",
					Type:       "token",
					Attributes: geckoterminal.IncludedAttributes{Address: "0xweth", Symbol: "WETH"},
				},
				geckoterminal.Included{
					ID:         dexID,
					Type:       "dex",
					Attributes: geckoterminal.IncludedAttributes{Name: "uniswap_v2"},
				},
			)
		}
	}
	return p
}
