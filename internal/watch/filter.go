package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/geckoterminal"
)

// AgeChecker gates candidates by token age. Satisfied by AgeOracle.
type AgeChecker interface {
	IsNew(ctx context.Context, chainID, address string) bool
}

// FilterConfig holds the poll-path thresholds.
type FilterConfig struct {
	MinLiquidityUSD    float64
	MinVolumeUSD       float64
	ConfirmationWindow time.Duration
}

// Filter is the poll-path correlation engine: it joins raw pool records with
// their included metadata, applies the liquidity admission gate against
// unseen pools, gates by token age, and runs the volume confirmation loop
// over its pending entries every cycle.
//
// Filter exclusively owns the PendingConfirmation book; no other component
// reads or mutates it.
type Filter struct {
	cfg        FilterConfig
	seen       domain.SeenSet // SeenPoolSet
	sent       domain.SeenSet // read-only view of SentTokenSet
	age        AgeChecker
	dispatcher *Dispatcher
	audit      domain.AuditStore // optional
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]map[string]domain.PendingConfirmation // chainID -> poolID
}

// NewFilter creates a Filter. audit may be nil.
func NewFilter(cfg FilterConfig, seen, sent domain.SeenSet, age AgeChecker, dispatcher *Dispatcher, audit domain.AuditStore, logger *slog.Logger) *Filter {
	return &Filter{
		cfg:        cfg,
		seen:       seen,
		sent:       sent,
		age:        age,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger.With(slog.String("component", "filter")),
		now:        time.Now,
		pending:    make(map[string]map[string]domain.PendingConfirmation),
	}
}

// ProcessCycle evaluates one polling cycle's page for a chain: new pools go
// through the admission gates, then every pending confirmation for the chain
// is re-evaluated against the refreshed snapshots.
func (f *Filter) ProcessCycle(ctx context.Context, chainID string, page *geckoterminal.PoolsPage) {
	now := f.now()
	candidates := resolvePage(chainID, page, now)

	// Latest snapshots by pool id, for the volume confirmation sweep. This
	// includes pools already seen in earlier cycles.
	latest := make(map[string]domain.PoolCandidate, len(candidates))
	for _, c := range candidates {
		latest[c.PoolID] = c
	}

	for _, c := range candidates {
		f.evaluate(ctx, c)
	}

	f.confirmVolume(ctx, chainID, latest, now)
}

// evaluate runs the admission gates for a single candidate.
func (f *Filter) evaluate(ctx context.Context, c domain.PoolCandidate) {
	isNew, err := f.seen.Add(ctx, c.ChainID, c.PoolID)
	if err != nil {
		f.logger.ErrorContext(ctx, "seen set unavailable",
			slog.String("chain", c.ChainID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !isNew {
		return // evaluated in an earlier cycle
	}

	if c.LiquidityUSD < f.cfg.MinLiquidityUSD {
		f.auditRow(ctx, "below_liquidity", c)
		return
	}

	// Already alerted or already awaiting volume confirmation.
	if sent, err := f.sent.Contains(ctx, c.ChainID, c.PoolID); err == nil && sent {
		return
	}
	f.mu.Lock()
	_, alreadyPending := f.pending[c.ChainID][c.PoolID]
	f.mu.Unlock()
	if alreadyPending {
		return
	}

	if !f.age.IsNew(ctx, c.ChainID, c.BaseToken.Address) {
		f.auditRow(ctx, "not_new", c)
		return
	}

	f.mu.Lock()
	if f.pending[c.ChainID] == nil {
		f.pending[c.ChainID] = make(map[string]domain.PendingConfirmation)
	}
	f.pending[c.ChainID][c.PoolID] = domain.PendingConfirmation{
		PoolID:      c.PoolID,
		Snapshot:    c,
		FirstSeenAt: f.now(),
	}
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "candidate admitted, awaiting volume",
		slog.String("chain", c.ChainID),
		slog.String("pool", c.PoolID),
		slog.String("token", c.BaseToken.Symbol),
		slog.Float64("liquidity_usd", c.LiquidityUSD),
		slog.Float64("volume_usd_1h", c.VolumeUSD1h),
	)
	f.auditRow(ctx, "admitted", c)
}

// confirmVolume is the volume confirmation loop for one chain: expired
// entries are dropped without an alert even if their volume would now
// qualify; surviving entries that reach the volume bar are promoted to a
// listing event.
func (f *Filter) confirmVolume(ctx context.Context, chainID string, latest map[string]domain.PoolCandidate, now time.Time) {
	f.mu.Lock()
	entries := make([]domain.PendingConfirmation, 0, len(f.pending[chainID]))
	for _, p := range f.pending[chainID] {
		entries = append(entries, p)
	}
	f.mu.Unlock()

	for _, p := range entries {
		if p.Expired(now, f.cfg.ConfirmationWindow) {
			f.removePending(chainID, p.PoolID)
			f.logger.InfoContext(ctx, "confirmation window expired",
				slog.String("chain", chainID),
				slog.String("pool", p.PoolID),
			)
			f.auditRow(ctx, "confirmation_expired", p.Snapshot)
			continue
		}

		snap := p.Snapshot
		if refreshed, ok := latest[p.PoolID]; ok {
			snap = refreshed
		}

		if snap.VolumeUSD1h < f.cfg.MinVolumeUSD {
			continue // keep waiting
		}

		f.removePending(chainID, p.PoolID)
		f.dispatcher.Dispatch(ctx, domain.ListingEvent{
			ID:           uuid.New().String(),
			ChainID:      chainID,
			TokenAddress: snap.BaseToken.Address,
			TokenName:    snap.BaseToken.Name,
			TokenSymbol:  snap.BaseToken.Symbol,
			PoolID:       snap.PoolID,
			LiquidityUSD: snap.LiquidityUSD,
			VolumeUSD:    snap.VolumeUSD1h,
			DetectedVia:  domain.DetectedViaPoll,
			Match:        domain.MatchThreshold,
			Timestamp:    now,
		})
	}
}

// PendingCount returns the number of entries awaiting volume confirmation
// for a chain.
func (f *Filter) PendingCount(chainID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending[chainID])
}

func (f *Filter) removePending(chainID, poolID string) {
	f.mu.Lock()
	delete(f.pending[chainID], poolID)
	f.mu.Unlock()
}

// auditRow writes one evaluated-candidate row. Best effort.
func (f *Filter) auditRow(ctx context.Context, classification string, c domain.PoolCandidate) {
	if f.audit == nil {
		return
	}
	if err := f.audit.Log(ctx, "candidate_evaluated", map[string]any{
		"chain":          c.ChainID,
		"pool":           c.PoolID,
		"token":          c.BaseToken.Address,
		"symbol":         c.BaseToken.Symbol,
		"dex":            c.DexName,
		"liquidity_usd":  c.LiquidityUSD,
		"volume_usd_1h":  c.VolumeUSD1h,
		"classification": classification,
	}); err != nil {
		f.logger.DebugContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}
}

// resolvePage joins raw pool records with the included side-table by
// relationship id. The side-table is bounded per response page, so a linear
// scan join is fine.
func resolvePage(chainID string, page *geckoterminal.PoolsPage, observedAt time.Time) []domain.PoolCandidate {
	tokens := make(map[string]domain.TokenInfo)
	dexes := make(map[string]string)
	for _, inc := range page.Included {
		switch inc.Type {
		case "token":
			tokens[inc.ID] = domain.TokenInfo{
				Address: inc.Attributes.Address,
				Name:    inc.Attributes.Name,
				Symbol:  inc.Attributes.Symbol,
			}
		case "dex":
			dexes[inc.ID] = inc.Attributes.Name
		}
	}

	out := make([]domain.PoolCandidate, 0, len(page.Data))
	for i := range page.Data {
		rec := &page.Data[i]
		base := tokens[rec.Relationships.BaseToken.Data.ID]
		quote := tokens[rec.Relationships.QuoteToken.Data.ID]
		dexName := dexes[rec.Relationships.Dex.Data.ID]
		out = append(out, rec.ToCandidate(chainID, base, quote, dexName, observedAt))
	}
	return out
}
