package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/platform/geckoterminal"
)

// PoolFetcher retrieves one page of the pool list for a network. Satisfied
// by geckoterminal.Client.
type PoolFetcher interface {
	GetPools(ctx context.Context, network string, page, perPage int) (*geckoterminal.PoolsPage, error)
}

// PollerConfig holds polling cadence parameters.
type PollerConfig struct {
	Interval time.Duration
	Pages    int
	PerPage  int
}

// Poller drives one chain's fixed-interval snapshot cycle. Fetch failures
// are logged and yield an empty cycle; the interval itself is the only
// throttle, there is no fetch backoff.
type Poller struct {
	cfg     PollerConfig
	fetcher PoolFetcher
	filter  *Filter
	logger  *slog.Logger
}

// NewPoller creates a Poller feeding the given filter.
func NewPoller(cfg PollerConfig, fetcher PoolFetcher, filter *Filter, logger *slog.Logger) *Poller {
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		filter:  filter,
		logger:  logger.With(slog.String("component", "poller")),
	}
}

// RunChain polls one chain until the context is cancelled. startDelay is the
// inter-chain stagger applied before the first cycle so chains do not burst
// against the upstream simultaneously.
func (p *Poller) RunChain(ctx context.Context, chainID string, startDelay time.Duration) error {
	if startDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startDelay):
		}
	}

	p.logger.InfoContext(ctx, "poll loop started",
		slog.String("chain", chainID),
		slog.Duration("interval", p.cfg.Interval),
	)

	// Run immediately on start.
	p.cycle(ctx, chainID)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "poll loop stopped", slog.String("chain", chainID))
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx, chainID)
		}
	}
}

// cycle fetches the configured pages and hands the merged result to the
// filter. A failed page ends the pagination for this cycle; whatever was
// fetched before the failure is still evaluated.
func (p *Poller) cycle(ctx context.Context, chainID string) {
	merged := &geckoterminal.PoolsPage{}

	for page := 1; page <= p.cfg.Pages; page++ {
		res, err := p.fetcher.GetPools(ctx, chainID, page, p.cfg.PerPage)
		if err != nil {
			p.logger.WarnContext(ctx, "pool fetch failed",
				slog.String("chain", chainID),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			break
		}
		merged.Data = append(merged.Data, res.Data...)
		merged.Included = append(merged.Included, res.Included...)
		if len(res.Data) < p.cfg.PerPage {
			break
		}
	}

	p.filter.ProcessCycle(ctx, chainID, merged)
}
