package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/Theoretician9/telegram-leads-bot/internal/blob/s3"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/chainrpc"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/explorer"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/geckoterminal"
	"github.com/Theoretician9/telegram-leads-bot/internal/watch"
)

// PollMode runs only the periodic pool-snapshot detection path.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering poll mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPollers(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// StreamMode runs only the live pending-transaction detection path.
func (a *App) StreamMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering stream mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startStreams(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs both detection paths concurrently. They converge on one
// dispatcher per path but share the sent-token set, so a token detected by
// either path is alerted at most once.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPollers(ctx, g, deps)
	a.startStreams(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// newDispatcher builds the shared alert convergence point.
func (a *App) newDispatcher(deps *Dependencies) *watch.Dispatcher {
	var alerter watch.Alerter
	if deps.Notifier != nil {
		alerter = deps.Notifier
	}
	return watch.NewDispatcher(deps.SentTokens, alerter, deps.Audit, deps.Listings, a.logger)
}

// startPollers starts one poll loop per configured chain, staggered so the
// chains' request bursts do not line up.
func (a *App) startPollers(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	gecko := geckoterminal.NewClient(a.cfg.Gecko.BaseURL)

	sources := make(map[string]watch.CreationTimeSource)
	for _, ch := range a.cfg.Chains {
		if ch.ExplorerURL != "" {
			sources[ch.ID] = explorer.NewClient(ch.ExplorerURL, ch.ExplorerAPIKey)
		}
	}

	oracle := watch.NewAgeOracle(
		sources,
		a.cfg.Watch.MaxTokenAge.Duration,
		a.cfg.Watch.AgeOracleConcurrency,
		deps.RateLimiter,
		a.cfg.Watch.ExplorerRateLimit,
		a.logger,
	)

	filter := watch.NewFilter(
		watch.FilterConfig{
			MinLiquidityUSD:    a.cfg.Watch.MinLiquidityUSD,
			MinVolumeUSD:       a.cfg.Watch.MinVolumeUSD,
			ConfirmationWindow: a.cfg.Watch.ConfirmationWindow.Duration,
		},
		deps.SeenPools,
		deps.SentTokens,
		oracle,
		a.newDispatcher(deps),
		deps.Audit,
		a.logger,
	)

	poller := watch.NewPoller(
		watch.PollerConfig{
			Interval: a.cfg.Gecko.PollInterval.Duration,
			Pages:    a.cfg.Gecko.Pages,
			PerPage:  a.cfg.Gecko.PerPage,
		},
		gecko,
		filter,
		a.logger,
	)

	for i, ch := range a.cfg.Chains {
		chainID := ch.ID
		delay := a.cfg.Gecko.Stagger.Duration + time.Duration(i)*a.cfg.Gecko.StaggerStep.Duration
		g.Go(func() error {
			return poller.RunChain(ctx, chainID, delay)
		})
	}
}

// startStreams starts one websocket listener per chain that has an endpoint
// configured, plus the shared pending-deployment expiry sweep.
func (a *App) startStreams(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	extra := make(map[string][]string)
	routers := make(map[string][]string)
	for _, ch := range a.cfg.Chains {
		routers[ch.ID] = ch.Routers
		if len(ch.ExtraSelectors) > 0 {
			extra[ch.ID] = ch.ExtraSelectors
		}
	}

	correlator := watch.NewCorrelator(
		watch.CorrelatorConfig{
			PendingTTL:             a.cfg.Watch.PendingTTL.Duration,
			KeepPendingOnMatch:     a.cfg.Watch.KeepPendingOnMatch,
			InputDeployHeuristic:   a.cfg.Watch.InputDeployHeuristic,
			CalldataSubstringMatch: a.cfg.Watch.CalldataSubstringMatch,
		},
		routers,
		watch.NewClassifier(extra),
		deps.Pending,
		a.newDispatcher(deps),
		a.logger,
	)

	g.Go(func() error {
		return correlator.RunExpiry(ctx)
	})

	streamCfg := watch.StreamConfig{
		ReconnectBase:  a.cfg.Stream.ReconnectBase.Duration,
		ReconnectMax:   a.cfg.Stream.ReconnectMax.Duration,
		ResolveTimeout: a.cfg.Stream.ResolveTimeout.Duration,
	}

	started := 0
	for _, ch := range a.cfg.Chains {
		if ch.WsURL == "" {
			a.logger.Warn("chain has no websocket endpoint, stream disabled",
				slog.String("chain", ch.ID),
			)
			continue
		}

		listener := watch.NewStreamListener(
			ch.ID,
			ch.WsURL,
			streamCfg,
			watch.SubscribeChain,
			chainrpc.NewTxResolver(ch.StreamHTTPURL()),
			correlator,
			a.logger,
		)
		g.Go(func() error {
			return listener.Run(ctx)
		})
		started++
	}

	if started == 0 {
		a.logger.Warn("no chains have websocket endpoints, stream path idle")
	}
}

// startArchiver starts the audit archival sweep when both Postgres and S3
// are configured and retention is set.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.AuditArchive == nil || deps.BlobWriter == nil || a.cfg.Audit.ArchiveRetentionDays <= 0 {
		return
	}

	archiver := s3blob.NewArchiver(
		deps.BlobWriter,
		deps.AuditArchive,
		deps.Locks,
		time.Duration(a.cfg.Audit.ArchiveRetentionDays)*24*time.Hour,
		a.cfg.Audit.ArchiveInterval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return archiver.Run(ctx)
	})
}
