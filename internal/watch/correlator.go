package watch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// expireSweepInterval is how often the pending-deployment TTL sweep runs.
const expireSweepInterval = time.Minute

// CorrelatorConfig holds the stream-path correlation parameters.
type CorrelatorConfig struct {
	PendingTTL time.Duration
	// KeepPendingOnMatch retains the pending entry after a match instead of
	// removing it.
	KeepPendingOnMatch bool
	// InputDeployHeuristic also treats calls whose data starts with a known
	// create/init bytecode prefix as deployments.
	InputDeployHeuristic bool
	// CalldataSubstringMatch enables the permissive variant: a pending
	// address appearing as a literal substring inside liquidity call data
	// counts as a match.
	CalldataSubstringMatch bool
}

// Correlator is the stream-path state machine. Per chain, keyed by lowercase
// address: Unseen -> PendingDeployment on a contract-creation transaction;
// PendingDeployment -> Matched (emits a listing event) when a later
// transaction from that address targets a known DEX router;
// PendingDeployment -> Expired when the TTL elapses, with no emission.
//
// The correlator is the single writer of the pending-deployment store.
type Correlator struct {
	cfg        CorrelatorConfig
	chainIDs   []string
	routers    map[string]map[string]struct{} // chainID -> lowercase router set
	classifier *Classifier
	pending    domain.PendingDeploymentStore
	dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewCorrelator creates a Correlator. routers maps chain id to its DEX
// router allow-list (lowercase hex).
func NewCorrelator(cfg CorrelatorConfig, routers map[string][]string, classifier *Classifier, pending domain.PendingDeploymentStore, dispatcher *Dispatcher, logger *slog.Logger) *Correlator {
	routerSets := make(map[string]map[string]struct{}, len(routers))
	chainIDs := make([]string, 0, len(routers))
	for chainID, list := range routers {
		chainIDs = append(chainIDs, chainID)
		set := make(map[string]struct{}, len(list))
		for _, r := range list {
			set[strings.ToLower(r)] = struct{}{}
		}
		routerSets[chainID] = set
	}
	return &Correlator{
		cfg:        cfg,
		chainIDs:   chainIDs,
		routers:    routerSets,
		classifier: classifier,
		pending:    pending,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "correlator")),
		now:        time.Now,
	}
}

// HandleTx classifies one pending transaction and advances the per-address
// state machine.
func (c *Correlator) HandleTx(ctx context.Context, tx domain.PendingTx) {
	now := c.now()

	if tx.IsContractCreation() || (c.cfg.InputDeployHeuristic && c.classifier.IsDeployLike(tx.Input)) {
		c.recordDeploy(ctx, tx, now)
		return
	}

	if _, isRouter := c.routers[tx.ChainID][tx.To]; !isRouter {
		return
	}

	// Exact match: the router call's sender is a pending deployer.
	if dep, err := c.pending.Get(ctx, tx.ChainID, tx.From); err == nil {
		if now.Sub(dep.FirstSeenAt) > c.cfg.PendingTTL {
			// Aged out but not yet swept; terminal without emission.
			_ = c.pending.Delete(ctx, tx.ChainID, tx.From)
			return
		}
		c.emit(ctx, tx, dep.Address, domain.MatchExactAddress, now)
		return
	}

	// Permissive variant: liquidity-add calls embed the token address as an
	// argument, so a pending address showing up inside the call data is a
	// (heuristic) match.
	if c.cfg.CalldataSubstringMatch && c.classifier.IsLiquidityOrSwap(tx.ChainID, tx.Input) {
		addrs, err := c.pending.Addresses(ctx, tx.ChainID)
		if err != nil {
			return
		}
		for _, addr := range addrs {
			if len(addr) > 2 && strings.Contains(tx.Input, addr[2:]) {
				if c.stillPending(ctx, tx.ChainID, addr, now) {
					c.emit(ctx, tx, addr, domain.MatchHeuristicSubstring, now)
				}
				return
			}
		}
	}
}

// stillPending re-checks an entry's TTL on the match path, so an aged entry
// the periodic sweep has not purged yet can never produce an event. Aged
// entries are deleted; expiry is terminal.
func (c *Correlator) stillPending(ctx context.Context, chainID, addr string, now time.Time) bool {
	dep, err := c.pending.Get(ctx, chainID, addr)
	if err != nil {
		return false
	}
	if now.Sub(dep.FirstSeenAt) > c.cfg.PendingTTL {
		_ = c.pending.Delete(ctx, chainID, addr)
		return false
	}
	return true
}

// recordDeploy transitions an address from Unseen to PendingDeployment.
func (c *Correlator) recordDeploy(ctx context.Context, tx domain.PendingTx, now time.Time) {
	dep := domain.PendingDeployment{
		Address:     tx.From,
		ChainID:     tx.ChainID,
		FirstSeenAt: now,
	}
	if err := c.pending.Put(ctx, dep); err != nil {
		c.logger.ErrorContext(ctx, "pending store put failed",
			slog.String("chain", tx.ChainID),
			slog.String("error", err.Error()),
		)
		return
	}
	c.logger.DebugContext(ctx, "possible token deployment",
		slog.String("chain", tx.ChainID),
		slog.String("address", tx.From),
		slog.String("tx", tx.Hash),
	)
}

// emit transitions to the Matched terminal state and hands the event to the
// dispatcher.
func (c *Correlator) emit(ctx context.Context, tx domain.PendingTx, pendingAddr string, match domain.MatchKind, now time.Time) {
	if !c.cfg.KeepPendingOnMatch {
		if err := c.pending.Delete(ctx, tx.ChainID, pendingAddr); err != nil {
			c.logger.DebugContext(ctx, "pending store delete failed",
				slog.String("error", err.Error()),
			)
		}
	}

	c.dispatcher.Dispatch(ctx, domain.ListingEvent{
		ID:           uuid.New().String(),
		ChainID:      tx.ChainID,
		TokenAddress: pendingAddr,
		DexAddress:   tx.To,
		DetectedVia:  domain.DetectedViaStream,
		Match:        match,
		Timestamp:    now,
	})
}

// RunExpiry sweeps aged-out pending deployments on a fixed interval until
// the context is cancelled. Expiry is terminal and emits nothing.
func (c *Correlator) RunExpiry(ctx context.Context) error {
	ticker := time.NewTicker(expireSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.ExpireOnce(ctx)
		}
	}
}

// ExpireOnce performs one TTL sweep across all chains.
func (c *Correlator) ExpireOnce(ctx context.Context) {
	now := c.now()
	for _, chainID := range c.chainIDs {
		removed, err := c.pending.Expire(ctx, chainID, now, c.cfg.PendingTTL)
		if err != nil {
			c.logger.WarnContext(ctx, "pending expiry sweep failed",
				slog.String("chain", chainID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if removed > 0 {
			c.logger.InfoContext(ctx, "expired pending deployments",
				slog.String("chain", chainID),
				slog.Int("removed", removed),
			)
		}
	}
}
