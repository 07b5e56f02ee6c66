package watch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// CreationTimeSource looks up the on-chain creation time of a contract
// address. Satisfied by explorer.Client.
type CreationTimeSource interface {
	ContractCreationTime(ctx context.Context, address string) (time.Time, error)
}

// AgeOracle classifies a token address as "new" when its contract was
// created within the rolling window. Every failure mode — explorer error,
// empty result, missing source for the chain, rate limit exhausted —
// classifies the token as not-new: a missed alert is acceptable, a false one
// is not.
type AgeOracle struct {
	sources map[string]CreationTimeSource
	maxAge  time.Duration

	// sems bounds concurrent explorer lookups per chain so a slow oracle
	// cannot pile up unbounded in-flight requests.
	sems map[string]*semaphore.Weighted

	limiter   domain.RateLimiter // optional
	rateLimit int                // requests per second per chain when limiter is set

	logger *slog.Logger
	now    func() time.Time
}

// NewAgeOracle creates an AgeOracle. sources maps chain id to its explorer
// client; chains without a source (no endpoint or API key configured) always
// classify as not-new. limiter may be nil.
func NewAgeOracle(sources map[string]CreationTimeSource, maxAge time.Duration, concurrency int, limiter domain.RateLimiter, rateLimit int, logger *slog.Logger) *AgeOracle {
	if concurrency < 1 {
		concurrency = 1
	}
	sems := make(map[string]*semaphore.Weighted, len(sources))
	for chainID := range sources {
		sems[chainID] = semaphore.NewWeighted(int64(concurrency))
	}
	return &AgeOracle{
		sources:   sources,
		maxAge:    maxAge,
		sems:      sems,
		limiter:   limiter,
		rateLimit: rateLimit,
		logger:    logger.With(slog.String("component", "age_oracle")),
		now:       time.Now,
	}
}

// IsNew reports whether the token address was created within the rolling
// window on the given chain.
func (o *AgeOracle) IsNew(ctx context.Context, chainID, address string) bool {
	src, ok := o.sources[chainID]
	if !ok {
		// No explorer configured for this chain; the poll path still runs
		// but can never admit candidates. Logged at debug to avoid spamming
		// every cycle.
		o.logger.DebugContext(ctx, "no explorer for chain, token treated as not new",
			slog.String("chain", chainID),
		)
		return false
	}

	if o.limiter != nil && o.rateLimit > 0 {
		allowed, err := o.limiter.Allow(ctx, "explorer:"+chainID, o.rateLimit, time.Second)
		if err != nil || !allowed {
			return false
		}
	}

	sem := o.sems[chainID]
	if err := sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer sem.Release(1)

	created, err := src.ContractCreationTime(ctx, address)
	if err != nil {
		o.logger.DebugContext(ctx, "creation lookup failed, token treated as not new",
			slog.String("chain", chainID),
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		return false
	}

	return o.now().Sub(created) < o.maxAge
}
