package watch

import (
	"context"
	"log/slog"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/Theoretician9/telegram-leads-bot/internal/notify"
)

// Alerter delivers a formatted notification for an event type. Satisfied by
// notify.Notifier.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Dispatcher is the single convergence point of both detection paths. It
// owns the SentTokenSet: an event whose key was already alerted is dropped
// here, which is what makes the at-most-one-alert contract hold across the
// poll and stream paths.
type Dispatcher struct {
	sent     domain.SeenSet
	alerter  Alerter
	audit    domain.AuditStore   // optional
	listings domain.ListingStore // optional
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. audit and listings may be nil.
func NewDispatcher(sent domain.SeenSet, alerter Alerter, audit domain.AuditStore, listings domain.ListingStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sent:     sent,
		alerter:  alerter,
		audit:    audit,
		listings: listings,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch deduplicates, persists, and delivers a listing event. Sink
// failures are logged and never propagated: a broken notifier or audit store
// must not stop correlation. The returned bool reports whether the event was
// new (and therefore delivered).
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ListingEvent) bool {
	isNew, err := d.sent.Add(ctx, event.ChainID, event.Key())
	if err != nil {
		// A failing sent-set backend means we cannot prove the event is a
		// duplicate. Fail closed: no alert rather than a possible repeat.
		d.logger.ErrorContext(ctx, "sent set unavailable, dropping event",
			slog.String("chain", event.ChainID),
			slog.String("key", event.Key()),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !isNew {
		d.logger.DebugContext(ctx, "duplicate listing suppressed",
			slog.String("chain", event.ChainID),
			slog.String("key", event.Key()),
			slog.String("via", string(event.DetectedVia)),
		)
		return false
	}

	d.logger.InfoContext(ctx, "new listing detected",
		slog.String("chain", event.ChainID),
		slog.String("token", event.TokenAddress),
		slog.String("pool", event.PoolID),
		slog.String("via", string(event.DetectedVia)),
		slog.String("match", string(event.Match)),
		slog.Float64("liquidity_usd", event.LiquidityUSD),
		slog.Float64("volume_usd", event.VolumeUSD),
	)

	if d.listings != nil {
		if err := d.listings.Insert(ctx, event); err != nil {
			d.logger.ErrorContext(ctx, "listing store insert failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if d.audit != nil {
		if err := d.audit.Log(ctx, "listing_detected", map[string]any{
			"chain":         event.ChainID,
			"token":         event.TokenAddress,
			"pool":          event.PoolID,
			"dex":           event.DexAddress,
			"liquidity_usd": event.LiquidityUSD,
			"volume_usd":    event.VolumeUSD,
			"via":           string(event.DetectedVia),
			"match":         string(event.Match),
		}); err != nil {
			d.logger.ErrorContext(ctx, "audit log failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if d.alerter != nil {
		title, message := notify.FormatListingAlert(event)
		if err := d.alerter.Notify(ctx, "listing_detected", title, message); err != nil {
			d.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return true
}
