// Package app provides the top-level application lifecycle management for
// the leads bot. It wires together all dependencies (stores, caches, blob
// storage, notification channels) and starts the appropriate goroutines
// based on the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Theoretician9/telegram-leads-bot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, starts the corresponding goroutines, and blocks until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logRecentListings(ctx, deps)

	switch strings.ToLower(a.cfg.Mode) {
	case "poll":
		return a.PollMode(ctx, deps)
	case "stream":
		return a.StreamMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// logRecentListings surfaces the latest persisted listings at startup so
// operators can see what the detector found before the restart. Purely
// informational; lookup failures are logged and ignored.
func (a *App) logRecentListings(ctx context.Context, deps *Dependencies) {
	if deps.Listings == nil {
		return
	}

	events, err := deps.Listings.ListRecent(ctx, 5)
	if err != nil {
		a.logger.WarnContext(ctx, "listing history lookup failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(events) == 0 {
		return
	}

	latest := events[0]
	a.logger.InfoContext(ctx, "recent listings",
		slog.Int("count", len(events)),
		slog.String("latest_chain", latest.ChainID),
		slog.String("latest_token", latest.TokenAddress),
		slog.Time("latest_at", latest.Timestamp),
	)
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
