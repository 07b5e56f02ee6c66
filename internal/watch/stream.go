package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/platform/chainrpc"
)

// TxSource is one live pending-transaction subscription.
type TxSource interface {
	NextHash() (string, error)
	Close() error
}

// Subscriber opens a pending-transaction subscription against a chain's
// websocket endpoint.
type Subscriber func(ctx context.Context, wsURL string) (TxSource, error)

// HashResolver turns a transaction hash into a full transaction, or
// (nil, nil) when the node has already evicted it.
type HashResolver interface {
	TransactionByHash(ctx context.Context, hash string) (*chainrpc.RPCTransaction, error)
}

// StreamConfig holds per-listener stream parameters.
type StreamConfig struct {
	ReconnectBase  time.Duration
	ReconnectMax   time.Duration
	ResolveTimeout time.Duration
}

// StreamListener runs the live detection path for one chain: it keeps a
// pending-transaction subscription alive across disconnects, resolves each
// hash into a full transaction, and feeds the result to the correlator.
// Correlation state survives reconnects untouched.
type StreamListener struct {
	chainID    string
	wsURL      string
	cfg        StreamConfig
	subscribe  Subscriber
	resolver   HashResolver
	correlator *Correlator
	logger     *slog.Logger
}

// NewStreamListener creates a listener for one chain's websocket endpoint.
func NewStreamListener(chainID, wsURL string, cfg StreamConfig, subscribe Subscriber, resolver HashResolver, correlator *Correlator, logger *slog.Logger) *StreamListener {
	return &StreamListener{
		chainID:    chainID,
		wsURL:      wsURL,
		cfg:        cfg,
		subscribe:  subscribe,
		resolver:   resolver,
		correlator: correlator,
		logger: logger.With(
			slog.String("component", "stream"),
			slog.String("chain", chainID),
		),
	}
}

// Run maintains the subscription until the context is cancelled. Reconnects
// use exponential backoff with jitter; the backoff resets after every
// successful subscribe.
func (l *StreamListener) Run(ctx context.Context) error {
	backoff := NewBackoff(l.cfg.ReconnectBase, l.cfg.ReconnectMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sub, err := l.subscribe(ctx, l.wsURL)
		if err != nil {
			delay := backoff.Next()
			l.logger.WarnContext(ctx, "subscribe failed, retrying",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", delay),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			continue
		}

		backoff.Reset()
		l.logger.InfoContext(ctx, "subscribed to pending transactions")

		err = l.consume(ctx, sub)
		sub.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoff.Next()
		l.logger.WarnContext(ctx, "subscription lost, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", delay),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// consume drains hashes from one subscription until it dies.
func (l *StreamListener) consume(ctx context.Context, sub TxSource) error {
	// Unblock NextHash when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { sub.Close() })
	defer stop()

	for {
		hash, err := sub.NextHash()
		if err != nil {
			return err
		}
		l.handleHash(ctx, hash)
	}
}

// handleHash resolves one hash and forwards the transaction. Resolution
// failures and evicted transactions are skipped: the stream must keep up
// with the firehose, not chase stragglers.
func (l *StreamListener) handleHash(ctx context.Context, hash string) {
	resolveCtx, cancel := context.WithTimeout(ctx, l.cfg.ResolveTimeout)
	defer cancel()

	raw, err := l.resolver.TransactionByHash(resolveCtx, hash)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.DebugContext(ctx, "resolve failed",
				slog.String("tx", hash),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if raw == nil {
		return // evicted before we could resolve it
	}

	tx, ok := raw.ToPendingTx(l.chainID)
	if !ok {
		return
	}
	l.correlator.HandleTx(ctx, tx)
}

// SubscribeChain adapts chainrpc.SubscribePendingTxs to the Subscriber type.
func SubscribeChain(ctx context.Context, wsURL string) (TxSource, error) {
	return chainrpc.SubscribePendingTxs(ctx, wsURL)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ HashResolver = (*chainrpc.TxResolver)(nil)
