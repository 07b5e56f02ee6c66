package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/Theoretician9/telegram-leads-bot/internal/platform/chainrpc"
)

// fakeSource replays a fixed hash sequence, then fails like a dropped
// connection. Close unblocks a pending NextHash the way a torn-down
// websocket would.
type fakeSource struct {
	hashes    chan string
	done      chan struct{}
	closeOnce sync.Once

	// failWhenDrained makes NextHash fail once the queue is empty instead
	// of blocking until Close, simulating a connection drop.
	failWhenDrained bool
}

func newFakeSource(failWhenDrained bool, hashes ...string) *fakeSource {
	f := &fakeSource{
		hashes:          make(chan string, len(hashes)),
		done:            make(chan struct{}),
		failWhenDrained: failWhenDrained,
	}
	for _, h := range hashes {
		f.hashes <- h
	}
	return f
}

func (f *fakeSource) NextHash() (string, error) {
	select {
	case h := <-f.hashes:
		return h, nil
	default:
	}
	if f.failWhenDrained {
		return "", domain.ErrWSDisconnect
	}
	select {
	case h := <-f.hashes:
		return h, nil
	case <-f.done:
		return "", domain.ErrWSDisconnect
	}
}

func (f *fakeSource) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

// fakeResolver resolves hashes from a fixed table; unknown hashes behave
// like evicted transactions.
type fakeResolver struct {
	txs map[string]*chainrpc.RPCTransaction
}

func (f *fakeResolver) TransactionByHash(_ context.Context, hash string) (*chainrpc.RPCTransaction, error) {
	return f.txs[hash], nil
}

func newStreamCorrelator() (*Correlator, *stubListings) {
	listings := &stubListings{}
	dispatcher := NewDispatcher(NewMemorySeenSet(), nil, nil, listings, testLogger())
	c := NewCorrelator(
		CorrelatorConfig{PendingTTL: 72 * time.Hour},
		map[string][]string{"bsc": {routerAddr}},
		NewClassifier(nil),
		NewMemoryPendingStore(),
		dispatcher,
		testLogger(),
	)
	return c, listings
}

func TestStreamListenerCorrelatesAcrossReconnects(t *testing.T) {
	correlator, listings := newStreamCorrelator()

	router := routerAddr
	resolver := &fakeResolver{txs: map[string]*chainrpc.RPCTransaction{
		"0xh1": {Hash: "0xh1", From: deployerAddr, To: nil, Input: "0x60806040"},
		"0xh2": {Hash: "0xh2", From: deployerAddr, To: &router, Input: "0xf305d719aa"},
	}}

	// First session carries the deploy, second the liquidity call. The
	// pending entry must survive the reconnect in between.
	sessions := make(chan *fakeSource, 2)
	sessions <- newFakeSource(true, "0xh1")
	sessions <- newFakeSource(false, "0xh2")

	var subscribes atomic.Int32
	subscribe := func(ctx context.Context, _ string) (TxSource, error) {
		subscribes.Add(1)
		select {
		case s := <-sessions:
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	listener := NewStreamListener(
		"bsc", "wss://example.invalid/ws",
		StreamConfig{ReconnectBase: time.Millisecond, ReconnectMax: 5 * time.Millisecond, ResolveTimeout: time.Second},
		subscribe,
		resolver,
		correlator,
		testLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(listings.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, subscribes.Load(), int32(2), "listener must have reconnected")
	evt := listings.all()[0]
	assert.Equal(t, domain.DetectedViaStream, evt.DetectedVia)
	assert.Equal(t, deployerAddr, evt.TokenAddress)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStreamListenerRetriesFailedSubscribe(t *testing.T) {
	correlator, _ := newStreamCorrelator()

	var attempts atomic.Int32
	subscribe := func(context.Context, string) (TxSource, error) {
		attempts.Add(1)
		return nil, errors.New("dial refused")
	}

	listener := NewStreamListener(
		"bsc", "wss://example.invalid/ws",
		StreamConfig{ReconnectBase: time.Millisecond, ReconnectMax: 2 * time.Millisecond, ResolveTimeout: time.Second},
		subscribe,
		&fakeResolver{},
		correlator,
		testLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	require.Eventually(t, func() bool {
		return attempts.Load() >= 3
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStreamListenerSkipsEvictedTransactions(t *testing.T) {
	correlator, listings := newStreamCorrelator()

	sessions := make(chan *fakeSource, 1)
	sessions <- newFakeSource(true, "0xunknown")
	subscribe := func(ctx context.Context, _ string) (TxSource, error) {
		select {
		case s := <-sessions:
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	listener := NewStreamListener(
		"bsc", "wss://example.invalid/ws",
		StreamConfig{ReconnectBase: time.Millisecond, ReconnectMax: 2 * time.Millisecond, ResolveTimeout: time.Second},
		subscribe,
		&fakeResolver{txs: map[string]*chainrpc.RPCTransaction{}},
		correlator,
		testLogger(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := listener.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, listings.all())
}
