// Package chainrpc speaks JSON-RPC 2.0 to EVM nodes: a websocket
// subscription for new pending transaction hashes and an HTTP client to
// resolve a hash into the full transaction.
package chainrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Subscription is one live eth_subscribe("newPendingTransactions") session.
// It is single-connection: when the connection drops, NextHash returns an
// error and the caller (the stream listener) opens a fresh Subscription.
type Subscription struct {
	conn *websocket.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// SubscribePendingTxs dials the websocket endpoint, sends the subscription
// request, and waits for the subscription id acknowledgment.
func SubscribePendingTxs(ctx context.Context, wsURL string) (*Subscription, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: dial %s: %w", wsURL, err)
	}

	sub := &Subscription{
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params:  []any{"newPendingTransactions"},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("chainrpc: subscribe: %w", err)
	}

	// The first frame must be the subscription acknowledgment.
	var resp rpcResponse
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("chainrpc: subscribe ack: %w", err)
	}
	if resp.Error != nil {
		conn.Close()
		return nil, fmt.Errorf("chainrpc: subscribe rejected: %d %s", resp.Error.Code, resp.Error.Message)
	}

	go sub.pingLoop()

	return sub, nil
}

// NextHash blocks until the next pending-transaction hash notification
// arrives. Frames that are not subscription notifications are skipped. Any
// read error (including ping timeout) is returned; the subscription is dead
// afterwards.
func (s *Subscription) NextHash() (string, error) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("chainrpc: %w: %v", domain.ErrWSDisconnect, err)
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var note subscriptionNotification
		if err := json.Unmarshal(message, &note); err != nil {
			continue // drop unparseable frames
		}
		if note.Method != "eth_subscription" || len(note.Params.Result) == 0 {
			continue
		}

		var hash string
		if err := json.Unmarshal(note.Params.Result, &hash); err != nil {
			continue
		}
		hash = strings.ToLower(strings.TrimSpace(hash))
		if hash == "" {
			continue
		}
		return hash, nil
	}
}

// Close tears down the connection. Safe to call multiple times.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = s.conn.Close()
	})
	return err
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *Subscription) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
