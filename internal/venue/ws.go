// ws.go implements the venue's single authenticated WebSocket feed,
// which multiplexes four typed events: orderbook snapshots, orderbook
// deltas, ticker marks, and fills, each tagged with a sequence id and
// market ticker.
//
// The feed auto-reconnects with exponential backoff and resubscribes
// to every tracked ticker on reconnect. A read deadline detects a
// silently dead connection within roughly two missed pings.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

const (
	pingInterval      = 50 * time.Second
	readTimeout       = 90 * time.Second
	writeTimeout      = 10 * time.Second
	eventBufferSize   = 256
	fillBufferSize    = 64
	resetBackoffAfter = 10 * time.Second
)

// EventStream is the typed event surface the bot consumes.
type EventStream interface {
	Snapshots() <-chan types.BookSnapshot
	Deltas() <-chan types.BookDelta
	Tickers() <-chan types.TickerEvent
	Fills() <-chan types.Fill
	Subscribe(ctx context.Context, tickers []string) error
	Unsubscribe(ctx context.Context, tickers []string) error
	Run(ctx context.Context) error
	Close() error
}

// WSFeed is the production EventStream backed by gorilla/websocket.
type WSFeed struct {
	url  string
	auth *Auth

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	snapshotCh chan types.BookSnapshot
	deltaCh    chan types.BookDelta
	tickerCh   chan types.TickerEvent
	fillCh     chan types.Fill

	logger *slog.Logger
}

// NewWSFeed builds a feed that dials wsURL and signs its handshake with auth.
func NewWSFeed(wsURL string, auth *Auth, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		url:        wsURL,
		auth:       auth,
		subscribed: make(map[string]bool),
		snapshotCh: make(chan types.BookSnapshot, eventBufferSize),
		deltaCh:    make(chan types.BookDelta, eventBufferSize),
		tickerCh:   make(chan types.TickerEvent, eventBufferSize),
		fillCh:     make(chan types.Fill, fillBufferSize),
		logger:     logger.With("component", "venue_ws"),
	}
}

func (f *WSFeed) Snapshots() <-chan types.BookSnapshot { return f.snapshotCh }
func (f *WSFeed) Deltas() <-chan types.BookDelta       { return f.deltaCh }
func (f *WSFeed) Tickers() <-chan types.TickerEvent    { return f.tickerCh }
func (f *WSFeed) Fills() <-chan types.Fill             { return f.fillCh }

// Run connects and maintains the connection with exponential backoff,
// resetting the backoff interval once a connection has proven stable.
// Blocks until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // retry indefinitely

	for {
		connectedAt := time.Now()
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(connectedAt) > resetBackoffAfter {
			b.Reset()
		}
		wait := b.NextBackOff()

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Subscribe adds tickers to the feed's subscription set.
func (f *WSFeed) Subscribe(ctx context.Context, tickers []string) error {
	f.subscribedMu.Lock()
	for _, t := range tickers {
		f.subscribed[t] = true
	}
	f.subscribedMu.Unlock()

	return f.writeJSON(map[string]any{"cmd": "subscribe", "market_tickers": tickers})
}

// Unsubscribe removes tickers from the feed's subscription set.
func (f *WSFeed) Unsubscribe(ctx context.Context, tickers []string) error {
	f.subscribedMu.Lock()
	for _, t := range tickers {
		delete(f.subscribed, t)
	}
	f.subscribedMu.Unlock()

	return f.writeJSON(map[string]any{"cmd": "unsubscribe", "market_tickers": tickers})
}

// Close gracefully closes the connection.
func (f *WSFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *WSFeed) connectAndRead(ctx context.Context) error {
	headers, err := f.auth.Headers("GET", "/trade-api/ws/v2")
	if err != nil {
		return fmt.Errorf("venue: ws auth headers: %w", err)
	}
	httpHeaders := make(map[string][]string, len(headers))
	for k, v := range headers {
		httpHeaders[k] = []string{v}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, httpHeaders)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.resubscribeAll(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatchMessage(msg)
	}
}

func (f *WSFeed) resubscribeAll() error {
	f.subscribedMu.RLock()
	tickers := make([]string, 0, len(f.subscribed))
	for t := range f.subscribed {
		tickers = append(tickers, t)
	}
	f.subscribedMu.RUnlock()

	if len(tickers) == 0 {
		return nil
	}
	return f.writeJSON(map[string]any{"cmd": "subscribe", "market_tickers": tickers})
}

func (f *WSFeed) dispatchMessage(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message")
		return
	}

	switch envelope.Type {
	case "orderbook_snapshot":
		var evt types.BookSnapshot
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal snapshot", "error", err)
			return
		}
		select {
		case f.snapshotCh <- evt:
		default:
			f.logger.Warn("snapshot channel full, dropping event", "ticker", evt.Ticker)
		}

	case "orderbook_delta":
		var evt types.BookDelta
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal delta", "error", err)
			return
		}
		select {
		case f.deltaCh <- evt:
		default:
			f.logger.Warn("delta channel full, dropping event", "ticker", evt.Ticker)
		}

	case "ticker":
		var evt types.TickerEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal ticker", "error", err)
			return
		}
		select {
		case f.tickerCh <- evt:
		default:
			f.logger.Warn("ticker channel full, dropping event", "ticker", evt.Ticker)
		}

	case "fill":
		var evt types.Fill
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal fill", "error", err)
			return
		}
		select {
		case f.fillCh <- evt:
		default:
			f.logger.Warn("fill channel full, dropping event", "ticker", evt.Ticker)
		}

	default:
		f.logger.Debug("unknown ws event type", "type", envelope.Type)
	}
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *WSFeed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *WSFeed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
