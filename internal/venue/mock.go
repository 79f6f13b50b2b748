package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// MockClient is an in-memory Client for tests: no network calls, every
// placed order is accepted immediately with a generated venue id.
type MockClient struct {
	mu        sync.Mutex
	orders    map[string]bool // venue id -> still resting
	positions []types.Position
	balance   int

	PlaceErr  error // when set, PlaceOrder always fails with this error
	CancelErr error // when set, CancelOrder/BatchCancel always fail with this error
}

// NewMockClient creates an empty mock venue client.
func NewMockClient() *MockClient {
	return &MockClient{orders: make(map[string]bool)}
}

func (m *MockClient) PlaceOrder(ctx context.Context, ticker string, side types.Side, action types.Action, price, count int) (string, error) {
	if m.PlaceErr != nil {
		return "", m.PlaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.orders[id] = true
	return id, nil
}

func (m *MockClient) CancelOrder(ctx context.Context, venueID string) error {
	if m.CancelErr != nil {
		return m.CancelErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.orders[venueID] {
		return fmt.Errorf("venue: unknown order %s", venueID)
	}
	delete(m.orders, venueID)
	return nil
}

func (m *MockClient) BatchCancel(ctx context.Context, venueIDs []string) ([]string, error) {
	if m.CancelErr != nil {
		return nil, m.CancelErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	canceled := make([]string, 0, len(venueIDs))
	for _, id := range venueIDs {
		if m.orders[id] {
			delete(m.orders, id)
			canceled = append(canceled, id)
		}
	}
	return canceled, nil
}

func (m *MockClient) FetchPositions(ctx context.Context) ([]types.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Position, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

func (m *MockClient) FetchBalance(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

// SetPositions seeds the positions FetchPositions will return.
func (m *MockClient) SetPositions(positions []types.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

// SetBalance seeds the balance FetchBalance will return.
func (m *MockClient) SetBalance(balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
}

// IsResting reports whether venueID is still tracked as an open order.
func (m *MockClient) IsResting(venueID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[venueID]
}

// OrderCount returns the number of orders currently tracked as resting.
func (m *MockClient) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// MockEventStream is an in-memory EventStream for tests: events are
// injected directly via the Push* methods instead of arriving over a
// real socket.
type MockEventStream struct {
	snapshotCh chan types.BookSnapshot
	deltaCh    chan types.BookDelta
	tickerCh   chan types.TickerEvent
	fillCh     chan types.Fill

	mu         sync.Mutex
	subscribed map[string]bool
}

// NewMockEventStream creates an in-memory event stream.
func NewMockEventStream() *MockEventStream {
	return &MockEventStream{
		snapshotCh: make(chan types.BookSnapshot, eventBufferSize),
		deltaCh:    make(chan types.BookDelta, eventBufferSize),
		tickerCh:   make(chan types.TickerEvent, eventBufferSize),
		fillCh:     make(chan types.Fill, fillBufferSize),
		subscribed: make(map[string]bool),
	}
}

func (m *MockEventStream) Snapshots() <-chan types.BookSnapshot { return m.snapshotCh }
func (m *MockEventStream) Deltas() <-chan types.BookDelta       { return m.deltaCh }
func (m *MockEventStream) Tickers() <-chan types.TickerEvent    { return m.tickerCh }
func (m *MockEventStream) Fills() <-chan types.Fill             { return m.fillCh }

func (m *MockEventStream) Subscribe(ctx context.Context, tickers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickers {
		m.subscribed[t] = true
	}
	return nil
}

func (m *MockEventStream) Unsubscribe(ctx context.Context, tickers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickers {
		delete(m.subscribed, t)
	}
	return nil
}

// Run blocks until ctx is cancelled; there is no real connection to maintain.
func (m *MockEventStream) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockEventStream) Close() error { return nil }

// PushSnapshot injects a snapshot event as if it arrived over the wire.
func (m *MockEventStream) PushSnapshot(s types.BookSnapshot) { m.snapshotCh <- s }

// PushDelta injects a delta event.
func (m *MockEventStream) PushDelta(d types.BookDelta) { m.deltaCh <- d }

// PushTicker injects a ticker mark event.
func (m *MockEventStream) PushTicker(t types.TickerEvent) { m.tickerCh <- t }

// PushFill injects a fill event.
func (m *MockEventStream) PushFill(f types.Fill) { m.fillCh <- f }
