package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func TestMockClientPlaceAndCancel(t *testing.T) {
	t.Parallel()
	m := NewMockClient()

	id, err := m.PlaceOrder(context.Background(), "T", types.Yes, types.Buy, 40, 10)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !m.IsResting(id) {
		t.Fatal("expected placed order to be resting")
	}

	if err := m.CancelOrder(context.Background(), id); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if m.IsResting(id) {
		t.Error("expected order to no longer be resting after cancel")
	}
}

func TestMockClientCancelUnknownOrder(t *testing.T) {
	t.Parallel()
	m := NewMockClient()
	if err := m.CancelOrder(context.Background(), "nonexistent"); err == nil {
		t.Error("expected an error cancelling an unknown order")
	}
}

func TestMockClientBatchCancel(t *testing.T) {
	t.Parallel()
	m := NewMockClient()
	id1, _ := m.PlaceOrder(context.Background(), "T", types.Yes, types.Buy, 40, 10)
	id2, _ := m.PlaceOrder(context.Background(), "T", types.No, types.Buy, 45, 10)

	canceled, err := m.BatchCancel(context.Background(), []string{id1, id2, "bogus"})
	if err != nil {
		t.Fatalf("BatchCancel: %v", err)
	}
	if len(canceled) != 2 {
		t.Errorf("canceled = %v, want 2 real ids", canceled)
	}
}

func TestMockClientInjectedErrors(t *testing.T) {
	t.Parallel()
	m := NewMockClient()
	m.PlaceErr = errors.New("boom")
	if _, err := m.PlaceOrder(context.Background(), "T", types.Yes, types.Buy, 40, 10); err == nil {
		t.Error("expected injected PlaceErr to surface")
	}
}

func TestMockClientFetchPositionsAndBalance(t *testing.T) {
	t.Parallel()
	m := NewMockClient()
	m.SetPositions([]types.Position{{Ticker: "T", YesContracts: 10}})
	m.SetBalance(5000)

	positions, err := m.FetchPositions(context.Background())
	if err != nil || len(positions) != 1 {
		t.Fatalf("FetchPositions: %v, %v", positions, err)
	}
	balance, err := m.FetchBalance(context.Background())
	if err != nil || balance != 5000 {
		t.Fatalf("FetchBalance = %d, %v", balance, err)
	}
}

func TestMockEventStreamPushAndReceive(t *testing.T) {
	t.Parallel()
	s := NewMockEventStream()
	s.PushFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 5, Price: 50})

	select {
	case f := <-s.Fills():
		if f.Ticker != "T" {
			t.Errorf("ticker = %q, want T", f.Ticker)
		}
	default:
		t.Fatal("expected a fill to be immediately available")
	}
}

func TestMockEventStreamRunBlocksUntilCancel(t *testing.T) {
	t.Parallel()
	s := NewMockEventStream()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	if err := <-done; err == nil {
		t.Error("expected Run to return ctx.Err() after cancellation")
	}
}
