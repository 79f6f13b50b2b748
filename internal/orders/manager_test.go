package orders

import (
	"testing"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func TestReconcilePlacesWhenNoExisting(t *testing.T) {
	t.Parallel()
	m := NewManager()
	d := Decision{}
	d = m.Reconcile("T", types.Yes, &types.Desired{Price: 40, Size: 10}, 0)
	if d.Action != ActionPlace {
		t.Fatalf("action = %v, want place", d.Action)
	}
}

func TestReconcileCancelsWhenNoDesired(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceAck("T", types.Yes, "venue-1")

	d := m.Reconcile("T", types.Yes, nil, 0)
	if d.Action != ActionCancel {
		t.Fatalf("action = %v, want cancel", d.Action)
	}
}

func TestReconcileNoActionWhenMatching(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceAck("T", types.Yes, "venue-1")

	d := m.Reconcile("T", types.Yes, &types.Desired{Price: 40, Size: 10}, 0)
	if d.Action != ActionNone {
		t.Fatalf("action = %v, want none", d.Action)
	}
}

func TestReconcileReplacesWhenPriceDiffers(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceAck("T", types.Yes, "venue-1")

	d := m.Reconcile("T", types.Yes, &types.Desired{Price: 42, Size: 10}, 0)
	if d.Action != ActionReplace {
		t.Fatalf("action = %v, want replace", d.Action)
	}
}

func TestReconcileWithinPriceToleranceIsNoAction(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceAck("T", types.Yes, "venue-1")

	d := m.Reconcile("T", types.Yes, &types.Desired{Price: 41, Size: 10}, 1)
	if d.Action != ActionNone {
		t.Fatalf("action = %v, want none within tolerance", d.Action)
	}
}

func TestReconcileCoalescesWhileInFlight(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10}) // leaves slot in-flight

	d := m.Reconcile("T", types.Yes, &types.Desired{Price: 41, Size: 5}, 0)
	if d.Action != ActionNone {
		t.Fatalf("action = %v, want none while a mutation is in flight", d.Action)
	}

	pending := m.OnPlaceAck("T", types.Yes, "venue-1")
	if pending == nil || pending.Price != 41 || pending.Size != 5 {
		t.Fatalf("expected the coalesced desired state to surface on ack, got %v", pending)
	}
}

func TestStateMachinePlaceToRestingToExecuted(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})

	order, ok := m.Get("T", types.Yes)
	if !ok || order.Status != types.PendingPlace {
		t.Fatalf("expected PendingPlace, got %+v", order)
	}

	m.OnPlaceAck("T", types.Yes, "venue-1")
	order, _ = m.Get("T", types.Yes)
	if order.Status != types.Resting || order.VenueID != "venue-1" {
		t.Fatalf("expected Resting with venue id, got %+v", order)
	}

	m.OnFill("T", types.Yes, 10)
	order, _ = m.Get("T", types.Yes)
	if order.Status != types.Executed || order.RemainingCount != 0 {
		t.Fatalf("expected Executed with zero remaining, got %+v", order)
	}
}

func TestStateMachinePlaceFailureDropsIntent(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceFailed("T", types.Yes)

	if _, ok := m.Get("T", types.Yes); ok {
		t.Fatal("expected no order tracked after a place failure")
	}
}

func TestStateMachineCancelFlow(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	m.OnPlaceAck("T", types.Yes, "venue-1")

	m.BeginCancel("T", types.Yes)
	order, _ := m.Get("T", types.Yes)
	if order.Status != types.PendingCancel {
		t.Fatalf("expected PendingCancel, got %+v", order)
	}

	m.OnCancelAck("T", types.Yes)
	if _, ok := m.Get("T", types.Yes); ok {
		t.Fatal("expected no order tracked after cancel ack")
	}
}

func TestAtMostOneInFlightPerTickerSide(t *testing.T) {
	t.Parallel()
	m := NewManager()
	m.BeginPlace("T", types.Yes, types.Desired{Price: 40, Size: 10})
	if !m.InFlight("T", types.Yes) {
		t.Fatal("expected in-flight after BeginPlace")
	}
	// A second side on the same ticker is independent.
	if m.InFlight("T", types.No) {
		t.Error("a different side should not be in flight")
	}
	m.OnPlaceAck("T", types.Yes, "venue-1")
	if m.InFlight("T", types.Yes) {
		t.Error("expected in-flight to clear after ack")
	}
}
