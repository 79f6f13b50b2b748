// Package orders tracks the venue's resting orders and decides what
// to place, cancel, or replace to match a strategy's desired quotes.
package orders

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Action is the decision Reconcile returns for one (ticker, side).
type Action int

const (
	ActionNone Action = iota
	ActionPlace
	ActionCancel
	ActionReplace
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionPlace:
		return "place"
	case ActionCancel:
		return "cancel"
	case ActionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a single Reconcile call.
type Decision struct {
	Action  Action
	Desired types.Desired // valid when Action is Place or Replace
}

// slot holds the per-(ticker,side) bookkeeping: the resting order (if
// any), whether a venue mutation is currently in flight, and the most
// recently requested desired state that arrived while one was.
type slot struct {
	order      *types.ManagedOrder
	inFlight   bool
	hasPending bool
	pending    *types.Desired // nil means "no quote desired"
}

// Manager owns the truth of what orders exist at the venue for each
// (ticker, side) and enforces the at-most-one-in-flight-mutation
// invariant.
type Manager struct {
	mu    sync.Mutex
	slots map[string]map[types.Side]*slot
}

// NewManager creates an empty order manager.
func NewManager() *Manager {
	return &Manager{slots: make(map[string]map[types.Side]*slot)}
}

func (m *Manager) slotLocked(ticker string, side types.Side) *slot {
	bySide, ok := m.slots[ticker]
	if !ok {
		bySide = make(map[types.Side]*slot)
		m.slots[ticker] = bySide
	}
	s, ok := bySide[side]
	if !ok {
		s = &slot{}
		bySide[side] = s
	}
	return s
}

// Reconcile compares desired against the existing resting order for
// (ticker, side) and returns the action to take. If a mutation is
// already in flight for this slot, the desired state is coalesced
// (overwriting any previously queued one) and ActionNone is returned
// — no new venue call is issued until the in-flight one resolves.
func (m *Manager) Reconcile(ticker string, side types.Side, desired *types.Desired, priceTolerance int) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)

	if s.inFlight {
		s.hasPending = true
		s.pending = desired
		return Decision{Action: ActionNone}
	}

	existing := s.order

	switch {
	case existing == nil && desired == nil:
		return Decision{Action: ActionNone}
	case existing == nil && desired != nil:
		return Decision{Action: ActionPlace, Desired: *desired}
	case existing != nil && desired == nil:
		return Decision{Action: ActionCancel}
	default:
		priceDiff := existing.Price - desired.Price
		if priceDiff < 0 {
			priceDiff = -priceDiff
		}
		if priceDiff <= priceTolerance && existing.RemainingCount == desired.Size {
			return Decision{Action: ActionNone}
		}
		return Decision{Action: ActionReplace, Desired: *desired}
	}
}

// BeginPlace transitions (ticker, side) into PendingPlace, marking the
// slot in-flight, and returns a fresh internal order id.
func (m *Manager) BeginPlace(ticker string, side types.Side, desired types.Desired) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	s.inFlight = true
	id := uuid.NewString()
	s.order = &types.ManagedOrder{
		InternalID:     id,
		Ticker:         ticker,
		Side:           side,
		Price:          desired.Price,
		RemainingCount: desired.Size,
		Status:         types.PendingPlace,
		UpdatedAt:      time.Now(),
	}
	return id
}

// OnPlaceAck records a successful place, attaching the venue id and
// moving the order to Resting. It clears in-flight and, if a desired
// state was coalesced while the call was outstanding, returns it so
// the caller can immediately reconcile again.
func (m *Manager) OnPlaceAck(ticker string, side types.Side, venueID string) *types.Desired {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	if s.order != nil {
		s.order.VenueID = venueID
		s.order.Status = types.Resting
		s.order.UpdatedAt = time.Now()
	}
	return m.clearInFlightLocked(s)
}

// OnPlaceFailed drops the intent entirely: the attempt is fatal, per
// the order manager's failure semantics.
func (m *Manager) OnPlaceFailed(ticker string, side types.Side) *types.Desired {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	s.order = nil
	return m.clearInFlightLocked(s)
}

// BeginCancel transitions the resting order into PendingCancel and
// marks the slot in-flight.
func (m *Manager) BeginCancel(ticker string, side types.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	s.inFlight = true
	if s.order != nil {
		s.order.Status = types.PendingCancel
		s.order.UpdatedAt = time.Now()
	}
}

// OnCancelAck finalizes a cancel, clearing the slot's order. A
// cancel-failure reporting "unknown order" should also call this —
// the order is already gone at the venue.
func (m *Manager) OnCancelAck(ticker string, side types.Side) *types.Desired {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	s.order = nil
	return m.clearInFlightLocked(s)
}

func (m *Manager) clearInFlightLocked(s *slot) *types.Desired {
	s.inFlight = false
	if !s.hasPending {
		return nil
	}
	s.hasPending = false
	p := s.pending
	s.pending = nil
	return p
}

// OnFill applies a fill's count to the resting order, marking it
// Executed once remaining_count reaches zero.
func (m *Manager) OnFill(ticker string, side types.Side, filledCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	if s.order == nil {
		return
	}
	s.order.RemainingCount -= filledCount
	if s.order.RemainingCount <= 0 {
		s.order.RemainingCount = 0
		s.order.Status = types.Executed
	}
	s.order.UpdatedAt = time.Now()
}

// Get returns the current resting/pending order for (ticker, side), if any.
func (m *Manager) Get(ticker string, side types.Side) (types.ManagedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotLocked(ticker, side)
	if s.order == nil {
		return types.ManagedOrder{}, false
	}
	return *s.order, true
}

// InFlight reports whether a mutation is outstanding for (ticker, side).
func (m *Manager) InFlight(ticker string, side types.Side) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotLocked(ticker, side).inFlight
}

// AllForTicker returns every tracked order (by side) for ticker.
func (m *Manager) AllForTicker(ticker string) map[types.Side]types.ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[types.Side]types.ManagedOrder)
	for side, s := range m.slots[ticker] {
		if s.order != nil {
			out[side] = *s.order
		}
	}
	return out
}

// RemoveMarket drops all tracked state for ticker, e.g. on RemoveMarket.
func (m *Manager) RemoveMarket(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, ticker)
}
