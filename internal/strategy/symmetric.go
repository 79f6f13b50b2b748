package strategy

import (
	"math"
	"sync"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// SymmetricParams configures the Symmetric strategy.
type SymmetricParams struct {
	SpreadCents int
	SizePerSide int
}

// Symmetric quotes a fixed spread around mid, unconditionally on both
// sides. It carries no state beyond its parameters.
type Symmetric struct {
	mu     sync.RWMutex
	params SymmetricParams
}

// NewSymmetric builds a Symmetric strategy from params.
func NewSymmetric(params SymmetricParams) *Symmetric {
	return &Symmetric{params: params}
}

// ComputeQuotes implements Strategy.
func (s *Symmetric) ComputeQuotes(snap types.MarketSnapshot) []types.Quote {
	if !quotable(snap) {
		return nil
	}

	s.mu.RLock()
	spread := s.params.SpreadCents
	size := s.params.SizePerSide
	s.mu.RUnlock()

	mid := int(math.Round(snap.Mid))
	half := spread / 2
	bid := types.ClampPrice(mid - half)
	ask := types.ClampPrice(mid + (spread - half))
	if ask <= bid {
		return nil
	}

	return []types.Quote{{
		Ticker:   snap.Ticker,
		BidPrice: bid,
		BidSize:  size,
		AskPrice: ask,
		AskSize:  size,
	}}
}

// OnFill is a no-op: Symmetric carries no fill-derived state.
func (s *Symmetric) OnFill(types.Fill) {}

// UpdateParams applies a live parameter change.
func (s *Symmetric) UpdateParams(params map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := params["spread_cents"]; ok {
		s.params.SpreadCents = int(v)
	}
	if v, ok := params["size_per_side"]; ok {
		s.params.SizePerSide = int(v)
	}
}
