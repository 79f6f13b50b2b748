// Package strategy computes desired quotes from a market snapshot.
//
// A Strategy is a pure function of MarketSnapshot to zero or one Quote,
// with optional OnFill and UpdateParams hooks for strategies that carry
// internal state (inventory skew, recent fills). All three variants
// share the same snapshot-to-quote contract so the order manager never
// needs to know which one produced a quote.
package strategy

import (
	"fmt"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Strategy computes quotes for a single market from its snapshot.
type Strategy interface {
	// ComputeQuotes returns zero or one desired Quote for snapshot.
	ComputeQuotes(snap types.MarketSnapshot) []types.Quote
	// OnFill lets stateful strategies react to a fill (e.g. adverse
	// detection or inventory-skew bookkeeping kept outside the tracker).
	OnFill(fill types.Fill)
	// UpdateParams applies a live parameter update, e.g. from the
	// control plane, keyed by parameter name.
	UpdateParams(params map[string]float64)
}

// quotable mirrors the snapshot-level precondition every strategy
// checks before computing prices.
func quotable(snap types.MarketSnapshot) bool {
	return snap.Quotable()
}

// Factory constructs a named strategy variant from its parameters.
func Factory(name string, params map[string]float64) (Strategy, error) {
	switch name {
	case "symmetric":
		return NewSymmetric(SymmetricParams{
			SpreadCents: int(params["spread_cents"]),
			SizePerSide: int(params["size_per_side"]),
		}), nil
	case "avellaneda":
		return NewAvellaneda(AvellanedaParams{
			Gamma:               params["gamma"],
			Sigma:               params["sigma"],
			K:                   params["k"],
			HorizonSeconds:      params["horizon_seconds"],
			TerminalFloorSec:    params["terminal_floor_seconds"],
			MinSpreadCents:      int(params["min_spread"]),
			MaxSpreadCents:      int(params["max_spread"]),
			SizePerSide:         int(params["size_per_side"]),
			MaxPositionContract: int(params["max_position"]),
		}), nil
	case "optimism-tax":
		return NewOptimismTax(OptimismTaxParams{
			LongshotThreshold:      int(params["longshot_threshold"]),
			NearlyCertainThreshold: int(params["nearly_certain_threshold"]),
			SizePerSide:            int(params["size_per_side"]),
			ZoneSizeMultiplier:     params["zone_size_multiplier"],
			LongshotExposureCap:    int(params["longshot_exposure_cap"]),
			AdverseSpreadInflation: int(params["adverse_spread_inflation"]),
		}), nil
	default:
		return nil, fmt.Errorf("strategy: unknown variant %q", name)
	}
}
