package strategy

import (
	"math"
	"sync"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// avellanedaCentsScale converts the Avellaneda-Stoikov spread, which
// comes out in probability units, into cents. It assumes sigma is
// expressed in percentage-of-price terms; this is not re-derived from
// first principles, just carried as the scale the formula expects.
const avellanedaCentsScale = 100.0

// AvellanedaParams configures the Avellaneda-Stoikov strategy.
type AvellanedaParams struct {
	Gamma               float64 // risk aversion
	Sigma               float64 // volatility
	K                   float64 // order arrival intensity
	HorizonSeconds      float64 // fixed horizon used when time_to_expiry is unavailable
	TerminalFloorSec    float64 // skip quoting below this time-to-expiry; 0 means use default
	MinSpreadCents      int
	MaxSpreadCents      int
	SizePerSide         int
	MaxPositionContract int
}

const defaultTerminalFloorSeconds = 300.0

// Avellaneda implements the inventory-aware Avellaneda-Stoikov model
// adapted for binary markets priced in integer cents.
type Avellaneda struct {
	mu     sync.RWMutex
	params AvellanedaParams
}

// NewAvellaneda builds an Avellaneda strategy from params.
func NewAvellaneda(params AvellanedaParams) *Avellaneda {
	return &Avellaneda{params: params}
}

// ComputeQuotes implements Strategy.
func (a *Avellaneda) ComputeQuotes(snap types.MarketSnapshot) []types.Quote {
	if !quotable(snap) {
		return nil
	}

	a.mu.RLock()
	p := a.params
	a.mu.RUnlock()

	floor := p.TerminalFloorSec
	if floor <= 0 {
		floor = defaultTerminalFloorSeconds
	}
	horizonSeconds := p.HorizonSeconds
	if snap.HasExpiry && snap.TimeToExpiry > 0 {
		horizonSeconds = snap.TimeToExpiry.Seconds()
	}
	if horizonSeconds < floor {
		return nil
	}

	fair := snap.Mid
	if snap.HasMicroprice {
		fair = snap.Microprice
	}

	q := 0.0
	if snap.HasPosition {
		q = float64(snap.Position.NetExposure())
	}

	tau := horizonSeconds / 3600.0
	reservation := fair - q*p.Gamma*p.Sigma*p.Sigma*tau

	optSpread := (p.Gamma*p.Sigma*p.Sigma*tau + (2.0/p.Gamma)*math.Log(1+p.Gamma/p.K)) * avellanedaCentsScale
	if optSpread < float64(p.MinSpreadCents) {
		optSpread = float64(p.MinSpreadCents)
	}
	if optSpread > float64(p.MaxSpreadCents) {
		optSpread = float64(p.MaxSpreadCents)
	}

	bid := types.ClampPrice(int(math.Round(reservation - optSpread/2)))
	ask := types.ClampPrice(int(math.Round(reservation + optSpread/2)))
	if ask <= bid {
		return nil
	}

	bidSize := p.SizePerSide
	askSize := p.SizePerSide
	if p.MaxPositionContract > 0 {
		if q >= float64(p.MaxPositionContract) {
			bidSize = 0
		}
		if q <= -float64(p.MaxPositionContract) {
			askSize = 0
		}
	}
	if bidSize == 0 && askSize == 0 {
		return nil
	}

	return []types.Quote{{
		Ticker:   snap.Ticker,
		BidPrice: bid,
		BidSize:  bidSize,
		AskPrice: ask,
		AskSize:  askSize,
	}}
}

// OnFill is a no-op: inventory skew is read from the snapshot each tick.
func (a *Avellaneda) OnFill(types.Fill) {}

// UpdateParams applies a live parameter change.
func (a *Avellaneda) UpdateParams(params map[string]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := params["gamma"]; ok {
		a.params.Gamma = v
	}
	if v, ok := params["sigma"]; ok {
		a.params.Sigma = v
	}
	if v, ok := params["k"]; ok {
		a.params.K = v
	}
	if v, ok := params["horizon_seconds"]; ok {
		a.params.HorizonSeconds = v
	}
	if v, ok := params["terminal_floor_seconds"]; ok {
		a.params.TerminalFloorSec = v
	}
	if v, ok := params["min_spread"]; ok {
		a.params.MinSpreadCents = int(v)
	}
	if v, ok := params["max_spread"]; ok {
		a.params.MaxSpreadCents = int(v)
	}
	if v, ok := params["size_per_side"]; ok {
		a.params.SizePerSide = int(v)
	}
	if v, ok := params["max_position"]; ok {
		a.params.MaxPositionContract = int(v)
	}
}
