package strategy

import (
	"sync"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// zone names the price band a market currently sits in, as judged by
// best_bid on the YES side.
type zone int

const (
	zoneMiddle zone = iota
	zoneLongshot
	zoneNearlyCertain
)

// OptimismTaxParams configures the zone-aware strategy.
type OptimismTaxParams struct {
	LongshotThreshold      int
	NearlyCertainThreshold int
	SizePerSide            int
	ZoneSizeMultiplier     float64
	LongshotExposureCap    int
	AdverseSpreadInflation int
}

// OptimismTax exploits the "favorite-longshot bias" retail flow tends
// to exhibit in binary markets: cheap longshots are systematically
// overpriced relative to fair value and expensive near-certainties are
// systematically underpriced, so it sells more aggressively into
// longshots and buys more aggressively into near-certainties.
type OptimismTax struct {
	mu     sync.RWMutex
	params OptimismTaxParams
}

// NewOptimismTax builds an OptimismTax strategy from params.
func NewOptimismTax(params OptimismTaxParams) *OptimismTax {
	return &OptimismTax{params: params}
}

func classifyZone(bestBidYes, longshotThreshold, nearlyCertainThreshold int) zone {
	switch {
	case bestBidYes >= 1 && bestBidYes <= longshotThreshold:
		return zoneLongshot
	case bestBidYes >= nearlyCertainThreshold && bestBidYes <= 99:
		return zoneNearlyCertain
	default:
		return zoneMiddle
	}
}

func ceilMult(size int, mult float64) int {
	v := float64(size) * mult
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}

func floorHalf(size int) int {
	return size / 2
}

// ComputeQuotes implements Strategy.
func (o *OptimismTax) ComputeQuotes(snap types.MarketSnapshot) []types.Quote {
	if !quotable(snap) {
		return nil
	}

	o.mu.RLock()
	p := o.params
	o.mu.RUnlock()

	bid, ask := snap.BestBid, snap.BestAsk

	if snap.AdverseSelected {
		currentSpread := ask - bid
		if currentSpread+p.AdverseSpreadInflation > 20 {
			return nil
		}
		widen := p.AdverseSpreadInflation
		bid = types.ClampPrice(bid - widen/2)
		ask = types.ClampPrice(ask + (widen - widen/2))
		if ask <= bid {
			return nil
		}
	}

	z := classifyZone(snap.BestBid, p.LongshotThreshold, p.NearlyCertainThreshold)

	var bidSize, askSize int
	switch z {
	case zoneLongshot:
		askSize = ceilMult(p.SizePerSide, p.ZoneSizeMultiplier)
		bidSize = floorHalf(p.SizePerSide)
	case zoneNearlyCertain:
		bidSize = ceilMult(p.SizePerSide, p.ZoneSizeMultiplier)
		askSize = floorHalf(p.SizePerSide)
	default:
		bidSize = p.SizePerSide
		askSize = p.SizePerSide
	}

	if z == zoneLongshot && p.LongshotExposureCap > 0 && snap.HasPosition {
		if snap.Position.NetExposure() >= p.LongshotExposureCap {
			bidSize = 0
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

// OnFill is a no-op: zone classification is read from the snapshot.
func (o *OptimismTax) OnFill(types.Fill) {}

// UpdateParams applies a live parameter change.
func (o *OptimismTax) UpdateParams(params map[string]float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := params["longshot_threshold"]; ok {
		o.params.LongshotThreshold = int(v)
	}
	if v, ok := params["nearly_certain_threshold"]; ok {
		o.params.NearlyCertainThreshold = int(v)
	}
	if v, ok := params["size_per_side"]; ok {
		o.params.SizePerSide = int(v)
	}
	if v, ok := params["zone_size_multiplier"]; ok {
		o.params.ZoneSizeMultiplier = v
	}
	if v, ok := params["longshot_exposure_cap"]; ok {
		o.params.LongshotExposureCap = int(v)
	}
	if v, ok := params["adverse_spread_inflation"]; ok {
		o.params.AdverseSpreadInflation = int(v)
	}
}
