package strategy

import (
	"testing"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func newTestOptimismTax() *OptimismTax {
	return NewOptimismTax(OptimismTaxParams{
		LongshotThreshold:      10,
		NearlyCertainThreshold: 90,
		SizePerSide:            10,
		ZoneSizeMultiplier:     2.0,
		LongshotExposureCap:    50,
		AdverseSpreadInflation: 4,
	})
}

func TestOptimismTaxLongshotZoneSellsHarder(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := types.MarketSnapshot{Ticker: "T", BestBid: 5, BestAsk: 8, Mid: 6.5, Spread: 3}

	quotes := o.ComputeQuotes(snap)
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}
	q := quotes[0]
	if q.AskSize != 20 {
		t.Errorf("ask size = %d, want 20 (ceil(10*2.0))", q.AskSize)
	}
	if q.BidSize != 5 {
		t.Errorf("bid size = %d, want 5 (floor(10*0.5))", q.BidSize)
	}
}

func TestOptimismTaxNearlyCertainZoneBuysHarder(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := types.MarketSnapshot{Ticker: "T", BestBid: 92, BestAsk: 95, Mid: 93.5, Spread: 3}

	quotes := o.ComputeQuotes(snap)
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}
	q := quotes[0]
	if q.BidSize != 20 {
		t.Errorf("bid size = %d, want 20", q.BidSize)
	}
	if q.AskSize != 5 {
		t.Errorf("ask size = %d, want 5", q.AskSize)
	}
}

func TestOptimismTaxMiddleBandIsSymmetric(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := quotableSnapshot()

	quotes := o.ComputeQuotes(snap)
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}
	if quotes[0].BidSize != quotes[0].AskSize {
		t.Errorf("middle band should quote symmetric sizes, got %d/%d", quotes[0].BidSize, quotes[0].AskSize)
	}
}

func TestOptimismTaxLongshotExposureCapZeroesBid(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := types.MarketSnapshot{
		Ticker: "T", BestBid: 5, BestAsk: 8, Mid: 6.5, Spread: 3,
		HasPosition: true,
		Position:    types.Position{Ticker: "T", YesContracts: 60},
	}

	quotes := o.ComputeQuotes(snap)
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}
	if quotes[0].BidSize != 0 {
		t.Error("bid size should be zeroed once longshot exposure cap is reached")
	}
	if quotes[0].AskSize == 0 {
		t.Error("ask size should remain nonzero to allow flattening")
	}
}

func TestOptimismTaxAdverseSelectionWidensSpread(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := quotableSnapshot()
	snap.AdverseSelected = true

	quotes := o.ComputeQuotes(snap)
	if len(quotes) != 1 {
		t.Fatalf("expected one quote, got %d", len(quotes))
	}
	base := quotableSnapshot()
	widened := quotes[0].AskPrice - quotes[0].BidPrice
	if widened <= base.BestAsk-base.BestBid {
		t.Error("adverse selection should widen the quoted spread relative to the raw book spread")
	}
}

func TestOptimismTaxReturnsNothingWhenAlreadyWideAndAdverse(t *testing.T) {
	t.Parallel()
	o := newTestOptimismTax()
	snap := quotableSnapshot()
	snap.BestBid = 40
	snap.BestAsk = 58
	snap.Spread = 18
	snap.AdverseSelected = true

	if quotes := o.ComputeQuotes(snap); quotes != nil {
		t.Errorf("expected no quotes when inflation would push spread beyond the cap, got %v", quotes)
	}
}
