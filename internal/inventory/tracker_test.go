package inventory

import (
	"testing"
	"time"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func TestInventoryRoundtrip(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	r1 := tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 10, Price: 50, Timestamp: time.Now()})
	if r1 != 0 {
		t.Errorf("opening buy realized = %d, want 0", r1)
	}
	r2 := tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 5, Price: 55, Timestamp: time.Now()})
	if r2 != 25 {
		t.Errorf("closing sell realized = %d, want 25", r2)
	}

	pos := tr.Snapshot("T")
	if pos.YesContracts != 5 {
		t.Errorf("yes_contracts = %d, want 5", pos.YesContracts)
	}
	if pos.YesCostBasis != 250 {
		t.Errorf("yes_cost_basis = %d, want 250", pos.YesCostBasis)
	}
	if tr.FillsToday() != 2 {
		t.Errorf("fills_today = %d, want 2", tr.FillsToday())
	}
	if tr.VolumeToday() != 15 {
		t.Errorf("volume_today = %d, want 15", tr.VolumeToday())
	}
}

func TestBuyCoversShortAndFlipsLong(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	// Open a short of 10 @ 60 (SELL when C<=0).
	tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 10, Price: 60})
	pos := tr.Snapshot("T")
	if pos.YesContracts != -10 || pos.YesCostBasis != 600 {
		t.Fatalf("after short open: contracts=%d cost=%d, want -10,600", pos.YesContracts, pos.YesCostBasis)
	}

	// Buy 15 @ 55: covers the 10-short (realized = 10*(60-55)=50) and
	// opens a 5-long at 55.
	realized := tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 15, Price: 55})
	if realized != 50 {
		t.Errorf("realized on cover+flip = %d, want 50", realized)
	}
	pos = tr.Snapshot("T")
	if pos.YesContracts != 5 {
		t.Errorf("contracts after flip = %d, want 5", pos.YesContracts)
	}
	if pos.YesCostBasis != 275 {
		t.Errorf("cost basis after flip = %d, want 275", pos.YesCostBasis)
	}
}

func TestSellOverflowOpensShort(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 5, Price: 40})

	realized := tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 8, Price: 45})
	if realized != 25 { // 5*(45-40)
		t.Errorf("realized = %d, want 25", realized)
	}
	pos := tr.Snapshot("T")
	if pos.YesContracts != -3 {
		t.Errorf("contracts after overflow short = %d, want -3", pos.YesContracts)
	}
	if pos.YesCostBasis != 135 { // 3 contracts shorted at 45
		t.Errorf("cost basis after overflow short = %d, want 135", pos.YesCostBasis)
	}
}

func TestTotalCostBasisInvariant(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	fills := []types.Fill{
		{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 3, Price: 50},
		{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 10, Price: 52},
		{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 4, Price: 48},
	}
	for _, f := range fills {
		tr.OnFill(f)
	}
	pos := tr.Snapshot("T")
	if pos.TotalCostBasis() != pos.YesCostBasis+pos.NoCostBasis {
		t.Error("total_cost_basis invariant violated")
	}
}

func TestReapplyingFillsIsIdempotentModuloState(t *testing.T) {
	t.Parallel()
	fills := []types.Fill{
		{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 10, Price: 50},
		{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 5, Price: 55},
		{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 2, Price: 53},
	}

	run := func() (types.Position, int) {
		tr := NewTracker()
		total := 0
		for _, f := range fills {
			total += tr.OnFill(f)
		}
		return tr.Snapshot("T"), total
	}

	pos1, realized1 := run()
	pos2, realized2 := run()

	if pos1 != pos2 {
		t.Errorf("position state differs across identical fill replays: %+v vs %+v", pos1, pos2)
	}
	if realized1 != realized2 {
		t.Errorf("realized pnl differs across identical fill replays: %d vs %d", realized1, realized2)
	}
}

func TestUnrealizedPnLZeroWhenFlat(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Buy, Count: 10, Price: 50})
	tr.OnFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 10, Price: 60})
	tr.UpdateMark("T", 70)

	pos := tr.Snapshot("T")
	if pos.NetExposure() != 0 {
		t.Fatalf("expected flat position, net_exposure = %d", pos.NetExposure())
	}
	if pos.UnrealizedPnL() != 0 {
		t.Errorf("unrealized pnl for flat ticker = %d, want 0", pos.UnrealizedPnL())
	}
}

func TestInitializeFromPortfolioSplitsProportionally(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.InitializeFromPortfolio("T", 30, 10, 400)
	pos := tr.Snapshot("T")
	if pos.YesCostBasis != 300 || pos.NoCostBasis != 100 {
		t.Errorf("split = (%d,%d), want (300,100)", pos.YesCostBasis, pos.NoCostBasis)
	}
}
