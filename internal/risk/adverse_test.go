package risk

import (
	"testing"
	"time"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func newTestAdverseDetector() *AdverseSelectionDetector {
	return NewAdverseSelectionDetector(
		time.Minute, // window
		3,           // consecThreshold
		2,           // priceMoveCents
		1.0,         // fillRateThreshold (fills/min)
		50,          // scoreThreshold
		1000*time.Millisecond,
	)
}

func TestAdverseDetectionFlagsAndExpires(t *testing.T) {
	t.Parallel()
	d := newTestAdverseDetector()

	for i := 0; i < 3; i++ {
		d.RecordFill(types.Fill{Ticker: "T", Side: types.Yes, Action: types.Sell, Count: 1, Price: 50, Timestamp: time.Now()})
	}

	score := d.UpdatePrice("T", 55)
	if score < 50 {
		t.Fatalf("score = %v, want >= 50 after three sells followed by a price rise", score)
	}
	if !d.IsAdverse("T") {
		t.Fatal("expected ticker to be flagged adverse")
	}

	time.Sleep(1100 * time.Millisecond)
	if d.IsAdverse("T") {
		t.Error("flag should auto-clear after cooldown elapses")
	}
}

func TestAdverseDetectionUnflaggedTickerIsNotAdverse(t *testing.T) {
	t.Parallel()
	d := newTestAdverseDetector()
	if d.IsAdverse("UNSEEN") {
		t.Error("a ticker with no fills should never be flagged")
	}
}

func TestAdverseDetectionBuyThenPriceFallIsAdverse(t *testing.T) {
	t.Parallel()
	d := newTestAdverseDetector()

	for i := 0; i < 3; i++ {
		d.RecordFill(types.Fill{Ticker: "T2", Side: types.Yes, Action: types.Buy, Count: 1, Price: 60, Timestamp: time.Now()})
	}
	d.UpdatePrice("T2", 50)
	if !d.IsAdverse("T2") {
		t.Error("buying into a falling price repeatedly should flag as adverse")
	}
}
