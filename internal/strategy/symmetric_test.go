package strategy

import (
	"testing"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

func quotableSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		Ticker:  "T",
		BestBid: 45,
		BestAsk: 55,
		Mid:     50,
		Spread:  10,
	}
}

func TestSymmetricQuotesAroundMid(t *testing.T) {
	t.Parallel()
	s := NewSymmetric(SymmetricParams{SpreadCents: 4, SizePerSide: 10})

	quotes := s.ComputeQuotes(quotableSnapshot())
	if len(quotes) != 1 {
		t.Fatalf("expected exactly one quote, got %d", len(quotes))
	}
	q := quotes[0]
	if q.BidPrice != 48 || q.AskPrice != 52 {
		t.Errorf("bid/ask = %d/%d, want 48/52", q.BidPrice, q.AskPrice)
	}
	if q.BidSize != 10 || q.AskSize != 10 {
		t.Errorf("sizes = %d/%d, want 10/10", q.BidSize, q.AskSize)
	}
}

func TestSymmetricReturnsNothingWhenUnquotable(t *testing.T) {
	t.Parallel()
	s := NewSymmetric(SymmetricParams{SpreadCents: 4, SizePerSide: 10})
	snap := quotableSnapshot()
	snap.Spread = 25
	if quotes := s.ComputeQuotes(snap); quotes != nil {
		t.Errorf("expected no quotes when spread exceeds 20, got %v", quotes)
	}
}

func TestSymmetricUpdateParams(t *testing.T) {
	t.Parallel()
	s := NewSymmetric(SymmetricParams{SpreadCents: 4, SizePerSide: 10})
	s.UpdateParams(map[string]float64{"spread_cents": 10, "size_per_side": 5})

	q := s.ComputeQuotes(quotableSnapshot())[0]
	if q.BidPrice != 45 || q.AskPrice != 55 {
		t.Errorf("bid/ask = %d/%d, want 45/55 after widening", q.BidPrice, q.AskPrice)
	}
	if q.BidSize != 5 {
		t.Errorf("size = %d, want 5 after update", q.BidSize)
	}
}
