// Package inventory maintains per-ticker YES/NO contract counts and
// their split cost bases, and derives realized and unrealized PnL from
// fills and marks.
package inventory

import (
	"sync"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Tracker owns the position map for every ticker the bot quotes.
// Concurrency-safe; the quoting loop is the only writer by convention.
type Tracker struct {
	mu         sync.RWMutex
	positions  map[string]*types.Position
	fillsToday int
	volToday   int
}

// NewTracker creates an empty inventory tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*types.Position)}
}

func (t *Tracker) positionLocked(ticker string) *types.Position {
	p, ok := t.positions[ticker]
	if !ok {
		p = &types.Position{Ticker: ticker}
		t.positions[ticker] = p
	}
	return p
}

// OnFill applies one fill's contract-count and cost-basis mutation and
// returns the realized PnL produced by that single fill, in cents.
//
// The rules operate on the side-specific count C and cost basis B
// before mutating counts:
//   - BUY when C >= 0: B += count*price, realized = 0 (adding to flat/long).
//   - BUY when C < 0 (covering a short): avg_short = B/|C|; close =
//     min(count,|C|), open = count-close. realized += close*(avg_short-price).
//     B shrinks by close*avg_short and grows by open*price for any
//     leftover that flips long.
//   - SELL when C <= 0: B += count*price (shorting receives proceeds).
//   - SELL when C > 0 (closing long): avg_long = B/C; close = min(count,C);
//     realized += close*(price-avg_long); B shrinks by close*avg_long;
//     overflow opens a short at price.
func (t *Tracker) OnFill(fill types.Fill) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.positionLocked(fill.Ticker)

	var count, cost *int
	if fill.Side == types.Yes {
		count, cost = &pos.YesContracts, &pos.YesCostBasis
	} else {
		count, cost = &pos.NoContracts, &pos.NoCostBasis
	}

	realized := applyFillToLeg(count, cost, fill.Action, fill.Count, fill.Price)

	t.fillsToday++
	t.volToday += fill.Count

	return realized
}

// applyFillToLeg mutates count/cost in place per the BUY/SELL rules
// above and returns the realized PnL in cents produced by this fill.
//
// Reducing the cost basis for a partial close uses integer division
// (close*B/C) rather than a float average, so cents never drift from
// the running total_cost_basis invariant; any fractional remainder is
// truncated the same way on every fill.
func applyFillToLeg(count, cost *int, action types.Action, fillCount, price int) int {
	c := *count
	b := *cost
	realized := 0

	switch action {
	case types.Buy:
		if c >= 0 {
			b += fillCount * price
		} else {
			closeQty := fillCount
			if closeQty > -c {
				closeQty = -c
			}
			openQty := fillCount - closeQty
			reducedBasis := closeQty * b / (-c) // closeQty * avgShort
			realized += reducedBasis - closeQty*price
			b -= reducedBasis
			b += openQty * price
		}
		c += fillCount

	case types.Sell:
		if c <= 0 {
			b += fillCount * price
		} else {
			closeQty := fillCount
			if closeQty > c {
				closeQty = c
			}
			reducedBasis := closeQty * b / c
			realized += closeQty*price - reducedBasis
			b -= reducedBasis
			overflow := fillCount - closeQty
			if overflow > 0 {
				b += overflow * price
			}
		}
		c -= fillCount
	}

	*count = c
	*cost = b
	return realized
}

// UpdateMark refreshes the mark price used for unrealized PnL on ticker.
func (t *Tracker) UpdateMark(ticker string, mark int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos := t.positionLocked(ticker)
	pos.LastMark = mark
	pos.HasMark = true
}

// Snapshot returns a copy of the position for ticker (zero value if
// the ticker has never seen a fill or mark).
func (t *Tracker) Snapshot(ticker string) types.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.positions[ticker]; ok {
		return *p
	}
	return types.Position{Ticker: ticker}
}

// InitializeFromPortfolio seeds a position from a single aggregate cost
// basis figure (as reported by a venue portfolio endpoint that does
// not expose per-side bases), splitting it proportionally between YES
// and NO contract counts.
//
// This is an approximation: the venue's own internal bookkeeping may
// track the two legs' bases independently, and this split will diverge
// from that truth whenever the two legs were entered at different
// average prices. It is preserved because the venue does not expose a
// finer-grained figure.
func (t *Tracker) InitializeFromPortfolio(ticker string, yesContracts, noContracts, aggregateCostBasis int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos := t.positionLocked(ticker)
	pos.YesContracts = yesContracts
	pos.NoContracts = noContracts

	total := yesContracts + noContracts
	if total == 0 {
		pos.YesCostBasis = 0
		pos.NoCostBasis = 0
		return
	}
	pos.YesCostBasis = aggregateCostBasis * yesContracts / total
	pos.NoCostBasis = aggregateCostBasis - pos.YesCostBasis
}

// FillsToday and VolumeToday report the process's daily counters.
func (t *Tracker) FillsToday() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fillsToday
}

func (t *Tracker) VolumeToday() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.volToday
}

// ResetDaily zeroes the fills/volume counters, called at the venue's
// daily boundary.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fillsToday = 0
	t.volToday = 0
}

// Tickers returns every ticker with a tracked position.
func (t *Tracker) Tickers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.positions))
	for k := range t.positions {
		out = append(out, k)
	}
	return out
}

// TotalUnrealizedPnL sums UnrealizedPnL across every tracked ticker.
// Realized PnL is accumulated by the caller from OnFill's return value
// rather than kept here, since it is a running total, not derivable
// from current state alone.
func (t *Tracker) TotalUnrealizedPnL() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, p := range t.positions {
		total += p.UnrealizedPnL()
	}
	return total
}
