// Package book maintains the local mirror of each market's order book
// from a venue snapshot plus a stream of additive deltas. A market
// trades two complementary contracts — YES and NO — whose bid ladders
// are maintained independently; the ask side of either contract is
// derived from the opposing contract's bid ladder, never sent directly
// by the venue.
package book

import (
	"sort"
	"sync"
	"time"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

const pendingDeltaBufferSize = 256

// Book is the local mirror of one ticker's YES/NO bid ladders.
// Concurrency-safe: callers may read from any goroutine, but all
// mutation happens on the owning quoting-loop goroutine by convention
// (see internal/bot).
type Book struct {
	mu       sync.RWMutex
	ticker   string
	yesBids  map[int]int // price(cents) -> quantity
	noBids   map[int]int
	sequence uint64
	updated  time.Time

	hasSnapshot bool
	pending     []types.BookDelta // deltas buffered before the first snapshot
}

// NewBook creates an empty book for ticker. The book is not quotable
// until ApplySnapshot is called.
func NewBook(ticker string) *Book {
	return &Book{
		ticker:  ticker,
		yesBids: make(map[int]int),
		noBids:  make(map[int]int),
	}
}

// ApplySnapshot replaces both ladders atomically and bumps the
// sequence counter. Any deltas buffered while waiting for a snapshot
// are replayed in order after the replacement.
func (b *Book) ApplySnapshot(snap types.BookSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.yesBids = levelsToMap(snap.YesBids)
	b.noBids = levelsToMap(snap.NoBids)
	b.sequence = snap.Sequence
	b.updated = time.Now()
	b.hasSnapshot = true

	pending := b.pending
	b.pending = nil
	for _, d := range pending {
		b.applyDeltaLocked(d)
	}
}

func levelsToMap(levels []types.PriceLevel) map[int]int {
	m := make(map[int]int, len(levels))
	for _, l := range levels {
		if l.Count > 0 {
			m[l.Price] = l.Count
		}
	}
	return m
}

// ErrResyncRequired signals that the book has been discarded and the
// caller must request a fresh snapshot (and resubscribe if the feed
// exposes sequence numbers, to pick up from the current point).
type ErrResyncRequired struct {
	Ticker string
	Reason string
}

func (e *ErrResyncRequired) Error() string {
	return "book resync required for " + e.Ticker + ": " + e.Reason
}

// ApplyDelta applies one additive price-level change: new_qty =
// old_qty + delta, removing the level if the result is <= 0. A delta
// arriving before any snapshot is buffered; if the buffer overflows,
// the book is discarded and ErrResyncRequired is returned. A sequence
// gap (delta.Sequence not immediately after the book's current
// sequence) also forces a resync, since the intervening mutation is
// unknown.
func (b *Book) ApplyDelta(d types.BookDelta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasSnapshot {
		if len(b.pending) >= pendingDeltaBufferSize {
			b.resetLocked()
			return &ErrResyncRequired{Ticker: b.ticker, Reason: "pending delta buffer overflow"}
		}
		b.pending = append(b.pending, d)
		return nil
	}

	if d.Sequence != 0 && b.sequence != 0 && d.Sequence <= b.sequence {
		// Stale or duplicate delta from a replayed/overlapping stream; ignore.
		return nil
	}
	if d.Sequence != 0 && b.sequence != 0 && d.Sequence != b.sequence+1 {
		b.resetLocked()
		return &ErrResyncRequired{Ticker: b.ticker, Reason: "sequence gap"}
	}

	b.applyDeltaLocked(d)
	if d.Sequence != 0 {
		b.sequence = d.Sequence
	}
	b.updated = time.Now()
	return nil
}

func (b *Book) applyDeltaLocked(d types.BookDelta) {
	ladder := b.yesBids
	if d.Side == types.No {
		ladder = b.noBids
	}
	newQty := ladder[d.Price] + d.Delta
	if newQty <= 0 {
		delete(ladder, d.Price)
	} else {
		ladder[d.Price] = newQty
	}
}

func (b *Book) resetLocked() {
	b.yesBids = make(map[int]int)
	b.noBids = make(map[int]int)
	b.sequence = 0
	b.hasSnapshot = false
	b.pending = nil
}

// BestYesBid returns the highest YES bid price and its quantity.
func (b *Book) BestYesBid() (price, qty int, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestOf(b.yesBids, true)
}

// BestYesAsk returns 100 minus the highest NO bid price — the implied
// best YES ask — and the quantity resting at that NO-bid level.
func (b *Book) BestYesAsk() (price, qty int, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, q, ok := bestOf(b.noBids, true)
	if !ok {
		return 0, 0, false
	}
	return types.Complement(p), q, true
}

func bestOf(ladder map[int]int, wantMax bool) (price, qty int, ok bool) {
	if len(ladder) == 0 {
		return 0, 0, false
	}
	best := -1
	for p := range ladder {
		if best == -1 || (wantMax && p > best) || (!wantMax && p < best) {
			best = p
		}
	}
	return best, ladder[best], true
}

// BBO returns the best bid and ask prices and sizes for the YES side.
func (b *Book) BBO() (bidPrice, bidSize, askPrice, askSize int, ok bool) {
	bp, bq, bok := b.BestYesBid()
	ap, aq, aok := b.BestYesAsk()
	if !bok || !aok {
		return 0, 0, 0, 0, false
	}
	return bp, bq, ap, aq, true
}

// Microprice is the size-weighted mid: (bid*askQty + ask*bidQty) /
// (bidQty+askQty). Returns false if either side is empty.
func (b *Book) Microprice() (float64, bool) {
	bp, bq, ap, aq, ok := b.BBO()
	if !ok {
		return 0, false
	}
	total := bq + aq
	if total == 0 {
		return 0, false
	}
	return (float64(bp)*float64(aq) + float64(ap)*float64(bq)) / float64(total), true
}

// Mid returns the simple (bid+ask)/2. Returns false if either side is empty.
func (b *Book) Mid() (float64, bool) {
	bp, _, ap, _, ok := b.BBO()
	if !ok {
		return 0, false
	}
	return (float64(bp) + float64(ap)) / 2, true
}

// Depth returns the top n price levels on the YES bid and derived YES
// ask side, sorted best-first.
func (b *Book) Depth(n int) (bids, asks []types.PriceLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids = topLevels(b.yesBids, n, true)
	rawAsks := topLevels(b.noBids, n, true) // best NO bids -> best YES asks
	asks = make([]types.PriceLevel, len(rawAsks))
	for i, l := range rawAsks {
		asks[i] = types.PriceLevel{Price: types.Complement(l.Price), Count: l.Count}
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	return bids, asks
}

func topLevels(ladder map[int]int, n int, desc bool) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(ladder))
	for p, q := range ladder {
		levels = append(levels, types.PriceLevel{Price: p, Count: q})
	}
	sort.Slice(levels, func(i, j int) bool {
		if desc {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// TotalBidDepth sums quantity across the entire YES bid ladder.
func (b *Book) TotalBidDepth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumLadder(b.yesBids)
}

// TotalAskDepth sums quantity across the entire derived YES ask ladder,
// which is just the NO bid ladder's quantities.
func (b *Book) TotalAskDepth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumLadder(b.noBids)
}

func sumLadder(ladder map[int]int) int {
	total := 0
	for _, q := range ladder {
		total += q
	}
	return total
}

// Imbalance is (bid_depth - ask_depth) / (bid_depth + ask_depth), in
// [-1,1]. Returns 0 if both sides are empty.
func (b *Book) Imbalance() float64 {
	bidDepth := b.TotalBidDepth()
	askDepth := b.TotalAskDepth()
	total := bidDepth + askDepth
	if total == 0 {
		return 0
	}
	return float64(bidDepth-askDepth) / float64(total)
}

// Age returns how long ago the book last mutated.
func (b *Book) Age() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(b.updated)
}

// IsStale reports whether the book hasn't mutated within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}

// Sequence returns the book's current sequence counter.
func (b *Book) Sequence() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sequence
}

// HasSnapshot reports whether the book has received its first snapshot.
func (b *Book) HasSnapshot() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasSnapshot
}
