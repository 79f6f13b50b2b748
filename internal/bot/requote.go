package bot

import (
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/book"
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// enqueueRequote arms ticker's pending re-quote flag and wakes the
// loop. Repeated calls while one is already queued are idempotent: a
// ticker appears in the FIFO queue at most once between the time it
// is enqueued and the time the loop dequeues it.
func (b *Bot) enqueueRequote(ticker string) {
	b.requoteMu.Lock()
	if b.requeuePending[ticker] {
		b.requoteMu.Unlock()
		return
	}
	b.requeuePending[ticker] = true
	b.requoteQueue = append(b.requoteQueue, ticker)
	b.requoteMu.Unlock()

	select {
	case b.requoteSignal <- struct{}{}:
	default:
	}
}

// dequeueRequote pops the next queued ticker and clears its pending
// flag before the caller builds a snapshot, so a mutation arriving
// during that computation re-arms the flag and is not lost.
func (b *Bot) dequeueRequote() (string, bool) {
	b.requoteMu.Lock()
	defer b.requoteMu.Unlock()
	if len(b.requoteQueue) == 0 {
		return "", false
	}
	ticker := b.requoteQueue[0]
	b.requoteQueue = b.requoteQueue[1:]
	delete(b.requeuePending, ticker)
	return ticker, true
}

func (b *Bot) requoteLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.requoteSignal:
			for {
				ticker, ok := b.dequeueRequote()
				if !ok {
					break
				}
				b.requote(ticker)
			}
		}
	}
}

// requote runs the six-step quoting cycle for one ticker and records
// its wall-clock duration into the bot's latency tracker, which backs
// the control plane's latency_p50/latency_p95 metrics:
//
//  1. If paused, halted, circuit-broken, or ticker is in adverse
//     cooldown, desired collapses to "cancel everything."
//  2. Build the market snapshot from book state, position, and mark.
//  3. The strategy computes zero or one quote from that snapshot.
//  4. Scale both sides by the drawdown position multiplier.
//  5. Clip each side against the per-market position cap.
//  6. Hand the resulting desired (bid, ask) pair to the order manager.
func (b *Bot) requote(ticker string) {
	start := time.Now()
	defer func() { b.latency.Record(time.Since(start)) }()

	halted, _ := b.risk.Halted()
	if b.isPaused() || halted || b.risk.Breaker.IsTriggered() || b.risk.Adverse.IsAdverse(ticker) {
		b.applyDecision(ticker, types.Yes, nil)
		b.applyDecision(ticker, types.No, nil)
		return
	}

	bk := b.books.Get(ticker)
	if !bk.HasSnapshot() || bk.IsStale(b.cfg.Quoting.StaleBookTimeout) {
		b.applyDecision(ticker, types.Yes, nil)
		b.applyDecision(ticker, types.No, nil)
		return
	}

	snap := b.buildSnapshot(ticker, bk)
	if !snap.Quotable() {
		b.applyDecision(ticker, types.Yes, nil)
		b.applyDecision(ticker, types.No, nil)
		return
	}

	strat := b.strategyFor(ticker)
	if strat == nil {
		return
	}
	quotes := strat.ComputeQuotes(snap)
	if len(quotes) == 0 {
		b.applyDecision(ticker, types.Yes, nil)
		b.applyDecision(ticker, types.No, nil)
		return
	}
	q := quotes[0]

	mult := b.risk.Drawdown.PositionMultiplier()
	bidSize := int(float64(q.BidSize) * mult)
	askSize := int(float64(q.AskSize) * mult)
	if bidSize <= 0 && askSize <= 0 {
		b.applyDecision(ticker, types.Yes, nil)
		b.applyDecision(ticker, types.No, nil)
		return
	}

	netExposure := snap.Position.NetExposure()
	maxPos := b.cfg.Quoting.MaxPositionPerMarket

	if bidSize > 0 {
		if netExposure+bidSize > maxPos {
			bidSize = maxPos - netExposure
		}
		if bidSize < 0 {
			bidSize = 0
		}
	}
	if askSize > 0 {
		if netExposure-askSize < -maxPos {
			askSize = netExposure + maxPos
		}
		if askSize < 0 {
			askSize = 0
		}
	}

	var bidDesired, askDesired *types.Desired
	if bidSize > 0 {
		bidDesired = &types.Desired{Price: q.BidPrice, Size: bidSize}
	}
	if askSize > 0 {
		askDesired = &types.Desired{Price: q.AskPrice, Size: askSize}
	}

	b.applyDecision(ticker, types.Yes, bidDesired)
	b.applyDecision(ticker, types.No, askDesired)
}

// buildSnapshot assembles the immutable view a strategy consumes:
// current BBO, microprice/mid, inventory, and the adverse-selection
// flag. Asks are expressed in YES-price terms even though placing one
// means buying NO at its complement (see place).
func (b *Bot) buildSnapshot(ticker string, bk *book.Book) types.MarketSnapshot {
	bidPrice, bidSize, askPrice, askSize, _ := bk.BBO()
	mid, _ := bk.Mid()
	micro, hasMicro := bk.Microprice()
	pos := b.tracker.Snapshot(ticker)

	snap := types.MarketSnapshot{
		Ticker:          ticker,
		BestBid:         bidPrice,
		BestAsk:         askPrice,
		Mid:             mid,
		Spread:          askPrice - bidPrice,
		HasPosition:     pos.YesContracts != 0 || pos.NoContracts != 0,
		Position:        pos,
		Microprice:      micro,
		HasMicroprice:   hasMicro,
		Imbalance:       bk.Imbalance(),
		BestBidSize:     bidSize,
		BestAskSize:     askSize,
		AdverseSelected: b.risk.Adverse.IsAdverse(ticker),
	}

	b.marketsMu.RLock()
	closeTime, ok := b.closeTime[ticker]
	b.marketsMu.RUnlock()
	if ok {
		snap.TimeToExpiry = time.Until(closeTime)
		snap.HasExpiry = snap.TimeToExpiry > 0
	}

	return snap
}
