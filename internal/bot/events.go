package bot

import (
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// dispatchEvents routes every typed event off the venue stream to its
// handler and, where the event can change what should be quoted,
// enqueues a coalesced re-quote for the affected ticker.
func (b *Bot) dispatchEvents() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case snap := <-b.stream.Snapshots():
			b.onSnapshot(snap)
		case delta := <-b.stream.Deltas():
			b.onDelta(delta)
		case tick := <-b.stream.Tickers():
			b.onTicker(tick)
		case fill := <-b.stream.Fills():
			b.onFill(fill)
		}
	}
}

func (b *Bot) onSnapshot(snap types.BookSnapshot) {
	if !b.isTracked(snap.Ticker) {
		return
	}
	b.books.Get(snap.Ticker).ApplySnapshot(snap)
	b.enqueueRequote(snap.Ticker)
}

func (b *Bot) onDelta(delta types.BookDelta) {
	if !b.isTracked(delta.Ticker) {
		return
	}
	bk := b.books.Get(delta.Ticker)
	if err := bk.ApplyDelta(delta); err != nil {
		b.logger.Warn("book resync required", "ticker", delta.Ticker, "error", err)
		if err := b.stream.Subscribe(b.ctx, []string{delta.Ticker}); err != nil {
			b.logger.Error("resubscribe after resync failed", "ticker", delta.Ticker, "error", err)
		}
		return
	}
	b.enqueueRequote(delta.Ticker)
}

func (b *Bot) onTicker(tick types.TickerEvent) {
	if !b.isTracked(tick.Ticker) {
		return
	}
	b.tracker.UpdateMark(tick.Ticker, tick.Mark)
	b.risk.Adverse.UpdatePrice(tick.Ticker, tick.Mark)
	b.enqueueRequote(tick.Ticker)
}

func (b *Bot) onFill(fill types.Fill) {
	if !b.isTracked(fill.Ticker) {
		return
	}

	realizedPnL := b.tracker.OnFill(fill)
	pos := b.tracker.Snapshot(fill.Ticker)
	b.risk.OnFill(fill, realizedPnL, pos.NetExposure())

	side := fill.Side
	b.orders.OnFill(fill.Ticker, side, fill.Count)

	if strat := b.strategyFor(fill.Ticker); strat != nil {
		strat.OnFill(fill)
	}

	if b.store != nil {
		if err := b.store.SavePosition(fill.Ticker, pos); err != nil {
			b.logger.Error("save position on fill failed", "ticker", fill.Ticker, "error", err)
		}
	}

	b.logger.Info("fill",
		"ticker", fill.Ticker,
		"side", fill.Side,
		"action", fill.Action,
		"count", fill.Count,
		"price", fill.Price,
		"realized_pnl", realizedPnL,
	)

	b.enqueueRequote(fill.Ticker)
}

func (b *Bot) isTracked(ticker string) bool {
	b.marketsMu.RLock()
	defer b.marketsMu.RUnlock()
	return b.markets[ticker]
}

// watchScanResults logs and caches the scanner's advisory output. It
// never adds or removes markets on its own; an operator (or an
// automated caller of AddMarket) decides what to act on.
func (b *Bot) watchScanResults() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case ranked := <-b.scanner.Results():
			b.recordScanResults(ranked)
		}
	}
}

func (b *Bot) recordScanResults(ranked []types.RankedMarket) {
	b.marketsMu.Lock()
	for _, r := range ranked {
		if r.Market.CloseTime.IsZero() {
			continue
		}
		b.closeTime[r.Market.Ticker] = r.Market.CloseTime
	}
	b.marketsMu.Unlock()
	b.logger.Info("scan results", "count", len(ranked))
}
