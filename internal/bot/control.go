package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/risk"
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Pause stops new quotes from being placed; resting orders are
// canceled on the next re-quote of each active ticker.
func (b *Bot) Pause() {
	b.pausedMu.Lock()
	b.paused = true
	b.pausedMu.Unlock()
	for _, t := range b.Tickers() {
		b.enqueueRequote(t)
	}
}

// Resume re-arms quoting for every active ticker.
func (b *Bot) Resume() {
	b.pausedMu.Lock()
	b.paused = false
	b.pausedMu.Unlock()
	for _, t := range b.Tickers() {
		b.enqueueRequote(t)
	}
}

// Paused reports the current pause state.
func (b *Bot) Paused() bool {
	return b.isPaused()
}

// Flatten cancels every resting order across all active markets. It
// does not close existing inventory positions, only outstanding
// quotes — winding down a position requires crossing the spread,
// which is an operator decision this daemon does not make for them.
func (b *Bot) Flatten() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var ids []string
	for _, ticker := range b.Tickers() {
		for _, order := range b.orders.AllForTicker(ticker) {
			if order.VenueID != "" {
				ids = append(ids, order.VenueID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := b.client.BatchCancel(ctx, ids); err != nil {
		return fmt.Errorf("flatten: %w", err)
	}
	for _, ticker := range b.Tickers() {
		b.orders.RemoveMarket(ticker)
	}
	return nil
}

// AddMarket subscribes to ticker and starts quoting it with a fresh
// strategy instance, restoring any persisted position first.
func (b *Bot) AddMarket(ticker string) error {
	if b.isTracked(ticker) {
		return nil
	}
	if err := b.addMarketLocked(ticker); err != nil {
		return err
	}
	if err := b.stream.Subscribe(b.ctx, []string{ticker}); err != nil {
		return fmt.Errorf("subscribe %s: %w", ticker, err)
	}
	b.enqueueRequote(ticker)
	return nil
}

// RemoveMarket cancels ticker's resting orders, unsubscribes it, and
// drops all per-ticker state. The inventory tracker's position stays
// in memory (and on disk, if a store is configured) for later
// inspection; only the active quoting set shrinks.
func (b *Bot) RemoveMarket(ticker string) error {
	if !b.isTracked(ticker) {
		return nil
	}

	b.cancelSide(ticker, types.Yes)
	b.cancelSide(ticker, types.No)

	if err := b.stream.Unsubscribe(b.ctx, []string{ticker}); err != nil {
		b.logger.Error("unsubscribe failed", "ticker", ticker, "error", err)
	}

	b.risk.RemoveMarket(ticker)
	b.orders.RemoveMarket(ticker)
	b.books.Remove(ticker)

	b.stratMu.Lock()
	delete(b.strategies, ticker)
	b.stratMu.Unlock()

	b.marketsMu.Lock()
	delete(b.markets, ticker)
	delete(b.closeTime, ticker)
	b.marketsMu.Unlock()

	return nil
}

// PositionSnapshot is one market's control-plane-visible inventory.
type PositionSnapshot struct {
	Ticker        string
	NetExposure   int
	YesContracts  int
	NoContracts   int
	UnrealizedPnL int
}

// State is the full control-plane snapshot returned by GET /state.
type State struct {
	Paused      bool
	Halted      bool
	HaltReason  string
	Running     bool
	RealizedPnL int
	FillsToday  int
	VolumeToday int
	Risk        risk.Snapshot
	Positions   []PositionSnapshot
}

// GetState assembles the control-plane state snapshot.
func (b *Bot) GetState() State {
	halted, reason := b.risk.Halted()
	tickers := b.Tickers()

	positions := make([]PositionSnapshot, 0, len(tickers))
	for _, ticker := range tickers {
		pos := b.tracker.Snapshot(ticker)
		positions = append(positions, PositionSnapshot{
			Ticker:        ticker,
			NetExposure:   pos.NetExposure(),
			YesContracts:  pos.YesContracts,
			NoContracts:   pos.NoContracts,
			UnrealizedPnL: pos.UnrealizedPnL(),
		})
	}

	return State{
		Paused:      b.isPaused(),
		Halted:      halted,
		HaltReason:  reason,
		Running:     b.ctx.Err() == nil,
		RealizedPnL: b.risk.DailyPnL(),
		FillsToday:  b.tracker.FillsToday(),
		VolumeToday: b.tracker.VolumeToday(),
		Risk:        b.risk.GetSnapshot(),
		Positions:   positions,
	}
}

// Metrics is the control-plane snapshot returned by GET /metrics.
type Metrics struct {
	UptimeSeconds float64
	FillsToday    int
	VolumeToday   int
	RealizedPnL   int
	UnrealizedPnL int
	ActiveOrders  int
	LatencyP50Ms  float64
	LatencyP95Ms  float64
	ActiveMarkets int
}

// GetMetrics assembles the control-plane metrics snapshot.
func (b *Bot) GetMetrics() Metrics {
	tickers := b.Tickers()

	activeOrders := 0
	for _, ticker := range tickers {
		activeOrders += len(b.orders.AllForTicker(ticker))
	}

	return Metrics{
		UptimeSeconds: time.Since(b.startedAt).Seconds(),
		FillsToday:    b.tracker.FillsToday(),
		VolumeToday:   b.tracker.VolumeToday(),
		RealizedPnL:   b.risk.DailyPnL(),
		UnrealizedPnL: b.tracker.TotalUnrealizedPnL(),
		ActiveOrders:  activeOrders,
		LatencyP50Ms:  b.latency.PercentileMillis(50),
		LatencyP95Ms:  b.latency.PercentileMillis(95),
		ActiveMarkets: len(tickers),
	}
}
