// Package bot is the central orchestrator of the quoting daemon.
//
// It wires together every subsystem:
//
//  1. A venue.EventStream delivers book snapshots/deltas, ticker marks,
//     and fills for every subscribed ticker.
//  2. Bot maintains one book.Book, one strategy.Strategy, and the shared
//     inventory.Tracker and orders.Manager entries for each active ticker.
//  3. Every event that can change what should be quoted enqueues a
//     coalesced re-quote for its ticker; a single loop drains that queue
//     and runs the six-step re-quote algorithm per ticker.
//  4. risk.Module is consulted before every re-quote and updated on
//     every fill; a halt or circuit-breaker trip collapses every
//     desired quote to "cancel everything" until cleared.
//  5. scanner.Scanner runs alongside as an advisory, best-effort feed —
//     its ranked candidates are logged and cached for expiry-aware
//     strategies, but market membership stays under explicit control
//     (AddMarket/RemoveMarket), never auto-applied.
//
// Lifecycle: New() -> Start() -> [runs until ctx cancelled] -> Stop().
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/book"
	"github.com/newyorkcompute/kalshi-mm/internal/config"
	"github.com/newyorkcompute/kalshi-mm/internal/inventory"
	"github.com/newyorkcompute/kalshi-mm/internal/orders"
	"github.com/newyorkcompute/kalshi-mm/internal/risk"
	"github.com/newyorkcompute/kalshi-mm/internal/scanner"
	"github.com/newyorkcompute/kalshi-mm/internal/store"
	"github.com/newyorkcompute/kalshi-mm/internal/strategy"
	"github.com/newyorkcompute/kalshi-mm/internal/venue"
)

// priceTolerance is how many cents a resting order's price may drift
// from the freshly-desired price before it is replaced rather than
// left alone. At 0, any price change at all triggers a replace.
const priceTolerance = 0

// Bot owns the lifecycle of all quoting goroutines and the per-ticker
// state needed to compute and place quotes.
type Bot struct {
	cfg      config.Config
	client   venue.Client
	stream   venue.EventStream
	scanner  *scanner.Scanner
	store    *store.Store
	books    *book.Manager
	tracker  *inventory.Tracker
	risk     *risk.Module
	orders   *orders.Manager
	latency  *latencyTracker
	logger   *slog.Logger

	stratMu    sync.RWMutex
	strategies map[string]strategy.Strategy

	marketsMu sync.RWMutex
	markets   map[string]bool
	closeTime map[string]time.Time

	pausedMu sync.RWMutex
	paused   bool

	requoteMu      sync.Mutex
	requeuePending map[string]bool
	requoteQueue   []string
	requoteSignal  chan struct{}

	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a Bot from its already-constructed collaborators. The
// caller decides whether client/stream are the production venue
// implementations or venue.MockClient/MockEventStream for a dry run.
func New(cfg config.Config, client venue.Client, stream venue.EventStream, sc *scanner.Scanner, st *store.Store, riskMod *risk.Module, logger *slog.Logger) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		cfg:            cfg,
		client:         client,
		stream:         stream,
		scanner:        sc,
		store:          st,
		books:          book.NewManager(),
		tracker:        inventory.NewTracker(),
		risk:           riskMod,
		orders:         orders.NewManager(),
		latency:        &latencyTracker{},
		logger:         logger.With("component", "bot"),
		strategies:     make(map[string]strategy.Strategy),
		markets:        make(map[string]bool),
		closeTime:      make(map[string]time.Time),
		requeuePending: make(map[string]bool),
		requoteSignal:  make(chan struct{}, 1),
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, ticker := range cfg.Quoting.Markets {
		if err := b.addMarketLocked(ticker); err != nil {
			cancel()
			return nil, err
		}
	}

	return b, nil
}

func (b *Bot) newStrategy() (strategy.Strategy, error) {
	sel := b.cfg.Quoting.Strategy
	params := map[string]float64{
		"gamma":                    sel.Params.Gamma,
		"sigma":                    sel.Params.Sigma,
		"k":                        sel.Params.K,
		"horizon_seconds":          sel.Params.HorizonSeconds,
		"terminal_floor_seconds":   sel.Params.TerminalFloorSeconds,
		"min_spread":               float64(b.cfg.Quoting.MinSpread),
		"max_spread":               float64(b.cfg.Quoting.MaxSpread),
		"size_per_side":            float64(b.cfg.Quoting.SizePerSide),
		"max_position":             float64(b.cfg.Quoting.MaxPositionPerMarket),
		"spread_cents":             float64(b.cfg.Quoting.MinSpread),
		"longshot_threshold":       float64(sel.Params.LongshotThreshold),
		"nearly_certain_threshold": float64(sel.Params.NearlyCertainThreshold),
		"zone_size_multiplier":     sel.Params.ZoneSizeMultiplier,
		"longshot_exposure_cap":    float64(sel.Params.LongshotExposureCap),
		"adverse_spread_inflation": float64(sel.Params.AdverseSpreadInflation),
	}
	return strategy.Factory(sel.Name, params)
}

func (b *Bot) addMarketLocked(ticker string) error {
	strat, err := b.newStrategy()
	if err != nil {
		return fmt.Errorf("market %s: %w", ticker, err)
	}

	b.stratMu.Lock()
	b.strategies[ticker] = strat
	b.stratMu.Unlock()

	if b.store != nil {
		if pos, err := b.store.LoadPosition(ticker); err == nil && pos != nil {
			b.tracker.InitializeFromPortfolio(ticker, pos.YesContracts, pos.NoContracts, pos.TotalCostBasis())
		}
	}

	b.marketsMu.Lock()
	b.markets[ticker] = true
	b.marketsMu.Unlock()

	return nil
}

// Start launches the event dispatcher, the re-quote loop, and the
// scanner, then subscribes the stream to every configured market.
func (b *Bot) Start() error {
	b.startedAt = time.Now()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.stream.Run(b.ctx); err != nil && b.ctx.Err() == nil {
			b.logger.Error("event stream exited", "error", err)
		}
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatchEvents()
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.requoteLoop()
	}()

	if b.scanner != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.scanner.Run(b.ctx)
		}()

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.watchScanResults()
		}()
	}

	tickers := b.Tickers()
	if err := b.stream.Subscribe(b.ctx, tickers); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for _, t := range tickers {
		b.enqueueRequote(t)
	}

	b.logger.Info("bot started", "markets", len(tickers))
	return nil
}

// Stop pauses quoting, flattens every resting order, waits for
// goroutines, and persists final positions.
func (b *Bot) Stop() {
	b.logger.Info("shutting down")

	b.Pause()
	b.cancelAllResting()

	b.cancel()
	b.wg.Wait()

	b.stream.Close()

	if b.store != nil {
		for _, ticker := range b.Tickers() {
			pos := b.tracker.Snapshot(ticker)
			if err := b.store.SavePosition(ticker, pos); err != nil {
				b.logger.Error("save position on shutdown failed", "ticker", ticker, "error", err)
			}
		}
	}

	b.logger.Info("shutdown complete")
}

func (b *Bot) cancelAllResting() {
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
		return
	}
	if _, err := b.client.BatchCancel(ctx, ids); err != nil {
		b.logger.Error("batch cancel on shutdown failed", "error", err)
	}
}

// Tickers returns the currently active market set.
func (b *Bot) Tickers() []string {
	b.marketsMu.RLock()
	defer b.marketsMu.RUnlock()
	out := make([]string, 0, len(b.markets))
	for t := range b.markets {
		out = append(out, t)
	}
	return out
}

func (b *Bot) strategyFor(ticker string) strategy.Strategy {
	b.stratMu.RLock()
	defer b.stratMu.RUnlock()
	return b.strategies[ticker]
}

func (b *Bot) isPaused() bool {
	b.pausedMu.RLock()
	defer b.pausedMu.RUnlock()
	return b.paused
}
