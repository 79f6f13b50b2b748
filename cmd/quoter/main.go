// kalshi-mm quotes both sides of a set of binary markets, continuously
// adjusting prices as the book moves and inventory accumulates.
//
// Architecture:
//
//	main.go                 — entry point: loads config, wires collaborators, waits for SIGINT/SIGTERM
//	internal/bot            — orchestrator: owns books, inventory, risk, strategies, and the re-quote loop
//	internal/strategy       — symmetric, Avellaneda-Stoikov, and optimism-tax quoting variants
//	internal/inventory      — tracks YES/NO positions, cost bases, realized/unrealized PnL
//	internal/scanner        — polls the venue's public markets endpoint, ranks candidates
//	internal/book           — local order book mirror fed by WebSocket snapshots + deltas
//	internal/venue          — REST client and WebSocket feed for the trading venue
//	internal/orders         — reconciles desired quotes against resting orders
//	internal/risk           — drawdown scaling, circuit breaker, adverse-selection detection, limits
//	internal/store          — JSON file persistence for positions (survives restarts)
//	internal/api            — control-plane HTTP server (health, metrics, state, pause/resume/flatten)
//
// How it makes money:
//
//	Each market trades two complementary contracts, YES and NO, whose
//	prices always sum to 100 cents. The bot posts a buy on YES below its
//	fair-value estimate and, synthetically, a sell on YES above it by
//	buying NO at the complementary price. When both sides fill it earns
//	the spread; risk controls scale down or halt quoting as inventory or
//	drawdown grows.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/newyorkcompute/kalshi-mm/internal/api"
	"github.com/newyorkcompute/kalshi-mm/internal/bot"
	"github.com/newyorkcompute/kalshi-mm/internal/config"
	"github.com/newyorkcompute/kalshi-mm/internal/risk"
	"github.com/newyorkcompute/kalshi-mm/internal/scanner"
	"github.com/newyorkcompute/kalshi-mm/internal/store"
	"github.com/newyorkcompute/kalshi-mm/internal/venue"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("KALSHI_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	client, stream, err := buildVenue(*cfg, logger)
	if err != nil {
		logger.Error("failed to build venue collaborators", "error", err)
		os.Exit(1)
	}

	var sc *scanner.Scanner
	if cfg.Scanner.Enabled {
		sc = scanner.New(cfg.Venue.BasePath, cfg.Scanner, logger)
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open position store", "error", err)
		os.Exit(1)
	}

	riskMod := buildRiskModule(*cfg)

	b, err := bot.New(*cfg, client, stream, sc, st, riskMod, logger)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, b, sc, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("control-plane server failed", "error", err)
			}
		}()
		logger.Info("control plane started", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port))
	}

	if err := b.Start(); err != nil {
		logger.Error("failed to start bot", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("kalshi market maker started",
		"markets", cfg.Quoting.Markets,
		"strategy", cfg.Quoting.Strategy.Name,
		"size_per_side", cfg.Quoting.SizePerSide,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop control plane", "error", err)
		}
	}

	b.Stop()
}

// buildVenue constructs the REST client and WebSocket feed for cfg's
// venue, or their in-memory MockClient/MockEventStream doubles when
// dry-run is set and no live credentials are required.
func buildVenue(cfg config.Config, logger *slog.Logger) (venue.Client, venue.EventStream, error) {
	if cfg.DryRun && cfg.Venue.APIKeyID == "" {
		return venue.NewMockClient(), venue.NewMockEventStream(), nil
	}

	auth, err := venue.NewAuth(cfg.Venue.APIKeyID, cfg.Venue.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("venue auth: %w", err)
	}

	client := venue.NewRESTClient(cfg.Venue.BasePath, auth, cfg.DryRun, logger)
	stream := venue.NewWSFeed(cfg.Venue.WSPath, auth, logger)
	return client, stream, nil
}

func buildRiskModule(cfg config.Config) *risk.Module {
	dd := risk.NewDrawdownManager(
		cfg.Risk.Drawdown.ScaleStart,
		cfg.Risk.Drawdown.HalfSize,
		cfg.Risk.Drawdown.Halt,
	)
	cb := risk.NewCircuitBreaker(
		cfg.Risk.CircuitBreaker.MaxConsecutiveLosses,
		cfg.Risk.CircuitBreaker.RapidLossThreshold,
		cfg.Risk.CircuitBreaker.RapidLossWindow,
		cfg.Risk.CircuitBreaker.Cooldown,
	)
	adv := risk.NewAdverseSelectionDetector(
		cfg.Risk.Adverse.Window,
		cfg.Risk.Adverse.ConsecThreshold,
		cfg.Risk.Adverse.PriceMoveCents,
		cfg.Risk.Adverse.FillRateThreshold,
		cfg.Risk.Adverse.ScoreThreshold,
		cfg.Risk.Adverse.Cooldown,
	)
	limits := risk.Limits{
		MaxDailyLossCents:    cfg.Quoting.DailyLossLimitCents,
		MaxTotalExposure:     cfg.Quoting.ExposureLimitContracts,
		MaxPositionPerMarket: cfg.Quoting.MaxPositionPerMarket,
	}
	return risk.NewModule(dd, cb, adv, limits)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
