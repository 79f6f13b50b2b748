// Package api implements the quoting daemon's control-plane HTTP
// surface: health/metrics for operators and monitoring, a JSON /state
// snapshot, pause/resume/flatten commands, market add/remove, and a
// forwarding endpoint onto the best-effort scanner. A WebSocket feed
// pushes /state on an interval for a live dashboard.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/bot"
	"github.com/newyorkcompute/kalshi-mm/internal/config"
	"github.com/newyorkcompute/kalshi-mm/internal/scanner"
)

// Server runs the control-plane HTTP API.
type Server struct {
	cfg      config.APIConfig
	bot      *bot.Bot
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger

	cancel context.CancelFunc
}

// NewServer wires a control-plane Server against the running bot and
// its optional scanner.
func NewServer(cfg config.APIConfig, b *bot.Bot, sc *scanner.Scanner, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(b, sc, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("GET /metrics", handlers.HandleMetrics)
	mux.Handle("GET /metrics/prom", promHandler(handlers))
	mux.HandleFunc("GET /state", handlers.HandleState)
	mux.HandleFunc("POST /pause", handlers.HandlePause)
	mux.HandleFunc("POST /resume", handlers.HandleResume)
	mux.HandleFunc("POST /flatten", handlers.HandleFlatten)
	mux.HandleFunc("POST /markets/{ticker}", handlers.HandleMarket)
	mux.HandleFunc("DELETE /markets/{ticker}", handlers.HandleMarket)
	mux.HandleFunc("GET /scan", handlers.HandleScan)
	mux.HandleFunc("POST /scan", handlers.HandleScan)
	mux.HandleFunc("GET /ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		bot:      b,
		hub:      hub,
		handlers: handlers,
		server:   httpServer,
		logger:   logger.With("component", "api-server"),
	}
}

// Start runs the hub, the state broadcaster, and the HTTP server.
// Blocks until the server is stopped.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run()
	go s.broadcastLoop(ctx)

	s.logger.Info("control-plane server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and the broadcast loop.
func (s *Server) Stop() error {
	s.logger.Info("stopping control-plane server")
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
