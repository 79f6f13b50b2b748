package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/bot"
	"github.com/newyorkcompute/kalshi-mm/internal/scanner"
)

// Handlers holds the collaborators every control-plane route needs.
type Handlers struct {
	bot     *bot.Bot
	scanner *scanner.Scanner
	hub     *Hub
	logger  *slog.Logger
}

// NewHandlers wires a Handlers against the running bot.
func NewHandlers(b *bot.Bot, sc *scanner.Scanner, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		bot:     b,
		scanner: sc,
		hub:     hub,
		logger:  logger.With("component", "api-handlers"),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// HandleHealth answers GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now()})
}

// HandleMetrics answers GET /metrics with the spec's JSON summary.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildMetricsResponse(h.bot.GetMetrics()))
}

// HandleState answers GET /state.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildStateResponse(h.bot.GetState()))
}

// HandlePause answers POST /pause.
func (h *Handlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.bot.Pause()
	h.broadcastState()
	writeJSON(w, http.StatusOK, PauseResponse{Paused: true})
}

// HandleResume answers POST /resume.
func (h *Handlers) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.bot.Resume()
	h.broadcastState()
	writeJSON(w, http.StatusOK, PauseResponse{Paused: false})
}

// HandleFlatten answers POST /flatten: cancel every resting order and
// pause quoting until the next explicit resume.
func (h *Handlers) HandleFlatten(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Flatten(); err != nil {
		h.logger.Error("flatten failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.bot.Pause()
	h.broadcastState()
	writeJSON(w, http.StatusOK, FlattenResponse{Flattened: true})
}

// HandleMarket answers POST and DELETE /markets/{ticker}.
func (h *Handlers) HandleMarket(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimPrefix(r.URL.Path, "/markets/")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := h.bot.AddMarket(ticker); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, MarketActionResponse{Added: true, TotalMarkets: len(h.bot.Tickers())})
	case http.MethodDelete:
		if err := h.bot.RemoveMarket(ticker); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, MarketActionResponse{Removed: true, TotalMarkets: len(h.bot.Tickers())})
	default:
		writeError(w, http.StatusMethodNotAllowed, "use POST or DELETE")
	}
}

// HandleScan answers GET /scan (cached results) and POST /scan
// (triggers an immediate poll). The scanner is out-of-core and
// best-effort: a nil scanner (disabled in config) yields an empty list.
func (h *Handlers) HandleScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeJSON(w, http.StatusOK, ScanResponse{Markets: []ScanMarketResponse{}})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, BuildScanResponse(h.scanner.LastResults()))
	case http.MethodPost:
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		writeJSON(w, http.StatusOK, BuildScanResponse(h.scanner.TriggerScan(ctx)))
	default:
		writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
	}
}

// HandleWebSocket upgrades the connection to a read-only feed of
// control-plane state pushes.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	data, err := json.Marshal(stateEvent(BuildStateResponse(h.bot.GetState())))
	if err != nil {
		h.logger.Error("failed to marshal initial state", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial state to client")
	}
}

func (h *Handlers) broadcastState() {
	h.hub.BroadcastEvent(stateEvent(BuildStateResponse(h.bot.GetState())))
}

func stateEvent(s StateResponse) Event {
	return Event{Type: "state", Timestamp: time.Now(), Data: s}
}
