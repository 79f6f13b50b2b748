package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/newyorkcompute/kalshi-mm/internal/bot"
	"github.com/newyorkcompute/kalshi-mm/internal/config"
	"github.com/newyorkcompute/kalshi-mm/internal/risk"
	"github.com/newyorkcompute/kalshi-mm/internal/venue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRiskModule() *risk.Module {
	dd := risk.NewDrawdownManager(1000, 3000, 6000)
	cb := risk.NewCircuitBreaker(5, 3, time.Minute, time.Minute)
	adv := risk.NewAdverseSelectionDetector(time.Minute, 5, 10, 10, 0.8, time.Minute)
	return risk.NewModule(dd, cb, adv, risk.Limits{})
}

func newTestHandlers(t *testing.T) (*Handlers, *bot.Bot) {
	t.Helper()
	cfg := config.Config{
		Quoting: config.QuotingConfig{
			Markets:              []string{"T-1"},
			SizePerSide:          10,
			MinSpread:            2,
			MaxSpread:            20,
			MaxPositionPerMarket: 100,
			StaleBookTimeout:     time.Minute,
			Strategy: config.StrategySelectConfig{
				Name: "symmetric",
			},
		},
	}

	b, err := bot.New(cfg, venue.NewMockClient(), venue.NewMockEventStream(), nil, nil, testRiskModule(), testLogger())
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}

	hub := NewHub(testLogger())
	return NewHandlers(b, nil, hub, testLogger()), b
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleMetricsIncludesLatencyFields(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp MetricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LatencyP50 != 0 || resp.LatencyP95 != 0 {
		t.Errorf("latency percentiles = %v/%v, want 0 before any re-quote has run", resp.LatencyP50, resp.LatencyP95)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	for _, field := range []string{"latency_p50", "latency_p95"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("response missing %q field", field)
		}
	}
}

func TestHandleStateReportsInitialPosition(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleState(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	var resp StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Paused {
		t.Error("expected not paused initially")
	}
	if len(resp.Positions) != 1 {
		t.Errorf("expected 1 position, got %d", len(resp.Positions))
	}
}

func TestHandlePauseAndResume(t *testing.T) {
	t.Parallel()
	h, b := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandlePause(rec, httptest.NewRequest(http.MethodPost, "/pause", nil))
	var pauseResp PauseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pauseResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !pauseResp.Paused || !b.Paused() {
		t.Fatal("expected bot paused after POST /pause")
	}

	rec = httptest.NewRecorder()
	h.HandleResume(rec, httptest.NewRequest(http.MethodPost, "/resume", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &pauseResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pauseResp.Paused || b.Paused() {
		t.Fatal("expected bot resumed after POST /resume")
	}
}

func TestHandleFlatten(t *testing.T) {
	t.Parallel()
	h, b := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleFlatten(rec, httptest.NewRequest(http.MethodPost, "/flatten", nil))

	var resp FlattenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Flattened {
		t.Error("expected flattened=true")
	}
	if !b.Paused() {
		t.Error("expected bot paused after flatten")
	}
}

func TestHandleMarketAddAndRemove(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/markets/T-2", nil)
	rec := httptest.NewRecorder()
	h.HandleMarket(rec, req)

	var addResp MarketActionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &addResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !addResp.Added || addResp.TotalMarkets != 2 {
		t.Fatalf("unexpected add response: %+v", addResp)
	}

	req = httptest.NewRequest(http.MethodDelete, "/markets/T-2", nil)
	rec = httptest.NewRecorder()
	h.HandleMarket(rec, req)

	var removeResp MarketActionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &removeResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !removeResp.Removed || removeResp.TotalMarkets != 1 {
		t.Fatalf("unexpected remove response: %+v", removeResp)
	}
}

func TestHandleScanWithNoScanner(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleScan(rec, httptest.NewRequest(http.MethodGet, "/scan", nil))

	var resp ScanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Markets) != 0 {
		t.Errorf("expected no markets without a scanner, got %d", len(resp.Markets))
	}
}

func TestIsOriginAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"empty origin allowed", "", true},
		{"localhost allowed", "http://localhost:8080", true},
		{"loopback ip allowed", "http://127.0.0.1:8080", true},
		{"remote origin denied", "https://evil.example", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := isOriginAllowed(req); got != tt.want {
				t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
