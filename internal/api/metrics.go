package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promHandler returns a Prometheus scrape endpoint that refreshes the
// gauges from the bot's live metrics on every request before
// delegating to the standard exposition handler.
func promHandler(h *Handlers) http.Handler {
	inner := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recordMetrics(BuildMetricsResponse(h.bot.GetMetrics()))
		inner.ServeHTTP(w, r)
	})
}

func init() {
	prometheus.MustRegister(uptimeGauge, fillsTodayGauge, volumeTodayGauge,
		realizedPnLGauge, unrealizedPnLGauge, activeOrdersGauge,
		latencyP50Gauge, latencyP95Gauge, activeMarketsGauge)
}

var (
	uptimeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_uptime_seconds",
		Help: "Seconds since the quoting daemon started.",
	})
	fillsTodayGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_fills_today",
		Help: "Fills received since the last daily reset.",
	})
	volumeTodayGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_volume_today_contracts",
		Help: "Contracts traded since the last daily reset.",
	})
	realizedPnLGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_realized_pnl_cents",
		Help: "Realized PnL in cents since the last daily reset.",
	})
	unrealizedPnLGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_unrealized_pnl_cents",
		Help: "Mark-to-market unrealized PnL across all active markets, in cents.",
	})
	activeOrdersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_active_orders",
		Help: "Resting orders across all active markets.",
	})
	latencyP50Gauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_requote_latency_p50_ms",
		Help: "Median re-quote cycle duration over the rolling sample window, in milliseconds.",
	})
	latencyP95Gauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_requote_latency_p95_ms",
		Help: "95th percentile re-quote cycle duration over the rolling sample window, in milliseconds.",
	})
	activeMarketsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_mm_active_markets",
		Help: "Markets currently subscribed and quoted.",
	})
)

// recordMetrics updates the Prometheus gauges from a fresh snapshot.
// Called before every /metrics/prom scrape response is served.
func recordMetrics(m MetricsResponse) {
	uptimeGauge.Set(m.UptimeSeconds)
	fillsTodayGauge.Set(float64(m.FillsToday))
	volumeTodayGauge.Set(float64(m.VolumeToday))
	realizedPnLGauge.Set(float64(m.RealizedPnL))
	unrealizedPnLGauge.Set(float64(m.UnrealizedPnL))
	activeOrdersGauge.Set(float64(m.ActiveOrders))
	latencyP50Gauge.Set(m.LatencyP50)
	latencyP95Gauge.Set(m.LatencyP95)
	activeMarketsGauge.Set(float64(m.ActiveMarkets))
}
