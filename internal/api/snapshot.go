package api

import (
	"github.com/newyorkcompute/kalshi-mm/internal/bot"
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// BuildStateResponse converts a bot.State into the /state wire shape.
func BuildStateResponse(s bot.State) StateResponse {
	positions := make([]PositionResponse, 0, len(s.Positions))
	for _, p := range s.Positions {
		positions = append(positions, PositionResponse{
			Ticker:        p.Ticker,
			NetExposure:   p.NetExposure,
			YesContracts:  p.YesContracts,
			NoContracts:   p.NoContracts,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}

	utilization := 0.0
	if s.Risk.MaxTotalExposure > 0 {
		utilization = float64(s.Risk.TotalExposure) / float64(s.Risk.MaxTotalExposure) * 100
	}

	return StateResponse{
		Paused:    s.Paused,
		Halted:    s.Halted,
		Running:   s.Running,
		Connected: s.Running,
		PnL: PnLSummary{
			RealizedToday: s.RealizedPnL,
			FillsToday:    s.FillsToday,
			VolumeToday:   s.VolumeToday,
		},
		Risk: RiskSummary{
			TotalExposure:      s.Risk.TotalExposure,
			UtilizationPercent: utilization,
			DailyPnL:           s.Risk.DailyPnL,
			Halted:             s.Halted,
			HaltReason:         s.HaltReason,
		},
		Drawdown: DrawdownSummary{
			Drawdown:           s.Risk.Drawdown,
			PositionMultiplier: s.Risk.PositionMultiplier,
			Peak:               s.Risk.Peak,
			Current:            s.Risk.Current,
		},
		CircuitBreaker: CircuitBreakerSummary{
			IsTriggered:       s.Risk.CircuitTriggered,
			Reason:            s.Risk.CircuitReason,
			ConsecutiveLosses: s.Risk.ConsecutiveLosses,
			CooldownEndsAt:    s.Risk.CooldownEndsAt,
		},
		Positions: positions,
	}
}

// BuildMetricsResponse converts a bot.Metrics into the /metrics wire shape.
func BuildMetricsResponse(m bot.Metrics) MetricsResponse {
	return MetricsResponse{
		UptimeSeconds: m.UptimeSeconds,
		FillsToday:    m.FillsToday,
		VolumeToday:   m.VolumeToday,
		RealizedPnL:   m.RealizedPnL,
		UnrealizedPnL: m.UnrealizedPnL,
		ActiveOrders:  m.ActiveOrders,
		LatencyP50:    m.LatencyP50Ms,
		LatencyP95:    m.LatencyP95Ms,
		ActiveMarkets: m.ActiveMarkets,
	}
}

// BuildScanResponse converts scanner results into the /scan wire shape.
func BuildScanResponse(ranked []types.RankedMarket) ScanResponse {
	out := make([]ScanMarketResponse, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, ScanMarketResponse{
			Ticker:    r.Market.Ticker,
			Category:  r.Market.Category,
			Volume24h: r.Market.Volume24h,
			Depth:     r.Market.Depth,
			BestBid:   r.Market.BestBid,
			BestAsk:   r.Market.BestAsk,
			Score:     r.Score,
		})
	}
	return ScanResponse{Markets: out}
}
