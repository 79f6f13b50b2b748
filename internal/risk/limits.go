package risk

// Limits holds the global, process-wide caps: maximum daily loss,
// maximum total exposure across all markets, and the per-market
// position cap applied uniformly to every ticker.
type Limits struct {
	MaxDailyLossCents    int
	MaxTotalExposure     int
	MaxPositionPerMarket int
}

// CheckDailyLoss reports whether dailyPnL has breached the configured
// daily loss limit (dailyPnL at or below -MaxDailyLossCents).
func (l Limits) CheckDailyLoss(dailyPnLCents int) (breached bool, reason string) {
	if l.MaxDailyLossCents <= 0 {
		return false, ""
	}
	if dailyPnLCents <= -l.MaxDailyLossCents {
		return true, "daily loss limit exceeded"
	}
	return false, ""
}

// CheckTotalExposure reports whether the sum of |net_exposure| across
// all tickers breaches MaxTotalExposure.
func (l Limits) CheckTotalExposure(totalExposureContracts int) (breached bool, reason string) {
	if l.MaxTotalExposure <= 0 {
		return false, ""
	}
	if totalExposureContracts > l.MaxTotalExposure {
		return true, "global exposure limit exceeded"
	}
	return false, ""
}

// CheckPositionCap reports whether a single ticker's |net_exposure|
// breaches MaxPositionPerMarket.
func (l Limits) CheckPositionCap(ticker string, netExposure int) (breached bool, reason string) {
	if l.MaxPositionPerMarket <= 0 {
		return false, ""
	}
	abs := netExposure
	if abs < 0 {
		abs = -abs
	}
	if abs > l.MaxPositionPerMarket {
		return true, "per-market position cap exceeded: " + ticker
	}
	return false, ""
}
