package risk

import "testing"

func TestLimitsCheckDailyLoss(t *testing.T) {
	t.Parallel()
	l := Limits{MaxDailyLossCents: 1000}

	if breached, _ := l.CheckDailyLoss(-999); breached {
		t.Error("should not breach just under the limit")
	}
	if breached, reason := l.CheckDailyLoss(-1000); !breached || reason == "" {
		t.Error("should breach exactly at the limit")
	}
	if breached, _ := l.CheckDailyLoss(500); breached {
		t.Error("positive PnL should never breach a loss limit")
	}
}

func TestLimitsCheckDailyLossDisabledWhenZero(t *testing.T) {
	t.Parallel()
	l := Limits{MaxDailyLossCents: 0}
	if breached, _ := l.CheckDailyLoss(-1_000_000); breached {
		t.Error("zero MaxDailyLossCents should disable the check")
	}
}

func TestLimitsCheckTotalExposure(t *testing.T) {
	t.Parallel()
	l := Limits{MaxTotalExposure: 500}
	if breached, _ := l.CheckTotalExposure(500); breached {
		t.Error("should not breach at exactly the cap")
	}
	if breached, _ := l.CheckTotalExposure(501); !breached {
		t.Error("should breach just over the cap")
	}
}

func TestLimitsCheckPositionCap(t *testing.T) {
	t.Parallel()
	l := Limits{MaxPositionPerMarket: 100}
	if breached, _ := l.CheckPositionCap("TICK", -100); breached {
		t.Error("should not breach at exactly the cap, either sign")
	}
	if breached, reason := l.CheckPositionCap("TICK", 101); !breached || reason == "" {
		t.Error("should breach just over the cap")
	}
	if breached, _ := l.CheckPositionCap("TICK", -101); !breached {
		t.Error("should breach a short position beyond the cap in magnitude")
	}
}

func TestLimitsAllDisabledByDefault(t *testing.T) {
	t.Parallel()
	var l Limits
	if breached, _ := l.CheckDailyLoss(-1_000_000); breached {
		t.Error("zero-value Limits should not breach daily loss")
	}
	if breached, _ := l.CheckTotalExposure(1_000_000); breached {
		t.Error("zero-value Limits should not breach total exposure")
	}
	if breached, _ := l.CheckPositionCap("T", 1_000_000); breached {
		t.Error("zero-value Limits should not breach position cap")
	}
}
