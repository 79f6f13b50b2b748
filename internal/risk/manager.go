package risk

import (
	"sync"
	"time"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Module aggregates the drawdown manager, circuit breaker, adverse
// detector, and global limits into the one risk surface the quoting
// loop consults per fill and per re-quote.
type Module struct {
	mu sync.RWMutex

	Drawdown *DrawdownManager
	Breaker  *CircuitBreaker
	Adverse  *AdverseSelectionDetector
	Limits   Limits

	dailyPnL      int
	totalExposure map[string]int // ticker -> |net_exposure|

	halted     bool
	haltReason string
}

// NewModule wires the four sub-components into one risk module.
func NewModule(dd *DrawdownManager, cb *CircuitBreaker, adv *AdverseSelectionDetector, limits Limits) *Module {
	return &Module{
		Drawdown:      dd,
		Breaker:       cb,
		Adverse:       adv,
		Limits:        limits,
		totalExposure: make(map[string]int),
	}
}

// OnFill feeds a fill's realized PnL and position update into every
// sub-component, and re-evaluates the global limits. It may set the
// module's halted flag.
func (m *Module) OnFill(fill types.Fill, realizedPnL int, netExposure int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL += realizedPnL
	m.Breaker.OnFillPnL(realizedPnL)
	m.Adverse.RecordFill(fill)

	abs := netExposure
	if abs < 0 {
		abs = -abs
	}
	m.totalExposure[fill.Ticker] = abs

	m.Drawdown.Update(float64(m.dailyPnL))

	m.evaluateLimitsLocked(fill.Ticker, netExposure)
}

// UpdateExposure refreshes the tracked |net_exposure| for ticker
// without a fill, e.g. after a mark-to-market recompute.
func (m *Module) UpdateExposure(ticker string, netExposure int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	abs := netExposure
	if abs < 0 {
		abs = -abs
	}
	m.totalExposure[ticker] = abs
	m.evaluateLimitsLocked(ticker, netExposure)
}

func (m *Module) evaluateLimitsLocked(ticker string, netExposure int) {
	if breached, reason := m.Limits.CheckDailyLoss(m.dailyPnL); breached {
		m.halted = true
		m.haltReason = reason
		return
	}
	total := 0
	for _, v := range m.totalExposure {
		total += v
	}
	if breached, reason := m.Limits.CheckTotalExposure(total); breached {
		m.halted = true
		m.haltReason = reason
		return
	}
	if breached, reason := m.Limits.CheckPositionCap(ticker, netExposure); breached {
		m.halted = true
		m.haltReason = reason
		return
	}
	if m.Drawdown.ShouldHalt() {
		m.halted = true
		m.haltReason = "drawdown halt threshold reached"
	}
}

// RemoveMarket drops ticker's tracked exposure, e.g. when unsubscribed.
func (m *Module) RemoveMarket(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.totalExposure, ticker)
}

// Halted reports whether the module has set a process-wide halt.
func (m *Module) Halted() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.halted, m.haltReason
}

// ClearHalt clears a halt, e.g. on operator intervention after
// investigating the cause. It does not reset the circuit breaker or
// drawdown state, which have their own clearing rules.
func (m *Module) ClearHalt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = false
	m.haltReason = ""
}

// DailyPnL returns the accumulated realized PnL since the last reset.
func (m *Module) DailyPnL() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dailyPnL
}

// ResetDaily zeroes the daily PnL counter and the drawdown tracker,
// called at the venue's daily boundary.
func (m *Module) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.Drawdown.Reset()
}

// Snapshot is a control-plane-safe, fully-detached copy of risk state.
type Snapshot struct {
	Halted             bool
	HaltReason         string
	DailyPnL           int
	TotalExposure      int
	MaxTotalExposure   int
	Drawdown           float64
	PositionMultiplier float64
	Peak               float64
	Current            float64
	CircuitTriggered   bool
	CircuitReason      string
	ConsecutiveLosses  int
	CooldownEndsAt     time.Time
}

// GetSnapshot clones the current risk state for the control plane.
func (m *Module) GetSnapshot() Snapshot {
	m.mu.RLock()
	total := 0
	for _, v := range m.totalExposure {
		total += v
	}
	s := Snapshot{
		Halted:           m.halted,
		HaltReason:       m.haltReason,
		DailyPnL:         m.dailyPnL,
		TotalExposure:    total,
		MaxTotalExposure: m.Limits.MaxTotalExposure,
	}
	m.mu.RUnlock()

	s.Drawdown = m.Drawdown.Drawdown()
	s.PositionMultiplier = m.Drawdown.PositionMultiplier()
	s.Peak = m.Drawdown.Peak()
	s.Current = m.Drawdown.Current()
	s.CircuitTriggered = m.Breaker.IsTriggered()
	s.CircuitReason = m.Breaker.Reason()
	s.ConsecutiveLosses = m.Breaker.ConsecutiveLosses()
	s.CooldownEndsAt = m.Breaker.CooldownUntil()
	return s
}
