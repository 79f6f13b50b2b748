package risk

import (
	"sync"
	"time"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// adverseFill is the minimal record AdverseSelectionDetector keeps per
// observed fill, enough to compute the three scoring factors.
type adverseFill struct {
	action    types.Action
	price     int
	timestamp time.Time
}

type tickerState struct {
	fills         []adverseFill
	lastFillPrice int
	hasLastFill   bool
	flaggedUntil  time.Time
}

// AdverseSelectionDetector scores each ticker's recent fill pattern for
// signs that the flow trading against the bot is informed: repeated
// one-directional fills, a fill immediately followed by an adverse
// price move, or an unusually high fill rate.
type AdverseSelectionDetector struct {
	mu sync.Mutex

	window          time.Duration
	consecThreshold int
	priceMoveCents  int
	fillRateThresh  float64 // fills per minute
	scoreThreshold  float64
	cooldown        time.Duration

	tickers map[string]*tickerState
}

// NewAdverseSelectionDetector creates a detector with the given tunables.
func NewAdverseSelectionDetector(window time.Duration, consecThreshold, priceMoveCents int, fillRateThreshold, scoreThreshold float64, cooldown time.Duration) *AdverseSelectionDetector {
	return &AdverseSelectionDetector{
		window:          window,
		consecThreshold: consecThreshold,
		priceMoveCents:  priceMoveCents,
		fillRateThresh:  fillRateThreshold,
		scoreThreshold:  scoreThreshold,
		cooldown:        cooldown,
		tickers:         make(map[string]*tickerState),
	}
}

func (a *AdverseSelectionDetector) stateLocked(ticker string) *tickerState {
	s, ok := a.tickers[ticker]
	if !ok {
		s = &tickerState{}
		a.tickers[ticker] = s
	}
	return s
}

// RecordFill records a new fill for ticker and recomputes its adverse
// score, flagging the ticker for Cooldown if the score crosses
// ScoreThreshold.
func (a *AdverseSelectionDetector) RecordFill(fill types.Fill) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stateLocked(fill.Ticker)
	s.fills = append(s.fills, adverseFill{action: fill.Action, price: fill.Price, timestamp: fill.Timestamp})
	a.pruneLocked(s, fill.Timestamp)
	s.lastFillPrice = fill.Price
	s.hasLastFill = true

	return a.recomputeLocked(fill.Ticker, s, fill.Timestamp)
}

// UpdatePrice feeds a fresh mark for ticker, used to evaluate whether
// the most recent fill preceded an adverse price move.
func (a *AdverseSelectionDetector) UpdatePrice(ticker string, mark int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stateLocked(ticker)
	now := time.Now()
	a.pruneLocked(s, now)
	score := a.recomputeLocked(ticker, s, now, mark)
	return score
}

func (a *AdverseSelectionDetector) pruneLocked(s *tickerState, now time.Time) {
	cutoff := now.Add(-a.window)
	i := 0
	for ; i < len(s.fills); i++ {
		if s.fills[i].timestamp.After(cutoff) {
			break
		}
	}
	s.fills = s.fills[i:]
}

// recomputeLocked scores the ticker's current state. currentMark is
// optional (variadic): UpdatePrice passes one, RecordFill does not;
// when absent, Factor B contributes 0.
func (a *AdverseSelectionDetector) recomputeLocked(ticker string, s *tickerState, now time.Time, currentMark ...int) float64 {
	score := a.factorA(s) + a.factorB(s, currentMark) + a.factorC(s, now)
	if score > 100 {
		score = 100
	}
	if score >= a.scoreThreshold {
		s.flaggedUntil = now.Add(a.cooldown)
	}
	return score
}

// factorA (0-40): consecutive same-action fills at or beyond
// consecThreshold, scaled linearly in the overage (reaching the
// threshold itself counts as one unit of overage).
func (a *AdverseSelectionDetector) factorA(s *tickerState) float64 {
	if len(s.fills) == 0 {
		return 0
	}
	last := s.fills[len(s.fills)-1].action
	consec := 0
	for i := len(s.fills) - 1; i >= 0; i-- {
		if s.fills[i].action != last {
			break
		}
		consec++
	}
	if consec < a.consecThreshold {
		return 0
	}
	overage := float64(consec - a.consecThreshold + 1)
	score := overage * 20
	if score > 40 {
		score = 40
	}
	return score
}

// factorB (0-40): the most recent fill's direction vs. a subsequent
// price move — "sold and price rose" or "bought and price fell" —
// scaled by the overage beyond priceMoveCents.
func (a *AdverseSelectionDetector) factorB(s *tickerState, currentMark []int) float64 {
	if len(currentMark) == 0 || !s.hasLastFill || len(s.fills) == 0 {
		return 0
	}
	mark := currentMark[0]
	last := s.fills[len(s.fills)-1]

	var move int
	switch last.action {
	case types.Sell:
		move = mark - last.price // sold, then price rose
	case types.Buy:
		move = last.price - mark // bought, then price fell
	}
	if move <= a.priceMoveCents {
		return 0
	}
	overage := float64(move - a.priceMoveCents)
	score := overage * 8
	if score > 40 {
		score = 40
	}
	return score
}

// factorC (0-20): fills-per-minute above fillRateThresh.
func (a *AdverseSelectionDetector) factorC(s *tickerState, now time.Time) float64 {
	if len(s.fills) == 0 || a.fillRateThresh <= 0 {
		return 0
	}
	oldest := s.fills[0].timestamp
	elapsed := now.Sub(oldest).Minutes()
	if elapsed <= 0 {
		elapsed = 1.0 / 60.0
	}
	rate := float64(len(s.fills)) / elapsed
	if rate <= a.fillRateThresh {
		return 0
	}
	overage := rate - a.fillRateThresh
	score := overage * 5
	if score > 20 {
		score = 20
	}
	return score
}

// IsAdverse reports whether ticker is currently flagged, auto-clearing
// once the flag has expired.
func (a *AdverseSelectionDetector) IsAdverse(ticker string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.tickers[ticker]
	if !ok {
		return false
	}
	return time.Now().Before(s.flaggedUntil)
}
