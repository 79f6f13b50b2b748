// Package scanner periodically polls the venue's public markets
// endpoint to discover candidate markets for the quoting loop, ranking
// them by a composite spread/volume/category score (depth is a filter
// threshold only, not part of the score). It is an
// external, best-effort collaborator: the quoting loop never blocks on
// it, and a scan failure just means the next tick tries again.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newyorkcompute/kalshi-mm/internal/config"
	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// venueMarket is the JSON shape of one entry in the venue's public
// markets listing.
type venueMarket struct {
	Ticker     string  `json:"ticker"`
	Category   string  `json:"category"`
	Status     string  `json:"status"`
	Volume24h  float64 `json:"volume_24h"`
	Liquidity  float64 `json:"liquidity"`
	YesBid     int     `json:"yes_bid"`
	YesAsk     int     `json:"yes_ask"`
	CloseTime  string  `json:"close_time"`
}

// Scanner polls for candidate markets on an interval and publishes the
// ranked result set to Results().
type Scanner struct {
	http     *resty.Client
	cfg      config.ScannerConfig
	logger   *slog.Logger
	resultCh chan []types.RankedMarket

	mu   sync.RWMutex
	last []types.RankedMarket
}

// New builds a scanner pointed at the venue's REST base path.
func New(basePath string, cfg config.ScannerConfig, logger *slog.Logger) *Scanner {
	client := resty.New().
		SetBaseURL(basePath).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Scanner{
		http:     client,
		cfg:      cfg,
		logger:   logger.With("component", "scanner"),
		resultCh: make(chan []types.RankedMarket, 1),
	}
}

// Results returns the channel the bot (or a standalone operator tool)
// reads ranked markets from.
func (s *Scanner) Results() <-chan []types.RankedMarket {
	return s.resultCh
}

// Run polls on cfg.IntervalSeconds until ctx is cancelled. A no-op if
// the scanner is disabled.
func (s *Scanner) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	s.scan(ctx)

	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scanner) scan(ctx context.Context) []types.RankedMarket {
	markets, err := s.fetchMarkets(ctx)
	if err != nil {
		s.logger.Error("scan failed", "error", err)
		return nil
	}

	filtered := s.filter(markets)
	ranked := s.rank(filtered)

	s.logger.Info("scan complete", "total", len(markets), "filtered", len(filtered))

	s.mu.Lock()
	s.last = ranked
	s.mu.Unlock()

	select {
	case s.resultCh <- ranked:
	default:
		select {
		case <-s.resultCh:
		default:
		}
		s.resultCh <- ranked
	}
	return ranked
}

// LastResults returns the most recently computed ranked result set,
// or nil if no scan has completed yet. Used by the control plane's
// GET /scan, which reports the cached state rather than blocking.
func (s *Scanner) LastResults() []types.RankedMarket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// TriggerScan runs one scan synchronously and returns its result,
// regardless of cfg.Enabled or the polling interval. Used by the
// control plane's POST /scan for an on-demand refresh.
func (s *Scanner) TriggerScan(ctx context.Context) []types.RankedMarket {
	return s.scan(ctx)
}

func (s *Scanner) fetchMarkets(ctx context.Context) ([]types.MarketInfo, error) {
	var page struct {
		Markets []venueMarket `json:"markets"`
		Cursor  string        `json:"cursor"`
	}

	var all []types.MarketInfo
	cursor := ""
	for {
		req := s.http.R().SetContext(ctx).SetQueryParam("status", "open")
		if cursor != "" {
			req = req.SetQueryParam("cursor", cursor)
		}
		resp, err := req.SetResult(&page).Get("/trade-api/v2/markets")
		if err != nil {
			return nil, fmt.Errorf("fetch markets: %w", err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("fetch markets: status %d", resp.StatusCode())
		}

		for _, m := range page.Markets {
			all = append(all, convert(m))
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	return all, nil
}

func convert(m venueMarket) types.MarketInfo {
	closeTime, _ := time.Parse(time.RFC3339, m.CloseTime)
	return types.MarketInfo{
		Ticker:    m.Ticker,
		Category:  m.Category,
		Volume24h: m.Volume24h,
		Depth:     m.Liquidity,
		BestBid:   m.YesBid,
		BestAsk:   m.YesAsk,
		CloseTime: closeTime,
	}
}

// filter drops markets that fail the hard thresholds: minimum 24h
// volume, minimum depth, maximum spread, and avoided categories.
func (s *Scanner) filter(markets []types.MarketInfo) []types.MarketInfo {
	avoid := make(map[string]bool, len(s.cfg.AvoidCategories))
	for _, c := range s.cfg.AvoidCategories {
		avoid[c] = true
	}

	var out []types.MarketInfo
	for _, m := range markets {
		if avoid[m.Category] {
			continue
		}
		if m.Volume24h < s.cfg.MinVolume24h {
			continue
		}
		if m.Depth < s.cfg.MinDepth {
			continue
		}
		if m.BestBid <= 0 || m.BestAsk <= 0 || m.BestBid >= m.BestAsk {
			continue
		}
		if float64(m.Spread()) > s.cfg.MaxSpread {
			continue
		}
		out = append(out, m)
	}
	return out
}

// rank scores each market by spread*sqrt(volume)*category_weight and
// sorts highest-first. An unlisted category defaults to weight 1.0.
func (s *Scanner) rank(markets []types.MarketInfo) []types.RankedMarket {
	ranked := make([]types.RankedMarket, 0, len(markets))
	for _, m := range markets {
		weight := 1.0
		if w, ok := s.cfg.CategoryWeights[m.Category]; ok {
			weight = w
		}
		score := float64(m.Spread()) * math.Sqrt(m.Volume24h) * weight
		ranked = append(ranked, types.RankedMarket{Market: m, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}
