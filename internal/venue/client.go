// Package venue implements the narrow boundary the quoting loop uses
// to talk to the exchange: REST for order placement/cancellation and
// portfolio reads, and a WebSocket feed for book/ticker/fill events.
//
// Every request is rate-limited via per-category token buckets,
// automatically retried with backoff, wrapped in a transport circuit
// breaker, and authenticated with RSA-PSS-signed headers.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Client is the narrow REST surface the order manager and bot depend on.
type Client interface {
	PlaceOrder(ctx context.Context, ticker string, side types.Side, action types.Action, price, count int) (venueID string, err error)
	CancelOrder(ctx context.Context, venueID string) error
	BatchCancel(ctx context.Context, venueIDs []string) (canceled []string, err error)
	FetchPositions(ctx context.Context) ([]types.Position, error)
	FetchBalance(ctx context.Context) (balanceCents int, err error)
}

// RESTClient is the production Client backed by go-resty, wrapped in a
// transport circuit breaker, talking to the venue's trade API.
type RESTClient struct {
	http   *resty.Client
	auth   *Auth
	rl     *RateLimiter
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	dryRun bool
	logger *slog.Logger
}

// NewRESTClient builds a REST client for basePath, signing every
// request with auth and gating it through a rate limiter and a
// transport circuit breaker that opens after consecutive failures.
func NewRESTClient(basePath string, auth *Auth, dryRun bool, logger *slog.Logger) *RESTClient {
	httpClient := resty.New().
		SetBaseURL(basePath).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "venue-rest",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RESTClient{
		http:   httpClient,
		auth:   auth,
		rl:     NewRateLimiter(),
		cb:     cb,
		dryRun: dryRun,
		logger: logger,
	}
}

func (c *RESTClient) do(ctx context.Context, method, path string, body []byte) (*resty.Response, error) {
	headers, err := c.auth.Headers(method, path)
	if err != nil {
		return nil, fmt.Errorf("venue: auth headers: %w", err)
	}

	return c.cb.Execute(func() (*resty.Response, error) {
		req := c.http.R().SetContext(ctx).SetHeaders(headers)
		if body != nil {
			req = req.SetBody(body)
		}

		var resp *resty.Response
		var err error
		switch method {
		case http.MethodGet:
			resp, err = req.Get(path)
		case http.MethodPost:
			resp, err = req.Post(path)
		case http.MethodDelete:
			resp, err = req.Delete(path)
		default:
			return nil, fmt.Errorf("venue: unsupported method %s", method)
		}
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= 500 {
			return nil, fmt.Errorf("venue: %s %s: status %d: %s", method, path, resp.StatusCode(), resp.String())
		}
		return resp, nil
	})
}

// PlaceOrder places a single limit order and returns the venue's order id.
func (c *RESTClient) PlaceOrder(ctx context.Context, ticker string, side types.Side, action types.Action, price, count int) (string, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place order", "ticker", ticker, "side", side, "action", action, "price", price, "count", count)
		return fmt.Sprintf("dry-run-%s-%s", ticker, side), nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return "", err
	}

	payload := struct {
		Ticker string `json:"ticker"`
		Side   string `json:"side"`
		Action string `json:"action"`
		Price  int    `json:"price_cents"`
		Count  int    `json:"count"`
		Type   string `json:"type"`
	}{Ticker: ticker, Side: string(side), Action: string(action), Price: price, Count: count, Type: "limit"}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("venue: marshal order: %w", err)
	}

	const path = "/trade-api/v2/portfolio/orders"
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", fmt.Errorf("venue: place order: %w", err)
	}

	var result struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("venue: decode place response: %w", err)
	}
	return result.OrderID, nil
}

// CancelOrder cancels a single resting order by its venue id.
func (c *RESTClient) CancelOrder(ctx context.Context, venueID string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "venue_id", venueID)
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	path := "/trade-api/v2/portfolio/orders/" + venueID
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("venue: cancel order: %w", err)
	}
	return nil
}

// BatchCancel cancels multiple orders by id in a single call.
func (c *RESTClient) BatchCancel(ctx context.Context, venueIDs []string) ([]string, error) {
	if len(venueIDs) == 0 {
		return nil, nil
	}
	if c.dryRun {
		c.logger.Info("DRY-RUN: would batch cancel", "count", len(venueIDs))
		return venueIDs, nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}

	payload := struct {
		OrderIDs []string `json:"order_ids"`
	}{OrderIDs: venueIDs}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("venue: marshal batch cancel: %w", err)
	}

	const path = "/trade-api/v2/portfolio/orders/batched"
	resp, err := c.do(ctx, http.MethodDelete, path, body)
	if err != nil {
		return nil, fmt.Errorf("venue: batch cancel: %w", err)
	}

	var result struct {
		Canceled []string `json:"canceled_order_ids"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("venue: decode batch cancel response: %w", err)
	}
	return result.Canceled, nil
}

// FetchPositions fetches current positions across every market.
func (c *RESTClient) FetchPositions(ctx context.Context) ([]types.Position, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	const path = "/trade-api/v2/portfolio/positions"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("venue: fetch positions: %w", err)
	}

	var raw struct {
		MarketPositions []struct {
			Ticker       string `json:"ticker"`
			YesContracts int    `json:"yes_contracts"`
			NoContracts  int    `json:"no_contracts"`
			CostBasis    int    `json:"cost_basis_cents"`
		} `json:"market_positions"`
	}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("venue: decode positions response: %w", err)
	}

	positions := make([]types.Position, 0, len(raw.MarketPositions))
	for _, p := range raw.MarketPositions {
		positions = append(positions, types.Position{
			Ticker:       p.Ticker,
			YesContracts: p.YesContracts,
			NoContracts:  p.NoContracts,
			YesCostBasis: p.CostBasis,
		})
	}
	return positions, nil
}

// FetchBalance fetches the account's available cash balance, in cents.
func (c *RESTClient) FetchBalance(ctx context.Context) (int, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return 0, err
	}

	const path = "/trade-api/v2/portfolio/balance"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("venue: fetch balance: %w", err)
	}

	var result struct {
		BalanceCents int `json:"balance"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return 0, fmt.Errorf("venue: decode balance response: %w", err)
	}
	return result.BalanceCents, nil
}
