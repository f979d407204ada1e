// Package backend is the HTTP client for the trading backend collaborator.
// It exposes the logical operations the core requires and hides the
// backend's response-shape quirks behind one normalization step.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// Client talks to the backend REST API. All methods honor the caller's
// context so overlapping in-flight requests can be aborted under latency.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// New creates a backend Client. timeout bounds each request; zero means a
// 10s default.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "backend_client")),
	}
}

// MonitoringPairs fetches the current list of user-configured pairs.
func (c *Client) MonitoringPairs(ctx context.Context) ([]domain.PairConfig, error) {
	body, err := c.get(ctx, "/api/monitoring-pairs", nil)
	if err != nil {
		return nil, err
	}
	var pairs []domain.PairConfig
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("backend: decode pairs: %w", err)
	}
	return pairs, nil
}

// TopOfBook fetches the raw top-of-book payload for one instrument. The
// payload shape varies by exchange; callers pass it to feed.Normalize.
func (c *Client) TopOfBook(ctx context.Context, exchange, symbol string, instrumentType domain.InstrumentType) ([]byte, error) {
	q := url.Values{}
	q.Set("exchange", exchange)
	q.Set("symbol", symbol)
	q.Set("instrumentType", string(instrumentType))
	return c.get(ctx, "/api/orderbook/top", q)
}

// ExecutionLog fetches the full raw execution list. The backend has shipped
// several response envelopes over time; decodeExecutionEnvelope normalizes
// all of them to one array.
func (c *Client) ExecutionLog(ctx context.Context) ([]domain.RawExecutionEntry, error) {
	body, err := c.get(ctx, "/api/executions", nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeExecutionEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("backend: decode execution log: %w", err)
	}
	return entries, nil
}

// AveragePrices fetches per-strategy average fill prices.
func (c *Client) AveragePrices(ctx context.Context) (map[string]domain.LegAveragePrices, error) {
	body, err := c.get(ctx, "/api/executions/average-prices", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.LegAveragePrices)
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("backend: decode average prices: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend: %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	return body, nil
}
