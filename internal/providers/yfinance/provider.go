// Package yfinance implements the Yahoo Finance data provider.
// It wraps the public v8 chart API into the standard provider/fetcher
// framework as a price-history fallback for KRX stocks and indices.
//
// Yahoo Finance is a free, no-API-key provider.
package yfinance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
)

const (
	providerName   = "yfinance"
	defaultBaseURL = "https://query1.finance.yahoo.com"
)

// Config holds endpoint overrides. Zero values use the public endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Provider implements provider.Provider for Yahoo Finance.
type Provider struct {
	provider.BaseProvider
	client  *infra.HTTPClient
	baseURL string
}

// New creates a new YFinance provider and registers all fetchers.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Yahoo Finance - free daily price history",
			"https://finance.yahoo.com",
			nil, // no credentials required
		),
		client:  infra.NewHTTPClient(cfg.Timeout, map[string]string{"Accept": "application/json"}),
		baseURL: cfg.BaseURL,
	}

	// --- Equity / Price ---
	p.RegisterFetcher(newEquityHistoricalFetcher(p))

	// --- Index ---
	p.RegisterFetcher(newIndexHistoricalFetcher(p))

	return p
}

// Ping checks connectivity to Yahoo Finance.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.chart(ctx, "^KS11", time.Now().AddDate(0, 0, -7), time.Now()); err != nil {
		return fmt.Errorf("yfinance ping: %w", err)
	}
	return nil
}

// --- Shared helpers ---

// chart fetches daily bars for one Yahoo symbol.
func (p *Provider) chart(ctx context.Context, symbol string, start, end time.Time) (*yfChartResult, error) {
	q := url.Values{
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
		"interval": {"1d"},
	}
	u := p.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	body, err := p.client.Get(ctx, u, nil)
	if err != nil {
		return nil, &provider.UpstreamError{Provider: providerName, Detail: "chart " + symbol, Err: err}
	}

	var resp yfChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	return &resp.Chart.Result[0], nil
}

// newResult creates a FetchResult with the current timestamp.
func newResult(data any, variant string) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		Variant:   variant,
		FetchedAt: time.Now(),
	}
}

// newCachedResult creates a FetchResult marked as cached.
func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		FetchedAt: time.Now(),
		Cached:    true,
	}
}
