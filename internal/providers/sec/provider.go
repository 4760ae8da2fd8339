// Package sec implements the SEC EDGAR data provider.
// It supplies the US side of the entity directory from the EDGAR
// company_tickers.json file.
//
// No API key required. Must include a User-Agent header per SEC policy.
// Docs: https://www.sec.gov/edgar/sec-api-documentation
// Rate limit: 10 requests/second per user-agent.
package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
)

const (
	providerName   = "sec"
	defaultBaseURL = "https://www.sec.gov"

	// SEC requires a User-Agent with company name and email for EDGAR requests.
	defaultUserAgent = "krfin/1.0 (github.com/seenimoa/krfin)"
)

// Config holds endpoint overrides. Zero values use the public endpoint.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Provider implements provider.Provider for SEC EDGAR.
type Provider struct {
	provider.BaseProvider
	client  *infra.HTTPClient
	baseURL string
}

// New creates a new SEC provider and registers all fetchers.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"SEC EDGAR - US listed company tickers",
			"https://www.sec.gov/edgar",
			nil, // No credentials required
		),
		client: infra.NewHTTPClient(cfg.Timeout, map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     "application/json",
		}),
		baseURL: cfg.BaseURL,
	}

	// --- Mappings ---
	p.RegisterFetcher(&directoryFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelDirectory,
			"US companies by ticker from EDGAR company_tickers.json",
			nil,
			[]string{provider.ParamMarket},
			0, 8, time.Second, // no response cache: each session keeps its own listing
		),
		p: p,
	})

	return p
}

// Ping checks connectivity to SEC EDGAR.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Get(ctx, p.baseURL+"/files/company_tickers.json", nil); err != nil {
		return fmt.Errorf("sec ping: %w", err)
	}
	return nil
}

// --- Shared helpers ---

// fetchSECJSON performs a GET request to the SEC API and decodes JSON.
func (p *Provider) fetchSECJSON(ctx context.Context, path string, dest any) error {
	data, err := p.client.Get(ctx, p.baseURL+path, nil)
	if err != nil {
		return &provider.UpstreamError{Provider: providerName, Detail: path, Err: err}
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse SEC JSON: %w", err)
	}
	return nil
}

func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		FetchedAt: time.Now(),
	}
}
