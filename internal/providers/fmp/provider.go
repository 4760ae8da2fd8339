// Package fmp implements the Financial Modeling Prep (FMP) data provider.
// It serves quarterly US income, balance-sheet and cash-flow statements.
// Several API keys may be configured; a request moves to the next key when
// one fails or answers with an empty list, which is how exhausted free-tier
// keys behave.
//
// Free tier: 250 requests/day.
// Docs: https://financialmodelingprep.com/developer/docs
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

const (
	providerName   = "fmp"
	defaultBaseURL = "https://financialmodelingprep.com/api/v3"
	credAPIKeys    = "api_keys"
)

// Config holds endpoint overrides. Zero values use the public endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Provider implements provider.Provider for FMP.
type Provider struct {
	provider.BaseProvider
	client  *infra.HTTPClient
	baseURL string
	keys    []string
	logger  zerolog.Logger
}

// New creates a new FMP provider and registers all fetchers.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Financial Modeling Prep - US financial statements",
			"https://financialmodelingprep.com",
			[]provider.ProviderCredential{
				{
					Name:        credAPIKeys,
					Description: "FMP API keys, comma separated, tried in order",
					Required:    true,
					EnvVar:      "KRFIN_FMP_API_KEYS",
				},
			},
		),
		client:  infra.NewHTTPClient(cfg.Timeout, map[string]string{"Accept": "application/json"}),
		baseURL: cfg.BaseURL,
		logger:  cfg.Logger,
	}

	// --- Fundamentals ---
	p.RegisterFetcher(newStatementFetcher(provider.ModelIncomeStatement, models.USIncome, p))
	p.RegisterFetcher(newStatementFetcher(provider.ModelBalanceSheet, models.USBalance, p))
	p.RegisterFetcher(newStatementFetcher(provider.ModelCashFlowStatement, models.USCashFlow, p))

	return p
}

// Init stores the API key list.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.keys = p.CredentialList(credAPIKeys)
	if len(p.keys) == 0 {
		return &provider.ErrInvalidCredentials{Provider: providerName, Detail: "no usable API key"}
	}
	return nil
}

// Ping checks connectivity to FMP.
func (p *Provider) Ping(ctx context.Context) error {
	_, _, err := p.getList(ctx, "/income-statement/AAPL", url.Values{"limit": {"1"}})
	if err != nil {
		return fmt.Errorf("fmp ping: %w", err)
	}
	return nil
}

// --- Shared helpers ---

// errorBody is what FMP returns instead of a list for bad or exhausted keys.
type errorBody struct {
	Message string `json:"Error Message"`
}

func keyLabel(i int) string {
	return fmt.Sprintf("key%d", i+1)
}

// getList requests a list endpoint once per key until one returns rows.
// When every key answered with an empty list the result is an empty slice
// and no error; when every key failed it is an upstream error.
func (p *Provider) getList(ctx context.Context, path string, q url.Values) ([]models.USStatement, string, error) {
	attempts := make([]fallback.Attempt[[]models.USStatement], 0, len(p.keys))
	for i, key := range p.keys {
		attempts = append(attempts, fallback.Attempt[[]models.USStatement]{
			Variant: keyLabel(i),
			Run: func(ctx context.Context) ([]models.USStatement, error) {
				return p.fetchOnce(ctx, path, q, key)
			},
		})
	}

	out := fallback.Run(ctx, attempts, fallback.EmptySlice[models.USStatement],
		fallback.WithName("fmp "+path), fallback.WithLogger(p.logger))
	switch out.Status {
	case fallback.StatusSuccess:
		return out.Value, out.VariantUsed, nil
	case fallback.StatusRejected:
		return nil, "", out.Err
	}

	last := ""
	for _, a := range out.Attempts {
		if a.Outcome == "empty" {
			return []models.USStatement{}, "", nil
		}
		last = a.Error
	}
	return nil, "", &provider.UpstreamError{
		Provider: providerName,
		Detail:   fmt.Sprintf("%s: all %d API keys failed: %s", path, len(p.keys), last),
	}
}

func (p *Provider) fetchOnce(ctx context.Context, path string, q url.Values, key string) ([]models.USStatement, error) {
	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	params.Set("apikey", key)

	body, err := p.client.Get(ctx, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var rows []models.USStatement
	if err := json.Unmarshal(body, &rows); err != nil {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
			return nil, fmt.Errorf("fmp: %s", eb.Message)
		}
		return nil, fmt.Errorf("parse FMP JSON: %w", err)
	}
	return rows, nil
}

// newResult creates a FetchResult.
func newResult(data any, variant string) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		Variant:   variant,
		FetchedAt: time.Now(),
	}
}

// newCachedResult creates a cached FetchResult.
func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		FetchedAt: time.Now(),
		Cached:    true,
	}
}
