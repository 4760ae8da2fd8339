// Package dart implements the OpenDART (Financial Supervisory Service) provider.
// OpenDART serves the corporation code list, periodic report listings and
// full financial statements behind an API key. Several keys may be configured;
// each request rotates through them until one is accepted.
//
// Docs: https://opendart.fss.or.kr/guide/main.do
package dart

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
)

const (
	providerName   = "dart"
	defaultBaseURL = "https://opendart.fss.or.kr/api"
	defaultRSSURL  = "https://dart.fss.or.kr/api/todayRSS.xml"
	credAPIKeys    = "api_keys"
)

// Config holds endpoint overrides. Zero values use the public endpoints.
type Config struct {
	BaseURL string
	RSSURL  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Provider implements provider.Provider for OpenDART.
type Provider struct {
	provider.BaseProvider
	client  *infra.HTTPClient
	baseURL string
	rssURL  string
	keys    []string
	logger  zerolog.Logger
}

// New creates a new OpenDART provider and registers all fetchers.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RSSURL == "" {
		cfg.RSSURL = defaultRSSURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"OpenDART - Korean corporate disclosures and financial statements",
			"https://opendart.fss.or.kr",
			[]provider.ProviderCredential{
				{
					Name:        credAPIKeys,
					Description: "OpenDART API keys, comma separated, tried in order",
					Required:    true,
					EnvVar:      "KRFIN_DART_API_KEYS",
				},
			},
		),
		client:  infra.NewHTTPClient(cfg.Timeout, map[string]string{"Accept": "application/json"}),
		baseURL: cfg.BaseURL,
		rssURL:  cfg.RSSURL,
		logger:  cfg.Logger,
	}

	p.RegisterFetcher(&directoryFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelDirectory,
			"Listed corporations from the OpenDART corporation code file",
			nil,
			[]string{provider.ParamMarket},
			0, 2, time.Second, // no response cache: each session keeps its own listing
		),
		p: p,
	})
	p.RegisterFetcher(&disclosureListFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelDisclosureList,
			"Periodic report filings for a corporation",
			[]string{provider.ParamCorpCode, provider.ParamStartDate, provider.ParamEndDate},
			[]string{provider.ParamDisclosureType},
			10*time.Minute, 5, time.Second,
		),
		p: p,
	})
	p.RegisterFetcher(&statementFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelFinancialStatement,
			"Full financial statement of a periodic report",
			[]string{provider.ParamCorpCode, provider.ParamBusinessYear, provider.ParamReportCode, provider.ParamDivision},
			[]string{provider.ParamReceiptNo},
			1*time.Hour, 5, time.Second,
		),
		p: p,
	})
	p.RegisterFetcher(&feedFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelDisclosureFeed,
			"Today's disclosures from the DART RSS feed",
			nil,
			[]string{provider.ParamQuery},
			5*time.Minute, 1, time.Second,
		),
		p: p,
	})

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

// Ping checks that at least one key is accepted.
func (p *Provider) Ping(ctx context.Context) error {
	_, _, err := p.getJSON(ctx, "/company.json", map[string]string{"corp_code": "00126380"})
	if err != nil {
		return fmt.Errorf("dart ping: %w", err)
	}
	return nil
}

// Keys returns the number of configured API keys.
func (p *Provider) Keys() int {
	return len(p.keys)
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
