// Package krx implements the Korea Exchange provider. Listings come from the
// KIND corporate list download; market capitalisation and daily prices come
// from the data.krx.co.kr JSON endpoint (getJsonData.cmd), which expects a
// browser-like request.
package krx

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/provider"
)

const (
	providerName   = "krx"
	defaultDataURL = "http://data.krx.co.kr/comm/bldAttendant/getJsonData.cmd"
	defaultKindURL = "https://kind.krx.co.kr/corpgeneral/corpList.do"
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	dataReferer    = "http://data.krx.co.kr/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201"
)

// Config holds endpoint overrides. Zero values use the public endpoints.
type Config struct {
	DataURL string
	KindURL string
	Timeout time.Duration
}

// Provider implements provider.Provider for KRX.
type Provider struct {
	provider.BaseProvider
	client  *infra.HTTPClient
	dataURL string
	kindURL string
}

// New creates a new KRX provider and registers all fetchers.
func New(cfg Config) *Provider {
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.KindURL == "" {
		cfg.KindURL = defaultKindURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Korea Exchange - listings, market capitalisation and daily prices",
			"http://data.krx.co.kr",
			nil,
		),
		client: infra.NewHTTPClient(cfg.Timeout, map[string]string{
			"User-Agent":      browserUA,
			"Accept-Language": "ko-KR,ko;q=0.9",
		}),
		dataURL: cfg.DataURL,
		kindURL: cfg.KindURL,
	}

	p.RegisterFetcher(&directoryFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelDirectory,
			"Listed companies by segment from the KIND corporate list",
			nil,
			[]string{provider.ParamMarket},
			0, 2, time.Second, // no response cache: each session keeps its own listing
		),
		p: p,
	})
	p.RegisterFetcher(&marketCapFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelMarketCap,
			"Market capitalisation snapshot for one trading day",
			[]string{provider.ParamDate},
			[]string{provider.ParamMarket, provider.ParamSymbol},
			1*time.Hour, 2, time.Second,
		),
		p: p,
	})
	p.RegisterFetcher(&equityHistoricalFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelEquityHistorical,
			"Daily OHLCV for a listed stock",
			[]string{provider.ParamSymbol, provider.ParamStartDate, provider.ParamEndDate},
			nil,
			1*time.Hour, 2, time.Second,
		),
		p: p,
	})
	p.RegisterFetcher(&indexHistoricalFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelIndexHistorical,
			"Daily KOSPI or KOSDAQ composite index",
			[]string{provider.ParamIndex, provider.ParamStartDate, provider.ParamEndDate},
			nil,
			1*time.Hour, 2, time.Second,
		),
		p: p,
	})

	return p
}

// Ping checks connectivity to data.krx.co.kr.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.postData(ctx, url.Values{"bld": {"dbms/comm/finder/finder_stkisu"}, "mktsel": {"ALL"}, "searchText": {"005930"}}); err != nil {
		return fmt.Errorf("krx ping: %w", err)
	}
	return nil
}

// postData issues one getJsonData.cmd request.
func (p *Provider) postData(ctx context.Context, form url.Values) ([]byte, error) {
	body, err := p.client.PostForm(ctx, p.dataURL, form, map[string]string{
		"Referer":          dataReferer,
		"X-Requested-With": "XMLHttpRequest",
		"Accept":           "application/json, text/javascript, */*; q=0.01",
	})
	if err != nil {
		return nil, &provider.UpstreamError{Provider: providerName, Detail: form.Get("bld"), Err: err}
	}
	return body, nil
}

// newResult creates a FetchResult.
func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
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
