package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// --- Statement fetchers (income, balance sheet, cash flow) ---

type statementFetcher struct {
	provider.BaseFetcher
	kind models.USStatementKind
	p    *Provider
}

func newStatementFetcher(model provider.ModelType, kind models.USStatementKind, p *Provider) *statementFetcher {
	return &statementFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			model,
			fmt.Sprintf("Quarterly %s from Financial Modeling Prep", strings.ReplaceAll(string(kind), "-", " ")),
			[]string{provider.ParamSymbol},
			[]string{provider.ParamStartDate, provider.ParamEndDate, provider.ParamPeriod},
			1*time.Hour, 5, time.Second,
		),
		kind: kind,
		p:    p,
	}
}

func (f *statementFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(params[provider.ParamSymbol]))
	if utils.IsStockCode(symbol) {
		// KRX codes are never FMP tickers.
		return newResult([]models.USStatement{}, ""), nil
	}

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	q := url.Values{"period": {"quarter"}}
	if params[provider.ParamPeriod] == "annual" {
		q.Del("period")
	}
	if from := params[provider.ParamStartDate]; from != "" {
		q.Set("from", isoDate(from))
	}
	if to := params[provider.ParamEndDate]; to != "" {
		q.Set("to", isoDate(to))
	}

	rows, key, err := f.p.getList(ctx, "/"+string(f.kind)+"/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, fmt.Errorf("fmp %s %s: %w", f.kind, symbol, err)
	}

	if len(rows) > 0 {
		f.CacheSetTTL(cacheKey, rows, 1*time.Hour)
	}
	return newResult(rows, key), nil
}

// isoDate converts YYYYMMDD to YYYY-MM-DD; other inputs pass through.
func isoDate(s string) string {
	t, err := utils.ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
