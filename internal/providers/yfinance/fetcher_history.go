package yfinance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// --- EquityHistorical fetcher ---

type equityHistoricalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newEquityHistoricalFetcher(p *Provider) *equityHistoricalFetcher {
	return &equityHistoricalFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelEquityHistorical,
			"Historical daily OHLCV from Yahoo Finance",
			[]string{provider.ParamSymbol},
			[]string{provider.ParamStartDate, provider.ParamEndDate, provider.ParamMarket},
			15*time.Minute, 5, time.Second,
		),
		p: p,
	}
}

// Fetch maps a KRX code to its Yahoo symbol. When the segment is unknown
// the KOSPI suffix is tried before the KOSDAQ one.
func (f *equityHistoricalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	start, end := defaultDateRange(params)

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}

	market, _ := models.ParseMarket(params[provider.ParamMarket])
	symbols := candidateSymbols(strings.TrimSpace(params[provider.ParamSymbol]), market)

	out := fallback.Run(ctx, fallback.Variants(symbols, func(ctx context.Context, symbol string) ([]models.OHLCV, error) {
		if err := f.RateLimit(ctx); err != nil {
			return nil, err
		}
		res, err := f.p.chart(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		return parseCandles(res), nil
	}), fallback.EmptySlice[models.OHLCV], fallback.WithName("yfinance equity"))

	switch out.Status {
	case fallback.StatusSuccess:
		f.CacheSetTTL(cacheKey, out.Value, 15*time.Minute)
		return newResult(out.Value, out.VariantUsed), nil
	case fallback.StatusRejected:
		return nil, out.Err
	}
	for _, a := range out.Attempts {
		if a.Outcome == "empty" {
			return newResult([]models.OHLCV{}, ""), nil
		}
	}
	last := ""
	if n := len(out.Attempts); n > 0 {
		last = out.Attempts[n-1].Error
	}
	return nil, &provider.UpstreamError{Provider: providerName, Detail: fmt.Sprintf("chart %v: %s", symbols, last)}
}

// candidateSymbols lists the Yahoo symbols to try for a code.
func candidateSymbols(symbol string, market models.Market) []string {
	if !utils.IsStockCode(symbol) {
		return []string{symbol}
	}
	switch market {
	case models.MarketKOSPI, models.MarketKOSDAQ:
		return []string{utils.YahooSymbol(symbol, market)}
	}
	return []string{utils.YahooSymbol(symbol, models.MarketKOSPI), utils.YahooSymbol(symbol, models.MarketKOSDAQ)}
}

// --- IndexHistorical fetcher ---

type indexHistoricalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newIndexHistoricalFetcher(p *Provider) *indexHistoricalFetcher {
	return &indexHistoricalFetcher{
		BaseFetcher: provider.NewBaseFetcherWithOpts(
			provider.ModelIndexHistorical,
			"Historical KOSPI / KOSDAQ composite from Yahoo Finance",
			[]string{provider.ParamIndex},
			[]string{provider.ParamStartDate, provider.ParamEndDate},
			15*time.Minute, 5, time.Second,
		),
		p: p,
	}
}

func (f *indexHistoricalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	idx, err := models.ParseIndexKind(params[provider.ParamIndex])
	if err != nil {
		return nil, err
	}
	start, end := defaultDateRange(params)

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	symbol := utils.YahooIndexSymbol(idx)
	res, err := f.p.chart(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}

	candles := parseCandles(res)
	f.CacheSetTTL(cacheKey, candles, 15*time.Minute)
	return newResult(candles, symbol), nil
}

// --- Helpers ---

// parseCandles converts YF chart data to daily OHLCV bars dated in KST.
// Bars without a close are skipped.
func parseCandles(result *yfChartResult) []models.OHLCV {
	if result == nil || len(result.Indicators.Quote) == 0 {
		return []models.OHLCV{}
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		day := time.Unix(ts, 0).In(utils.KST)
		c := models.OHLCV{
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, utils.KST),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			c.AdjClose = *adjCloses[i]
		}
		candles = append(candles, c)
	}
	return candles
}

// defaultDateRange parses start_date/end_date from params or uses defaults.
// The end date is inclusive.
func defaultDateRange(params provider.QueryParams) (time.Time, time.Time) {
	now := utils.NowKST()
	endDate := now
	startDate := now.AddDate(-1, 0, 0) // default: 1 year

	if s := params[provider.ParamStartDate]; s != "" {
		if t, err := utils.ParseDate(s); err == nil {
			startDate = t
		}
	}
	if s := params[provider.ParamEndDate]; s != "" {
		if t, err := utils.ParseDate(s); err == nil {
			endDate = t.AddDate(0, 0, 1)
		}
	}
	return startDate, endDate
}
