package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// --- EquityHistorical fetcher ---

type equityHistoricalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch resolves the short code to its ISIN and returns adjusted daily bars
// in ascending date order.
func (f *equityHistoricalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := strings.TrimSpace(params[provider.ParamSymbol])
	if !utils.IsStockCode(symbol) {
		return newResult([]models.OHLCV{}), nil
	}

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	isin, err := f.isin(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if isin == "" {
		return newResult([]models.OHLCV{}), nil
	}

	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}
	body, err := f.p.postData(ctx, url.Values{
		"bld":             {"dbms/MDC/STAT/standard/MDCSTAT01701"},
		"locale":          {"ko_KR"},
		"isuCd":           {isin},
		"strtDd":          {utils.CleanDate(params[provider.ParamStartDate])},
		"endDd":           {utils.CleanDate(params[provider.ParamEndDate])},
		"adjStkPrc_check": {"Y"},
		"adjStkPrc":       {"2"},
		"share":           {"1"},
		"money":           {"1"},
		"csvxls_isNo":     {"false"},
	})
	if err != nil {
		return nil, err
	}

	var resp stockHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("krx history %s: parse: %w", symbol, err)
	}

	bars := make([]models.OHLCV, 0, len(resp.Output))
	for _, r := range resp.Output {
		ts, err := utils.ParseDate(r.Date)
		if err != nil {
			continue
		}
		bars = append(bars, models.OHLCV{
			Timestamp: ts,
			Open:      parseNum(r.Open),
			High:      parseNum(r.High),
			Low:       parseNum(r.Low),
			Close:     parseNum(r.Close),
			Volume:    int64(parseNum(r.Volume)),
		})
	}
	sortBars(bars)

	f.CacheSetTTL(cacheKey, bars, 1*time.Hour)
	return newResult(bars), nil
}

// isin looks up the 12-character issue code for a short code.
func (f *equityHistoricalFetcher) isin(ctx context.Context, symbol string) (string, error) {
	if cached, ok := f.CacheGet("krx:isin:" + symbol); ok {
		return cached.(string), nil
	}
	body, err := f.p.postData(ctx, url.Values{
		"bld":        {"dbms/comm/finder/finder_stkisu"},
		"locale":     {"ko_KR"},
		"mktsel":     {"ALL"},
		"searchText": {symbol},
		"typeNo":     {"0"},
	})
	if err != nil {
		return "", err
	}

	var resp finderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("krx finder %s: parse: %w", symbol, err)
	}
	for _, b := range resp.Block1 {
		if b.ShortCode == symbol {
			f.CacheSetTTL("krx:isin:"+symbol, b.FullCode, 24*time.Hour)
			return b.FullCode, nil
		}
	}
	return "", nil
}

// --- IndexHistorical fetcher ---

type indexHistoricalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// indexIDs are the indIdx / indIdx2 form values of the composite indices.
var indexIDs = map[models.IndexKind][2]string{
	models.IndexKOSPI:  {"1", "001"},
	models.IndexKOSDAQ: {"2", "001"},
}

func (f *indexHistoricalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	idx, err := models.ParseIndexKind(params[provider.ParamIndex])
	if err != nil {
		return nil, err
	}

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	ids := indexIDs[idx]
	body, err := f.p.postData(ctx, url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT00301"},
		"locale":      {"ko_KR"},
		"indIdx":      {ids[0]},
		"indIdx2":     {ids[1]},
		"strtDd":      {utils.CleanDate(params[provider.ParamStartDate])},
		"endDd":       {utils.CleanDate(params[provider.ParamEndDate])},
		"share":       {"2"},
		"money":       {"3"},
		"csvxls_isNo": {"false"},
	})
	if err != nil {
		return nil, err
	}

	var resp indexHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("krx index %s: parse: %w", idx, err)
	}

	bars := make([]models.OHLCV, 0, len(resp.Output))
	for _, r := range resp.Output {
		ts, err := utils.ParseDate(r.Date)
		if err != nil {
			continue
		}
		bars = append(bars, models.OHLCV{
			Timestamp: ts,
			Open:      parseNum(r.Open),
			High:      parseNum(r.High),
			Low:       parseNum(r.Low),
			Close:     parseNum(r.Close),
			Volume:    int64(parseNum(r.Volume)),
		})
	}
	sortBars(bars)

	f.CacheSetTTL(cacheKey, bars, 1*time.Hour)
	return newResult(bars), nil
}

// --- helpers ---

// parseNum parses a KRX figure such as "55,500". Blanks read as zero.
func parseNum(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func sortBars(bars []models.OHLCV) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
}
