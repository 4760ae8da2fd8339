package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// mktID maps a market filter to the getJsonData.cmd mktId form value.
func mktID(m models.Market) string {
	switch m {
	case models.MarketKOSPI:
		return "STK"
	case models.MarketKOSDAQ:
		return "KSQ"
	case models.MarketKONEX:
		return "KNX"
	}
	return "ALL"
}

// --- MarketCap fetcher ---

type marketCapFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch returns the MDCSTAT01501 snapshot for one day. On a non-trading day
// KRX answers with blank figures; those rows are dropped so the day reads as
// empty. An optional symbol narrows the result to one stock.
func (f *marketCapFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	date := utils.CleanDate(params[provider.ParamDate])
	if len(date) != 8 {
		return nil, fmt.Errorf("krx market cap: date %q is not YYYYMMDD", params[provider.ParamDate])
	}
	market, err := models.ParseMarket(params[provider.ParamMarket])
	if err != nil {
		return nil, err
	}
	if market == models.MarketUS {
		return newResult([]models.MarketCap{}), nil
	}

	rows, cached, err := f.snapshot(ctx, date, market)
	if err != nil {
		return nil, err
	}

	if symbol := strings.TrimSpace(params[provider.ParamSymbol]); symbol != "" {
		filtered := make([]models.MarketCap, 0, 1)
		for _, r := range rows {
			if r.Code == symbol {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if cached {
		return newCachedResult(rows), nil
	}
	return newResult(rows), nil
}

func (f *marketCapFetcher) snapshot(ctx context.Context, date string, market models.Market) ([]models.MarketCap, bool, error) {
	cacheKey := "krx:mktcap:" + date + ":" + mktID(market)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return cached.([]models.MarketCap), true, nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, false, err
	}

	body, err := f.p.postData(ctx, url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01501"},
		"locale":      {"ko_KR"},
		"mktId":       {mktID(market)},
		"trdDd":       {date},
		"share":       {"1"},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	})
	if err != nil {
		return nil, false, err
	}

	var resp marketCapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("krx market cap %s: parse: %w", date, err)
	}

	rows := make([]models.MarketCap, 0, len(resp.OutBlock1))
	for _, r := range resp.OutBlock1 {
		if blankFigure(r.MarketCap) || blankFigure(r.ListedShares) {
			continue
		}
		rows = append(rows, models.MarketCap{
			Date:         date,
			Code:         strings.TrimSpace(r.Code),
			Name:         strings.TrimSpace(r.Name),
			Market:       strings.TrimSpace(r.Market),
			Close:        r.Close,
			MarketCap:    r.MarketCap,
			ListedShares: r.ListedShares,
		})
	}

	f.CacheSetTTL(cacheKey, rows, 1*time.Hour)
	return rows, false, nil
}

func blankFigure(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-" || s == "0"
}
