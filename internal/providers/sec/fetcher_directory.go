package sec

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

// edgarTickerEntry is one value of company_tickers.json, which is a map
// keyed by row number: {"0": {cik_str, ticker, title}, ...}.
type edgarTickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ---- Directory fetcher ----

type directoryFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch returns US tickers in EDGAR row order. Korean market filters get
// an empty list.
func (f *directoryFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	market, err := models.ParseMarket(params[provider.ParamMarket])
	if err != nil {
		return nil, err
	}
	if !market.Includes(models.MarketUS) {
		return newResult([]models.DirectoryEntry{}), nil
	}

	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	var raw map[string]edgarTickerEntry
	if err := f.p.fetchSECJSON(ctx, "/files/company_tickers.json", &raw); err != nil {
		return nil, fmt.Errorf("sec tickers: %w", err)
	}

	rows := make([]int, 0, len(raw))
	byRow := make(map[int]edgarTickerEntry, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		rows = append(rows, n)
		byRow[n] = v
	}
	sort.Ints(rows)

	entries := make([]models.DirectoryEntry, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, n := range rows {
		e := byRow[n]
		ticker := strings.ToUpper(strings.TrimSpace(e.Ticker))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		entries = append(entries, models.DirectoryEntry{
			Code:     ticker,
			Name:     strings.TrimSpace(e.Title),
			Market:   models.MarketUS,
			CorpCode: fmt.Sprintf("%010d", e.CIK),
		})
	}

	return newResult(entries), nil
}
