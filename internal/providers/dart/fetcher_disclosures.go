package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

const (
	listPageSize = 100
	listMaxPages = 20
)

// --- DisclosureList fetcher ---

type disclosureListFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch pages through list.json for one corporation. The default filter is
// the regular-disclosure group (pblntf_ty=A); disclosure_type narrows it to
// annual, half-year or quarterly reports.
func (f *disclosureListFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	corpCode := params[provider.ParamCorpCode]

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}

	query := map[string]string{
		"corp_code":  corpCode,
		"bgn_de":     utils.CleanDate(params[provider.ParamStartDate]),
		"end_de":     utils.CleanDate(params[provider.ParamEndDate]),
		"page_count": strconv.Itoa(listPageSize),
	}
	if t := params[provider.ParamDisclosureType]; t != "" {
		dt, err := models.ParseDisclosureType(t)
		if err != nil {
			return nil, err
		}
		query["pblntf_detail_ty"] = string(dt)
	} else {
		query["pblntf_ty"] = "A"
	}

	var (
		all     []models.Disclosure
		lastKey string
	)
	for page := 1; page <= listMaxPages; page++ {
		if err := f.RateLimit(ctx); err != nil {
			return nil, err
		}
		query["page_no"] = strconv.Itoa(page)

		body, key, err := f.p.getJSON(ctx, "/list.json", query)
		if err != nil {
			return nil, fmt.Errorf("dart list %s: %w", corpCode, err)
		}
		lastKey = key

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("dart list %s: parse: %w", corpCode, err)
		}
		if resp.Status == statusNoData {
			break
		}
		all = append(all, resp.List...)
		if resp.TotalPage <= page {
			break
		}
	}

	if all == nil {
		all = []models.Disclosure{}
	}
	f.CacheSet(cacheKey, all)
	return newResult(all, lastKey), nil
}
