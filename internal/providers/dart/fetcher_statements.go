package dart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/pkg/models"
)

// --- FinancialStatement fetcher ---

type statementFetcher struct {
	provider.BaseFetcher
	p *Provider
}

// Fetch retrieves every account of one statement division (CFS or OFS).
// A company that files no consolidated statements answers CFS with no data;
// the caller decides whether to try OFS.
func (f *statementFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	corpCode := params[provider.ParamCorpCode]
	div := models.StatementDivision(params[provider.ParamDivision])
	if div != models.DivisionConsolidated && div != models.DivisionSeparate {
		return nil, fmt.Errorf("dart statement: unknown fs_div %q", div)
	}

	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	body, key, err := f.p.getJSON(ctx, "/fnlttSinglAcntAll.json", map[string]string{
		"corp_code":  corpCode,
		"bsns_year":  params[provider.ParamBusinessYear],
		"reprt_code": params[provider.ParamReportCode],
		"fs_div":     string(div),
	})
	if err != nil {
		return nil, fmt.Errorf("dart statement %s %s: %w", corpCode, div, err)
	}

	var resp statementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("dart statement %s %s: parse: %w", corpCode, div, err)
	}

	lines := make([]models.StatementLine, 0, len(resp.List))
	for _, l := range resp.List {
		l.Division = div
		if l.DivisionName == "" {
			l.DivisionName = div.Label()
		}
		if l.ReceiptNo == "" {
			l.ReceiptNo = params[provider.ParamReceiptNo]
		}
		lines = append(lines, l)
	}

	f.CacheSet(cacheKey, lines)
	return newResult(lines, key), nil
}
