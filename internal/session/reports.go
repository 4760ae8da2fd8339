package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/seenimoa/krfin/internal/analysis"
	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/providers/dart"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// marketCapLookback is how many calendar days before the requested date a
// market-cap snapshot may come from (weekends and holidays have none).
const marketCapLookback = 7

// Disclosures lists the entity's periodic reports of one type filed in the
// query range.
func (s *Session) Disclosures(ctx context.Context, q resolver.ReportQuery, typ models.DisclosureType) (*FetchResult, error) {
	e := q.Entity()
	if e.CorpCode == "" {
		return nil, fmt.Errorf("%s: %w", e.Code, ErrNoCorpCode)
	}

	res, status, err := s.fetch(ctx, provider.ModelDisclosureList, provider.QueryParams{
		provider.ParamCorpCode:       e.CorpCode,
		provider.ParamStartDate:      q.Range().StartYMD(),
		provider.ParamEndDate:        q.Range().EndYMD(),
		provider.ParamDisclosureType: string(typ),
	})
	if err != nil {
		return nil, err
	}
	rows, err := data[[]models.Disclosure](res)
	if err != nil {
		return nil, err
	}
	return s.result(q, normalize.Disclosures(rows), res, status), nil
}

// Statements fetches the full financial statement of one report period,
// trying each configured division in order. The first division with data
// wins and is reported as VariantUsed. No division with data is StatusEmpty.
func (s *Session) Statements(ctx context.Context, q resolver.ReportQuery, year string, code models.ReportCode, receiptNo string) (*FetchResult, error) {
	e := q.Entity()
	if e.CorpCode == "" {
		return nil, fmt.Errorf("%s: %w", e.Code, ErrNoCorpCode)
	}

	names := make([]string, len(s.opts.Divisions))
	for i, d := range s.opts.Divisions {
		names[i] = string(d)
	}

	attempts := fallback.Variants(names, func(ctx context.Context, div string) ([]models.StatementLine, error) {
		params := provider.QueryParams{
			provider.ParamCorpCode:     e.CorpCode,
			provider.ParamBusinessYear: year,
			provider.ParamReportCode:   string(code),
			provider.ParamDivision:     div,
		}
		if receiptNo != "" {
			params[provider.ParamReceiptNo] = receiptNo
		}
		res, _, err := s.fetch(ctx, provider.ModelFinancialStatement, params)
		if err != nil {
			return nil, err
		}
		return data[[]models.StatementLine](res)
	})

	out := fallback.Run(ctx, attempts, fallback.EmptySlice[models.StatementLine],
		fallback.WithName("statements:"+e.Code), fallback.WithLogger(s.logger))
	if out.Status == fallback.StatusRejected {
		return nil, out.Err
	}

	return &FetchResult{
		Entity:      entityPtr(q),
		Table:       normalize.Statements(out.Value),
		Provider:    "dart",
		VariantUsed: out.VariantUsed,
		Status:      out.Status,
		Attempts:    out.Attempts,
	}, nil
}

// StatementsForReport derives the period from a listed disclosure such as
// "사업보고서 (2023.12)" and fetches its statements.
func (s *Session) StatementsForReport(ctx context.Context, q resolver.ReportQuery, d models.Disclosure) (*FetchResult, error) {
	year, code, err := dart.ReportPeriod(d.ReportName)
	if err != nil {
		return nil, err
	}
	return s.Statements(ctx, q, year, code, d.ReceiptNo)
}

// MarketCap returns the entity's market-cap snapshot on the last trading day
// of the query range. Earlier trading days are tried in turn when a day has
// no data, never before the range start. VariantUsed is the date served.
func (s *Session) MarketCap(ctx context.Context, q resolver.ReportQuery) (*FetchResult, error) {
	rng := q.Range()
	earliest := rng.End.AddDate(0, 0, -marketCapLookback)
	d := rng.End
	if !utils.IsTradingDay(d) {
		d = utils.PrevTradingDay(d)
	}
	var dates []string
	for ; !d.Before(rng.Start) && !d.Before(earliest); d = utils.PrevTradingDay(d) {
		dates = append(dates, d.In(utils.KST).Format("20060102"))
	}

	out := s.marketCapChain(ctx, q.Entity(), dates)
	if out.Status == fallback.StatusRejected {
		return nil, out.Err
	}
	return &FetchResult{
		Entity:      entityPtr(q),
		Table:       normalize.MarketCaps(out.Value),
		Provider:    "krx",
		VariantUsed: out.VariantUsed,
		Status:      out.Status,
		Attempts:    out.Attempts,
	}, nil
}

// SharesOutstanding returns listed shares at the year-end close: Dec 31,
// then earlier weekdays back to Dec 24 until one has data.
func (s *Session) SharesOutstanding(ctx context.Context, q resolver.ReportQuery, year int) (*FetchResult, error) {
	e := q.Entity()
	out := s.marketCapChain(ctx, e, utils.YearEndCandidates(year))
	if out.Status == fallback.StatusRejected {
		return nil, out.Err
	}

	res := &FetchResult{
		Entity:      entityPtr(q),
		Table:       normalize.Empty(models.CategoryShares, normalize.SharesColumns),
		Provider:    "krx",
		VariantUsed: out.VariantUsed,
		Status:      out.Status,
		Attempts:    out.Attempts,
	}
	if out.Status != fallback.StatusSuccess {
		return res, nil
	}

	res.Table = normalize.SharesAt(e.Code, e.Name, year, out.Value[0])
	return res, nil
}

// marketCapChain tries each date in order for the entity's row.
func (s *Session) marketCapChain(ctx context.Context, e models.DirectoryEntry, dates []string) fallback.Outcome[[]models.MarketCap] {
	market := e.Market
	if market == "" {
		market = models.MarketKRX
	}
	attempts := fallback.Variants(dates, func(ctx context.Context, date string) ([]models.MarketCap, error) {
		res, _, err := s.fetch(ctx, provider.ModelMarketCap, provider.QueryParams{
			provider.ParamDate:   date,
			provider.ParamSymbol: e.Code,
			provider.ParamMarket: string(market),
		})
		if err != nil {
			return nil, err
		}
		return data[[]models.MarketCap](res)
	})
	return fallback.Run(ctx, attempts, fallback.EmptySlice[models.MarketCap],
		fallback.WithName("marketcap:"+e.Code), fallback.WithLogger(s.logger))
}

// Beta regresses the entity's daily returns on a market index over the
// query range. Too few overlapping trading days is StatusEmpty.
func (s *Session) Beta(ctx context.Context, q resolver.ReportQuery, idx models.IndexKind) (*FetchResult, error) {
	e := q.Entity()
	rng := q.Range()
	empty := &FetchResult{
		Entity: entityPtr(q),
		Table:  normalize.Empty(models.CategoryBeta, normalize.BetaColumns),
		Status: fallback.StatusEmpty,
	}

	stockRes, status, err := s.fetch(ctx, provider.ModelEquityHistorical, provider.QueryParams{
		provider.ParamSymbol:    e.Code,
		provider.ParamMarket:    string(e.Market),
		provider.ParamStartDate: rng.StartYMD(),
		provider.ParamEndDate:   rng.EndYMD(),
	})
	if err != nil {
		return nil, fmt.Errorf("price history %s: %w", e.Code, err)
	}
	if status == fallback.StatusEmpty {
		return empty, nil
	}

	indexRes, status, err := s.fetch(ctx, provider.ModelIndexHistorical, provider.QueryParams{
		provider.ParamIndex:     string(idx),
		provider.ParamStartDate: rng.StartYMD(),
		provider.ParamEndDate:   rng.EndYMD(),
	})
	if err != nil {
		return nil, fmt.Errorf("index history %s: %w", idx, err)
	}
	if status == fallback.StatusEmpty {
		return empty, nil
	}

	stock, err := data[[]models.OHLCV](stockRes)
	if err != nil {
		return nil, err
	}
	index, err := data[[]models.OHLCV](indexRes)
	if err != nil {
		return nil, err
	}

	br, err := analysis.Beta(stock, index)
	switch {
	case errors.Is(err, analysis.ErrInsufficientData):
		s.logger.Info().Str("code", e.Code).Int("observations", br.Observations).Msg("not enough data for beta")
		return empty, nil
	case err != nil:
		return nil, fmt.Errorf("beta %s vs %s: %w", e.Code, idx, err)
	}
	br.Code, br.Name, br.Index = e.Code, e.Name, idx

	return &FetchResult{
		Entity:      entityPtr(q),
		Table:       normalize.Beta(br),
		Provider:    stockRes.Provider + "," + indexRes.Provider,
		VariantUsed: stockRes.Variant,
		Status:      fallback.StatusSuccess,
	}, nil
}

var usModels = map[models.USStatementKind]provider.ModelType{
	models.USIncome:   provider.ModelIncomeStatement,
	models.USBalance:  provider.ModelBalanceSheet,
	models.USCashFlow: provider.ModelCashFlowStatement,
}

// USStatements fetches the quarterly income, balance-sheet and cash-flow
// statements of a US entity in sequence, one result per statement.
func (s *Session) USStatements(ctx context.Context, q resolver.ReportQuery) ([]*FetchResult, error) {
	e := q.Entity()
	out := make([]*FetchResult, 0, len(models.USStatementKinds))
	for _, kind := range models.USStatementKinds {
		res, status, err := s.fetch(ctx, usModels[kind], provider.QueryParams{
			provider.ParamSymbol:    e.Code,
			provider.ParamStartDate: q.Range().StartISO(),
			provider.ParamEndDate:   q.Range().EndISO(),
			provider.ParamPeriod:    "quarter",
		})
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", e.Code, kind.Short(), err)
		}
		rows, err := data[[]models.USStatement](res)
		if err != nil {
			return nil, err
		}
		out = append(out, s.result(q, normalize.USStatements(kind, rows), res, status))
	}
	return out, nil
}

// Feed returns today's disclosures, optionally filtered by company name.
func (s *Session) Feed(ctx context.Context, query string) (*FetchResult, error) {
	res, status, err := s.fetch(ctx, provider.ModelDisclosureFeed, provider.QueryParams{
		provider.ParamQuery: query,
	})
	if err != nil {
		return nil, err
	}
	items, err := data[[]models.FeedItem](res)
	if err != nil {
		return nil, err
	}
	out := &FetchResult{Table: normalize.Feed(items), Status: status}
	if res != nil {
		out.Provider = res.Provider
	}
	return out, nil
}

func (s *Session) result(q resolver.ReportQuery, tbl normalize.Table, res *provider.FetchResult, status fallback.Status) *FetchResult {
	out := &FetchResult{Entity: entityPtr(q), Table: tbl, Status: status}
	if res != nil {
		out.Provider = res.Provider
		out.VariantUsed = res.Variant
	}
	return out
}

// ReportYear is the default year for year-end lookups: the last completed year.
func ReportYear(now time.Time) int {
	return utils.ToKST(now).Year() - 1
}

// ParseYear validates a four-digit year.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1990 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}
