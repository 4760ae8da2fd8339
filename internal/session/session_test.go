package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/pkg/models"
)

// --- stub provider ---

type fetchFunc func(ctx context.Context, params provider.QueryParams) (any, error)

type stubFetcher struct {
	provider.BaseFetcher
	fn fetchFunc
}

func (f *stubFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	data, err := f.fn(ctx, params)
	if err != nil {
		return nil, err
	}
	return &provider.FetchResult{Data: data, FetchedAt: time.Now()}, nil
}

type stubProvider struct {
	provider.BaseProvider

	mu    sync.Mutex
	calls []provider.QueryParams
}

func newStub(name string) *stubProvider {
	return &stubProvider{BaseProvider: provider.NewBaseProvider(name, "stub "+name, "", nil)}
}

func (p *stubProvider) handle(model provider.ModelType, fn fetchFunc) *stubProvider {
	p.RegisterFetcher(&stubFetcher{
		BaseFetcher: provider.NewBaseFetcher(model, "stub", nil, nil),
		fn: func(ctx context.Context, params provider.QueryParams) (any, error) {
			p.mu.Lock()
			p.calls = append(p.calls, params)
			p.mu.Unlock()
			return fn(ctx, params)
		},
	})
	return p
}

func (p *stubProvider) callsWith(key string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.calls {
		if v, ok := c[key]; ok {
			out = append(out, v)
		}
	}
	return out
}

var krEntries = []models.DirectoryEntry{
	{Code: "005930", Name: "삼성전자", Market: models.MarketKOSPI, CorpCode: "00126380"},
	{Code: "009150", Name: "삼성전기", Market: models.MarketKOSPI, CorpCode: "00126371"},
	{Code: "035720", Name: "카카오", Market: models.MarketKOSDAQ, CorpCode: "00258801"},
	{Code: "123456", Name: "코드없음", Market: models.MarketKONEX},
}

var usEntries = []models.DirectoryEntry{
	{Code: "AAPL", Name: "Apple Inc.", Market: models.MarketUS},
}

func directoryStub(name string) *stubProvider {
	return newStub(name).handle(provider.ModelDirectory, func(_ context.Context, params provider.QueryParams) (any, error) {
		if params[provider.ParamMarket] == string(models.MarketUS) {
			return usEntries, nil
		}
		return krEntries, nil
	})
}

func newTestSession(t *testing.T, providers ...provider.Provider) *Session {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		require.NoError(t, reg.Register(p))
	}
	return New("test", reg, DefaultOptions())
}

func query(t *testing.T, s *Session, code string, start, end time.Time) resolver.ReportQuery {
	t.Helper()
	sel, err := s.Select(context.Background(), code, "")
	require.NoError(t, err)
	q, err := resolver.NewReportQuery(sel, models.DateRange{Start: start, End: end}, models.CategoryStatement)
	require.NoError(t, err)
	return q
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- resolution ---

func TestSelectByCode(t *testing.T) {
	s := newTestSession(t, directoryStub("dir"))

	sel, err := s.Select(context.Background(), "005930", "")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자", sel.Entry().Name)
}

func TestSelectAmbiguousNeedsPick(t *testing.T) {
	s := newTestSession(t, directoryStub("dir"))
	ctx := context.Background()

	_, err := s.Select(ctx, "삼성", "")
	var amb *resolver.AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Len(t, amb.Candidates, 2)

	sel, err := s.Select(ctx, "삼성", "009150")
	require.NoError(t, err)
	assert.Equal(t, "삼성전기", sel.Entry().Name)

	_, err = s.Select(ctx, "삼성", "035720")
	assert.ErrorIs(t, err, resolver.ErrNotACandidate)
}

func TestSelectUS(t *testing.T) {
	s := newTestSession(t, directoryStub("dir"))

	sel, err := s.SelectUS(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, models.MarketUS, sel.Entry().Market)

	_, err = s.SelectUS(context.Background(), "005930", "")
	assert.ErrorIs(t, err, resolver.ErrNoMatch)
}

func TestNoMatchFlagsUnavailableDirectory(t *testing.T) {
	broken := newStub("broken").handle(provider.ModelDirectory, func(context.Context, provider.QueryParams) (any, error) {
		return nil, errors.New("connection refused")
	})
	s := newTestSession(t, broken)

	_, err := s.Select(context.Background(), "삼성전자", "")
	var nm *resolver.NoMatchError
	require.ErrorAs(t, err, &nm)
	assert.True(t, nm.DirectoryUnavailable)
}

func TestDirectoryLoadedOncePerSession(t *testing.T) {
	dir := directoryStub("dir")
	s := newTestSession(t, dir)
	ctx := context.Background()

	s.Resolve(ctx, "삼성")
	s.Resolve(ctx, "카카오")
	assert.Len(t, dir.callsWith(provider.ParamMarket), 1)

	s.Close()
	s.Resolve(ctx, "삼성")
	assert.Len(t, dir.callsWith(provider.ParamMarket), 2, "Close discards the cached directory")
}

// --- statements ---

func TestStatementsFallsBackToSeparate(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelFinancialStatement, func(_ context.Context, p provider.QueryParams) (any, error) {
		if p[provider.ParamDivision] == "CFS" {
			return nil, &provider.UpstreamError{Provider: "dart", Status: "500", Detail: "server error"}
		}
		return []models.StatementLine{
			{AccountName: "매출액", CurrentAmount: "100", Division: models.DivisionSeparate},
			{AccountName: "영업이익", CurrentAmount: "10", Division: models.DivisionSeparate},
		}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	res, err := s.Statements(context.Background(), q, "2023", models.ReportAnnual, "")
	require.NoError(t, err)
	assert.Equal(t, "OFS", res.VariantUsed)
	assert.Equal(t, fallback.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Table.Len())
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, "error", res.Attempts[0].Outcome)
	assert.Equal(t, "ok", res.Attempts[1].Outcome)
	assert.Equal(t, []string{"CFS", "OFS"}, dart.callsWith(provider.ParamDivision))
}

func TestStatementsStopsAtFirstData(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelFinancialStatement, func(context.Context, provider.QueryParams) (any, error) {
		return []models.StatementLine{{AccountName: "자산총계"}}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	res, err := s.Statements(context.Background(), q, "2023", models.ReportAnnual, "20240312000736")
	require.NoError(t, err)
	assert.Equal(t, "CFS", res.VariantUsed)
	assert.Equal(t, []string{"CFS"}, dart.callsWith(provider.ParamDivision), "no request beyond the winning variant")
	assert.Equal(t, []string{"20240312000736"}, dart.callsWith(provider.ParamReceiptNo))
}

func TestStatementsAllEmpty(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelFinancialStatement, func(_ context.Context, p provider.QueryParams) (any, error) {
		if p[provider.ParamDivision] == "CFS" {
			return nil, errors.New("timeout")
		}
		return []models.StatementLine{}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	res, err := s.Statements(context.Background(), q, "2023", models.ReportAnnual, "")
	require.NoError(t, err, "exhausting every variant is not an error")
	assert.Equal(t, fallback.StatusEmpty, res.Status)
	assert.Empty(t, res.VariantUsed)
	assert.True(t, res.Table.Empty())
	assert.NotEmpty(t, res.Table.Columns)
}

func TestStatementsTerminalError(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelFinancialStatement, func(context.Context, provider.QueryParams) (any, error) {
		return nil, fallback.Terminal(errors.New("status 100: invalid field"))
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	_, err := s.Statements(context.Background(), q, "2023", models.ReportAnnual, "")
	require.Error(t, err)
	assert.Len(t, dart.callsWith(provider.ParamDivision), 1)
}

func TestStatementsForReport(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelFinancialStatement, func(context.Context, provider.QueryParams) (any, error) {
		return []models.StatementLine{{AccountName: "자산총계"}}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2024, 1, 1), day(2024, 12, 31))

	_, err := s.StatementsForReport(context.Background(), q, models.Disclosure{ReportName: "분기보고서 (2024.09)", ReceiptNo: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"11014"}, dart.callsWith(provider.ParamReportCode))
	assert.Equal(t, []string{"2024"}, dart.callsWith(provider.ParamBusinessYear))

	_, err = s.StatementsForReport(context.Background(), q, models.Disclosure{ReportName: "주요사항보고서"})
	assert.Error(t, err)
}

// --- disclosures ---

func TestDisclosures(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelDisclosureList, func(context.Context, provider.QueryParams) (any, error) {
		return []models.Disclosure{
			{ReceiptNo: "2", ReportName: "분기보고서 (2023.09)", ReceiptDate: "20231114"},
			{ReceiptNo: "1", ReportName: "반기보고서 (2023.06)", ReceiptDate: "20230814"},
		}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	res, err := s.Disclosures(context.Background(), q, models.DisclosureQuarterly)
	require.NoError(t, err)
	assert.Equal(t, "dart", res.Provider)
	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, "2", res.Table.Rows[0].Values["receipt_no"], "upstream order is kept")
	assert.Equal(t, []string{"00126380"}, dart.callsWith(provider.ParamCorpCode))
	assert.Equal(t, []string{"20230101"}, dart.callsWith(provider.ParamStartDate))
	assert.Equal(t, []string{"A003"}, dart.callsWith(provider.ParamDisclosureType))
}

func TestDisclosuresEmptyIsNotAnError(t *testing.T) {
	dart := directoryStub("dart").handle(provider.ModelDisclosureList, func(context.Context, provider.QueryParams) (any, error) {
		return []models.Disclosure{}, nil
	})
	s := newTestSession(t, dart)
	q := query(t, s, "005930", day(2023, 1, 1), day(2023, 12, 31))

	res, err := s.Disclosures(context.Background(), q, models.DisclosureAnnual)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusEmpty, res.Status)
	assert.True(t, res.Table.Empty())
}

func TestDisclosuresRequireCorpCode(t *testing.T) {
	s := newTestSession(t, directoryStub("dart"))
	q := query(t, s, "123456", day(2023, 1, 1), day(2023, 12, 31))

	_, err := s.Disclosures(context.Background(), q, models.DisclosureAnnual)
	assert.ErrorIs(t, err, ErrNoCorpCode)
}

// --- market cap and shares ---

func marketCapStub(available map[string]string) *stubProvider {
	return directoryStub("krx").handle(provider.ModelMarketCap, func(_ context.Context, p provider.QueryParams) (any, error) {
		shares, ok := available[p[provider.ParamDate]]
		if !ok {
			return []models.MarketCap{}, nil
		}
		return []models.MarketCap{{
			Date: p[provider.ParamDate], Code: p[provider.ParamSymbol], Name: "삼성전자",
			Close: "78,500", MarketCap: "468,626,557,982,500", ListedShares: shares,
		}}, nil
	})
}

func TestSharesOutstandingYearEndFallback(t *testing.T) {
	krx := marketCapStub(map[string]string{"20211230": "5,969,782,550"})
	s := newTestSession(t, krx)
	q := query(t, s, "005930", day(2021, 1, 1), day(2021, 12, 31))

	res, err := s.SharesOutstanding(context.Background(), q, 2021)
	require.NoError(t, err)
	assert.Equal(t, "20211230", res.VariantUsed)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, int64(5969782550), res.Table.Rows[0].Values["shares"])
	assert.Equal(t, "2021-12-30", res.Table.Rows[0].Values["as_of"])
	assert.Equal(t, []string{"20211231", "20211230"}, krx.callsWith(provider.ParamDate))
}

func TestSharesOutstandingNoData(t *testing.T) {
	krx := marketCapStub(nil)
	s := newTestSession(t, krx)
	q := query(t, s, "005930", day(2021, 1, 1), day(2021, 12, 31))

	res, err := s.SharesOutstanding(context.Background(), q, 2021)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusEmpty, res.Status)
	assert.True(t, res.Table.Empty())
	assert.Len(t, krx.callsWith(provider.ParamDate), 6, "Dec 31 back to Dec 24, weekdays only")
}

func TestSharesOutstandingBadCountKeepsRow(t *testing.T) {
	krx := marketCapStub(map[string]string{"20211230": "N/A*"})
	s := newTestSession(t, krx)
	q := query(t, s, "005930", day(2021, 1, 1), day(2021, 12, 31))

	res, err := s.SharesOutstanding(context.Background(), q, 2021)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusSuccess, res.Status)
	require.Equal(t, 1, res.Table.Len())
	row := res.Table.Rows[0]
	assert.Nil(t, row.Values["shares"])
	assert.Equal(t, "2021-12-30", row.Values["as_of"])
	assert.Equal(t, "005930", row.Values["code"])
	assert.Equal(t, "삼성전자", row.Values["name"])
	require.Len(t, row.Errors, 1)
	assert.Equal(t, "shares", row.Errors[0].Field)
	assert.Equal(t, "N/A*", row.Errors[0].Raw)
}

func TestMarketCapWalksBackWithinRange(t *testing.T) {
	krx := marketCapStub(map[string]string{"20240104": "100"})
	s := newTestSession(t, krx)
	q := query(t, s, "005930", day(2024, 1, 1), day(2024, 1, 7))

	res, err := s.MarketCap(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "20240104", res.VariantUsed)
	assert.Equal(t, []string{"20240105", "20240104"}, krx.callsWith(provider.ParamDate), "weekend skipped")

	krx2 := marketCapStub(nil)
	s2 := newTestSession(t, krx2)
	q2 := query(t, s2, "005930", day(2024, 1, 6), day(2024, 1, 7))
	res, err = s2.MarketCap(context.Background(), q2)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusEmpty, res.Status)
	assert.Empty(t, krx2.callsWith(provider.ParamDate), "never before the range start")
}

// --- beta ---

func bars(start time.Time, closes ...float64) []models.OHLCV {
	out := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = models.OHLCV{Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestBeta(t *testing.T) {
	start := day(2024, 1, 1)
	krx := directoryStub("krx").
		handle(provider.ModelEquityHistorical, func(context.Context, provider.QueryParams) (any, error) {
			return bars(start, 100, 104, 102, 108, 106), nil
		}).
		handle(provider.ModelIndexHistorical, func(context.Context, provider.QueryParams) (any, error) {
			return bars(start, 1000, 1020, 1010, 1040, 1030), nil
		})
	s := newTestSession(t, krx)
	q := query(t, s, "005930", start, start.AddDate(0, 0, 4))

	res, err := s.Beta(context.Background(), q, models.IndexKOSPI)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusSuccess, res.Status)
	require.Equal(t, 1, res.Table.Len())
	row := res.Table.Rows[0].Values
	assert.Equal(t, "005930", row["code"])
	assert.Equal(t, "KOSPI", row["index"])
	assert.Equal(t, int64(4), row["observations"])
	assert.Greater(t, row["beta"].(float64), 1.0)
	assert.Equal(t, []string{"KOSPI"}, krx.callsWith(provider.ParamIndex))
}

func TestBetaInsufficientData(t *testing.T) {
	start := day(2024, 1, 1)
	krx := directoryStub("krx").
		handle(provider.ModelEquityHistorical, func(context.Context, provider.QueryParams) (any, error) {
			return bars(start, 100, 101), nil
		}).
		handle(provider.ModelIndexHistorical, func(context.Context, provider.QueryParams) (any, error) {
			return bars(start, 1000, 1010), nil
		})
	s := newTestSession(t, krx)
	q := query(t, s, "005930", start, start.AddDate(0, 0, 1))

	res, err := s.Beta(context.Background(), q, models.IndexKOSPI)
	require.NoError(t, err)
	assert.Equal(t, fallback.StatusEmpty, res.Status)
}

// --- US statements ---

func TestUSStatements(t *testing.T) {
	fmpStub := directoryStub("fmp")
	for _, m := range []provider.ModelType{provider.ModelIncomeStatement, provider.ModelBalanceSheet, provider.ModelCashFlowStatement} {
		fmpStub.handle(m, func(context.Context, provider.QueryParams) (any, error) {
			return []models.USStatement{{"date": "2024-03-30", "period": "Q2"}}, nil
		})
	}
	s := newTestSession(t, fmpStub)

	sel, err := s.SelectUS(context.Background(), "AAPL", "")
	require.NoError(t, err)
	q, err := resolver.NewReportQuery(sel, models.DateRange{Start: day(2024, 1, 1), End: day(2024, 6, 30)}, models.CategoryUSIncome)
	require.NoError(t, err)

	results, err := s.USStatements(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.CategoryUSIncome, results[0].Table.Category)
	assert.Equal(t, models.CategoryUSBalance, results[1].Table.Category)
	assert.Equal(t, models.CategoryUSCashFlow, results[2].Table.Category)
	assert.Equal(t, []string{"quarter", "quarter", "quarter"}, fmpStub.callsWith(provider.ParamPeriod))
	assert.Contains(t, fmpStub.callsWith(provider.ParamStartDate), "2024-01-01")
}

// --- feed ---

func TestFeed(t *testing.T) {
	dart := newStub("dart").handle(provider.ModelDisclosureFeed, func(_ context.Context, p provider.QueryParams) (any, error) {
		return []models.FeedItem{{Title: "[삼성전자] 분기보고서", CorpName: p[provider.ParamQuery]}}, nil
	})
	s := newTestSession(t, dart)

	res, err := s.Feed(context.Background(), "삼성전자")
	require.NoError(t, err)
	assert.Nil(t, res.Entity)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "삼성전자", res.Table.Rows[0].Values["corp_name"])
}

func TestParseYear(t *testing.T) {
	y, err := ParseYear("2021")
	require.NoError(t, err)
	assert.Equal(t, 2021, y)

	_, err = ParseYear("21")
	assert.Error(t, err)
	assert.Equal(t, 2023, ReportYear(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}
