package normalize

import (
	"time"

	"github.com/seenimoa/krfin/pkg/models"
)

// DisclosureColumns is the disclosure-list schema.
var DisclosureColumns = []Column{
	{Key: "receipt_no", Label: "접수번호", Kind: KindText},
	{Key: "report_name", Label: "보고서명", Kind: KindText},
	{Key: "filed_at", Label: "접수일", Kind: KindDate},
	{Key: "corp_name", Label: "회사명", Kind: KindText},
	{Key: "filer", Label: "제출인", Kind: KindText},
	{Key: "remark", Label: "비고", Kind: KindText},
}

// Disclosures maps rcept_no, report_nm, rcept_dt, corp_name, flr_nm and rm.
func Disclosures(rows []models.Disclosure) Table {
	b := newBuilder(models.CategoryDisclosures, DisclosureColumns, len(rows))
	for _, d := range rows {
		b.add(map[string]any{
			"receipt_no":  d.ReceiptNo,
			"report_name": d.ReportName,
			"filed_at":    d.ReceiptDate,
			"corp_name":   d.CorpName,
			"filer":       d.FilerName,
			"remark":      d.Remark,
		})
	}
	return b.done()
}

// StatementColumns is the DART financial-statement schema.
var StatementColumns = []Column{
	{Key: "fs_name", Label: "재무제표명", Kind: KindText},
	{Key: "statement", Label: "재무제표구분", Kind: KindText},
	{Key: "account", Label: "계정명", Kind: KindText},
	{Key: "current", Label: "당기 금액", Kind: KindDecimal},
	{Key: "prior", Label: "전기 금액", Kind: KindDecimal},
	{Key: "currency", Label: "통화", Kind: KindText},
}

// Statements maps fs_nm (or the division label), sj_nm, account_nm,
// thstrm_amount, frmtrm_amount and currency.
func Statements(lines []models.StatementLine) Table {
	b := newBuilder(models.CategoryStatement, StatementColumns, len(lines))
	for _, l := range lines {
		fsName := l.DivisionName
		if fsName == "" {
			fsName = l.Division.Label()
		}
		b.add(map[string]any{
			"fs_name":   fsName,
			"statement": l.StatementName,
			"account":   l.AccountName,
			"current":   l.CurrentAmount,
			"prior":     l.PriorAmount,
			"currency":  l.Currency,
		})
	}
	return b.done()
}

// MarketCapColumns is the KRX market-cap snapshot schema.
var MarketCapColumns = []Column{
	{Key: "date", Label: "일자", Kind: KindDate},
	{Key: "code", Label: "종목코드", Kind: KindText},
	{Key: "name", Label: "종목명", Kind: KindText},
	{Key: "close", Label: "종가", Kind: KindInt},
	{Key: "market_cap", Label: "시가총액", Kind: KindInt},
	{Key: "shares", Label: "상장주식수", Kind: KindInt},
}

// MarketCaps maps the KRX MDCSTAT01501 fields.
func MarketCaps(rows []models.MarketCap) Table {
	b := newBuilder(models.CategoryMarketCap, MarketCapColumns, len(rows))
	for _, r := range rows {
		b.add(map[string]any{
			"date":       r.Date,
			"code":       r.Code,
			"name":       r.Name,
			"close":      r.Close,
			"market_cap": r.MarketCap,
			"shares":     r.ListedShares,
		})
	}
	return b.done()
}

// SharesColumns is the year-end shares-outstanding schema.
var SharesColumns = []Column{
	{Key: "code", Label: "종목코드", Kind: KindText},
	{Key: "name", Label: "종목명", Kind: KindText},
	{Key: "year", Label: "연도", Kind: KindInt},
	{Key: "as_of", Label: "기준일", Kind: KindDate},
	{Key: "shares", Label: "발행주식총수", Kind: KindInt},
}

// Shares renders a shares-outstanding result as a one-row table.
func Shares(s models.SharesOutstanding) Table {
	return shares(s.Code, s.Name, s.Year, s.AsOf, s.Shares)
}

// SharesAt reads the listed-share count of a year-end market-cap snapshot.
// An unparsable count leaves the shares cell nil with a row error.
func SharesAt(code, name string, year int, snap models.MarketCap) Table {
	if name == "" {
		name = snap.Name
	}
	return shares(code, name, year, snap.Date, snap.ListedShares)
}

func shares(code, name string, year int, asOf string, n any) Table {
	b := newBuilder(models.CategoryShares, SharesColumns, 1)
	b.add(map[string]any{
		"code":   code,
		"name":   name,
		"year":   int64(year),
		"as_of":  asOf,
		"shares": n,
	})
	return b.done()
}

// BetaColumns is the beta-analysis schema.
var BetaColumns = []Column{
	{Key: "code", Label: "종목코드", Kind: KindText},
	{Key: "name", Label: "종목명", Kind: KindText},
	{Key: "index", Label: "시장지수", Kind: KindText},
	{Key: "start", Label: "시작일", Kind: KindDate},
	{Key: "end", Label: "종료일", Kind: KindDate},
	{Key: "observations", Label: "관측치", Kind: KindInt},
	{Key: "beta", Label: "베타", Kind: KindFloat},
	{Key: "correlation", Label: "상관계수", Kind: KindFloat},
}

// Beta renders a beta result as a one-row table.
func Beta(r models.BetaResult) Table {
	b := newBuilder(models.CategoryBeta, BetaColumns, 1)
	b.add(map[string]any{
		"code":         r.Code,
		"name":         r.Name,
		"index":        string(r.Index),
		"start":        r.Start.Format("20060102"),
		"end":          r.End.Format("20060102"),
		"observations": int64(r.Observations),
		"beta":         r.Beta,
		"correlation":  r.Correlation,
	})
	return b.done()
}

// FeedColumns is the today-disclosure feed schema.
var FeedColumns = []Column{
	{Key: "published", Label: "공시시각", Kind: KindText},
	{Key: "corp_name", Label: "회사명", Kind: KindText},
	{Key: "title", Label: "제목", Kind: KindText},
	{Key: "link", Label: "링크", Kind: KindText},
}

// Feed maps RSS items.
func Feed(items []models.FeedItem) Table {
	b := newBuilder(models.CategoryFeed, FeedColumns, len(items))
	for _, it := range items {
		published := ""
		if !it.Published.IsZero() {
			published = it.Published.Format(time.DateTime)
		}
		b.add(map[string]any{
			"published": published,
			"corp_name": it.CorpName,
			"title":     it.Title,
			"link":      it.Link,
		})
	}
	return b.done()
}
