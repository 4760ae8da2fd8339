package models

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when a date range ends before it starts.
var ErrInvalidRange = errors.New("date range end is before start")

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange validates end >= start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

// StartYMD formats the start as YYYYMMDD.
func (r DateRange) StartYMD() string { return r.Start.Format("20060102") }

// EndYMD formats the end as YYYYMMDD.
func (r DateRange) EndYMD() string { return r.End.Format("20060102") }

// StartISO formats the start as YYYY-MM-DD.
func (r DateRange) StartISO() string { return r.Start.Format("2006-01-02") }

// EndISO formats the end as YYYY-MM-DD.
func (r DateRange) EndISO() string { return r.End.Format("2006-01-02") }

// ReportCategory selects which downstream request a resolved entity receives.
type ReportCategory string

const (
	CategoryDisclosures ReportCategory = "disclosures"
	CategoryStatement   ReportCategory = "statement"
	CategoryMarketCap   ReportCategory = "market_cap"
	CategoryShares      ReportCategory = "shares"
	CategoryBeta        ReportCategory = "beta"
	CategoryUSIncome    ReportCategory = "us_income"
	CategoryUSBalance   ReportCategory = "us_balance"
	CategoryUSCashFlow  ReportCategory = "us_cashflow"
	CategoryFeed        ReportCategory = "feed"
)

// USCategory maps an FMP statement kind to its report category.
func USCategory(k USStatementKind) ReportCategory {
	switch k {
	case USBalance:
		return CategoryUSBalance
	case USCashFlow:
		return CategoryUSCashFlow
	}
	return CategoryUSIncome
}
