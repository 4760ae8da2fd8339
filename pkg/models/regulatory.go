package models

import (
	"fmt"
	"strings"
	"time"
)

// DisclosureType is the OpenDART pblntf_detail_ty of a periodic report.
type DisclosureType string

const (
	DisclosureAnnual     DisclosureType = "A001" // 사업보고서
	DisclosureSemiAnnual DisclosureType = "A002" // 반기보고서
	DisclosureQuarterly  DisclosureType = "A003" // 분기보고서
)

// Label returns the Korean report name.
func (d DisclosureType) Label() string {
	switch d {
	case DisclosureAnnual:
		return "사업보고서"
	case DisclosureSemiAnnual:
		return "반기보고서"
	case DisclosureQuarterly:
		return "분기보고서"
	}
	return string(d)
}

// ParseDisclosureType accepts a code ("A001"), an English alias or the Korean name.
func ParseDisclosureType(s string) (DisclosureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a001", "annual", "사업보고서", "":
		return DisclosureAnnual, nil
	case "a002", "semiannual", "half", "반기보고서":
		return DisclosureSemiAnnual, nil
	case "a003", "quarterly", "quarter", "분기보고서":
		return DisclosureQuarterly, nil
	}
	return "", fmt.Errorf("unknown disclosure type %q", s)
}

// Disclosure is one filing returned by the OpenDART list endpoint.
type Disclosure struct {
	ReceiptNo   string `json:"rcept_no"`
	ReportName  string `json:"report_nm"`
	ReceiptDate string `json:"rcept_dt"` // YYYYMMDD
	CorpCode    string `json:"corp_code"`
	CorpName    string `json:"corp_name"`
	StockCode   string `json:"stock_code"`
	CorpClass   string `json:"corp_cls"` // Y KOSPI, K KOSDAQ, N KONEX, E other
	FilerName   string `json:"flr_nm"`
	Remark      string `json:"rm"`
}

// FeedItem is an entry of the OpenDART today-disclosure RSS feed.
type FeedItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	CorpName  string    `json:"corp_name"`
	Published time.Time `json:"published"`
}
