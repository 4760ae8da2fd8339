package models

import (
	"fmt"
	"strings"
)

// StatementDivision selects consolidated or separate statements (OpenDART fs_div).
type StatementDivision string

const (
	DivisionConsolidated StatementDivision = "CFS" // 연결재무제표
	DivisionSeparate     StatementDivision = "OFS" // 재무제표
)

// Label returns the Korean statement-set name.
func (d StatementDivision) Label() string {
	switch d {
	case DivisionConsolidated:
		return "연결재무제표"
	case DivisionSeparate:
		return "재무제표"
	}
	return string(d)
}

// ReportCode is the OpenDART reprt_code of a periodic report.
type ReportCode string

const (
	ReportQ1     ReportCode = "11013"
	ReportHalf   ReportCode = "11012"
	ReportQ3     ReportCode = "11014"
	ReportAnnual ReportCode = "11011"
)

// StatementLine is one account row of a full DART financial statement.
// Amount fields are the raw strings returned by the API.
type StatementLine struct {
	ReceiptNo     string            `json:"rcept_no"`
	ReportCode    string            `json:"reprt_code"`
	BusinessYear  string            `json:"bsns_year"`
	CorpCode      string            `json:"corp_code"`
	Division      StatementDivision `json:"fs_div"`
	DivisionName  string            `json:"fs_nm"`
	StatementKind string            `json:"sj_div"` // BS, IS, CIS, CF, SCE
	StatementName string            `json:"sj_nm"`
	AccountID     string            `json:"account_id"`
	AccountName   string            `json:"account_nm"`
	AccountDetail string            `json:"account_detail"`
	CurrentTerm   string            `json:"thstrm_nm"`
	CurrentAmount string            `json:"thstrm_amount"`
	PriorTerm     string            `json:"frmtrm_nm"`
	PriorAmount   string            `json:"frmtrm_amount"`
	Order         string            `json:"ord"`
	Currency      string            `json:"currency"`
}

// USStatementKind names an FMP quarterly statement.
type USStatementKind string

const (
	USIncome   USStatementKind = "income-statement"
	USBalance  USStatementKind = "balance-sheet-statement"
	USCashFlow USStatementKind = "cash-flow-statement"
)

// Short returns the sheet abbreviation used in exports.
func (k USStatementKind) Short() string {
	switch k {
	case USIncome:
		return "IS"
	case USBalance:
		return "BS"
	case USCashFlow:
		return "CF"
	}
	return string(k)
}

// USStatementKinds lists the statements in export order.
var USStatementKinds = []USStatementKind{USIncome, USBalance, USCashFlow}

// USStatement is one period of an FMP statement, kept as decoded JSON.
// Fields vary by statement kind; the normalizer projects a fixed schema.
type USStatement map[string]any

// ParseReportCode accepts a reprt_code, an English alias or the Korean report name.
func ParseReportCode(s string) (ReportCode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "11011", "annual", "사업보고서", "":
		return ReportAnnual, nil
	case "11012", "half", "semiannual", "반기보고서":
		return ReportHalf, nil
	case "11013", "q1", "1분기보고서":
		return ReportQ1, nil
	case "11014", "q3", "3분기보고서":
		return ReportQ3, nil
	}
	return "", fmt.Errorf("unknown report code %q", s)
}
