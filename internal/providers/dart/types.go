package dart

import "github.com/seenimoa/krfin/pkg/models"

// corpCodeFile is the CORPCODE.xml document inside the corpCode.xml archive.
type corpCodeFile struct {
	List []corpCodeEntry `xml:"list"`
}

type corpCodeEntry struct {
	CorpCode   string `xml:"corp_code"`
	CorpName   string `xml:"corp_name"`
	EngName    string `xml:"corp_eng_name"`
	StockCode  string `xml:"stock_code"`
	ModifyDate string `xml:"modify_date"`
}

// listResponse is the list.json payload.
type listResponse struct {
	envelope
	PageNo     int                 `json:"page_no"`
	PageCount  int                 `json:"page_count"`
	TotalCount int                 `json:"total_count"`
	TotalPage  int                 `json:"total_page"`
	List       []models.Disclosure `json:"list"`
}

// statementResponse is the fnlttSinglAcntAll.json payload.
type statementResponse struct {
	envelope
	List []models.StatementLine `json:"list"`
}
