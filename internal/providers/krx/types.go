package krx

// marketCapResponse is the MDCSTAT01501 payload.
type marketCapResponse struct {
	OutBlock1 []marketCapRow `json:"OutBlock_1"`
	Current   string         `json:"CURRENT_DATETIME"`
}

type marketCapRow struct {
	Code         string `json:"ISU_SRT_CD"`
	Name         string `json:"ISU_ABBRV"`
	Market       string `json:"MKT_NM"`
	Close        string `json:"TDD_CLSPRC"`
	MarketCap    string `json:"MKTCAP"`
	ListedShares string `json:"LIST_SHRS"`
}

// finderResponse is the finder_stkisu payload used to look up the ISIN.
type finderResponse struct {
	Block1 []struct {
		FullCode  string `json:"full_code"`
		ShortCode string `json:"short_code"`
		Name      string `json:"codeName"`
	} `json:"block1"`
}

// stockHistoryResponse is the MDCSTAT01701 payload.
type stockHistoryResponse struct {
	Output []struct {
		Date   string `json:"TRD_DD"`
		Close  string `json:"TDD_CLSPRC"`
		Open   string `json:"TDD_OPNPRC"`
		High   string `json:"TDD_HGPRC"`
		Low    string `json:"TDD_LWPRC"`
		Volume string `json:"ACC_TRDVOL"`
	} `json:"output"`
}

// indexHistoryResponse is the MDCSTAT00301 payload.
type indexHistoryResponse struct {
	Output []struct {
		Date   string `json:"TRD_DD"`
		Close  string `json:"CLSPRC_IDX"`
		Open   string `json:"OPNPRC_IDX"`
		High   string `json:"HGPRC_IDX"`
		Low    string `json:"LWPRC_IDX"`
		Volume string `json:"ACC_TRDVOL"`
	} `json:"output"`
}
