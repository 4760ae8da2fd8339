// Package models defines the core data structures used throughout krfin.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies the venue an entity is listed on.
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
	MarketKONEX  Market = "KONEX"
	MarketKRX    Market = "KRX" // listed on KRX, segment not reported by the source
	MarketUS     Market = "US"
	MarketAll    Market = "ALL" // request filter only, never stored on an entry
)

// ParseMarket converts user input such as "kospi" or "코스닥" to a Market.
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KOSPI", "STK", "코스피", "유가증권":
		return MarketKOSPI, nil
	case "KOSDAQ", "KSQ", "코스닥":
		return MarketKOSDAQ, nil
	case "KONEX", "KNX", "코넥스":
		return MarketKONEX, nil
	case "KRX":
		return MarketKRX, nil
	case "US", "USA", "NYSE", "NASDAQ":
		return MarketUS, nil
	case "ALL", "":
		return MarketAll, nil
	}
	return "", fmt.Errorf("unknown market %q", s)
}

// Korean reports whether the market is a KRX segment.
func (m Market) Korean() bool {
	switch m {
	case MarketKOSPI, MarketKOSDAQ, MarketKONEX, MarketKRX:
		return true
	}
	return false
}

// Includes reports whether a filter market admits entries from m.
func (m Market) Includes(other Market) bool {
	if m == MarketAll {
		return true
	}
	if m == MarketKRX {
		return other.Korean()
	}
	return m == other
}

// DirectoryEntry is one listed entity in the session directory.
// Entries are values and are never mutated after a directory is built.
type DirectoryEntry struct {
	Code     string `json:"code"`                // e.g., "005930" or "AAPL"
	Name     string `json:"name"`                // e.g., "삼성전자"
	Market   Market `json:"market"`              // listing venue
	CorpCode string `json:"corp_code,omitempty"` // OpenDART 8-digit corporation code
	Sector   string `json:"sector,omitempty"`
}

func (e DirectoryEntry) String() string {
	return fmt.Sprintf("%s (%s, %s)", e.Name, e.Code, e.Market)
}

// OHLCV represents a single daily bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// MarketCap is a single KRX market-capitalisation snapshot row.
// Numeric fields are kept as reported; the normalizer parses them.
type MarketCap struct {
	Date         string `json:"date"`          // YYYYMMDD of the snapshot
	Code         string `json:"code"`          // ISU_SRT_CD
	Name         string `json:"name"`          // ISU_ABBRV
	Market       string `json:"market"`        // MKT_NM
	Close        string `json:"close"`         // TDD_CLSPRC
	MarketCap    string `json:"market_cap"`    // MKTCAP
	ListedShares string `json:"listed_shares"` // LIST_SHRS
}

// IndexKind selects the benchmark used for beta.
type IndexKind string

const (
	IndexKOSPI  IndexKind = "KOSPI"
	IndexKOSDAQ IndexKind = "KOSDAQ"
)

// ParseIndexKind accepts English or Korean index names.
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KOSPI", "코스피", "1001", "":
		return IndexKOSPI, nil
	case "KOSDAQ", "코스닥", "2001":
		return IndexKOSDAQ, nil
	}
	return "", fmt.Errorf("unknown index %q", s)
}

// BetaResult is the outcome of a beta regression of a stock against an index.
type BetaResult struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Index        IndexKind `json:"index"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Observations int       `json:"observations"` // aligned daily returns
	Beta         float64   `json:"beta"`
	Correlation  float64   `json:"correlation"`
}

// SharesOutstanding is the listed share count at a year-end snapshot.
type SharesOutstanding struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Year   int    `json:"year"`
	AsOf   string `json:"as_of"` // trading day actually used
	Shares int64  `json:"shares"`
}
