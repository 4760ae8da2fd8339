package utils

import (
	"regexp"
	"strings"

	"github.com/seenimoa/krfin/pkg/models"
)

var reStockCode = regexp.MustCompile(`^\d{6}$`)

// IsStockCode reports whether s is a 6-digit KRX short code.
func IsStockCode(s string) bool {
	return reStockCode.MatchString(s)
}

// NormalizeStockCode trims and left-pads a numeric code to 6 digits.
// KIND spreadsheets drop leading zeros ("5930" → "005930").
func NormalizeStockCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s
}

// YahooSymbol maps a KRX code to its Yahoo Finance symbol.
func YahooSymbol(code string, market models.Market) string {
	switch market {
	case models.MarketKOSDAQ:
		return code + ".KQ"
	case models.MarketUS:
		return code
	}
	return code + ".KS"
}

// YahooIndexSymbol maps a benchmark to its Yahoo Finance symbol.
func YahooIndexSymbol(idx models.IndexKind) string {
	if idx == models.IndexKOSDAQ {
		return "^KQ11"
	}
	return "^KS11"
}
