package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatKRW formats a won amount with thousands separators (₩1,234,567).
func FormatKRW(amount int64) string {
	if amount < 0 {
		return "-₩" + groupThousands(-amount)
	}
	return "₩" + groupThousands(amount)
}

// FormatKRWCompact formats a won amount in Korean units.
// e.g., 482_000_000_000_000 → "482조", 1_250_000_000 → "12.5억"
func FormatKRWCompact(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	amount = math.Abs(amount)

	switch {
	case amount >= 1e12:
		return sign + trimDecimals(amount/1e12) + "조"
	case amount >= 1e8:
		return sign + trimDecimals(amount/1e8) + "억"
	case amount >= 1e4:
		return sign + trimDecimals(amount/1e4) + "만"
	default:
		return sign + trimDecimals(amount)
	}
}

// FormatShares formats a share count with separators and the 주 suffix.
func FormatShares(n int64) string {
	return groupThousands(n) + "주"
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// trimDecimals formats with up to 2 decimal places, removing trailing zeros.
func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
