package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reNumberNoise = regexp.MustCompile(`[,\s₩$%]`)
	errNotNumber  = errors.New("not a number")
)

// isBlank reports values upstreams use for "no figure".
func isBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "—", "N/A", "null":
		return true
	}
	return false
}

// ParseAmount parses an amount such as "1,234,567", "-500" or "(1,200)".
// Blank markers return a nil pointer and no error.
func ParseAmount(raw string) (*decimal.Decimal, error) {
	if isBlank(raw) {
		return nil, nil
	}
	s := reNumberNoise.ReplaceAllString(strings.TrimSpace(raw), "")
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errNotNumber
	}
	if neg {
		d = d.Neg()
	}
	return &d, nil
}

// ParseInt parses an integer count such as "5,969,782,550".
func ParseInt(raw string) (*int64, error) {
	d, err := ParseAmount(raw)
	if err != nil || d == nil {
		return nil, err
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("not an integer")
	}
	n := d.IntPart()
	return &n, nil
}

// ParseDate accepts YYYYMMDD, YYYY-MM-DD and YYYY.MM.DD and returns YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	if isBlank(raw) {
		return "", nil
	}
	s := strings.NewReplacer("-", "", ".", "", "/", "").Replace(strings.TrimSpace(raw))
	if len(s) > 8 {
		s = s[:8]
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return "", fmt.Errorf("not a date")
	}
	return t.Format("2006-01-02"), nil
}

// convert maps a raw value to the column kind. nil results mean "no value".
func convert(kind ColumnKind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case KindText:
		return strings.TrimSpace(fmt.Sprint(raw)), nil
	case KindDate:
		d, err := ParseDate(fmt.Sprint(raw))
		if err != nil || d == "" {
			return nil, err
		}
		return d, nil
	case KindDecimal:
		switch x := raw.(type) {
		case float64:
			return decimal.NewFromFloat(x), nil
		case int64:
			return decimal.NewFromInt(x), nil
		case int:
			return decimal.NewFromInt(int64(x)), nil
		case decimal.Decimal:
			return x, nil
		case string:
			d, err := ParseAmount(x)
			if err != nil || d == nil {
				return nil, err
			}
			return *d, nil
		}
	case KindInt:
		switch x := raw.(type) {
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("not an integer")
			}
			return int64(x), nil
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case string:
			n, err := ParseInt(x)
			if err != nil || n == nil {
				return nil, err
			}
			return *n, nil
		}
	case KindFloat:
		switch x := raw.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			if isBlank(x) {
				return nil, nil
			}
			f, err := strconv.ParseFloat(reNumberNoise.ReplaceAllString(x, ""), 64)
			if err != nil {
				return nil, errNotNumber
			}
			return f, nil
		}
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}
