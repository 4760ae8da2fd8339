// Package utils provides common utility functions for krfin.
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KST is the Korea Standard Time location (UTC+9).
var KST *time.Location

func init() {
	var err error
	KST, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		KST = time.FixedZone("KST", 9*60*60)
	}
}

// NowKST returns the current time in KST.
func NowKST() time.Time {
	return time.Now().In(KST)
}

// ToKST converts a time.Time to KST.
func ToKST(t time.Time) time.Time {
	return t.In(KST)
}

// IsTradingDay checks if the given date is a KRX trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(KST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsTradingHoliday reports fixed-date KRX closures. Lunar holidays are not
// modelled; callers that need an exact session walk back through PrevTradingDay
// and let the upstream decide.
func IsTradingHoliday(t time.Time) bool {
	t = t.In(KST)
	_, ok := krxFixedHolidays[t.Format("01-02")]
	return ok
}

// Fixed-date KRX closures. Dec 31 is the year-end market closing day.
var krxFixedHolidays = map[string]string{
	"01-01": "New Year's Day",
	"03-01": "Independence Movement Day",
	"05-01": "Labour Day",
	"05-05": "Children's Day",
	"06-06": "Memorial Day",
	"08-15": "Liberation Day",
	"10-03": "National Foundation Day",
	"10-09": "Hangul Day",
	"12-25": "Christmas",
	"12-31": "Year-end closing",
}

// PrevTradingDay returns the previous trading day from the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(KST).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// YearEndCandidates lists YYYYMMDD dates from Dec 31 of year back to Dec 24,
// weekdays only, latest first. The first date with data is the year-end snapshot.
func YearEndCandidates(year int) []string {
	var out []string
	d := time.Date(year, time.December, 31, 0, 0, 0, 0, KST)
	for i := 0; i < 8; i++ {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d.Format("20060102"))
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

var reDateSeparators = regexp.MustCompile(`[-./\s]`)

// CleanDate strips separators so "2023-01-05" and "2023.01.05" become "20230105".
func CleanDate(s string) string {
	return reDateSeparators.ReplaceAllString(strings.TrimSpace(s), "")
}

// ParseDate parses YYYYMMDD, YYYY-MM-DD or YYYY.MM.DD in KST.
func ParseDate(s string) (time.Time, error) {
	clean := CleanDate(s)
	t, err := time.ParseInLocation("20060102", clean, KST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD or YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDateKST formats a time.Time to "2006-01-02" in KST.
func FormatDateKST(t time.Time) string {
	return t.In(KST).Format("2006-01-02")
}

// FormatYMD formats a time.Time to "20060102" in KST.
func FormatYMD(t time.Time) string {
	return t.In(KST).Format("20060102")
}
