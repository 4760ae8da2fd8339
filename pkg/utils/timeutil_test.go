package utils

import (
	"testing"
	"time"
)

func TestNowKST(t *testing.T) {
	now := NowKST()
	if now.Location().String() != "Asia/Seoul" && now.Location().String() != "KST" {
		t.Errorf("NowKST() location = %s, want Asia/Seoul or KST", now.Location().String())
	}
}

func TestIsTradingDay(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2024-03-04", true},  // Monday
		{"2024-03-02", false}, // Saturday
		{"2024-03-01", false}, // Independence Movement Day
		{"2024-12-31", false}, // year-end closing
		{"2024-12-30", true},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.date, err)
			}
			if got := IsTradingDay(d); got != tt.want {
				t.Errorf("IsTradingDay(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestPrevTradingDay(t *testing.T) {
	// Monday 2024-03-04 → previous Friday is 03-01 (holiday) → Thursday 02-29.
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, KST)
	got := FormatDateKST(PrevTradingDay(d))
	if got != "2024-02-29" {
		t.Errorf("PrevTradingDay(2024-03-04) = %s, want 2024-02-29", got)
	}
}

func TestYearEndCandidates(t *testing.T) {
	// 2022-12-31 is a Saturday, 12-25 a Sunday.
	got := YearEndCandidates(2022)
	want := []string{"20221230", "20221229", "20221228", "20221227", "20221226"}
	if len(got) != len(want) {
		t.Fatalf("YearEndCandidates(2022) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("YearEndCandidates(2022)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCleanDate(t *testing.T) {
	tests := map[string]string{
		"2023-01-05":   "20230105",
		" 2023.01.05 ": "20230105",
		"20230105":     "20230105",
		"2023/01/05":   "20230105",
	}
	for in, want := range tests {
		if got := CleanDate(in); got != want {
			t.Errorf("CleanDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-12-31")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if FormatYMD(d) != "20231231" {
		t.Errorf("FormatYMD = %s", FormatYMD(d))
	}
	if _, err := ParseDate("2023-13-01"); err == nil {
		t.Error("ParseDate should reject month 13")
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("ParseDate should reject free text")
	}
}
