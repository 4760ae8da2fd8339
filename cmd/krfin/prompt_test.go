package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/pkg/models"
)

var samsung = resolver.MatchSet{
	Query: "삼성",
	Entries: []models.DirectoryEntry{
		{Code: "005930", Name: "삼성전자", Market: models.MarketKOSPI},
		{Code: "009150", Name: "삼성전기", Market: models.MarketKOSPI},
	},
}

// lines feeds text to the prompts the way stdin would.
func lines(text string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(text))
}

// fakeSelect mirrors Session.Select over a fixed match set.
func fakeSelect(ms resolver.MatchSet, calls *[]string) selectFunc {
	return func(_ context.Context, _, pick string) (resolver.Selection, error) {
		*calls = append(*calls, pick)
		if pick != "" {
			return resolver.Choose(ms, pick)
		}
		return resolver.Select(ms)
	}
}

func TestChoosePrompts(t *testing.T) {
	var calls []string
	var out bytes.Buffer
	sel, err := choose(context.Background(), fakeSelect(samsung, &calls), "삼성", "", lines("x\n5\n2\n"), &out)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got := sel.Entry().Code; got != "009150" {
		t.Errorf("selected %s, want 009150", got)
	}
	if len(calls) != 2 || calls[1] != "009150" {
		t.Errorf("calls = %v", calls)
	}
	text := out.String()
	for _, want := range []string{"matches 2 entities", "1) 삼성전자 (005930", `"x" is not a number`, `"5" is not a number`} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestChooseCancel(t *testing.T) {
	for _, input := range []string{"", "\n", "q\n"} {
		var calls []string
		_, err := choose(context.Background(), fakeSelect(samsung, &calls), "삼성", "", lines(input), &bytes.Buffer{})
		if !errors.Is(err, errCancelled) {
			t.Errorf("input %q: err = %v, want errCancelled", input, err)
		}
	}
}

func TestChooseWithPickDoesNotPrompt(t *testing.T) {
	var calls []string
	var out bytes.Buffer
	sel, err := choose(context.Background(), fakeSelect(samsung, &calls), "삼성", "005930", lines(""), &out)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if sel.Entry().Name != "삼성전자" {
		t.Errorf("selected %s", sel.Entry())
	}
	if out.Len() != 0 {
		t.Errorf("unexpected prompt output: %q", out.String())
	}

	_, err = choose(context.Background(), fakeSelect(samsung, &calls), "삼성", "035720", lines(""), &out)
	if !errors.Is(err, resolver.ErrNotACandidate) {
		t.Errorf("err = %v, want ErrNotACandidate", err)
	}
}

func TestChooseNoMatch(t *testing.T) {
	var calls []string
	_, err := choose(context.Background(), fakeSelect(resolver.MatchSet{Query: "없음"}, &calls), "없음", "", lines("1\n"), &bytes.Buffer{})
	if !errors.Is(err, resolver.ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestPickDisclosure(t *testing.T) {
	list := normalize.Disclosures([]models.Disclosure{
		{ReceiptNo: "20240312000736", ReportName: "사업보고서 (2023.12)", ReceiptDate: "20240312"},
		{ReceiptNo: "20230307000542", ReportName: "사업보고서 (2022.12)", ReceiptDate: "20230307"},
	})

	var out bytes.Buffer
	d, err := pickDisclosure(lines("2\n"), &out, list)
	if err != nil {
		t.Fatalf("pickDisclosure: %v", err)
	}
	if d.ReceiptNo != "20230307000542" || d.ReportName != "사업보고서 (2022.12)" {
		t.Errorf("picked %+v", d)
	}
	if !strings.Contains(out.String(), "접수번호") {
		t.Errorf("table header missing:\n%s", out.String())
	}

	_, err = pickDisclosure(lines("1\n"), &bytes.Buffer{}, normalize.Disclosures(nil))
	if !errors.Is(err, fallback.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestPrintMatches(t *testing.T) {
	var out bytes.Buffer
	printMatches(&out, resolver.MatchSet{Query: "005930", ByCode: true, Entries: samsung.Entries[:1]})
	if got := out.String(); !strings.Contains(got, `"005930" by code: 1 match(es)`) {
		t.Errorf("output = %q", got)
	}
}

func TestSummary(t *testing.T) {
	caps := normalize.MarketCaps([]models.MarketCap{{
		Date: "20231228", Code: "005930", Name: "삼성전자",
		Close: "78,500", MarketCap: "468,630,930,675,000", ListedShares: "5,969,782,550",
	}})
	want := "시가총액 468.63조 · 종가 ₩78,500 · 상장주식수 5,969,782,550주"
	if got := summary(caps); got != want {
		t.Errorf("market cap summary = %q, want %q", got, want)
	}

	shares := normalize.Shares(models.SharesOutstanding{Code: "005930", Year: 2023, AsOf: "20231228", Shares: 5969782550})
	if got := summary(shares); got != "발행주식총수 5,969,782,550주 (기준일 2023-12-28)" {
		t.Errorf("shares summary = %q", got)
	}

	if got := summary(normalize.Disclosures(nil)); got != "" {
		t.Errorf("empty table summary = %q", got)
	}
}

func TestPromptsShareInput(t *testing.T) {
	var calls []string
	var out bytes.Buffer
	in := lines("1\n2\n")

	sel, err := choose(context.Background(), fakeSelect(samsung, &calls), "삼성", "", in, &out)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if sel.Entry().Code != "005930" {
		t.Errorf("selected %s, want 005930", sel.Entry().Code)
	}

	list := normalize.Disclosures([]models.Disclosure{
		{ReceiptNo: "20240312000736", ReportName: "사업보고서 (2023.12)"},
		{ReceiptNo: "20230307000542", ReportName: "사업보고서 (2022.12)"},
	})
	d, err := pickDisclosure(in, &out, list)
	if err != nil {
		t.Fatalf("pickDisclosure after choose: %v", err)
	}
	if d.ReceiptNo != "20230307000542" {
		t.Errorf("picked %s, want 20230307000542", d.ReceiptNo)
	}
}
