package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/internal/session"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// errCancelled is returned when the user declines to pick a candidate.
var errCancelled = errors.New("selection cancelled")

// selectFunc is Session.Select or Session.SelectUS.
type selectFunc func(ctx context.Context, query, pick string) (resolver.Selection, error)

// choose runs sel and, when the query is ambiguous and no pick was given,
// lists the candidates and reads a number from in. It never picks on its own.
// in is shared by every prompt of a command run.
func choose(ctx context.Context, sel selectFunc, query, pick string, in *bufio.Scanner, out io.Writer) (resolver.Selection, error) {
	s, err := sel(ctx, query, pick)
	var amb *resolver.AmbiguousError
	if !errors.As(err, &amb) || pick != "" {
		return s, err
	}

	fmt.Fprintf(out, "%q matches %d entities:\n", query, len(amb.Candidates))
	for i, c := range amb.Candidates {
		fmt.Fprintf(out, "  %2d) %s\n", i+1, c)
	}
	n, err := promptIndex(in, out, len(amb.Candidates))
	if err != nil {
		return resolver.Selection{}, err
	}
	return sel(ctx, query, amb.Candidates[n].Code)
}

// promptIndex reads a 1-based choice and returns it 0-based. An empty line,
// "q" or EOF cancels. Invalid input asks again.
func promptIndex(in *bufio.Scanner, out io.Writer, n int) (int, error) {
	for {
		fmt.Fprintf(out, "select 1-%d (q to cancel): ", n)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return 0, err
			}
			return 0, errCancelled
		}
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.EqualFold(line, "q") {
			return 0, errCancelled
		}
		i, err := strconv.Atoi(line)
		if err != nil || i < 1 || i > n {
			fmt.Fprintf(out, "%q is not a number between 1 and %d\n", line, n)
			continue
		}
		return i - 1, nil
	}
}

// printResult writes the fetch summary followed by tbl, which is res.Table
// or a re-laid-out copy of it.
func printResult(out io.Writer, res *session.FetchResult, tbl normalize.Table) {
	if res.Entity != nil {
		fmt.Fprintf(out, "%s\n", res.Entity)
	}
	fmt.Fprintf(out, "category: %s  provider: %s  status: %s", res.Table.Category, res.Provider, res.Status)
	if res.VariantUsed != "" {
		fmt.Fprintf(out, "  variant: %s", res.VariantUsed)
	}
	fmt.Fprintln(out)
	if res.Status != fallback.StatusSuccess {
		for _, a := range res.Attempts {
			fmt.Fprintf(out, "  tried %-10s %s %s\n", a.Variant, a.Outcome, a.Error)
		}
	}
	if s := summary(res.Table); s != "" {
		fmt.Fprintln(out, s)
	}
	printTable(out, tbl)
}

// summary is a one-line human reading of single-snapshot tables.
func summary(t normalize.Table) string {
	if t.Len() != 1 {
		return ""
	}
	v := t.Rows[0].Values
	switch t.Category {
	case models.CategoryMarketCap:
		mcap, _ := v["market_cap"].(int64)
		closing, _ := v["close"].(int64)
		shares, _ := v["shares"].(int64)
		return fmt.Sprintf("시가총액 %s · 종가 %s · 상장주식수 %s",
			utils.FormatKRWCompact(float64(mcap)), utils.FormatKRW(closing), utils.FormatShares(shares))
	case models.CategoryShares:
		shares, _ := v["shares"].(int64)
		return fmt.Sprintf("발행주식총수 %s (기준일 %v)", utils.FormatShares(shares), v["as_of"])
	case models.CategoryBeta:
		beta, _ := v["beta"].(float64)
		corr, _ := v["correlation"].(float64)
		return fmt.Sprintf("beta %.3f vs %v (correlation %.3f, %v observations)", beta, v["index"], corr, v["observations"])
	}
	return ""
}

func printTable(out io.Writer, t normalize.Table) {
	if t.Empty() {
		fmt.Fprintln(out, "(no rows)")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Labels(), "\t"))
	for i := range t.Rows {
		fmt.Fprintln(tw, strings.Join(t.Cells(i), "\t"))
	}
	_ = tw.Flush()
	if errs := t.ParseErrors(); len(errs) > 0 {
		fmt.Fprintf(out, "%d field(s) could not be parsed:\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
}

// printMatches lists a resolve outcome without selecting anything.
func printMatches(out io.Writer, ms resolver.MatchSet) {
	how := "name"
	if ms.ByCode {
		how = "code"
	}
	fmt.Fprintf(out, "%q by %s: %d match(es)\n", ms.Query, how, ms.Len())
	for i, e := range ms.Entries {
		fmt.Fprintf(out, "  %2d) %s\n", i+1, e)
	}
}

// pickDisclosure lists filings and asks which one to open.
func pickDisclosure(in *bufio.Scanner, out io.Writer, t normalize.Table) (models.Disclosure, error) {
	printTable(out, t)
	if t.Empty() {
		return models.Disclosure{}, fmt.Errorf("no filings to choose from: %w", fallback.ErrEmptyResult)
	}
	i, err := promptIndex(in, out, t.Len())
	if err != nil {
		return models.Disclosure{}, err
	}
	v := t.Rows[i].Values
	name, _ := v["report_name"].(string)
	rcept, _ := v["receipt_no"].(string)
	return models.Disclosure{ReportName: name, ReceiptNo: rcept}, nil
}
