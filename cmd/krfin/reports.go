package main

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/krfin/internal/export"
	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/internal/session"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// reportFn runs one report for a selected entity. in is the scanner the
// entity prompt read from; later prompts must share it.
type reportFn func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error)

func reportCommands() []*cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "List directory entries matching a code or name",
		Long: `Resolve a 6-digit stock code exactly, or a name by substring in either
direction. Nothing is selected; use --pick on a report command to choose.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			market, err := models.ParseMarket(flagString(cmd, "market"))
			if err != nil {
				return err
			}
			var ms resolver.MatchSet
			if market == models.MarketUS {
				ms = sess.ResolveUS(cmd.Context(), args[0])
			} else {
				ms = sess.ResolveIn(cmd.Context(), args[0], market)
			}
			printMatches(cmd.OutOrStdout(), ms)
			return nil
		},
	}
	resolveCmd.Flags().String("market", "", "kospi, kosdaq, konex, or us for the US ticker directory (default: all Korean)")

	disclosuresCmd := entityCommand("disclosures <query>", "List periodic filings in the date range",
		models.CategoryDisclosures,
		func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error) {
			typ, err := models.ParseDisclosureType(flagString(cmd, "type"))
			if err != nil {
				return nil, err
			}
			return sess.Disclosures(ctx, q, typ)
		})
	disclosuresCmd.Flags().String("type", "annual", "report type: annual, half, quarterly")

	statementsCmd := entityCommand("statements <query>", "Fetch a full financial statement (CFS, then OFS)",
		models.CategoryStatement,
		func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error) {
			if year := flagString(cmd, "year"); year != "" {
				if _, err := session.ParseYear(year); err != nil {
					return nil, err
				}
				code, err := models.ParseReportCode(flagString(cmd, "report"))
				if err != nil {
					return nil, err
				}
				return sess.Statements(ctx, q, year, code, "")
			}

			typ, err := models.ParseDisclosureType(flagString(cmd, "type"))
			if err != nil {
				return nil, err
			}
			list, err := sess.Disclosures(ctx, q, typ)
			if err != nil {
				return nil, err
			}
			d, err := pickDisclosure(in, cmd.OutOrStdout(), list.Table)
			if err != nil {
				return nil, err
			}
			return sess.StatementsForReport(ctx, q, d)
		})
	statementsCmd.Flags().String("year", "", "business year; skips the filing list")
	statementsCmd.Flags().String("report", "annual", "report period with --year: annual, half, q1, q3")
	statementsCmd.Flags().String("type", "annual", "filing type to list: annual, half, quarterly")

	marketCapCmd := entityCommand("marketcap <query>", "Fetch market cap on the last trading day of the range",
		models.CategoryMarketCap,
		func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error) {
			return sess.MarketCap(ctx, q)
		})

	sharesCmd := entityCommand("shares <query>", "Fetch listed shares at a year end",
		models.CategoryShares,
		func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error) {
			year := session.ReportYear(time.Now())
			if y := flagString(cmd, "year"); y != "" {
				var err error
				if year, err = session.ParseYear(y); err != nil {
					return nil, err
				}
			}
			return sess.SharesOutstanding(ctx, q, year)
		})
	sharesCmd.Flags().String("year", "", "year end to look up (default: last year)")

	betaCmd := entityCommand("beta <query>", "Compute beta against KOSPI or KOSDAQ over the range",
		models.CategoryBeta,
		func(ctx context.Context, cmd *cobra.Command, in *bufio.Scanner, sess *session.Session, q resolver.ReportQuery) (*session.FetchResult, error) {
			idx, err := models.ParseIndexKind(flagString(cmd, "index"))
			if err != nil {
				return nil, err
			}
			return sess.Beta(ctx, q, idx)
		})
	betaCmd.Flags().String("index", "KOSPI", "benchmark index: KOSPI or KOSDAQ")

	usCmd := &cobra.Command{
		Use:   "us-statements <ticker>",
		Short: "Fetch US income, balance sheet and cash flow statements from FMP",
		Args:  cobra.ExactArgs(1),
		RunE:  runUSStatements,
	}
	rangeFlags(usCmd)

	feedCmd := &cobra.Command{
		Use:   "feed [query]",
		Short: "Show today's OpenDART disclosure feed, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			var query string
			if len(args) == 1 {
				query = args[0]
			}
			res, err := sess.Feed(cmd.Context(), query)
			if err != nil {
				return err
			}
			return emit(cmd, "krfin", res)
		},
	}
	feedCmd.Flags().String("out", "", "write the result to a .csv/.xlsx file, or \"csv\"/\"xlsx\" for a generated name")

	return []*cobra.Command{
		resolveCmd, disclosuresCmd, statementsCmd, marketCapCmd,
		sharesCmd, betaCmd, usCmd, feedCmd,
	}
}

// entityCommand builds a command that selects one Korean entity, then runs fn.
func entityCommand(use, short string, cat models.ReportCategory, fn reportFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}

			sess, err := newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			in := bufio.NewScanner(cmd.InOrStdin())
			sel, err := choose(ctx, sess.Select, args[0], flagString(cmd, "pick"), in, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			q, err := resolver.NewReportQuery(sel, rng, cat)
			if err != nil {
				return err
			}
			res, err := fn(ctx, cmd, in, sess, q)
			if err != nil {
				return err
			}
			return emit(cmd, sel.Entry().Name, res)
		},
	}
	rangeFlags(cmd)
	return cmd
}

func runUSStatements(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rng, err := rangeFromFlags(cmd)
	if err != nil {
		return err
	}
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	sel, err := choose(ctx, sess.SelectUS, args[0], flagString(cmd, "pick"), bufio.NewScanner(cmd.InOrStdin()), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	q, err := resolver.NewReportQuery(sel, rng, models.CategoryUSIncome)
	if err != nil {
		return err
	}
	results, err := sess.USStatements(ctx, q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tables := make([]normalize.Table, 0, len(results))
	empty := true
	for _, res := range results {
		tbl := layout(cmd, res.Table)
		printResult(out, res, tbl)
		fmt.Fprintln(out)
		tables = append(tables, tbl)
		if res.Status == fallback.StatusSuccess {
			empty = false
		}
	}
	if empty {
		return fmt.Errorf("%s: %w", sel.Entry().Code, fallback.ErrEmptyResult)
	}
	return save(cmd, sel.Entry().Code, "us_statements", "", tables...)
}

// emit prints a result, writes --out if set, and turns an exhausted chain
// into an error so the exit status reflects it.
func emit(cmd *cobra.Command, subject string, res *session.FetchResult) error {
	tbl := layout(cmd, res.Table)
	printResult(cmd.OutOrStdout(), res, tbl)
	if res.Status == fallback.StatusEmpty {
		return fmt.Errorf("%s %s: %w", subject, res.Table.Category, fallback.ErrEmptyResult)
	}
	return save(cmd, subject, string(res.Table.Category), res.VariantUsed, tbl)
}

// layout applies --transpose.
func layout(cmd *cobra.Command, t normalize.Table) normalize.Table {
	if on, _ := cmd.Flags().GetBool("transpose"); on && !t.Empty() {
		return export.Transpose(t)
	}
	return t
}

// save writes tables to --out. "csv" or "xlsx" alone generates a file name
// in the configured export directory.
func save(cmd *cobra.Command, subject, kind, variant string, tables ...normalize.Table) error {
	out := flagString(cmd, "out")
	if out == "" {
		return nil
	}
	if ext := strings.ToLower(out); ext == "csv" || ext == "xlsx" {
		out = filepath.Join(cfg.Export.Dir, export.Filename(subject, kind, variant, ext, time.Now()))
	}
	files, err := export.Save(out, tables...)
	for _, f := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", f)
	}
	return err
}

func rangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "range start: YYYYMMDD, YYYY-MM-DD or YYYY.MM.DD (default: one year before end)")
	cmd.Flags().String("end", "", "range end (default: today, KST)")
	cmd.Flags().String("pick", "", "code to choose when the query is ambiguous")
	cmd.Flags().String("out", "", "write the result to a .csv/.xlsx file, or \"csv\"/\"xlsx\" for a generated name")
	cmd.Flags().Bool("transpose", false, "swap rows and columns; the first column becomes the header")
}

func rangeFromFlags(cmd *cobra.Command) (models.DateRange, error) {
	end := utils.NowKST()
	if s := flagString(cmd, "end"); s != "" {
		t, err := utils.ParseDate(s)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("--end: %w", err)
		}
		end = t
	}
	start := end.AddDate(-1, 0, 0)
	if s := flagString(cmd, "start"); s != "" {
		t, err := utils.ParseDate(s)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("--start: %w", err)
		}
		start = t
	}
	return models.NewDateRange(start, end)
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
