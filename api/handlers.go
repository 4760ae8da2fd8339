package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/krfin/internal/export"
	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/internal/session"
	"github.com/seenimoa/krfin/pkg/models"
	"github.com/seenimoa/krfin/pkg/utils"
)

// ResolveResponse is the body of a resolve call.
type ResolveResponse struct {
	Query      string                  `json:"query"`
	ByCode     bool                    `json:"by_code"`
	Decision   resolver.DecisionKind   `json:"decision"`
	Entity     *models.DirectoryEntry  `json:"entity,omitempty"`
	Candidates []models.DirectoryEntry `json:"candidates,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query().Get("q")
	market, err := models.ParseMarket(r.URL.Query().Get("market"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var ms resolver.MatchSet
	if market == models.MarketUS {
		ms = sess.ResolveUS(r.Context(), q)
	} else {
		ms = sess.ResolveIn(r.Context(), q, market)
	}

	d, err := resolver.Decide(ms)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := ResolveResponse{Query: ms.Query, ByCode: ms.ByCode, Decision: d.Kind}
	status := http.StatusOK
	if d.Kind == resolver.KindAmbiguous {
		resp.Candidates = d.Candidates
		status = http.StatusMultipleChoices
	} else {
		e := d.Selection.Entry()
		resp.Entity = &e
	}
	writeJSON(w, status, APIResponse{Success: status == http.StatusOK, Data: resp})
}

func (s *Server) handleDisclosures(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q, ok := reportQuery(w, r, sess, models.CategoryDisclosures)
	if !ok {
		return
	}
	typ, err := models.ParseDisclosureType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := sess.Disclosures(r.Context(), q, typ)
	s.respond(w, r, res, err)
}

func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q, ok := reportQuery(w, r, sess, models.CategoryStatement)
	if !ok {
		return
	}
	params := r.URL.Query()

	var (
		res *session.FetchResult
		err error
	)
	if name := params.Get("report_name"); name != "" {
		res, err = sess.StatementsForReport(r.Context(), q, models.Disclosure{ReportName: name, ReceiptNo: params.Get("rcept_no")})
	} else {
		year := params.Get("year")
		if _, yerr := session.ParseYear(year); yerr != nil {
			writeError(w, http.StatusBadRequest, yerr.Error())
			return
		}
		code, cerr := models.ParseReportCode(params.Get("report"))
		if cerr != nil {
			writeError(w, http.StatusBadRequest, cerr.Error())
			return
		}
		res, err = sess.Statements(r.Context(), q, year, code, params.Get("rcept_no"))
	}
	s.respond(w, r, res, err)
}

func (s *Server) handleMarketCap(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q, ok := reportQuery(w, r, sess, models.CategoryMarketCap)
	if !ok {
		return
	}
	res, err := sess.MarketCap(r.Context(), q)
	s.respond(w, r, res, err)
}

func (s *Server) handleShares(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	year := session.ReportYear(time.Now())
	if y := r.URL.Query().Get("year"); y != "" {
		var err error
		if year, err = session.ParseYear(y); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	q, ok := reportQuery(w, r, sess, models.CategoryShares)
	if !ok {
		return
	}
	res, err := sess.SharesOutstanding(r.Context(), q, year)
	s.respond(w, r, res, err)
}

func (s *Server) handleBeta(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	idx, err := models.ParseIndexKind(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, ok := reportQuery(w, r, sess, models.CategoryBeta)
	if !ok {
		return
	}
	res, err := sess.Beta(r.Context(), q, idx)
	s.respond(w, r, res, err)
}

func (s *Server) handleUSStatements(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	rng, err := dateRange(params.Get("start"), params.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel, err := s.shared.SelectUS(r.Context(), params.Get("ticker"), params.Get("pick"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	q, err := resolver.NewReportQuery(sel, rng, models.CategoryUSIncome)
	if err != nil {
		writeFailure(w, err)
		return
	}

	results, err := s.shared.USStatements(r.Context(), q)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if format := params.Get("format"); format != "" {
		tables := make([]normalize.Table, len(results))
		for i, res := range results {
			tables[i] = res.Table
		}
		s.writeExport(w, format, sel.Entry().Code, "us_statements", "", tables...)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	res, err := s.shared.Feed(r.Context(), r.URL.Query().Get("q"))
	s.respond(w, r, res, err)
}

// reportQuery selects the entity named by ?code= (or ?q= with an optional
// ?pick=) and validates ?start=/?end=. It writes the error response itself.
func reportQuery(w http.ResponseWriter, r *http.Request, sess *session.Session, cat models.ReportCategory) (resolver.ReportQuery, bool) {
	params := r.URL.Query()
	ident := params.Get("code")
	if ident == "" {
		ident = params.Get("q")
	}
	if ident == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return resolver.ReportQuery{}, false
	}

	rng, err := dateRange(params.Get("start"), params.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return resolver.ReportQuery{}, false
	}

	sel, err := sess.Select(r.Context(), ident, params.Get("pick"))
	if err != nil {
		writeFailure(w, err)
		return resolver.ReportQuery{}, false
	}
	q, err := resolver.NewReportQuery(sel, rng, cat)
	if err != nil {
		writeFailure(w, err)
		return resolver.ReportQuery{}, false
	}
	return q, true
}

// dateRange parses start/end, defaulting to the year ending today (KST).
func dateRange(start, end string) (models.DateRange, error) {
	to := utils.NowKST()
	if end != "" {
		t, err := utils.ParseDate(end)
		if err != nil {
			return models.DateRange{}, err
		}
		to = t
	}
	from := to.AddDate(-1, 0, 0)
	if start != "" {
		t, err := utils.ParseDate(start)
		if err != nil {
			return models.DateRange{}, err
		}
		from = t
	}
	return models.NewDateRange(from, to)
}

// respond writes a fetch result as JSON or, with ?format=, as a file.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, res *session.FetchResult, err error) {
	if err != nil {
		writeFailure(w, err)
		return
	}
	if format := r.URL.Query().Get("format"); format != "" {
		subject := "krfin"
		if res.Entity != nil {
			subject = res.Entity.Name
		}
		s.writeExport(w, format, subject, string(res.Table.Category), res.VariantUsed, res.Table)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

// writeExport streams tables as a download. Headers are gone once the body
// starts, so a failed write can only be logged.
func (s *Server) writeExport(w http.ResponseWriter, format, subject, kind, variant string, tables ...normalize.Table) {
	name := export.Filename(subject, kind, variant, format, time.Now())
	var err error
	switch strings.ToLower(format) {
	case "csv":
		if len(tables) != 1 {
			writeError(w, http.StatusBadRequest, "csv holds a single table; use format=xlsx")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", contentDisposition(name))
		err = export.WriteCSV(w, tables[0])
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", contentDisposition(name))
		err = export.WriteXLSX(w, tables...)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q (want csv or xlsx)", format))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("format", format).Str("file", name).Msg("export write failed")
	}
}

func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="export"; filename*=UTF-8''%s`, url.PathEscape(name))
}

// writeFailure maps domain errors to HTTP statuses. An ambiguous selection
// answers 300 with the candidate list.
func writeFailure(w http.ResponseWriter, err error) {
	var amb *resolver.AmbiguousError
	if errors.As(err, &amb) {
		writeJSON(w, http.StatusMultipleChoices, APIResponse{
			Success: false,
			Error:   err.Error(),
			Data: ResolveResponse{
				Query:      amb.Query,
				Decision:   resolver.KindAmbiguous,
				Candidates: amb.Candidates,
			},
		})
		return
	}
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var pe *normalize.ParseError
	switch {
	case errors.Is(err, resolver.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrNotACandidate),
		errors.Is(err, resolver.ErrNoSelection),
		errors.Is(err, models.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoCorpCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUpstreamUnavailable), fallback.IsTerminal(err), errors.As(err, &pe):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
