// Package session ties one user's directory cache to the resolver, the
// disambiguation gate and the report fetchers. A Session is the unit whose
// lifetime bounds the cached directory.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/krfin/internal/config"
	"github.com/seenimoa/krfin/internal/directory"
	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/infra"
	"github.com/seenimoa/krfin/internal/normalize"
	"github.com/seenimoa/krfin/internal/provider"
	"github.com/seenimoa/krfin/internal/resolver"
	"github.com/seenimoa/krfin/pkg/models"
)

// ErrNoCorpCode is returned for DART requests on an entity that was loaded
// without a DART corp code (e.g. from the KIND listing).
var ErrNoCorpCode = errors.New("entity has no DART corp code")

// Options configures new sessions.
type Options struct {
	Markets   []models.Market // Korean directory markets, merged in order
	Resolver  resolver.Options
	Divisions []models.StatementDivision // statement fallback order
	Logger    zerolog.Logger
}

// DefaultOptions loads the whole KRX directory and tries CFS before OFS.
func DefaultOptions() Options {
	return Options{
		Markets:   []models.Market{models.MarketKRX},
		Resolver:  resolver.DefaultOptions(),
		Divisions: []models.StatementDivision{models.DivisionConsolidated, models.DivisionSeparate},
		Logger:    infra.NopLogger(),
	}
}

// OptionsFromConfig builds session options from the resolver, directory and
// statements sections.
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) (Options, error) {
	markets, err := cfg.Markets()
	if err != nil {
		return Options{}, err
	}
	width := cfg.Resolver.CodeWidth
	if width <= 0 {
		width = 6
	}
	return Options{
		Markets: markets,
		Resolver: resolver.Options{
			CodePattern:      regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, width)),
			Bidirectional:    cfg.Resolver.Bidirectional,
			CodeMissFallback: cfg.Resolver.CodeMissFallback,
			PreferExactName:  cfg.Resolver.PreferExactName,
		},
		Divisions: cfg.Divisions(),
		Logger:    logger,
	}, nil
}

// FetchResult is a normalized table plus how it was obtained.
type FetchResult struct {
	Entity      *models.DirectoryEntry `json:"entity,omitempty"`
	Table       normalize.Table        `json:"table"`
	Provider    string                 `json:"provider,omitempty"`
	VariantUsed string                 `json:"variant_used,omitempty"`
	Status      fallback.Status        `json:"status"`
	Attempts    []fallback.AttemptLog  `json:"attempts,omitempty"`
}

// Session holds the per-user directory caches. Korean entities resolve
// against the KRX/DART directory, US tickers against the SEC directory.
type Session struct {
	ID        string
	CreatedAt time.Time

	reg    *provider.Registry
	kr     *directory.Cache
	us     *directory.Cache
	opts   Options
	logger zerolog.Logger

	lastUsed atomic.Int64 // unix nanos
}

// New creates a session over reg. Nothing is loaded until first use.
func New(id string, reg *provider.Registry, opts Options) *Session {
	if len(opts.Divisions) == 0 {
		opts.Divisions = DefaultOptions().Divisions
	}
	logger := opts.Logger.With().Str("session", id).Logger()
	loader := directory.NewRegistryLoader(reg)

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		reg:       reg,
		kr:        directory.NewCache(loader, opts.Markets, directory.WithLogger(logger)),
		us:        directory.NewCache(loader, []models.Market{models.MarketUS}, directory.WithLogger(logger)),
		opts:      opts,
		logger:    logger,
	}
	s.touch(s.CreatedAt)
	return s
}

func (s *Session) touch(t time.Time) { s.lastUsed.Store(t.UnixNano()) }

// LastUsed returns the time of the most recent operation.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// Directory returns the Korean directory, loading it on first use.
func (s *Session) Directory(ctx context.Context) *directory.Directory {
	s.touch(time.Now())
	return s.kr.Get(ctx)
}

// USDirectory returns the US directory, loading it on first use.
func (s *Session) USDirectory(ctx context.Context) *directory.Directory {
	s.touch(time.Now())
	return s.us.Get(ctx)
}

// Resolve matches query against the Korean directory.
func (s *Session) Resolve(ctx context.Context, query string) resolver.MatchSet {
	return resolver.Resolve(query, s.Directory(ctx), s.opts.Resolver)
}

// ResolveIn is Resolve restricted to one market segment. MarketAll and
// MarketKRX search the whole Korean directory; a segment filter drops
// entries whose segment the directory source did not report.
func (s *Session) ResolveIn(ctx context.Context, query string, market models.Market) resolver.MatchSet {
	dir := s.Directory(ctx)
	if market != models.MarketAll && market != models.MarketKRX {
		dir = dir.Filter(market)
	}
	return resolver.Resolve(query, dir, s.opts.Resolver)
}

// ResolveUS matches query against the US directory. Ticker-shaped queries
// are exact lookups.
func (s *Session) ResolveUS(ctx context.Context, query string) resolver.MatchSet {
	opts := s.opts.Resolver
	opts.CodePattern = resolver.USTickerPattern
	return resolver.Resolve(query, s.USDirectory(ctx), opts)
}

// Select resolves query against the Korean directory and applies the gate.
// pick is an explicit code chosen from a previous ambiguous result; empty
// means no choice has been made yet.
func (s *Session) Select(ctx context.Context, query, pick string) (resolver.Selection, error) {
	return s.gate(s.Resolve(ctx, query), pick, s.kr)
}

// SelectUS is Select over the US directory.
func (s *Session) SelectUS(ctx context.Context, query, pick string) (resolver.Selection, error) {
	return s.gate(s.ResolveUS(ctx, query), pick, s.us)
}

func (s *Session) gate(ms resolver.MatchSet, pick string, cache *directory.Cache) (resolver.Selection, error) {
	var (
		sel resolver.Selection
		err error
	)
	if pick != "" {
		sel, err = resolver.Choose(ms, pick)
	} else {
		sel, err = resolver.Select(ms)
	}

	var nm *resolver.NoMatchError
	if errors.As(err, &nm) && cache.Err() != nil {
		nm.DirectoryUnavailable = true
	}
	return sel, err
}

// DirectoryState describes a session directory without loading it.
type DirectoryState struct {
	Loaded   bool      `json:"loaded"`
	Entries  int       `json:"entries"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// Info summarizes a session.
type Info struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	LastUsed    time.Time      `json:"last_used"`
	Directory   DirectoryState `json:"directory"`
	USDirectory DirectoryState `json:"us_directory"`
}

// Info reports the session's directories as they are; nothing is loaded.
func (s *Session) Info() Info {
	return Info{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		LastUsed:    s.LastUsed(),
		Directory:   stateOf(s.kr),
		USDirectory: stateOf(s.us),
	}
}

func stateOf(c *directory.Cache) DirectoryState {
	var st DirectoryState
	if d := c.Peek(); d != nil {
		st.Loaded = true
		st.Entries = d.Len()
		st.LoadedAt = d.LoadedAt()
	}
	if err := c.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// Close drops the cached directories.
func (s *Session) Close() {
	s.kr.Reset()
	s.us.Reset()
	s.logger.Debug().Msg("session closed")
}

// fetch runs one model through the registry's provider fallback. An answer
// with no records is reported as StatusEmpty with a nil result and no error.
func (s *Session) fetch(ctx context.Context, model provider.ModelType, params provider.QueryParams) (*provider.FetchResult, fallback.Status, error) {
	s.touch(time.Now())
	res, err := s.reg.FetchWithFallback(ctx, model, params)
	switch {
	case errors.Is(err, fallback.ErrEmptyResult):
		return nil, fallback.StatusEmpty, nil
	case err != nil:
		return nil, "", err
	}
	return res, fallback.StatusSuccess, nil
}

func entityPtr(q resolver.ReportQuery) *models.DirectoryEntry {
	e := q.Entity()
	return &e
}

// data asserts the payload type of a fetch result.
func data[T any](res *provider.FetchResult) (T, error) {
	var zero T
	if res == nil {
		return zero, nil
	}
	v, ok := res.Data.(T)
	if !ok {
		return zero, fmt.Errorf("provider %s returned %T for %s", res.Provider, res.Data, res.Model)
	}
	return v, nil
}
