// Package fallback runs an ordered list of alternative upstream requests and
// keeps the first one that yields data. Statement variants (CFS then OFS),
// credential rotation and provider fallback all go through Run.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Status is the overall outcome of a chain.
type Status string

const (
	StatusSuccess  Status = "success"  // a variant returned non-empty data
	StatusEmpty    Status = "empty"    // every variant failed or returned nothing
	StatusRejected Status = "rejected" // a variant declared the request unrecoverable
)

// ErrEmptyResult is reported by Outcome.Result when every variant came back empty.
var ErrEmptyResult = errors.New("no variant returned data")

// Attempt is one variant of a request.
type Attempt[T any] struct {
	Variant string
	Run     func(ctx context.Context) (T, error)
}

// AttemptLog records what happened to a single variant.
type AttemptLog struct {
	Variant  string        `json:"variant"`
	Outcome  string        `json:"outcome"` // ok, empty, error, skipped
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Outcome is the result of Run.
type Outcome[T any] struct {
	Value       T            `json:"value"`
	VariantUsed string       `json:"variant_used,omitempty"`
	Status      Status       `json:"status"`
	Attempts    []AttemptLog `json:"attempts"`
	Err         error        `json:"-"` // only set when Status is StatusRejected
}

// Result returns the value, or ErrEmptyResult / the rejection cause.
func (o Outcome[T]) Result() (T, error) {
	switch o.Status {
	case StatusSuccess:
		return o.Value, nil
	case StatusRejected:
		return o.Value, o.Err
	}
	return o.Value, ErrEmptyResult
}

type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks err as unrecoverable: Run stops instead of trying the next variant.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was wrapped with Terminal.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}

// Option configures a Run call.
type Option func(*runOpts)

type runOpts struct {
	name   string
	logger zerolog.Logger
}

// WithName labels the chain in log lines.
func WithName(name string) Option {
	return func(o *runOpts) { o.name = name }
}

// WithLogger sets the logger used for per-attempt debug lines.
func WithLogger(l zerolog.Logger) Option {
	return func(o *runOpts) { o.logger = l }
}

// Run executes attempts strictly in order, one call each, and returns the
// first result for which empty reports false. Errors and empty results move
// on to the next variant. A nil empty treats every successful call as data.
func Run[T any](ctx context.Context, attempts []Attempt[T], empty func(T) bool, opts ...Option) Outcome[T] {
	o := runOpts{name: "fallback", logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	out := Outcome[T]{Status: StatusEmpty, Attempts: make([]AttemptLog, 0, len(attempts))}
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			out.Status = StatusRejected
			out.Err = err
			return out
		}

		started := time.Now()
		v, err := a.Run(ctx)
		entry := AttemptLog{Variant: a.Variant, Duration: time.Since(started)}

		switch {
		case err != nil:
			entry.Outcome = "error"
			entry.Error = err.Error()
			out.Attempts = append(out.Attempts, entry)
			o.logger.Debug().Str("chain", o.name).Str("variant", a.Variant).Err(err).Msg("variant failed")
			if IsTerminal(err) || ctx.Err() != nil {
				out.Status = StatusRejected
				out.Err = err
				if ctx.Err() != nil && !IsTerminal(err) {
					out.Err = ctx.Err()
				}
				return out
			}
			continue
		case empty != nil && empty(v):
			entry.Outcome = "empty"
			out.Attempts = append(out.Attempts, entry)
			o.logger.Debug().Str("chain", o.name).Str("variant", a.Variant).Msg("variant returned no data")
			continue
		}

		entry.Outcome = "ok"
		out.Attempts = append(out.Attempts, entry)
		out.Value = v
		out.VariantUsed = a.Variant
		out.Status = StatusSuccess
		o.logger.Debug().Str("chain", o.name).Str("variant", a.Variant).Msg("variant succeeded")
		return out
	}

	o.logger.Info().Str("chain", o.name).Int("attempts", len(out.Attempts)).Msg("all variants exhausted")
	return out
}

// Variants builds one attempt per variant name, each calling fn with that name.
func Variants[T any](names []string, fn func(ctx context.Context, variant string) (T, error)) []Attempt[T] {
	attempts := make([]Attempt[T], 0, len(names))
	for _, name := range names {
		attempts = append(attempts, Attempt[T]{
			Variant: name,
			Run: func(ctx context.Context) (T, error) {
				return fn(ctx, name)
			},
		})
	}
	return attempts
}

// EmptySlice is an empty predicate for slice results.
func EmptySlice[E any](v []E) bool {
	return len(v) == 0
}
