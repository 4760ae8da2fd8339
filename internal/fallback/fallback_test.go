package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder builds attempts that log every call so tests can assert on call order.
type recorder struct {
	calls []string
}

func (r *recorder) attempt(name string, rows []string, err error) Attempt[[]string] {
	return Attempt[[]string]{
		Variant: name,
		Run: func(ctx context.Context) ([]string, error) {
			r.calls = append(r.calls, name)
			return rows, err
		},
	}
}

func TestRunStopsAtFirstNonEmpty(t *testing.T) {
	rec := &recorder{}
	attempts := []Attempt[[]string]{
		rec.attempt("A", nil, errors.New("connection refused")),
		rec.attempt("B", []string{}, nil),
		rec.attempt("C", []string{"row"}, nil),
		rec.attempt("D", []string{"never"}, nil),
	}

	out := Run(context.Background(), attempts, EmptySlice[string])

	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "C", out.VariantUsed)
	assert.Equal(t, []string{"row"}, out.Value)
	assert.Equal(t, []string{"A", "B", "C"}, rec.calls, "no request may be issued after the winning variant")
	require.Len(t, out.Attempts, 3)
	assert.Equal(t, "error", out.Attempts[0].Outcome)
	assert.Equal(t, "empty", out.Attempts[1].Outcome)
	assert.Equal(t, "ok", out.Attempts[2].Outcome)
}

func TestRunFirstVariantWins(t *testing.T) {
	rec := &recorder{}
	out := Run(context.Background(), []Attempt[[]string]{
		rec.attempt("CFS", []string{"x"}, nil),
		rec.attempt("OFS", []string{"y"}, nil),
	}, EmptySlice[string])

	assert.Equal(t, "CFS", out.VariantUsed)
	assert.Equal(t, []string{"CFS"}, rec.calls)
}

func TestRunExhaustedIsEmptyNotError(t *testing.T) {
	rec := &recorder{}
	out := Run(context.Background(), []Attempt[[]string]{
		rec.attempt("CFS", nil, errors.New("HTTP 500")),
		rec.attempt("OFS", []string{}, nil),
	}, EmptySlice[string])

	assert.Equal(t, StatusEmpty, out.Status)
	assert.Empty(t, out.VariantUsed)
	assert.Nil(t, out.Err)
	assert.Equal(t, []string{"CFS", "OFS"}, rec.calls, "each variant is tried exactly once")

	_, err := out.Result()
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestRunNoAttempts(t *testing.T) {
	out := Run[[]string](context.Background(), nil, EmptySlice[string])
	assert.Equal(t, StatusEmpty, out.Status)
	assert.Empty(t, out.Attempts)
}

func TestRunTerminalStopsChain(t *testing.T) {
	rec := &recorder{}
	cause := errors.New("invalid corp_code")
	out := Run(context.Background(), []Attempt[[]string]{
		rec.attempt("key#1", nil, Terminal(cause)),
		rec.attempt("key#2", []string{"x"}, nil),
	}, EmptySlice[string])

	assert.Equal(t, StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, cause)
	assert.Equal(t, []string{"key#1"}, rec.calls)
	assert.True(t, IsTerminal(out.Err))
	assert.Nil(t, Terminal(nil))
}

func TestRunCancelledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Run(ctx, []Attempt[[]string]{rec.attempt("A", []string{"x"}, nil)}, EmptySlice[string])
	assert.Equal(t, StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Empty(t, rec.calls)
}

func TestRunNilEmptyPredicate(t *testing.T) {
	out := Run(context.Background(), []Attempt[int]{
		{Variant: "zero", Run: func(ctx context.Context) (int, error) { return 0, nil }},
	}, nil)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "zero", out.VariantUsed)
}

func TestVariants(t *testing.T) {
	var seen []string
	attempts := Variants([]string{"CFS", "OFS"}, func(ctx context.Context, v string) ([]string, error) {
		seen = append(seen, v)
		if v == "CFS" {
			return nil, nil
		}
		return []string{v}, nil
	})

	out := Run(context.Background(), attempts, EmptySlice[string])
	v, err := out.Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"OFS"}, v)
	assert.Equal(t, "OFS", out.VariantUsed)
	assert.Equal(t, []string{"CFS", "OFS"}, seen)
}
