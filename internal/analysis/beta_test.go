package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krfin/pkg/models"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// series builds daily candles from closes, one calendar day apart.
func series(closes ...float64) []models.OHLCV {
	out := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = models.OHLCV{Timestamp: day0.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestReturns(t *testing.T) {
	r := Returns(series(100, 110, 99))
	require.Len(t, r, 2)
	assert.Equal(t, "2023-01-03", r[0].Date)
	assert.InDelta(t, 0.10, r[0].Return, 1e-12)
	assert.InDelta(t, -0.10, r[1].Return, 1e-12)

	assert.Empty(t, Returns(series(100)))
}

func TestReturnsSortsInput(t *testing.T) {
	s := series(100, 110)
	s[0], s[1] = s[1], s[0]
	r := Returns(s)
	require.Len(t, r, 1)
	assert.InDelta(t, 0.10, r[0].Return, 1e-12)
}

func TestBetaOfScaledSeries(t *testing.T) {
	index := series(100, 102, 101, 105, 104, 108)
	// Stock returns are exactly twice the index returns.
	closes := []float64{50}
	for _, r := range Returns(index) {
		closes = append(closes, closes[len(closes)-1]*(1+2*r.Return))
	}
	stock := series(closes...)

	res, err := Beta(stock, index)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Observations)
	assert.InDelta(t, 2.0, res.Beta, 1e-9)
	assert.InDelta(t, 1.0, res.Correlation, 1e-9)
	assert.Equal(t, day0, res.Start)
	assert.Equal(t, day0.AddDate(0, 0, 5), res.End)
}

func TestBetaAlignsByDate(t *testing.T) {
	index := series(100, 101, 103, 102, 104)
	stock := series(10, 10.1, 10.3, 10.2, 10.4)
	// Drop the index bar on day 2: the stock return that day has no partner,
	// and the index return on day 3 spans two days.
	index = append(index[:2], index[3:]...)

	res, err := Beta(stock, index)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Observations)
	assert.False(t, math.IsNaN(res.Beta))
}

func TestBetaInsufficientData(t *testing.T) {
	_, err := Beta(series(100, 101), series(100, 101))
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = Beta(nil, nil)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestBetaZeroVariance(t *testing.T) {
	_, err := Beta(series(100, 101, 102, 101), series(50, 50, 50, 50))
	assert.ErrorIs(t, err, ErrZeroVariance)
}
