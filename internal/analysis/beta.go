// Package analysis computes market statistics over daily price series.
// All functions operate on []models.OHLCV candle slices.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seenimoa/krfin/pkg/models"
)

var (
	// ErrInsufficientData is returned when fewer than two aligned returns exist.
	ErrInsufficientData = errors.New("not enough overlapping trading days")
	// ErrZeroVariance is returned when the index did not move over the window.
	ErrZeroVariance = errors.New("index returns have zero variance")
)

// DailyReturn is the close-to-close percentage change ending on Date.
type DailyReturn struct {
	Date   string // YYYY-MM-DD
	Return float64
}

// Returns computes close-to-close returns over the series in date order.
// Each return belongs to the later day; bars with a non-positive prior close
// are skipped.
func Returns(candles []models.OHLCV) []DailyReturn {
	sorted := make([]models.OHLCV, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	out := make([]DailyReturn, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close
		if prev <= 0 {
			continue
		}
		out = append(out, DailyReturn{
			Date:   dayKey(sorted[i].Timestamp),
			Return: sorted[i].Close/prev - 1,
		})
	}
	return out
}

// Beta regresses the stock's daily returns on the index's. Returns are
// computed per series first, then joined on calendar date; only days present
// in both count. Beta = cov(stock, index) / var(index), sample estimators.
func Beta(stock, index []models.OHLCV) (models.BetaResult, error) {
	sr := Returns(stock)
	ir := Returns(index)

	byDate := make(map[string]float64, len(ir))
	for _, r := range ir {
		byDate[r.Date] = r.Return
	}

	var xs, ys []float64 // index, stock
	for _, r := range sr {
		if m, ok := byDate[r.Date]; ok {
			xs = append(xs, m)
			ys = append(ys, r.Return)
		}
	}

	n := len(xs)
	if n < 2 {
		return models.BetaResult{Observations: n}, fmt.Errorf("%w: %d aligned returns", ErrInsufficientData, n)
	}

	mx, my := avg(xs), avg(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	cov /= float64(n - 1)
	vx /= float64(n - 1)
	vy /= float64(n - 1)

	if vx == 0 {
		return models.BetaResult{Observations: n}, ErrZeroVariance
	}

	res := models.BetaResult{
		Observations: n,
		Beta:         cov / vx,
	}
	if vy > 0 {
		res.Correlation = cov / math.Sqrt(vx*vy)
	}
	if len(stock) > 0 {
		first, last := span(stock)
		res.Start, res.End = first, last
	}
	return res, nil
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func span(candles []models.OHLCV) (time.Time, time.Time) {
	first, last := candles[0].Timestamp, candles[0].Timestamp
	for _, c := range candles[1:] {
		if c.Timestamp.Before(first) {
			first = c.Timestamp
		}
		if c.Timestamp.After(last) {
			last = c.Timestamp
		}
	}
	return first, last
}

// dayKey buckets a timestamp by its calendar date in its own location.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
