package resolver

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krfin/internal/directory"
	"github.com/seenimoa/krfin/pkg/models"
)

func testDirectory() *directory.Directory {
	return directory.New([]models.DirectoryEntry{
		{Code: "005930", Name: "Samsung Electronics", Market: models.MarketKOSPI},
		{Code: "066570", Name: "LG Electronics", Market: models.MarketKOSPI},
		{Code: "005935", Name: "삼성전자우", Market: models.MarketKOSPI},
		{Code: "035720", Name: "카카오", Market: models.MarketKOSDAQ},
		{Code: "323410", Name: "카카오뱅크", Market: models.MarketKOSPI},
		{Code: "123456", Name: "005930 Holdings", Market: models.MarketKONEX},
	})
}

func codes(ms MatchSet) []string {
	out := make([]string, 0, ms.Len())
	for _, e := range ms.Entries {
		out = append(out, e.Code)
	}
	return out
}

func TestResolveExactCode(t *testing.T) {
	ms := Resolve("005930", testDirectory(), DefaultOptions())
	assert.True(t, ms.ByCode)
	assert.Equal(t, []string{"005930"}, codes(ms), "a code query never substring-matches other names")
}

func TestResolveCodeMissIsEmpty(t *testing.T) {
	ms := Resolve("999999", testDirectory(), DefaultOptions())
	assert.True(t, ms.ByCode)
	assert.Empty(t, ms.Entries)
}

func TestResolveCodeMissFallback(t *testing.T) {
	dir := directory.New([]models.DirectoryEntry{
		{Code: "000001", Name: "Fund 777777 Series", Market: models.MarketKOSPI},
	})
	opts := DefaultOptions()
	opts.CodeMissFallback = true

	ms := Resolve("777777", dir, opts)
	assert.False(t, ms.ByCode)
	assert.Equal(t, []string{"000001"}, codes(ms))

	assert.Empty(t, Resolve("777777", dir, DefaultOptions()).Entries)
}

func TestResolveStripsWhitespace(t *testing.T) {
	ms := Resolve("  005930\t", testDirectory(), DefaultOptions())
	assert.Equal(t, "005930", ms.Query)
	assert.Equal(t, []string{"005930"}, codes(ms))
}

func TestResolveEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\n"} {
		assert.Empty(t, Resolve(q, testDirectory(), DefaultOptions()).Entries, "query %q", q)
	}
}

func TestResolveSubstringKeepsDirectoryOrder(t *testing.T) {
	ms := Resolve("Electronics", testDirectory(), DefaultOptions())
	assert.False(t, ms.ByCode)
	assert.Equal(t, []string{"005930", "066570"}, codes(ms))
}

func TestResolveCaseSensitive(t *testing.T) {
	assert.Empty(t, Resolve("electronics", testDirectory(), DefaultOptions()).Entries)
}

func TestResolveBidirectional(t *testing.T) {
	dir := testDirectory()

	ms := Resolve("카카오뱅크 주식", dir, DefaultOptions())
	assert.Equal(t, []string{"035720", "323410"}, codes(ms), "names contained in the query also match")

	oneWay := DefaultOptions()
	oneWay.Bidirectional = false
	assert.Empty(t, Resolve("카카오뱅크 주식", dir, oneWay).Entries)
	assert.Equal(t, []string{"035720", "323410"}, codes(Resolve("카카오", dir, oneWay)))
}

func TestResolveMatchesSatisfyContainment(t *testing.T) {
	dir := testDirectory()
	for _, q := range []string{"카카오", "Electronics", "LG", "Samsung Electronics Co", "우", "005930 H"} {
		ms := Resolve(q, dir, DefaultOptions())
		for _, e := range ms.Entries {
			assert.True(t, strings.Contains(e.Name, q) || strings.Contains(q, e.Name), "%q vs %q", q, e.Name)
			_, ok := dir.ByCode(e.Code)
			assert.True(t, ok, "entry %s must come from the directory", e.Code)
		}
	}
}

func TestResolvePreferExactName(t *testing.T) {
	opts := DefaultOptions()
	opts.PreferExactName = true
	assert.Equal(t, []string{"035720"}, codes(Resolve("카카오", testDirectory(), opts)))
}

func TestResolveUSTickers(t *testing.T) {
	dir := directory.New([]models.DirectoryEntry{
		{Code: "AAPL", Name: "Apple Inc.", Market: models.MarketUS},
		{Code: "APLE", Name: "Apple Hospitality REIT, Inc.", Market: models.MarketUS},
	})
	opts := Options{CodePattern: USTickerPattern, Bidirectional: true}

	assert.Equal(t, []string{"AAPL"}, codes(Resolve("AAPL", dir, opts)))
	assert.Equal(t, []string{"AAPL", "APLE"}, codes(Resolve("Apple", dir, opts)))
}

// ── Gate ──

func TestDecideNoMatch(t *testing.T) {
	_, err := Decide(MatchSet{Query: "없는회사"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	var nm *NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "없는회사", nm.Query)
}

func TestDecideSingleAutoSelects(t *testing.T) {
	ms := Resolve("005930", testDirectory(), DefaultOptions())
	d, err := Decide(ms)
	require.NoError(t, err)
	assert.Equal(t, KindSelected, d.Kind)
	assert.True(t, d.Selection.Valid())
	assert.Equal(t, "005930", d.Selection.Entry().Code)
}

func TestDecideAmbiguousNeverPicks(t *testing.T) {
	ms := Resolve("Electronics", testDirectory(), DefaultOptions())
	require.Equal(t, 2, ms.Len())

	d, err := Decide(ms)
	require.NoError(t, err)
	assert.Equal(t, KindAmbiguous, d.Kind)
	assert.False(t, d.Selection.Valid(), "no selection is made for an ambiguous set")
	assert.Len(t, d.Candidates, 2)

	_, err = NewReportQuery(d.Selection, models.DateRange{}, models.CategoryStatement)
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = Select(ms)
	assert.ErrorIs(t, err, ErrAmbiguous)
	var ae *AmbiguousError
	require.True(t, errors.As(err, &ae))
	assert.Len(t, ae.Candidates, 2)
}

func TestChoose(t *testing.T) {
	ms := Resolve("Electronics", testDirectory(), DefaultOptions())

	sel, err := Choose(ms, "066570")
	require.NoError(t, err)
	assert.Equal(t, "LG Electronics", sel.Entry().Name)

	_, err = Choose(ms, "035720")
	assert.ErrorIs(t, err, ErrNotACandidate, "a code outside the candidate list is rejected")

	_, err = Choose(MatchSet{Query: "x"}, "005930")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNewReportQuery(t *testing.T) {
	sel, err := Select(Resolve("005930", testDirectory(), DefaultOptions()))
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	q, err := NewReportQuery(sel, models.DateRange{Start: start, End: end}, models.CategoryDisclosures)
	require.NoError(t, err)
	assert.Equal(t, "005930", q.Entity().Code)
	assert.Equal(t, models.CategoryDisclosures, q.Category())
	assert.Equal(t, "20241231", q.Range().EndYMD())

	_, err = NewReportQuery(sel, models.DateRange{Start: end, End: start}, models.CategoryDisclosures)
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, err = NewReportQuery(Selection{}, models.DateRange{Start: start, End: end}, models.CategoryDisclosures)
	assert.ErrorIs(t, err, ErrNoSelection)
}
