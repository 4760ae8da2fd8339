package resolver

import (
	"errors"
	"fmt"

	"github.com/seenimoa/krfin/pkg/models"
)

var (
	// ErrNoMatch means the query matched no directory entry.
	ErrNoMatch = errors.New("no matching entity")
	// ErrAmbiguous means the query matched several entries and needs an explicit choice.
	ErrAmbiguous = errors.New("ambiguous entity")
	// ErrNotACandidate means an explicit choice is not among the candidates.
	ErrNotACandidate = errors.New("choice is not one of the candidates")
	// ErrNoSelection means a report query was built without a resolved entity.
	ErrNoSelection = errors.New("no entity selected")
)

// NoMatchError carries the query that matched nothing.
type NoMatchError struct {
	Query string
	// DirectoryUnavailable is set when the directory failed to load, so
	// the miss may be an upstream problem rather than a bad query.
	DirectoryUnavailable bool
}

func (e *NoMatchError) Error() string {
	if e.DirectoryUnavailable {
		return fmt.Sprintf("no entity matches %q (directory unavailable)", e.Query)
	}
	return fmt.Sprintf("no entity matches %q", e.Query)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// AmbiguousError lists the candidates of an ambiguous query.
type AmbiguousError struct {
	Query      string
	Candidates []models.DirectoryEntry
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q matches %d entities; choose one by code", e.Query, len(e.Candidates))
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// Selection is a single resolved entity. It can only be produced by Decide
// or Choose, so holding a valid Selection proves disambiguation happened.
type Selection struct {
	entry models.DirectoryEntry
	valid bool
}

// Entry returns the selected entity.
func (s Selection) Entry() models.DirectoryEntry { return s.entry }

// Valid reports whether the selection came from the gate.
func (s Selection) Valid() bool { return s.valid }

// DecisionKind is the gate outcome for a non-empty match set.
type DecisionKind string

const (
	KindSelected  DecisionKind = "selected"
	KindAmbiguous DecisionKind = "ambiguous"
)

// Decision is the result of Decide.
type Decision struct {
	Kind       DecisionKind
	Selection  Selection               // set when Kind is KindSelected
	Candidates []models.DirectoryEntry // set when Kind is KindAmbiguous
}

// Decide applies the disambiguation rules: no candidates is an error, one
// candidate is selected, several require an explicit Choose. There is no
// default pick.
func Decide(ms MatchSet) (Decision, error) {
	switch ms.Len() {
	case 0:
		return Decision{}, &NoMatchError{Query: ms.Query}
	case 1:
		return Decision{Kind: KindSelected, Selection: Selection{entry: ms.Entries[0], valid: true}}, nil
	}
	candidates := make([]models.DirectoryEntry, ms.Len())
	copy(candidates, ms.Entries)
	return Decision{Kind: KindAmbiguous, Candidates: candidates}, nil
}

// Choose selects the candidate with the given code.
func Choose(ms MatchSet, code string) (Selection, error) {
	for _, e := range ms.Entries {
		if e.Code == code {
			return Selection{entry: e, valid: true}, nil
		}
	}
	if ms.Len() == 0 {
		return Selection{}, &NoMatchError{Query: ms.Query}
	}
	return Selection{}, fmt.Errorf("%w: %q", ErrNotACandidate, code)
}

// Select is Decide for callers that cannot prompt: a single candidate is
// returned, several yield an *AmbiguousError.
func Select(ms MatchSet) (Selection, error) {
	d, err := Decide(ms)
	if err != nil {
		return Selection{}, err
	}
	if d.Kind == KindAmbiguous {
		return Selection{}, &AmbiguousError{Query: ms.Query, Candidates: d.Candidates}
	}
	return d.Selection, nil
}

// ReportQuery is a downstream request for one resolved entity.
type ReportQuery struct {
	entity   models.DirectoryEntry
	rng      models.DateRange
	category models.ReportCategory
}

// NewReportQuery builds a query from a gate selection and validates the range.
func NewReportQuery(sel Selection, rng models.DateRange, category models.ReportCategory) (ReportQuery, error) {
	if !sel.Valid() {
		return ReportQuery{}, ErrNoSelection
	}
	if rng.End.Before(rng.Start) {
		return ReportQuery{}, models.ErrInvalidRange
	}
	return ReportQuery{entity: sel.entry, rng: rng, category: category}, nil
}

func (q ReportQuery) Entity() models.DirectoryEntry   { return q.entity }
func (q ReportQuery) Range() models.DateRange         { return q.rng }
func (q ReportQuery) Category() models.ReportCategory { return q.category }
