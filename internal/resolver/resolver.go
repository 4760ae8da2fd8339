// Package resolver turns a free-text identifier into directory candidates
// and gates downstream requests on an unambiguous selection.
package resolver

import (
	"regexp"
	"strings"

	"github.com/seenimoa/krfin/internal/directory"
	"github.com/seenimoa/krfin/pkg/models"
)

var (
	// KRXCodePattern matches 6-digit KRX short codes.
	KRXCodePattern = regexp.MustCompile(`^\d{6}$`)
	// USTickerPattern matches upper-case US tickers such as "AAPL" or "BRK.B".
	USTickerPattern = regexp.MustCompile(`^[A-Z]{1,5}([.-][A-Z]{1,2})?$`)
)

// Options tunes matching.
type Options struct {
	// CodePattern decides whether a query is code-shaped. Nil means KRXCodePattern.
	CodePattern *regexp.Regexp
	// Bidirectional also matches entries whose name is contained in the query.
	Bidirectional bool
	// CodeMissFallback runs a name search when a code-shaped query hits no code.
	CodeMissFallback bool
	// PreferExactName returns only the entry whose name equals the query, if exactly one does.
	PreferExactName bool
}

// DefaultOptions returns the standard KRX matching rules.
func DefaultOptions() Options {
	return Options{CodePattern: KRXCodePattern, Bidirectional: true}
}

// MatchSet is the ordered list of entries a query resolved to.
type MatchSet struct {
	Query   string                  `json:"query"`
	ByCode  bool                    `json:"by_code"`
	Entries []models.DirectoryEntry `json:"entries"`
}

// Len returns the number of candidates.
func (m MatchSet) Len() int { return len(m.Entries) }

// Resolve matches query against dir. Surrounding whitespace is ignored and an
// empty query matches nothing. A code-shaped query is an exact code lookup.
// Any other query is a case-sensitive substring search over names, in
// directory order.
func Resolve(query string, dir *directory.Directory, opts Options) MatchSet {
	q := strings.TrimSpace(query)
	ms := MatchSet{Query: q}
	if q == "" {
		return ms
	}

	pattern := opts.CodePattern
	if pattern == nil {
		pattern = KRXCodePattern
	}
	if pattern.MatchString(q) {
		ms.ByCode = true
		if e, ok := dir.ByCode(q); ok {
			ms.Entries = []models.DirectoryEntry{e}
			return ms
		}
		if !opts.CodeMissFallback {
			return ms
		}
		ms.ByCode = false
	}

	dir.Range(func(e models.DirectoryEntry) bool {
		if e.Name == "" {
			return true
		}
		if strings.Contains(e.Name, q) || (opts.Bidirectional && strings.Contains(q, e.Name)) {
			ms.Entries = append(ms.Entries, e)
		}
		return true
	})

	if opts.PreferExactName {
		var exact []models.DirectoryEntry
		for _, e := range ms.Entries {
			if e.Name == q {
				exact = append(exact, e)
			}
		}
		if len(exact) == 1 {
			ms.Entries = exact
		}
	}
	return ms
}
