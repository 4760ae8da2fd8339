// Package directory holds the listed-entity directory that entity resolution
// runs against, and the per-session cache that loads it once.
package directory

import (
	"time"

	"github.com/seenimoa/krfin/pkg/models"
)

// Directory is an immutable, ordered set of listed entities with unique codes.
type Directory struct {
	entries  []models.DirectoryEntry
	byCode   map[string]int
	loadedAt time.Time
}

// New builds a directory from entries, keeping the first entry for a
// duplicated code. The input slice is copied.
func New(entries []models.DirectoryEntry) *Directory {
	d := &Directory{
		entries:  make([]models.DirectoryEntry, 0, len(entries)),
		byCode:   make(map[string]int, len(entries)),
		loadedAt: time.Now(),
	}
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		if _, dup := d.byCode[e.Code]; dup {
			continue
		}
		d.byCode[e.Code] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d
}

// Empty returns a directory with no entries.
func Empty() *Directory {
	return New(nil)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the entries in directory order.
func (d *Directory) Entries() []models.DirectoryEntry {
	if d == nil {
		return nil
	}
	out := make([]models.DirectoryEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Range calls fn for each entry in directory order until fn returns false.
func (d *Directory) Range(fn func(models.DirectoryEntry) bool) {
	if d == nil {
		return
	}
	for _, e := range d.entries {
		if !fn(e) {
			return
		}
	}
}

// ByCode looks up an entry by its exact code.
func (d *Directory) ByCode(code string) (models.DirectoryEntry, bool) {
	if d == nil {
		return models.DirectoryEntry{}, false
	}
	i, ok := d.byCode[code]
	if !ok {
		return models.DirectoryEntry{}, false
	}
	return d.entries[i], true
}

// Filter returns a new directory with the entries admitted by market.
func (d *Directory) Filter(market models.Market) *Directory {
	var out []models.DirectoryEntry
	d.Range(func(e models.DirectoryEntry) bool {
		if market.Includes(e.Market) {
			out = append(out, e)
		}
		return true
	})
	return New(out)
}

// LoadedAt returns when the directory was built.
func (d *Directory) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}
