package i18n

import (
	"sort"
	"sync"
)

// DirtySet tracks fields whose authoring text changed after translations
// were produced, so stale catalog entries can be flagged for review.
type DirtySet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewDirtySet returns an empty set.
func NewDirtySet() *DirtySet {
	return &DirtySet{ids: make(map[string]struct{})}
}

// Mark flags a field as needing retranslation.
func (d *DirtySet) Mark(fieldID string) {
	if fieldID == "" {
		return
	}
	d.mu.Lock()
	d.ids[fieldID] = struct{}{}
	d.mu.Unlock()
}

// Clear unflags a field, typically after its translations were refreshed.
func (d *DirtySet) Clear(fieldID string) {
	d.mu.Lock()
	delete(d.ids, fieldID)
	d.mu.Unlock()
}

// Dirty reports whether a field is flagged.
func (d *DirtySet) Dirty(fieldID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.ids[fieldID]
	return ok
}

// IDs returns the flagged field ids in sorted order.
func (d *DirtySet) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.ids))
	for id := range d.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
