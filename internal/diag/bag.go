package diag

import "fortio.org/safecast"

// Bag accumulates diagnostics up to a fixed cap.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag creates a bag holding at most max diagnostics.
func NewBag(max int) *Bag {
	capacity, err := safecast.Conv[uint16](max)
	if err != nil || capacity == 0 {
		capacity = 100
	}
	return &Bag{items: make([]Diagnostic, 0, 8), max: capacity}
}

// Report implements Reporter. Diagnostics past the cap are dropped.
func (b *Bag) Report(d Diagnostic) {
	if len(b.items) >= int(b.max) {
		return
	}
	b.items = append(b.items, d)
}

// Items returns the accumulated diagnostics in report order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any diagnostic is SevError.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Count returns the number of accumulated diagnostics.
func (b *Bag) Count() int { return len(b.items) }
