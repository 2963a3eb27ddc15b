package diag

import (
	"cmp"
	"math"
	"slices"
)

// Bag collects diagnostics up to a limit. Diagnostics past the limit are
// counted, not stored.
type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped int
}

// NewBag returns a bag holding at most limit diagnostics; limit <= 0 means
// the largest supported limit.
func NewBag(limit int) *Bag {
	if limit <= 0 || limit > math.MaxUint16 {
		limit = math.MaxUint16
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(limit, 64)),
		max:   uint16(limit),
	}
}

// Add stores d and reports false once the limit is reached.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Dropped is the number of diagnostics refused by Add.
func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) count(atLeast Severity) int {
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= atLeast {
			n++
		}
	}
	return n
}

func (b *Bag) HasErrors() bool   { return b.count(SevError) > 0 }
func (b *Bag) HasWarnings() bool { return b.count(SevWarning) > 0 }

func (b *Bag) Len() int { return len(b.items) }

// First возвращает первую ошибку в текущем порядке bag.
func (b *Bag) First() (Diagnostic, bool) {
	i := slices.IndexFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
	if i < 0 {
		return Diagnostic{}, false
	}
	return b.items[i], true
}

// Items returns the stored diagnostics. The slice aliases the bag.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends other's diagnostics, raising the limit so none is lost.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	total := min(len(b.items)+len(other.items), math.MaxUint16)
	b.max = max(b.max, uint16(total))
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders by file, position, severity (errors first), then code, so
// output does not depend on worker scheduling.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code.ID(), y.Code.ID()),
		)
	})
}
