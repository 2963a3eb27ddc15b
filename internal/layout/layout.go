package layout

import (
	"cffi/internal/ctype"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Record-only, in declaration order.
	FieldOffsets []int
}

// LayoutEngine computes memory layout for types of one registry.
type LayoutEngine struct {
	Target Target
	Types  *ctype.Registry

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *ctype.Registry) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

// LayoutOf computes and caches the layout of a type. Incomplete records are
// never cached: they may complete later.
func (e *LayoutEngine) LayoutOf(t ctype.TypeID) (TypeLayout, error) {
	if e == nil || e.Types == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	if cached, ok := e.cache.get(t); ok {
		return cached, nil
	}
	l, err := e.computeLayout(t)
	if err != nil {
		if err.Name == "" {
			err.Name = e.Types.String(err.Type)
		}
		return TypeLayout{Size: 0, Align: 1}, err
	}
	e.cache.put(t, l)
	return l, nil
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t ctype.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t ctype.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// MustSize is SizeOf for types already validated by the parser.
func (e *LayoutEngine) MustSize(t ctype.TypeID) int {
	n, err := e.SizeOf(t)
	if err != nil {
		panic(err)
	}
	return n
}

// FieldOffset returns the byte offset of a record member by index.
func (e *LayoutEngine) FieldOffset(recordT ctype.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(recordT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}
