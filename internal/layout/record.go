package layout

import (
	"cffi/internal/ctype"
)

// RecordLayout is the result of laying out a record body.
type RecordLayout struct {
	TypeLayout
	// Rep is the largest union member (first on ties), -1 for structs
	// and for unions without sized members.
	Rep int
}

// Record lays out members in declaration order.
//
// Struct: a flexible array member takes no space and sits right after the
// previous member (prev.offset + prev.size); every other member is placed at
// its natural alignment and the size is rounded up to the record alignment.
// Union: every member sits at offset 0, the size is the largest member
// size rounded to the maximal alignment.
func (e *LayoutEngine) Record(fields []ctype.Field, union bool) (RecordLayout, error) {
	offsets := make([]int, len(fields))
	if union {
		return e.unionLayout(fields, offsets)
	}

	size := 0
	align := 1
	for i := range fields {
		fl, err := e.LayoutOf(fields[i].Type)
		if err != nil {
			return RecordLayout{}, err
		}
		if e.Types.IsFlexibleArray(fields[i].Type) {
			if i > 0 {
				prev, _ := e.LayoutOf(fields[i-1].Type)
				offsets[i] = offsets[i-1] + prev.Size
			}
			continue
		}
		fAlign := fl.Align
		if fAlign <= 0 {
			fAlign = 1
		}
		size = roundUp(size, fAlign)
		offsets[i] = size
		size += fl.Size
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)

	return RecordLayout{
		TypeLayout: TypeLayout{Size: size, Align: align, FieldOffsets: offsets},
		Rep:        -1,
	}, nil
}

func (e *LayoutEngine) unionLayout(fields []ctype.Field, offsets []int) (RecordLayout, error) {
	size := 0
	align := 1
	rep := -1
	repSize := 0
	for i := range fields {
		fl, err := e.LayoutOf(fields[i].Type)
		if err != nil {
			return RecordLayout{}, err
		}
		align = maxInt(align, fl.Align)
		if e.Types.IsFlexibleArray(fields[i].Type) {
			continue
		}
		if rep < 0 || fl.Size > repSize {
			rep, repSize = i, fl.Size
		}
		size = maxInt(size, fl.Size)
	}
	return RecordLayout{
		TypeLayout: TypeLayout{Size: roundUp(size, align), Align: align, FieldOffsets: offsets},
		Rep:        rep,
	}, nil
}
