package ffi

import "cffi/internal/ctype"

// Equal compares host values the way the == operator does. Pointer CData
// compare addresses (nil equals a NULL pointer), numeric CData compare by
// value, records, arrays and functions only equal themselves.
func Equal(a, b Value) bool {
	if a.Kind != KindCData && b.Kind == KindCData {
		a, b = b, a
	}
	if a.Kind != KindCData {
		return hostEqual(a, b)
	}
	cd := a.cd
	switch cd.kind() {
	case ctype.KindRecord, ctype.KindArray, ctype.KindFunc:
		return b.Kind == KindCData && b.cd == cd
	case ctype.KindPointer:
		switch b.Kind {
		case KindNil:
			return cd.Addr() == 0
		case KindCData:
			return b.cd.kind() == ctype.KindPointer && cd.Addr() == b.cd.Addr()
		}
		return false
	}
	if b.Kind == KindCData && b.cd.kind().IsNumeric() {
		b = b.cd.env.loadNumber(b.cd.t, b.cd.ptr)
	}
	return hostEqual(cd.env.loadNumber(cd.t, cd.ptr), b)
}
