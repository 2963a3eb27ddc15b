package ffi

import (
	"unsafe"

	"cffi/internal/ctype"
	"cffi/internal/native"
)

type convMode uint8

const (
	modeAssign convMode = iota // construction, field and argument writes
	modeCast                   // cast(): reinterpretation allowed
)

// toHost reads the value of type id at p. Aggregates and pointers come
// back as views into p; parent keeps p alive.
func (e *Env) toHost(id ctype.TypeID, p unsafe.Pointer, parent *CData) Value {
	switch e.types.Kind(id) {
	case ctype.KindRecord, ctype.KindArray, ctype.KindPointer, ctype.KindFunc:
		return FromCData(e.view(id, p, parent))
	case ctype.KindVoid:
		return Nil()
	}
	return e.loadNumber(id, p)
}

// fromHost writes v as type id at p. Strings that must become C strings
// are copied into mem.
func (e *Env) fromHost(id ctype.TypeID, p unsafe.Pointer, v Value, mode convMode, mem *allocs) error {
	t := e.types.MustLookup(id)
	switch t.Kind {
	case ctype.KindFunc, ctype.KindVoid:
		return errorf(ErrConversion, "invalid C type")
	case ctype.KindArray, ctype.KindRecord:
		if mode == modeCast {
			return errorf(ErrConversion, "invalid C type")
		}
	}

	switch v.Kind {
	case KindNil:
		if t.Kind == ctype.KindPointer {
			*(*uintptr)(p) = 0
			return nil
		}
	case KindBool, KindInt, KindUint, KindFloat:
		if e.fromNumber(t, id, p, v, mode) {
			return nil
		}
	case KindString:
		if ok, err := e.fromString(t, id, p, v.s, mode, mem); ok || err != nil {
			return err
		}
	case KindUserdata:
		if t.Kind == ctype.KindPointer && (mode == modeCast || e.types.PointsTo(id, ctype.KindVoid)) {
			*(*uintptr)(p) = v.addr
			return nil
		}
	case KindPointer:
		if t.Kind == ctype.KindPointer {
			*(*uintptr)(p) = v.addr
			return nil
		}
	case KindCData:
		if e.fromCData(t, id, p, v.cd, mode) {
			return nil
		}
	case KindList:
		if t.Kind == ctype.KindArray {
			return e.fromList(t, p, v.list, mode, mem)
		}
	case KindMap:
		if t.Kind == ctype.KindRecord {
			return e.fromMap(id, p, v, mode, mem)
		}
	}
	return errorf(ErrConversion, "cannot convert '%s' to '%s'", v.TypeName(), e.types.String(id))
}

func (e *Env) fromNumber(t ctype.Type, id ctype.TypeID, p unsafe.Pointer, v Value, mode convMode) bool {
	if t.Kind == ctype.KindPointer {
		if mode != modeCast {
			return false
		}
		*(*uintptr)(p) = uintptr(v.AsInt())
		return true
	}
	if !t.Kind.IsNumeric() {
		return false
	}
	e.storeNumber(id, p, v)
	return true
}

func (e *Env) fromString(t ctype.Type, id ctype.TypeID, p unsafe.Pointer, s string, mode convMode, mem *allocs) (bool, error) {
	if t.Kind == ctype.KindPointer {
		pointee := e.types.MustLookup(t.Elem)
		textual := pointee.Kind == ctype.KindChar || pointee.Kind == ctype.KindVoid
		if mode == modeCast || textual && pointee.Const {
			*(*uintptr)(p) = uintptr(mem.cstring(s))
			return true, nil
		}
		return false, nil
	}
	if t.Kind == ctype.KindArray && e.types.Kind(t.Elem) == ctype.KindChar {
		if t.Count == 0 || len(s)+1 > int(t.Count) {
			return true, errorf(ErrConversion, "string of length %d does not fit into '%s'", len(s), e.types.String(id))
		}
		buf := native.Bytes(p, len(s)+1)
		copy(buf, s)
		buf[len(s)] = 0
		return true, nil
	}
	return false, nil
}

func (e *Env) fromCData(t ctype.Type, id ctype.TypeID, p unsafe.Pointer, src *CData, mode convMode) bool {
	st := e.types.MustLookup(src.t)
	switch st.Kind {
	case ctype.KindArray:
		return e.fromAddress(t, id, p, st.Elem, uintptr(src.ptr), mode)
	case ctype.KindPointer:
		return e.fromAddress(t, id, p, st.Elem, src.Addr(), mode)
	case ctype.KindFunc:
		if t.Kind == ctype.KindPointer && (mode == modeCast || e.types.PointsTo(id, ctype.KindVoid)) {
			*(*uintptr)(p) = src.Addr()
			return true
		}
	case ctype.KindRecord:
		if t.Kind == ctype.KindPointer && (mode == modeCast || e.sameType(src.t, t.Elem)) {
			*(*uintptr)(p) = uintptr(src.ptr)
			return true
		}
		if e.sameType(src.t, id) {
			n := e.sizeOrZero(id)
			copy(native.Bytes(p, n), native.Bytes(src.ptr, n))
			return true
		}
	default:
		if st.Kind.IsNumeric() {
			return e.fromNumber(t, id, p, e.loadNumber(src.t, src.ptr), mode)
		}
	}
	return false
}

// fromAddress stores an array/pointer source into a pointer target.
func (e *Env) fromAddress(t ctype.Type, id ctype.TypeID, p unsafe.Pointer, srcElem ctype.TypeID, addr uintptr, mode convMode) bool {
	if t.Kind == ctype.KindPointer && (mode == modeCast ||
		e.sameType(t.Elem, srcElem) ||
		e.types.PointsTo(id, ctype.KindVoid) ||
		e.types.Kind(srcElem) == ctype.KindVoid) {
		*(*uintptr)(p) = addr
		return true
	}
	if mode == modeCast && t.Kind.IsInteger() {
		e.storeNumber(id, p, Uint(uint64(addr)))
		return true
	}
	return false
}

// fromList fills min(len(list), count) elements; the rest keep their bytes.
func (e *Env) fromList(t ctype.Type, p unsafe.Pointer, list []Value, mode convMode, mem *allocs) error {
	n := min(len(list), int(t.Count))
	size := e.sizeOrZero(t.Elem)
	for i := 0; i < n; i++ {
		if err := e.fromHost(t.Elem, unsafe.Add(p, i*size), list[i], mode, mem); err != nil {
			return err
		}
	}
	return nil
}

// fromMap sets the declared fields present in m. Anonymous members take
// their fields from the same map; unknown keys are ignored.
func (e *Env) fromMap(id ctype.TypeID, p unsafe.Pointer, m Value, mode convMode, mem *allocs) error {
	info, ok := e.types.RecordInfo(id)
	if !ok {
		return errorf(ErrConversion, "invalid C type")
	}
	for _, f := range info.Fields {
		fp := unsafe.Add(p, f.Offset)
		if f.Name == "" {
			if err := e.fromMap(f.Type, fp, m, mode, mem); err != nil {
				return err
			}
			continue
		}
		if v, has := m.Get(f.Name); has {
			if err := e.fromHost(f.Type, fp, v, mode, mem); err != nil {
				return err
			}
		}
	}
	return nil
}

// sameType compares ignoring top-level const: a T value may initialise a
// const T slot and a T* may point to const T.
func (e *Env) sameType(a, b ctype.TypeID) bool {
	return e.types.WithConst(a, false) == e.types.WithConst(b, false)
}
