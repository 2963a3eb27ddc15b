package ffi

import (
	"unsafe"

	"cffi/internal/ctype"
	"cffi/internal/native"
)

// scalar maps a numeric, pointer or function kind to its libffi scalar.
func (e *Env) scalar(id ctype.TypeID) (native.Scalar, bool) {
	k := e.types.Kind(id)
	switch {
	case k == ctype.KindFloat:
		return native.Float, true
	case k == ctype.KindDouble:
		return native.Double, true
	case k == ctype.KindVoid:
		return native.Void, true
	case k == ctype.KindPointer || k == ctype.KindFunc:
		return native.Pointer, true
	case k.IsInteger():
		return native.IntScalar(e.sizeOrZero(id), k.IsSigned())
	}
	return native.Void, false
}

// load decodes a numeric value.
func load(s native.Scalar, p unsafe.Pointer) Value {
	switch s {
	case native.Sint8:
		return Int(int64(*(*int8)(p)))
	case native.Uint8:
		return Int(int64(*(*uint8)(p)))
	case native.Sint16:
		return Int(int64(*(*int16)(p)))
	case native.Uint16:
		return Int(int64(*(*uint16)(p)))
	case native.Sint32:
		return Int(int64(*(*int32)(p)))
	case native.Uint32:
		return Int(int64(*(*uint32)(p)))
	case native.Sint64:
		return Int(*(*int64)(p))
	case native.Uint64:
		return Uint(*(*uint64)(p))
	case native.Float:
		return Float(float64(*(*float32)(p)))
	case native.Double:
		return Float(*(*float64)(p))
	case native.Pointer:
		return Ptr(*(*uintptr)(p))
	}
	return Nil()
}

// store writes a numeric value with C conversion semantics: integers wrap
// to the target width, floats truncate toward zero.
func store(s native.Scalar, p unsafe.Pointer, v Value) {
	switch s {
	case native.Sint8, native.Uint8:
		*(*uint8)(p) = uint8(v.AsInt())
	case native.Sint16, native.Uint16:
		*(*uint16)(p) = uint16(v.AsInt())
	case native.Sint32, native.Uint32:
		*(*uint32)(p) = uint32(v.AsInt())
	case native.Sint64:
		*(*int64)(p) = v.AsInt()
	case native.Uint64:
		*(*uint64)(p) = v.AsUint()
	case native.Float:
		*(*float32)(p) = float32(v.AsFloat())
	case native.Double:
		*(*float64)(p) = v.AsFloat()
	case native.Pointer:
		*(*uintptr)(p) = uintptr(v.AsUint())
	}
}

// loadNumber decodes the numeric CType id at p; bool reads as 0/1.
func (e *Env) loadNumber(id ctype.TypeID, p unsafe.Pointer) Value {
	s, ok := e.scalar(id)
	if !ok {
		return Nil()
	}
	return load(s, p)
}

func (e *Env) storeNumber(id ctype.TypeID, p unsafe.Pointer, v Value) {
	if e.types.Kind(id) == ctype.KindBool {
		*(*uint8)(p) = boolByte(truthy(v))
		return
	}
	if s, ok := e.scalar(id); ok {
		store(s, p, v)
	}
}

func truthy(v Value) bool {
	switch v.Kind {
	case KindBool:
		return v.b
	case KindFloat:
		return v.f != 0
	}
	return v.AsUint() != 0
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// goString reads a NUL-terminated string.
func goString(p unsafe.Pointer) string {
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(native.Bytes(p, n))
}
