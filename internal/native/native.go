// Package native is the only place that touches libffi and the dynamic
// loader. Everything above it works with unsafe.Pointer buffers and
// opaque *Type / *CIF handles.
//
// Builds without cgo get a stub: memory still works (backed by the Go
// heap) but loading libraries and calling functions fail with
// ErrUnavailable.
package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"
)

// ErrUnavailable is returned by loader and call operations in builds
// without cgo.
var ErrUnavailable = errors.New("native calls are not available in this build")

// PtrSize is the size of a data pointer on the host.
const PtrSize = int(unsafe.Sizeof(uintptr(0)))

// LittleEndian reports the host byte order.
var LittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// Scalar names a builtin libffi type.
type Scalar uint8

const (
	Void Scalar = iota
	Uint8
	Sint8
	Uint16
	Sint16
	Uint32
	Sint32
	Uint64
	Sint64
	Float
	Double
	Pointer
	scalarCount
)

var scalarNames = [...]string{
	Void: "void", Uint8: "uint8", Sint8: "sint8", Uint16: "uint16", Sint16: "sint16",
	Uint32: "uint32", Sint32: "sint32", Uint64: "uint64", Sint64: "sint64",
	Float: "float", Double: "double", Pointer: "pointer",
}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return fmt.Sprintf("Scalar(%d)", s)
}

// IntScalar picks the libffi integer type of the given byte width.
func IntScalar(size int, signed bool) (Scalar, bool) {
	var s Scalar
	switch size {
	case 1:
		s = Uint8
	case 2:
		s = Uint16
	case 4:
		s = Uint32
	case 8:
		s = Uint64
	default:
		return Void, false
	}
	if signed {
		s++
	}
	return s, true
}

// PrepError is ffi_prep_cif's non-OK status.
type PrepError struct{ Status int }

func (e *PrepError) Error() string { return fmt.Sprintf("ffi_prep_cif fail: %d", e.Status) }

// LoadError reports a dlopen/dlsym failure with the loader's message.
type LoadError struct {
	Op   string // "dlopen" | "dlsym" | "dlclose"
	Name string
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s(%q) failed: %s", e.Op, e.Name, e.Msg)
}

// Bytes views n bytes at p.
func Bytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}
