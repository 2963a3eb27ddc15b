package ffi

import (
	"math"
	"unsafe"

	"cffi/internal/ctype"
	"cffi/internal/native"
)

// New allocates a zeroed value of the given type. A flexible type such as
// "int[?]" takes its element count as the first argument. At most one
// initializer follows; it converts like an assignment.
func (e *Env) New(spec Value, args ...Value) (*CData, error) {
	id, flexible, err := e.resolve(spec, true)
	if err != nil {
		return nil, err
	}
	if flexible {
		var n int64
		if len(args) > 0 {
			n, _ = args[0].Integral()
			args = args[1:]
		}
		if n <= 0 || n > math.MaxUint32 {
			return nil, errorf(ErrConversion, "array size must be greater than 0")
		}
		id = e.types.Array(id, uint32(n))
	}
	if len(args) > 1 {
		return nil, errorf(ErrConversion, "too many initializers for '%s'", e.types.String(id))
	}
	switch e.types.Kind(id) {
	case ctype.KindVoid, ctype.KindFunc:
		return nil, errorf(ErrConversion, "invalid C type")
	}
	cd, err := e.newOwned(id)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		if err := e.fromHost(id, cd.ptr, args[0], modeAssign, cd.holder()); err != nil {
			return nil, err
		}
		cd.keepSource(args[0])
	}
	return cd, nil
}

// Cast converts v to the type under the permissive cast rules: numbers
// become pointers, pointers become integers, any pointer retypes.
func (e *Env) Cast(spec, v Value) (*CData, error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return nil, err
	}
	switch e.types.Kind(id) {
	case ctype.KindVoid, ctype.KindFunc, ctype.KindRecord, ctype.KindArray:
		return nil, errorf(ErrConversion, "invalid C type")
	}
	cd, err := e.newOwned(id)
	if err != nil {
		return nil, err
	}
	if err := e.fromHost(id, cd.ptr, v, modeCast, cd.holder()); err != nil {
		return nil, err
	}
	cd.keepSource(v)
	return cd, nil
}

// keepSource ties a pointer result to the CData it was taken from.
func (c *CData) keepSource(v Value) {
	if v.Kind == KindCData && c.kind() == ctype.KindPointer {
		c.parent = v.cd
	}
}

// TypeOf returns the canonical handle of a declaration string, CType or
// CData.
func (e *Env) TypeOf(spec Value) (*Type, error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return nil, err
	}
	return e.handle(id), nil
}

// SizeOf reports the byte size of a type.
func (e *Env) SizeOf(spec Value) (int, error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return 0, err
	}
	return e.size(id)
}

// AlignOf reports the alignment of a type.
func (e *Env) AlignOf(spec Value) (int, error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return 0, err
	}
	n, err := e.layout.AlignOf(id)
	if err != nil {
		return 0, wrapError(ErrDeclaration, err, "%v", err)
	}
	return n, nil
}

// OffsetOf reports the offset of a member declared directly in a record.
// ok is false for non-record types and unknown members.
func (e *Env) OffsetOf(spec Value, field string) (offset int, ok bool, err error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return 0, false, err
	}
	if e.types.Kind(id) != ctype.KindRecord {
		return 0, false, nil
	}
	f, ok := e.types.DirectField(id, field)
	if !ok {
		return 0, false, nil
	}
	return f.Offset, true, nil
}

// IsType reports whether v is a CData of exactly the given type.
func (e *Env) IsType(spec, v Value) (bool, error) {
	id, _, err := e.resolve(spec, false)
	if err != nil {
		return false, err
	}
	if v.Kind != KindCData {
		return false, errorf(ErrConversion, "cdata expected, got %s", v.TypeName())
	}
	return e.types.Equal(id, v.cd.t), nil
}

// AddressOf returns a T* to c's storage; it keeps c alive.
func (e *Env) AddressOf(c *CData) *CData {
	return e.newPointer(e.types.Pointer(c.t, false), uintptr(c.ptr), c)
}

// ToNumber decodes a numeric CData; anything else yields nil.
func (e *Env) ToNumber(c *CData) Value {
	if !c.kind().IsNumeric() {
		return Nil()
	}
	return e.loadNumber(c.t, c.ptr)
}

// ToString reads a NUL-terminated string through a char or void pointer
// or array. A fixed array bounds the scan.
func (e *Env) ToString(c *CData) (string, error) {
	t := e.types.MustLookup(c.t)
	if t.Kind != ctype.KindPointer && t.Kind != ctype.KindArray {
		return "", e.stringError(c)
	}
	switch e.types.Kind(t.Elem) {
	case ctype.KindVoid, ctype.KindChar, ctype.KindUChar:
	default:
		return "", e.stringError(c)
	}
	p, err := c.base()
	if err != nil {
		return "", err
	}
	if t.Kind == ctype.KindArray && t.Count > 0 {
		buf := native.Bytes(p, e.sizeOrZero(c.t))
		for i, b := range buf {
			if b == 0 {
				return string(buf[:i]), nil
			}
		}
		return string(buf), nil
	}
	return goString(p), nil
}

// ToStringN copies exactly n bytes from pointer, array or record storage.
func (e *Env) ToStringN(c *CData, n int) (string, error) {
	switch c.kind() {
	case ctype.KindPointer, ctype.KindArray, ctype.KindRecord:
	default:
		return "", e.stringError(c)
	}
	if n < 0 {
		return "", errorf(ErrConversion, "negative length %d", n)
	}
	p, err := c.base()
	if err != nil {
		return "", err
	}
	if limit, ok := c.extent(); ok && n > limit {
		return "", errorf(ErrAccess, "length %d exceeds size of '%s'", n, e.types.String(c.t))
	}
	return string(native.Bytes(p, n)), nil
}

func (e *Env) stringError(c *CData) *Error {
	return errorf(ErrConversion, "cannot convert '%s' to 'string'", c.String())
}

// Copy writes s and a terminating NUL into dst and returns the number of
// bytes written.
func (e *Env) Copy(dst *CData, s string) (int, error) {
	n := len(s) + 1
	p, err := e.writable(dst, n)
	if err != nil {
		return 0, err
	}
	buf := native.Bytes(p, n)
	copy(buf, s)
	buf[len(s)] = 0
	return n, nil
}

// CopyN copies n bytes from a string or from a CData's storage (the
// pointee, for pointers). A short string is padded with zeros.
func (e *Env) CopyN(dst *CData, src Value, n int) (int, error) {
	if n < 0 {
		return 0, errorf(ErrConversion, "negative length %d", n)
	}
	p, err := e.writable(dst, n)
	if err != nil {
		return 0, err
	}
	buf := native.Bytes(p, n)
	switch src.Kind {
	case KindString:
		clear(buf[copy(buf, src.s):])
	case KindCData:
		sp, err := src.cd.base()
		if err != nil {
			return 0, err
		}
		if limit, ok := src.cd.extent(); ok && n > limit {
			return 0, errorf(ErrAccess, "length %d exceeds size of '%s'", n, e.types.String(src.cd.t))
		}
		copy(buf, native.Bytes(sp, n))
	default:
		return 0, errorf(ErrConversion, "cannot copy from %s", src.TypeName())
	}
	return n, nil
}

// Fill sets n bytes of dst to b.
func (e *Env) Fill(dst *CData, n int, b byte) error {
	if n < 0 {
		return errorf(ErrConversion, "negative length %d", n)
	}
	p, err := e.writable(dst, n)
	if err != nil {
		return err
	}
	buf := native.Bytes(p, n)
	for i := range buf {
		buf[i] = b
	}
	return nil
}

// writable checks that n bytes fit at dst's target.
func (e *Env) writable(dst *CData, n int) (unsafe.Pointer, error) {
	p, err := dst.base()
	if err != nil {
		return nil, err
	}
	if limit, ok := dst.extent(); ok && n > limit {
		return nil, errorf(ErrAccess, "length %d exceeds size of '%s'", n, e.types.String(dst.t))
	}
	return p, nil
}

// Errno returns the errno captured after the last call.
func (e *Env) Errno() int { return e.errno }

// SetErrno sets the errno the next call starts with and returns the
// previous value.
func (e *Env) SetErrno(n int) int {
	old := e.errno
	e.errno = n
	return old
}

// ABI answers "64bit", "32bit", "le" and "be" for the host.
func ABI(param string) bool {
	switch param {
	case "64bit":
		return native.PtrSize == 8
	case "32bit":
		return native.PtrSize == 4
	case "le":
		return native.LittleEndian
	case "be":
		return !native.LittleEndian
	}
	return false
}

// base is the memory c's bytes operations act on: the pointee for
// pointers, the storage otherwise.
func (c *CData) base() (unsafe.Pointer, error) {
	if c.kind() != ctype.KindPointer {
		return c.ptr, nil
	}
	addr := c.Addr()
	if addr == 0 {
		return nil, errorf(ErrAccess, "attempt to access a NULL pointer of type '%s'", c.env.types.String(c.t))
	}
	return at(addr), nil
}

// extent is the known size of base(); pointers have none, and a flexible
// array member only has the rest of its owner's buffer.
func (c *CData) extent() (int, bool) {
	switch t := c.env.types.MustLookup(c.t); {
	case t.Kind == ctype.KindPointer:
		return 0, false
	case t.Kind == ctype.KindArray && t.Count == 0:
		return c.ownedLeft()
	}
	return c.env.sizeOrZero(c.t), true
}
