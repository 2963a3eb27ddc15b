package ffi

import (
	"fmt"
	"runtime"
	"unsafe"

	"cffi/internal/ctype"
	"cffi/internal/native"
)

// CData is typed native memory. ptr always addresses storage of the
// type's size; for pointer and function types that storage is a slot
// holding the address.
type CData struct {
	env    *Env
	t      ctype.TypeID
	ptr    unsafe.Pointer
	res    *resources // set for owned buffers and for views with a finalizer
	parent *CData     // views keep the storage they point into alive
}

// resources is what a cleanup frees once its CData is unreachable. It must
// not reference the CData itself.
type resources struct {
	env   *Env
	t     ctype.TypeID
	ptr   unsafe.Pointer // owned buffer, nil for views
	extra allocs         // strings assigned into the buffer
	final func(*CData)
}

func (r *resources) release() {
	if r.final != nil {
		r.final(&CData{env: r.env, t: r.t, ptr: r.ptr})
	}
	r.extra.release()
	if r.ptr != nil {
		native.Free(r.ptr)
	}
}

// allocs is a list of native blocks released together.
type allocs struct{ ptrs []unsafe.Pointer }

func (a *allocs) alloc(n int) unsafe.Pointer {
	p := native.Alloc(n)
	a.ptrs = append(a.ptrs, p)
	return p
}

// cstring copies s into a NUL-terminated native block.
func (a *allocs) cstring(s string) unsafe.Pointer {
	p := a.alloc(len(s) + 1)
	copy(native.Bytes(p, len(s)), s)
	return p
}

func (a *allocs) release() {
	for _, p := range a.ptrs {
		native.Free(p)
	}
	a.ptrs = nil
}

// newOwned allocates zeroed storage for id.
func (e *Env) newOwned(id ctype.TypeID) (*CData, error) {
	n, err := e.size(id)
	if err != nil {
		return nil, err
	}
	p := native.Alloc(n)
	cd := &CData{env: e, t: id, ptr: p, res: &resources{env: e, t: id, ptr: p}}
	runtime.AddCleanup(cd, (*resources).release, cd.res)
	return cd, nil
}

// newPointer allocates a pointer slot holding addr. keep is the CData the
// address points into, if any.
func (e *Env) newPointer(id ctype.TypeID, addr uintptr, keep *CData) *CData {
	cd, err := e.newOwned(id)
	if err != nil {
		panic(fmt.Sprintf("ffi: pointer slot for %s: %v", e.types.String(id), err))
	}
	*(*uintptr)(cd.ptr) = addr
	cd.parent = keep
	return cd
}

func (e *Env) view(id ctype.TypeID, p unsafe.Pointer, parent *CData) *CData {
	return &CData{env: e, t: id, ptr: p, parent: parent}
}

// holder is where strings converted for this CData are kept: the buffer
// owner up the view chain, or the Env for memory nobody here owns.
func (c *CData) holder() *allocs {
	for x := c; x != nil; x = x.parent {
		if x.res != nil && x.res.ptr != nil {
			return &x.res.extra
		}
	}
	return &c.env.mem
}

// Type is the canonical type handle of the data.
func (c *CData) Type() *Type { return c.env.handle(c.t) }

// Owned reports whether the CData owns its storage.
func (c *CData) Owned() bool { return c.res != nil && c.res.ptr != nil }

// Storage is the address of the CData's own bytes.
func (c *CData) Storage() uintptr { return uintptr(c.ptr) }

// Addr is the address the data refers to: the slot value for pointers and
// functions, the storage itself otherwise.
func (c *CData) Addr() uintptr {
	switch c.env.types.Kind(c.t) {
	case ctype.KindPointer, ctype.KindFunc:
		return *(*uintptr)(c.ptr)
	}
	return uintptr(c.ptr)
}

func (c *CData) kind() ctype.Kind { return c.env.types.Kind(c.t) }

// SetFinalizer registers fn to run once c is unreachable, before owned
// storage is freed. fn receives a temporary view and must not retain it or
// reference c.
func (c *CData) SetFinalizer(fn func(*CData)) {
	if c.res == nil {
		c.res = &resources{env: c.env, t: c.t}
		runtime.AddCleanup(c, (*resources).release, c.res)
	}
	c.res.final = fn
}

// String renders "cdata<T>: 0x..." with the referenced address.
func (c *CData) String() string {
	return fmt.Sprintf("cdata<%s>: %#x", c.env.types.String(c.t), c.Addr())
}

// at turns a raw address into a pointer for an immediate access.
func at(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet
}
