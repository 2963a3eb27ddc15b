//go:build cgo

package native

/*
#cgo pkg-config: libffi
#cgo LDFLAGS: -ldl
#include <ffi.h>
#include <dlfcn.h>
#include <errno.h>
#include <stdlib.h>
#include <string.h>

static void* cffi_dlopen(const char* path, int global) {
	return dlopen(path, RTLD_LAZY | (global ? RTLD_GLOBAL : RTLD_LOCAL));
}

static const char* cffi_dlerror(void) {
	const char* e = dlerror();
	return e ? e : "unknown dlerror";
}

static void* cffi_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

static ffi_type* cffi_struct_new(size_t n) {
	ffi_type* t = calloc(1, sizeof(ffi_type));
	if (!t) return NULL;
	t->elements = calloc(n + 1, sizeof(ffi_type*));
	if (!t->elements) { free(t); return NULL; }
	t->type = FFI_TYPE_STRUCT;
	return t;
}

static void cffi_struct_set(ffi_type* t, size_t i, ffi_type* e) {
	t->elements[i] = e;
}

static void cffi_struct_free(ffi_type* t) {
	free(t->elements);
	free(t);
}

static int cffi_prep(ffi_cif* cif, unsigned nfixed, unsigned ntotal,
                     ffi_type* rtype, ffi_type** atypes, int variadic) {
	if (variadic)
		return ffi_prep_cif_var(cif, FFI_DEFAULT_ABI, nfixed, ntotal, rtype, atypes);
	return ffi_prep_cif(cif, FFI_DEFAULT_ABI, ntotal, rtype, atypes);
}

// errno живёт в TLS: выставляем и читаем его в том же вызове, что и ffi_call.
static int cffi_call(ffi_cif* cif, void* fn, void* rvalue, void** avalue, int errin) {
	errno = errin;
	ffi_call(cif, FFI_FN(fn), rvalue, avalue);
	return errno;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Available reports whether libraries can be loaded and called.
const Available = true

// Alloc returns n zeroed bytes of C memory. Release with Free.
func Alloc(n int) unsafe.Pointer {
	if n < 1 {
		n = 1
	}
	p := C.calloc(1, C.size_t(n))
	if p == nil {
		panic(fmt.Sprintf("native: calloc(%d) failed", n))
	}
	return p
}

// Free releases memory obtained from Alloc.
func Free(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}

// Library is a dlopen handle.
type Library struct {
	h    unsafe.Pointer
	name string
}

// Open loads a shared object; the empty name yields the handle of the
// running program and everything it links. global exports the library's
// symbols to objects loaded later (RTLD_GLOBAL).
func Open(name string, global bool) (*Library, error) {
	var cs *C.char
	if name != "" {
		cs = C.CString(name)
		defer C.free(unsafe.Pointer(cs))
	}
	g := C.int(0)
	if global {
		g = 1
	}
	h := C.cffi_dlopen(cs, g)
	if h == nil {
		return nil, &LoadError{Op: "dlopen", Name: name, Msg: C.GoString(C.cffi_dlerror())}
	}
	return &Library{h: h, name: name}, nil
}

// Name is the path the library was opened with.
func (l *Library) Name() string { return l.name }

// Sym resolves an exported symbol.
func (l *Library) Sym(name string) (unsafe.Pointer, error) {
	if l.h == nil {
		return nil, &LoadError{Op: "dlsym", Name: name, Msg: "library is closed"}
	}
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	var cerr *C.char
	p := C.cffi_dlsym(l.h, cs, &cerr)
	if cerr != nil {
		return nil, &LoadError{Op: "dlsym", Name: name, Msg: C.GoString(cerr)}
	}
	return p, nil
}

// Close drops the handle. Symbols resolved earlier must not be used after.
func (l *Library) Close() error {
	if l.h == nil {
		return nil
	}
	h := l.h
	l.h = nil
	if C.dlclose(h) != 0 {
		return &LoadError{Op: "dlclose", Name: l.name, Msg: C.GoString(C.cffi_dlerror())}
	}
	return nil
}

// Type is a libffi type descriptor.
type Type struct {
	p      *C.ffi_type
	scalar Scalar
	owned  bool
}

var scalars = [scalarCount]*Type{
	Void:    {p: &C.ffi_type_void, scalar: Void},
	Uint8:   {p: &C.ffi_type_uint8, scalar: Uint8},
	Sint8:   {p: &C.ffi_type_sint8, scalar: Sint8},
	Uint16:  {p: &C.ffi_type_uint16, scalar: Uint16},
	Sint16:  {p: &C.ffi_type_sint16, scalar: Sint16},
	Uint32:  {p: &C.ffi_type_uint32, scalar: Uint32},
	Sint32:  {p: &C.ffi_type_sint32, scalar: Sint32},
	Uint64:  {p: &C.ffi_type_uint64, scalar: Uint64},
	Sint64:  {p: &C.ffi_type_sint64, scalar: Sint64},
	Float:   {p: &C.ffi_type_float, scalar: Float},
	Double:  {p: &C.ffi_type_double, scalar: Double},
	Pointer: {p: &C.ffi_type_pointer, scalar: Pointer},
}

// ScalarType returns the shared descriptor of a builtin type.
func ScalarType(s Scalar) *Type { return scalars[s] }

// StructType builds an aggregate descriptor from its members in order.
// libffi computes size and alignment when a CIF using it is prepared.
func StructType(elems []*Type) (*Type, error) {
	t := C.cffi_struct_new(C.size_t(len(elems)))
	if t == nil {
		return nil, fmt.Errorf("native: out of memory for struct type")
	}
	for i, e := range elems {
		C.cffi_struct_set(t, C.size_t(i), e.p)
	}
	return &Type{p: t, scalar: Void, owned: true}, nil
}

// Release frees an aggregate descriptor. Builtins ignore it.
func (t *Type) Release() {
	if t != nil && t.owned && t.p != nil {
		C.cffi_struct_free(t.p)
		t.p = nil
	}
}

// CIF is a prepared call interface.
type CIF struct {
	cif    *C.ffi_cif
	atypes **C.ffi_type
	nargs  int
}

// Prep prepares a call interface. For variadic calls nfixed counts the
// declared parameters and args holds the promoted types of all arguments.
func Prep(ret *Type, args []*Type, nfixed int, variadic bool) (*CIF, error) {
	c := &CIF{nargs: len(args)}
	c.cif = (*C.ffi_cif)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ffi_cif{}))))
	if len(args) > 0 {
		c.atypes = (**C.ffi_type)(C.calloc(C.size_t(len(args)), C.size_t(PtrSize)))
		vec := unsafe.Slice(c.atypes, len(args))
		for i, a := range args {
			vec[i] = a.p
		}
	}
	v := C.int(0)
	if variadic {
		v = 1
	}
	st := C.cffi_prep(c.cif, C.uint(nfixed), C.uint(len(args)), ret.p, c.atypes, v)
	if st != C.FFI_OK {
		c.Free()
		return nil, &PrepError{Status: int(st)}
	}
	return c, nil
}

// Free releases the interface. Argument descriptors are not owned.
func (c *CIF) Free() {
	if c == nil {
		return
	}
	C.free(unsafe.Pointer(c.atypes))
	C.free(unsafe.Pointer(c.cif))
	c.atypes, c.cif = nil, nil
}

// Call invokes fn. rvalue must hold at least max(size, 8) bytes for the
// return type; args point at C memory holding each argument. errno is
// set to errIn before the call and its value afterwards is returned.
func (c *CIF) Call(fn, rvalue unsafe.Pointer, args []unsafe.Pointer, errIn int) int {
	var av *unsafe.Pointer
	if len(args) > 0 {
		av = (*unsafe.Pointer)(C.calloc(C.size_t(len(args)), C.size_t(PtrSize)))
		defer C.free(unsafe.Pointer(av))
		copy(unsafe.Slice(av, len(args)), args)
	}
	return int(C.cffi_call(c.cif, fn, rvalue, av, C.int(errIn)))
}
