//go:build !cgo

package native

import (
	"sync"
	"unsafe"
)

// Available reports whether libraries can be loaded and called.
const Available = false

// Память без cgo: слайсы в куче Go, удерживаемые до Free. Куча Go не
// перемещает объекты, так что адреса стабильны.
var heap = struct {
	sync.Mutex
	live map[unsafe.Pointer][]uint64
}{live: map[unsafe.Pointer][]uint64{}}

// Alloc returns n zeroed bytes. Release with Free.
func Alloc(n int) unsafe.Pointer {
	if n < 1 {
		n = 1
	}
	buf := make([]uint64, (n+7)/8)
	p := unsafe.Pointer(&buf[0])
	heap.Lock()
	heap.live[p] = buf
	heap.Unlock()
	return p
}

// Free releases memory obtained from Alloc.
func Free(p unsafe.Pointer) {
	heap.Lock()
	delete(heap.live, p)
	heap.Unlock()
}

// Library is a placeholder; Open always fails.
type Library struct{ name string }

func Open(name string, global bool) (*Library, error) { return nil, ErrUnavailable }

func (l *Library) Name() string                            { return l.name }
func (l *Library) Sym(name string) (unsafe.Pointer, error) { return nil, ErrUnavailable }
func (l *Library) Close() error                            { return nil }

// Type records the descriptor shape only.
type Type struct {
	scalar Scalar
	elems  []*Type
}

var scalars = func() (out [scalarCount]*Type) {
	for i := range out {
		out[i] = &Type{scalar: Scalar(i)}
	}
	return out
}()

func ScalarType(s Scalar) *Type { return scalars[s] }

func StructType(elems []*Type) (*Type, error) {
	return &Type{elems: append([]*Type(nil), elems...)}, nil
}

func (t *Type) Release() {}

// CIF cannot be prepared without libffi.
type CIF struct{}

func Prep(ret *Type, args []*Type, nfixed int, variadic bool) (*CIF, error) {
	return nil, ErrUnavailable
}

func (c *CIF) Free() {}

func (c *CIF) Call(fn, rvalue unsafe.Pointer, args []unsafe.Pointer, errIn int) int {
	panic(ErrUnavailable)
}
