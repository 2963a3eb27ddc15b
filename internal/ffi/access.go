package ffi

import (
	"runtime"
	"sync"
	"unsafe"
	"weak"

	"cffi/internal/ctype"
)

// childKey identifies a view derived from a parent. base is the pointee
// address for pointer parents, so re-pointing the parent misses the cache.
type childKey struct {
	field string
	index int64
	base  uintptr
}

// childTable caches field and element views per parent. Both sides are
// weak: the cache never keeps a parent or a view alive. Cleanups run on
// the runtime's goroutine, hence the mutex.
type childTable struct {
	mu       sync.Mutex
	byParent map[weak.Pointer[CData]]map[childKey]weak.Pointer[CData]
}

func newChildTable() *childTable {
	return &childTable{byParent: make(map[weak.Pointer[CData]]map[childKey]weak.Pointer[CData])}
}

func (t *childTable) get(parent *CData, k childKey) *CData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.byParent[weak.Make(parent)]; ok {
		return m[k].Value()
	}
	return nil
}

func (t *childTable) put(parent *CData, k childKey, child *CData) {
	wp := weak.Make(parent)
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.byParent[wp]
	if !ok {
		m = make(map[childKey]weak.Pointer[CData])
		t.byParent[wp] = m
		runtime.AddCleanup(parent, t.drop, wp)
	}
	m[k] = weak.Make(child)
}

func (t *childTable) drop(wp weak.Pointer[CData]) {
	t.mu.Lock()
	delete(t.byParent, wp)
	t.mu.Unlock()
}

// cached returns the cached view for k or stores the one v carries.
func (c *CData) cached(k childKey, v func() Value) Value {
	if child := c.env.children.get(c, k); child != nil {
		return FromCData(child)
	}
	out := v()
	if out.Kind == KindCData {
		c.env.children.put(c, k, out.cd)
	}
	return out
}

// Get indexes by number or selects a member by name.
func (c *CData) Get(key Value) (Value, error) {
	if key.Kind == KindString {
		return c.Field(key.s)
	}
	i, ok := key.Integral()
	if !ok {
		return Nil(), errorf(ErrAccess, "ctype '%s' cannot be indexed with %s", c.env.types.String(c.t), key.TypeName())
	}
	return c.Index(i)
}

// Set is the assigning counterpart of Get.
func (c *CData) Set(key, v Value) error {
	if key.Kind == KindString {
		return c.SetField(key.s, v)
	}
	i, ok := key.Integral()
	if !ok {
		return errorf(ErrAccess, "ctype '%s' cannot be indexed with %s", c.env.types.String(c.t), key.TypeName())
	}
	return c.SetIndex(i, v)
}

// element resolves the address of element i of a pointer or array. A
// flexible array member is bounded by the owned buffer it sits in; reached
// through a foreign pointer it is unchecked.
func (c *CData) element(i int64) (ctype.TypeID, unsafe.Pointer, uintptr, error) {
	e := c.env
	t := e.types.MustLookup(c.t)
	var base uintptr
	switch t.Kind {
	case ctype.KindPointer:
		base = c.Addr()
	case ctype.KindArray:
		base = uintptr(c.ptr)
	default:
		return 0, nil, 0, errorf(ErrAccess, "ctype '%s' cannot be indexed", e.types.String(c.t))
	}
	if e.types.Kind(t.Elem) == ctype.KindVoid {
		return 0, nil, 0, errorf(ErrAccess, "ctype '%s' cannot be indexed", e.types.String(c.t))
	}
	if base == 0 {
		return 0, nil, 0, errorf(ErrAccess, "attempt to index a NULL pointer of type '%s'", e.types.String(c.t))
	}
	size, err := e.size(t.Elem)
	if err != nil {
		return 0, nil, 0, err
	}
	if t.Kind == ctype.KindArray {
		limit, known := int64(t.Count), t.Count > 0
		if !known {
			if left, ok := c.ownedLeft(); ok && size > 0 {
				limit, known = int64(left/size), true
			}
		}
		if known && (i < 0 || i >= limit) {
			return 0, nil, 0, errorf(ErrAccess, "index %d out of range for '%s'", i, e.types.String(c.t))
		}
	}
	return t.Elem, unsafe.Add(at(base), i*int64(size)), base, nil
}

// ownedLeft is how many bytes of an owned buffer follow c.ptr, when c
// lives inside one allocated by this Env.
func (c *CData) ownedLeft() (int, bool) {
	for x := c; x != nil; x = x.parent {
		if x != c && x.kind() == ctype.KindPointer {
			// дошли через указатель: чужая память
			return 0, false
		}
		if !x.Owned() {
			continue
		}
		start, p := uintptr(x.ptr), uintptr(c.ptr)
		end := start + uintptr(x.env.sizeOrZero(x.t))
		if p < start || p > end {
			return 0, false
		}
		return int(end - p), true
	}
	return 0, false
}

// Index reads element i. Aggregate and pointer elements are views; the
// same view is returned while the caller holds it.
func (c *CData) Index(i int64) (Value, error) {
	elem, p, base, err := c.element(i)
	if err != nil {
		return Nil(), err
	}
	return c.cached(childKey{index: i, base: base}, func() Value {
		return c.env.toHost(elem, p, c)
	}), nil
}

// SetIndex writes element i.
func (c *CData) SetIndex(i int64, v Value) error {
	if c.env.types.MustLookup(c.t).Const {
		return errorf(ErrAccess, "assignment of read-only variable")
	}
	elem, p, _, err := c.element(i)
	if err != nil {
		return err
	}
	return c.env.fromHost(elem, p, v, modeAssign, c.holder())
}

// member resolves a field of a record or of a pointed-to record.
func (c *CData) member(name string) (ctype.Field, unsafe.Pointer, uintptr, error) {
	e := c.env
	t := e.types.MustLookup(c.t)
	rec, base := c.t, uintptr(c.ptr)
	switch {
	case t.Kind == ctype.KindRecord:
	case t.Kind == ctype.KindPointer && e.types.Kind(t.Elem) == ctype.KindRecord:
		rec, base = t.Elem, c.Addr()
	default:
		return ctype.Field{}, nil, 0, errorf(ErrAccess, "cannot get attribute of ctype '%s'", e.types.String(c.t))
	}
	f, off, ok := e.types.FindField(rec, name)
	if !ok {
		return ctype.Field{}, nil, 0, errorf(ErrAccess, "ctype '%s' has no member named '%s'", e.types.String(rec), name)
	}
	if base == 0 {
		return ctype.Field{}, nil, 0, errorf(ErrAccess, "attempt to index a NULL pointer of type '%s'", e.types.String(c.t))
	}
	return f, unsafe.Add(at(base), off), base, nil
}

// Field reads a member, searching anonymous members transparently.
func (c *CData) Field(name string) (Value, error) {
	f, p, base, err := c.member(name)
	if err != nil {
		return Nil(), err
	}
	return c.cached(childKey{field: name, base: base}, func() Value {
		return c.env.toHost(f.Type, p, c)
	}), nil
}

// SetField writes a member.
func (c *CData) SetField(name string, v Value) error {
	if c.env.types.MustLookup(c.t).Const {
		return errorf(ErrAccess, "assignment of read-only variable")
	}
	f, p, _, err := c.member(name)
	if err != nil {
		return err
	}
	return c.env.fromHost(f.Type, p, v, modeAssign, c.holder())
}

// Len is the element count of an array.
func (c *CData) Len() (int, error) {
	t := c.env.types.MustLookup(c.t)
	if t.Kind != ctype.KindArray {
		return 0, errorf(ErrAccess, "ctype '%s' has no length", c.env.types.String(c.t))
	}
	return int(t.Count), nil
}
