package ctype

import (
	"errors"
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// TypeID uniquely identifies a type inside a Registry.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Type is a compact descriptor. Elem is the pointee or array element,
// Count the array length (0 = flexible), Payload the record or function slot.
type Type struct {
	Kind    Kind
	Const   bool
	Elem    TypeID
	Count   uint32
	Payload uint32
}

var (
	ErrRedefinition = errors.New("redefinition of symbol")
	ErrUndeclared   = errors.New("undeclared symbol")
	ErrFnRedefined  = errors.New("redefinition of function")
)

// Registry interns type descriptors and owns the tag, typedef and function
// namespaces of one environment. It is not safe for concurrent use.
type Registry struct {
	types   []Type
	index   map[Type]TypeID
	records []RecordInfo
	funcs   []FuncInfo

	tags      map[string]TypeID
	typedefs  map[string]TypeID
	functions map[string]uint32
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		index:     make(map[Type]TypeID, 64),
		tags:      make(map[string]TypeID),
		typedefs:  make(map[string]TypeID),
		functions: make(map[string]uint32),
	}
	r.types = append(r.types, Type{Kind: KindInvalid}) // 0: sentinel
	r.records = append(r.records, RecordInfo{})
	r.funcs = append(r.funcs, FuncInfo{})
	return r
}

// Intern returns the canonical TypeID for a structural descriptor.
// Function descriptors are never shared: each call allocates a new id.
func (r *Registry) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindFunc {
		return r.internRaw(t)
	}
	if id, ok := r.index[t]; ok {
		return id
	}
	id := r.internRaw(t)
	r.index[t] = id
	return id
}

func (r *Registry) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(r.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	r.types = append(r.types, t)
	return TypeID(n)
}

// Lookup returns the descriptor for a TypeID.
func (r *Registry) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(r.types) {
		return Type{}, false
	}
	return r.types[id], true
}

// MustLookup panics when id is invalid.
func (r *Registry) MustLookup(id TypeID) Type {
	t, ok := r.Lookup(id)
	if !ok {
		panic("ctype: invalid TypeID")
	}
	return t
}

// Len reports how many descriptors have been allocated.
func (r *Registry) Len() int { return len(r.types) - 1 }

// Kind is a shortcut for MustLookup(id).Kind; NoTypeID yields KindInvalid.
func (r *Registry) Kind(id TypeID) Kind {
	t, _ := r.Lookup(id)
	return t.Kind
}

// Equal implements C-type equality over canonical ids: everything but
// functions is interned, so identity is structural (nominal for records).
func (r *Registry) Equal(a, b TypeID) bool {
	if a != b {
		return false
	}
	return r.Kind(a) != KindFunc
}

// Primitive interns a scalar or void kind.
func (r *Registry) Primitive(k Kind, isConst bool) TypeID {
	return r.Intern(Type{Kind: k, Const: isConst})
}

// Pointer interns a pointer to elem.
func (r *Registry) Pointer(elem TypeID, isConst bool) TypeID {
	return r.Intern(Type{Kind: KindPointer, Const: isConst, Elem: elem})
}

// Array interns elem[count]; count 0 is a flexible array.
func (r *Registry) Array(elem TypeID, count uint32) TypeID {
	return r.Intern(Type{Kind: KindArray, Elem: elem, Count: count})
}

// WithConst returns the variant of id with the const flag set to c.
// Function types are returned unchanged.
func (r *Registry) WithConst(id TypeID, c bool) TypeID {
	t, ok := r.Lookup(id)
	if !ok || t.Const == c || t.Kind == KindFunc {
		return id
	}
	t.Const = c
	return r.Intern(t)
}

// Elem returns the pointee of a pointer or the element of an array.
func (r *Registry) Elem(id TypeID) (TypeID, bool) {
	t, ok := r.Lookup(id)
	if !ok || (t.Kind != KindPointer && t.Kind != KindArray) {
		return NoTypeID, false
	}
	return t.Elem, true
}

// PointsTo reports whether id is a pointer whose pointee has kind k.
func (r *Registry) PointsTo(id TypeID, k Kind) bool {
	t, ok := r.Lookup(id)
	if !ok || t.Kind != KindPointer {
		return false
	}
	return r.Kind(t.Elem) == k
}

// IsFlexibleArray reports a zero-count array.
func (r *Registry) IsFlexibleArray(id TypeID) bool {
	t, ok := r.Lookup(id)
	return ok && t.Kind == KindArray && t.Count == 0
}

// DefineTypedef binds name to id.
func (r *Registry) DefineTypedef(name string, id TypeID) error {
	if _, exists := r.typedefs[name]; exists {
		return fmt.Errorf("%w '%s'", ErrRedefinition, name)
	}
	r.typedefs[name] = id
	return nil
}

// LookupTypedef resolves a typedef name.
func (r *Registry) LookupTypedef(name string) (TypeID, bool) {
	id, ok := r.typedefs[name]
	return id, ok
}

// Typedefs returns typedef names in lexical order.
func (r *Registry) Typedefs() []string {
	return sortedKeys(r.typedefs)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
