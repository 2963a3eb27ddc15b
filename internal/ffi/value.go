package ffi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind is the dynamic kind of a host value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindUint // only for values above math.MaxInt64
	KindFloat
	KindString
	KindPointer  // light pointer: a bare address
	KindUserdata // opaque host object with an address
	KindCData
	KindCType
	KindList
	KindMap
)

var valueKindNames = [...]string{
	KindNil:      "nil",
	KindBool:     "boolean",
	KindInt:      "number",
	KindUint:     "number",
	KindFloat:    "number",
	KindString:   "string",
	KindPointer:  "pointer",
	KindUserdata: "userdata",
	KindCData:    "cdata",
	KindCType:    "ctype",
	KindList:     "list",
	KindMap:      "map",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "unknown"
}

// Value is a host value crossing the FFI boundary. The zero Value is nil.
type Value struct {
	Kind ValueKind

	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	addr uintptr
	cd   *CData
	ct   *Type
	list []Value
	m    *mapValue
}

type mapValue struct {
	keys []string
	vals map[string]Value
}

// MapEntry is one key of a map Value, in insertion order.
type MapEntry struct {
	Key string
	Val Value
}

func Nil() Value               { return Value{} }
func Bool(b bool) Value        { return Value{Kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{Kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{Kind: KindFloat, f: f} }
func Str(s string) Value       { return Value{Kind: KindString, s: s} }
func Ptr(addr uintptr) Value   { return Value{Kind: KindPointer, addr: addr} }
func List(vs ...Value) Value   { return Value{Kind: KindList, list: vs} }
func FromType(t *Type) Value   { return Value{Kind: KindCType, ct: t} }
func FromCData(c *CData) Value { return Value{Kind: KindCData, cd: c} }

// Uint keeps values that fit int64 as KindInt.
func Uint(u uint64) Value {
	if u <= math.MaxInt64 {
		return Int(int64(u))
	}
	return Value{Kind: KindUint, u: u}
}

// Userdata wraps an opaque host object living at addr.
func Userdata(addr uintptr) Value { return Value{Kind: KindUserdata, addr: addr} }

// Map builds a map Value; later duplicates of a key win.
func Map(entries ...MapEntry) Value {
	m := &mapValue{vals: make(map[string]Value, len(entries))}
	for _, e := range entries {
		if _, ok := m.vals[e.Key]; !ok {
			m.keys = append(m.keys, e.Key)
		}
		m.vals[e.Key] = e.Val
	}
	return Value{Kind: KindMap, m: m}
}

func (v Value) IsNil() bool { return v.Kind == KindNil }

// IsNumber reports bool-free numeric kinds.
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindUint || v.Kind == KindFloat
}

// Integral returns the value as int64 when it is a whole number that fits.
func (v Value) Integral() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return int64(v.f), true
		}
	}
	return 0, false
}

func (v Value) AsBool() bool       { return v.Kind == KindBool && v.b }
func (v Value) AsString() string   { return v.s }
func (v Value) AsPointer() uintptr { return v.addr }
func (v Value) CData() *CData      { return v.cd }
func (v Value) CType() *Type       { return v.ct }
func (v Value) Elems() []Value     { return v.list }

// AsInt converts any numeric or boolean value with C cast semantics.
func (v Value) AsInt() int64 {
	switch v.Kind {
	case KindBool:
		if v.b {
			return 1
		}
	case KindInt:
		return v.i
	case KindUint:
		return int64(v.u)
	case KindFloat:
		return int64(v.f)
	case KindPointer, KindUserdata:
		return int64(v.addr)
	}
	return 0
}

// AsUint is AsInt for unsigned targets; large floats keep their value.
func (v Value) AsUint() uint64 {
	switch v.Kind {
	case KindUint:
		return v.u
	case KindFloat:
		if v.f >= math.MaxInt64 {
			return uint64(v.f)
		}
	}
	return uint64(v.AsInt())
}

func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KindFloat:
		return v.f
	case KindUint:
		return float64(v.u)
	default:
		return float64(v.AsInt())
	}
}

// Get looks up a map key.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	x, ok := v.m.vals[key]
	return x, ok
}

// Entries lists a map in insertion order.
func (v Value) Entries() []MapEntry {
	if v.Kind != KindMap {
		return nil
	}
	out := make([]MapEntry, len(v.m.keys))
	for i, k := range v.m.keys {
		out[i] = MapEntry{Key: k, Val: v.m.vals[k]}
	}
	return out
}

// TypeName is the name used in conversion errors: the host kind, or the
// C type for cdata.
func (v Value) TypeName() string {
	if v.Kind == KindCData && v.cd != nil {
		return v.cd.Type().String()
	}
	return v.Kind.String()
}

// String renders the value the way the REPL prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindPointer:
		return fmt.Sprintf("pointer: %#x", v.addr)
	case KindUserdata:
		return fmt.Sprintf("userdata: %#x", v.addr)
	case KindCData:
		return v.cd.String()
	case KindCType:
		return "ctype<" + v.ct.String() + ">"
	case KindList:
		parts := make([]string, len(v.list))
		for i, x := range v.list {
			parts[i] = x.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.m.keys))
		for _, k := range v.m.keys {
			parts = append(parts, k+": "+v.m.vals[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// hostEqual compares plain host values; numbers compare by value.
func hostEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Kind == KindFloat || b.Kind == KindFloat {
			return a.AsFloat() == b.AsFloat()
		}
		if a.Kind != b.Kind {
			return false // KindUint is always above MaxInt64
		}
		return a.i == b.i && a.u == b.u
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindPointer, KindUserdata:
		return a.addr == b.addr
	case KindCType:
		return a.ct == b.ct
	}
	return false
}
