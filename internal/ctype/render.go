package ctype

import (
	"strconv"
	"strings"
)

// String renders a type the way C declarations spell it, e.g.
// "const char*", "int* const", "struct point[4]", "int (int,int)".
func (r *Registry) String(id TypeID) string {
	var b strings.Builder
	r.render(&b, id)
	return b.String()
}

func (r *Registry) render(b *strings.Builder, id TypeID) {
	t, ok := r.Lookup(id)
	if !ok {
		b.WriteString("<invalid>")
		return
	}
	if t.Const && t.Kind != KindPointer {
		b.WriteString("const ")
	}
	switch t.Kind {
	case KindPointer:
		r.render(b, t.Elem)
		b.WriteByte('*')
		if t.Const {
			b.WriteString(" const")
		}
	case KindArray:
		// int[2][3]: внешний размер первым
		dims := []uint32{t.Count}
		elem := r.MustLookup(t.Elem)
		base := t.Elem
		for elem.Kind == KindArray {
			dims = append(dims, elem.Count)
			base = elem.Elem
			elem = r.MustLookup(base)
		}
		r.render(b, base)
		for _, n := range dims {
			b.WriteByte('[')
			if n > 0 {
				b.WriteString(strconv.FormatUint(uint64(n), 10))
			}
			b.WriteByte(']')
		}
	case KindFunc:
		fn, ok := r.FuncInfo(id)
		if !ok {
			b.WriteString("func")
			return
		}
		r.render(b, fn.Result)
		b.WriteString(" (")
		for i, p := range fn.Params {
			if i > 0 {
				b.WriteByte(',')
			}
			r.render(b, p)
		}
		if fn.Variadic {
			if len(fn.Params) > 0 {
				b.WriteByte(',')
			}
			b.WriteString("...")
		}
		b.WriteByte(')')
	case KindRecord:
		info := r.recordInfo(id)
		if info == nil {
			b.WriteString("struct")
			return
		}
		if info.Union {
			b.WriteString("union ")
		} else {
			b.WriteString("struct ")
		}
		if info.Anonymous {
			b.WriteString("<anonymous>")
		} else {
			b.WriteString(info.Name)
		}
	default:
		b.WriteString(t.Kind.String())
	}
}
