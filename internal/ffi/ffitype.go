package ffi

import (
	"cffi/internal/ctype"
	"cffi/internal/native"
)

// nativeType returns the libffi descriptor of id. Records are built once
// per Env and released by Close.
func (e *Env) nativeType(id ctype.TypeID) (*native.Type, error) {
	if s, ok := e.scalar(id); ok {
		return native.ScalarType(s), nil
	}
	if t, ok := e.ffiTypes[id]; ok {
		return t, nil
	}
	if e.types.Kind(id) != ctype.KindRecord {
		return nil, errorf(ErrCall, "unsupported type '%s'", e.types.String(id))
	}
	info, ok := e.types.RecordInfo(id)
	if !ok || !info.Complete {
		return nil, errorf(ErrDeclaration, "incomplete type '%s'", e.types.String(id))
	}

	var elems []*native.Type
	if info.Union {
		// libffi не знает объединений: берём самый большой член,
		// массив раскладывается на элементы как в структуре.
		if info.Rep >= 0 {
			var err error
			if elems, err = e.appendElems(elems, info.Fields[info.Rep].Type); err != nil {
				return nil, err
			}
		}
	} else {
		for _, f := range info.Fields {
			var err error
			if elems, err = e.appendElems(elems, f.Type); err != nil {
				return nil, err
			}
		}
	}
	if len(elems) == 0 {
		return nil, errorf(ErrCall, "unsupported type '%s'", e.types.String(id))
	}
	t, err := native.StructType(elems)
	if err != nil {
		return nil, wrapError(ErrCall, err, "%v", err)
	}
	e.ffiTypes[id] = t
	e.owned = append(e.owned, t)
	return t, nil
}

// appendElems adds the members a field contributes. Fixed arrays expand
// into their elements; flexible arrays contribute nothing.
func (e *Env) appendElems(elems []*native.Type, id ctype.TypeID) ([]*native.Type, error) {
	t := e.types.MustLookup(id)
	if t.Kind != ctype.KindArray {
		el, err := e.nativeType(id)
		if err != nil {
			return elems, err
		}
		return append(elems, el), nil
	}
	for range t.Count {
		var err error
		if elems, err = e.appendElems(elems, t.Elem); err != nil {
			return elems, err
		}
	}
	return elems, nil
}
