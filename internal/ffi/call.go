package ffi

import (
	"strconv"
	"unsafe"

	"cffi/internal/ctype"
	"cffi/internal/native"
	"cffi/internal/trace"
)

// argSlot is the size of every argument and return buffer: libffi widens
// small integral results to a full register.
const argSlot = 8

// Call invokes a function CData. Fixed arguments convert like assignment;
// variadic ones are typed from the value itself.
func (c *CData) Call(args ...Value) (Value, error) {
	e := c.env
	if c.kind() != ctype.KindFunc {
		return Nil(), errorf(ErrCall, "'%s' is not callable", e.types.String(c.t))
	}
	fn, _ := e.types.FuncInfo(c.t)
	if len(args) < len(fn.Params) || !fn.Variadic && len(args) != len(fn.Params) {
		return Nil(), errorf(ErrCall, "wrong number of arguments for function call")
	}
	sym := c.Addr()
	if sym == 0 {
		return Nil(), errorf(ErrAccess, "attempt to call a NULL function pointer")
	}

	span := trace.Begin(e.tracer, trace.ScopeCall, "call:"+fn.Name, 0)
	span.WithExtra("args", strconv.Itoa(len(args)))

	var scratch allocs
	defer scratch.release()

	atypes := make([]*native.Type, len(args))
	avals := make([]unsafe.Pointer, len(args))
	for i, a := range args {
		var err error
		if i < len(fn.Params) {
			atypes[i], avals[i], err = e.fixedArg(fn.Params[i], a, &scratch)
		} else {
			atypes[i], avals[i], err = e.varArg(a, &scratch)
		}
		if err != nil {
			span.End("error")
			return Nil(), wrapError(KindOf(err), err, "bad argument #%d to '%s' (%s)", i+1, fn.Name, err.Error())
		}
	}

	rt := fn.Result
	rtype, err := e.nativeType(rt)
	if err != nil {
		span.End("error")
		return Nil(), errorf(ErrCall, "unsupported return type '%s'", e.types.String(rt))
	}
	cif, err := native.Prep(rtype, atypes, len(fn.Params), fn.Variadic)
	if err != nil {
		span.End("error")
		return Nil(), wrapError(ErrCall, err, "%v", err)
	}
	defer cif.Free()

	var (
		ret   *CData
		rbuf  unsafe.Pointer
		rkind = e.types.Kind(rt)
	)
	switch rkind {
	case ctype.KindRecord:
		if ret, err = e.newOwned(rt); err != nil {
			span.End("error")
			return Nil(), err
		}
		rbuf = ret.ptr
	case ctype.KindVoid:
	default:
		rbuf = scratch.alloc(max(e.sizeOrZero(rt), argSlot))
	}

	e.errno = cif.Call(at(sym), rbuf, avals, e.errno)
	span.WithExtra("errno", strconv.Itoa(e.errno)).End("")

	switch rkind {
	case ctype.KindRecord:
		return FromCData(ret), nil
	case ctype.KindVoid:
		return Nil(), nil
	case ctype.KindPointer:
		return FromCData(e.newPointer(rt, *(*uintptr)(rbuf), nil)), nil
	}
	return e.loadNumber(rt, resultAt(rbuf, e.sizeOrZero(rt))), nil
}

// Call resolves fn as a function CData, a declared name in the default
// namespace, or anything callable through Get.
func (e *Env) Call(fn Value, args ...Value) (Value, error) {
	switch fn.Kind {
	case KindCData:
		return fn.cd.Call(args...)
	case KindString:
		cd, err := e.C.Func(fn.s)
		if err != nil {
			return Nil(), err
		}
		return cd.Call(args...)
	}
	return Nil(), errorf(ErrCall, "'%s' is not callable", fn.TypeName())
}

// resultAt locates a small integral result inside its widened slot.
func resultAt(p unsafe.Pointer, size int) unsafe.Pointer {
	if native.LittleEndian || size >= argSlot {
		return p
	}
	return unsafe.Add(p, argSlot-size)
}

func (e *Env) fixedArg(pt ctype.TypeID, v Value, scratch *allocs) (*native.Type, unsafe.Pointer, error) {
	ft, err := e.nativeType(pt)
	if err != nil {
		return nil, nil, err
	}
	slot := scratch.alloc(max(e.sizeOrZero(pt), argSlot))
	if err := e.fromHost(pt, slot, v, modeAssign, scratch); err != nil {
		return nil, nil, err
	}
	return ft, slot, nil
}

// varArg types an argument passed through "...". Floats go as double and
// integers as 64-bit; CData numbers get the C default promotions.
func (e *Env) varArg(v Value, scratch *allocs) (*native.Type, unsafe.Pointer, error) {
	slot := scratch.alloc(argSlot)
	put := func(s native.Scalar, x Value) (*native.Type, unsafe.Pointer, error) {
		store(s, slot, x)
		return native.ScalarType(s), slot, nil
	}
	ptr := func(addr uintptr) (*native.Type, unsafe.Pointer, error) {
		*(*uintptr)(slot) = addr
		return native.ScalarType(native.Pointer), slot, nil
	}

	switch v.Kind {
	case KindBool:
		return put(native.Sint32, Int(int64(boolByte(v.b))))
	case KindInt:
		return put(native.Sint64, v)
	case KindUint:
		return put(native.Uint64, v)
	case KindFloat:
		// целые числа уходят в int64, как и KindInt
		if n, ok := v.Integral(); ok {
			return put(native.Sint64, Int(n))
		}
		return put(native.Double, v)
	case KindNil:
		return ptr(0)
	case KindString:
		return ptr(uintptr(scratch.cstring(v.s)))
	case KindPointer, KindUserdata:
		return ptr(v.addr)
	case KindCData:
		cd := v.cd
		k := cd.kind()
		switch {
		case k == ctype.KindRecord || k == ctype.KindArray:
			return ptr(uintptr(cd.ptr))
		case k == ctype.KindPointer || k == ctype.KindFunc:
			return ptr(cd.Addr())
		case k.IsFloat():
			return put(native.Double, e.loadNumber(cd.t, cd.ptr))
		case k.IsInteger():
			s, _ := e.scalar(cd.t)
			if e.sizeOrZero(cd.t) < 4 {
				s = native.Sint32
			}
			return put(s, e.loadNumber(cd.t, cd.ptr))
		}
	}
	return nil, nil, errorf(ErrCall, "unsupported type '%s'", v.TypeName())
}
