package layout

import (
	"fortio.org/safecast"

	"cffi/internal/ctype"
)

func (e *LayoutEngine) computeLayout(id ctype.TypeID) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsized, Type: id, Name: "<invalid>"}
	}

	switch tt.Kind {
	case ctype.KindVoid, ctype.KindBool, ctype.KindChar, ctype.KindUChar,
		ctype.KindInt8, ctype.KindUint8:
		// sizeof(void) == 1, как у ffi_type_void
		return scalarLayoutBytes(1), nil
	case ctype.KindShort, ctype.KindUShort, ctype.KindInt16, ctype.KindUint16:
		return scalarLayoutBytes(2), nil
	case ctype.KindInt, ctype.KindUInt, ctype.KindInt32, ctype.KindUint32, ctype.KindFloat:
		return scalarLayoutBytes(4), nil
	case ctype.KindLong, ctype.KindULong:
		return scalarLayoutBytes(e.Target.LongSize), nil
	case ctype.KindSizeT:
		return scalarLayoutBytes(e.Target.SizeTSize), nil
	case ctype.KindLongLong, ctype.KindULongLong, ctype.KindInt64, ctype.KindUint64, ctype.KindDouble:
		return scalarLayoutBytes(8), nil

	case ctype.KindPointer, ctype.KindFunc:
		return e.ptrLayout(), nil

	case ctype.KindArray:
		return e.arrayFixedLayout(id, tt.Elem, tt.Count)

	case ctype.KindRecord:
		info, ok := e.Types.RecordInfo(id)
		if !ok || !info.Complete {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrIncomplete, Type: id}
		}
		offsets := make([]int, len(info.Fields))
		for i, f := range info.Fields {
			offsets[i] = f.Offset
		}
		return TypeLayout{Size: info.Size, Align: info.Align, FieldOffsets: offsets}, nil

	default:
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsized, Type: id}
	}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Размер массива: elemSize*count; count == 0 даёт 0 (flexible).
func (e *LayoutEngine) arrayFixedLayout(id, elem ctype.TypeID, length uint32) (TypeLayout, *LayoutError) {
	elemLayout, err := e.LayoutOf(elem)
	if err != nil {
		le, _ := err.(*LayoutError)
		return TypeLayout{Size: 0, Align: 1}, le
	}
	elemAlign := elemLayout.Align
	if elemAlign <= 0 {
		elemAlign = 1
	}
	n, cerr := safecast.Conv[int](length)
	if cerr != nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrLengthConversion, Type: id, Err: cerr}
	}
	size := elemLayout.Size * n
	if n != 0 && size/n != elemLayout.Size {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrLengthConversion, Type: id}
	}
	return TypeLayout{
		Size:  size,
		Align: elemAlign,
	}, nil
}
