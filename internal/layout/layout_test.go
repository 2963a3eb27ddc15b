package layout_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/ctype"
	"cffi/internal/layout"
)

func newEngine() (*ctype.Registry, *layout.LayoutEngine) {
	r := ctype.NewRegistry()
	return r, layout.New(layout.X86_64LinuxGNU(), r)
}

func fields(types ...ctype.TypeID) []ctype.Field {
	out := make([]ctype.Field, len(types))
	for i, t := range types {
		out[i] = ctype.Field{Name: string(rune('a' + i)), Type: t}
	}
	return out
}

func TestScalarSizes(t *testing.T) {
	r, e := newEngine()
	cases := map[ctype.Kind]int{
		ctype.KindBool: 1, ctype.KindChar: 1, ctype.KindShort: 2, ctype.KindInt: 4,
		ctype.KindLong: 8, ctype.KindULongLong: 8, ctype.KindFloat: 4, ctype.KindDouble: 8,
		ctype.KindSizeT: 8, ctype.KindUint16: 2, ctype.KindVoid: 1,
	}
	for k, want := range cases {
		got, err := e.SizeOf(r.Primitive(k, false))
		if err != nil || got != want {
			t.Errorf("sizeof(%s) = %d, %v; want %d", k, got, err, want)
		}
	}
	if n, _ := e.SizeOf(r.Pointer(r.Primitive(ctype.KindVoid, false), false)); n != 8 {
		t.Errorf("sizeof(void*) = %d", n)
	}
}

func TestStructPadding(t *testing.T) {
	r, e := newEngine()
	got, err := e.Record(fields(r.Primitive(ctype.KindChar, false), r.Primitive(ctype.KindInt, false)), false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != 8 || got.Align != 4 {
		t.Fatalf("struct {char; int;} = size %d align %d", got.Size, got.Align)
	}
	if diff := cmp.Diff([]int{0, 4}, got.FieldOffsets); diff != "" {
		t.Fatalf("offsets (-want +got):\n%s", diff)
	}
}

func TestFlexibleArrayIsTailMarker(t *testing.T) {
	r, e := newEngine()
	data := r.Array(r.Primitive(ctype.KindChar, false), 0)
	got, err := e.Record(fields(r.Primitive(ctype.KindInt, false), data), false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != 4 || got.FieldOffsets[1] != 4 {
		t.Fatalf("struct {int n; char data[];} = size %d offsets %v", got.Size, got.FieldOffsets)
	}

	// Маркер ставится сразу после предыдущего поля, без выравнивания.
	ints := r.Array(r.Primitive(ctype.KindInt, false), 0)
	got, err = e.Record(fields(r.Primitive(ctype.KindChar, false), ints), false)
	if err != nil {
		t.Fatal(err)
	}
	if got.FieldOffsets[1] != 1 {
		t.Fatalf("flexible offset = %d, want 1", got.FieldOffsets[1])
	}
}

func TestUnionLayout(t *testing.T) {
	r, e := newEngine()
	got, err := e.Record(fields(r.Primitive(ctype.KindInt, false), r.Primitive(ctype.KindDouble, false)), true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != 8 || got.Align != 8 || got.Rep != 1 {
		t.Fatalf("union {int; double;} = %+v", got)
	}
	got, _ = e.Record(fields(r.Array(r.Primitive(ctype.KindChar, false), 5), r.Primitive(ctype.KindInt, false)), true)
	if got.Size != 8 || got.Rep != 0 {
		t.Fatalf("union {char[5]; int;} = %+v", got)
	}
}

func TestArrayAndRecordLayout(t *testing.T) {
	r, e := newEngine()
	pt, _ := r.DeclareRecord("pt", false)
	rl, _ := e.Record(fields(r.Primitive(ctype.KindShort, false), r.Primitive(ctype.KindLong, false)), false)
	flds := fields(r.Primitive(ctype.KindShort, false), r.Primitive(ctype.KindLong, false))
	for i := range flds {
		flds[i].Offset = rl.FieldOffsets[i]
	}
	r.CompleteRecord(pt, flds, rl.Size, rl.Align, rl.Rep)

	arr := r.Array(pt, 3)
	l, err := e.LayoutOf(arr)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 48 || l.Align != 8 {
		t.Fatalf("struct pt[3] = %+v", l)
	}
	if off, _ := e.FieldOffset(pt, 1); off != 8 {
		t.Fatalf("offset of pt.b = %d", off)
	}
}

func TestIncompleteRecord(t *testing.T) {
	r, e := newEngine()
	id, _ := r.DeclareRecord("later", false)
	_, err := e.LayoutOf(id)
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != layout.LayoutErrIncomplete {
		t.Fatalf("expected incomplete error, got %v", err)
	}
	if lerr.Error() != "incomplete type 'struct later'" {
		t.Fatalf("message = %q", lerr.Error())
	}
	r.CompleteRecord(id, nil, 0, 1, -1)
	if _, err := e.LayoutOf(id); err != nil {
		t.Fatalf("completed record must lay out, got %v", err)
	}
}
