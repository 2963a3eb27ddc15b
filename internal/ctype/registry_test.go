package ctype_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/ctype"
)

func TestInternIsIdempotent(t *testing.T) {
	r := ctype.NewRegistry()
	i1 := r.Primitive(ctype.KindInt, false)
	i2 := r.Intern(ctype.Type{Kind: ctype.KindInt})
	if i1 != i2 {
		t.Fatalf("int interned twice: %d vs %d", i1, i2)
	}
	a1 := r.Array(i1, 4)
	a2 := r.Array(r.Primitive(ctype.KindInt, false), 4)
	if a1 != a2 || !r.Equal(a1, a2) {
		t.Fatalf("int[4] not canonical")
	}
	if r.Array(i1, 5) == a1 {
		t.Fatalf("different counts must differ")
	}
	if r.Primitive(ctype.KindInt, true) == i1 {
		t.Fatalf("const must be part of identity")
	}
	p1 := r.Pointer(r.Pointer(i1, false), false)
	p2 := r.Pointer(r.Pointer(i2, false), false)
	if p1 != p2 {
		t.Fatalf("int** not canonical")
	}
}

func TestRecordsAreNominal(t *testing.T) {
	r := ctype.NewRegistry()
	intT := r.Primitive(ctype.KindInt, false)
	a, err := r.DeclareRecord("a", false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.DeclareRecord("b", false)
	if err != nil {
		t.Fatal(err)
	}
	fields := []ctype.Field{{Name: "x", Type: intT}}
	r.CompleteRecord(a, fields, 4, 4, -1)
	r.CompleteRecord(b, fields, 4, 4, -1)
	if r.Equal(a, b) {
		t.Fatalf("records with same shape must be distinct")
	}
	if _, err := r.DeclareRecord("a", true); !errors.Is(err, ctype.ErrRedefinition) {
		t.Fatalf("expected redefinition, got %v", err)
	}
	if got, ok := r.LookupTag("a"); !ok || got != a {
		t.Fatalf("tag lookup failed")
	}
	if _, err := r.RequireTag("nope"); !errors.Is(err, ctype.ErrUndeclared) {
		t.Fatalf("expected undeclared, got %v", err)
	}
}

func TestFunctionTypesNeverEqual(t *testing.T) {
	r := ctype.NewRegistry()
	intT := r.Primitive(ctype.KindInt, false)
	if err := r.DeclareFunc(ctype.FuncInfo{Name: "abs", Params: []ctype.TypeID{intT}, Result: intT}); err != nil {
		t.Fatal(err)
	}
	f1, _ := r.FuncType("abs")
	f2, _ := r.FuncType("abs")
	if f1 == f2 || r.Equal(f1, f1) {
		t.Fatalf("function types must be fresh and never equal")
	}
	if err := r.DeclareFunc(ctype.FuncInfo{Name: "abs", Result: intT}); !errors.Is(err, ctype.ErrFnRedefined) {
		t.Fatalf("expected function redefinition, got %v", err)
	}
}

func TestFindFieldThroughAnonymous(t *testing.T) {
	r := ctype.NewRegistry()
	intT := r.Primitive(ctype.KindInt, false)
	dbl := r.Primitive(ctype.KindDouble, false)
	inner := r.NewAnonymousRecord(true)
	r.CompleteRecord(inner, []ctype.Field{{Name: "i", Type: intT}, {Name: "d", Type: dbl}}, 8, 8, 1)
	outer, _ := r.DeclareRecord("outer", false)
	r.CompleteRecord(outer, []ctype.Field{{Name: "tag", Type: intT}, {Type: inner, Offset: 8}}, 16, 8, -1)

	f, off, ok := r.FindField(outer, "d")
	if !ok || off != 8 || f.Type != dbl {
		t.Fatalf("FindField(d) = %+v, %d, %v", f, off, ok)
	}
	if _, ok := r.DirectField(outer, "d"); ok {
		t.Fatalf("DirectField must not descend into anonymous members")
	}
}

func TestRender(t *testing.T) {
	r := ctype.NewRegistry()
	char := r.Primitive(ctype.KindChar, true)
	intT := r.Primitive(ctype.KindInt, false)
	pt, _ := r.DeclareRecord("point", false)
	anon := r.NewAnonymousRecord(true)
	_ = r.DeclareFunc(ctype.FuncInfo{Name: "printf", Params: []ctype.TypeID{r.Pointer(char, false)}, Variadic: true, Result: intT})
	fn, _ := r.FuncType("printf")

	got := []string{
		r.String(r.Pointer(char, false)),
		r.String(r.Pointer(intT, true)),
		r.String(r.Array(pt, 4)),
		r.String(r.Array(r.Primitive(ctype.KindUChar, false), 0)),
		r.String(anon),
		r.String(fn),
	}
	want := []string{
		"const char*",
		"int* const",
		"struct point[4]",
		"unsigned char[]",
		"union <anonymous>",
		"int (const char*,...)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestForgetIncompleteRecord(t *testing.T) {
	r := ctype.NewRegistry()
	id, _ := r.DeclareRecord("s", false)
	r.ForgetRecord(id)
	if _, ok := r.LookupTag("s"); ok {
		t.Fatalf("incomplete tag must be forgotten")
	}
	id2, err := r.DeclareRecord("s", false)
	if err != nil {
		t.Fatal(err)
	}
	r.CompleteRecord(id2, nil, 0, 1, -1)
	r.ForgetRecord(id2)
	if _, ok := r.LookupTag("s"); !ok {
		t.Fatalf("complete tag must survive ForgetRecord")
	}
}
