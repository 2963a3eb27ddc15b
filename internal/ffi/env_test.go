package ffi_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/ffi"
)

func newEnv(t *testing.T, decls ...string) *ffi.Env {
	t.Helper()
	e := ffi.New()
	t.Cleanup(func() { _ = e.Close() })
	for _, d := range decls {
		if err := e.Cdef(d); err != nil {
			t.Fatalf("cdef %q: %v", d, err)
		}
	}
	return e
}

func mustNew(t *testing.T, e *ffi.Env, spec string, args ...ffi.Value) *ffi.CData {
	t.Helper()
	cd, err := e.New(ffi.Str(spec), args...)
	if err != nil {
		t.Fatalf("new %s: %v", spec, err)
	}
	return cd
}

func wantErr(t *testing.T, err error, kind ffi.ErrorKind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	var fe *ffi.Error
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is %T, want *ffi.Error", err, err)
	}
	if fe.Kind != kind || fe.Msg != msg {
		t.Fatalf("got %s %q, want %s %q", fe.Kind, fe.Msg, kind, msg)
	}
}

func TestArrayTypesAreInterned(t *testing.T) {
	e := newEnv(t, "typedef int quad_t[4];")
	a, err := e.TypeOf(ffi.Str("int[4]"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.TypeOf(ffi.Str("quad_t"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("int[4] and quad_t are different handles: %v, %v", a, b)
	}
	ok, err := e.IsType(ffi.Str("int[4]"), ffi.FromCData(mustNew(t, e, "quad_t")))
	if err != nil || !ok {
		t.Fatalf("istype(int[4], quad_t value) = %v, %v", ok, err)
	}
}

func TestRecordsAreNominal(t *testing.T) {
	e := newEnv(t, "struct a { int x; }; struct b { int x; };")
	ok, err := e.IsType(ffi.Str("struct a"), ffi.FromCData(mustNew(t, e, "struct b")))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("struct a and struct b must be distinct")
	}
}

func TestLayoutQueries(t *testing.T) {
	e := newEnv(t,
		"struct s { char a; int b; };",
		"union u { int i; double d; };",
		"struct blob { int n; char data[]; };",
	)
	type fact struct {
		Query string
		Value int
	}
	var got []fact
	add := func(q string, n int, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		got = append(got, fact{q, n})
	}
	n, err := e.SizeOf(ffi.Str("struct s"))
	add("sizeof s", n, err)
	off, ok, err := e.OffsetOf(ffi.Str("struct s"), "b")
	if !ok {
		t.Fatal("offsetof(s, b) has no value")
	}
	add("offsetof s.b", off, err)
	n, err = e.SizeOf(ffi.Str("union u"))
	add("sizeof u", n, err)
	n, err = e.AlignOf(ffi.Str("union u"))
	add("alignof u", n, err)
	off, _, err = e.OffsetOf(ffi.Str("struct blob"), "data")
	add("offsetof blob.data", off, err)
	n, err = e.SizeOf(ffi.Str("struct blob"))
	add("sizeof blob", n, err)

	want := []fact{
		{"sizeof s", 8}, {"offsetof s.b", 4},
		{"sizeof u", 8}, {"alignof u", 8},
		{"offsetof blob.data", 4}, {"sizeof blob", 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("layout (-want +got):\n%s", diff)
	}
}

func TestOffsetOfWithoutValue(t *testing.T) {
	e := newEnv(t, "struct s { int a; };")
	for _, q := range [][2]string{{"int", "a"}, {"struct s", "zz"}} {
		_, ok, err := e.OffsetOf(ffi.Str(q[0]), q[1])
		if err != nil || ok {
			t.Errorf("offsetof(%s, %s) = ok %v, err %v; want no value", q[0], q[1], ok, err)
		}
	}
}

func TestCdefErrors(t *testing.T) {
	e := newEnv(t, "struct s { int a; };")
	wantErr(t, e.Cdef("struct s { int b; };"), ffi.ErrDeclaration, "1:redefinition of symbol 's'")
	wantErr(t, e.Cdef("int a(int)\nint b(int);"), ffi.ErrSyntax, "2:';' expected before 'int'")
	wantErr(t, e.Cdef("\n\nstruct missing *get(void);"), ffi.ErrDeclaration, "3:undeclared symbol 'missing'")
}

func TestCdefKeepsEarlierDeclarations(t *testing.T) {
	e := newEnv(t)
	err := e.Cdef("typedef int first_t; struct broken { int a int b; };")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := e.SizeOf(ffi.Str("first_t")); err != nil {
		t.Fatalf("first_t lost: %v", err)
	}
}

func TestTypeStrings(t *testing.T) {
	e := newEnv(t, "struct p { int x; };")
	var got []string
	for _, s := range []string{"const char*", "int[2][3]", "struct p*", "char* const"} {
		ty, err := e.TypeOf(ffi.Str(s))
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		got = append(got, ffi.FromType(ty).String())
	}
	want := []string{"ctype<const char*>", "ctype<int[2][3]>", "ctype<struct p*>", "ctype<char* const>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("type strings (-want +got):\n%s", diff)
	}
}

func TestBadTypeString(t *testing.T) {
	e := newEnv(t)
	_, err := e.SizeOf(ffi.Str("struct nope"))
	wantErr(t, err, ffi.ErrDeclaration, "1:undeclared symbol 'nope'")
	_, err = e.SizeOf(ffi.Int(3))
	wantErr(t, err, ffi.ErrConversion, "ctype expected, got number")
}
