package cparse_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/layout"
	"cffi/internal/source"
	"cffi/internal/testkit"
)

type env struct {
	fs     *source.FileSet
	types  *ctype.Registry
	layout *layout.LayoutEngine
}

func newEnv() *env {
	r := ctype.NewRegistry()
	return &env{fs: source.NewFileSet(), types: r, layout: layout.New(layout.X86_64LinuxGNU(), r)}
}

func (e *env) cdef(t *testing.T, src string) (cparse.Result, *diag.Bag) {
	t.Helper()
	id := e.fs.AddVirtual("cdef", []byte(src))
	bag := diag.NewBag(8)
	res := cparse.ParseDecls(e.fs.Get(id), e.types, cparse.Options{
		Reporter: diag.BagReporter{Bag: bag},
		Layout:   e.layout,
	})
	return res, bag
}

func (e *env) mustCdef(t *testing.T, src string) cparse.Result {
	t.Helper()
	res, bag := e.cdef(t, src)
	if res.Failed || bag.HasErrors() {
		t.Fatalf("cdef %q failed: %s", src, summary(bag))
	}
	if id, ok := e.fs.GetLatest("cdef"); ok {
		if err := testkit.CheckDeclSpans(res.Decls, e.fs.Get(id)); err != nil {
			t.Fatalf("cdef %q: %v", src, err)
		}
	}
	return res
}

func (e *env) typeOf(t *testing.T, src string) ctype.TypeID {
	t.Helper()
	id := e.fs.AddVirtual("type", []byte(src))
	bag := diag.NewBag(4)
	te, ok := cparse.ParseType(e.fs.Get(id), e.types, cparse.Options{Reporter: diag.BagReporter{Bag: bag}, Layout: e.layout}, false)
	if !ok {
		t.Fatalf("type %q failed: %s", src, summary(bag))
	}
	return te.Type
}

func summary(bag *diag.Bag) string {
	var parts []string
	for _, d := range bag.Items() {
		parts = append(parts, "["+d.Code.ID()+"] "+d.Message)
	}
	return strings.Join(parts, "; ")
}

func TestIntegerKinds(t *testing.T) {
	e := newEnv()
	cases := map[string]string{
		"unsigned":              "unsigned int",
		"signed":                "int",
		"signed char":           "char",
		"unsigned char":         "unsigned char",
		"long int":              "long",
		"long long":             "long long",
		"long long int":         "long long",
		"unsigned long long":    "unsigned long long",
		"unsigned long int":     "unsigned long",
		"int long":              "long",
		"short int":             "short",
		"const char *":          "const char*",
		"char * const":          "char* const",
		"const unsigned int **": "const unsigned int**",
		"uint8_t[16]":           "uint8_t[16]",
		"int[2][3]":             "int[2][3]",
		"size_t":                "size_t",
		"double const":          "const double",
	}
	for src, want := range cases {
		if got := e.types.String(e.typeOf(t, src)); got != want {
			t.Errorf("%q renders as %q, want %q", src, got, want)
		}
	}
}

func TestTypedefAndStructLayout(t *testing.T) {
	e := newEnv()
	res := e.mustCdef(t, `
		// comment
		#define IGNORED 1
		typedef struct point { char a; int b; } point_t;
		typedef unsigned long ulong_t;
	`)
	var got []string
	for _, d := range res.Decls {
		got = append(got, d.Kind.String()+" "+d.Name)
	}
	if diff := cmp.Diff([]string{"record point", "typedef point_t", "typedef ulong_t"}, got); diff != "" {
		t.Fatalf("decls (-want +got):\n%s", diff)
	}

	pt := e.typeOf(t, "point_t")
	if e.typeOf(t, "struct point") != pt {
		t.Fatalf("typedef must resolve to the record")
	}
	if n, _ := e.layout.SizeOf(pt); n != 8 {
		t.Fatalf("sizeof(point) = %d", n)
	}
	if _, off, ok := e.types.FindField(pt, "b"); !ok || off != 4 {
		t.Fatalf("offsetof(b) = %d", off)
	}
}

func TestFlexibleArrayMember(t *testing.T) {
	e := newEnv()
	e.mustCdef(t, "struct buf { int n; char data[]; }; struct q { int n; char data[?]; };")
	id := e.typeOf(t, "struct buf")
	f, off, ok := e.types.FindField(id, "data")
	if !ok || off != 4 || !e.types.IsFlexibleArray(f.Type) {
		t.Fatalf("data = %+v @%d", f, off)
	}
	if n, _ := e.layout.SizeOf(id); n != 4 {
		t.Fatalf("sizeof(struct buf) = %d", n)
	}
}

func TestSelfReferentialRecord(t *testing.T) {
	e := newEnv()
	e.mustCdef(t, "struct node { int v; struct node *next; };")
	node := e.typeOf(t, "struct node")
	f, off, _ := e.types.FindField(node, "next")
	if off != 8 || f.Type != e.types.Pointer(node, false) {
		t.Fatalf("next = %+v @%d", f, off)
	}
}

func TestAnonymousMembers(t *testing.T) {
	e := newEnv()
	e.mustCdef(t, "struct v { int tag; union { int i; double d; }; struct { char c; } s; };")
	v := e.typeOf(t, "struct v")
	if _, off, ok := e.types.FindField(v, "d"); !ok || off != 8 {
		t.Fatalf("offset(d) = %d, %v", off, ok)
	}
	if _, _, ok := e.types.FindField(v, "c"); ok {
		t.Fatalf("named member 's' must not be transparent")
	}
	if n, _ := e.layout.SizeOf(v); n != 24 {
		t.Fatalf("sizeof(struct v) = %d", n)
	}
}

func TestFunctions(t *testing.T) {
	e := newEnv()
	e.mustCdef(t, `
		int printf(const char *fmt, ...);
		int abs(int);
		void srand(void);
		void sort(int a[8], size_t n);
		char *strchr(const char *, int);
	`)
	check := func(name, want string, variadic bool) {
		t.Helper()
		fn, ok := e.types.FuncType(name)
		if !ok {
			t.Fatalf("%s not declared", name)
		}
		if got := e.types.String(fn); got != want {
			t.Errorf("%s: %q, want %q", name, got, want)
		}
		if info, _ := e.types.FuncInfo(fn); info.Variadic != variadic {
			t.Errorf("%s: variadic=%v", name, info.Variadic)
		}
	}
	check("printf", "int (const char*,...)", true)
	check("abs", "int (int)", false)
	check("srand", "void ()", false)
	check("sort", "void (int*,size_t)", false)
	check("strchr", "char* (const char*,int)", false)
}

func TestDeclarationErrors(t *testing.T) {
	cases := []struct {
		name, prelude, src string
		code               diag.Code
		msg                string
	}{
		{"duplicate member", "", "struct s { int a; char a; };", diag.SemaDuplicateMember, "duplicate member 'a'"},
		{"duplicate through anonymous", "", "struct s { int a; struct { int a; }; };", diag.SemaDuplicateMember, "duplicate member 'a'"},
		{"duplicate after anonymous", "", "struct s { union { int a; char c; }; long a; };", diag.SemaDuplicateMember, "duplicate member 'a'"},
		{"tagged member without name", "", "struct a { struct b { int x; }; };", diag.SemaNoMember, "declaration of 'struct b' does not declare a member"},
		{"tagged forward member", "struct b { int x; };", "struct a { struct b; };", diag.SemaNoMember, "declaration of 'struct b' does not declare a member"},
		{"record redefinition", "struct s { int a; };", "struct s { int b; };", diag.SemaDuplicateSymbol, "redefinition of symbol 's'"},
		{"typedef redefinition", "typedef int myint;", "typedef long myint;", diag.SemaDuplicateSymbol, "redefinition of symbol 'myint'"},
		{"function redefinition", "int f(int);", "int f(int);", diag.SemaFnRedefinition, "redefinition of function 'f'"},
		{"negative array", "", "struct s { int a[-1]; };", diag.SemaNegativeArraySize, "size of array is negative"},
		{"void member", "", "struct s { void x; };", diag.SemaVoidForbidden, "void type in forbidden context near 'x'"},
		{"void argument", "", "int f(int a, void);", diag.SemaVoidForbidden, "void type in forbidden context near ')'"},
		{"undeclared tag", "", "struct missing *get(void);", diag.SemaUnresolvedSymbol, "undeclared symbol 'missing'"},
		{"unknown type", "", "foo bar(void);", diag.SemaUnknownType, "unknown type name 'foo'"},
		{"missing semicolon", "", "int a(int)\nint b(int);", diag.SynExpectSemicolon, "';' expected before 'int'"},
		{"anonymous without body", "", "struct *p(void);", diag.SynExpectIdentifier, "'identifier' expected before '*'"},
		{"flexible not last", "", "struct s { char d[]; int n; };", diag.SynFlexibleArray, "flexible array member must be the last member"},
		{"flexible in typedef", "", "typedef char buf_t[];", diag.SynFlexibleArray, "flexible array not supported at here"},
		{"varargs not last", "", "int f(...,int);", diag.SynVariadicMustBeLast, "')' expected before ','"},
		{"self by value", "", "struct loop { struct loop inner; };", diag.SemaLayoutError, "incomplete type 'struct loop'"},
		{"unterminated body", "", "struct s { int a;", diag.SynUnclosedBrace, "'}' expected before 'end of input'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			if tc.prelude != "" {
				e.mustCdef(t, tc.prelude)
			}
			res, bag := e.cdef(t, tc.src)
			if !res.Failed {
				t.Fatalf("expected failure")
			}
			d, ok := bag.First()
			if !ok {
				t.Fatalf("no diagnostic")
			}
			if d.Code != tc.code || d.Message != tc.msg {
				t.Fatalf("got [%s] %q, want [%s] %q", d.Code.ID(), d.Message, tc.code.ID(), tc.msg)
			}
			if bag.Len() != 1 {
				t.Fatalf("parser must stop at first error: %s", summary(bag))
			}
		})
	}
}

func TestMissingSemicolonCarriesFix(t *testing.T) {
	e := newEnv()
	_, bag := e.cdef(t, "typedef int x_t")
	d, _ := bag.First()
	if len(d.Fixes) != 1 || d.Fixes[0].Edits[0].NewText != ";" {
		t.Fatalf("expected insert-';' fix, got %+v", d.Fixes)
	}
}

func TestFailedRecordCanBeRedeclared(t *testing.T) {
	e := newEnv()
	if res, _ := e.cdef(t, "struct s { int a; int a; };"); !res.Failed {
		t.Fatalf("expected failure")
	}
	e.mustCdef(t, "struct s { int a; };")
}

func TestEarlierDeclarationsSurviveFailure(t *testing.T) {
	e := newEnv()
	res, _ := e.cdef(t, "struct a { int x; }; int ok(void); struct b { int y; int y; };")
	if !res.Failed {
		t.Fatalf("expected failure")
	}
	if _, ok := e.types.LookupTag("a"); !ok {
		t.Fatalf("struct a must persist")
	}
	if _, ok := e.types.LookupFunc("ok"); !ok {
		t.Fatalf("function ok must persist")
	}
	if _, ok := e.types.LookupTag("b"); ok {
		t.Fatalf("struct b must not be registered")
	}
}

func TestParseType(t *testing.T) {
	e := newEnv()
	parse := func(src string, flex bool) (cparse.TypeExpr, *diag.Bag, bool) {
		id := e.fs.AddVirtual("t", []byte(src))
		bag := diag.NewBag(4)
		te, ok := cparse.ParseType(e.fs.Get(id), e.types, cparse.Options{Reporter: diag.BagReporter{Bag: bag}}, flex)
		return te, bag, ok
	}

	te, _, ok := parse("int[?]", true)
	if !ok || !te.Flexible || e.types.String(te.Type) != "int" {
		t.Fatalf("int[?] = %+v, %v", te, ok)
	}
	te, _, ok = parse("char[][4]", true)
	if !ok || !te.Flexible || e.types.String(te.Type) != "char[4]" {
		t.Fatalf("char[][4] = %+v (%s)", te, e.types.String(te.Type))
	}
	if _, bag, ok := parse("int[?]", false); ok || !strings.Contains(summary(bag), "flexible array not supported at here") {
		t.Fatalf("flexible must be rejected: %s", summary(bag))
	}
	if _, bag, ok := parse("int x", false); ok || !strings.Contains(summary(bag), "unexpected 'x'") {
		t.Fatalf("trailing token must be rejected: %s", summary(bag))
	}
	if _, bag, ok := parse("void[3]", false); ok || !strings.Contains(summary(bag), "void type in forbidden context") {
		t.Fatalf("void array must be rejected: %s", summary(bag))
	}
}
