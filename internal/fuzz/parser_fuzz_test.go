package fuzztests

import (
	"testing"
	"time"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/layout"
	"cffi/internal/source"
	"cffi/internal/testkit"
)

// parseTimeout is the maximum time allowed for parsing a single input.
// If parsing takes longer, it indicates a potential infinite loop.
const parseTimeout = 5 * time.Second

func parseDecls(input []byte) (cparse.Result, *source.File, *ctype.Registry, *layout.LayoutEngine) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("fuzz.h", input))
	types := ctype.NewRegistry()
	eng := layout.New(layout.X86_64LinuxGNU(), types)
	bag := diag.NewBag(128)
	res := cparse.ParseDecls(file, types, cparse.Options{Reporter: diag.BagReporter{Bag: bag}, Layout: eng})
	return res, file, types, eng
}

// FuzzCdefDecls parses arbitrary text; whatever got declared must have sane
// spans and a layout that does not panic.
func FuzzCdefDecls(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		res, file, _, eng := parseDecls(clampInput(input))
		if err := testkit.CheckDeclSpans(res.Decls, file); err != nil {
			t.Fatalf("%v\ninput: %q", err, truncateForLog(input, 200))
		}
		for _, d := range res.Decls {
			if d.Kind == cparse.DeclFunc {
				continue
			}
			if l, err := eng.LayoutOf(d.Type); err == nil && l.Align > 0 && l.Size%l.Align != 0 {
				t.Fatalf("%s: size %d is not a multiple of align %d", d.Name, l.Size, l.Align)
			}
		}
	})
}

// FuzzCdefNoHang tests that the parser doesn't hang on any input.
// It uses a timeout to detect infinite loops in error recovery.
func FuzzCdefNoHang(f *testing.F) {
	addCorpusSeeds(f)

	f.Add([]byte("int f(int\nint g(void);"))            // missing ')' and ';'
	f.Add([]byte("struct s { struct s { int x; }; };")) // redefinition inside itself
	f.Add([]byte("typedef int a[1][2][3][4][5][6];"))
	f.Add([]byte("struct { union { struct { int x; }; }; } v;"))
	f.Add([]byte("int (*(*fp)(int))(char);"))
	f.Add([]byte("char x[99999999999999999999];"))

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _, _, _ = parseDecls(input)
		}()

		select {
		case <-done:
		case <-time.After(parseTimeout):
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// FuzzTypeExpr feeds the type-spec parser used by new/cast/sizeof.
func FuzzTypeExpr(f *testing.F) {
	for _, seed := range []string{"int", "unsigned long long", "struct point*", "char[?]", "int[4][2]", "const char * const", "void (*)(int)"} {
		f.Add([]byte(seed))
	}
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("type", clampInput(input)))
		types := ctype.NewRegistry()
		bag := diag.NewBag(16)
		opts := cparse.Options{Reporter: diag.BagReporter{Bag: bag}, Layout: layout.New(layout.X86_64LinuxGNU(), types)}
		te, ok := cparse.ParseType(file, types, opts, true)
		if ok && !bag.HasErrors() {
			_ = types.String(te.Type)
		}
	})
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], []byte("...")...)
}
