package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"cffi/internal/diag"
	"cffi/internal/source"
)

func prettyString(bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) string {
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, opts)
	return buf.String()
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("struct s { int x; }\nint f(void);\n")
	fileID := fs.AddVirtual("/home/user/project/include/s.h", content)
	fs.SetBaseDir("/home/user/project")

	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SynExpectSemicolon,
		source.Span{File: fileID, Start: 20, End: 23}, "';' expected before 'int'"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/include/s.h:2:1"},
		{"Relative path", PathModeRelative, "include/s.h:2:1"},
		{"Basename only", PathModeBasename, "s.h:2:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := prettyString(bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode})
			for _, want := range []string{tt.contains, "ERROR", "SYN2012", "';' expected before 'int'"} {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output)
				}
			}
		})
	}
}

// TestPathModeAuto проверяет авто-режим выбора пути
func TestPathModeAuto(t *testing.T) {
	fs := source.NewFileSet()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"Short path - as is", "api.h", "api.h:1:5"},
		{"Long absolute path - basename", "/very/long/absolute/path/to/some/nested/include/api.h", "api.h:1:5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileID := fs.AddVirtual(tt.path, []byte("int f(void);\n"))
			bag := diag.NewBag(10)
			bag.Add(diag.New(diag.SevWarning, diag.SemaUnresolvedFunction,
				source.Span{File: fileID, Start: 4, End: 5}, "function 'f' not found"))

			output := prettyString(bag, fs, PrettyOpts{PathMode: PathModeAuto})
			if !strings.HasPrefix(output, tt.expected) {
				t.Errorf("expected output to start with %q, got:\n%s", tt.expected, output)
			}
		})
	}
}

func TestPrettySnippetUnderline(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("typedef int a;\n\tchar имя @;\nint g(void);\n")
	fileID := fs.AddVirtual("u.h", content)

	// '@' стоит после табуляции и кириллицы
	at := uint32(bytes.IndexByte(content, '@'))
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevError, diag.LexUnknownChar,
		source.Span{File: fileID, Start: at, End: at + 1}, "unexpected symbol near '@'"))

	output := prettyString(bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})
	want := strings.Join([]string{
		"u.h:2:14: ERROR LEX1001: unexpected symbol near '@'",
		"1 | typedef int a;",
		"2 | \tchar имя @;",
		"  | \t         ^",
		"3 | int g(void);",
		"",
	}, "\n")
	if output != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", output, want)
	}
}

func TestPrettyNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("int abs(int)\nint labs(long);\n")
	fileID := fs.AddVirtual("abs.h", content)

	bag := diag.NewBag(4)
	primary := source.Span{File: fileID, Start: 13, End: 16}
	d := diag.New(diag.SevError, diag.SynExpectSemicolon, primary, "';' expected before 'int'")
	d = d.WithNote(source.Span{File: fileID, Start: 4, End: 7}, "declaration of 'abs' starts here")
	insertSpan := source.Span{File: fileID, Start: 12, End: 12}
	d = d.WithFix("insert ';'", diag.FixEdit{Span: insertSpan, NewText: ";"})
	bag.Add(d)

	output := prettyString(bag, fs, PrettyOpts{
		PathMode:  PathModeBasename,
		ShowNotes: true,
		ShowFixes: true,
	})

	for _, want := range []string{
		"note: abs.h:1:5: declaration of 'abs' starts here",
		"fix #1: insert ';'",
		"edit abs.h:1:13-1:13 apply=\";\"",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "preview:") {
		t.Errorf("preview printed without ShowPreview:\n%s", output)
	}
}

func TestPrettyFixPreview(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("int abs(int) // no semicolon")
	fileID := fs.AddVirtual("abs.h", content)

	bag := diag.NewBag(2)
	insertSpan := source.Span{File: fileID, Start: 12, End: 12}
	d := diag.New(diag.SevError, diag.SynExpectSemicolon, insertSpan, "';' expected")
	d = d.WithFix("insert ';'", diag.FixEdit{Span: insertSpan, NewText: ";"})
	bag.Add(d)

	output := prettyString(bag, fs, PrettyOpts{
		PathMode:    PathModeBasename,
		ShowFixes:   true,
		ShowPreview: true,
	})
	for _, want := range []string{
		"preview:",
		"- int abs(int) // no semicolon",
		"+ int abs(int); // no semicolon",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.h", []byte("int f(void);"))
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevError, diag.SemaError, source.Span{File: fileID, Start: 0, End: 3}, "boom"))

	if plain := prettyString(bag, fs, PrettyOpts{}); strings.Contains(plain, "\x1b[") {
		t.Errorf("escape codes without Color:\n%q", plain)
	}
	if colored := prettyString(bag, fs, PrettyOpts{Color: true}); !strings.Contains(colored, "\x1b[") {
		t.Errorf("no escape codes with Color:\n%q", colored)
	}
}
