package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cffi/internal/ffi"
	"cffi/internal/native"
)

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	env := ffi.New()
	t.Cleanup(func() { env.Close() })
	var out bytes.Buffer
	return newSession(env, &out, false), &out
}

// run executes lines and returns what the last one printed.
func run(t *testing.T, s *session, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	for _, line := range lines {
		out.Reset()
		if err := s.exec(line); err != nil {
			t.Fatalf("exec(%q): %v", line, err)
		}
	}
	return strings.TrimSpace(out.String())
}

func TestSessionTypeQueries(t *testing.T) {
	s, out := newTestSession(t)
	run(t, s, out, "cdef struct point { int x; int y; };\ntypedef struct point point_t;")

	cases := []struct {
		line string
		want string
	}{
		{"sizeof int", "4"},
		{"sizeof point_t", "8"},
		{"alignof double", "8"},
		{"offsetof struct point y", "4"},
		{"offsetof struct point z", "nil"},
		{"typeof point_t", "ctype<struct point>"},
	}
	for _, tc := range cases {
		if got := run(t, s, out, tc.line); got != tc.want {
			t.Fatalf("%s = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestSessionNewAndString(t *testing.T) {
	s, out := newTestSession(t)
	if got := run(t, s, out, "new int[?] 3"); !strings.HasPrefix(got, "$1 = cdata<int[3]>: 0x") {
		t.Fatalf("new int[?] 3 printed %q", got)
	}
	if got := run(t, s, out, `new char[8] "hi"`); !strings.HasPrefix(got, "$2 = cdata<char[8]>: 0x") {
		t.Fatalf("new char[8] printed %q", got)
	}
	if got := run(t, s, out, "string $2"); got != `"hi"` {
		t.Fatalf("string $2 = %q", got)
	}
	if got := run(t, s, out, "string $2 1"); got != `"h"` {
		t.Fatalf("string $2 1 = %q", got)
	}
}

func TestSessionErrno(t *testing.T) {
	s, out := newTestSession(t)
	if got := run(t, s, out, "errno 5"); got != "0" {
		t.Fatalf("errno 5 returned the old value %q, want 0", got)
	}
	if got := run(t, s, out, "errno"); got != "5" {
		t.Fatalf("errno = %q, want 5", got)
	}
}

func TestSessionErrors(t *testing.T) {
	s, out := newTestSession(t)
	if err := s.exec("frobnicate"); err == nil {
		t.Fatalf("unknown command accepted")
	}
	err := s.exec("cdef int f(int")
	var fe *ffi.Error
	if !errors.As(err, &fe) || fe.Kind != ffi.ErrSyntax {
		t.Fatalf("cdef error = %v, want a syntax error", err)
	}
	s.report(err)
	if !strings.HasPrefix(out.String(), "syntax error:") {
		t.Fatalf("report printed %q", out.String())
	}
	if err := s.exec("quit"); !errors.Is(err, errQuit) {
		t.Fatalf("quit = %v", err)
	}
}

func TestSessionCall(t *testing.T) {
	if !native.Available {
		t.Skip("native calls need cgo")
	}
	s, out := newTestSession(t)
	run(t, s, out, "cdef int abs(int); int snprintf(char *buf, size_t n, const char *fmt, ...);")
	if got := run(t, s, out, "call abs -5"); got != "$1 = 5" {
		t.Fatalf("call abs -5 printed %q", got)
	}
	run(t, s, out, "new char[32]")
	if got := run(t, s, out, `call snprintf $2 32 "%d-%s" 42 "x"`); got != "$3 = 4" {
		t.Fatalf("snprintf printed %q", got)
	}
	if got := run(t, s, out, "string $2"); got != `"42-x"` {
		t.Fatalf("buffer holds %q", got)
	}
}

func TestCompleteWaitsForClosingBrace(t *testing.T) {
	if complete("cdef struct s {") {
		t.Fatalf("open brace must continue")
	}
	if !complete("cdef struct s {\n int x; };") {
		t.Fatalf("balanced cdef must be complete")
	}
	if !complete("sizeof int") {
		t.Fatalf("non-cdef lines are complete")
	}
}
