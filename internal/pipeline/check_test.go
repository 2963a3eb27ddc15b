package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/cparse"
	"cffi/internal/diag"
	"cffi/internal/native"
	"cffi/internal/pipeline"
)

type recordingSink struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (s *recordingSink) OnEvent(ev pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Err = nil
	ev.Elapsed = 0
	s.events = append(s.events, ev)
}

func (s *recordingSink) forFile(file string) []pipeline.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pipeline.Event
	for _, ev := range s.events {
		if ev.File == file {
			out = append(out, ev)
		}
	}
	return out
}

func writeHeaders(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func declNames(decls []cparse.Decl) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Kind.String() + " " + d.Name
	}
	return out
}

func TestCheckParsesEveryFile(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"b.h": "typedef struct point { int x, y; } point_t;\nint abs(int);\n",
		"a.h": "struct node { struct node *next; double v; };\n",
	})
	sink := &recordingSink{}
	res, err := pipeline.Check(context.Background(), pipeline.Request{
		Files:    []string{filepath.Join(dir, "b.h"), filepath.Join(dir, "a.h"), filepath.Join(dir, "a.h")},
		BaseDir:  dir,
		Jobs:     2,
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Bag().Items())
	}
	if len(res.Files) != 2 {
		t.Fatalf("want 2 files after dedup, got %d", len(res.Files))
	}

	a, b := res.Files[0], res.Files[1]
	if a.Path != "a.h" || b.Path != "b.h" {
		t.Fatalf("files not sorted by display path: %q, %q", a.Path, b.Path)
	}
	if diff := cmp.Diff([]string{"record node"}, declNames(a.Decls)); diff != "" {
		t.Errorf("a.h decls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"record point", "typedef point_t", "function abs"}, declNames(b.Decls)); diff != "" {
		t.Errorf("b.h decls (-want +got):\n%s", diff)
	}
	// реестры независимы
	if _, ok := a.Types.LookupTag("point"); ok {
		t.Errorf("a.h sees a record declared in b.h")
	}
	size, err := b.Layout.SizeOf(b.Decls[1].Type)
	if err != nil || size != 8 {
		t.Errorf("sizeof(point_t) = %d, %v; want 8", size, err)
	}

	want := []pipeline.Event{
		{File: "a.h", Stage: pipeline.StageParse, Status: pipeline.StatusQueued},
		{File: "a.h", Stage: pipeline.StageParse, Status: pipeline.StatusWorking},
		{File: "a.h", Stage: pipeline.StageLayout, Status: pipeline.StatusWorking},
		{File: "a.h", Stage: pipeline.StageLayout, Status: pipeline.StatusDone, Decls: 1},
	}
	if diff := cmp.Diff(want, sink.forFile("a.h")); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if !res.Timings.Has(pipeline.StageParse) || res.Timings.Has(pipeline.StageResolve) {
		t.Errorf("unexpected stage timings")
	}
}

func TestCheckReportsErrorsPerFile(t *testing.T) {
	dir := writeHeaders(t, map[string]string{
		"ok.h":  "int f(void);\n",
		"bad.h": "int f(int)\nint g(void);\n",
	})
	sink := &recordingSink{}
	res, err := pipeline.Check(context.Background(), pipeline.Request{
		Files:    []string{filepath.Join(dir, "ok.h"), filepath.Join(dir, "bad.h"), filepath.Join(dir, "missing.h")},
		BaseDir:  dir,
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.HasErrors() {
		t.Fatalf("expected errors")
	}

	byPath := make(map[string]pipeline.FileResult)
	for _, f := range res.Files {
		byPath[f.Path] = f
	}
	if byPath["ok.h"].Failed() {
		t.Errorf("ok.h failed: %v", byPath["ok.h"].Bag.Items())
	}

	bad := byPath["bad.h"]
	first, ok := bad.Bag.First()
	if !ok || first.Code != diag.SynExpectSemicolon {
		t.Errorf("bad.h: want %s, got %+v", diag.SynExpectSemicolon.ID(), first)
	}

	missing := byPath["missing.h"]
	first, ok = missing.Bag.First()
	if !ok || first.Code != diag.IOLoadFileError {
		t.Errorf("missing.h: want %s, got %+v", diag.IOLoadFileError.ID(), first)
	}
	if got := res.FileSet.Get(first.Primary.File).Path; filepath.Base(got) != "missing.h" {
		t.Errorf("load error points at %q", got)
	}

	events := sink.forFile("missing.h")
	if last := events[len(events)-1]; last.Status != pipeline.StatusError {
		t.Errorf("missing.h last event = %+v", last)
	}
	if got := res.Bag().Len(); got != 2 {
		t.Errorf("merged bag has %d diagnostics, want 2", got)
	}
}

func TestCheckCancelled(t *testing.T) {
	dir := writeHeaders(t, map[string]string{"a.h": "int f(void);\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.Check(ctx, pipeline.Request{Files: []string{filepath.Join(dir, "a.h")}})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestCheckResolvesAgainstLibraries(t *testing.T) {
	if !native.Available {
		t.Skip("native layer unavailable")
	}
	dir := writeHeaders(t, map[string]string{
		"m.h": "double cos(double);\nint cffi_no_such_function(void);\n",
	})
	res, err := pipeline.Check(context.Background(), pipeline.Request{
		Files:     []string{filepath.Join(dir, "m.h")},
		Libraries: []string{"m"},
	})
	if err != nil {
		t.Skipf("libm not loadable: %v", err)
	}
	f := res.Files[0]
	if diff := cmp.Diff([]string{"cffi_no_such_function"}, f.Unresolved); diff != "" {
		t.Errorf("unresolved (-want +got):\n%s", diff)
	}
	if f.Failed() {
		t.Errorf("unresolved functions must only warn")
	}
	items := f.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.SemaUnresolvedFunction || items[0].Severity != diag.SevWarning {
		t.Errorf("want one %s warning, got %+v", diag.SemaUnresolvedFunction.ID(), items)
	}
}
