package ui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/pipeline"
)

func rowLabels(m *checkModel) []string {
	out := make([]string, len(m.rows))
	for i, h := range m.rows {
		out[i] = h.path + ":" + h.label()
	}
	return out
}

func TestApplyTracksHeaders(t *testing.T) {
	m := NewProgressModel("check", []string{"libc.h"}, nil).(*checkModel)

	m.apply(pipeline.Event{File: "geometry.h", Stage: pipeline.StageParse, Status: pipeline.StatusQueued})
	m.apply(pipeline.Event{File: "libc.h", Stage: pipeline.StageLayout, Status: pipeline.StatusWorking})
	m.apply(pipeline.Event{File: "geometry.h", Stage: pipeline.StageParse, Status: pipeline.StatusError,
		Err: errors.New("';' expected before 'int'")})

	if diff := cmp.Diff([]string{"libc.h:layout", "geometry.h:failed"}, rowLabels(m)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if p := m.fraction(); math.Abs(p-0.8) > 1e-9 {
		t.Errorf("fraction = %v, want 0.8", p)
	}

	m.apply(pipeline.Event{File: "libc.h", Stage: pipeline.StageResolve, Status: pipeline.StatusDone,
		Decls: 12, Unresolved: 2, Elapsed: 3 * time.Millisecond})
	m.apply(pipeline.Event{File: "libc.h", Stage: pipeline.StageParse, Status: pipeline.StatusQueued})
	if got := m.rows[0].label(); got != "ok" {
		t.Errorf("late queued event reopened libc.h: %s", got)
	}
	if diff := cmp.Diff(totals{finished: 2, failed: 1, decls: 12, unresolved: 2}, m.totals(), cmp.AllowUnexported(totals{})); diff != "" {
		t.Errorf("totals (-want +got):\n%s", diff)
	}

	view := m.View()
	for _, want := range []string{
		"check", "2/2",
		"libc.h", "12 decls, 2 unresolved, 3ms",
		"geometry.h", "';' expected before 'int'",
		"12 decls, 1 failed header, 2 unresolved",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestHeaderDetail(t *testing.T) {
	tests := []struct {
		h    header
		want string
	}{
		{header{status: pipeline.StatusQueued}, ""},
		{header{status: pipeline.StatusWorking, stage: pipeline.StageParse}, ""},
		{header{status: pipeline.StatusDone, decls: 1}, "1 decl"},
		{header{status: pipeline.StatusDone, decls: 0, unresolved: 1}, "0 decls, 1 unresolved"},
		{header{status: pipeline.StatusError, problem: "failed to load file"}, "failed to load file"},
	}
	for _, tt := range tests {
		if got := tt.h.detail(); got != tt.want {
			t.Errorf("detail(%+v) = %q, want %q", tt.h, got, tt.want)
		}
	}
}

func TestDoneOnClosedChannel(t *testing.T) {
	ch := make(chan pipeline.Event)
	close(ch)
	m := NewProgressModel("check", nil, ch).(*checkModel)
	if _, ok := m.next()().(doneMsg); !ok {
		t.Fatalf("closed channel must yield doneMsg")
	}
	m.Update(doneMsg{})
	if !m.done {
		t.Errorf("model not marked done")
	}
	if m.View() != "" {
		t.Errorf("empty model renders %q", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.h", 20, "short.h"},
		{"include/very/long/path.h", 10, "include..."},
		{"заголовок.h", 5, "за..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
