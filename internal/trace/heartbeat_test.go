package trace

import (
	"strings"
	"testing"
	"time"
)

func TestOpenSpansTracksUnfinished(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	outer := Begin(r, ScopePass, "check", 0)
	inner := Begin(r, ScopeCall, "call:sleep", outer.ID())

	names := func() []string {
		var out []string
		for _, s := range OpenSpans() {
			if s.ID == outer.ID() || s.ID == inner.ID() {
				out = append(out, s.Name)
			}
		}
		return out
	}
	if got := strings.Join(names(), ","); got != "check,call:sleep" {
		t.Fatalf("open spans = %q", got)
	}
	inner.End("")
	inner.End("again")
	if got := strings.Join(names(), ","); got != "check" {
		t.Fatalf("after End open spans = %q", got)
	}
	outer.End("")
	if len(names()) != 0 {
		t.Fatalf("spans still open: %v", names())
	}

	ends := 0
	for _, ev := range r.Snapshot() {
		if ev.Kind == KindSpanEnd && ev.Name == "call:sleep" {
			ends++
		}
	}
	if ends != 1 {
		t.Fatalf("call:sleep ended %d times", ends)
	}
}

func TestDisabledSpanNotTracked(t *testing.T) {
	before := len(OpenSpans())
	s := Begin(Nop, ScopeCall, "call:abs", 0)
	if len(OpenSpans()) != before {
		t.Fatalf("disabled span registered")
	}
	s.End("")
}

func TestHeartbeatEventNamesOldestSpan(t *testing.T) {
	ev := heartbeatEvent(3, []OpenSpan{
		{ID: 7, Scope: ScopeCall, Name: "call:read", GID: 42, Age: 1500 * time.Millisecond},
		{ID: 9, Scope: ScopeFile, Name: "libc.h", GID: 43, Age: time.Millisecond},
	})
	if ev.Detail != "#3 open=2" {
		t.Fatalf("detail = %q", ev.Detail)
	}
	if ev.Extra["oldest"] != "call:call:read" || ev.Extra["age"] != "1.5s" || ev.Extra["gid"] != "42" {
		t.Fatalf("extra = %v", ev.Extra)
	}

	idle := heartbeatEvent(1, nil)
	if idle.Detail != "#1 open=0" || idle.Extra != nil {
		t.Fatalf("idle heartbeat = %+v", idle)
	}
}

func TestHeartbeatStopTwice(t *testing.T) {
	r := NewRingTracer(8, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	h.Stop()
	h.Stop()
	if StartHeartbeat(Nop, time.Second) != nil {
		t.Fatalf("heartbeat started for a disabled tracer")
	}
}
