package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the last N events in memory for a post-mortem Dump.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	total  uint64 // events ever stored; total % len(events) is the next slot
	level  Level
}

// NewRingTracer creates a ring of the given capacity (4096 when <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// Emit stores ev, overwriting the oldest event once the ring is full.
// Heartbeats are kept regardless of level.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	stored.Seq = NextSeq()
	t.events[t.total%uint64(len(t.events))] = stored
	t.total++
}

// Overwritten is how many events fell out of the ring.
func (t *RingTracer) Overwritten() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c := uint64(len(t.events)); t.total > c {
		return t.total - c
	}
	return 0
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.Tail(0)
}

// Tail returns at most n of the newest events, oldest first. n <= 0 means all.
func (t *RingTracer) Tail(n int) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := uint64(len(t.events))
	kept := min(t.total, c)
	if n > 0 && uint64(n) < kept {
		kept = uint64(n)
	}
	out := make([]Event, 0, kept)
	for seq := t.total - kept; seq < t.total; seq++ {
		out = append(out, t.events[seq%c])
	}
	return out
}

// Dump writes the newest n events (all when n <= 0) to w.
func (t *RingTracer) Dump(w io.Writer, format Format, n int) error {
	events := t.Tail(n)
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
