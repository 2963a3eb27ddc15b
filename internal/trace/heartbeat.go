package trace

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits periodic liveness events naming the oldest open span,
// so a hung native call shows up in the trace while it hangs.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	done     sync.WaitGroup
}

// StartHeartbeat starts the heartbeat goroutine; nil when tracing is off.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, interval: interval, stop: make(chan struct{})}
	h.done.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.done.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beat uint64
	for {
		select {
		case <-ticker.C:
			beat++
			h.tracer.Emit(heartbeatEvent(beat, OpenSpans()))
		case <-h.stop:
			return
		}
	}
}

func heartbeatEvent(beat uint64, spans []OpenSpan) *Event {
	ev := &Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeDriver,
		GID:    getGoroutineID(),
		Name:   "heartbeat",
		Detail: fmt.Sprintf("#%d open=%d", beat, len(spans)),
	}
	if len(spans) > 0 {
		// самый старый открытый span: обычно тот, что завис
		oldest := spans[0]
		ev.Extra = map[string]string{
			"oldest": oldest.Scope.String() + ":" + oldest.Name,
			"age":    oldest.Age.Round(time.Millisecond).String(),
			"gid":    strconv.FormatUint(oldest.GID, 10),
		}
	}
	return ev
}

// Stop ends the heartbeat goroutine and waits for it. Safe on nil and
// safe to call twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	h.done.Wait()
}
