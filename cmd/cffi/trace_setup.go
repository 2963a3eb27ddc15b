package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cffi/internal/trace"
)

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
// A [trace] level from cffi.toml applies when --trace-level is not set.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	// Read trace configuration from flags
	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}

	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if !root.PersistentFlags().Changed("trace-level") && activeConfig != nil && activeConfig.Config.Trace.Level != "" {
		levelStr = activeConfig.Config.Trace.Level
	}

	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}

	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	// Parse level
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// If level is off, skip tracing
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(ctx, trace.Nop))
		return func() {}, nil
	}

	// Parse mode
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	cmdSpan := trace.Begin(tracer, trace.ScopeDriver, cmd.Name(), 0)

	// Attach tracer and the command span to context
	ctx = trace.WithTracer(ctx, tracer)
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: cmdSpan.ID()})
	cmd.SetContext(ctx)
	root.SetContext(ctx)
	activeTracer = tracer

	// Start heartbeat if configured
	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	cleanup := func() {
		// Stop heartbeat first
		if heartbeat != nil {
			heartbeat.Stop()
		}
		cmdSpan.End("")

		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
		activeTracer = nil
	}

	return cleanup, nil
}

var activeTracer trace.Tracer

// panicDumpTail caps the ring dump; the newest events name the native call
// that went wrong.
const panicDumpTail = 256

// dumpTraceOnPanic печатает содержимое ring-буфера и незакрытые
// span-ы в stderr и перевыбрасывает панику.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring, ok := trace.Ring(activeTracer); ok {
		fmt.Fprintf(os.Stderr, "--- trace (newest %d events, %d overwritten) ---\n",
			len(ring.Tail(panicDumpTail)), ring.Overwritten())
		_ = ring.Dump(os.Stderr, trace.FormatText, panicDumpTail)
	}
	if spans := trace.OpenSpans(); len(spans) > 0 {
		fmt.Fprintln(os.Stderr, "--- unfinished spans ---")
		for _, s := range spans {
			fmt.Fprintf(os.Stderr, "%s:%s gid=%d age=%s\n", s.Scope, s.Name, s.GID, s.Age.Round(time.Millisecond))
		}
	}
	panic(r)
}

// tracerOf returns the tracer attached by setupTracing.
func tracerOf(cmd *cobra.Command) trace.Tracer {
	return trace.FromContext(cmd.Context())
}
