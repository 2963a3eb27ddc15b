// Package trace records what cffi is doing: CLI commands, cdef passes,
// per-header checks and, at the highest level, individual native calls.
//
// Enable it from the command line:
//
//	cffi check --trace=- --trace-level=phase decl/*.h
//
// Tracers:
//
//   - Nop: zero-cost when tracing is disabled
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for a post-mortem Dump
//   - MultiTracer: fans out to several tracers
//
// Scopes nest from coarse to fine: ScopeDriver (a CLI command),
// ScopePass (parse, layout, resolve), ScopeFile (one header file in a
// parallel check) and ScopeCall (one foreign call). The level decides which
// scopes are emitted: phase stops at passes, detail adds files, debug adds
// calls.
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "cdef", 0)
//	defer span.End("")
package trace
