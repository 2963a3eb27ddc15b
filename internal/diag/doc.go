// Package diag defines the diagnostic model shared by the lexer, the
// declaration parser and the check pipeline.
//
// Diagnostic is the central record: Severity, a numeric Code with a stable
// string form (LEX1xxx lexical, SYN2xxx syntax, SEM3xxx declaration
// semantics, IO4xxx input), a short Message, the Primary span, optional
// Notes and Fixes.
//
// Producers emit through a Reporter, usually via ReportError(...).Emit();
// BagReporter aggregates into a Bag which supports sorting, deduplication
// and merging. Rendering lives in internal/diagfmt.
package diag
