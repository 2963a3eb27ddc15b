package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"cffi/internal/cparse"
	"cffi/internal/source"
)

// CheckDeclSpans runs a minimal set of span invariants on parsed declarations:
//   - every span is non-empty, points to sf and lies within its content;
//   - the declared name occurs inside the span text;
//   - declarations come in source order, except that a record completed
//     inside a later declaration (typedef struct {...} t;) is nested in
//     that declaration's span.
func CheckDeclSpans(decls []cparse.Decl, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	for i, d := range decls {
		sp := d.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("decl %q: empty span %v", d.Name, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("decl %q: span file mismatch: got=%d want=%d", d.Name, sp.File, sf.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("decl %q: span end beyond content: %d > %d", d.Name, sp.End, lenContent)
		}
		if d.Name != "" && !strings.Contains(string(sf.Content[sp.Start:sp.End]), d.Name) {
			return fmt.Errorf("decl %q: name not inside span text %q", d.Name, sf.Content[sp.Start:sp.End])
		}
		if i == 0 {
			continue
		}
		prev := decls[i-1].Span
		nested := prev.Start >= sp.Start && prev.End <= sp.End
		if !nested && prev.End > sp.Start {
			return fmt.Errorf("decl %q: span %v overlaps previous %v", d.Name, sp, prev)
		}
	}
	return nil
}
