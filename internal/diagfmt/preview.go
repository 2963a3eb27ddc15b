package diagfmt

import (
	"errors"
	"fmt"
	"strings"

	"cffi/internal/diag"
	"cffi/internal/source"
)

// fixEditPreview holds the lines touched by an edit before and after it.
type fixEditPreview struct {
	before []string
	after  []string
}

func buildFixEditPreview(fs *source.FileSet, edit diag.FixEdit) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, errors.New("nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	start, end := fs.Resolve(edit.Span)

	lo := file.LineStart(start.Line)
	hi := max(file.LineEnd(max(end.Line, start.Line)), lo)
	if edit.Span.Start < lo || edit.Span.End > hi || edit.Span.End < edit.Span.Start {
		return fixEditPreview{}, fmt.Errorf("edit %d-%d outside lines %d-%d", edit.Span.Start, edit.Span.End, start.Line, end.Line)
	}
	block := file.Content[lo:hi]
	from, to := edit.Span.Start-lo, edit.Span.End-lo

	var after strings.Builder
	after.Grow(len(block) + len(edit.NewText))
	after.Write(block[:from])
	after.WriteString(edit.NewText)
	after.Write(block[to:])

	return fixEditPreview{
		before: previewLines(string(block)),
		after:  previewLines(after.String()),
	}, nil
}

// previewLines splits text into lines; the final newline adds no empty line.
func previewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
