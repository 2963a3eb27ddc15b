package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cffi/internal/source"
	"cffi/internal/token"
)

// TokenJSON is one lexed token of a header. Leading lists the trivia before
// it by kind; preprocessor lines keep their text since cdef skips them.
type TokenJSON struct {
	Kind    string      `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Span    source.Span `json:"span"`
	Line    uint32      `json:"line"`
	Col     uint32      `json:"col"`
	Leading []string    `json:"leading,omitempty"`
}

func tokenRows(tokens []token.Token, fs *source.FileSet) []TokenJSON {
	rows := make([]TokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		start, _ := fs.Resolve(tok.Span)
		row := TokenJSON{
			Kind: tok.Kind.String(),
			Text: tok.Text,
			Span: tok.Span,
			Line: start.Line,
			Col:  start.Col,
		}
		for _, tr := range tok.Leading {
			switch tr.Kind {
			case token.TriviaSpace, token.TriviaNewline:
				continue
			case token.TriviaPreproc:
				row.Leading = append(row.Leading, "Preproc "+strings.TrimSpace(tr.Text))
			default:
				row.Leading = append(row.Leading, tr.Kind.String())
			}
		}
		rows = append(rows, row)
		if tok.Kind == token.EOF {
			break
		}
	}
	return rows
}

// FormatTokensPretty prints one token per line with its position.
func FormatTokensPretty(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	for i, row := range tokenRows(tokens, fs) {
		line := fmt.Sprintf("%4d  %3d:%-3d %-14s", i+1, row.Line, row.Col, row.Kind)
		if row.Text != "" {
			line += " " + fmt.Sprintf("%q", row.Text)
		}
		if len(row.Leading) > 0 {
			line += "  ; " + strings.Join(row.Leading, " | ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// FormatTokensJSON writes the tokens as a JSON array.
func FormatTokensJSON(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenRows(tokens, fs))
}
