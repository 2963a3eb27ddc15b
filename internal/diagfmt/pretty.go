package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cffi/internal/diag"
	"cffi/internal/source"
)

type palette struct {
	sev  map[diag.Severity]*color.Color
	code *color.Color
	loc  *color.Color
	gut  *color.Color
	mark *color.Color
	note *color.Color
	add  *color.Color
	del  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		code: color.New(color.Bold),
		loc:  color.New(color.Bold),
		gut:  color.New(color.FgBlue),
		mark: color.New(color.FgGreen, color.Bold),
		note: color.New(color.FgCyan),
		add:  color.New(color.FgGreen),
		del:  color.New(color.FgRed),
	}
	all := []*color.Color{p.code, p.loc, p.gut, p.mark, p.note, p.add, p.del}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	sev := p.sev[d.Severity]
	if sev == nil {
		sev = p.code
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.loc.Sprint(position(fs, d.Primary, opts.PathMode)),
		sev.Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message)
	writeSnippet(w, fs, d.Primary, opts.Context, p)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), position(fs, n.Span, opts.PathMode), n.Msg)
		}
	}
	if !opts.ShowFixes {
		return
	}
	for i, fix := range d.Fixes {
		fmt.Fprintf(w, "  %s %s\n", p.note.Sprintf("fix #%d:", i+1), fix.Title)
		for _, edit := range fix.Edits {
			_, end := fs.Resolve(edit.Span)
			fmt.Fprintf(w, "    edit %s-%d:%d apply=%q\n",
				position(fs, edit.Span, opts.PathMode), end.Line, end.Col, edit.NewText)
			if !opts.ShowPreview {
				continue
			}
			preview, err := buildFixEditPreview(fs, edit)
			if err != nil {
				continue
			}
			fmt.Fprintln(w, "    preview:")
			for _, line := range preview.before {
				fmt.Fprintf(w, "      %s\n", p.del.Sprint("- "+line))
			}
			for _, line := range preview.after {
				fmt.Fprintf(w, "      %s\n", p.add.Sprint("+ "+line))
			}
		}
	}
}

func position(fs *source.FileSet, span source.Span, mode PathMode) string {
	f := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, fs, mode), start.Line, start.Col)
}

func formatPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		return f.DisplayPath(source.PathAbsolute, "")
	case PathModeRelative:
		return f.DisplayPath(source.PathRelative, fs.BaseDir())
	case PathModeBasename:
		return f.DisplayPath(source.PathBase, "")
	default:
		return f.DisplayPath(source.PathAuto, "")
	}
}

// writeSnippet печатает строку span с номером в гуттере и подчёркивание
// под ней. Ширина считается в колонках терминала, табы сохраняются.
func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, context int8, p palette) {
	f := fs.Get(span.File)
	if len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)
	first := start.Line
	last := start.Line
	if context > 0 {
		ctx := uint32(context)
		if first > ctx {
			first -= ctx
		} else {
			first = 1
		}
		last += ctx
	}
	if lines, err := safecast.Conv[uint32](len(f.LineIdx) + 1); err == nil {
		last = max(min(last, lines), start.Line)
	}
	gutter := len(fmt.Sprint(last))

	for n := first; n <= last; n++ {
		text := f.GetLine(n)
		fmt.Fprintf(w, "%s %s\n", p.gut.Sprintf("%*d |", gutter, n), text)
		if n != start.Line {
			continue
		}
		lineStart := f.LineStart(n)
		from := min(int(span.Start-lineStart), len(text))
		to := len(text)
		if end.Line == start.Line {
			to = min(int(span.End-lineStart), len(text))
		}
		var pad strings.Builder
		for _, r := range text[:from] {
			if r == '\t' {
				pad.WriteRune('\t')
				continue
			}
			pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
		}
		width := 1
		if to > from {
			width = max(runewidth.StringWidth(text[from:to]), 1)
		}
		mark := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "%s %s%s\n", p.gut.Sprintf("%*s |", gutter, ""), pad.String(), p.mark.Sprint(mark))
	}
}
