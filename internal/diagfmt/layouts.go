package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/vmihailenco/msgpack/v5"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/layout"
)

// FieldReport is one direct member of a record.
type FieldReport struct {
	Name   string `json:"name" msgpack:"name"` // пусто для анонимного члена
	Type   string `json:"type" msgpack:"type"`
	Offset int    `json:"offset" msgpack:"offset"`
	Size   int    `json:"size" msgpack:"size"`
}

type RecordReport struct {
	Name   string        `json:"name" msgpack:"name"`
	Kind   string        `json:"kind" msgpack:"kind"` // struct | union
	Size   int           `json:"size" msgpack:"size"`
	Align  int           `json:"align" msgpack:"align"`
	Fields []FieldReport `json:"fields" msgpack:"fields"`
}

// TypedefReport describes a typedef; Opaque marks an incomplete target
// whose size is unknown.
type TypedefReport struct {
	Name   string `json:"name" msgpack:"name"`
	Type   string `json:"type" msgpack:"type"`
	Size   int    `json:"size" msgpack:"size"`
	Align  int    `json:"align" msgpack:"align"`
	Opaque bool   `json:"opaque,omitempty" msgpack:"opaque,omitempty"`
}

type FunctionReport struct {
	Name      string `json:"name" msgpack:"name"`
	Signature string `json:"signature" msgpack:"signature"`
}

// LayoutReport lists what one header declares, with sizes for the target.
type LayoutReport struct {
	File      string           `json:"file" msgpack:"file"`
	Target    string           `json:"target" msgpack:"target"`
	Records   []RecordReport   `json:"records" msgpack:"records"`
	Typedefs  []TypedefReport  `json:"typedefs" msgpack:"typedefs"`
	Functions []FunctionReport `json:"functions" msgpack:"functions"`
}

// BuildLayoutReport collects the declarations of one parsed header,
// narrowed by Filter(only).
func BuildLayoutReport(file string, types *ctype.Registry, eng *layout.LayoutEngine, decls []cparse.Decl, only []string) LayoutReport {
	rep := LayoutReport{
		File:      file,
		Target:    eng.Target.Triple,
		Records:   []RecordReport{},
		Typedefs:  []TypedefReport{},
		Functions: []FunctionReport{},
	}
	for _, d := range decls {
		switch d.Kind {
		case cparse.DeclRecord:
			if r, ok := recordReport(types, eng, d); ok {
				rep.Records = append(rep.Records, r)
			}
		case cparse.DeclTypedef:
			td := TypedefReport{Name: d.Name, Type: types.String(d.Type)}
			if l, err := eng.LayoutOf(d.Type); err == nil {
				td.Size, td.Align = l.Size, l.Align
			} else {
				td.Opaque = true
			}
			rep.Typedefs = append(rep.Typedefs, td)
		case cparse.DeclFunc:
			if id, ok := types.FuncType(d.Name); ok {
				rep.Functions = append(rep.Functions, FunctionReport{Name: d.Name, Signature: types.String(id)})
			}
		}
	}
	return rep.Filter(only)
}

// Filter keeps the entries named in only: a plain name, or "struct NAME" /
// "union NAME" for records. An empty list keeps everything.
func (r LayoutReport) Filter(only []string) LayoutReport {
	if len(only) == 0 {
		return r
	}
	out := r
	out.Records = slices.DeleteFunc(slices.Clone(r.Records), func(rec RecordReport) bool {
		return !slices.Contains(only, rec.Name) && !slices.Contains(only, rec.Kind+" "+rec.Name)
	})
	out.Typedefs = slices.DeleteFunc(slices.Clone(r.Typedefs), func(td TypedefReport) bool {
		return !slices.Contains(only, td.Name)
	})
	out.Functions = slices.DeleteFunc(slices.Clone(r.Functions), func(fn FunctionReport) bool {
		return !slices.Contains(only, fn.Name)
	})
	return out
}

func recordReport(types *ctype.Registry, eng *layout.LayoutEngine, d cparse.Decl) (RecordReport, bool) {
	info, ok := types.RecordInfo(d.Type)
	if !ok || !info.Complete {
		return RecordReport{}, false
	}
	kind := "struct"
	if info.Union {
		kind = "union"
	}
	r := RecordReport{Name: d.Name, Kind: kind, Size: info.Size, Align: info.Align, Fields: make([]FieldReport, 0, len(info.Fields))}
	for _, f := range info.Fields {
		size, _ := eng.SizeOf(f.Type)
		r.Fields = append(r.Fields, FieldReport{Name: f.Name, Type: types.String(f.Type), Offset: f.Offset, Size: size})
	}
	return r, true
}

// FormatLayoutsJSON пишет отчёты массивом JSON.
func FormatLayoutsJSON(w io.Writer, reports []LayoutReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// FormatLayoutsMsgpack пишет отчёты в msgpack для внешних инструментов.
func FormatLayoutsMsgpack(w io.Writer, reports []LayoutReport) error {
	return msgpack.NewEncoder(w).Encode(reports)
}

// ReadLayoutsMsgpack декодирует то, что записал FormatLayoutsMsgpack.
func ReadLayoutsMsgpack(r io.Reader) ([]LayoutReport, error) {
	var out []LayoutReport
	if err := msgpack.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatLayoutsPretty renders every report as aligned tables. Without color
// the output is plain text.
func FormatLayoutsPretty(w io.Writer, reports []LayoutReport, color bool) error {
	re := lipgloss.NewRenderer(w)
	if !color {
		re.SetColorProfile(termenv.Ascii)
	}
	st := layoutStyles{
		file:   re.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		head:   re.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		name:   re.NewStyle().Bold(true),
		dim:    re.NewStyle().Foreground(lipgloss.Color("8")),
		opaque: re.NewStyle().Foreground(lipgloss.Color("3")),
	}

	var b strings.Builder
	for i, rep := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n", st.file.Render(rep.File), st.dim.Render("("+rep.Target+")"))
		for _, r := range rep.Records {
			fmt.Fprintf(&b, "\n%s %s\n", st.head.Render(r.Kind+" "+r.Name),
				st.dim.Render(fmt.Sprintf("size=%d align=%d", r.Size, r.Align)))
			rows := make([][]string, 0, len(r.Fields))
			for _, f := range r.Fields {
				name := f.Name
				if name == "" {
					name = "<anonymous>"
				}
				rows = append(rows, []string{fmt.Sprint(f.Offset), fmt.Sprint(f.Size), f.Type, name})
			}
			writeTable(&b, st, []string{"offset", "size", "type", "name"}, rows, 3)
		}
		if len(rep.Typedefs) > 0 {
			fmt.Fprintf(&b, "\n%s\n", st.head.Render("typedefs"))
			rows := make([][]string, 0, len(rep.Typedefs))
			for _, td := range rep.Typedefs {
				size, align := fmt.Sprint(td.Size), fmt.Sprint(td.Align)
				if td.Opaque {
					size, align = st.opaque.Render("?"), st.opaque.Render("?")
				}
				rows = append(rows, []string{td.Name, size, align, td.Type})
			}
			writeTable(&b, st, []string{"name", "size", "align", "type"}, rows, 0)
		}
		if len(rep.Functions) > 0 {
			fmt.Fprintf(&b, "\n%s\n", st.head.Render("functions"))
			for _, fn := range rep.Functions {
				fmt.Fprintf(&b, "  %s %s\n", st.name.Render(fn.Name), fn.Signature)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type layoutStyles struct {
	file, head, name, dim, opaque lipgloss.Style
}

// writeTable выравнивает колонки по ширине в терминальных ячейках;
// колонка emph выделяется жирным, последняя не дополняется пробелами.
func writeTable(b *strings.Builder, st layoutStyles, header []string, rows [][]string, emph int) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	line := func(cells []string, style func(int, string) string) {
		b.WriteString("  ")
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			pad := widths[i] - lipgloss.Width(cell)
			b.WriteString(style(i, cell))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}
	line(header, func(_ int, s string) string { return st.dim.Render(s) })
	for _, row := range rows {
		line(row, func(i int, s string) string {
			if i == emph {
				return st.name.Render(s)
			}
			return s
		})
	}
}
