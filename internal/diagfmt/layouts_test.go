package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/layout"
	"cffi/internal/source"
)

const layoutHeader = `struct point { int x; int y; };
typedef struct point point_t;
union value { char c; double d; struct { short lo, hi; }; };
typedef char name_t[16];
int snprintf(char *buf, size_t n, const char *fmt, ...);
`

func parseHeader(t *testing.T, text string) (*ctype.Registry, *layout.LayoutEngine, []cparse.Decl) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.h", []byte(text))
	types := ctype.NewRegistry()
	eng := layout.New(layout.X86_64LinuxGNU(), types)
	bag := diag.NewBag(0)
	res := cparse.ParseDecls(fs.Get(id), types, cparse.Options{Reporter: diag.BagReporter{Bag: bag}, Layout: eng})
	if res.Failed {
		t.Fatalf("parse failed: %+v", bag.Items())
	}
	return types, eng, res.Decls
}

func TestBuildLayoutReport(t *testing.T) {
	types, eng, decls := parseHeader(t, layoutHeader)
	got := BuildLayoutReport("test.h", types, eng, decls, nil)

	want := LayoutReport{
		File:   "test.h",
		Target: "x86_64-linux-gnu",
		Records: []RecordReport{
			{Name: "point", Kind: "struct", Size: 8, Align: 4, Fields: []FieldReport{
				{Name: "x", Type: "int", Offset: 0, Size: 4},
				{Name: "y", Type: "int", Offset: 4, Size: 4},
			}},
			{Name: "value", Kind: "union", Size: 8, Align: 8, Fields: []FieldReport{
				{Name: "c", Type: "char", Offset: 0, Size: 1},
				{Name: "d", Type: "double", Offset: 0, Size: 8},
				{Name: "", Type: "struct <anonymous>", Offset: 0, Size: 4},
			}},
		},
		Typedefs: []TypedefReport{
			{Name: "point_t", Type: "struct point", Size: 8, Align: 4},
			{Name: "name_t", Type: "char[16]", Size: 16, Align: 1},
		},
		Functions: []FunctionReport{
			{Name: "snprintf", Signature: "int (char*,size_t,const char*,...)"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestBuildLayoutReportFilter(t *testing.T) {
	types, eng, decls := parseHeader(t, layoutHeader)
	got := BuildLayoutReport("test.h", types, eng, decls, []string{"union value", "name_t"})

	names := []string{}
	for _, r := range got.Records {
		names = append(names, r.Kind+" "+r.Name)
	}
	for _, td := range got.Typedefs {
		names = append(names, td.Name)
	}
	for _, fn := range got.Functions {
		names = append(names, fn.Name)
	}
	if diff := cmp.Diff([]string{"union value", "name_t"}, names); diff != "" {
		t.Errorf("filtered names (-want +got):\n%s", diff)
	}
}

func TestFormatLayoutsPretty(t *testing.T) {
	types, eng, decls := parseHeader(t, "struct point { int x; int y; };\ntypedef struct point point_t;\nint abs(int);\n")
	rep := BuildLayoutReport("test.h", types, eng, decls, nil)

	var buf bytes.Buffer
	if err := FormatLayoutsPretty(&buf, []LayoutReport{rep}, false); err != nil {
		t.Fatalf("FormatLayoutsPretty: %v", err)
	}
	want := strings.Join([]string{
		"test.h (x86_64-linux-gnu)",
		"",
		"struct point size=8 align=4",
		"  offset  size  type  name",
		"  0       4     int   x",
		"  4       4     int   y",
		"",
		"typedefs",
		"  name     size  align  type",
		"  point_t  8     4      struct point",
		"",
		"functions",
		"  abs int (int)",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("pretty (-want +got):\n%s", diff)
	}
}

func TestLayoutsJSONAndMsgpack(t *testing.T) {
	types, eng, decls := parseHeader(t, layoutHeader)
	reports := []LayoutReport{BuildLayoutReport("test.h", types, eng, decls, nil)}

	var js bytes.Buffer
	if err := FormatLayoutsJSON(&js, reports); err != nil {
		t.Fatalf("FormatLayoutsJSON: %v", err)
	}
	var fromJSON []LayoutReport
	if err := json.Unmarshal(js.Bytes(), &fromJSON); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !strings.Contains(js.String(), `"signature": "int (char*,size_t,const char*,...)"`) {
		t.Errorf("JSON lacks the function signature:\n%s", js.String())
	}

	var mp bytes.Buffer
	if err := FormatLayoutsMsgpack(&mp, reports); err != nil {
		t.Fatalf("FormatLayoutsMsgpack: %v", err)
	}
	fromMsgpack, err := ReadLayoutsMsgpack(&mp)
	if err != nil {
		t.Fatalf("ReadLayoutsMsgpack: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromMsgpack); diff != "" {
		t.Errorf("msgpack and JSON disagree (-json +msgpack):\n%s", diff)
	}
}
