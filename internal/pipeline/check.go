// Package pipeline checks C declaration headers in parallel: every file is
// parsed into its own registry, laid out and optionally resolved against
// shared libraries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/ffi"
	"cffi/internal/layout"
	"cffi/internal/source"
	"cffi/internal/trace"
)

// Request describes one check run.
type Request struct {
	Files          []string
	BaseDir        string // display paths are made relative to it
	Jobs           int    // 0 means GOMAXPROCS
	MaxDiagnostics int    // per file, 0 means unlimited
	// Libraries are opened once and shared by all files; every declared
	// function must resolve in at least one of them.
	Libraries []string
	Progress  ProgressSink
	Tracer    trace.Tracer
}

// FileResult is the outcome for one header.
type FileResult struct {
	Path   string // display path
	FileID source.FileID
	Bag    *diag.Bag
	Types  *ctype.Registry
	Layout *layout.LayoutEngine
	Decls  []cparse.Decl
	// Unresolved lists declared functions missing from every library.
	Unresolved []string
	Timings    Timings
}

// Failed reports whether the file produced errors.
func (r FileResult) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

type Result struct {
	FileSet *source.FileSet
	Files   []FileResult
	// Timings sums the per-file stage durations.
	Timings Timings
}

// HasErrors reports whether any file produced errors.
func (r Result) HasErrors() bool {
	for _, f := range r.Files {
		if f.Failed() {
			return true
		}
	}
	return false
}

// Bag merges the per-file diagnostics.
func (r Result) Bag() *diag.Bag {
	out := diag.NewBag(0)
	for _, f := range r.Files {
		if f.Bag != nil {
			out.Merge(f.Bag)
		}
	}
	out.Sort()
	return out
}

type checkFile struct {
	path    string
	display string
}

// Check runs parse, layout and resolve for every file. Diagnostics never
// fail the call; the error is reserved for cancellation and for libraries
// that cannot be opened.
func Check(ctx context.Context, req Request) (Result, error) {
	tr := req.Tracer
	if tr == nil {
		tr = trace.FromContext(ctx)
	}
	span := trace.Begin(tr, trace.ScopePass, "check", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	files := displayFiles(req.Files, req.BaseDir)
	span.WithExtra("files", fmt.Sprint(len(files)))

	fileSet := source.NewFileSet()
	if req.BaseDir != "" {
		fileSet.SetBaseDir(req.BaseDir)
	}
	result := Result{FileSet: fileSet, Files: make([]FileResult, len(files))}
	if len(files) == 0 {
		return result, nil
	}

	var libs []*ffi.Lib
	if len(req.Libraries) > 0 {
		env := ffi.New(ffi.WithTracer(tr))
		defer env.Close()
		for _, name := range req.Libraries {
			lib, err := env.Load(name, false)
			if err != nil {
				return result, fmt.Errorf("library %q: %w", name, err)
			}
			libs = append(libs, lib)
		}
	}

	// FileSet не потокобезопасен: загружаем заранее
	fileIDs := make([]source.FileID, len(files))
	loadErrors := make([]error, len(files))
	for i, f := range files {
		fileIDs[i], loadErrors[i] = fileSet.Load(f.path)
		if loadErrors[i] != nil {
			// пустой виртуальный файл, чтобы диагностике было куда указывать
			fileIDs[i] = fileSet.AddVirtual(f.path, nil)
		}
	}

	displays := make([]string, len(files))
	for i, f := range files {
		displays[i] = f.display
	}
	emitQueued(req.Progress, displays)

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Индексы уникальны для каждой горутины, мьютекс не нужен
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, f := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			c := &fileCheck{
				req:     &req,
				tracer:  tr,
				parent:  span.ID(),
				display: f.display,
				libs:    libs,
			}
			if loadErrors[i] != nil {
				result.Files[i] = c.loadFailed(fileIDs[i], loadErrors[i])
				return nil
			}
			result.Files[i] = c.run(fileIDs[i], fileSet.Get(fileIDs[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, f := range result.Files {
		for _, st := range []Stage{StageParse, StageLayout, StageResolve} {
			if f.Timings.Has(st) {
				result.Timings.Add(st, f.Timings.Duration(st))
			}
		}
	}
	return result, nil
}

type fileCheck struct {
	req     *Request
	tracer  trace.Tracer
	parent  uint64
	display string
	libs    []*ffi.Lib
}

func (c *fileCheck) loadFailed(id source.FileID, err error) FileResult {
	bag := diag.NewBag(c.req.MaxDiagnostics)
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: id}, "failed to load file: "+err.Error()))
	emit(c.req.Progress, c.display, StageParse, StatusError, err)
	return FileResult{Path: c.display, FileID: id, Bag: bag}
}

func (c *fileCheck) run(id source.FileID, file *source.File) FileResult {
	span := trace.Begin(c.tracer, trace.ScopeFile, c.display, c.parent)
	bag := diag.NewBag(c.req.MaxDiagnostics)
	types := ctype.NewRegistry()
	eng := layout.New(layout.Host(), types)
	res := FileResult{Path: c.display, FileID: id, Bag: bag, Types: types, Layout: eng}
	// восстановление парсера и resolve могут повторить одно сообщение
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	stage := func(st Stage, fn func()) bool {
		emit(c.req.Progress, c.display, st, StatusWorking, nil)
		start := time.Now()
		fn()
		res.Timings.Set(st, time.Since(start))
		return !bag.HasErrors()
	}

	ok := stage(StageParse, func() {
		parsed := cparse.ParseDecls(file, types, cparse.Options{Reporter: reporter, Layout: eng})
		res.Decls = parsed.Decls
	})
	if ok {
		ok = stage(StageLayout, func() { c.layoutDecls(res.Decls, eng, reporter) })
	}
	if ok && len(c.libs) > 0 {
		stage(StageResolve, func() { res.Unresolved = c.resolveDecls(res.Decls, reporter) })
	}

	bag.Sort()
	last := StageParse
	for _, st := range []Stage{StageLayout, StageResolve} {
		if res.Timings.Has(st) {
			last = st
		}
	}
	final := Event{
		File:       c.display,
		Stage:      last,
		Status:     StatusDone,
		Decls:      len(res.Decls),
		Unresolved: len(res.Unresolved),
		Elapsed:    res.Timings.Sum(StageParse, StageLayout, StageResolve),
	}
	if bag.HasErrors() {
		first, _ := bag.First()
		final.Status, final.Err = StatusError, fmt.Errorf("%s", first.Message)
		span.End("error")
	} else {
		span.WithExtra("decls", fmt.Sprint(len(res.Decls)))
		span.End("")
	}
	if c.req.Progress != nil {
		c.req.Progress.OnEvent(final)
	}
	return res
}

// layoutDecls sizes every typedef target. Opaque records are legal behind
// a typedef and stay unsized; other layout failures are errors.
func (c *fileCheck) layoutDecls(decls []cparse.Decl, eng *layout.LayoutEngine, r diag.Reporter) {
	for _, d := range decls {
		if d.Type == ctype.NoTypeID {
			continue
		}
		_, err := eng.LayoutOf(d.Type)
		if err == nil {
			continue
		}
		var le *layout.LayoutError
		if errors.As(err, &le) && le.Kind == layout.LayoutErrIncomplete {
			continue
		}
		diag.ReportError(r, diag.SemaLayoutError, d.Span, err.Error()).Emit()
	}
}

func (c *fileCheck) resolveDecls(decls []cparse.Decl, r diag.Reporter) []string {
	var missing []string
	for _, d := range decls {
		if d.Kind != cparse.DeclFunc || c.found(d.Name) {
			continue
		}
		missing = append(missing, d.Name)
		names := make([]string, len(c.libs))
		for i, l := range c.libs {
			names[i] = l.Name()
		}
		diag.ReportWarning(r, diag.SemaUnresolvedFunction, d.Span,
			fmt.Sprintf("function '%s' not found in %s", d.Name, strings.Join(names, ", "))).Emit()
	}
	return missing
}

func (c *fileCheck) found(name string) bool {
	for _, l := range c.libs {
		if l.Has(name) {
			return true
		}
	}
	return false
}

// displayFiles pairs every path with a display name relative to baseDir,
// drops duplicates and sorts by display name.
func displayFiles(files []string, baseDir string) []checkFile {
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	out := make([]checkFile, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if file == "" {
			continue
		}
		path := filepath.Clean(file)
		display := path
		if base != "" {
			if abs, err := filepath.Abs(path); err == nil {
				display = abs
			}
			if rel, err := filepath.Rel(base, display); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				display = rel
			}
		}
		display = filepath.ToSlash(display)
		if _, ok := seen[display]; ok {
			continue
		}
		seen[display] = struct{}{}
		out = append(out, checkFile{path: path, display: display})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].display < out[j].display })
	return out
}
