package ffi

import (
	"errors"
	"fmt"
	"strconv"

	"cffi/internal/cparse"
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/layout"
	"cffi/internal/native"
	"cffi/internal/source"
	"cffi/internal/trace"
)

// Env holds every registry of one FFI environment. Dropping it (after
// Close) drops the types, the loaded libraries and the native descriptors.
type Env struct {
	types   *ctype.Registry
	layout  *layout.LayoutEngine
	files   *source.FileSet
	tracer  trace.Tracer
	maxDiag int

	handles  map[ctype.TypeID]*Type
	ffiTypes map[ctype.TypeID]*native.Type
	owned    []*native.Type
	children *childTable
	mem      allocs // строки без владельца живут до Close

	libs  []*Lib
	errno int
	cdefs int

	// C is the default namespace: the running program and its libraries.
	C *Lib
}

// Option configures an Env.
type Option func(*Env)

// WithTracer emits cdef passes and (at debug level) every call.
func WithTracer(t trace.Tracer) Option {
	return func(e *Env) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMaxDiagnostics bounds the diagnostics collected per cdef.
func WithMaxDiagnostics(n int) Option {
	return func(e *Env) { e.maxDiag = n }
}

// WithFileSet shares a file set with the caller so diagnostics can be
// rendered against the same sources.
func WithFileSet(fs *source.FileSet) Option {
	return func(e *Env) {
		if fs != nil {
			e.files = fs
		}
	}
}

// New creates an environment for the host ABI.
func New(opts ...Option) *Env {
	types := ctype.NewRegistry()
	e := &Env{
		types:    types,
		layout:   layout.New(layout.Host(), types),
		files:    source.NewFileSet(),
		tracer:   trace.Nop,
		maxDiag:  32,
		handles:  make(map[ctype.TypeID]*Type),
		ffiTypes: make(map[ctype.TypeID]*native.Type),
		children: newChildTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.C = e.defaultLib()
	return e
}

// Types exposes the registry, e.g. for layout reports.
func (e *Env) Types() *ctype.Registry { return e.types }

// Layout exposes the layout engine of the host ABI.
func (e *Env) Layout() *layout.LayoutEngine { return e.layout }

// Files is the file set holding every cdef source.
func (e *Env) Files() *source.FileSet { return e.files }

// Close unloads libraries and frees native descriptors. CData created by
// the Env stay valid; calling through them after Close is undefined.
func (e *Env) Close() error {
	var errs []error
	for _, l := range e.libs {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.libs = nil
	if err := e.C.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, t := range e.owned {
		t.Release()
	}
	e.owned = nil
	clear(e.ffiTypes)
	e.mem.release()
	return errors.Join(errs...)
}

// Cdef parses declarations and registers them. Declarations before the
// first error stay registered.
func (e *Env) Cdef(text string) error {
	e.cdefs++
	id := e.files.AddVirtual("cdef#"+strconv.Itoa(e.cdefs), []byte(text))
	return e.cdefFile(e.files.Get(id))
}

// CdefFile loads a header from disk (UTF-8, or UTF-16 with a BOM).
func (e *Env) CdefFile(path string) error {
	id, err := e.files.Load(path)
	if err != nil {
		return wrapError(ErrDeclaration, err, "cannot read %s: %v", path, err)
	}
	return e.cdefFile(e.files.Get(id))
}

func (e *Env) cdefFile(f *source.File) error {
	span := trace.Begin(e.tracer, trace.ScopePass, "cdef", 0)
	bag := diag.NewBag(e.maxDiag)
	res := cparse.ParseDecls(f, e.types, cparse.Options{
		Reporter: diag.BagReporter{Bag: bag},
		Layout:   e.layout,
	})
	span.WithExtra("file", f.Path).WithExtra("decls", strconv.Itoa(len(res.Decls)))
	if d, ok := bag.First(); ok {
		span.End("error")
		return diagError(e.files, d)
	}
	span.End("")
	return nil
}

// diagError turns a parser diagnostic into "line:message".
func diagError(fs *source.FileSet, d diag.Diagnostic) *Error {
	kind := ErrSyntax
	if d.Code >= diag.SemaInfo {
		kind = ErrDeclaration
	}
	start, _ := fs.Resolve(d.Primary)
	return errorf(kind, "%d:%s", start.Line, d.Message)
}

// resolve accepts a declaration string, a CType or a CData and yields its
// type. A string may end in a flexible dimension when allowFlexible is
// set; the element type is returned with flexible=true.
func (e *Env) resolve(spec Value, allowFlexible bool) (id ctype.TypeID, flexible bool, err error) {
	switch spec.Kind {
	case KindString:
		// типы-строки не попадают в общий FileSet: их разбирают на каждый вызов
		fs := source.NewFileSet()
		fid := fs.AddVirtual("type", []byte(spec.s))
		bag := diag.NewBag(1)
		te, ok := cparse.ParseType(fs.Get(fid), e.types, cparse.Options{
			Reporter: diag.BagReporter{Bag: bag},
			Layout:   e.layout,
		}, allowFlexible)
		if !ok {
			if d, has := bag.First(); has {
				return ctype.NoTypeID, false, diagError(fs, d)
			}
			return ctype.NoTypeID, false, errorf(ErrSyntax, "invalid type '%s'", spec.s)
		}
		return te.Type, te.Flexible, nil
	case KindCType:
		return spec.ct.id, false, nil
	case KindCData:
		return spec.cd.t, false, nil
	}
	return ctype.NoTypeID, false, errorf(ErrConversion, "ctype expected, got %s", spec.TypeName())
}

// Type is a canonical C type handle. Handles of one Env compare with ==.
type Type struct {
	env *Env
	id  ctype.TypeID
}

func (e *Env) handle(id ctype.TypeID) *Type {
	if t, ok := e.handles[id]; ok {
		return t
	}
	t := &Type{env: e, id: id}
	e.handles[id] = t
	return t
}

// ID is the registry id behind the handle.
func (t *Type) ID() ctype.TypeID { return t.id }

// Kind of the type.
func (t *Type) Kind() ctype.Kind { return t.env.types.Kind(t.id) }

// String spells the type like a C declaration.
func (t *Type) String() string { return t.env.types.String(t.id) }

func (e *Env) size(id ctype.TypeID) (int, error) {
	n, err := e.layout.SizeOf(id)
	if err != nil {
		return 0, wrapError(ErrDeclaration, err, "%v", err)
	}
	return n, nil
}

func (e *Env) sizeOrZero(id ctype.TypeID) int {
	n, _ := e.layout.SizeOf(id)
	return n
}

func (e *Env) String() string {
	return fmt.Sprintf("ffi.Env{types: %d, libs: %d}", e.types.Len(), len(e.libs))
}
