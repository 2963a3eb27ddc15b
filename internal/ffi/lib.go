package ffi

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"cffi/internal/native"
	"cffi/internal/trace"
)

// Lib is a loaded library namespace. Function CData are resolved once
// and cached by name.
type Lib struct {
	env     *Env
	lib     *native.Library
	name    string
	funcs   map[string]*CData
	openErr error // default namespace in a build without a loader
}

// Load opens a shared library. A bare name is expanded the usual way:
// "m" becomes "libm.so" (".dylib" on darwin). global makes its symbols
// visible to libraries loaded later.
func (e *Env) Load(name string, global bool) (*Lib, error) {
	span := trace.Begin(e.tracer, trace.ScopeFile, "load", 0)
	path := expandLibName(name)
	span.WithExtra("path", path)
	lib, err := openLib(path, global)
	if err != nil {
		span.End("error")
		if errors.Is(err, native.ErrUnavailable) {
			return nil, wrapError(ErrLibrary, err, "%v", err)
		}
		var le *native.LoadError
		if errors.As(err, &le) {
			return nil, wrapError(ErrLibrary, err, "%s", le.Msg)
		}
		return nil, wrapError(ErrLibrary, err, "%v", err)
	}
	span.End("")
	l := &Lib{env: e, lib: lib, name: path, funcs: make(map[string]*CData)}
	e.libs = append(e.libs, l)
	return l, nil
}

func (e *Env) defaultLib() *Lib {
	l := &Lib{env: e, funcs: make(map[string]*CData)}
	lib, err := native.Open("", false)
	if err != nil {
		l.openErr = err
		return l
	}
	l.lib = lib
	return l
}

// openLib retries through a GNU ld script when the loader reports that
// the path is not an object (e.g. /usr/lib/x86_64-linux-gnu/libc.so).
func openLib(path string, global bool) (*native.Library, error) {
	lib, err := native.Open(path, global)
	if err == nil {
		return lib, nil
	}
	var le *native.LoadError
	if !errors.As(err, &le) || !strings.HasPrefix(le.Msg, "/") {
		return nil, err
	}
	script, _, ok := strings.Cut(le.Msg, ":")
	if !ok {
		return nil, err
	}
	target, found := resolveLdScript(script)
	if !found {
		return nil, err
	}
	return native.Open(target, global)
}

func expandLibName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	if !strings.Contains(name, ".") {
		ext := ".so"
		if runtime.GOOS == "darwin" {
			ext = ".dylib"
		}
		name += ext
	}
	if !strings.HasPrefix(name, "lib") {
		name = "lib" + name
	}
	return name
}

// resolveLdScript finds the first GROUP( or INPUT( operand. Only the first
// line is checked unless the file starts with the ld script banner.
func resolveLdScript(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return "", false
	}
	first := sc.Text()
	if !strings.HasPrefix(first, "/* GNU ld script") {
		return ldOperand(first)
	}
	for sc.Scan() {
		if p, ok := ldOperand(sc.Text()); ok {
			return p, true
		}
	}
	return "", false
}

func ldOperand(line string) (string, bool) {
	if !strings.HasPrefix(line, "GROUP") && !strings.HasPrefix(line, "INPUT") {
		return "", false
	}
	_, rest, ok := strings.Cut(line, "(")
	if !ok {
		return "", false
	}
	rest = strings.TrimLeft(rest, " ")
	if end := strings.IndexAny(rest, " )"); end >= 0 {
		rest = rest[:end]
	}
	return rest, rest != ""
}

// Func returns the CData of a declared function bound to its address in
// this library.
func (l *Lib) Func(name string) (*CData, error) {
	if cd, ok := l.funcs[name]; ok {
		return cd, nil
	}
	e := l.env
	id, ok := e.types.FuncType(name)
	if !ok {
		return nil, errorf(ErrLibrary, "missing declaration for function '%s'", name)
	}
	if l.lib == nil {
		err := l.openErr
		if err == nil {
			err = errors.New("library is closed")
		}
		return nil, wrapError(ErrLibrary, err, "cannot resolve symbol '%s': %v", name, err)
	}
	sym, err := l.lib.Sym(name)
	if err != nil {
		return nil, wrapError(ErrLibrary, err, "cannot resolve symbol '%s': %v", name, err)
	}
	cd := e.newPointer(id, uintptr(sym), nil)
	l.funcs[name] = cd
	return cd, nil
}

// Has reports whether the library exports name. Unlike Func it needs no
// declaration and caches nothing, so it is safe for concurrent use.
func (l *Lib) Has(name string) bool {
	if l.lib == nil {
		return false
	}
	_, err := l.lib.Sym(name)
	return err == nil
}

// Get is Func with a host key, for namespace-style lookups.
func (l *Lib) Get(key Value) (Value, error) {
	if key.Kind != KindString {
		return Nil(), errorf(ErrAccess, "library cannot be indexed with %s", key.TypeName())
	}
	cd, err := l.Func(key.s)
	if err != nil {
		return Nil(), err
	}
	return FromCData(cd), nil
}

// Name is the path the library was opened with, empty for the default.
func (l *Lib) Name() string { return l.name }

// Default reports whether l is the program's own namespace.
func (l *Lib) Default() bool { return l == l.env.C }

func (l *Lib) String() string {
	if l.name == "" {
		return "library: default"
	}
	return fmt.Sprintf("library: %s", l.name)
}

// Close unloads the library. Its function CData must not be called after.
func (l *Lib) Close() error {
	clear(l.funcs)
	if l.lib == nil {
		return nil
	}
	err := l.lib.Close()
	l.lib = nil
	if err != nil {
		return wrapError(ErrLibrary, err, "%v", err)
	}
	return nil
}
