package ffi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies runtime failures.
type ErrorKind uint8

const (
	ErrSyntax      ErrorKind = iota + 1 // malformed declaration text
	ErrDeclaration                      // redefinition, undeclared tag, bad array size, ...
	ErrConversion                       // value not representable as the target type
	ErrCall                             // arity, variadic inference, CIF, return type
	ErrAccess                           // indexing, members, read-only writes
	ErrLibrary                          // load failures and missing symbols
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "syntax"
	case ErrDeclaration:
		return "declaration"
	case ErrConversion:
		return "conversion"
	case ErrCall:
		return "call"
	case ErrAccess:
		return "access"
	case ErrLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Error is the only error type ffi returns to hosts.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of an ffi error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
