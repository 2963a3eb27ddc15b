// Package ffi is the runtime half of cffi: an Env owns the type registry
// filled by Cdef, allocates CData with native layout, converts between host
// Values and raw memory, and calls native functions through libffi.
//
// An Env is not safe for concurrent use. Independent Envs share nothing.
package ffi
