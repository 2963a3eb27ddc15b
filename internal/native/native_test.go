package native_test

import (
	"errors"
	"testing"
	"unsafe"

	"cffi/internal/native"
)

func TestAllocIsZeroed(t *testing.T) {
	p := native.Alloc(24)
	defer native.Free(p)
	for i, b := range native.Bytes(p, 24) {
		if b != 0 {
			t.Fatalf("byte %d = %d", i, b)
		}
	}
	*(*int64)(unsafe.Add(p, 8)) = -7
	if got := *(*int64)(unsafe.Add(p, 8)); got != -7 {
		t.Fatalf("round trip = %d", got)
	}
}

func TestIntScalar(t *testing.T) {
	cases := []struct {
		size   int
		signed bool
		want   native.Scalar
	}{
		{1, true, native.Sint8},
		{2, false, native.Uint16},
		{4, true, native.Sint32},
		{8, false, native.Uint64},
	}
	for _, tc := range cases {
		got, ok := native.IntScalar(tc.size, tc.signed)
		if !ok || got != tc.want {
			t.Errorf("IntScalar(%d,%v) = %s", tc.size, tc.signed, got)
		}
	}
	if _, ok := native.IntScalar(3, true); ok {
		t.Fatalf("3-byte integers must be rejected")
	}
}

func TestCallAbs(t *testing.T) {
	lib, err := native.Open("", false)
	if errors.Is(err, native.ErrUnavailable) {
		t.Skip("built without cgo")
	}
	if err != nil {
		t.Fatal(err)
	}
	fn, err := lib.Sym("abs")
	if err != nil {
		t.Fatal(err)
	}
	i32 := native.ScalarType(native.Sint32)
	cif, err := native.Prep(i32, []*native.Type{i32}, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	defer cif.Free()

	arg := native.Alloc(4)
	ret := native.Alloc(8)
	defer native.Free(arg)
	defer native.Free(ret)
	*(*int32)(arg) = -42
	cif.Call(fn, ret, []unsafe.Pointer{arg}, 0)
	if got := *(*int32)(ret); got != 42 {
		t.Fatalf("abs(-42) = %d", got)
	}
}

func TestMissingSymbol(t *testing.T) {
	lib, err := native.Open("", false)
	if errors.Is(err, native.ErrUnavailable) {
		t.Skip("built without cgo")
	}
	if err != nil {
		t.Fatal(err)
	}
	_, err = lib.Sym("cffi_no_such_symbol")
	var le *native.LoadError
	if !errors.As(err, &le) || le.Op != "dlsym" {
		t.Fatalf("err = %v", err)
	}
}
