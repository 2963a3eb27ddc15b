package layout

import (
	"runtime"
	"unsafe"
)

// Target describes the data model of the ABI the layouts are computed for.
// Only LP64 and ILP32 unix models are described; libffi's descriptors on
// those agree with these sizes.
type Target struct {
	Triple    string // e.g. "x86_64-linux-gnu"
	PtrSize   int    // bytes
	PtrAlign  int    // bytes
	LongSize  int    // bytes; 8 on LP64
	SizeTSize int
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:    "x86_64-linux-gnu",
		PtrSize:   8,
		PtrAlign:  8,
		LongSize:  8,
		SizeTSize: 8,
	}
}

// Host is the data model of the running process. On unix long and size_t
// follow the pointer width.
func Host() Target {
	ptr := int(unsafe.Sizeof(uintptr(0)))
	return Target{
		Triple:    runtime.GOARCH + "-" + runtime.GOOS,
		PtrSize:   ptr,
		PtrAlign:  ptr,
		LongSize:  ptr,
		SizeTSize: ptr,
	}
}
