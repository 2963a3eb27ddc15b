package layout

import (
	"fmt"

	"cffi/internal/ctype"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrIncomplete: a record used by value before its body is complete.
	LayoutErrIncomplete LayoutErrorKind = iota + 1
	LayoutErrLengthConversion
	LayoutErrUnsized
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind LayoutErrorKind
	Type ctype.TypeID
	Name string // rendered type, filled by the engine
	Err  error  // for LayoutErrLengthConversion
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrIncomplete:
		return fmt.Sprintf("incomplete type '%s'", e.Name)
	case LayoutErrLengthConversion:
		if e.Err != nil {
			return fmt.Sprintf("array size overflow for '%s': %v", e.Name, e.Err)
		}
		return fmt.Sprintf("array size overflow for '%s'", e.Name)
	case LayoutErrUnsized:
		return fmt.Sprintf("type '%s' has no size", e.Name)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error { return e.Err }
