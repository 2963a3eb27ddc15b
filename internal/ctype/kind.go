package ctype

import "fmt"

// Kind enumerates C type kinds. Numeric kinds come first so that range
// checks classify them: integers are [KindBool, KindFloat), numbers are
// [KindBool, KindVoid).
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindChar
	KindUChar
	KindShort
	KindUShort
	KindInt
	KindUInt
	KindLong
	KindULong
	KindLongLong
	KindULongLong
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindSizeT
	KindFloat
	KindDouble

	KindVoid
	KindRecord
	KindArray
	KindPointer
	KindFunc
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindBool:      "bool",
	KindChar:      "char",
	KindUChar:     "unsigned char",
	KindShort:     "short",
	KindUShort:    "unsigned short",
	KindInt:       "int",
	KindUInt:      "unsigned int",
	KindLong:      "long",
	KindULong:     "unsigned long",
	KindLongLong:  "long long",
	KindULongLong: "unsigned long long",
	KindInt8:      "int8_t",
	KindInt16:     "int16_t",
	KindInt32:     "int32_t",
	KindInt64:     "int64_t",
	KindUint8:     "uint8_t",
	KindUint16:    "uint16_t",
	KindUint32:    "uint32_t",
	KindUint64:    "uint64_t",
	KindSizeT:     "size_t",
	KindFloat:     "float",
	KindDouble:    "double",
	KindVoid:      "void",
	KindRecord:    "record",
	KindArray:     "array",
	KindPointer:   "pointer",
	KindFunc:      "func",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsInteger reports integer kinds, bool included.
func (k Kind) IsInteger() bool { return k >= KindBool && k < KindFloat }

// IsFloat reports float and double.
func (k Kind) IsFloat() bool { return k == KindFloat || k == KindDouble }

// IsNumeric reports every scalar kind that decodes to a host number.
func (k Kind) IsNumeric() bool { return k >= KindBool && k < KindVoid }

// IsSigned reports whether an integer kind is signed. Plain char is signed.
func (k Kind) IsSigned() bool {
	switch k {
	case KindChar, KindShort, KindInt, KindLong, KindLongLong,
		KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// Unsigned maps a signed C integer kind to its unsigned counterpart.
func (k Kind) Unsigned() Kind {
	switch k {
	case KindChar:
		return KindUChar
	case KindShort:
		return KindUShort
	case KindInt:
		return KindUInt
	case KindLong:
		return KindULong
	case KindLongLong:
		return KindULongLong
	}
	return k
}
