package token

import "fmt"

// Kind represents the category of a declaration token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the declaration text.
	EOF

	// Ident represents an identifier (field, function or typedef name).
	Ident
	// IntLit represents an integer literal (array sizes), optionally negative.
	IntLit

	KwTypedef  // typedef
	KwStruct   // struct
	KwUnion    // union
	KwConst    // const
	KwSigned   // signed
	KwUnsigned // unsigned
	KwBool     // bool, _Bool
	KwVoid     // void
	KwChar     // char
	KwShort    // short
	KwInt      // int
	KwLong     // long
	KwFloat    // float
	KwDouble   // double
	KwInt8     // int8_t
	KwInt16    // int16_t
	KwInt32    // int32_t
	KwInt64    // int64_t
	KwUint8    // uint8_t
	KwUint16   // uint16_t
	KwUint32   // uint32_t
	KwUint64   // uint64_t
	KwSizeT    // size_t

	Star      // *
	Comma     // ,
	Semicolon // ;
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	Question  // ?
	Ellipsis  // ... (vararg)
)

var kindNames = [...]string{
	Invalid:    "Invalid",
	EOF:        "EOF",
	Ident:      "Ident",
	IntLit:     "IntLit",
	KwTypedef:  "KwTypedef",
	KwStruct:   "KwStruct",
	KwUnion:    "KwUnion",
	KwConst:    "KwConst",
	KwSigned:   "KwSigned",
	KwUnsigned: "KwUnsigned",
	KwBool:     "KwBool",
	KwVoid:     "KwVoid",
	KwChar:     "KwChar",
	KwShort:    "KwShort",
	KwInt:      "KwInt",
	KwLong:     "KwLong",
	KwFloat:    "KwFloat",
	KwDouble:   "KwDouble",
	KwInt8:     "KwInt8",
	KwInt16:    "KwInt16",
	KwInt32:    "KwInt32",
	KwInt64:    "KwInt64",
	KwUint8:    "KwUint8",
	KwUint16:   "KwUint16",
	KwUint32:   "KwUint32",
	KwUint64:   "KwUint64",
	KwSizeT:    "KwSizeT",
	Star:       "Star",
	Comma:      "Comma",
	Semicolon:  "Semicolon",
	LParen:     "LParen",
	RParen:     "RParen",
	LBrace:     "LBrace",
	RBrace:     "RBrace",
	LBracket:   "LBracket",
	RBracket:   "RBracket",
	Question:   "Question",
	Ellipsis:   "Ellipsis",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}
