package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0
	// Лексические
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004

	// Синтаксис объявлений
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynUnclosedParen      Code = 2006
	SynUnclosedBrace      Code = 2007
	SynUnclosedBracket    Code = 2008
	SynExpectSemicolon    Code = 2012
	SynExpectIdentifier   Code = 2102
	SynExpectType         Code = 2202
	SynVariadicMustBeLast Code = 2207
	SynFlexibleArray      Code = 2208
	SynVoidParam          Code = 2209
	SynTrailingToken      Code = 2210

	// Семантика объявлений
	SemaInfo               Code = 3000
	SemaError              Code = 3001
	SemaDuplicateSymbol    Code = 3002
	SemaUnresolvedSymbol   Code = 3005
	SemaUnknownType        Code = 3006
	SemaDuplicateMember    Code = 3007
	SemaNegativeArraySize  Code = 3008
	SemaVoidForbidden      Code = 3009
	SemaFnRedefinition     Code = 3010
	SemaLayoutError        Code = 3011
	SemaNoMember           Code = 3012
	SemaUnresolvedFunction Code = 3100

	// I/O
	IOLoadFileError Code = 4001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                 "Unknown error",
		LexInfo:                     "Lexical information",
		LexUnknownChar:              "Unknown character",
		LexUnterminatedBlockComment: "Unterminated block comment",
		LexBadNumber:                "Bad number",
		SynInfo:                     "Syntax information",
		SynUnexpectedToken:          "Unexpected token",
		SynUnclosedParen:            "Unclosed parenthesis",
		SynUnclosedBrace:            "Unclosed brace",
		SynUnclosedBracket:          "Unclosed bracket",
		SynExpectSemicolon:          "Expect semicolon",
		SynExpectIdentifier:         "Expect identifier",
		SynExpectType:               "Expect type",
		SynVariadicMustBeLast:       "Variadic parameter must be last",
		SynFlexibleArray:            "Flexible array not allowed here",
		SynVoidParam:                "'void' must be the only parameter",
		SynTrailingToken:            "Unexpected trailing token",
		SemaInfo:                    "Semantic information",
		SemaError:                   "Semantic error",
		SemaDuplicateSymbol:         "Redefinition of symbol",
		SemaUnresolvedSymbol:        "Undeclared symbol",
		SemaUnknownType:             "Unknown type name",
		SemaDuplicateMember:         "Duplicate member",
		SemaNegativeArraySize:       "Negative array size",
		SemaVoidForbidden:           "Void type in forbidden context",
		SemaFnRedefinition:          "Redefinition of function",
		SemaLayoutError:             "Layout error",
		SemaNoMember:                "Declaration does not declare a member",
		SemaUnresolvedFunction:      "Function not found in libraries",
		IOLoadFileError:             "I/O load file error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
