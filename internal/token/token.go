package token

import (
	"cffi/internal/source"
)

// Token represents a single declaration token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsKeyword reports whether the token is a C keyword or fixed-width alias.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwTypedef && t.Kind <= KwSizeT
}

// IsBaseType reports whether the token can start a scalar base type
// (a qualifier or a builtin type keyword).
func (t Token) IsBaseType() bool {
	return t.Kind >= KwSigned && t.Kind <= KwSizeT
}

// IsPunct reports whether the token is punctuation.
func (t Token) IsPunct() bool {
	return t.Kind >= Star && t.Kind <= Ellipsis
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }
