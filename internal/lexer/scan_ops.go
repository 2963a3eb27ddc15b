package lexer

import (
	"fmt"

	"cffi/internal/diag"
	"cffi/internal/token"
)

func (lx *Lexer) scanPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token { return lx.tok(k, start) }

	if lx.cursor.EatString("...") {
		return emit(token.Ellipsis)
	}

	b := lx.cursor.Bump()
	switch b {
	case '*':
		return emit(token.Star)
	case ',':
		return emit(token.Comma)
	case ';':
		return emit(token.Semicolon)
	case '(':
		return emit(token.LParen)
	case ')':
		return emit(token.RParen)
	case '{':
		return emit(token.LBrace)
	case '}':
		return emit(token.RBrace)
	case '[':
		return emit(token.LBracket)
	case ']':
		return emit(token.RBracket)
	case '?':
		return emit(token.Question)
	}

	bad := emit(token.Invalid)
	lx.errLex(diag.LexUnknownChar, bad.Span, fmt.Sprintf("unexpected character %q", b))
	return bad
}
