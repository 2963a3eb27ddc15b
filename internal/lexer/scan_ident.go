package lexer

import (
	"cffi/internal/token"
)

// scanIdentOrKeyword сканирует [A-Za-z_][A-Za-z0-9_]* и проверяет через LookupKeyword.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.SkipWhile(isIdentContinueByte)
	t := lx.tok(token.Ident, start)
	if k, ok := token.LookupKeyword(t.Text); ok {
		t.Kind = k
	}
	return t
}
