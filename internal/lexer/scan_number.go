package lexer

import (
	"cffi/internal/diag"
	"cffi/internal/token"
)

// Поддержка: 0, 123, -4, 0x1F, 017 и суффиксы u/U/l/L (игнорируются парсером).
// Дробные литералы в объявлениях не встречаются: "1.5" репортится как BadNumber.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Eat('-')

	bad := func(msg string) token.Token {
		t := lx.tok(token.Invalid, start)
		lx.errLex(diag.LexBadNumber, t.Span, msg)
		return t
	}

	if lx.cursor.EatString("0x") || lx.cursor.EatString("0X") {
		if !lx.cursor.SkipWhile(isHex) {
			return bad("expected hex digit after '0x'")
		}
	} else {
		lx.cursor.SkipWhile(isDec)
	}
	lx.cursor.SkipWhile(isIntSuffix)

	if b := lx.cursor.Peek(); b == '.' || isIdentStartByte(b) {
		lx.cursor.SkipWhile(func(b byte) bool { return b == '.' || isIdentContinueByte(b) })
		return bad("invalid integer constant")
	}
	return lx.tok(token.IntLit, start)
}
