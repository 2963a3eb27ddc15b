package lexer

import "cffi/internal/token"

// Идентификаторы C: только ASCII.
func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
func isIdentContinueByte(b byte) bool {
	return isIdentStartByte(b) || isDec(b)
}

func isDec(b byte) bool { return b >= '0' && b <= '9' }
func isHex(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIntSuffix(b byte) bool {
	return b == 'u' || b == 'U' || b == 'l' || b == 'L'
}

// isNumberAfterMinus: "-5" в размере массива или значении enum.
func (lx *Lexer) isNumberAfterMinus() bool {
	return lx.cursor.Peek() == '-' && isDec(lx.cursor.PeekAt(1))
}

// tok builds a token of kind k from the text consumed since start.
func (lx *Lexer) tok(k token.Kind, start Mark) token.Token {
	return token.Token{Kind: k, Span: lx.cursor.SpanFrom(start), Text: lx.cursor.TextFrom(start)}
}
