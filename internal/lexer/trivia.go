package lexer

import (
	"cffi/internal/diag"
	"cffi/internal/token"
)

// collectLeadingTrivia собирает подряд идущие trivia перед значимым токеном.
// - ' ', '\t', '\r', '\f', '\v' коалесцируются в один TriviaSpace
// - последовательные '\n' коалесцируются в один TriviaNewline
// - //... до \n -> TriviaLineComment
// - /* ... */ -> TriviaBlockComment (без вложенности, как в C; если не закрыт: репорт)
// - # в начале строки до конца строки (с учётом '\' продолжения) -> TriviaPreproc
func (lx *Lexer) collectLeadingTrivia() {
	lx.hold = lx.hold[:0]
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		b := lx.cursor.Peek()

		switch {
		case isSpace(b):
			lx.cursor.SkipWhile(isSpace)
			lx.pushTrivia(token.TriviaSpace, start)
			continue

		case b == '\n':
			lx.cursor.SkipWhile(func(b byte) bool { return b == '\n' })
			lx.pushTrivia(token.TriviaNewline, start)
			continue

		case b == '#' && lx.atLineStart():
			lx.skipPreprocLine()
			lx.pushTrivia(token.TriviaPreproc, start)
			continue

		case b == '/':
			if lx.scanCommentIntoHold() {
				continue
			}
		}

		// нет больше trivia
		break
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	lx.hold = append(lx.hold, token.Trivia{
		Kind: kind,
		Span: lx.cursor.SpanFrom(start),
		Text: lx.cursor.TextFrom(start),
	})
}

// atLineStart reports whether only blanks precede the cursor on its line.
func (lx *Lexer) atLineStart() bool {
	for i := int(lx.cursor.Off) - 1; i >= 0; i-- {
		switch lx.file.Content[i] {
		case '\n':
			return true
		case ' ', '\t':
			continue
		default:
			return false
		}
	}
	return true
}

func (lx *Lexer) skipPreprocLine() {
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		if !lx.cursor.EatString("\\\n") {
			lx.cursor.Bump()
		}
	}
}

// //... , /*...*/
func (lx *Lexer) scanCommentIntoHold() bool {
	start := lx.cursor.Mark()
	switch {
	case lx.cursor.EatString("//"):
		lx.cursor.SkipWhile(func(b byte) bool { return b != '\n' })
		lx.pushTrivia(token.TriviaLineComment, start)
		return true
	case lx.cursor.EatString("/*"):
		if !lx.cursor.SkipPast("*/") {
			lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated block comment")
		}
		lx.pushTrivia(token.TriviaBlockComment, start)
		return true
	}
	// не комментарий: '/' уйдёт в пунктуацию
	return false
}
