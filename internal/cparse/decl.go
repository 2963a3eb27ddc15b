package cparse

import (
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/source"
	"cffi/internal/token"
)

// parseDecls: верхний уровень: пустые ';', typedef, объявления записей
// и прототипы функций.
func (p *Parser) parseDecls() {
	for !p.failed && !p.at(token.EOF) {
		if p.eat(token.Semicolon) {
			continue
		}
		if p.at(token.Invalid) {
			p.failed = true
			return
		}
		start := p.lx.Peek().Span
		if p.eat(token.KwTypedef) {
			p.parseTypedef(start)
			continue
		}
		base, ok := p.parseBaseType()
		if !ok {
			return
		}
		if p.eat(token.Semicolon) {
			continue
		}
		p.parseFunction(base, start)
	}
}

// typedef T [*...] NAME [dims];
func (p *Parser) parseTypedef(start source.Span) bool {
	base, ok := p.parseBaseType()
	if !ok {
		return false
	}
	t := p.parsePointer(base)
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "identifier")
	if !ok {
		return false
	}
	if _, exists := p.types.LookupTypedef(nameTok.Text); exists {
		return p.errAt(diag.SemaDuplicateSymbol, nameTok.Span, "redefinition of symbol '%s'", nameTok.Text)
	}
	suf, ok := p.parseArray(false)
	if !ok {
		return false
	}
	if suf.present {
		if p.types.Kind(t) == ctype.KindVoid {
			return p.errAt(diag.SemaVoidForbidden, nameTok.Span, "void type in forbidden context near '%s'", nameTok.Text)
		}
		t = p.wrapArray(t, suf)
	}
	if !p.expectSemicolon() {
		return false
	}
	if err := p.types.DefineTypedef(nameTok.Text, t); err != nil {
		return p.errAt(diag.SemaDuplicateSymbol, nameTok.Span, "%v", err)
	}
	p.decls = append(p.decls, Decl{Kind: DeclTypedef, Name: nameTok.Text, Type: t, Span: start.Cover(p.lastSpan)})
	return true
}

// RTYPE [*...] NAME '(' [void | PARAM {',' PARAM} [',' '...'] | '...'] ')' ';'
// Параметры-массивы деградируют до указателей.
func (p *Parser) parseFunction(ret ctype.TypeID, start source.Span) bool {
	ret = p.parsePointer(ret)
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "identifier")
	if !ok {
		return false
	}
	if _, exists := p.types.LookupFunc(nameTok.Text); exists {
		return p.errAt(diag.SemaFnRedefinition, nameTok.Span, "redefinition of function '%s'", nameTok.Text)
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "("); !ok {
		return false
	}

	var (
		params   []ctype.TypeID
		variadic bool
	)
	for !p.eat(token.RParen) {
		if p.eat(token.Ellipsis) {
			variadic = true
			if _, ok := p.expect(token.RParen, diag.SynVariadicMustBeLast, ")"); !ok {
				return false
			}
			break
		}
		base, ok := p.parseBaseType()
		if !ok {
			return false
		}
		t := p.parsePointer(base)
		if p.types.Kind(t) == ctype.KindVoid {
			if len(params) == 0 && p.eat(token.RParen) {
				break
			}
			return p.errAt(diag.SemaVoidForbidden, p.getDiagnosticSpan(), "void type in forbidden context near '%s'", p.peekText())
		}
		p.eat(token.Ident)
		suf, ok := p.parseArray(true)
		if !ok {
			return false
		}
		if suf.present {
			t = p.types.Pointer(p.wrapArray(t, arraySuffix{dims: suf.dims[1:]}), false)
		}
		params = append(params, t)

		if p.at(token.RParen) {
			continue
		}
		if _, ok := p.expect(token.Comma, diag.SynUnexpectedToken, ","); !ok {
			return false
		}
		if p.at(token.RParen) {
			p.expected(diag.SynExpectType, "type")
			return false
		}
	}

	if !p.expectSemicolon() {
		return false
	}
	info := ctype.FuncInfo{Name: nameTok.Text, Params: params, Variadic: variadic, Result: ret}
	if err := p.types.DeclareFunc(info); err != nil {
		return p.errAt(diag.SemaFnRedefinition, nameTok.Span, "%v", err)
	}
	p.decls = append(p.decls, Decl{Kind: DeclFunc, Name: nameTok.Text, Span: start.Cover(p.lastSpan)})
	return true
}
