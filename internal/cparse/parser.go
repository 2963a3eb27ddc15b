// Package cparse parses the restricted C declaration grammar accepted by
// cdef into a ctype.Registry.
//
// The parser stops at the first error. Registry changes made before the
// error (earlier records, typedefs and functions) are kept.
package cparse

import (
	"fmt"

	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/layout"
	"cffi/internal/lexer"
	"cffi/internal/source"
	"cffi/internal/token"
)

type Options struct {
	Reporter diag.Reporter
	// Layout computes record layouts on completion; it must wrap the same
	// registry that is being populated.
	Layout *layout.LayoutEngine
}

// DeclKind classifies top-level declarations.
type DeclKind uint8

const (
	DeclRecord DeclKind = iota + 1
	DeclTypedef
	DeclFunc
)

func (k DeclKind) String() string {
	switch k {
	case DeclRecord:
		return "record"
	case DeclTypedef:
		return "typedef"
	case DeclFunc:
		return "function"
	}
	return "unknown"
}

// Decl is a declaration registered by ParseDecls.
type Decl struct {
	Kind DeclKind
	Name string
	Type ctype.TypeID // record or typedef target; NoTypeID for functions
	Span source.Span
}

type Result struct {
	Decls  []Decl
	Failed bool
}

// TypeExpr is a parsed standalone type. When Flexible is set, Type is the
// element type of an array whose length is supplied by the caller.
type TypeExpr struct {
	Type     ctype.TypeID
	Flexible bool
}

// Parser: состояние парсера на один текст объявлений
type Parser struct {
	lx       *lexer.Lexer
	types    *ctype.Registry
	opts     Options
	lastSpan source.Span
	failed   bool
	decls    []Decl
}

func newParser(file *source.File, types *ctype.Registry, opts Options) *Parser {
	if opts.Layout == nil {
		opts.Layout = layout.New(layout.X86_64LinuxGNU(), types)
	}
	lx := lexer.New(file, lexer.Options{Reporter: opts.Reporter})
	return &Parser{
		lx:       lx,
		types:    types,
		opts:     opts,
		lastSpan: lx.EmptySpan(),
	}
}

// ParseDecls parses a sequence of declarations and registers them.
func ParseDecls(file *source.File, types *ctype.Registry, opts Options) Result {
	p := newParser(file, types, opts)
	p.parseDecls()
	return Result{Decls: p.decls, Failed: p.failed}
}

// ParseType parses a single type such as "struct point*" or "char[?]".
// allowFlexible permits a trailing "[]" or "[?]" whose length is decided
// by the caller.
func ParseType(file *source.File, types *ctype.Registry, opts Options, allowFlexible bool) (TypeExpr, bool) {
	p := newParser(file, types, opts)
	te, ok := p.parseTypeExpr(allowFlexible)
	return te, ok && !p.failed
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

// advance: съедает следующий токен и обновляет lastSpan
func (p *Parser) advance() token.Token {
	tok := p.lx.Next()
	if tok.Kind != token.EOF && tok.Kind != token.Invalid {
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// getDiagnosticSpan: на EOF указываем сразу за последним токеном
func (p *Parser) getDiagnosticSpan() source.Span {
	peek := p.lx.Peek()
	if peek.Kind == token.EOF && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return peek.Span
}

// peekText: текст токена для сообщений "'X' expected before 'Y'"
func (p *Parser) peekText() string {
	tok := p.lx.Peek()
	if tok.Kind == token.EOF {
		return "end of input"
	}
	return tok.Text
}

// expect: ожидаем конкретный токен; what: то, что печатаем в сообщении.
func (p *Parser) expect(k token.Kind, code diag.Code, what string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.expected(code, what)
	return token.Token{Kind: token.Invalid}, false
}

func (p *Parser) expected(code diag.Code, what string) {
	p.report(code, p.getDiagnosticSpan(), fmt.Sprintf("'%s' expected before '%s'", what, p.peekText()))
}

func (p *Parser) expectSemicolon() bool {
	if p.eat(token.Semicolon) {
		return true
	}
	if p.failed {
		return false
	}
	p.failed = true
	if p.lx.Peek().Kind == token.Invalid || p.opts.Reporter == nil {
		return false
	}
	insertAt := source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	diag.ReportError(p.opts.Reporter, diag.SynExpectSemicolon, p.getDiagnosticSpan(),
		fmt.Sprintf("';' expected before '%s'", p.peekText())).
		WithFix("insert ';'", diag.FixEdit{Span: insertAt, NewText: ";"}).
		Emit()
	return false
}

// report: первая ошибка останавливает разбор. Невалидный токен уже
// отрепорчен лексером, повторно не сообщаем.
func (p *Parser) report(code diag.Code, sp source.Span, msg string) {
	if p.failed {
		return
	}
	p.failed = true
	if p.lx.Peek().Kind == token.Invalid {
		return
	}
	if p.opts.Reporter != nil {
		diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
	}
}

func (p *Parser) errAt(code diag.Code, sp source.Span, format string, args ...any) bool {
	p.report(code, sp, fmt.Sprintf(format, args...))
	return false
}
