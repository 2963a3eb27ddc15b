package cparse

import (
	"math"
	"strconv"
	"strings"

	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/token"
)

var builtinKinds = map[token.Kind]ctype.Kind{
	token.KwVoid:   ctype.KindVoid,
	token.KwBool:   ctype.KindBool,
	token.KwChar:   ctype.KindChar,
	token.KwShort:  ctype.KindShort,
	token.KwInt:    ctype.KindInt,
	token.KwLong:   ctype.KindLong,
	token.KwFloat:  ctype.KindFloat,
	token.KwDouble: ctype.KindDouble,
	token.KwInt8:   ctype.KindInt8,
	token.KwInt16:  ctype.KindInt16,
	token.KwInt32:  ctype.KindInt32,
	token.KwInt64:  ctype.KindInt64,
	token.KwUint8:  ctype.KindUint8,
	token.KwUint16: ctype.KindUint16,
	token.KwUint32: ctype.KindUint32,
	token.KwUint64: ctype.KindUint64,
	token.KwSizeT:  ctype.KindSizeT,
}

// parseBaseType разбирает: [const] (signed|unsigned [char|short|int|long] |
// struct/union | встроенный тип | typedef-имя) [int|long] [const]
func (p *Parser) parseBaseType() (ctype.TypeID, bool) {
	isConst := p.eat(token.KwConst)

	var id ctype.TypeID
	tok := p.lx.Peek()
	switch {
	case tok.Kind == token.KwSigned || tok.Kind == token.KwUnsigned:
		p.advance()
		k := ctype.KindInt
		switch p.lx.Peek().Kind {
		case token.KwChar, token.KwShort, token.KwInt, token.KwLong:
			k = builtinKinds[p.advance().Kind]
		}
		if tok.Kind == token.KwUnsigned {
			k = k.Unsigned()
		}
		id = p.types.Primitive(k, false)

	case tok.Kind == token.KwStruct || tok.Kind == token.KwUnion:
		p.advance()
		var ok bool
		if id, ok = p.parseRecord(tok.Kind == token.KwUnion); !ok {
			return ctype.NoTypeID, false
		}

	case tok.Kind == token.Ident:
		td, ok := p.types.LookupTypedef(tok.Text)
		if !ok {
			return ctype.NoTypeID, p.errAt(diag.SemaUnknownType, tok.Span, "unknown type name '%s'", tok.Text)
		}
		p.advance()
		id = td

	default:
		k, ok := builtinKinds[tok.Kind]
		if !ok {
			return ctype.NoTypeID, p.errAt(diag.SemaUnknownType, p.getDiagnosticSpan(), "unknown type name '%s'", p.peekText())
		}
		p.advance()
		id = p.types.Primitive(k, false)
	}

	id = p.integerSuffix(id)

	if p.eat(token.KwConst) {
		isConst = true
	}
	if isConst {
		id = p.types.WithConst(id, true)
	}
	return id, true
}

// integerSuffix: long повышает int->long->long long (unsigned так же),
// хвостовой int после short/long форм поглощается.
func (p *Parser) integerSuffix(id ctype.TypeID) ctype.TypeID {
	t := p.types.MustLookup(id)
	for {
		switch p.lx.Peek().Kind {
		case token.KwLong:
			next, ok := longer(t.Kind)
			if !ok {
				return id
			}
			p.advance()
			t.Kind = next
			id = p.types.Intern(t)
			continue
		case token.KwInt:
			switch t.Kind {
			case ctype.KindShort, ctype.KindUShort, ctype.KindLong, ctype.KindULong,
				ctype.KindLongLong, ctype.KindULongLong:
				p.advance()
			}
		}
		return id
	}
}

func longer(k ctype.Kind) (ctype.Kind, bool) {
	switch k {
	case ctype.KindInt:
		return ctype.KindLong, true
	case ctype.KindUInt:
		return ctype.KindULong, true
	case ctype.KindLong:
		return ctype.KindLongLong, true
	case ctype.KindULong:
		return ctype.KindULongLong, true
	}
	return k, false
}

// parsePointer: цепочка '*', после каждой звезды допускается const.
// const без звёзд относится к самому типу.
func (p *Parser) parsePointer(id ctype.TypeID) ctype.TypeID {
	for p.eat(token.Star) {
		id = p.types.Pointer(id, false)
		if p.eat(token.KwConst) {
			id = p.types.WithConst(id, true)
		}
	}
	if p.eat(token.KwConst) {
		id = p.types.WithConst(id, true)
	}
	return id
}

// arraySuffix is the result of parseArray.
type arraySuffix struct {
	present  bool
	flexible bool
	dims     []uint32 // outermost first; dims[0] == 0 when flexible
}

// parseArray: '[' (N | '?' | ) ']' { '[' N ']' }
func (p *Parser) parseArray(allowFlexible bool) (arraySuffix, bool) {
	var out arraySuffix
	for p.at(token.LBracket) {
		p.advance()
		out.present = true
		first := len(out.dims) == 0

		switch {
		case p.at(token.IntLit):
			lit := p.advance()
			n, ok := p.arraySize(lit)
			if !ok {
				return out, false
			}
			out.dims = append(out.dims, n)
		case !first || !allowFlexible:
			return out, p.errAt(diag.SynFlexibleArray, p.getDiagnosticSpan(), "flexible array not supported at here")
		default:
			p.eat(token.Question)
			out.flexible = true
			out.dims = append(out.dims, 0)
		}

		if _, ok := p.expect(token.RBracket, diag.SynUnclosedBracket, "]"); !ok {
			return out, false
		}
	}
	return out, true
}

func (p *Parser) arraySize(lit token.Token) (uint32, bool) {
	text := strings.TrimRight(lit.Text, "uUlL")
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, p.errAt(diag.LexBadNumber, lit.Span, "invalid array size '%s'", lit.Text)
	}
	if n < 0 {
		return 0, p.errAt(diag.SemaNegativeArraySize, lit.Span, "size of array is negative")
	}
	if n > math.MaxUint32 {
		return 0, p.errAt(diag.SemaError, lit.Span, "size of array is too large")
	}
	return uint32(n), true
}

// wrapArray builds elem[d0][d1]... from the innermost dimension outwards.
func (p *Parser) wrapArray(elem ctype.TypeID, suf arraySuffix) ctype.TypeID {
	for i := len(suf.dims) - 1; i >= 0; i-- {
		elem = p.types.Array(elem, suf.dims[i])
	}
	return elem
}

// parseTypeExpr: базовый тип, указатели, необязательный массив, конец ввода.
func (p *Parser) parseTypeExpr(allowFlexible bool) (TypeExpr, bool) {
	base, ok := p.parseBaseType()
	if !ok {
		return TypeExpr{}, false
	}
	id := p.parsePointer(base)
	suf, ok := p.parseArray(allowFlexible)
	if !ok {
		return TypeExpr{}, false
	}
	if !p.at(token.EOF) {
		return TypeExpr{}, p.errAt(diag.SynTrailingToken, p.getDiagnosticSpan(), "unexpected '%s'", p.peekText())
	}
	if !suf.present {
		return TypeExpr{Type: id}, true
	}
	if p.types.Kind(id) == ctype.KindVoid {
		return TypeExpr{}, p.errAt(diag.SemaVoidForbidden, p.lastSpan, "void type in forbidden context")
	}
	if suf.flexible {
		// длину подставит вызывающий: элемент: всё, что правее первой размерности
		return TypeExpr{Type: p.wrapArray(id, arraySuffix{dims: suf.dims[1:]}), Flexible: true}, true
	}
	return TypeExpr{Type: p.wrapArray(id, suf)}, true
}
