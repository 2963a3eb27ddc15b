package cparse

import (
	"cffi/internal/ctype"
	"cffi/internal/diag"
	"cffi/internal/source"
	"cffi/internal/token"
)

// parseRecord разбирает хвост после struct/union: [NAME] ['{' поля '}'].
// Именованная запись резервирует слот до разбора тела, так что поля могут
// ссылаться на неё через указатель.
func (p *Parser) parseRecord(union bool) (ctype.TypeID, bool) {
	var (
		name     string
		nameSpan source.Span
	)
	if p.at(token.Ident) {
		tok := p.advance()
		name, nameSpan = tok.Text, tok.Span
	}

	if !p.at(token.LBrace) {
		if name == "" {
			p.expected(diag.SynExpectIdentifier, "identifier")
			return ctype.NoTypeID, false
		}
		id, err := p.types.RequireTag(name)
		if err != nil {
			return ctype.NoTypeID, p.errAt(diag.SemaUnresolvedSymbol, nameSpan, "%v", err)
		}
		return id, true
	}
	open := p.advance()

	var id ctype.TypeID
	if name != "" {
		var err error
		if id, err = p.types.DeclareRecord(name, union); err != nil {
			return ctype.NoTypeID, p.errAt(diag.SemaDuplicateSymbol, nameSpan, "%v", err)
		}
	} else {
		id = p.types.NewAnonymousRecord(union)
	}

	if !p.completeRecord(id, union, open.Span) {
		p.types.ForgetRecord(id)
		return ctype.NoTypeID, false
	}
	if name != "" {
		p.decls = append(p.decls, Decl{Kind: DeclRecord, Name: name, Type: id, Span: nameSpan.Cover(p.lastSpan)})
	}
	return id, true
}

func (p *Parser) completeRecord(id ctype.TypeID, union bool, open source.Span) bool {
	fields, ok := p.parseFields()
	if !ok {
		return false
	}
	rl, err := p.opts.Layout.Record(fields, union)
	if err != nil {
		return p.errAt(diag.SemaLayoutError, open.Cover(p.lastSpan), "%v", err)
	}
	for i := range fields {
		fields[i].Offset = rl.FieldOffsets[i]
	}
	p.types.CompleteRecord(id, fields, rl.Size, rl.Align, rl.Rep)
	return true
}

// parseFields: поля до '}' включительно. Анонимная struct/union,
// за которой сразу ';', становится безымянным полем.
func (p *Parser) parseFields() ([]ctype.Field, bool) {
	var fields []ctype.Field
	flexible := false
	for {
		if p.eat(token.RBrace) {
			return fields, true
		}
		if p.at(token.EOF) {
			p.expected(diag.SynUnclosedBrace, "}")
			return nil, false
		}
		if flexible {
			return nil, p.errAt(diag.SynFlexibleArray, p.getDiagnosticSpan(), "flexible array member must be the last member")
		}

		var base ctype.TypeID
		if p.at(token.KwStruct) || p.at(token.KwUnion) {
			kw := p.advance()
			sub, ok := p.parseRecord(kw.Kind == token.KwUnion)
			if !ok {
				return nil, false
			}
			if p.at(token.Semicolon) {
				// безымянным полем может быть только запись без тега
				if info, ok := p.types.RecordInfo(sub); !ok || !info.Anonymous {
					return nil, p.errAt(diag.SemaNoMember, kw.Span.Cover(p.lastSpan),
						"declaration of '%s' does not declare a member", p.types.String(sub))
				}
				for _, name := range p.memberNames(sub) {
					if hasMember(p.types, fields, name) {
						return nil, p.errAt(diag.SemaDuplicateMember, kw.Span.Cover(p.lastSpan), "duplicate member '%s'", name)
					}
				}
				p.advance()
				fields = append(fields, ctype.Field{Type: sub})
				continue
			}
			if p.eat(token.KwConst) {
				sub = p.types.WithConst(sub, true)
			}
			base = sub
		} else {
			var ok bool
			if base, ok = p.parseBaseType(); !ok {
				return nil, false
			}
		}

		for {
			t := p.parsePointer(base)
			if p.types.Kind(t) == ctype.KindVoid {
				return nil, p.errAt(diag.SemaVoidForbidden, p.getDiagnosticSpan(), "void type in forbidden context near '%s'", p.peekText())
			}
			nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "identifier")
			if !ok {
				return nil, false
			}
			if hasMember(p.types, fields, nameTok.Text) {
				return nil, p.errAt(diag.SemaDuplicateMember, nameTok.Span, "duplicate member '%s'", nameTok.Text)
			}
			suf, ok := p.parseArray(true)
			if !ok {
				return nil, false
			}
			if suf.present {
				t = p.wrapArray(t, suf)
				flexible = suf.flexible
			}
			fields = append(fields, ctype.Field{Name: nameTok.Text, Type: t})

			if p.at(token.Comma) {
				if flexible {
					return nil, p.errAt(diag.SynFlexibleArray, p.getDiagnosticSpan(), "flexible array member must be the last member")
				}
				p.advance()
				continue
			}
			if !p.expectSemicolon() {
				return nil, false
			}
			break
		}
	}
}

// memberNames lists the names an anonymous record brings into its parent,
// including those of anonymous records nested in it.
func (p *Parser) memberNames(id ctype.TypeID) []string {
	info, ok := p.types.RecordInfo(id)
	if !ok {
		return nil
	}
	var names []string
	for _, f := range info.Fields {
		if f.Name != "" {
			names = append(names, f.Name)
			continue
		}
		names = append(names, p.memberNames(f.Type)...)
	}
	return names
}

// hasMember reports whether name is already taken, directly or through an
// anonymous member.
func hasMember(types *ctype.Registry, fields []ctype.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
		if f.Name != "" {
			continue
		}
		if _, _, ok := types.FindField(f.Type, name); ok {
			return true
		}
	}
	return false
}
