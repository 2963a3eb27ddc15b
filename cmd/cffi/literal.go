package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cffi/internal/ffi"
)

// parseLiteral reads one host literal: nil, true, false, an integer
// (decimal, 0x hex, 0o/0 octal, 0b binary), a float, a double-quoted string
// or $N, the N-th stored REPL result.
func parseLiteral(tok string, vars []ffi.Value) (ffi.Value, error) {
	switch tok {
	case "":
		return ffi.Nil(), errors.New("empty literal")
	case "nil":
		return ffi.Nil(), nil
	case "true":
		return ffi.Bool(true), nil
	case "false":
		return ffi.Bool(false), nil
	}
	if tok[0] == '"' {
		s, err := strconv.Unquote(tok)
		if err != nil {
			return ffi.Nil(), fmt.Errorf("invalid string literal %s", tok)
		}
		return ffi.Str(s), nil
	}
	if tok[0] == '$' {
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n < 1 || n > len(vars) {
			return ffi.Nil(), fmt.Errorf("unknown result %s", tok)
		}
		return vars[n-1], nil
	}
	if i, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return ffi.Int(i), nil
	} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(tok, "-") {
		if u, err := strconv.ParseUint(tok, 0, 64); err == nil {
			return ffi.Uint(u), nil
		}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return ffi.Float(f), nil
	}
	return ffi.Nil(), fmt.Errorf("invalid literal %q", tok)
}

func parseLiterals(toks []string, vars []ffi.Value) ([]ffi.Value, error) {
	out := make([]ffi.Value, 0, len(toks))
	for _, tok := range toks {
		v, err := parseLiteral(tok, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func isLiteral(tok string) bool {
	_, err := parseLiteral(tok, nil)
	return err == nil || strings.HasPrefix(tok, "$")
}

// splitWords режет строку по пробелам; строка в двойных кавычках
// остаётся одним словом вместе с кавычками.
func splitWords(line string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord, inQuote, escaped := false, false, false
	for _, r := range line {
		switch {
		case inQuote:
			cur.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inQuote = false
			}
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			if r == '"' {
				inQuote = true
			}
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated string literal")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
