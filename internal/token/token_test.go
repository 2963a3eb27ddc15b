package token_test

import (
	"testing"

	"cffi/internal/token"
)

func TestLookupKeyword(t *testing.T) {
	cases := map[string]token.Kind{
		"struct":   token.KwStruct,
		"_Bool":    token.KwBool,
		"uint64_t": token.KwUint64,
		"size_t":   token.KwSizeT,
	}
	for text, want := range cases {
		got, ok := token.LookupKeyword(text)
		if !ok || got != want {
			t.Fatalf("LookupKeyword(%q) = %v,%v; want %v", text, got, ok, want)
		}
	}
	for _, text := range []string{"Struct", "uint", "ssize_t", "FILE"} {
		if _, ok := token.LookupKeyword(text); ok {
			t.Fatalf("%q must not be a keyword", text)
		}
	}
}

func TestKindClassifiers(t *testing.T) {
	tok := func(k token.Kind) token.Token { return token.Token{Kind: k} }

	if !tok(token.KwTypedef).IsKeyword() || tok(token.Ident).IsKeyword() {
		t.Fatal("IsKeyword misclassified")
	}
	if !tok(token.KwUnsigned).IsBaseType() || tok(token.KwStruct).IsBaseType() {
		t.Fatal("IsBaseType misclassified")
	}
	if !tok(token.Ellipsis).IsPunct() || tok(token.IntLit).IsPunct() {
		t.Fatal("IsPunct misclassified")
	}
}

func TestKindString(t *testing.T) {
	if got := token.Ellipsis.String(); got != "Ellipsis" {
		t.Fatalf("Ellipsis.String() = %q", got)
	}
	if got := token.Kind(250).String(); got != "Kind(250)" {
		t.Fatalf("unknown kind String() = %q", got)
	}
}
