// Package token defines lexical token kinds and trivia for C declaration text.
// Invariants:
//   - Token.Text is the exact source slice of the token.
//   - Token.Span matches Text exactly (Start..End).
//   - Comments and whitespace are leading Trivia and never appear in the token stream.
//   - Fixed-width aliases (int8_t..uint64_t, size_t) are keywords, not identifiers;
//     typedef names are identifiers resolved by the parser.
package token
