// Package expr implements the Expression Evaluator (C6): a small typed
// expression language over alias.subband references, numeric literals, and
// +  -  *  /  min  max  clip. Expressions are parsed into an AST rather
// than evaluated as arbitrary host-language code.
package expr

import (
	"strings"
	"unicode"

	"github.com/dc3/cubebuilder/errs"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokLParen
	TokRParen
	TokComma
)

// Token is a single lexed unit: its kind, and for TokIdent/TokNumber, the
// literal text.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Lex tokenizes a band expression. Identifiers are `alias.subband` pairs or
// bare function names (min, max, clip); numbers are decimal floats.
func Lex(src string) ([]Token, error) {
	var toks []Token
	r := []rune(src)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '+':
			toks = append(toks, Token{Kind: TokPlus, Text: "+", Pos: i})
			i++
		case c == '-':
			toks = append(toks, Token{Kind: TokMinus, Text: "-", Pos: i})
			i++
		case c == '*':
			toks = append(toks, Token{Kind: TokStar, Text: "*", Pos: i})
			i++
		case c == '/':
			toks = append(toks, Token{Kind: TokSlash, Text: "/", Pos: i})
			i++
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")", Pos: i})
			i++
		case c == ',':
			toks = append(toks, Token{Kind: TokComma, Text: ",", Pos: i})
			i++
		case unicode.IsDigit(c) || c == '.':
			start := i
			for i < len(r) && (unicode.IsDigit(r[i]) || r[i] == '.') {
				i++
			}
			toks = append(toks, Token{Kind: TokNumber, Text: string(r[start:i]), Pos: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(r) && (unicode.IsLetter(r[i]) || unicode.IsDigit(r[i]) || r[i] == '_' || r[i] == '.') {
				i++
			}
			toks = append(toks, Token{Kind: TokIdent, Text: string(r[start:i]), Pos: start})
		default:
			return nil, errs.BadRequestf("expression", "unexpected character %q at position %d in %q", c, i, src)
		}
	}
	toks = append(toks, Token{Kind: TokEOF, Pos: len(r)})
	return toks, nil
}

// IsSubbandRef reports whether ident has the "alias.subband" shape the
// evaluator rewrites into a dataset variable lookup.
func IsSubbandRef(ident string) bool {
	return strings.Contains(ident, ".")
}
