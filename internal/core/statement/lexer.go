// Package statement parses, classifies and validates SQL operation descriptors.
package statement

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// SQLLexer tokenizes SQL text well enough to find placeholders, comments and
// the leading verb. It is lossless: concatenating every token's value gives
// back the input, which is what Rebind relies on.
var SQLLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "String", Pattern: `'(?:[^'\\]|\\.|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"|` + "`[^`]*`"},
	{Name: "DollarString", Pattern: `\$\$(?:[^$]|\$[^$])*\$\$`},
	{Name: "Cast", Pattern: `::`},
	{Name: "Param", Pattern: `:[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_$]*`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Punct", Pattern: `[^\s]`},
})

type tokenKind uint8

const (
	tokPunct tokenKind = iota
	tokWhitespace
	tokComment
	tokString
	tokQuotedIdent
	tokCast
	tokParam
	tokIdent
	tokNumber
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

var symbolKinds = func() map[lexer.TokenType]tokenKind {
	symbols := SQLLexer.Symbols()
	return map[lexer.TokenType]tokenKind{
		symbols["LineComment"]:  tokComment,
		symbols["BlockComment"]: tokComment,
		symbols["String"]:       tokString,
		symbols["QuotedIdent"]:  tokQuotedIdent,
		symbols["DollarString"]: tokString,
		symbols["Cast"]:         tokCast,
		symbols["Param"]:        tokParam,
		symbols["Ident"]:        tokIdent,
		symbols["Number"]:       tokNumber,
		symbols["LParen"]:       tokLParen,
		symbols["RParen"]:       tokRParen,
		symbols["Whitespace"]:   tokWhitespace,
		symbols["Punct"]:        tokPunct,
	}
}()

// tokenize splits sql into tokens. The Punct rule matches any remaining
// character, so lexing cannot fail on well-formed UTF-8; should it fail
// anyway the text is returned as one opaque token.
func tokenize(sql string) []token {
	lex, err := SQLLexer.LexString("", sql)
	if err != nil {
		return []token{{kind: tokPunct, text: sql}}
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return []token{{kind: tokPunct, text: sql}}
	}

	tokens := make([]token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		tokens = append(tokens, token{kind: symbolKinds[t.Type], text: t.Value})
	}
	return tokens
}

// significant drops whitespace and comments.
func significant(tokens []token) []token {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t.kind == tokWhitespace || t.kind == tokComment {
			continue
		}
		out = append(out, t)
	}
	return out
}

// StripComments replaces every line and block comment with a single space
// and trims the result.
func StripComments(sql string) string {
	var b strings.Builder
	for _, t := range tokenize(sql) {
		if t.kind == tokComment {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(t.text)
	}
	return strings.TrimSpace(b.String())
}

// LeadingKeyword returns the first keyword of sql in upper case, ignoring
// leading whitespace and comments. It returns "" when sql does not start
// with a bare word.
func LeadingKeyword(sql string) string {
	toks := significant(tokenize(sql))
	if len(toks) == 0 || toks[0].kind != tokIdent {
		return ""
	}
	return strings.ToUpper(toks[0].text)
}

// HasReturning reports whether sql has a top-level RETURNING clause.
func HasReturning(sql string) bool {
	depth := 0
	for _, t := range significant(tokenize(sql)) {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokIdent:
			if depth == 0 && strings.EqualFold(t.text, "RETURNING") {
				return true
			}
		}
	}
	return false
}

// IsIdentifier reports whether name lexes as exactly one bare identifier.
func IsIdentifier(name string) bool {
	toks := tokenize(name)
	return len(toks) == 1 && toks[0].kind == tokIdent
}
