package statement

import "strings"

// Verb is the aggregation class of a statement.
type Verb uint8

const (
	// VerbOther covers DDL, CALL and anything unrecognized. It executes but
	// contributes nothing to a batch result.
	VerbOther Verb = iota
	VerbSelect
	VerbInsert
	VerbUpdate
	VerbDelete
)

func (v Verb) String() string {
	switch v {
	case VerbSelect:
		return "SELECT"
	case VerbInsert:
		return "INSERT"
	case VerbUpdate:
		return "UPDATE"
	case VerbDelete:
		return "DELETE"
	default:
		return "OTHER"
	}
}

func verbOf(word string) Verb {
	switch strings.ToUpper(word) {
	case "SELECT":
		return VerbSelect
	case "INSERT":
		return VerbInsert
	case "UPDATE":
		return VerbUpdate
	case "DELETE":
		return VerbDelete
	}
	return VerbOther
}

// DetectVerb classifies sql. Comments are ignored. A statement opening with
// WITH is classified by the main query after its CTE list, so
// `WITH t AS (SELECT ...) UPDATE target ...` is an UPDATE while a
// data-modifying CTE feeding a SELECT is a SELECT. The main query may be
// parenthesized.
func DetectVerb(sql string) Verb {
	toks := significant(tokenize(sql))

	i := skipLParens(toks, 0)
	if i >= len(toks) || toks[i].kind != tokIdent {
		return VerbOther
	}

	if !isWord(toks[i], "WITH") {
		return verbOf(toks[i].text)
	}

	if j, ok := skipCTEs(toks, i+1); ok {
		j = skipLParens(toks, j)
		if j < len(toks) && toks[j].kind == tokIdent {
			return verbOf(toks[j].text)
		}
		return VerbOther
	}

	// Unrecognized CTE syntax: take the first verb outside any parentheses.
	depth := 0
	for _, t := range toks[i+1:] {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokIdent:
			if depth != 0 {
				continue
			}
			if v := verbOf(t.text); v != VerbOther {
				return v
			}
		}
	}
	return VerbOther
}

func isWord(t token, word string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

func skipLParens(toks []token, i int) int {
	for i < len(toks) && toks[i].kind == tokLParen {
		i++
	}
	return i
}

// skipGroup returns the index just past the parenthesized group opening at i.
func skipGroup(toks []token, i int) (int, bool) {
	if i >= len(toks) || toks[i].kind != tokLParen {
		return i, false
	}
	depth := 0
	for ; i < len(toks); i++ {
		switch toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return i, false
}

// skipCTEs walks `[RECURSIVE] name [(cols)] AS [NOT] [MATERIALIZED] (...)
// [, ...]` starting at i and returns the index of the main query.
func skipCTEs(toks []token, i int) (int, bool) {
	if i < len(toks) && isWord(toks[i], "RECURSIVE") {
		i++
	}
	for {
		if i >= len(toks) || (toks[i].kind != tokIdent && toks[i].kind != tokQuotedIdent) {
			return i, false
		}
		i++

		var ok bool
		if i < len(toks) && toks[i].kind == tokLParen {
			if i, ok = skipGroup(toks, i); !ok {
				return i, false
			}
		}
		if i >= len(toks) || !isWord(toks[i], "AS") {
			return i, false
		}
		i++
		if i < len(toks) && isWord(toks[i], "NOT") {
			i++
		}
		if i < len(toks) && isWord(toks[i], "MATERIALIZED") {
			i++
		}
		if i, ok = skipGroup(toks, i); !ok {
			return i, false
		}

		if i < len(toks) && toks[i].kind == tokPunct && toks[i].text == "," {
			i++
			continue
		}
		return i, true
	}
}
