package css

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// SplitSelectors splits a selector list on top level commas. Commas inside
// functional pseudo-classes (":is(a, b)") and attribute values are kept.
func SplitSelectors(list string) []string {
	return splitSelectorTokens(lexSelector(list))
}

// ScopeSelector adds attribute selector "[attr]" to a single complex
// selector. Attribute is placed right after the last segment of the
// rightmost compound selector that is not a pseudo-class or pseudo-element,
// so pseudo segments keep trailing it:
//
//	".a .b:hover"  -> ".a .b[attr]:hover"
//	"p::before"    -> "p[attr]::before"
//	".a :hover"    -> ".a [attr]:hover"
func ScopeSelector(selector, attr string) string {
	tokens := trimWhitespace(lexSelector(selector))
	at := scopeInsertPoint(tokens)

	var sb strings.Builder
	for i, t := range tokens {
		if i == at {
			sb.WriteString("[" + attr + "]")
		}
		writeSelectorToken(&sb, t)
	}
	if at == len(tokens) {
		sb.WriteString("[" + attr + "]")
	}
	return sb.String()
}

// scopeInsertPoint returns token index at which attribute selector has to be
// inserted.
func scopeInsertPoint(tokens []css.Token) int {
	compoundStart, insertAt := 0, -1
	for i := 0; i < len(tokens); {
		t := tokens[i]
		switch {
		case t.TokenType == css.WhitespaceToken || isCombinator(t):
			// descendant, child and sibling combinators start new compound
			i++
			compoundStart, insertAt = i, -1

		case t.TokenType == css.ColonToken:
			// pseudo-class or pseudo-element, never an insertion point
			i = skipPseudo(tokens, i)

		case t.TokenType == css.LeftBracketToken:
			i = skipNested(tokens, i)
			insertAt = i

		case t.TokenType == css.DelimToken && string(t.Data) == ".":
			// class: delimiter followed by identifier
			i++
			if i < len(tokens) && tokens[i].TokenType == css.IdentToken {
				i++
			}
			insertAt = i

		case t.TokenType == css.FunctionToken || t.TokenType == css.LeftParenthesisToken:
			i = skipNested(tokens, i)
			insertAt = i

		default:
			// type, universal, id, nesting selector
			i++
			insertAt = i
		}
	}
	if insertAt == -1 {
		return compoundStart
	}
	return insertAt
}

// skipPseudo returns index right after pseudo selector starting at i.
func skipPseudo(tokens []css.Token, i int) int {
	i++ // ':'
	if i < len(tokens) && tokens[i].TokenType == css.ColonToken {
		i++ // '::'
	}
	if i >= len(tokens) {
		return i
	}
	if tokens[i].TokenType == css.FunctionToken {
		return skipNested(tokens, i)
	}
	return i + 1
}

// skipNested returns index right after the bracket or parenthesis matching
// the one opened at i.
func skipNested(tokens []css.Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].TokenType {
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

func isCombinator(t css.Token) bool {
	if t.TokenType == css.ColumnToken {
		return true
	}
	if t.TokenType != css.DelimToken {
		return false
	}
	switch string(t.Data) {
	case ">", "+", "~":
		return true
	}
	return false
}

// lexSelector tokenizes selector text dropping comments.
func lexSelector(s string) []css.Token {
	l := css.NewLexer(parse.NewInputString(s))
	var tokens []css.Token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return tokens
		case css.CommentToken:
			continue
		}
		tokens = append(tokens, css.Token{TokenType: tt, Data: parse.Copy(data)})
	}
}

// splitSelectorTokens splits token stream of a selector list on top level
// commas and renders each selector separately. Empty selectors are dropped.
func splitSelectorTokens(tokens []css.Token) []string {
	var (
		selectors []string
		current   []css.Token
		depth     int
	)
	flush := func() {
		if sel := renderSelector(current); sel != "" {
			selectors = append(selectors, sel)
		}
		current = current[:0]
	}
	for _, t := range tokens {
		switch t.TokenType {
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				flush()
				continue
			}
		}
		current = append(current, t)
	}
	flush()
	return selectors
}

func renderSelector(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range trimWhitespace(tokens) {
		writeSelectorToken(&sb, t)
	}
	return sb.String()
}

// writeSelectorToken writes token collapsing any whitespace run into a
// single space.
func writeSelectorToken(sb *strings.Builder, t css.Token) {
	if t.TokenType == css.WhitespaceToken {
		sb.WriteByte(' ')
		return
	}
	sb.Write(t.Data)
}
