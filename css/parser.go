package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// SyntaxError is returned when stylesheet cannot be parsed.
type SyntaxError struct {
	Source string // What was being parsed, may be empty
	Line   int
	Column int
	Err    error
}

func (e *SyntaxError) Error() string {
	msg := e.Err.Error()
	var pe *parse.Error
	if errors.As(e.Err, &pe) {
		msg = pe.Message
	}
	if e.Source != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Source, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parser parses CSS stylesheets into structured items.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. Unlike browsers parser does not
// recover from malformed input: first syntax error is returned, block left
// open at the end of input is an error too.
// The optional source parameter identifies what's being parsed (for errors and debug logging).
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	var src string
	if len(source) > 0 {
		src = source[0]
	}
	if src != "" {
		p.log.Debug("Parsing CSS", zap.String("source", src), zap.Int("bytes", len(data)))
	}

	in := parse.NewInputBytes(data)
	r := &parseRun{log: p.log, cp: css.NewParser(in, false), in: in, src: src}
	items, err := r.parseItems(false)
	if err != nil {
		return nil, err
	}
	return &Stylesheet{Items: items}, nil
}

// parseRun is the state of a single Parse call, Parser itself is shared.
type parseRun struct {
	log *zap.Logger
	cp  *css.Parser
	in  *parse.Input
	src string
}

// parseItems collects rules and at-rules until the end of input or, when
// nested, until the end of enclosing at-rule block.
func (r *parseRun) parseItems(nested bool) ([]Item, error) {
	items := make([]Item, 0)
	for {
		gt, tt, data := r.cp.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := r.checkError(); err != nil {
				return nil, err
			}
			if nested {
				return nil, r.unclosed()
			}
			// end of input
			return items, nil

		case css.EndAtRuleGrammar:
			if nested {
				if tt == css.ErrorToken {
					return nil, r.unclosed()
				}
				return items, nil
			}

		case css.CommentGrammar:
			comment := string(data)
			items = append(items, Item{Comment: &comment})

		case css.AtRuleGrammar:
			at := &AtRule{Name: atRuleName(data), Params: joinTokens(r.cp.Values())}
			items = append(items, Item{AtRule: at})

		case css.BeginAtRuleGrammar:
			at, err := r.parseAtRuleBlock(atRuleName(data))
			if err != nil {
				return nil, err
			}
			items = append(items, Item{AtRule: at})

		case css.BeginRulesetGrammar:
			rule, err := r.parseRuleset()
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Rule: rule})

		case css.TokenGrammar:
			// <!-- and --> at top level carry no meaning
		}
	}
}

// parseRuleset reads rule body after its selector list, nested rules
// included.
func (r *parseRun) parseRuleset() (*Rule, error) {
	rule := &Rule{Selectors: splitSelectorTokens(r.cp.Values())}
	decls, items, err := r.parseBlock(css.EndRulesetGrammar, true)
	if err != nil {
		return nil, err
	}
	rule.Declarations, rule.Items = decls, items
	return rule, nil
}

// parseAtRuleBlock reads at-rule prelude and its block content. Block content
// is interpreted the same way the underlying parser does: rule lists for
// conditional group rules, declarations for @font-face and @page and raw
// tokens for everything else.
func (r *parseRun) parseAtRuleBlock(name string) (*AtRule, error) {
	at := &AtRule{Name: name, Params: joinTokens(r.cp.Values()), Block: true}

	var err error
	switch unprefixed(name) {
	case "media", "supports", "keyframes", "layer", "document":
		at.Items, err = r.parseItems(true)
	case "font-face", "page":
		at.Declarations, _, err = r.parseBlock(css.EndAtRuleGrammar, false)
	default:
		at.Raw, err = r.parseRawBlock()
	}
	if err != nil {
		return nil, err
	}
	r.log.Debug("Parsed @-rule", zap.String("rule", name), zap.String("params", at.Params))
	return at, nil
}

// parseBlock parses declaration block until grammar end. Nested style rules
// and statement at-rules are collected into items when block allows
// nesting, @-rule blocks inside declaration blocks are rejected.
func (r *parseRun) parseBlock(end css.GrammarType, nesting bool) ([]Declaration, []Item, error) {
	var (
		decls = make([]Declaration, 0)
		items []Item
	)
	for {
		gt, tt, data := r.cp.Next()

		switch gt {
		case end:
			if tt == css.ErrorToken {
				return nil, nil, r.unclosed()
			}
			return decls, items, nil

		case css.ErrorGrammar:
			if err := r.checkError(); err != nil {
				return nil, nil, err
			}
			return nil, nil, r.unclosed()

		case css.DeclarationGrammar:
			decls = append(decls, newDeclaration(string(data), r.cp.Values()))

		case css.CustomPropertyGrammar:
			var value string
			if values := r.cp.Values(); len(values) > 0 {
				value = strings.TrimSpace(string(values[0].Data))
			}
			decls = append(decls, Declaration{Property: string(data), Value: value})

		case css.BeginRulesetGrammar:
			if !nesting {
				return nil, nil, r.syntaxError("unexpected nested rule")
			}
			rule, err := r.parseRuleset()
			if err != nil {
				return nil, nil, err
			}
			items = append(items, Item{Rule: rule})

		case css.AtRuleGrammar:
			if !nesting {
				return nil, nil, r.syntaxError("unexpected %s inside declaration block", data)
			}
			items = append(items, Item{AtRule: &AtRule{Name: atRuleName(data), Params: joinTokens(r.cp.Values())}})

		case css.BeginAtRuleGrammar:
			return nil, nil, r.syntaxError("unsupported %s block inside declaration block", data)
		}
	}
}

// parseRawBlock collects verbatim tokens of an at-rule block we do not interpret.
func (r *parseRun) parseRawBlock() (string, error) {
	var sb strings.Builder
	for {
		gt, tt, data := r.cp.Next()
		switch gt {
		case css.EndAtRuleGrammar:
			if tt == css.ErrorToken {
				return "", r.unclosed()
			}
			return sb.String(), nil
		case css.ErrorGrammar:
			if err := r.checkError(); err != nil {
				return "", err
			}
			return "", r.unclosed()
		default:
			sb.Write(data)
		}
	}
}

// checkError converts parser state into an error. Plain end of input is not
// an error.
func (r *parseRun) checkError() error {
	err := r.cp.Err()
	if err == nil || (!r.cp.HasParseError() && errors.Is(err, io.EOF)) {
		return nil
	}
	return r.wrap(err)
}

// unclosed reports block left open at the end of input.
func (r *parseRun) unclosed() error {
	return r.syntaxError("unclosed block")
}

// syntaxError reports problem at current input position.
func (r *parseRun) syntaxError(format string, args ...any) error {
	return r.wrap(parse.NewErrorLexer(r.in, format, args...))
}

func (r *parseRun) wrap(err error) error {
	se := &SyntaxError{Source: r.src, Err: err}
	var pe *parse.Error
	if errors.As(err, &pe) {
		se.Line, se.Column = pe.Line, pe.Column
	}
	r.log.Debug("CSS parse error", zap.String("source", r.src), zap.Error(err))
	return se
}

// newDeclaration builds declaration from property name and value tokens,
// separating trailing "!important".
func newDeclaration(property string, tokens []css.Token) Declaration {
	d := Declaration{Property: property}

	end := trimWhitespace(tokens)
	if n := len(end); n >= 2 && end[n-1].TokenType == css.IdentToken && strings.EqualFold(string(end[n-1].Data), "important") {
		rest := trimWhitespace(end[:n-1])
		if m := len(rest); m > 0 && rest[m-1].TokenType == css.DelimToken && string(rest[m-1].Data) == "!" {
			d.Important = true
			end = rest[:m-1]
		}
	}
	d.Value = joinTokens(end)
	return d
}

// atRuleName returns lower-cased at-rule name without "@".
func atRuleName(data []byte) string {
	return strings.ToLower(strings.TrimPrefix(string(data), "@"))
}

// joinTokens concatenates token data, parser already normalized whitespace.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

func trimWhitespace(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
