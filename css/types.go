package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single property declaration inside a block.
type Declaration struct {
	Property  string // Property name, lower-cased except for custom properties ("--x")
	Value     string // Value text without the "!important" marker
	Important bool   // true if declaration was marked with !important
}

// IsCustom reports whether declaration defines a custom property.
func (d Declaration) IsCustom() bool {
	return strings.HasPrefix(d.Property, "--")
}

// Rule represents a style rule: selector list, its declarations and nested
// rules. Nested items always follow declarations in the output.
type Rule struct {
	Selectors    []string      // Individual selectors of the comma separated list, in source order
	Declarations []Declaration // Declarations in source order
	Items        []Item        // Nested style rules and statement at-rules, in source order
}

// Selector returns the selector list as written in the output.
func (r *Rule) Selector() string {
	return strings.Join(r.Selectors, ", ")
}

// AtRule represents an @-rule. Statement at-rules (@import, @charset) have
// no block, block at-rules carry either nested items, declarations or raw
// body depending on the at-rule kind.
type AtRule struct {
	Name         string        // Name without "@", lower-cased (e.g. "media", "-webkit-keyframes")
	Params       string        // Prelude (e.g. "screen and (max-width:100px)")
	Block        bool          // true if at-rule has a {} block
	Items        []Item        // Nested rules for @media, @supports, @keyframes, @layer, @document
	Declarations []Declaration // Declarations for @font-face and @page
	Raw          string        // Verbatim body of at-rules whose content is not interpreted
}

// BaseName returns at-rule name with vendor prefix removed.
func (a *AtRule) BaseName() string {
	return unprefixed(a.Name)
}

// Item is a single node of a stylesheet or of an at-rule block.
// Exactly one of Rule, AtRule, or Comment is non-nil.
type Item struct {
	Rule    *Rule   // A style rule
	AtRule  *AtRule // An @-rule
	Comment *string // A top level comment including its delimiters
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items []Item // All top-level items in source order
}

// EachRule calls fn for every rule of the stylesheet at top level. Rules
// nested in at-rule blocks are visited only when descend returns true for
// the at-rule (descend may be nil to stay at top level), rules nested in
// other rules are never visited. Processing stops on the first error.
func (s *Stylesheet) EachRule(descend func(*AtRule) bool, fn func(*Rule) error) error {
	return eachRule(s.Items, descend, fn)
}

func eachRule(items []Item, descend func(*AtRule) bool, fn func(*Rule) error) error {
	for _, item := range items {
		switch {
		case item.Rule != nil:
			if err := fn(item.Rule); err != nil {
				return err
			}
		case item.AtRule != nil:
			if descend == nil || !descend(item.AtRule) {
				continue
			}
			if err := eachRule(item.AtRule.Items, descend, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// EachBlock calls fn for every declaration list in the stylesheet, no matter
// how deep it is nested, and replaces the list with whatever fn returns.
func (s *Stylesheet) EachBlock(fn func([]Declaration) []Declaration) {
	eachBlock(s.Items, fn)
}

func eachBlock(items []Item, fn func([]Declaration) []Declaration) {
	for _, item := range items {
		switch {
		case item.Rule != nil:
			item.Rule.Declarations = fn(item.Rule.Declarations)
			eachBlock(item.Rule.Items, fn)
		case item.AtRule != nil:
			if len(item.AtRule.Declarations) > 0 {
				item.AtRule.Declarations = fn(item.AtRule.Declarations)
			}
			eachBlock(item.AtRule.Items, fn)
		}
	}
}

// Filter keeps only items for which keep returns true, recursively for
// nested at-rule blocks.
func (s *Stylesheet) Filter(keep func(Item) bool) {
	s.Items = filterItems(s.Items, keep)
}

func filterItems(items []Item, keep func(Item) bool) []Item {
	out := items[:0]
	for _, item := range items {
		if !keep(item) {
			continue
		}
		switch {
		case item.Rule != nil && len(item.Rule.Items) > 0:
			item.Rule.Items = filterItems(item.Rule.Items, keep)
		case item.AtRule != nil && len(item.AtRule.Items) > 0:
			item.AtRule.Items = filterItems(item.AtRule.Items, keep)
		}
		out = append(out, item)
	}
	return out
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeItems(cw, s.Items, 0)
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// countingWriter remembers the first error so writers below do not have to
// check every call.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

func writeItems(cw *countingWriter, items []Item, depth int) {
	for i, item := range items {
		switch {
		case item.Comment != nil:
			cw.printf("%s%s\n", indent(depth), *item.Comment)
		case item.Rule != nil:
			writeRule(cw, item.Rule, depth)
		case item.AtRule != nil:
			writeAtRule(cw, item.AtRule, depth)
		}
		// blank line between items (except after last)
		if i < len(items)-1 {
			cw.printf("\n")
		}
	}
}

func writeRule(cw *countingWriter, rule *Rule, depth int) {
	cw.printf("%s%s {\n", indent(depth), rule.Selector())
	writeDeclarations(cw, rule.Declarations, depth+1)
	if len(rule.Items) > 0 {
		if len(rule.Declarations) > 0 {
			cw.printf("\n")
		}
		writeItems(cw, rule.Items, depth+1)
	}
	cw.printf("%s}\n", indent(depth))
}

func writeDeclarations(cw *countingWriter, decls []Declaration, depth int) {
	for _, d := range decls {
		if d.Important {
			cw.printf("%s%s: %s !important;\n", indent(depth), d.Property, d.Value)
			continue
		}
		cw.printf("%s%s: %s;\n", indent(depth), d.Property, d.Value)
	}
}

func writeAtRule(cw *countingWriter, at *AtRule, depth int) {
	head := "@" + at.Name
	if at.Params != "" {
		head += " " + at.Params
	}
	if !at.Block {
		cw.printf("%s%s;\n", indent(depth), head)
		return
	}
	switch {
	case len(at.Items) > 0:
		cw.printf("%s%s {\n", indent(depth), head)
		writeItems(cw, at.Items, depth+1)
		cw.printf("%s}\n", indent(depth))
	case len(at.Declarations) > 0:
		cw.printf("%s%s {\n", indent(depth), head)
		writeDeclarations(cw, at.Declarations, depth+1)
		cw.printf("%s}\n", indent(depth))
	default:
		cw.printf("%s%s {%s}\n", indent(depth), head, at.Raw)
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// unprefixed removes vendor prefix ("-webkit-", "-moz-", ...) from name.
func unprefixed(name string) string {
	if len(name) > 1 && name[0] == '-' && name[1] != '-' {
		if i := strings.IndexByte(name[1:], '-'); i != -1 {
			return name[i+2:]
		}
	}
	return name
}

// Unprefixed returns property (or at-rule) name without vendor prefix and the
// prefix itself ("-webkit-"), if any.
func Unprefixed(name string) (base, prefix string) {
	base = unprefixed(name)
	return base, name[:len(name)-len(base)]
}
