// Package sfc reads style blocks of single file components.
package sfc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// ScopePrefix starts every generated scope id.
const ScopePrefix = "data-v-"

// Block is a top level <style> element of a component.
type Block struct {
	Content string // element text as written
	Scoped  bool   // element has "scoped" attribute
	Lang    string // value of "lang" attribute, lower-cased, empty if absent
	Line    int    // 1-based line of the opening tag
}

// IsCSS reports whether block content is plain CSS.
func (b Block) IsCSS() bool {
	return b.Lang == "" || b.Lang == "css"
}

var voidElements = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input",
	"link", "meta", "param", "source", "track", "wbr",
}

// Extract returns all top level style blocks in document order. Styles
// nested in other elements (for example inside <template>) are ignored.
func Extract(r io.Reader) ([]Block, error) {
	var (
		blocks  []Block
		current *Block
		depth   int
		line    = 1
	)

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		startLine := line
		line += bytes.Count(z.Raw(), []byte{'\n'})

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if current != nil {
					return nil, fmt.Errorf("line %d: unterminated style element", current.Line)
				}
				return blocks, nil
			}
			return nil, fmt.Errorf("unable to read component: %w", z.Err())

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if depth == 0 && tag == "style" {
				current = &Block{Line: startLine}
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					switch string(key) {
					case "scoped":
						current.Scoped = true
					case "lang":
						current.Lang = strings.ToLower(strings.TrimSpace(string(val)))
					}
				}
			}
			if !slices.Contains(voidElements, tag) {
				depth++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if depth == 1 && current != nil && string(name) == "style" {
				blocks = append(blocks, *current)
				current = nil
			}
			if depth > 0 {
				depth--
			}

		case html.TextToken:
			if current != nil {
				current.Content += string(z.Text())
			}
		}
	}
}

// ScopeID returns stable scope attribute name for component at path.
func ScopeID(path string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(filepath.Clean(path))))
	return ScopePrefix + id.String()[:8]
}
