package compile

import (
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type sourceKind int

const (
	kindUnknown sourceKind = iota
	kindStylesheet
	kindComponent
)

func detectKind(path string) sourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return kindStylesheet
	case ".vue":
		return kindComponent
	}
	return kindUnknown
}

// selectReader decodes input to UTF-8. Byte order mark always wins, charset
// is used for input without one, no charset means UTF-8.
func selectReader(r io.Reader, charset encoding.Encoding) io.Reader {
	fallback := unicode.UTF8.NewDecoder()
	if charset != nil {
		fallback = charset.NewDecoder()
	}
	return transform.NewReader(r, unicode.BOMOverride(fallback))
}
