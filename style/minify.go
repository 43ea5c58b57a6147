package style

import (
	"context"
	"fmt"
	"strings"

	"github.com/tdewolff/minify/v2"
	mcss "github.com/tdewolff/minify/v2/css"

	"vstyle/css"
)

const mediaType = "text/css"

// defaultMinify is used in production mode before user overrides are applied.
var defaultMinify = MinifyOptions{Safe: boolPtr(true), Autoprefixer: boolPtr(false)}

func boolPtr(b bool) *bool { return &b }

// Minify returns plugin which serializes stylesheet and minifies it.
func Minify(opts MinifyOptions) Plugin {
	m := minify.New()
	m.Add(mediaType, &mcss.Minifier{Precision: opts.Precision})

	return PluginFunc("minify", func(_ context.Context, st *Stage) error {
		if !opts.safe() || opts.removePrefixes() {
			sheet, err := st.Sheet()
			if err != nil {
				return err
			}
			if opts.removePrefixes() {
				sheet.EachBlock(dropPrefixed)
			}
			if !opts.safe() {
				sheet.EachBlock(dedupe)
			}
		}
		text, err := st.Text()
		if err != nil {
			return err
		}
		out, err := m.String(mediaType, text)
		if err != nil {
			return fmt.Errorf("unable to minify %s: %w", st.From(), err)
		}
		st.SetText(out)
		return nil
	})
}

// dropPrefixed removes vendor prefixed declarations when block also has
// standard one.
func dropPrefixed(decls []css.Declaration) []css.Declaration {
	out := decls[:0:0]
	for _, d := range decls {
		if base, prefix := css.Unprefixed(d.Property); prefix != "" && hasProperty(decls, base) {
			continue
		}
		if prefix := valuePrefix(d.Value); prefix != "" && hasValue(decls, d.Property, d.Value[len(prefix):]) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func valuePrefix(value string) string {
	for _, prefix := range []string{"-webkit-", "-moz-", "-ms-", "-o-"} {
		if strings.HasPrefix(value, prefix) {
			return prefix
		}
	}
	return ""
}

func hasValue(block []css.Declaration, property, value string) bool {
	for _, b := range block {
		if b.Property == property && b.Value == value {
			return true
		}
	}
	return false
}

// dedupe keeps single declaration per property, the one winning the
// cascade: last important one or last one when none is important.
func dedupe(decls []css.Declaration) []css.Declaration {
	winner := make(map[string]int, len(decls))
	for i, d := range decls {
		if prev, ok := winner[d.Property]; ok && decls[prev].Important && !d.Important {
			continue
		}
		winner[d.Property] = i
	}
	if len(winner) == len(decls) {
		return decls
	}
	out := make([]css.Declaration, 0, len(winner))
	for i, d := range decls {
		if winner[d.Property] == i {
			out = append(out, d)
		}
	}
	return out
}
