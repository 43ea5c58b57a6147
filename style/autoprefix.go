package style

import (
	"context"
	"fmt"
	"slices"

	"vstyle/css"
)

// Vendors supported by the prefixing step.
var Vendors = []string{"webkit", "moz", "ms"}

// properties which still need vendor prefixed copies.
var prefixedProperties = map[string][]string{
	"appearance":           {"webkit", "moz"},
	"backdrop-filter":      {"webkit"},
	"box-decoration-break": {"webkit"},
	"clip-path":            {"webkit"},
	"hyphens":              {"webkit", "ms"},
	"mask":                 {"webkit"},
	"mask-clip":            {"webkit"},
	"mask-image":           {"webkit"},
	"mask-origin":          {"webkit"},
	"mask-position":        {"webkit"},
	"mask-repeat":          {"webkit"},
	"mask-size":            {"webkit"},
	"print-color-adjust":   {"webkit"},
	"tab-size":             {"moz"},
	"text-size-adjust":     {"webkit", "moz", "ms"},
	"user-select":          {"webkit", "moz", "ms"},
}

// values which need vendor prefixed copies, keyed by property.
var prefixedValues = map[string]map[string][]string{
	"position": {"sticky": {"webkit"}},
}

func init() {
	sizes := map[string][]string{
		"fit-content": {"webkit", "moz"},
		"min-content": {"webkit", "moz"},
		"max-content": {"webkit", "moz"},
	}
	for _, p := range []string{"width", "min-width", "max-width", "height", "min-height", "max-height"} {
		prefixedValues[p] = sizes
	}
}

type autoprefixer struct {
	vendors []string
	skip    []string
}

// Autoprefix returns plugin adding vendor prefixed copies of declarations
// right before the standard declaration. Copies which are already present
// in the block are not duplicated.
func Autoprefix(opts AutoprefixOptions) (Plugin, error) {
	a := &autoprefixer{vendors: Vendors, skip: opts.Skip}
	if len(opts.Vendors) > 0 {
		for _, v := range opts.Vendors {
			if !slices.Contains(Vendors, v) {
				return nil, fmt.Errorf("unknown vendor %q, supported vendors are %v", v, Vendors)
			}
		}
		a.vendors = opts.Vendors
	}
	return PluginFunc("autoprefix", a.process), nil
}

func (a *autoprefixer) process(_ context.Context, st *Stage) error {
	sheet, err := st.Sheet()
	if err != nil {
		return err
	}
	sheet.EachBlock(a.prefixBlock)
	return nil
}

func (a *autoprefixer) prefixBlock(decls []css.Declaration) []css.Declaration {
	var out []css.Declaration
	changed := false
	for _, d := range decls {
		extra := a.prefixes(d, decls)
		if len(extra) > 0 {
			changed = true
		}
		out = append(out, extra...)
		out = append(out, d)
	}
	if !changed {
		return decls
	}
	return out
}

// prefixes returns prefixed copies of d missing from block.
func (a *autoprefixer) prefixes(d css.Declaration, block []css.Declaration) []css.Declaration {
	if d.IsCustom() || slices.Contains(a.skip, d.Property) {
		return nil
	}
	if _, prefix := css.Unprefixed(d.Property); prefix != "" {
		return nil
	}

	var extra []css.Declaration
	add := func(c css.Declaration) {
		if !slices.ContainsFunc(block, func(b css.Declaration) bool {
			return b.Property == c.Property && b.Value == c.Value
		}) && !(c.Property != d.Property && hasProperty(block, c.Property)) {
			extra = append(extra, c)
		}
	}

	for _, v := range prefixedProperties[d.Property] {
		if slices.Contains(a.vendors, v) {
			add(css.Declaration{Property: "-" + v + "-" + d.Property, Value: d.Value, Important: d.Important})
		}
	}
	for _, v := range prefixedValues[d.Property][d.Value] {
		if slices.Contains(a.vendors, v) {
			add(css.Declaration{Property: d.Property, Value: "-" + v + "-" + d.Value, Important: d.Important})
		}
	}
	return extra
}

func hasProperty(block []css.Declaration, property string) bool {
	return slices.ContainsFunc(block, func(b css.Declaration) bool {
		return b.Property == property
	})
}
