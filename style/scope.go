package style

import (
	"context"

	"vstyle/css"
)

// Scope returns plugin which limits every style rule to elements carrying
// attribute id. Rules on top level and inside @media blocks (at any depth)
// are rewritten, rules in other at-rules (@keyframes, @supports, ...) are
// left alone.
func Scope(id string) Plugin {
	return PluginFunc("scope", func(_ context.Context, st *Stage) error {
		sheet, err := st.Sheet()
		if err != nil {
			return err
		}
		return sheet.EachRule(isMedia, func(rule *css.Rule) error {
			for i, sel := range rule.Selectors {
				rule.Selectors[i] = css.ScopeSelector(sel, id)
			}
			return nil
		})
	})
}

func isMedia(at *css.AtRule) bool {
	return at.BaseName() == "media"
}
