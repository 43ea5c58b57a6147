package style

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"vstyle/css"
)

var builtins = map[string]func() Plugin{
	"remove-comments": removeComments,
	"discard-empty":   discardEmpty,
}

// Builtin returns named plugin which could be referenced from configuration.
func Builtin(name string) (Plugin, error) {
	newPlugin, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q, available plugins are %v", name, BuiltinNames())
	}
	return newPlugin(), nil
}

// BuiltinNames returns sorted names of all built-in plugins.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func removeComments() Plugin {
	return PluginFunc("remove-comments", func(_ context.Context, st *Stage) error {
		sheet, err := st.Sheet()
		if err != nil {
			return err
		}
		sheet.Filter(func(item css.Item) bool {
			return item.Comment == nil
		})
		return nil
	})
}

func discardEmpty() Plugin {
	return PluginFunc("discard-empty", func(_ context.Context, st *Stage) error {
		sheet, err := st.Sheet()
		if err != nil {
			return err
		}
		sheet.Items = dropEmpty(sheet.Items)
		return nil
	})
}

// dropEmpty removes rules without declarations and block at-rules left
// with nothing inside, innermost blocks first.
func dropEmpty(items []css.Item) []css.Item {
	out := items[:0]
	for _, item := range items {
		switch {
		case item.Rule != nil:
			item.Rule.Items = dropEmpty(item.Rule.Items)
			if len(item.Rule.Declarations) == 0 && len(item.Rule.Items) == 0 {
				continue
			}
		case item.AtRule != nil && item.AtRule.Block:
			at := item.AtRule
			at.Items = dropEmpty(at.Items)
			if len(at.Items) == 0 && len(at.Declarations) == 0 && strings.TrimSpace(at.Raw) == "" {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}
