package compile

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// outputNames maps relative source paths to relative output paths keeping
// directory structure. File names are slugified, clashes get numeric
// suffix in the order sources are given.
func outputNames(sources []string, ext string) map[string]string {
	names := make(map[string]string, len(sources))
	taken := make(map[string]bool, len(sources))

	for _, src := range sources {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		name := slug.Make(base)
		if name == "" {
			name = "style"
		}

		dir := filepath.Dir(src)
		out := filepath.Join(dir, name+ext)
		for i := 2; taken[out]; i++ {
			out = filepath.Join(dir, name+"-"+strconv.Itoa(i)+ext)
		}
		taken[out] = true
		names[src] = out
	}
	return names
}
