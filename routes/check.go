package routes

import (
	"fmt"

	"go.uber.org/multierr"
)

// Check reports every structural problem of the table: routes with both or
// neither component and redirect, wildcard which is not the last route,
// duplicate paths and redirect targets which are not an exact path of the
// table (reaching the wildcard only is not a valid target).
func Check(t Table) error {
	var (
		errs  error
		seen  = make(map[string]int, len(t.routes))
		exact = make(map[string]bool, len(t.routes))
	)
	for _, r := range t.routes {
		if r.Path != Wildcard {
			exact[r.Path] = true
		}
	}
	for i, r := range t.routes {
		switch {
		case r.Path == "":
			errs = multierr.Append(errs, fmt.Errorf("route %d: %w: empty path", i, ErrInvalidRoute))
		case r.Component != nil && r.IsRedirect():
			errs = multierr.Append(errs, fmt.Errorf("route %d (%s): %w: both component and redirect", i, r.Path, ErrInvalidRoute))
		case r.Component == nil && !r.IsRedirect():
			errs = multierr.Append(errs, fmt.Errorf("route %d (%s): %w: neither component nor redirect", i, r.Path, ErrInvalidRoute))
		}
		if r.Path == Wildcard && i != len(t.routes)-1 {
			errs = multierr.Append(errs, fmt.Errorf("route %d: %w: wildcard must be the last route, %d route(s) after it are unreachable",
				i, ErrInvalidRoute, len(t.routes)-1-i))
		}
		if prev, ok := seen[r.Path]; ok {
			errs = multierr.Append(errs, fmt.Errorf("route %d (%s): %w: duplicates route %d", i, r.Path, ErrInvalidRoute, prev))
		} else {
			seen[r.Path] = i
		}
		if r.IsRedirect() && !exact[r.Redirect] {
			errs = multierr.Append(errs, fmt.Errorf("route %d (%s): %w: %q", i, r.Path, ErrInvalidTarget, r.Redirect))
		}
	}
	return errs
}
