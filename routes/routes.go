// Package routes holds the static route table of the front-end application.
package routes

import (
	"errors"
	"fmt"
	"slices"
)

// Wildcard is the path matching any request path.
const Wildcard = "*"

// MaxRedirects limits number of redirects followed by Resolve.
const MaxRedirects = 10

var (
	ErrNoRoute       = errors.New("no matching route")
	ErrRedirectLoop  = errors.New("redirect loop")
	ErrTooManyHops   = errors.New("too many redirects")
	ErrInvalidRoute  = errors.New("invalid route")
	ErrInvalidTarget = errors.New("redirect target matches no route")
)

// Component references UI component rendered for a route.
type Component struct {
	Name string // component name as used by the router
	File string // component source file
}

// Route maps path to either a component or a redirect target.
type Route struct {
	Path      string
	Component *Component
	Redirect  string
}

// IsRedirect reports whether route redirects.
func (r Route) IsRedirect() bool {
	return r.Redirect != ""
}

func (r Route) String() string {
	switch {
	case r.Component != nil && r.Redirect != "":
		return fmt.Sprintf("%s -> %s, %s", r.Path, r.Component.Name, r.Redirect)
	case r.Component != nil:
		return fmt.Sprintf("%s -> %s (%s)", r.Path, r.Component.Name, r.Component.File)
	case r.Redirect != "":
		return fmt.Sprintf("%s => %s", r.Path, r.Redirect)
	}
	return r.Path + " -> ?"
}

// Table is an ordered immutable list of routes, first match wins.
type Table struct {
	routes []Route
}

// New creates table from routes in evaluation order. Routes are copied and
// not validated, use Check for that.
func New(routes ...Route) Table {
	t := Table{routes: make([]Route, len(routes))}
	for i, r := range routes {
		t.routes[i] = copyRoute(r)
	}
	return t
}

var (
	home     = Component{Name: "Test2", File: "components/Test2.vue"}
	test     = Component{Name: "Test", File: "components/Test.vue"}
	dbDemo   = Component{Name: "PostGreDemo", File: "components/PostGreDemo.vue"}
	notFound = Component{Name: "NotFound", File: "components/NotFound.vue"}
)

// Default returns application route table.
func Default() Table {
	return New(
		Route{Path: "/index.html", Redirect: "/"},
		Route{Path: "/index.htm", Redirect: "/"},
		Route{Path: "/index", Redirect: "/"},
		Route{Path: "/", Component: &home},
		Route{Path: "/test", Component: &test},
		Route{Path: "/db", Component: &dbDemo},
		Route{Path: Wildcard, Component: &notFound},
	)
}

// Routes returns copy of all routes in evaluation order.
func (t Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = copyRoute(r)
	}
	return out
}

// Len returns number of routes.
func (t Table) Len() int {
	return len(t.routes)
}

// Match returns the first route whose path equals path or is a wildcard.
func (t Table) Match(path string) (Route, bool) {
	i := t.index(path)
	if i < 0 {
		return Route{}, false
	}
	return copyRoute(t.routes[i]), true
}

func (t Table) index(path string) int {
	return slices.IndexFunc(t.routes, func(r Route) bool {
		return r.Path == path || r.Path == Wildcard
	})
}

// Destination is the component reached by resolving a path.
type Destination struct {
	Path      string    // path of the route which rendered the component
	Component Component // component to render
	Redirects []string  // redirect targets followed, in order
}

// Resolve follows redirects starting with path until a component route is
// reached.
func (t Table) Resolve(path string) (Destination, error) {
	var (
		dst     Destination
		visited = map[string]bool{}
		current = path
	)
	for {
		r, ok := t.Match(current)
		if !ok {
			return Destination{}, fmt.Errorf("resolving %q: %w: %q", path, ErrNoRoute, current)
		}
		if !r.IsRedirect() {
			if r.Component == nil {
				return Destination{}, fmt.Errorf("resolving %q: %w: %s", path, ErrInvalidRoute, r)
			}
			dst.Path, dst.Component = r.Path, *r.Component
			return dst, nil
		}
		visited[current] = true
		if visited[r.Redirect] {
			return Destination{}, fmt.Errorf("resolving %q: %w at %q", path, ErrRedirectLoop, r.Redirect)
		}
		if len(dst.Redirects) == MaxRedirects {
			return Destination{}, fmt.Errorf("resolving %q: %w (%d)", path, ErrTooManyHops, MaxRedirects)
		}
		dst.Redirects = append(dst.Redirects, r.Redirect)
		current = r.Redirect
	}
}

func copyRoute(r Route) Route {
	if r.Component != nil {
		c := *r.Component
		r.Component = &c
	}
	return r
}
