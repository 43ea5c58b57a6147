package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RenderFunc writes component to the response. Status is http.StatusOK for
// regular routes and http.StatusNotFound for the wildcard route.
type RenderFunc func(w http.ResponseWriter, r *http.Request, c Component, status int)

// Handler mounts table on a chi router. Redirect routes answer with
// http.StatusMovedPermanently, wildcard route becomes router's NotFound
// handler. As with Match, the first route for a path wins and routes after
// the wildcard are never reached.
func Handler(t Table, render RenderFunc) http.Handler {
	router := chi.NewRouter()

	mounted := make(map[string]bool, len(t.routes))
	for _, r := range t.routes {
		if mounted[r.Path] {
			continue
		}
		mounted[r.Path] = true

		if r.Path == Wildcard {
			if r.Component != nil {
				router.NotFound(componentHandler(*r.Component, http.StatusNotFound, render))
			} else if r.IsRedirect() {
				router.NotFound(http.RedirectHandler(r.Redirect, http.StatusMovedPermanently).ServeHTTP)
			}
			break
		}
		switch {
		case r.IsRedirect():
			router.Handle(r.Path, http.RedirectHandler(r.Redirect, http.StatusMovedPermanently))
		case r.Component != nil:
			router.Get(r.Path, componentHandler(*r.Component, http.StatusOK, render))
		}
	}
	return router
}

func componentHandler(c Component, status int, render RenderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		render(w, req, c, status)
	}
}
