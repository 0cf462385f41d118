// Package router maps site paths to views.
//
// The route table is a chi mux used purely for matching: Resolve never serves
// a request, it reports which view a path selects and the parameters it
// carries.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// View names a page view. The names double as the template fragment names.
type View string

const (
	// ViewIndex is the about page.
	ViewIndex View = "main"
	// ViewBlog is the single post page.
	ViewBlog View = "blog"
)

// Otherwise is where unknown paths are sent.
const Otherwise = "/"

// Match is the outcome of resolving a path. Exactly one of View or Redirect
// is set.
type Match struct {
	View     View
	Slug     string
	Pattern  string
	Redirect string
}

// Router resolves paths against the site's route table.
type Router struct {
	mux   *chi.Mux
	views map[string]View
}

// New builds the site route table.
func New() *Router {
	r := &Router{mux: chi.NewRouter(), views: make(map[string]View)}
	r.route("/", ViewIndex)
	r.route("/blog", ViewBlog)
	r.route("/blog/{slug}", ViewBlog)
	return r
}

func (r *Router) route(pattern string, v View) {
	r.mux.Get(pattern, func(http.ResponseWriter, *http.Request) {})
	r.views[pattern] = v
}

// Resolve maps path to a view, or to a redirect when no route matches.
func (r *Router) Resolve(path string) Match {
	path = normalize(path)
	rctx := chi.NewRouteContext()
	pattern := r.mux.Find(rctx, http.MethodGet, path)
	v, ok := r.views[pattern]
	if !ok {
		return Match{Redirect: Otherwise}
	}
	return Match{View: v, Slug: rctx.URLParam("slug"), Pattern: pattern}
}

// Views lists the views that have a route.
func (r *Router) Views() []View {
	return []View{ViewIndex, ViewBlog}
}

// HasView reports whether name is a routed view.
func (r *Router) HasView(name string) bool {
	for _, v := range r.Views() {
		if string(v) == name {
			return true
		}
	}
	return false
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
