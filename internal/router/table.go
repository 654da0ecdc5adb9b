// Package router holds the fixed route table and dispatches an incoming
// request to exactly one handler.
//
// Matching is exact string equality on the decoded path. "/" and "/home" are
// both registered for the home page; nothing else is normalized, so "/home/"
// and "/Home" fall through to the not-found handler.
package router

import (
	"github.com/conneroisu/switchboard/internal/renderer"
)

// HandlerFunc produces the response for a matched request.
type HandlerFunc func(req IncomingRequest) renderer.RenderedResponse

// Route is an immutable path to handler binding.
type Route struct {
	Path    string
	Name    string
	Handler HandlerFunc
}

// Route names as shown by the routes command and in request logs.
const (
	NameHome     = "home"
	NameAbout    = "about"
	NameAPIData  = "api-data"
	NameNotFound = "not-found"
)

// Table is the ordered, immutable route table plus its catch-all.
type Table struct {
	routes   []Route
	byPath   map[string]int
	notFound Route
}

// NewTable wires the four routes to r. Version and platform reported by
// /api/data come from info.
func NewTable(r *renderer.Renderer, info renderer.RuntimeInfo) *Table {
	home := func(IncomingRequest) renderer.RenderedResponse { return r.RenderHome() }

	routes := []Route{
		{Path: "/", Name: NameHome, Handler: home},
		{Path: "/home", Name: NameHome, Handler: home},
		{Path: "/about", Name: NameAbout, Handler: func(IncomingRequest) renderer.RenderedResponse {
			return r.RenderAbout()
		}},
		{Path: "/api/data", Name: NameAPIData, Handler: func(req IncomingRequest) renderer.RenderedResponse {
			return r.RenderAPIData(req.ReceivedAt, info)
		}},
	}

	byPath := make(map[string]int, len(routes))
	for i, route := range routes {
		byPath[route.Path] = i
	}

	return &Table{
		routes: routes,
		byPath: byPath,
		notFound: Route{Name: NameNotFound, Handler: func(IncomingRequest) renderer.RenderedResponse {
			return r.RenderNotFound()
		}},
	}
}

// Routes returns a copy of the table in registration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match returns the route registered for path, or the catch-all and false.
func (t *Table) Match(path string) (Route, bool) {
	if i, ok := t.byPath[path]; ok {
		return t.routes[i], true
	}
	return t.notFound, false
}

// Dispatch runs the handler for req.Path and reports which route answered.
func (t *Table) Dispatch(req IncomingRequest) (Route, renderer.RenderedResponse) {
	route, _ := t.Match(req.Path)
	return route, route.Handler(req)
}
