// Package router mounts the webhook, customer API and operator routes on a
// single ServeMux and applies per-group middleware stacks.
package router

import (
	"net/http"
	"slices"
)

// Router registers "METHOD /path" patterns, so a known path hit with the
// wrong method answers 405 rather than falling through to 404.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

type Middleware func(http.Handler) http.Handler

// New returns a Router whose middleware runs on every route, outermost first.
func New(middleware ...Middleware) *Router {
	return &Router{mux: http.NewServeMux(), chain: middleware}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, middleware...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, middleware...)
}

// Handle mounts h behind the router's chain followed by the route's own middleware.
func (r *Router) Handle(method, pattern string, h http.Handler, middleware ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.wrap(h, middleware))
}

func (r *Router) wrap(h http.Handler, middleware []Middleware) http.Handler {
	combined := append(slices.Clone(r.chain), middleware...)
	for i := len(combined) - 1; i >= 0; i-- {
		h = combined[i](h)
	}
	return h
}

// Group shares the mux but extends the chain, e.g. the API group adds auth
// and rate limiting while webhooks stay unauthenticated.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{mux: r.mux, chain: append(slices.Clone(r.chain), middleware...)}
}
