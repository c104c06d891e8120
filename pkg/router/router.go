// Package router wraps chi with named routes and prefix groups.
//
//	r := router.New()
//	api := r.Group("/api")
//	cart := api.Group("/cart", middleware.Authenticate(secret))
//	cart.Post("/", "cart.add", h.Add)
//	r.URL("cart.remove", map[string]string{"productId": "7"}) // "/api/cart/7"
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Middleware func(http.Handler) http.Handler

// RouteInfo describes one registered route, for route:list.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

type Router struct {
	mux chi.Router

	mu     sync.RWMutex
	named  map[string]string
	routes []RouteInfo
}

type Group struct {
	router      *Router
	prefix      string
	middlewares []Middleware
}

func New() *Router {
	return &Router{
		mux:   chi.NewRouter(),
		named: make(map[string]string),
	}
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

// Use must be called before any route is registered (chi rule).
func (r *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

// NotFound sets the handler for unmatched paths.
func (r *Router) NotFound(h http.HandlerFunc) {
	r.mux.NotFound(h)
}

// MethodNotAllowed sets the handler for a matched path with the wrong verb.
func (r *Router) MethodNotAllowed(h http.HandlerFunc) {
	r.mux.MethodNotAllowed(h)
}

// Mount attaches a sub-handler (static files, /metrics, /graphql) under prefix.
func (r *Router) Mount(prefix string, h http.Handler) {
	path := normalizePath(prefix)
	r.mux.Mount(path, h)
	r.record("*", strings.TrimSuffix(path, "/")+"/*", "")
}

func (r *Router) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		router:      r,
		prefix:      normalizePath(prefix),
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

func (r *Router) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.add(http.MethodGet, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.add(http.MethodPost, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Put(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.add(http.MethodPut, normalizePath(path), name, handler, middlewares)
}

func (r *Router) Delete(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	r.add(http.MethodDelete, normalizePath(path), name, handler, middlewares)
}

// Path returns the pattern registered under name.
func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.named[name]
	return path, ok
}

// URL fills in the {params} of a named route.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("route %q not found", name)
	}

	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}

	if strings.Contains(path, "{") {
		return "", fmt.Errorf("missing parameters for route %q", name)
	}

	return path, nil
}

// Routes lists every registered route sorted by path then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := append([]RouteInfo(nil), r.routes...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (r *Router) add(method, fullPath, name string, handler http.Handler, middlewares []Middleware) {
	r.mux.Method(method, fullPath, chain(handler, middlewares...))
	r.record(method, fullPath, name)
}

func (r *Router) record(method, fullPath, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, RouteInfo{Method: method, Path: fullPath, Name: name})
	if name != "" {
		r.named[name] = fullPath
	}
}

func (g *Group) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		router:      g.router,
		prefix:      joinPath(g.prefix, prefix),
		middlewares: g.with(middlewares),
	}
}

func (g *Group) Get(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.mount(http.MethodGet, path, name, handler, middlewares)
}

func (g *Group) Post(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.mount(http.MethodPost, path, name, handler, middlewares)
}

func (g *Group) Put(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.mount(http.MethodPut, path, name, handler, middlewares)
}

func (g *Group) Delete(path, name string, handler http.HandlerFunc, middlewares ...Middleware) {
	g.mount(http.MethodDelete, path, name, handler, middlewares)
}

func (g *Group) mount(method, path, name string, handler http.HandlerFunc, middlewares []Middleware) {
	g.router.add(method, joinPath(g.prefix, path), name, handler, g.with(middlewares))
}

func (g *Group) with(extra []Middleware) []Middleware {
	return append(append([]Middleware(nil), g.middlewares...), extra...)
}

func chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	wrapped := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func joinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}

	if len(segments) == 0 {
		return "/"
	}

	return "/" + strings.Join(segments, "/")
}

func normalizePath(path string) string {
	return joinPath(path)
}
