// Package ctx gives handlers a single *Context instead of (w, r):
//
//	func (h *ProductController) Show(c *ctx.Context) {
//	    id, ok := c.ParamUint("id")
//	    if !ok {
//	        return
//	    }
//	    ...
//	    c.Success(product)
//	}
//
//	r.Get("/products/{id}", "products.show", ctx.Wrap(h.Show))
package ctx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/bind"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc for the router.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps one request/response pair. It is recycled after the
// handler returns and must not be retained.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R, c.status = w, r, 0
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

type envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// ── request ──────────────────────────────────────────────────────────────

func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// ParamUint parses a positive integer path parameter. On failure it writes
// a 400 and returns false.
func (c *Context) ParamUint(key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		c.Error(http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return uint(n), true
}

func (c *Context) Query(key string) string { return c.R.URL.Query().Get(key) }

// DefaultQuery returns the query value, or def when it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// UserID returns the authenticated user, or writes a 401 and returns false.
func (c *Context) UserID() (uint, bool) {
	id, ok := auth.UserIDFromCtx(c.R.Context())
	if !ok {
		c.Unauthorized()
	}
	return id, ok
}

// BindJSON decodes and validates the body. It writes a 400 or 422 and
// returns false when dest is not usable.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ── response ─────────────────────────────────────────────────────────────

// Written reports whether a status has been sent.
func (c *Context) Written() bool { return c.status != 0 }

func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.Status(code)
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Data: data})
}

// Message sends a 200 with a message and optional data.
func (c *Context) Message(message string, data any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Message: message, Data: data})
}

func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, envelope{Status: http.StatusCreated, Data: data})
}

func (c *Context) Error(code int, message string) {
	c.JSON(code, envelope{Status: code, Message: message})
}

func (c *Context) ValidationError(errs map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (c *Context) Unauthorized() { c.Error(http.StatusUnauthorized, "Unauthorized") }

func (c *Context) NotFound(message string) { c.Error(http.StatusNotFound, message) }
