package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// Health answers liveness probes with the running environment.
func Health(env string) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "env": env})
	}
}

// APINotFound is the JSON 404 for unknown /api routes.
func APINotFound(c *ctx.Context) {
	c.NotFound("Route not found")
}
