package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// fail maps a service error to a response. Unknown errors are logged and
// reported as 500 without detail.
func fail(c *ctx.Context, err error, notFound string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		c.ValidationError(map[string]string{ve.Field: ve.Field + " " + ve.Message})
	case errors.Is(err, models.ErrNotFound):
		c.NotFound(notFound)
	case errors.Is(err, models.ErrReference):
		c.Error(http.StatusConflict, "Referenced record does not exist")
	case errors.Is(err, models.ErrConflict):
		c.Error(http.StatusConflict, detail(err, models.ErrConflict))
	case errors.Is(err, models.ErrForbidden):
		c.Error(http.StatusForbidden, detail(err, models.ErrForbidden))
	case errors.Is(err, services.ErrBadCredentials):
		c.Error(http.StatusUnauthorized, err.Error())
	default:
		c.Log().Error("request failed", "error", err)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}

// detail strips the sentinel prefix from "sentinel: detail" errors.
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		msg = rest
	}
	if msg == "" {
		return sentinel.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
