// Package logger provides the structured, levelled logger used across the
// storefront, built on log/slog.
//
// Handlers and services should log through WithCtx so that every line
// carries the request id injected by the Logger middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("cart item added", "product_id", 3, "result", "inserted")
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var L *slog.Logger

func init() {
	L = slog.New(newHandler("development", os.Stdout))
	slog.SetDefault(L)
}

// Setup rebuilds the base logger for env ("production"/"prod" log JSON at
// INFO, anything else logs text at DEBUG). Extra handlers, such as the Mongo
// sink, receive every record as well.
func Setup(env string, extra ...slog.Handler) {
	var h slog.Handler = newHandler(env, os.Stdout)
	if len(extra) > 0 {
		h = NewMultiHandler(append([]slog.Handler{h}, extra...)...)
	}
	L = slog.New(h)
	slog.SetDefault(L)
}

func newHandler(env string, w io.Writer) slog.Handler {
	switch env {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx. Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }

// LevelFor maps an HTTP status to the level its access line is logged at.
func LevelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
