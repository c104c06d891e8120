// Package server runs the HTTP and gRPC listeners until the context is
// cancelled, then shuts both down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/storefront/pkg/grpc"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// ShutdownTimeout bounds how long in-flight requests may take to finish.
const ShutdownTimeout = 15 * time.Second

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables gRPC
}

// Run serves handler until ctx is done or a listener fails.
func Run(ctx context.Context, cfg Config, handler http.Handler) error {
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.HTTPAddr, err)
	}

	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("server: listen %s: %w", cfg.GRPCAddr, err)
		}
	}

	return serve(ctx, httpLis, grpcLis, handler)
}

func serve(ctx context.Context, httpLis, grpcLis net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	var rpc *grpc.Server
	if grpcLis != nil {
		rpc = grpc.New()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpLis.Addr().String())
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: http: %w", err)
		}
		return nil
	})

	if rpc != nil {
		g.Go(func() error {
			if err := rpc.Serve(grpcLis); err != nil {
				return fmt.Errorf("server: grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if rpc != nil {
			rpc.Stop(sctx)
		}
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("server: http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
