// Package grpc runs the storefront's gRPC listener. It serves the standard
// grpc.health.v1 service, so orchestrators can probe the process, and server
// reflection for grpcurl.
//
//	srv := grpc.New()
//	go srv.Serve(lis)
//	...
//	srv.Stop(ctx)
package grpc

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// ServiceName is the name probes ask about. "" (overall health) is kept in
// step with it.
const ServiceName = "storefront"

var (
	handledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "gRPC calls completed by method and code.",
	}, []string{"method", "code"})

	handlingSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "gRPC call latency.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method"})
)

func init() {
	metrics.MustRegister(handledTotal, handlingSeconds)
}

type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func New() *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor, metricsInterceptor),
		grpc.MaxRecvMsgSize(4<<20),
		grpc.MaxSendMsgSize(4<<20),
	)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	s := &Server{srv: srv, health: h}
	s.SetServing(true)
	return s
}

// SetServing flips the reported health status.
func (s *Server) SetServing(ok bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks until the server stops. A graceful stop is not an error.
func (s *Server) Serve(lis net.Listener) error {
	logger.Info("grpc server listening", "addr", lis.Addr().String())
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop reports NOT_SERVING, then drains in-flight calls until ctx is done,
// at which point remaining calls are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
		<-done
	}
}

func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc panic recovered",
				"method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.WithCtx(ctx).Debug("grpc request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

func metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	handledTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	handlingSeconds.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}
