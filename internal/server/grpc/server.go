// Package grpcserver exposes the memoriz gRPC health endpoint.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/memoriz/internal/version"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server bundles the gRPC server and its health registry.
type Server struct {
	GRPC   *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds a gRPC server with recover and logging interceptors and the
// standard health service. Reflection is registered when dev is set.
func New(log *zap.Logger, dev bool) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if dev {
		reflection.Register(gs)
	}
	// not serving until the first successful ping
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(version.AppName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{GRPC: gs, health: hs, log: log}
}

// Check pings every dependency once and publishes the result for both the
// overall ("") and the named service.
func (s *Server) Check(ctx context.Context, deps map[string]Pinger) bool {
	serving := true
	for name, p := range deps {
		if err := p.Ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			serving = false
		}
	}
	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(version.AppName, st)
	return serving
}

// Watch runs Check every interval until ctx is done, then marks the server
// as shutting down.
func (s *Server) Watch(ctx context.Context, interval time.Duration, deps map[string]Pinger) {
	t := time.NewTicker(interval)
	defer t.Stop()

	s.checkWithTimeout(ctx, interval, deps)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-t.C:
			s.checkWithTimeout(ctx, interval, deps)
		}
	}
}

func (s *Server) checkWithTimeout(ctx context.Context, d time.Duration, deps map[string]Pinger) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	s.Check(cctx, deps)
}

// Stop drains in-flight calls, forcing a stop after timeout.
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.GRPC.Stop()
	}
}
