package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatServiceName is the service reported by the health endpoint.
const ChatServiceName = "traceforge.chat"

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 and keeps the chat service status in
// sync with the storage probe. Run makes it a supervised worker.
type HealthServer struct {
	log      *slog.Logger
	health   *health.Server
	grpc     *grpc.Server
	probe    Probe
	interval time.Duration
}

func NewHealthServer(log *slog.Logger, probe Probe, interval time.Duration) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus(ChatServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{log: log, health: hs, grpc: srv, probe: probe, interval: interval}
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.log.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Check runs the probe once and publishes the result.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.probe(ctx); err != nil {
		s.log.Warn("Health probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ChatServiceName, status)
	return status
}

func (s *HealthServer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Health gives direct access to the underlying service, mostly for tests.
func (s *HealthServer) Health() healthpb.HealthServer {
	return s.health
}
