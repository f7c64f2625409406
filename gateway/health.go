package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a supervised worker exposing grpc.health.v1.Health.
// The overall status is SERVING while it runs.
type HealthServer struct {
	log    *slog.Logger
	addr   string
	health *health.Server
}

func NewHealthServer(log *slog.Logger, addr string) *HealthServer {
	return &HealthServer{log: log, addr: addr, health: health.NewServer()}
}

func (h *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, h.health)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		h.log.Info("Starting health server", "address", h.addr)
		errChan <- server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return fmt.Errorf("health server error: %w", err)
	case <-ctx.Done():
	}

	// Shutdown flips every service to NOT_SERVING before the listener closes.
	// Watch streams never end on their own, so GracefulStop is bounded.
	h.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		server.Stop()
	}
	h.log.Info("Health server stopped")
	return nil
}
