package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oshokin/xrp-sim/internal/logger"
)

// ServiceName reports SERVING while a control runtime is connected.
// The empty service name reports the process itself and is always SERVING.
const ServiceName = "xrp.halsim"

// Server is a gRPC server carrying only the health and reflection services.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
}

// NewServer creates a server whose HAL service starts NOT_SERVING.
func NewServer() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: grpchealth.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// SetConnected updates the HAL service status. It matches bridge.ConnectionHandler.
func (s *Server) SetConnected(ctx context.Context, connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	logger.DebugKV(ctx, "Health status changed", "service", ServiceName, "status", status.String())
}

// Serve accepts connections on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx = logger.WithName(ctx, "health")
	logger.InfoKV(ctx, "gRPC health server listening", "address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes so Serve blocks
	// until the server fully stops.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC health server")
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}

	<-done

	return nil
}
