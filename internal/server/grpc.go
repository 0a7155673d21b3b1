package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/health/handler"
)

// NewGRPCServer returns a gRPC server instrumented with OpenTelemetry and the health service registered.
func NewGRPCServer(health *healthhandler.Server) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterServices(s, health)
	return s
}

// RegisterServices registers grpc.health.v1.Health backed by health. A nil health registers nothing.
func RegisterServices(s grpc.ServiceRegistrar, health *healthhandler.Server) {
	if health == nil {
		return
	}
	healthpb.RegisterHealthServer(s, health.GRPC())
}
