// Package handler reports readiness over HTTP (/healthz) and the standard gRPC health service.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// pingTimeout bounds a single readiness probe.
const pingTimeout = 2 * time.Second

// Pinger checks a dependency, typically *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server holds readiness state for both transports. A nil Pinger always reports serving.
type Server struct {
	pinger Pinger
	grpc   *health.Server
}

// NewServer returns a Server backed by pinger.
func NewServer(pinger Pinger) *Server {
	return &Server{pinger: pinger, grpc: health.NewServer()}
}

// GRPC returns the grpc.health.v1 implementation to register on the gRPC server.
func (s *Server) GRPC() *health.Server {
	return s.grpc
}

// Check pings the dependency.
func (s *Server) Check(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.pinger.PingContext(ctx)
}

// Refresh probes once and updates the gRPC serving status for the overall server ("").
func (s *Server) Refresh(ctx context.Context) error {
	err := s.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.grpc.SetServingStatus("", status)
	return err
}

// Run refreshes every interval until ctx is done, then marks the server as shutting down.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	if err := s.Refresh(ctx); err != nil {
		log.Printf("health: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.grpc.Shutdown()
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("health: %v", err)
			}
		}
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// ServeHTTP answers 200 {"status":"ok"} or 503 {"status":"unavailable"}.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.Check(r.Context()); err != nil {
		log.Printf("health: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
}
