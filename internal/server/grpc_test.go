package server

import (
	"testing"

	"google.golang.org/grpc"

	healthhandler "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/health/handler"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices_Health(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, healthhandler.NewServer(nil))
	if len(reg.services) != 1 || reg.services[0] != "grpc.health.v1.Health" {
		t.Errorf("services = %v, want [grpc.health.v1.Health]", reg.services)
	}
}

func TestRegisterServices_NilHealth(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, nil)
	if len(reg.services) != 0 {
		t.Errorf("services = %v, want none", reg.services)
	}
}

func TestNewGRPCServer(t *testing.T) {
	s := NewGRPCServer(healthhandler.NewServer(nil))
	defer s.Stop()
	if _, ok := s.GetServiceInfo()["grpc.health.v1.Health"]; !ok {
		t.Error("health service should be registered")
	}
}
