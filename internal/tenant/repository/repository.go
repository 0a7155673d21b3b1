package repository

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	// GetByHost returns the active tenant whose subdomain equals subdomain or whose custom domain
	// equals host. A subdomain match wins over a custom-domain match. Returns nil if none.
	GetByHost(ctx context.Context, subdomain, host string) (*domain.Tenant, error)
	// CreateIfAbsent inserts t unless its subdomain is taken, in which case t.ID is set to the
	// existing tenant's id and created is false.
	CreateIfAbsent(ctx context.Context, t *domain.Tenant) (created bool, err error)
}
