package repository

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/domain"
)

// Repository reads a user's identity within a tenant.
type Repository interface {
	// GetProfile returns the profile of an active user with an active membership in an active
	// tenant, or nil if any of the three is missing or inactive.
	GetProfile(ctx context.Context, userID, tenantID string) (*domain.Profile, error)
}
