package repository

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
}
