package repository

import (
	"context"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	// GetByEmail matches case-insensitively. Returns nil if no user has that email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts the user. A taken email surfaces as a unique violation.
	Create(ctx context.Context, u *domain.User) error
}
