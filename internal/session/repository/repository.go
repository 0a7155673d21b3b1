package repository

import (
	"context"
	"time"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/domain"
)

// Repository defines persistence for refresh token records.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	// GetByJTI returns the record for jti, or nil if not found.
	GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error)
	// Revoke marks the record revoked. Returns false if it was missing or already revoked.
	Revoke(ctx context.Context, jti string, at time.Time) (bool, error)
	// Rotate atomically revokes the predecessor identified by oldJTI (which must still be active
	// and carry oldHash) and inserts successor. Returns domain.ErrRotationConflict if another
	// caller rotated or revoked the predecessor first.
	Rotate(ctx context.Context, oldJTI, oldHash string, successor *domain.RefreshToken, now time.Time) error
}
