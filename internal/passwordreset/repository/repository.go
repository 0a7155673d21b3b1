package repository

import (
	"context"
	"time"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/passwordreset/domain"
)

// Repository defines persistence for password reset tokens.
type Repository interface {
	Create(ctx context.Context, r *domain.Reset) error
	// Redeem, in one transaction, marks the reset used, stores passwordHash on its user, and
	// revokes every active refresh token of the user's memberships. Returns the user id, or
	// domain.ErrNotRedeemable if the reset is unknown, used, or expired at now.
	Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (userID string, err error)
}
