package domain

import (
	"errors"
	"time"
)

// ErrNotRedeemable is returned when a reset token is unknown, already used, or expired.
var ErrNotRedeemable = errors.New("password reset token not redeemable")

// Reset is a single-use password reset grant. Only the SHA-256 hash of the token is stored.
type Reset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsRedeemable reports whether the token can still be used at now. Expiry is strict: a token
// expiring exactly at now is no longer redeemable.
func (r *Reset) IsRedeemable(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}
