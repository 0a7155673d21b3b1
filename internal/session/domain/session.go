package domain

import (
	"errors"
	"time"
)

// ErrRotationConflict is returned by the repository when the predecessor token was already
// revoked, expired, or replaced by a concurrent rotation.
var ErrRotationConflict = errors.New("refresh token already rotated or revoked")

// RefreshToken is the server-side record of an issued refresh token, keyed by its jti.
// Revoked only ever moves from false to true; records are never deleted.
type RefreshToken struct {
	ID           string
	MembershipID string
	JTI          string
	TokenHash    string // SHA-256 of the token string
	Revoked      bool
	RevokedAt    *time.Time // nil when not revoked
	ExpiresAt    time.Time
	UserAgent    string
	IP           string
	CreatedAt    time.Time
}

// IsExpired reports whether the record is expired at now. A record expiring exactly at now is expired.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the record may still be rotated or used.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
