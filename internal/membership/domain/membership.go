package domain

import (
	"time"
)

// Membership links a user to a tenant. Roles are assigned to the membership, never to the user,
// so the same user can hold different roles in different tenants.
type Membership struct {
	ID        string
	UserID    string
	TenantID  string
	IsActive  bool
	IsDefault bool
	CreatedAt time.Time
}
