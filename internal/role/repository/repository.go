package repository

import "context"

// Repository answers role and permission questions for a membership. Every query only counts
// roles that are global or belong to the membership's own tenant.
type Repository interface {
	// RoleNames returns the distinct role names assigned to the membership, sorted ascending.
	RoleNames(ctx context.Context, membershipID string) ([]string, error)
	// HasPermission reports whether any role assigned to the membership grants the named permission.
	HasPermission(ctx context.Context, membershipID, permission string) (bool, error)
}
