package domain

// Role is a named bundle of permissions. A role with an empty TenantID is global and may be
// assigned in any tenant; otherwise it only takes effect for memberships of its own tenant.
type Role struct {
	ID       string
	TenantID string
	Name     string
}

// IsGlobal reports whether the role is shared across tenants.
func (r *Role) IsGlobal() bool { return r.TenantID == "" }

// Permission is a globally unique capability name such as "read" or "manage_users".
type Permission struct {
	ID          string
	Name        string
	Description string
}
