// Package rbac evaluates tenant-scoped roles and permissions for memberships and provides the
// guards that protect operations.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
)

var (
	// ErrNotInTenant is returned when the user has no active membership in the tenant.
	ErrNotInTenant = errors.New("user is not a member of this tenant")
	// ErrPermissionDenied is returned when the membership lacks the required permission or role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated is returned when a guard runs without an authenticated principal or tenant.
	ErrUnauthenticated = errors.New("authentication required")
)

// MembershipGetter returns a user's membership in a tenant, or nil if none.
type MembershipGetter interface {
	GetMembershipByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
}

// RoleStore answers role and permission queries scoped to a membership.
type RoleStore interface {
	RoleNames(ctx context.Context, membershipID string) ([]string, error)
	HasPermission(ctx context.Context, membershipID, permission string) (bool, error)
}

// Evaluator computes roles and permissions from the store on every call; nothing is cached.
type Evaluator struct {
	memberships MembershipGetter
	roles       RoleStore
}

// NewEvaluator returns an Evaluator backed by the given stores.
func NewEvaluator(memberships MembershipGetter, roles RoleStore) *Evaluator {
	return &Evaluator{memberships: memberships, roles: roles}
}

// ActiveMembership returns the user's active membership in the tenant, or ErrNotInTenant.
func (e *Evaluator) ActiveMembership(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	m, err := e.memberships.GetMembershipByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if m == nil || !m.IsActive {
		return nil, ErrNotInTenant
	}
	return m, nil
}

// RoleNames returns the sorted, distinct role names assigned to the membership.
func (e *Evaluator) RoleNames(ctx context.Context, membershipID string) ([]string, error) {
	names, err := e.roles.RoleNames(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("role names: %w", err)
	}
	return sortedDistinct(names), nil
}

// HasPermission reports whether the membership holds the named permission.
func (e *Evaluator) HasPermission(ctx context.Context, membershipID, permission string) (bool, error) {
	ok, err := e.roles.HasPermission(ctx, membershipID, permission)
	if err != nil {
		return false, fmt.Errorf("has permission: %w", err)
	}
	return ok, nil
}

func sortedDistinct(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
