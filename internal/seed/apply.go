package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	membershipdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
	membershiprepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/repository"
	rolerepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/role/repository"
	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
	tenantrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/repository"
	userdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/user/domain"
	userrepo "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/user/repository"
)

// PasswordHasher hashes fixture passwords for new users.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// Result counts rows inserted by Apply; rows that already existed are not counted.
type Result struct {
	Tenants     int
	Users       int
	Memberships int
}

// writer bundles the repositories bound to one transaction.
type writer struct {
	tenants     *tenantrepo.PostgresRepository
	users       *userrepo.PostgresRepository
	memberships *membershiprepo.PostgresRepository
	roles       *rolerepo.PostgresRepository
	hasher      PasswordHasher
	now         time.Time
}

// Apply inserts the fixture in one transaction. Rows that already exist are left untouched, so
// running it twice is a no-op.
func Apply(ctx context.Context, conn *sql.DB, f *Fixture, hasher PasswordHasher) (Result, error) {
	var res Result
	err := db.WithTx(ctx, conn, nil, func(tx *sql.Tx) error {
		w := &writer{
			tenants:     tenantrepo.NewPostgresRepository(tx),
			users:       userrepo.NewPostgresRepository(tx),
			memberships: membershiprepo.NewPostgresRepository(tx),
			roles:       rolerepo.NewPostgresRepository(tx),
			hasher:      hasher,
			now:         time.Now().UTC(),
		}
		return w.apply(ctx, f, &res)
	})
	return res, err
}

func (w *writer) apply(ctx context.Context, f *Fixture, res *Result) error {
	permIDs := map[string]string{}
	for _, p := range f.Permissions {
		id, err := w.roles.EnsurePermission(ctx, p.Name, p.Description)
		if err != nil {
			return fmt.Errorf("permission %q: %w", p.Name, err)
		}
		permIDs[p.Name] = id
	}

	for _, ft := range f.Tenants {
		t := &tenantdomain.Tenant{
			ID:           uuid.NewString(),
			Subdomain:    ft.Subdomain,
			CustomDomain: ft.CustomDomain,
			Name:         ft.Name,
			IsActive:     true,
			CreatedAt:    w.now,
		}
		created, err := w.tenants.CreateIfAbsent(ctx, t)
		if err != nil {
			return fmt.Errorf("tenant %q: %w", ft.Subdomain, err)
		}
		if created {
			res.Tenants++
		}

		roleIDs := map[string]string{}
		for _, r := range f.Roles {
			roleID, err := w.roles.EnsureTenantRole(ctx, t.ID, r.Name)
			if err != nil {
				return fmt.Errorf("role %q in %q: %w", r.Name, t.Subdomain, err)
			}
			roleIDs[r.Name] = roleID
			for _, p := range r.Permissions {
				if err := w.roles.Grant(ctx, roleID, permIDs[p]); err != nil {
					return fmt.Errorf("grant %q to %q: %w", p, r.Name, err)
				}
			}
		}

		for _, u := range ft.Users {
			userID, created, err := w.ensureUser(ctx, u)
			if err != nil {
				return fmt.Errorf("user %q: %w", u.Email, err)
			}
			if created {
				res.Users++
			}
			memID, created, err := w.ensureMembership(ctx, userID, t.ID, u.Default)
			if err != nil {
				return fmt.Errorf("membership %q in %q: %w", u.Email, t.Subdomain, err)
			}
			if created {
				res.Memberships++
			}
			for _, r := range u.Roles {
				if err := w.roles.Assign(ctx, memID, roleIDs[r]); err != nil {
					return fmt.Errorf("assign %q to %q: %w", r, u.Email, err)
				}
			}
		}
	}
	return nil
}

// ensureUser hashes the password only when the user is new.
func (w *writer) ensureUser(ctx context.Context, fu User) (string, bool, error) {
	existing, err := w.users.GetByEmail(ctx, fu.Email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}
	hash, err := w.hasher.Hash([]byte(fu.Password))
	if err != nil {
		return "", false, err
	}
	u := &userdomain.User{
		ID:           uuid.NewString(),
		Email:        fu.Email,
		PasswordHash: hash,
		FullName:     fu.FullName,
		IsActive:     true,
		CreatedAt:    w.now,
		UpdatedAt:    w.now,
	}
	if err := w.users.Create(ctx, u); err != nil {
		return "", false, err
	}
	return u.ID, true, nil
}

func (w *writer) ensureMembership(ctx context.Context, userID, tenantID string, isDefault bool) (string, bool, error) {
	existing, err := w.memberships.GetMembershipByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}
	m := &membershipdomain.Membership{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  tenantID,
		IsActive:  true,
		IsDefault: isDefault,
		CreatedAt: w.now,
	}
	if err := w.memberships.CreateMembership(ctx, m); err != nil {
		return "", false, err
	}
	return m.ID, true, nil
}
