package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
)

const roleNamesQuery = `
	SELECT DISTINCT r.name
	FROM role_assignments ra
	JOIN memberships m ON m.id = ra.membership_id
	JOIN roles r ON r.id = ra.role_id
	WHERE ra.membership_id = $1
	  AND (r.tenant_id IS NULL OR r.tenant_id = m.tenant_id)
	ORDER BY r.name`

const hasPermissionQuery = `
	SELECT EXISTS (
		SELECT 1
		FROM role_assignments ra
		JOIN memberships m ON m.id = ra.membership_id
		JOIN roles r ON r.id = ra.role_id
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ra.membership_id = $1
		  AND p.name = $2
		  AND (r.tenant_id IS NULL OR r.tenant_id = m.tenant_id)
	)`

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns a role repository that runs its queries on q, a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// RoleNames returns the sorted, distinct role names of the membership. An unknown membership yields an empty slice.
func (r *PostgresRepository) RoleNames(ctx context.Context, membershipID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, roleNamesQuery, membershipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// HasPermission reports whether the membership holds the named permission through any in-scope role.
func (r *PostgresRepository) HasPermission(ctx context.Context, membershipID, permission string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, hasPermissionQuery, membershipID, permission).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// EnsurePermission returns the id of the named permission, inserting it first if absent.
func (r *PostgresRepository) EnsurePermission(ctx context.Context, name, description string) (string, error) {
	return r.ensure(ctx,
		`INSERT INTO permissions (id, name, description) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		[]any{uuid.NewString(), name, description},
		`SELECT id FROM permissions WHERE name = $1`, name)
}

// EnsureTenantRole returns the id of the tenant's role with the given name, inserting it first if absent.
func (r *PostgresRepository) EnsureTenantRole(ctx context.Context, tenantID, name string) (string, error) {
	return r.ensure(ctx,
		`INSERT INTO roles (id, tenant_id, name) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		[]any{uuid.NewString(), tenantID, name},
		`SELECT id FROM roles WHERE tenant_id = $1 AND name = $2`, tenantID, name)
}

// Grant attaches the permission to the role. Granting twice is a no-op.
func (r *PostgresRepository) Grant(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

// Assign gives the membership the role. Assigning twice is a no-op.
func (r *PostgresRepository) Assign(ctx context.Context, membershipID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_assignments (membership_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		membershipID, roleID)
	return err
}

func (r *PostgresRepository) ensure(ctx context.Context, insert string, insertArgs []any, lookup string, lookupArgs ...any) (string, error) {
	if _, err := r.db.ExecContext(ctx, insert, insertArgs...); err != nil {
		return "", err
	}
	var id string
	if err := r.db.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
