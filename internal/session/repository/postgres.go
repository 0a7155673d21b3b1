package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/domain"
)

const refreshColumns = `id, membership_id, jti, token_hash, revoked, revoked_at, expires_at, user_agent, ip, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the record. The record must have ID and JTI set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return insertRefresh(ctx, r.db, t)
}

// GetByJTI returns the record for jti, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE jti = $1`, jti)
	t, err := scanRefresh(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// Revoke marks the record revoked if it is not already. Returns whether a row changed.
func (r *PostgresRepository) Revoke(ctx context.Context, jti string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE jti = $1 AND NOT revoked`, jti, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Rotate locks the predecessor row, re-checks it, revokes it, and inserts the successor in one
// transaction. Every lost race surfaces as domain.ErrRotationConflict.
func (r *PostgresRepository) Rotate(ctx context.Context, oldJTI, oldHash string, successor *domain.RefreshToken, now time.Time) error {
	err := db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE jti = $1 FOR UPDATE`, oldJTI)
		prev, err := scanRefresh(row)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRotationConflict
		}
		if err != nil {
			return err
		}
		if !prev.IsActive(now) || prev.TokenHash != oldHash {
			return domain.ErrRotationConflict
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE jti = $1 AND NOT revoked`, oldJTI, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return domain.ErrRotationConflict
		}
		return insertRefresh(ctx, tx, successor)
	})
	if err != nil && db.IsConflict(err) {
		return domain.ErrRotationConflict
	}
	return err
}

func insertRefresh(ctx context.Context, q db.Querier, t *domain.RefreshToken) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, membership_id, jti, token_hash, revoked, expires_at, user_agent, ip, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7, $8)`,
		t.ID, t.MembershipID, t.JTI, t.TokenHash, t.ExpiresAt, db.NullIfEmpty(t.UserAgent), db.NullIfEmpty(t.IP), t.CreatedAt)
	return err
}

func scanRefresh(row *sql.Row) (*domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		revokedAt sql.NullTime
		ua, ip    sql.NullString
	)
	err := row.Scan(&t.ID, &t.MembershipID, &t.JTI, &t.TokenHash, &t.Revoked, &revokedAt, &t.ExpiresAt, &ua, &ip, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	t.UserAgent = ua.String
	t.IP = ip.String
	return &t, nil
}
