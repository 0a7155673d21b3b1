package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/db"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/passwordreset/domain"
)

const resetColumns = `id, user_id, token_hash, expires_at, used, used_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a password reset repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the reset. The reset must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, reset *domain.Reset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`,
		reset.ID, reset.UserID, reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	return err
}

// Redeem consumes the reset under a row lock, updates the password, and revokes the user's refresh tokens.
func (r *PostgresRepository) Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	var userID string
	err := db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+resetColumns+` FROM password_resets WHERE token_hash = $1 FOR UPDATE`, tokenHash)
		reset, err := scanReset(row)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotRedeemable
		}
		if err != nil {
			return err
		}
		if !reset.IsRedeemable(now) {
			return domain.ErrNotRedeemable
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE password_resets SET used = TRUE, used_at = $2 WHERE id = $1`, reset.ID, now); err != nil {
			return fmt.Errorf("mark reset used: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, reset.UserID, passwordHash, now)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return domain.ErrNotRedeemable
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2
			WHERE NOT revoked AND membership_id IN (SELECT id FROM memberships WHERE user_id = $1)`,
			reset.UserID, now); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		userID = reset.UserID
		return nil
	})
	if err != nil && db.IsConflict(err) {
		return "", domain.ErrNotRedeemable
	}
	return userID, err
}

func scanReset(row *sql.Row) (*domain.Reset, error) {
	var (
		reset  domain.Reset
		usedAt sql.NullTime
	)
	if err := row.Scan(&reset.ID, &reset.UserID, &reset.TokenHash, &reset.ExpiresAt, &reset.Used, &usedAt, &reset.CreatedAt); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		at := usedAt.Time
		reset.UsedAt = &at
	}
	return &reset, nil
}
