package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/passwordreset/domain"
)

var resetCols = []string{"id", "user_id", "token_hash", "expires_at", "used", "used_at", "created_at"}

func TestPostgresRepository_RedeemSuccess(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM password_resets WHERE token_hash = $1 FOR UPDATE")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(resetCols).AddRow("pr1", "u1", "h1", now.Add(time.Hour), false, nil, now))
	mock.ExpectExec("UPDATE password_resets SET used = TRUE").WithArgs("pr1", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash").WithArgs("u1", "new-hash", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked = TRUE").WithArgs("u1", now).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	userID, err := NewPostgresRepository(conn).Redeem(context.Background(), "h1", "new-hash", now)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if userID != "u1" {
		t.Errorf("Redeem user = %q, want u1", userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresRepository_RedeemNotRedeemable(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name string
		rows *sqlmock.Rows
	}{
		{"unknown", sqlmock.NewRows(resetCols)},
		{"used", sqlmock.NewRows(resetCols).AddRow("pr1", "u1", "h1", now.Add(time.Hour), true, now, now)},
		{"expired exactly now", sqlmock.NewRows(resetCols).AddRow("pr1", "u1", "h1", now, false, nil, now)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer conn.Close()

			mock.ExpectBegin()
			mock.ExpectQuery("FOR UPDATE").WillReturnRows(tc.rows)
			mock.ExpectRollback()

			_, err = NewPostgresRepository(conn).Redeem(context.Background(), "h1", "new-hash", now)
			if !errors.Is(err, domain.ErrNotRedeemable) {
				t.Fatalf("Redeem: want ErrNotRedeemable, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expectations: %v", err)
			}
		})
	}
}

func TestPostgresRepository_RedeemRollsBackOnFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(resetCols).AddRow("pr1", "u1", "h1", now.Add(time.Hour), false, nil, now))
	mock.ExpectExec("UPDATE password_resets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := NewPostgresRepository(conn).Redeem(context.Background(), "h1", "new-hash", now); err == nil {
		t.Fatal("Redeem should fail when revocation fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Now()
	mock.ExpectExec("INSERT INTO password_resets").
		WithArgs("pr1", "u1", "h1", now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresRepository(conn).Create(context.Background(), &domain.Reset{ID: "pr1", UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour), CreatedAt: now})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
