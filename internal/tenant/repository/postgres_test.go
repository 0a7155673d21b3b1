package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

var tenantCols = []string{"id", "subdomain", "custom_domain", "name", "is_active", "created_at"}

func TestPostgresRepository_GetByHost(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active AND (subdomain = $1 OR custom_domain = $2)")).
		WithArgs("client1", "client1.local.com").
		WillReturnRows(sqlmock.NewRows(tenantCols).AddRow("t1", "client1", nil, "Client 1", true, now))

	repo := NewPostgresRepository(conn)
	got, err := repo.GetByHost(context.Background(), "client1", "client1.local.com")
	if err != nil {
		t.Fatalf("GetByHost: %v", err)
	}
	if got == nil || got.ID != "t1" || got.Subdomain != "client1" || got.CustomDomain != "" {
		t.Errorf("GetByHost = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresRepository_GetByHostNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("FROM tenants").WillReturnRows(sqlmock.NewRows(tenantCols))

	got, err := NewPostgresRepository(conn).GetByHost(context.Background(), "ghost", "ghost.local.com")
	if err != nil {
		t.Fatalf("GetByHost: %v", err)
	}
	if got != nil {
		t.Errorf("GetByHost = %+v, want nil", got)
	}
}

func TestPostgresRepository_GetByHostDBError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("FROM tenants").WillReturnError(errors.New("connection reset"))

	if _, err := NewPostgresRepository(conn).GetByHost(context.Background(), "a", "a.b.c"); err == nil {
		t.Fatal("GetByHost should surface database errors")
	}
}

func TestPostgresRepository_CreateIfAbsent(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (subdomain) DO NOTHING")).
		WithArgs("t1", "client1", "app.client1.com", "Client 1", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tn := &domain.Tenant{
		ID: "t1", Subdomain: " Client1 ", CustomDomain: "App.Client1.com", Name: "Client 1", IsActive: true, CreatedAt: now,
	}
	created, err := NewPostgresRepository(conn).CreateIfAbsent(context.Background(), tn)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created || tn.ID != "t1" {
		t.Errorf("created = %v, id = %q", created, tn.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresRepository_CreateIfAbsentExisting(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("INSERT INTO tenants").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tenants WHERE subdomain = $1")).
		WithArgs("client1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing"))

	tn := &domain.Tenant{ID: "fresh", Subdomain: "client1", Name: "Client 1"}
	created, err := NewPostgresRepository(conn).CreateIfAbsent(context.Background(), tn)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if created || tn.ID != "existing" {
		t.Errorf("created = %v, id = %q, want false and the stored id", created, tn.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresRepository_CreateIfAbsentInvalid(t *testing.T) {
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	_, err = NewPostgresRepository(conn).CreateIfAbsent(context.Background(), &domain.Tenant{ID: "t1", Subdomain: "a.b", Name: "x"})
	if err == nil {
		t.Fatal("CreateIfAbsent should reject a dotted subdomain")
	}
}
