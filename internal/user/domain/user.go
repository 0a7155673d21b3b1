package domain

import (
	"errors"
	"strings"
	"time"
)

// User is a tenant-independent identity. Tenant access is granted through memberships.
type User struct {
	ID           string
	Email        string // stored lower-cased; globally unique
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail returns the canonical (trimmed, lower-cased) form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("email is malformed")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
