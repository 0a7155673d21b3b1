package domain

import (
	"errors"
	"strings"
	"time"
)

// Tenant is an isolated customer workspace, addressed by subdomain or an optional custom domain.
type Tenant struct {
	ID           string
	Subdomain    string
	CustomDomain string // empty when not set
	Name         string
	IsActive     bool
	CreatedAt    time.Time
}

// Validate normalizes and validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	t.Subdomain = strings.ToLower(strings.TrimSpace(t.Subdomain))
	t.CustomDomain = strings.ToLower(strings.TrimSpace(t.CustomDomain))
	if t.Subdomain == "" {
		return errors.New("subdomain is required")
	}
	if strings.Contains(t.Subdomain, ".") {
		return errors.New("subdomain must be a single DNS label")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
