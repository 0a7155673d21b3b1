// Package seed loads a YAML fixture of tenants, roles, permissions and users and applies it
// idempotently to the database.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the seed document.
type Fixture struct {
	Permissions []Permission `yaml:"permissions"`
	Roles       []Role       `yaml:"roles"`
	Tenants     []Tenant     `yaml:"tenants"`
}

// Permission is a global permission name.
type Permission struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Role is created in every tenant of the fixture with the listed permissions.
type Role struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// Tenant and its members.
type Tenant struct {
	Subdomain    string `yaml:"subdomain"`
	CustomDomain string `yaml:"custom_domain"`
	Name         string `yaml:"name"`
	Users        []User `yaml:"users"`
}

// User is a member of the enclosing tenant. Existing users keep their password.
type User struct {
	Email    string   `yaml:"email"`
	FullName string   `yaml:"full_name"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
	Default  bool     `yaml:"default"`
}

// Default returns the embedded development fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Parse decodes and validates a fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that names are present and every role and permission reference resolves.
func (f *Fixture) Validate() error {
	perms := map[string]bool{}
	for _, p := range f.Permissions {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("seed: permission name is required")
		}
		perms[p.Name] = true
	}
	roles := map[string]bool{}
	for _, r := range f.Roles {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("seed: role name is required")
		}
		for _, p := range r.Permissions {
			if !perms[p] {
				return fmt.Errorf("seed: role %q references unknown permission %q", r.Name, p)
			}
		}
		roles[r.Name] = true
	}
	subdomains := map[string]bool{}
	for _, t := range f.Tenants {
		sub := strings.ToLower(strings.TrimSpace(t.Subdomain))
		if sub == "" || strings.TrimSpace(t.Name) == "" {
			return errors.New("seed: tenant subdomain and name are required")
		}
		if subdomains[sub] {
			return fmt.Errorf("seed: duplicate tenant %q", sub)
		}
		subdomains[sub] = true
		for _, u := range t.Users {
			if strings.TrimSpace(u.Email) == "" || u.Password == "" {
				return fmt.Errorf("seed: tenant %q has a user without email or password", sub)
			}
			for _, r := range u.Roles {
				if !roles[r] {
					return fmt.Errorf("seed: user %q references unknown role %q", u.Email, r)
				}
			}
		}
	}
	return nil
}
