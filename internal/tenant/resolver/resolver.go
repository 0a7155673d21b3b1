// Package resolver maps an inbound request host to the tenant that owns it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
)

var (
	// ErrMissingHost is returned when the request carries no host.
	ErrMissingHost = errors.New("missing host")
	// ErrInvalidHostFormat is returned when the host has fewer than three labels or an empty label.
	ErrInvalidHostFormat = errors.New("invalid host format")
	// ErrTenantNotFound is returned when no active tenant matches the host.
	ErrTenantNotFound = errors.New("tenant not found")
)

// minHostLabels is the label count of the shortest tenant host (<subdomain>.<domain>.<tld>).
const minHostLabels = 3

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// TenantLookup is the tenant repository subset the resolver needs.
type TenantLookup interface {
	GetByHost(ctx context.Context, subdomain, host string) (*domain.Tenant, error)
}

// Resolver resolves hosts to tenants. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	tenants   TenantLookup
	devMode   bool
	devTenant string
}

// New returns a Resolver. When devMode is true, loopback hosts resolve to the tenant whose
// subdomain is devTenant.
func New(tenants TenantLookup, devMode bool, devTenant string) *Resolver {
	return &Resolver{tenants: tenants, devMode: devMode, devTenant: strings.ToLower(strings.TrimSpace(devTenant))}
}

// Resolve returns the active tenant addressed by host. host may carry a port.
func (r *Resolver) Resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	hostname := NormalizeHost(host)
	if hostname == "" {
		return nil, ErrMissingHost
	}

	var subdomain, customHost string
	if r.devMode && loopbackHosts[hostname] {
		subdomain = r.devTenant
	} else {
		labels := strings.Split(hostname, ".")
		if len(labels) < minHostLabels {
			return nil, ErrInvalidHostFormat
		}
		for _, l := range labels {
			if l == "" {
				return nil, ErrInvalidHostFormat
			}
		}
		subdomain = labels[0]
		customHost = hostname
	}

	t, err := r.tenants.GetByHost(ctx, subdomain, customHost)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if t == nil || !t.IsActive {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// NormalizeHost strips any port and IPv6 brackets, lower-cases, and drops a trailing dot.
func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if h == "" {
		return ""
	}
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	} else if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}
	return strings.TrimSuffix(strings.ToLower(h), ".")
}
