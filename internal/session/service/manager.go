// Package service implements the refresh token lifecycle: issue, single-use rotation, and revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	membershipdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/domain"
)

// ErrTokenRevokedOrExpired is returned when a structurally valid refresh token has no live record:
// unknown jti, already rotated or revoked, expired, or lost a concurrent rotation.
var ErrTokenRevokedOrExpired = errors.New("refresh token revoked or expired")

// Repo is the refresh token repository needed by the Manager.
type Repo interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, jti string, at time.Time) (bool, error)
	Rotate(ctx context.Context, oldJTI, oldHash string, successor *domain.RefreshToken, now time.Time) error
}

// MembershipRepo resolves the membership a refresh record belongs to.
type MembershipRepo interface {
	GetMembershipByID(ctx context.Context, id string) (*membershipdomain.Membership, error)
}

// RoleNamer computes the current role names of a membership.
type RoleNamer interface {
	RoleNames(ctx context.Context, membershipID string) ([]string, error)
}

// TokenPair is a freshly minted access and refresh token for one membership.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	Roles           []string
	UserID          string
	TenantID        string
}

// Manager owns refresh token records. Safe for concurrent use.
type Manager struct {
	repo        Repo
	memberships MembershipRepo
	roles       RoleNamer
	tokens      *security.TokenProvider
	now         func() time.Time
}

// NewManager returns a Manager with the given dependencies.
func NewManager(repo Repo, memberships MembershipRepo, roles RoleNamer, tokens *security.TokenProvider) *Manager {
	return &Manager{repo: repo, memberships: memberships, roles: roles, tokens: tokens, now: time.Now}
}

// WithClock returns a copy of m that reads the current time from now for expiry checks and
// record timestamps. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// Issue mints an access token carrying roles and a refresh token for the membership, and persists
// the refresh record as active.
func (m *Manager) Issue(ctx context.Context, mem *membershipdomain.Membership, roles []string, client reqctx.ClientMeta) (*TokenPair, error) {
	pair, rec, err := m.mint(mem, roles, client)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// Rotate exchanges a live refresh token for a new pair and invalidates it. tenantID is the
// tenant resolved for the request; the token must have been issued for it. Of concurrent rotations
// of one token exactly one succeeds; the others get ErrTokenRevokedOrExpired.
func (m *Manager) Rotate(ctx context.Context, refreshToken, tenantID string, client reqctx.ClientMeta) (*TokenPair, error) {
	claims, err := m.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, security.ErrInvalidToken
	}
	if claims.TenantID != tenantID {
		return nil, security.ErrInvalidToken
	}

	now := m.now().UTC()
	rec, err := m.repo.GetByJTI(ctx, claims.JTI())
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if rec == nil || !rec.IsActive(now) || !security.TokenHashEqual(refreshToken, rec.TokenHash) {
		return nil, ErrTokenRevokedOrExpired
	}

	mem, err := m.memberships.GetMembershipByID(ctx, rec.MembershipID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if mem == nil || !mem.IsActive {
		return nil, rbac.ErrNotInTenant
	}
	if mem.UserID != claims.UserID() || mem.TenantID != claims.TenantID {
		return nil, security.ErrInvalidToken
	}

	roles, err := m.roles.RoleNames(ctx, mem.ID)
	if err != nil {
		return nil, err
	}
	pair, next, err := m.mint(mem, roles, client)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Rotate(ctx, rec.JTI, rec.TokenHash, next, now); err != nil {
		if errors.Is(err, domain.ErrRotationConflict) {
			log.Printf("session: rotation conflict for membership %s", mem.ID)
			return nil, ErrTokenRevokedOrExpired
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return pair, nil
}

// Revoke marks the record behind refreshToken revoked. Malformed, unknown, and already revoked
// tokens are ignored; only storage failures are returned.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := m.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil
	}
	rec, err := m.repo.GetByJTI(ctx, claims.JTI())
	if err != nil {
		return fmt.Errorf("get refresh token: %w", err)
	}
	if rec == nil || rec.Revoked || !security.TokenHashEqual(refreshToken, rec.TokenHash) {
		return nil
	}
	if _, err := m.repo.Revoke(ctx, rec.JTI, m.now().UTC()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (m *Manager) mint(mem *membershipdomain.Membership, roles []string, client reqctx.ClientMeta) (*TokenPair, *domain.RefreshToken, error) {
	access, accessExp, err := m.tokens.IssueAccess(mem.UserID, mem.TenantID, roles)
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, jti, refreshExp, err := m.tokens.IssueRefresh(mem.UserID, mem.TenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue refresh token: %w", err)
	}
	rec := &domain.RefreshToken{
		ID:           uuid.New().String(),
		MembershipID: mem.ID,
		JTI:          jti,
		TokenHash:    security.HashToken(refresh),
		ExpiresAt:    refreshExp,
		UserAgent:    client.UserAgent,
		IP:           client.IP,
		CreatedAt:    m.now().UTC(),
	}
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
		Roles:           roles,
		UserID:          mem.UserID,
		TenantID:        mem.TenantID,
	}, rec, nil
}
