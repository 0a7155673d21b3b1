// Package service implements the authentication orchestrator: login, refresh, logout, password
// reset, and the current identity.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit"
	auditdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/audit/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/domain"
	membershipdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/membership/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/notify"
	resetdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/passwordreset/domain"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/rbac"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/security"
	sessionservice "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/session/service"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/telemetry"
	tenantdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/tenant/domain"
	userdomain "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrInvalidInput          = errors.New("invalid input")
)

// MinPasswordLength is the minimum length, in characters, of a new password.
const MinPasswordLength = 8

const (
	instrumentationName = "github.com/KoAt-DEV/multi-tenant-saas-starter/internal/identity/service"
	auditResource       = "auth"
	// dummyPassword is hashed once at startup; unknown emails are verified against it so
	// their response time matches a wrong password.
	dummyPassword = "timing-equalization-placeholder"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// ProfileRepo reads a user's identity within a tenant.
type ProfileRepo interface {
	GetProfile(ctx context.Context, userID, tenantID string) (*domain.Profile, error)
}

// Authorizer resolves memberships and their roles.
type Authorizer interface {
	ActiveMembership(ctx context.Context, userID, tenantID string) (*membershipdomain.Membership, error)
	RoleNames(ctx context.Context, membershipID string) ([]string, error)
}

// Sessions is the refresh token lifecycle manager.
type Sessions interface {
	Issue(ctx context.Context, mem *membershipdomain.Membership, roles []string, client reqctx.ClientMeta) (*sessionservice.TokenPair, error)
	Rotate(ctx context.Context, refreshToken, tenantID string, client reqctx.ClientMeta) (*sessionservice.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// ResetRepo persists and redeems password reset tokens.
type ResetRepo interface {
	Create(ctx context.Context, r *resetdomain.Reset) error
	Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}

// Deps holds the collaborators of AuthService. Sender, Audit and Events may be nil.
type Deps struct {
	Users    UserRepo
	Profiles ProfileRepo
	RBAC     Authorizer
	Sessions Sessions
	Resets   ResetRepo
	Hasher   *security.Hasher
	Sender   notify.Sender
	Audit    audit.AuditLogger
	Events   telemetry.EventEmitter
	ResetTTL time.Duration
}

// AuthService orchestrates credential checks, membership checks, token issuance and password reset.
// Safe for concurrent use.
type AuthService struct {
	users     UserRepo
	profiles  ProfileRepo
	rbac      Authorizer
	sessions  Sessions
	resets    ResetRepo
	hasher    *security.Hasher
	sender    notify.Sender
	audit     audit.AuditLogger
	events    telemetry.EventEmitter
	resetTTL  time.Duration
	dummyHash string
	now       func() time.Time

	tracer         trace.Tracer
	loginAttempts  metric.Int64Counter
	refreshCounter metric.Int64Counter
}

// NewAuthService returns an AuthService. It hashes the timing-equalization password with the
// configured cost, so construction takes one bcrypt round.
func NewAuthService(d Deps) (*AuthService, error) {
	if d.Users == nil || d.Profiles == nil || d.RBAC == nil || d.Sessions == nil || d.Resets == nil || d.Hasher == nil {
		return nil, errors.New("identity: missing required dependency")
	}
	dummy, err := d.Hasher.Hash([]byte(dummyPassword))
	if err != nil {
		return nil, fmt.Errorf("identity: hash dummy password: %w", err)
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = time.Hour
	}
	meter := otel.Meter(instrumentationName)
	loginAttempts, err := meter.Int64Counter("auth.login.attempts",
		metric.WithDescription("Login attempts by outcome."))
	if err != nil {
		return nil, err
	}
	refreshCounter, err := meter.Int64Counter("auth.refresh.rotations",
		metric.WithDescription("Refresh token rotations by outcome."))
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:          d.Users,
		profiles:       d.Profiles,
		rbac:           d.RBAC,
		sessions:       d.Sessions,
		resets:         d.Resets,
		hasher:         d.Hasher,
		sender:         d.Sender,
		audit:          d.Audit,
		events:         d.Events,
		resetTTL:       d.ResetTTL,
		dummyHash:      dummy,
		now:            time.Now,
		tracer:         otel.Tracer(instrumentationName),
		loginAttempts:  loginAttempts,
		refreshCounter: refreshCounter,
	}, nil
}

// WithClock returns a copy of s that reads the current time from now for reset expiry. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	cp := *s
	cp.now = now
	return &cp
}

// Login authenticates email and password within tenant and issues a token pair carrying the
// membership's roles. Unknown email, inactive user and wrong password all return
// ErrInvalidCredentials; a valid user without an active membership gets rbac.ErrNotInTenant.
func (s *AuthService) Login(ctx context.Context, email, password string, tenant *tenantdomain.Tenant, client reqctx.ClientMeta) (res *domain.TokenResult, err error) {
	tid := tenantID(tenant)
	ctx, span := s.tracer.Start(ctx, "AuthService.Login", trace.WithAttributes(attribute.String("tenant.id", tid)))
	var userID string
	defer func() {
		s.finish(span, err)
		s.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
		if err != nil {
			s.audit.LogEvent(ctx, tid, userID, auditdomain.ActionLoginFailure, auditResource, map[string]any{"reason": Reason(err)})
			telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventLoginFailed, TenantID: tid, UserID: userID, Reason: Reason(err)})
		}
	}()
	if tenant == nil {
		return nil, rbac.ErrUnauthenticated
	}

	user, err := s.users.GetByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		s.hasher.Verify(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, []byte(password)) {
		return nil, ErrInvalidCredentials
	}
	userID = user.ID

	mem, err := s.rbac.ActiveMembership(ctx, user.ID, tid)
	if err != nil {
		return nil, err
	}
	roles, err := s.rbac.RoleNames(ctx, mem.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, mem, roles, client)
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, tid, user.ID, auditdomain.ActionLoginSuccess, auditResource, map[string]any{"roles": pair.Roles})
	telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventLoginSucceeded, TenantID: tid, UserID: user.ID})
	return toResult(pair, tenant), nil
}

// Refresh rotates refreshToken for a new pair with roles recomputed from current assignments.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, tenant *tenantdomain.Tenant, client reqctx.ClientMeta) (res *domain.TokenResult, err error) {
	tid := tenantID(tenant)
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh", trace.WithAttributes(attribute.String("tenant.id", tid)))
	defer func() {
		s.finish(span, err)
		s.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
		if err != nil {
			telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventRefreshRejected, TenantID: tid, Reason: Reason(err)})
		}
	}()
	if tenant == nil {
		return nil, rbac.ErrUnauthenticated
	}

	pair, err := s.sessions.Rotate(ctx, refreshToken, tid, client)
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, tid, pair.UserID, auditdomain.ActionTokenRefresh, auditResource, nil)
	telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventTokenRefreshed, TenantID: tid, UserID: pair.UserID})
	return toResult(pair, tenant), nil
}

// Logout revokes the refresh token. It always succeeds; storage failures are logged.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, tenant *tenantdomain.Tenant) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		span.RecordError(err)
		log.Printf("identity: logout revoke failed: %v", err)
	}
	s.audit.LogEvent(ctx, tenantID(tenant), "", auditdomain.ActionLogout, auditResource, nil)
	telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventLogout, TenantID: tenantID(tenant)})
}

// ForgotPassword creates a single-use reset token for the active user with email and hands it to
// the delivery channel without waiting. Only the token's hash is stored.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, tenant *tenantdomain.Tenant) (res *domain.ResetIssued, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ForgotPassword")
	defer func() { s.finish(span, err) }()

	user, err := s.users.GetByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	token, err := security.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	reset := &resetdomain.Reset{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	notify.SendAsync(s.sender, notify.ResetRequest{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		ExpiresAt: reset.ExpiresAt,
	})
	s.audit.LogEvent(ctx, tenantID(tenant), user.ID, auditdomain.ActionPasswordResetRequested, auditResource, nil)
	telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventResetRequested, TenantID: tenantID(tenant), UserID: user.ID})
	return &domain.ResetIssued{Token: token, ExpiresAt: reset.ExpiresAt}, nil
}

// ResetPassword redeems token and sets newPassword. Redeeming marks the token used and revokes
// every active refresh token of the user in the same transaction.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, tenant *tenantdomain.Tenant) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResetPassword")
	defer func() {
		s.finish(span, err)
		if err != nil {
			telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventResetRejected, TenantID: tenantID(tenant), Reason: Reason(err)})
		}
	}()

	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	userID, err := s.resets.Redeem(ctx, security.HashToken(token), hash, s.now().UTC())
	if err != nil {
		if errors.Is(err, resetdomain.ErrNotRedeemable) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	s.audit.LogEvent(ctx, tenantID(tenant), userID, auditdomain.ActionPasswordReset, auditResource, nil)
	telemetry.EmitAsync(s.events, telemetry.Event{Type: telemetry.EventPasswordReset, TenantID: tenantID(tenant), UserID: userID})
	return nil
}

// Me returns the caller's identity in tenant with freshly computed roles.
func (s *AuthService) Me(ctx context.Context, principal reqctx.Principal, tenant *tenantdomain.Tenant) (*domain.Identity, error) {
	if principal.UserID == "" || tenant == nil {
		return nil, rbac.ErrUnauthenticated
	}
	p, err := s.profiles.GetProfile(ctx, principal.UserID, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, rbac.ErrNotInTenant
	}
	roles, err := s.rbac.RoleNames(ctx, p.MembershipID)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		UserID:     p.UserID,
		Email:      p.Email,
		FullName:   p.FullName,
		TenantID:   p.TenantID,
		TenantName: p.TenantName,
		Roles:      roles,
	}, nil
}

// Reason returns the stable error code recorded on audit rows and events for err.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, rbac.ErrNotInTenant):
		return "NOT_IN_TENANT"
	case errors.Is(err, security.ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, sessionservice.ErrTokenRevokedOrExpired):
		return "TOKEN_REVOKED_OR_EXPIRED"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "INVALID_OR_EXPIRED_TOKEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL"
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(Reason(err))
}

func (s *AuthService) finish(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, Reason(err))
	}
	span.End()
}

func toResult(pair *sessionservice.TokenPair, tenant *tenantdomain.Tenant) *domain.TokenResult {
	return &domain.TokenResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    domain.TokenTypeBearer,
		ExpiresAt:    pair.AccessExpiresAt,
		Roles:        pair.Roles,
		UserID:       pair.UserID,
		TenantID:     pair.TenantID,
		Tenant:       tenant.Subdomain,
	}
}

func tenantID(t *tenantdomain.Tenant) string {
	if t == nil {
		return ""
	}
	return t.ID
}
