package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, of the wrong class, or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidSecret is returned when the signing secret is empty.
	ErrInvalidSecret = errors.New("invalid signing secret")
)

// Claims is the fixed claim set carried by access and refresh tokens.
// Access tokens carry Roles and no ID; refresh tokens carry an ID (jti) and no Roles.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tid"`
	Roles    []string `json:"roles,omitempty"`
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// JTI returns the unique token identifier (refresh tokens only).
func (c *Claims) JTI() string { return c.ID }

// Expiry returns the exp claim as a time, or the zero time if absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenProvider issues and validates HMAC-signed JWT access and refresh tokens.
type TokenProvider struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with secret using algorithm
// (HS256, HS384 or HS512; empty means HS256). issuer and audience are set on claims and
// required on decode.
func NewTokenProvider(secret []byte, algorithm, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidSecret
	}
	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported signing algorithm " + algorithm)
	}
	return &TokenProvider{
		secret:     secret,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of p that reads the current time from now. Used by tests.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	cp := *p
	cp.now = now
	return &cp
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT embedding the tenant and role names.
func (p *TokenProvider) IssueAccess(userID, tenantID string, roles []string) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := Claims{
		RegisteredClaims: p.registered(userID, "", now, expiresAt),
		TenantID:         tenantID,
		Roles:            append([]string(nil), roles...),
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT with a freshly minted jti.
// The caller persists jti and expiresAt on the refresh token record.
func (p *TokenProvider) IssueRefresh(userID, tenantID string) (token, jti string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	jti = ulid.Make().String()
	expiresAt = now.Add(p.refreshTTL)
	claims := Claims{
		RegisteredClaims: p.registered(userID, jti, now, expiresAt),
		TenantID:         tenantID,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// DecodeAccess parses and validates an access token. Every failure is ErrInvalidToken.
func (p *TokenProvider) DecodeAccess(tokenString string) (*Claims, error) {
	c, err := p.decode(tokenString)
	if err != nil {
		return nil, err
	}
	if c.ID != "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// DecodeRefresh parses and validates a refresh token. Every failure is ErrInvalidToken.
func (p *TokenProvider) DecodeRefresh(tokenString string) (*Claims, error) {
	c, err := p.decode(tokenString)
	if err != nil {
		return nil, err
	}
	if c.ID == "" || len(c.Roles) > 0 {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (p *TokenProvider) registered(userID, jti string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (p *TokenProvider) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(p.method, claims)
	return t.SignedString(p.secret)
}

func (p *TokenProvider) decode(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	// jwt treats exp == now as still valid; expiry here is strict.
	if !p.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
