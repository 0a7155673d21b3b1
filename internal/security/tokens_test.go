package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenProvider_IssueAccessAndDecode(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, exp, err := p.IssueAccess("u1", "t1", []string{"admin_tenant", "manager"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if !exp.After(time.Now()) {
		t.Fatal("expires at in the past")
	}
	claims, err := p.DecodeAccess(access)
	if err != nil {
		t.Fatalf("DecodeAccess: %v", err)
	}
	if claims.UserID() != "u1" || claims.TenantID != "t1" {
		t.Errorf("DecodeAccess: got sub=%q tid=%q", claims.UserID(), claims.TenantID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin_tenant" || claims.Roles[1] != "manager" {
		t.Errorf("DecodeAccess roles = %v", claims.Roles)
	}
	if claims.JTI() != "" {
		t.Errorf("access token must not carry jti, got %q", claims.JTI())
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("iss = %q", claims.Issuer)
	}
}

func TestTokenProvider_IssueRefreshAndDecode(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	refresh, jti, exp, err := p.IssueRefresh("u1", "t1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh == "" || jti == "" {
		t.Fatal("refresh token or jti empty")
	}
	claims, err := p.DecodeRefresh(refresh)
	if err != nil {
		t.Fatalf("DecodeRefresh: %v", err)
	}
	if claims.JTI() != jti || claims.UserID() != "u1" || claims.TenantID != "t1" {
		t.Errorf("DecodeRefresh: got jti=%q sub=%q tid=%q", claims.JTI(), claims.UserID(), claims.TenantID)
	}
	if !claims.Expiry().Equal(exp.Truncate(time.Second)) {
		t.Errorf("Expiry = %v, want %v", claims.Expiry(), exp.Truncate(time.Second))
	}
}

func TestTokenProvider_JTIsAreUnique(t *testing.T) {
	p, _ := NewTestTokenProvider()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		_, jti, _, err := p.IssueRefresh("u1", "t1")
		if err != nil {
			t.Fatalf("IssueRefresh: %v", err)
		}
		if seen[jti] {
			t.Fatalf("duplicate jti %q", jti)
		}
		seen[jti] = true
	}
}

func TestTokenProvider_ClassMismatch(t *testing.T) {
	p, _ := NewTestTokenProvider()
	access, _, _ := p.IssueAccess("u1", "t1", []string{"operator"})
	refresh, _, _, _ := p.IssueRefresh("u1", "t1")

	if _, err := p.DecodeRefresh(access); err != ErrInvalidToken {
		t.Errorf("DecodeRefresh(access): want ErrInvalidToken, got %v", err)
	}
	if _, err := p.DecodeAccess(refresh); err != ErrInvalidToken {
		t.Errorf("DecodeAccess(refresh): want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_DecodeInvalid(t *testing.T) {
	p, _ := NewTestTokenProvider()
	good, _, _ := p.IssueAccess("u1", "t1", nil)

	other, err := NewTokenProvider([]byte("another-secret-0123456789abcdef0"), "HS256", "test-issuer", "test-audience", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	foreign, _, _ := other.IssueAccess("u1", "t1", nil)

	wrongIss, _ := NewTokenProvider([]byte(testSecret), "HS256", "someone-else", "test-audience", time.Minute, time.Hour)
	badIss, _, _ := wrongIss.IssueAccess("u1", "t1", nil)

	wrongAud, _ := NewTokenProvider([]byte(testSecret), "HS256", "test-issuer", "other-api", time.Minute, time.Hour)
	badAud, _, _ := wrongAud.IssueAccess("u1", "t1", nil)

	hs512, _ := NewTokenProvider([]byte(testSecret), "HS512", "test-issuer", "test-audience", time.Minute, time.Hour)
	badAlg, _, _ := hs512.IssueAccess("u1", "t1", nil)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "t1",
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none): %v", err)
	}

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "invalid-token"},
		{"wrong secret", foreign},
		{"wrong issuer", badIss},
		{"wrong audience", badAud},
		{"wrong algorithm", badAlg},
		{"tampered payload", tampered},
		{"alg none", unsigned},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.DecodeAccess(tc.token); err != ErrInvalidToken {
				t.Errorf("DecodeAccess: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenProvider_MissingTenantOrSubject(t *testing.T) {
	p, _ := NewTestTokenProvider()
	noTenant, _, _ := p.IssueAccess("u1", "", nil)
	if _, err := p.DecodeAccess(noTenant); err != ErrInvalidToken {
		t.Errorf("token without tid: want ErrInvalidToken, got %v", err)
	}
	noSubject, _, _ := p.IssueAccess("", "t1", nil)
	if _, err := p.DecodeAccess(noSubject); err != ErrInvalidToken {
		t.Errorf("token without sub: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ExpiryBoundary(t *testing.T) {
	base, _ := NewTestTokenProvider()
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := base.WithClock(fixedClock(issuedAt))
	refresh, _, exp, err := p.IssueRefresh("u1", "t1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := base.WithClock(fixedClock(exp.Add(-time.Second))).DecodeRefresh(refresh); err != nil {
		t.Errorf("one second before expiry: %v", err)
	}
	if _, err := base.WithClock(fixedClock(exp)).DecodeRefresh(refresh); err != ErrInvalidToken {
		t.Errorf("at expiry: want ErrInvalidToken, got %v", err)
	}
	if _, err := base.WithClock(fixedClock(exp.Add(time.Second))).DecodeRefresh(refresh); err != ErrInvalidToken {
		t.Errorf("after expiry: want ErrInvalidToken, got %v", err)
	}
}

func TestNewTokenProvider_Validation(t *testing.T) {
	if _, err := NewTokenProvider(nil, "HS256", "i", "a", time.Minute, time.Hour); err != ErrInvalidSecret {
		t.Errorf("empty secret: want ErrInvalidSecret, got %v", err)
	}
	if _, err := NewTokenProvider([]byte(testSecret), "RS256", "i", "a", time.Minute, time.Hour); err == nil {
		t.Error("RS256 should be rejected")
	}
	p, err := NewTokenProvider([]byte(testSecret), "", "i", "a", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("default algorithm: %v", err)
	}
	if p.AccessTTL() != time.Minute || p.RefreshTTL() != time.Hour {
		t.Errorf("TTLs = %v/%v", p.AccessTTL(), p.RefreshTTL())
	}
}
