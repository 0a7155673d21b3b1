package domain

import "time"

// TokenTypeBearer is the token_type returned with every token pair.
const TokenTypeBearer = "bearer"

// TokenResult is the outcome of Login and Refresh.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	Roles        []string
	UserID       string
	TenantID     string
	// Tenant is the subdomain of the tenant the tokens are bound to.
	Tenant string
}

// Profile is a user's identity within one tenant, read through their active membership.
type Profile struct {
	UserID       string
	Email        string
	FullName     string
	TenantID     string
	TenantName   string
	MembershipID string
}

// Identity is the current caller as returned by Me.
type Identity struct {
	UserID     string
	Email      string
	FullName   string
	TenantID   string
	TenantName string
	Roles      []string
}

// ResetIssued describes a freshly created password reset token. Token is plaintext and is only
// handed to the delivery channel (and echoed in development).
type ResetIssued struct {
	Token     string
	ExpiresAt time.Time
}
