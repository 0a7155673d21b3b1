package security

import "time"

// testSecret is a 32-byte HMAC key for unit tests only.
const testSecret = "test-secret-0123456789abcdef0123"

// NewTestTokenProvider returns an HS256 TokenProvider with a fixed secret.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider([]byte(testSecret), "HS256", "test-issuer", "test-audience", 15*time.Minute, 24*time.Hour)
}
