package model

import "time"

// TokenManager signs and verifies self-contained access tokens.
type TokenManager interface {
	Issue(subject, jti string, ttl time.Duration) (string, error)
	Verify(token string) (AccessClaims, error)
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Subject   string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
