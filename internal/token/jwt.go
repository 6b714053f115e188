package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vkoshelev/identityd/internal/model"
)

// JWT implements model.TokenManager backed by symmetric HMAC (HS256).
type JWT struct {
	secretKey string
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string) model.TokenManager {
	return &JWT{secretKey: secretKey}
}

// NewJTI returns a unique token identifier. Two issuances never share one,
// which is what makes per-token revocation possible.
func NewJTI() string {
	return uuid.NewString()
}

// Issue creates a signed access token binding subject and jti with
// issued-at now and expiry now+ttl. Pure function of inputs and clock.
func (j *JWT) Issue(subject, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// Verify parses and validates an access token. Signature comparison happens
// inside jwt/v5 in constant time; expiry is checked as part of verification,
// not left to the caller.
func (j *JWT) Verify(tokenString string) (model.AccessClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return model.AccessClaims{}, model.ErrTokenTampered
		case errors.Is(err, jwt.ErrTokenExpired):
			return model.AccessClaims{}, model.ErrAccessTokenExpired
		default:
			return model.AccessClaims{}, model.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return model.AccessClaims{}, model.ErrTokenMalformed
	}

	out := model.AccessClaims{
		Subject: claims.Subject,
		JTI:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
