package model

import "errors"

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("record not found")

// Business-rule failures surfaced by the auth service. Handlers translate
// these into the external failure representation exactly once; infrastructure
// errors are never folded into them.
var (
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already registered")

	// ErrInvalidCredentials is deliberately identical for unknown user and
	// wrong password, to avoid account enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountNotEnabled  = errors.New("account is not enabled")

	ErrUnknownToken           = errors.New("unknown token")
	ErrTokenRevoked           = errors.New("refresh token revoked")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenOwnershipMismatch = errors.New("token does not belong to the user")

	ErrTokenTampered      = errors.New("access token signature mismatch")
	ErrTokenMalformed     = errors.New("access token malformed")
	ErrAccessTokenExpired = errors.New("access token expired")
)
