package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore is the source of truth for session validity.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (RefreshToken, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) ([]RefreshToken, error)
	// Rotate revokes the current record and persists its successor in one
	// transaction. A record that is already revoked yields ErrTokenRevoked.
	Rotate(ctx context.Context, currentID uuid.UUID, next RefreshToken) error
	Revoke(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken is the persisted record of an issued refresh secret. Only the
// keyed hash of the secret is stored; the raw value exists transiently in
// memory and on the wire.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	JTI       string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Revoked is monotonic: once true it never returns to false.
	Revoked   bool
	RevokedAt *time.Time
	// ReplacedBy holds the successor record's JTI and is set only when the
	// record was revoked by rotation, never by explicit logout.
	ReplacedBy *string
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
