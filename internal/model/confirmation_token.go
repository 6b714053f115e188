package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConfirmationTokenStore persists email confirmation tokens.
type ConfirmationTokenStore interface {
	Create(ctx context.Context, token ConfirmationToken) error
	GetByToken(ctx context.Context, token string) (ConfirmationToken, error)
	SetConfirmedAt(ctx context.Context, id uuid.UUID, when time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ConfirmationToken enables an account when presented before its expiry.
// ConfirmedAt is set at most once; re-confirmation is a no-op.
type ConfirmationToken struct {
	ID          uuid.UUID
	Token       string
	UserID      uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConfirmedAt *time.Time
}
