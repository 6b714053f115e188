package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for user accounts.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// User represents a stored account. Enabled flips false->true exactly once,
// through email confirmation; the token core otherwise treats users as
// read-only.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
