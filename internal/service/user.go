package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

type User struct {
	users  model.UserStore
	logger *logger.Logger
}

func NewUser(users model.UserStore, logger *logger.Logger) *User {
	return &User{
		users:  users,
		logger: logger,
	}
}

// GetByID returns the stored profile of a user.
func (u *User) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := u.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
