package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

// UserService defines profile lookup operations.
type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// User handles HTTP endpoints for user profiles.
type User struct {
	userService    UserService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(userService UserService, contextManager model.ContextManager, logger *logger.Logger) *User {
	return &User{
		userService:    userService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Me returns the profile of the authenticated user.
func (h *User) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("User handler: profile lookup failed",
			"user_id", userID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
