package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
	"github.com/vkoshelev/identityd/internal/service"
	"github.com/vkoshelev/identityd/internal/validate"
)

// AuthService defines registration and session lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (model.User, error)
	Login(ctx context.Context, login, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, refreshSecret string) (service.LoginResult, error)
	Logout(ctx context.Context, username, refreshSecret, jtiHint string) error
	ConfirmEmail(ctx context.Context, confirmationToken string) error
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService    AuthService
	emailValidator *validate.EmailValidator
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, emailValidator *validate.EmailValidator, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		emailValidator: emailValidator,
		logger:         logger,
	}
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Enabled     bool   `json:"enabled"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(user model.User) userResponse {
	return userResponse{
		ID:          user.ID.String(),
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Enabled:     user.Enabled,
	}
}

func toSessionResponse(result service.LoginResult) sessionResponse {
	return sessionResponse{
		AccessToken:  result.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		RefreshToken: result.RefreshSecret,
	}
}

// Register creates a disabled account and triggers confirmation mail.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Username) < 3 {
		writeError(w, http.StatusBadRequest, "username must be at least 3 characters")
		return
	}
	if err := h.emailValidator.Validate(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Password(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.logger.Error("Auth handler: registration failed",
			"username", req.Username,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: registration completed",
		"username", req.Username)

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login verifies credentials and returns a fresh session.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: login failed",
			"login", req.Login,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: login completed",
		"login", req.Login)

	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// Refresh exchanges a refresh token for a new session.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Info("Auth handler: token refresh failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: token refresh completed")

	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// Logout revokes the presented refresh token and blacklists its paired
// access token. The jti query parameter is a deprecated hint kept for older
// clients.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	jtiHint := r.URL.Query().Get("jti")

	// the body is optional: a client may only know the jti of its access token
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.Logout(r.Context(), username, req.RefreshToken, jtiHint); err != nil {
		h.logger.Info("Auth handler: logout failed",
			"username", username,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: logout completed",
		"username", username)

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Confirm enables the account behind a confirmation token.
func (h *Auth) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.authService.ConfirmEmail(r.Context(), token); err != nil {
		h.logger.Info("Auth handler: confirmation failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: confirmation completed")

	writeJSON(w, http.StatusOK, messageResponse{Message: "account confirmed"})
}
