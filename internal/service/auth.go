package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
	"github.com/vkoshelev/identityd/internal/secret"
	"github.com/vkoshelev/identityd/internal/token"
)

// Config carries token lifetimes and signing material for the auth service.
type Config struct {
	SecretKey           string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	ConfirmationTTL     time.Duration
	ConfirmationBaseURL string
}

type Auth struct {
	users         model.UserStore
	refreshTokens model.RefreshTokenStore
	confirmations model.ConfirmationTokenStore
	revocations   model.RevocationStore
	tokenManager  model.TokenManager
	mail          model.MailSender
	config        Config
	logger        *logger.Logger
}

func NewAuth(
	users model.UserStore,
	refreshTokens model.RefreshTokenStore,
	confirmations model.ConfirmationTokenStore,
	revocations model.RevocationStore,
	tokenManager model.TokenManager,
	mail model.MailSender,
	config Config,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:         users,
		refreshTokens: refreshTokens,
		confirmations: confirmations,
		revocations:   revocations,
		tokenManager:  tokenManager,
		mail:          mail,
		config:        config,
		logger:        logger,
	}
}

// RegisterParams is the registration intake.
type RegisterParams struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// LoginResult is a freshly minted session: a signed access token and the raw
// refresh secret. The secret is never persisted, only its keyed hash.
type LoginResult struct {
	User          model.User
	AccessToken   string
	ExpiresIn     int64
	RefreshSecret string
}

// Register creates a disabled account and dispatches a confirmation mail.
// Mail delivery is best-effort: a dispatch failure does not undo the
// registration.
func (a *Auth) Register(ctx context.Context, params RegisterParams) (model.User, error) {
	a.logger.Debug("Auth service: starting user registration",
		"username", params.Username)

	existing, err := a.users.GetByUsername(ctx, params.Username)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}
	if existing.ID != uuid.Nil {
		a.logger.Info("Auth service: username already taken",
			"username", params.Username)
		return model.User{}, model.ErrDuplicateUsername
	}

	existing, err = a.users.GetByEmail(ctx, params.Email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		a.logger.Info("Auth service: email already registered",
			"username", params.Username)
		return model.User{}, model.ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		DisplayName:  params.DisplayName,
		Enabled:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, err := a.users.Create(ctx, user)
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"username", params.Username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	confirmation := model.ConfirmationToken{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		UserID:    saved.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.config.ConfirmationTTL),
	}
	if err := a.confirmations.Create(ctx, confirmation); err != nil {
		return model.User{}, fmt.Errorf("failed to create confirmation token: %w", err)
	}

	a.sendConfirmationMail(ctx, saved, confirmation.Token)

	a.logger.Info("Auth service: user registered",
		"username", params.Username,
		"user_id", saved.ID)

	return saved, nil
}

func (a *Auth) sendConfirmationMail(ctx context.Context, user model.User, confirmationToken string) {
	link := fmt.Sprintf("%s/api/v1/auth/confirm?token=%s", a.config.ConfirmationBaseURL, confirmationToken)
	body := fmt.Sprintf("Hello %s,\r\n\r\nConfirm your account by visiting the link below:\r\n%s\r\n", user.Username, link)

	if err := a.mail.Send(ctx, user.Email, "Confirm your account", body); err != nil {
		a.logger.Error("Auth service: failed to send confirmation mail",
			"username", user.Username,
			"error", err.Error())
	}
}

// Login verifies credentials and mints a session. The login value matches
// either username or email; unknown user and wrong password are
// indistinguishable to the caller.
func (a *Auth) Login(ctx context.Context, login, password string) (LoginResult, error) {
	a.logger.Debug("Auth service: starting user login",
		"login", login)

	user, err := a.users.GetByUsername(ctx, login)
	if errors.Is(err, model.ErrNotFound) {
		user, err = a.users.GetByEmail(ctx, login)
	}
	if errors.Is(err, model.ErrNotFound) {
		return LoginResult{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, model.ErrInvalidCredentials
	}

	if !user.Enabled {
		return LoginResult{}, model.ErrAccountNotEnabled
	}

	result, err := a.mintSession(ctx, user, nil)
	if err != nil {
		return LoginResult{}, err
	}

	a.logger.Info("Auth service: user logged in",
		"login", login,
		"user_id", user.ID)

	return result, nil
}

// mintSession issues an access token and a refresh record sharing one jti.
// When current is non-nil the new record replaces it through single-use
// rotation; otherwise the record is created standalone.
func (a *Auth) mintSession(ctx context.Context, user model.User, current *model.RefreshToken) (LoginResult, error) {
	refreshSecret, err := secret.Generate()
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	jti := token.NewJTI()
	now := time.Now()
	record := model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		JTI:       jti,
		TokenHash: secret.Hash(refreshSecret, a.config.SecretKey),
		IssuedAt:  now,
		ExpiresAt: now.Add(a.config.RefreshTTL),
		CreatedAt: now,
	}

	if current != nil {
		err = a.refreshTokens.Rotate(ctx, current.ID, record)
	} else {
		err = a.refreshTokens.Create(ctx, record)
	}
	if err != nil {
		if errors.Is(err, model.ErrTokenRevoked) {
			return LoginResult{}, model.ErrTokenRevoked
		}
		return LoginResult{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	accessToken, err := a.tokenManager.Issue(user.ID.String(), jti, a.config.AccessTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	return LoginResult{
		User:          user,
		AccessToken:   accessToken,
		ExpiresIn:     int64(a.config.AccessTTL.Seconds()),
		RefreshSecret: refreshSecret,
	}, nil
}

// Refresh exchanges a refresh secret for a new session. The presented record
// is revoked in the same step; presenting it again yields ErrTokenRevoked.
func (a *Auth) Refresh(ctx context.Context, refreshSecret string) (LoginResult, error) {
	a.logger.Debug("Auth service: refreshing session")

	hash := secret.Hash(refreshSecret, a.config.SecretKey)

	record, err := a.refreshTokens.GetByHash(ctx, hash)
	if errors.Is(err, model.ErrNotFound) {
		return LoginResult{}, model.ErrUnknownToken
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if record.Revoked {
		a.logger.Info("Auth service: revoked refresh token replayed",
			"user_id", record.UserID,
			"jti", record.JTI)
		return LoginResult{}, model.ErrTokenRevoked
	}
	if record.ExpiresAt.Before(time.Now()) {
		return LoginResult{}, model.ErrTokenExpired
	}

	user, err := a.users.GetByID(ctx, record.UserID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to get refresh token owner: %w", err)
	}
	if !user.Enabled {
		return LoginResult{}, model.ErrAccountNotEnabled
	}

	result, err := a.mintSession(ctx, user, &record)
	if err != nil {
		return LoginResult{}, err
	}

	a.logger.Info("Auth service: session refreshed",
		"user_id", user.ID)

	return result, nil
}

// Logout revokes the presented refresh secret, blacklists its paired access
// token jti and blacklists the supplied jtiHint. Unknown and already revoked
// secrets succeed silently; a secret owned by another user is refused without
// side effects.
func (a *Auth) Logout(ctx context.Context, username, refreshSecret, jtiHint string) error {
	a.logger.Debug("Auth service: logging out",
		"username", username)

	hash := secret.Hash(refreshSecret, a.config.SecretKey)

	record, err := a.refreshTokens.GetByHash(ctx, hash)
	switch {
	case errors.Is(err, model.ErrNotFound):
		// unknown secret: nothing to revoke
	case err != nil:
		return fmt.Errorf("failed to get refresh token: %w", err)
	default:
		owner, err := a.users.GetByID(ctx, record.UserID)
		if err != nil {
			return fmt.Errorf("failed to get refresh token owner: %w", err)
		}
		if owner.Username != username {
			a.logger.Info("Auth service: logout with foreign refresh token",
				"username", username,
				"owner_id", record.UserID)
			return model.ErrTokenOwnershipMismatch
		}

		if !record.Revoked {
			if err := a.refreshTokens.Revoke(ctx, record.ID); err != nil {
				return fmt.Errorf("failed to revoke refresh token: %w", err)
			}
		}
		a.revocations.Add(ctx, record.JTI, a.config.AccessTTL)
	}

	// the hinted access token dies regardless of the refresh-token outcome
	if jtiHint != "" {
		a.revocations.Add(ctx, jtiHint, a.config.AccessTTL)
	}

	a.logger.Info("Auth service: user logged out",
		"username", username)

	return nil
}

// ConfirmEmail enables the account behind a confirmation token. Confirming
// an already confirmed token is a no-op.
func (a *Auth) ConfirmEmail(ctx context.Context, confirmationToken string) error {
	a.logger.Debug("Auth service: confirming email")

	ct, err := a.confirmations.GetByToken(ctx, confirmationToken)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrUnknownToken
	}
	if err != nil {
		return fmt.Errorf("failed to get confirmation token: %w", err)
	}

	if ct.ConfirmedAt != nil {
		return nil
	}
	if ct.ExpiresAt.Before(time.Now()) {
		return model.ErrTokenExpired
	}

	err = a.confirmations.SetConfirmedAt(ctx, ct.ID, time.Now())
	if errors.Is(err, model.ErrNotFound) {
		// lost a race with a concurrent confirmation
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set confirmation time: %w", err)
	}

	if err := a.users.SetEnabled(ctx, ct.UserID, true); err != nil {
		return fmt.Errorf("failed to enable user: %w", err)
	}

	a.logger.Info("Auth service: email confirmed",
		"user_id", ct.UserID)

	return nil
}
