package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vkoshelev/identityd/internal/model"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	args := m.Called(ctx, id, enabled)
	return args.Error(0)
}

// MockRefreshTokenStore mocks the RefreshTokenStore interface
type MockRefreshTokenStore struct {
	mock.Mock
}

func (m *MockRefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenStore) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenStore) Rotate(ctx context.Context, currentID uuid.UUID, next model.RefreshToken) error {
	args := m.Called(ctx, currentID, next)
	return args.Error(0)
}

func (m *MockRefreshTokenStore) Revoke(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockConfirmationTokenStore mocks the ConfirmationTokenStore interface
type MockConfirmationTokenStore struct {
	mock.Mock
}

func (m *MockConfirmationTokenStore) Create(ctx context.Context, token model.ConfirmationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockConfirmationTokenStore) GetByToken(ctx context.Context, token string) (model.ConfirmationToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.ConfirmationToken), args.Error(1)
}

func (m *MockConfirmationTokenStore) SetConfirmedAt(ctx context.Context, id uuid.UUID, when time.Time) error {
	args := m.Called(ctx, id, when)
	return args.Error(0)
}

func (m *MockConfirmationTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockRevocationStore mocks the RevocationStore interface
type MockRevocationStore struct {
	mock.Mock
}

func (m *MockRevocationStore) Add(ctx context.Context, jti string, ttl time.Duration) {
	m.Called(ctx, jti, ttl)
}

func (m *MockRevocationStore) Contains(ctx context.Context, jti string) bool {
	args := m.Called(ctx, jti)
	return args.Bool(0)
}

func (m *MockRevocationStore) Remove(ctx context.Context, jti string) {
	m.Called(ctx, jti)
}

// MockTokenManager mocks the TokenManager interface
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) Issue(subject, jti string, ttl time.Duration) (string, error) {
	args := m.Called(subject, jti, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) Verify(token string) (model.AccessClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.AccessClaims), args.Error(1)
}

// MockMailSender mocks the MailSender interface
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}
