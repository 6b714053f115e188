package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoshelev/identityd/internal/model"
	"github.com/vkoshelev/identityd/internal/testutil"
	"github.com/vkoshelev/identityd/internal/token"
)

// In-memory stores backing the lifecycle tests. They honor the same
// contracts as the postgres repositories, including the single-use
// rotation guard.

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]model.User)}
}

func (s *memUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return user, nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memUserStore) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.Enabled = enabled
	s.users[id] = u
	return nil
}

type memRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.RefreshToken
}

func newMemRefreshTokenStore() *memRefreshTokenStore {
	return &memRefreshTokenStore{tokens: make(map[uuid.UUID]model.RefreshToken)}
}

func (s *memRefreshTokenStore) Create(_ context.Context, t model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = t
	return nil
}

func (s *memRefreshTokenStore) GetByHash(_ context.Context, hash string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return model.RefreshToken{}, model.ErrNotFound
}

func (s *memRefreshTokenStore) GetActiveByUser(_ context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID && !t.Revoked && t.ExpiresAt.After(time.Now()) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memRefreshTokenStore) Rotate(_ context.Context, currentID uuid.UUID, next model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[currentID]
	if !ok || current.Revoked {
		return model.ErrTokenRevoked
	}
	now := time.Now()
	current.Revoked = true
	current.RevokedAt = &now
	current.LastUsedAt = &now
	current.ReplacedBy = &next.JTI
	s.tokens[currentID] = current
	s.tokens[next.ID] = next
	return nil
}

func (s *memRefreshTokenStore) Revoke(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.Revoked {
		return nil
	}
	now := time.Now()
	t.Revoked = true
	t.RevokedAt = &now
	s.tokens[id] = t
	return nil
}

func (s *memRefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

type memConfirmationTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.ConfirmationToken
}

func newMemConfirmationTokenStore() *memConfirmationTokenStore {
	return &memConfirmationTokenStore{tokens: make(map[uuid.UUID]model.ConfirmationToken)}
}

func (s *memConfirmationTokenStore) Create(_ context.Context, t model.ConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = t
	return nil
}

func (s *memConfirmationTokenStore) GetByToken(_ context.Context, tok string) (model.ConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == tok {
			return t, nil
		}
	}
	return model.ConfirmationToken{}, model.ErrNotFound
}

func (s *memConfirmationTokenStore) SetConfirmedAt(_ context.Context, id uuid.UUID, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.ConfirmedAt != nil {
		return model.ErrNotFound
	}
	t.ConfirmedAt = &when
	s.tokens[id] = t
	return nil
}

func (s *memConfirmationTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.ExpiresAt.Before(now) && t.ConfirmedAt == nil {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

type memRevocationStore struct {
	mu   sync.Mutex
	jtis map[string]struct{}
}

func newMemRevocationStore() *memRevocationStore {
	return &memRevocationStore{jtis: make(map[string]struct{})}
}

func (s *memRevocationStore) Add(_ context.Context, jti string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jtis[jti] = struct{}{}
}

func (s *memRevocationStore) Contains(_ context.Context, jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jtis[jti]
	return ok
}

func (s *memRevocationStore) Remove(_ context.Context, jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jtis, jti)
}

type memMailSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *memMailSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	return nil
}

type lifecycleEnv struct {
	auth          *Auth
	users         *memUserStore
	refreshTokens *memRefreshTokenStore
	confirmations *memConfirmationTokenStore
	revocations   *memRevocationStore
	mail          *memMailSender
	tokenManager  model.TokenManager
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	env := &lifecycleEnv{
		users:         newMemUserStore(),
		refreshTokens: newMemRefreshTokenStore(),
		confirmations: newMemConfirmationTokenStore(),
		revocations:   newMemRevocationStore(),
		mail:          &memMailSender{},
		tokenManager:  token.NewJWT("signing-key"),
	}
	env.auth = NewAuth(
		env.users, env.refreshTokens, env.confirmations, env.revocations,
		env.tokenManager, env.mail, testConfig(), testutil.MakeNoopLogger(),
	)
	return env
}

func (e *lifecycleEnv) registerAndConfirm(t *testing.T, ctx context.Context, username, password string) model.User {
	t.Helper()
	user, err := e.auth.Register(ctx, RegisterParams{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)

	require.Len(t, e.mail.sent, 1)
	body := e.mail.sent[0]
	e.mail.sent = nil
	i := strings.Index(body, "token=")
	require.Greater(t, i, 0)
	confirmToken := strings.TrimSpace(body[i+len("token="):])

	require.NoError(t, e.auth.ConfirmEmail(ctx, confirmToken))
	return user
}

func TestLifecycle_RegisterConfirmLogin(t *testing.T) {
	ctx := context.Background()
	env := newLifecycleEnv(t)

	user, err := env.auth.Register(ctx, RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ngPass!",
	})
	require.NoError(t, err)
	assert.False(t, user.Enabled)

	// login before confirmation is refused
	_, err = env.auth.Login(ctx, "alice", "Str0ngPass!")
	require.ErrorIs(t, err, model.ErrAccountNotEnabled)

	require.Len(t, env.mail.sent, 1)
	i := strings.Index(env.mail.sent[0], "token=")
	confirmToken := strings.TrimSpace(env.mail.sent[0][i+len("token="):])
	require.NoError(t, env.auth.ConfirmEmail(ctx, confirmToken))

	// confirmation is idempotent
	require.NoError(t, env.auth.ConfirmEmail(ctx, confirmToken))

	result, err := env.auth.Login(ctx, "alice", "Str0ngPass!")
	require.NoError(t, err)

	claims, err := env.tokenManager.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.False(t, env.revocations.Contains(ctx, claims.JTI))
}

func TestLifecycle_RefreshRotationDetectsReplay(t *testing.T) {
	ctx := context.Background()
	env := newLifecycleEnv(t)
	env.registerAndConfirm(t, ctx, "bob", "Str0ngPass!")

	session, err := env.auth.Login(ctx, "bob", "Str0ngPass!")
	require.NoError(t, err)
	firstClaims, err := env.tokenManager.Verify(session.AccessToken)
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, session.RefreshSecret)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshSecret, refreshed.RefreshSecret)
	assert.NotEqual(t, session.AccessToken, refreshed.AccessToken)

	// rotation leaves the superseded access token to expire naturally;
	// only logout writes revocation entries
	assert.False(t, env.revocations.Contains(ctx, firstClaims.JTI))

	// replaying the consumed secret is detected, not treated as unknown
	_, err = env.auth.Refresh(ctx, session.RefreshSecret)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	// the successor keeps working
	_, err = env.auth.Refresh(ctx, refreshed.RefreshSecret)
	require.NoError(t, err)
}

func TestLifecycle_LogoutBlacklistsAccessToken(t *testing.T) {
	ctx := context.Background()
	env := newLifecycleEnv(t)
	env.registerAndConfirm(t, ctx, "carol", "Str0ngPass!")

	session, err := env.auth.Login(ctx, "carol", "Str0ngPass!")
	require.NoError(t, err)
	claims, err := env.tokenManager.Verify(session.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, "carol", session.RefreshSecret, ""))

	assert.True(t, env.revocations.Contains(ctx, claims.JTI))

	// the refresh secret is dead
	_, err = env.auth.Refresh(ctx, session.RefreshSecret)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	// repeated logout stays silent
	require.NoError(t, env.auth.Logout(ctx, "carol", session.RefreshSecret, ""))
}

func TestLifecycle_LogoutBlacklistsSuppliedJTI(t *testing.T) {
	ctx := context.Background()
	env := newLifecycleEnv(t)
	env.registerAndConfirm(t, ctx, "erin", "Str0ngPass!")

	sessionA, err := env.auth.Login(ctx, "erin", "Str0ngPass!")
	require.NoError(t, err)
	sessionB, err := env.auth.Login(ctx, "erin", "Str0ngPass!")
	require.NoError(t, err)

	claimsA, err := env.tokenManager.Verify(sessionA.AccessToken)
	require.NoError(t, err)
	claimsB, err := env.tokenManager.Verify(sessionB.AccessToken)
	require.NoError(t, err)

	// logging out session A while naming session B's access token kills both
	require.NoError(t, env.auth.Logout(ctx, "erin", sessionA.RefreshSecret, claimsB.JTI))

	assert.True(t, env.revocations.Contains(ctx, claimsA.JTI))
	assert.True(t, env.revocations.Contains(ctx, claimsB.JTI))

	// session B's refresh secret itself is untouched
	_, err = env.auth.Refresh(ctx, sessionB.RefreshSecret)
	require.NoError(t, err)
}

func TestLifecycle_ConcurrentRefreshSingleWinner(t *testing.T) {
	ctx := context.Background()
	env := newLifecycleEnv(t)
	env.registerAndConfirm(t, ctx, "dave", "Str0ngPass!")

	session, err := env.auth.Login(ctx, "dave", "Str0ngPass!")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.auth.Refresh(ctx, session.RefreshSecret)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, model.ErrTokenRevoked)
		}
	}
	assert.Equal(t, 1, wins)
}
