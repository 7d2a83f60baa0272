package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/internal/users"
	pkgAuth "github.com/angelmondragon/wishlist-backend/pkg/auth"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:    "secret",
	Issuer:    "wishlist",
	AccessTTL: 30 * time.Minute,
}

type storedSession struct {
	userID uuid.UUID
	token  string
}

type stubSessions struct {
	sessions map[string]storedSession
	revoked  []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]storedSession{}}
}

func (s *stubSessions) Generate(_ context.Context, userID uuid.UUID, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = storedSession{userID: userID, token: token}
	return token, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID, provided string) (uuid.UUID, string, string, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored.token != provided {
		return uuid.Nil, "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	next := session.NewAccessID()
	token := "refresh-" + next
	s.sessions[next] = storedSession{userID: stored.userID, token: token}
	return stored.userID, next, token, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubWelcome struct {
	emails []string
	err    error
}

func (s *stubWelcome) EnqueueWelcomeEmail(_ context.Context, _ *gorm.DB, _ uuid.UUID, email, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	return nil
}

type testHarness struct {
	svc      Service
	repo     *users.Repository
	sessions *stubSessions
	welcome  *stubWelcome
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	conn := dbtest.Open(t)
	repo := users.NewRepository(conn)
	sessions := newStubSessions()
	welcome := &stubWelcome{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		DB:             db.FromConn(conn),
		Notifier:       welcome,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return &testHarness{svc: svc, repo: repo, sessions: sessions, welcome: welcome}
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:           "  Alice@Example.com ",
		Login:           "alice",
		FirstName:       "Alice",
		LastName:        "Liddell",
		Password:        "looking-glass",
		PasswordConfirm: "looking-glass",
	}
}

func TestRegisterCreatesUserAndSignsIn(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "alice", resp.User.Login)
	assert.Equal(t, []string{"alice@example.com"}, h.welcome.emails)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)
}

func TestRegisterCollectsFieldErrors(t *testing.T) {
	h := newHarness(t)
	req := validRegistration()
	req.Login = " "
	req.Password = "1234"
	req.PasswordConfirm = "4321"

	_, err := h.svc.Register(context.Background(), req)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "login")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "password_confirm")
}

func TestRegisterRejectsTakenEmailAndLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = h.svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, map[string]string{
		"email": "email already registered",
		"login": "login already taken",
	}, typed.Details())
	assert.Len(t, h.welcome.emails, 1)
}

func TestRegisterRollsBackWhenWelcomeFails(t *testing.T) {
	h := newHarness(t)
	h.welcome.err = assert.AnError

	_, err := h.svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = h.repo.FindByLogin(context.Background(), "alice")
	assert.True(t, db.IsNotFound(err), "user insert must roll back with the outbox write")
}

func mustSeedUser(t *testing.T, h *testHarness, email, password string) uuid.UUID {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user, err := h.repo.Create(context.Background(), users.CreateUserDTO{
		Email:        email,
		Login:        "seeded",
		PasswordHash: hash,
		FirstName:    "Seed",
		LastName:     "User",
	})
	require.NoError(t, err)
	return user.ID
}

func TestLoginIssuesTokens(t *testing.T) {
	h := newHarness(t)
	userID := mustSeedUser(t, h, "seed@example.com", "correct-horse")

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: "SEED@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Contains(t, h.sessions.sessions, claims.ID)
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	h := newHarness(t)
	stale, err := security.HashPassword("correct-horse", config.PasswordConfig{ArgonTime: 2})
	require.NoError(t, err)
	user, err := h.repo.Create(context.Background(), users.CreateUserDTO{
		Email:        "old@example.com",
		Login:        "oldtimer",
		PasswordHash: stale,
		FirstName:    "Old",
		LastName:     "Hash",
	})
	require.NoError(t, err)

	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "old@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	stored, err := h.repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, stale, stored.PasswordHash)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, config.PasswordConfig{}))
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	mustSeedUser(t, h, "seed@example.com", "correct-horse")

	cases := []LoginRequest{
		{Email: "seed@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: "", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := h.svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "email=%q", req.Email)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	h := newHarness(t)
	mustSeedUser(t, h, "seed@example.com", "correct-horse")
	first, err := h.svc.Login(context.Background(), LoginRequest{Email: "seed@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	second, err := h.svc.Refresh(context.Background(), first.AccessToken, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = h.svc.Refresh(context.Background(), first.AccessToken, first.RefreshToken)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	h := newHarness(t)
	userID := mustSeedUser(t, h, "seed@example.com", "correct-horse")

	accessID := session.NewAccessID()
	refresh, err := h.sessions.Generate(context.Background(), userID, accessID)
	require.NoError(t, err)
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{UserID: userID, JTI: accessID})
	require.NoError(t, err)

	resp, err := h.svc.Refresh(context.Background(), expired, refresh)
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newHarness(t)
	mustSeedUser(t, h, "seed@example.com", "correct-horse")
	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: "seed@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(context.Background(), resp.AccessToken))
	assert.Empty(t, h.sessions.sessions)

	err = h.svc.Logout(context.Background(), "not-a-token")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
