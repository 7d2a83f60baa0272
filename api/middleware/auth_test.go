package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wishlist-backend/internal/access"
	"github.com/angelmondragon/wishlist-backend/pkg/auth"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", AccessTTL: time.Hour}

type openSessions map[string]bool

func (s openSessions) HasSession(_ context.Context, accessID string) (bool, error) {
	return s[accessID], nil
}

type brokenSessions struct{}

func (brokenSessions) HasSession(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func signedToken(t *testing.T, userID uuid.UUID) (token, jti string) {
	t.Helper()
	jti = session.NewAccessID()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, JTI: jti})
	require.NoError(t, err)
	return token, jti
}

func serveWithAuth(mw func(http.Handler) http.Handler, authorization string, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func TestAuthStatusCodes(t *testing.T) {
	userID := uuid.New()
	token, jti := signedToken(t, userID)

	cases := []struct {
		name          string
		sessions      session.AccessSessionChecker
		authorization string
		want          int
	}{
		{"missing", openSessions{jti: true}, "", http.StatusUnauthorized},
		{"garbage", openSessions{jti: true}, "Bearer invalid", http.StatusUnauthorized},
		{"revoked", openSessions{}, "Bearer " + token, http.StatusUnauthorized},
		{"store down", brokenSessions{}, "Bearer " + token, http.StatusServiceUnavailable},
		{"valid", openSessions{jti: true}, "Bearer " + token, http.StatusOK},
		{"lowercase scheme", openSessions{jti: true}, "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveWithAuth(Auth(testJWT, tc.sessions, nil), tc.authorization, okHandler())
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthSeedsContext(t *testing.T) {
	userID := uuid.New()
	token, jti := signedToken(t, userID)

	var gotUser, gotSession string
	rec := serveWithAuth(Auth(testJWT, openSessions{jti: true}, nil), "Bearer "+token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), gotUser)
	assert.Equal(t, jti, gotSession)
}

func TestOptionalAuth(t *testing.T) {
	var user string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
	})
	mw := OptionalAuth(testJWT, openSessions{}, nil)

	rec := serveWithAuth(mw, "", capture)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, user)

	rec = serveWithAuth(mw, "Bearer invalid", capture)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubActorResolver struct {
	actors map[string]access.Actor
	err    error
}

func (s stubActorResolver) Resolve(_ context.Context, raw string) (access.Actor, error) {
	if s.err != nil {
		return access.Anonymous, s.err
	}
	if actor, ok := s.actors[raw]; ok {
		return actor, nil
	}
	return access.Anonymous, nil
}

func TestResolveActor(t *testing.T) {
	userID := uuid.New()
	resolver := stubActorResolver{actors: map[string]access.Actor{
		userID.String(): {UserID: userID, Login: "alice"},
	}}

	var got access.Actor
	handler := ResolveActor(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithUserID(req.Context(), userID.String())))
	assert.Equal(t, "alice", got.Login)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, got.Authenticated())
}

func TestResolveActorStoreFailure(t *testing.T) {
	handler := ResolveActor(stubActorResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
