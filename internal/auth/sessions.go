package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/wishlist-backend/internal/users"
	pkgAuth "github.com/angelmondragon/wishlist-backend/pkg/auth"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/security"
)

// denied is the single answer for unknown email, wrong password and
// deactivated account, so callers cannot probe which one applied.
func denied() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.checkPassword(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	at := s.clock()
	if err := s.accounts.RecordLogin(ctx, user.ID, at, s.upgradedHash(user.PasswordHash, req.Password)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}
	user.LastLoginAt = &at

	return s.issue(ctx, user, at)
}

// upgradedHash re-derives the stored hash when the configured Argon2 cost has
// changed. An empty result keeps the current hash.
func (s *service) upgradedHash(stored, password string) string {
	if !security.NeedsRehash(stored, s.hashing) {
		return ""
	}
	fresh, err := security.HashPassword(password, s.hashing)
	if err != nil {
		return ""
	}
	return fresh
}

// Refresh trades a refresh token for a new pair. The access token may be
// expired; only its jti and subject are used.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return nil, err
	}

	owner, nextID, nextRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	switch {
	case errors.Is(err, session.ErrInvalidRefreshToken):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.stillActive(ctx, owner, claims)
	if err != nil {
		_ = s.sessions.Revoke(ctx, nextID)
		return nil, err
	}

	token, err := pkgAuth.MintAccessToken(s.tokens, s.clock(), pkgAuth.AccessTokenPayload{UserID: user.ID, JTI: nextID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign access token")
	}
	return &TokenResponse{AccessToken: token, RefreshToken: nextRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) sessionClaims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.tokens, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// stillActive confirms the rotated session belongs to the token's subject and
// that the account can still sign in.
func (s *service) stillActive(ctx context.Context, owner uuid.UUID, claims *pkgAuth.AccessTokenClaims) (*models.User, error) {
	if owner != claims.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	user, err := s.accounts.FindByID(ctx, owner)
	switch {
	case db.IsNotFound(err):
		return nil, denied()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	case !user.IsActive:
		return nil, denied()
	}
	return user, nil
}

func (s *service) checkPassword(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, denied()
	}
	user, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case db.IsNotFound(err):
		return nil, denied()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive {
		return nil, denied()
	}
	return user, nil
}

// issue opens a session and returns the access token bound to it.
func (s *service) issue(ctx context.Context, user *models.User, at time.Time) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(s.tokens, at, pkgAuth.AccessTokenPayload{UserID: user.ID, JTI: accessID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign access token")
	}
	refresh, err := s.sessions.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{AccessToken: token, RefreshToken: refresh, User: users.FromModel(user)}, nil
}
