package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return jsonAction(logg, http.StatusOK, func(r *http.Request, in auth.LoginRequest) (*auth.TokenResponse, error) {
		return svc.Login(r.Context(), in)
	})
}

// AuthRegister creates the account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return jsonAction(logg, http.StatusCreated, func(r *http.Request, in auth.RegisterRequest) (*auth.TokenResponse, error) {
		return svc.Register(r.Context(), in)
	})
}

// AuthRefresh rotates the session. The bearer access token may be expired but
// its signature must verify.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return jsonAction(logg, http.StatusOK, func(r *http.Request, in auth.RefreshRequest) (*auth.TokenResponse, error) {
		token, err := presentedToken(r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), token, in.RefreshToken)
	})
}

// AuthLogout ends the session named by the bearer token's jti.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := presentedToken(r)
		if err == nil {
			err = svc.Logout(r.Context(), token)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

func presentedToken(r *http.Request) (string, error) {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "bearer") {
		value = strings.TrimSpace(rest)
	}
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return value, nil
}
