package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/internal/access"
	pkgAuth "github.com/angelmondragon/wishlist-backend/pkg/auth"
	"github.com/angelmondragon/wishlist-backend/pkg/auth/session"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// Auth requires a valid bearer token whose session is still open.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearer(cfg, sessions, logg, true)
}

// OptionalAuth admits requests without credentials as anonymous. A token that
// is presented must still verify.
func OptionalAuth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearer(cfg, sessions, logg, false)
}

func bearer(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, present := tokenFrom(r)
			if !present {
				if required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifyAccess(ctx, cfg, sessions, raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			subject := claims.UserID.String()
			ctx = context.WithValue(ctx, ctxUserID, subject)
			ctx = context.WithValue(ctx, ctxSessionID, claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verifyAccess checks the signature and expiry, then that the session named by
// the jti has not been revoked.
func verifyAccess(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, raw string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if sessions == nil {
		return claims, nil
	}
	open, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !open {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// tokenFrom reads "Authorization: Bearer <token>". A bare token is accepted.
func tokenFrom(r *http.Request) (string, bool) {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "bearer") {
		value = strings.TrimSpace(rest)
	}
	return value, value != ""
}

type actorResolver interface {
	Resolve(ctx context.Context, rawUserID string) (access.Actor, error)
}

// ResolveActor loads the current login for the authenticated user id so the
// access gate compares against fresh state. Runs after Auth or OptionalAuth.
func ResolveActor(resolver actorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolver.Resolve(r.Context(), UserIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil && actor.Authenticated() {
				ctx = logg.WithLogin(ctx, actor.Login)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
