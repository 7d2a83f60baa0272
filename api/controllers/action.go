package controllers

import (
	"net/http"

	"github.com/angelmondragon/wishlist-backend/api/middleware"
	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/api/validators"
	"github.com/angelmondragon/wishlist-backend/internal/access"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// jsonAction decodes and validates a JSON body of type In, runs do, and
// writes its result with status.
func jsonAction[In, Out any](logg *logger.Logger, status int, do func(r *http.Request, in In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := do(r, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// signedIn returns the resolved actor, or an UNAUTHORIZED error for anonymous
// requests on routes that need an account.
func signedIn(r *http.Request) (access.Actor, error) {
	actor := middleware.ActorFromContext(r.Context())
	if !actor.Authenticated() {
		return access.Anonymous, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return actor, nil
}
