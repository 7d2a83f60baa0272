package controllers

import (
	"net/http"

	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/internal/users"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// MeProfile returns the signed-in user's profile.
func MeProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := signedIn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Profile(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// MeUpdate replaces the editable profile fields. A login change takes effect
// for the access gate on the next request.
func MeUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return jsonAction(logg, http.StatusOK, func(r *http.Request, in users.UpdateProfileInput) (*users.UserDTO, error) {
		actor, err := signedIn(r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateProfile(r.Context(), actor.UserID, in)
	})
}
