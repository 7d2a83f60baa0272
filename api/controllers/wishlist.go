package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/wishlist-backend/api/middleware"
	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/api/validators"
	"github.com/angelmondragon/wishlist-backend/internal/wishlist"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/pagination"
	"github.com/angelmondragon/wishlist-backend/pkg/types"
)

var outcomeStatus = map[wishlist.Outcome]int{
	wishlist.Added:           http.StatusOK,
	wishlist.AlreadyPresent:  http.StatusOK,
	wishlist.Removed:         http.StatusOK,
	wishlist.NotPresent:      http.StatusOK,
	wishlist.Denied:          http.StatusForbidden,
	wishlist.ProductNotFound: http.StatusNotFound,
}

func writeOutcome(w http.ResponseWriter, outcome wishlist.Outcome) {
	status, ok := outcomeStatus[outcome]
	if !ok {
		status = http.StatusInternalServerError
	}
	responses.WriteSuccessStatus(w, status, types.OutcomeBody{Outcome: outcome.String(), Label: outcome.Label()})
}

// WishlistView lists the product ids on a user's wishlist. Public.
func WishlistView(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ListWishlist(r.Context(), chi.URLParam(r, "login"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WishlistProducts pages through the product cards on a user's wishlist. Public.
func WishlistProducts(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListWishlistProducts(r.Context(), chi.URLParam(r, "login"), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// WishlistAdd adds {productId} to the wishlist of {login}.
func WishlistAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := svc.AddToWishlist(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "login"), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}

// WishlistRemove removes {productId} from the wishlist of {login}.
func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := svc.RemoveFromWishlist(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "login"), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}

// WishlistRemoveOwn removes {productId} from the caller's own wishlist.
func WishlistRemoveOwn(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		outcome, err := svc.RemoveFromWishlist(r.Context(), actor, actor.Login, chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, outcome)
	}
}
