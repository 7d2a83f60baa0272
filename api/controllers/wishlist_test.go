package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wishlist-backend/api/middleware"
	"github.com/angelmondragon/wishlist-backend/internal/access"
	"github.com/angelmondragon/wishlist-backend/internal/wishlist"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/types"
)

type stubWishlistService struct {
	outcome wishlist.Outcome
	err     error

	gotActor  access.Actor
	gotLogin  string
	gotID     string
	gotCursor string
	gotLimit  int
}

func (s *stubWishlistService) AddToWishlist(_ context.Context, actor access.Actor, targetLogin, rawProductID string) (wishlist.Outcome, error) {
	s.gotActor, s.gotLogin, s.gotID = actor, targetLogin, rawProductID
	return s.outcome, s.err
}

func (s *stubWishlistService) RemoveFromWishlist(_ context.Context, actor access.Actor, targetLogin, rawProductID string) (wishlist.Outcome, error) {
	s.gotActor, s.gotLogin, s.gotID = actor, targetLogin, rawProductID
	return s.outcome, s.err
}

func (s *stubWishlistService) ListWishlist(_ context.Context, login string) (*wishlist.WishlistView, error) {
	s.gotLogin = login
	if s.err != nil {
		return nil, s.err
	}
	return &wishlist.WishlistView{Login: login, ProductIDs: []uuid.UUID{}}, nil
}

func (s *stubWishlistService) ListWishlistProducts(_ context.Context, login, cursor string, limit int) (*wishlist.WishlistProductsPage, error) {
	s.gotLogin, s.gotCursor, s.gotLimit = login, cursor, limit
	if s.err != nil {
		return nil, s.err
	}
	return &wishlist.WishlistProductsPage{Login: login}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withRouteParams(ctx context.Context, params map[string]string) context.Context {
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) types.OutcomeBody {
	t.Helper()
	var body struct {
		Data types.OutcomeBody `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestWishlistAddMapsOutcomes(t *testing.T) {
	cases := []struct {
		outcome wishlist.Outcome
		status  int
		label   string
	}{
		{wishlist.Added, http.StatusOK, "ADDED TO WISHLIST"},
		{wishlist.AlreadyPresent, http.StatusOK, "ALREADY IN WISHLIST"},
		{wishlist.Denied, http.StatusForbidden, "ACCESS DENIED"},
		{wishlist.ProductNotFound, http.StatusNotFound, "PRODUCT NOT FOUND"},
	}

	actor := access.Actor{UserID: uuid.New(), Login: "alice"}
	productID := uuid.NewString()

	for _, tc := range cases {
		t.Run(tc.outcome.String(), func(t *testing.T) {
			svc := &stubWishlistService{outcome: tc.outcome}
			ctx := middleware.WithActor(context.Background(), actor)
			ctx = withRouteParams(ctx, map[string]string{"login": "alice", "productId": productID})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/wishlist/"+productID, nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			WishlistAdd(svc, testLogger()).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeOutcome(t, rec)
			assert.Equal(t, tc.outcome.String(), body.Outcome)
			assert.Equal(t, tc.label, body.Label)
			assert.Equal(t, actor, svc.gotActor)
			assert.Equal(t, "alice", svc.gotLogin)
			assert.Equal(t, productID, svc.gotID)
		})
	}
}

func TestWishlistRemoveMapsOutcomes(t *testing.T) {
	for outcome, label := range map[wishlist.Outcome]string{
		wishlist.Removed:    "DELETED",
		wishlist.NotPresent: "NOT IN WISHLIST",
	} {
		svc := &stubWishlistService{outcome: outcome}
		ctx := withRouteParams(context.Background(), map[string]string{"login": "bob", "productId": "p"})
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/bob/wishlist/p", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		WishlistRemove(svc, testLogger()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, label, decodeOutcome(t, rec).Label)
		assert.Equal(t, access.Anonymous, svc.gotActor)
	}
}

func TestWishlistRemoveOwnTargetsActorLogin(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Login: "carol"}
	svc := &stubWishlistService{outcome: wishlist.Removed}
	ctx := middleware.WithActor(context.Background(), actor)
	ctx = withRouteParams(ctx, map[string]string{"productId": "abc"})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/wishlist/abc", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	WishlistRemoveOwn(svc, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol", svc.gotLogin)
	assert.Equal(t, "abc", svc.gotID)
}

func TestWishlistStoreFaultIsInternalError(t *testing.T) {
	svc := &stubWishlistService{err: errors.New("connection reset")}
	ctx := withRouteParams(context.Background(), map[string]string{"login": "alice", "productId": "p"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/wishlist/p", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	WishlistAdd(svc, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestWishlistProductsLimitValidation(t *testing.T) {
	t.Run("default limit and cursor passthrough", func(t *testing.T) {
		svc := &stubWishlistService{}
		ctx := withRouteParams(context.Background(), map[string]string{"login": "alice"})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/wishlist/products?cursor=42", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		WishlistProducts(svc, testLogger()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "42", svc.gotCursor)
		assert.Positive(t, svc.gotLimit)
	})

	t.Run("out of range", func(t *testing.T) {
		svc := &stubWishlistService{}
		ctx := withRouteParams(context.Background(), map[string]string{"login": "alice"})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/wishlist/products?limit=0", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		WishlistProducts(svc, testLogger()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.gotLogin)
	})
}
