package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/internal/access"
	products "github.com/angelmondragon/wishlist-backend/internal/products"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/metrics"
	"github.com/angelmondragon/wishlist-backend/pkg/pagination"
)

const (
	opAdd    = "add"
	opRemove = "remove"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type userLoader interface {
	FindByLogin(ctx context.Context, login string) (*models.User, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo     *Repository
	Products productLoader
	Users    userLoader
	URLs     products.URLBuilder
	Metrics  *metrics.WishlistMetrics
	Logger   *logger.Logger
}

// Service exposes wishlist membership operations. Mutations are gated on the
// acting user owning targetLogin; reads are public.
type Service interface {
	AddToWishlist(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error)
	RemoveFromWishlist(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error)
	ListWishlist(ctx context.Context, login string) (*WishlistView, error)
	ListWishlistProducts(ctx context.Context, login, cursor string, limit int) (*WishlistProductsPage, error)
}

type service struct {
	repo     *Repository
	products productLoader
	users    userLoader
	urls     products.URLBuilder
	metrics  *metrics.WishlistMetrics
	logg     *logger.Logger
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product loader is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user loader is required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		users:    params.Users,
		urls:     params.URLs,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) AddToWishlist(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error) {
	outcome, err := s.add(ctx, actor, targetLogin, rawProductID)
	s.record(ctx, opAdd, outcome, err)
	return outcome, err
}

func (s *service) add(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error) {
	if access.Authorize(actor, targetLogin) != access.Allowed {
		return Denied, nil
	}

	productID, ok := parseProductID(rawProductID)
	if !ok {
		return ProductNotFound, nil
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductNotFound, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	inserted, err := s.repo.Insert(ctx, actor.UserID, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	if !inserted {
		return AlreadyPresent, nil
	}
	return Added, nil
}

func (s *service) RemoveFromWishlist(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error) {
	outcome, err := s.remove(ctx, actor, targetLogin, rawProductID)
	s.record(ctx, opRemove, outcome, err)
	return outcome, err
}

func (s *service) remove(ctx context.Context, actor access.Actor, targetLogin, rawProductID string) (Outcome, error) {
	if access.Authorize(actor, targetLogin) != access.Allowed {
		return Denied, nil
	}

	productID, ok := parseProductID(rawProductID)
	if !ok {
		return NotPresent, nil
	}
	// only the actor's own edge is touched; the product row is never deleted
	deleted, err := s.repo.Delete(ctx, actor.UserID, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	if !deleted {
		return NotPresent, nil
	}
	return Removed, nil
}

func (s *service) ListWishlist(ctx context.Context, login string) (*WishlistView, error) {
	view := &WishlistView{Login: login, ProductIDs: []uuid.UUID{}}

	user, err := s.lookupOwner(ctx, login)
	if err != nil || user == nil {
		return view, err
	}
	ids, err := s.repo.ListProductIDs(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	view.Access = user.Access
	if len(ids) > 0 {
		view.ProductIDs = ids
	}
	return view, nil
}

func (s *service) ListWishlistProducts(ctx context.Context, login, cursor string, limit int) (*WishlistProductsPage, error) {
	afterID, err := pagination.ParseSeqCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page := &WishlistProductsPage{Login: login, Products: []products.ProductSummary{}}

	user, err := s.lookupOwner(ctx, login)
	if err != nil || user == nil {
		return page, err
	}

	pageSize := pagination.NormalizeLimit(limit)
	edges, err := s.repo.ListEdges(ctx, user.ID, afterID, pageSize+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist items")
	}
	edges, page.NextCursor = pagination.Trim(edges, pageSize, func(last models.WishlistItem) string {
		return pagination.EncodeSeqCursor(last.ID)
	})

	ids := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ProductID)
	}
	byID, err := s.repo.LoadProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist products")
	}
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			continue
		}
		page.Products = append(page.Products, products.NewProductSummary(&product, s.urls))
	}
	return page, nil
}

// lookupOwner returns nil without error when no user has the login.
func (s *service) lookupOwner(ctx context.Context, login string) (*models.User, error) {
	if strings.TrimSpace(login) == "" {
		return nil, nil
	}
	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist owner")
	}
	return user, nil
}

func (s *service) record(ctx context.Context, op string, outcome Outcome, err error) {
	if err != nil {
		s.metrics.Record(op, "error")
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "op", op), "wishlist.mutation_failed", err)
		}
		return
	}
	s.metrics.Record(op, outcome.String())
}

func parseProductID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
