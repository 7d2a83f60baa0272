package categories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/slug"
)

const slugConstraint = "categories_slug_key"

var (
	// ErrCategoryNameRequired is returned for an empty or blank name.
	ErrCategoryNameRequired = errors.New("category name is required")
	// ErrCategoryNameUnusable is returned when the name yields an empty slug.
	ErrCategoryNameUnusable = errors.New("category name must contain letters or digits")
	// ErrCategorySlugConflict is returned when a differently named category
	// already holds the slug derived from the requested name.
	ErrCategorySlugConflict = errors.New("a category with a similar name already exists")
)

type categoryStore interface {
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateInSavepoint(ctx context.Context, category *models.Category) error
	List(ctx context.Context) ([]models.Category, error)
}

// Resolver implements get-or-create for categories keyed by exact name.
type Resolver struct {
	store categoryStore
}

func NewResolver(repo *Repository) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category repository is required")
	}
	return &Resolver{store: repo}, nil
}

// WithTx binds the resolver to an outer transaction.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	repo, ok := r.store.(*Repository)
	if !ok {
		return r
	}
	return &Resolver{store: repo.WithTx(tx)}
}

// Resolve returns the category named name, creating it when absent. Two
// concurrent callers with the same name both receive the single stored row.
func (r *Resolver) Resolve(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}

	existing, err := r.store.FindByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}

	category := &models.Category{Name: name, Slug: slug.Make(name)}
	if category.Slug == "" {
		return nil, ErrCategoryNameUnusable
	}

	err = r.store.CreateInSavepoint(ctx, category)
	if err == nil {
		return category, nil
	}
	if !db.IsUniqueViolation(err, slugConstraint) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}

	winner, err := r.store.FindByName(ctx, name)
	if err == nil {
		return winner, nil
	}
	if db.IsNotFound(err) {
		return nil, ErrCategorySlugConflict
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload category")
}

func (r *Resolver) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.store.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

func (r *Resolver) FindBySlug(ctx context.Context, value string) (*models.Category, error) {
	category, err := r.store.FindBySlug(ctx, value)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}
