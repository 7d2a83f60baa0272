package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/pagination"
)

// DefaultRecommendations is how many products the profile sidebar shows.
const DefaultRecommendations = 3

// Catalog exposes the read side of the product catalog.
type Catalog interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDetailDTO, error)
	ListSizes(ctx context.Context) ([]SizeDTO, error)
	RecommendedProducts(ctx context.Context, n int) ([]ProductSummary, error)
}

type categoryFinder interface {
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
}

type catalog struct {
	repo       *Repository
	categories categoryFinder
	urls       URLBuilder
}

// NewCatalog constructs the catalog read service.
func NewCatalog(repo *Repository, categories categoryFinder, urls URLBuilder) (Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category finder required")
	}
	return &catalog{repo: repo, categories: categories, urls: urls}, nil
}

func (c *catalog) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	query := productListQuery{
		Query:   input.Query,
		Filters: input.Filters,
		Cursor:  strings.TrimSpace(input.Cursor),
		Limit:   input.Limit,
	}
	if query.Cursor != "" {
		if _, err := pagination.ParseCursor(query.Cursor); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
	}

	if slug := strings.TrimSpace(input.CategorySlug); slug != "" {
		category, err := c.categories.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		query.CategoryID = &category.ID
	}

	rows, next, err := c.repo.ListProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ProductListResult{
		Products:   make([]ProductSummary, 0, len(rows)),
		NextCursor: next,
	}
	for i := range rows {
		result.Products = append(result.Products, NewProductSummary(&rows[i], c.urls))
	}
	return result, nil
}

func (c *catalog) GetProductBySlug(ctx context.Context, slug string) (*ProductDetailDTO, error) {
	product, err := c.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDetailDTO(product, c.urls), nil
}

func (c *catalog) ListSizes(ctx context.Context) ([]SizeDTO, error) {
	rows, err := c.repo.ListSizes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sizes")
	}
	sizes := make([]SizeDTO, 0, len(rows))
	for _, row := range rows {
		sizes = append(sizes, SizeDTO{ID: row.ID, Name: row.Name})
	}
	return sizes, nil
}

// RecommendedProducts returns the first n products by creation time.
func (c *catalog) RecommendedProducts(ctx context.Context, n int) ([]ProductSummary, error) {
	if n <= 0 {
		n = DefaultRecommendations
	}
	rows, err := c.repo.Recommended(ctx, pagination.NormalizeLimit(n))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recommended products")
	}
	out := make([]ProductSummary, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductSummary(&rows[i], c.urls))
	}
	return out, nil
}
