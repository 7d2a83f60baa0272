package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/internal/access"
	"github.com/angelmondragon/wishlist-backend/internal/categories"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/metrics"
)

const (
	mainImagePrefix  = "products/main/"
	extraImagePrefix = "products/extra/"

	duplicateNameMessage = "a product with this name already exists"
)

// SubmitOutcome is the closed result set of a contribution.
type SubmitOutcome int

const (
	Created SubmitOutcome = iota + 1
	ValidationFailed
)

func (o SubmitOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// SubmitProductInput is the raw contribution form.
type SubmitProductInput struct {
	Name        string
	Color       string
	Price       string
	Description *string
	URL         *string
	Category    string
	MainImage   *Upload
	ExtraImage  *Upload
}

// SubmitResult carries ProductID and Slug when Created, Errors when ValidationFailed.
type SubmitResult struct {
	Outcome   SubmitOutcome
	ProductID uuid.UUID
	Slug      string
	Errors    FieldErrors
}

// Contributions accepts user-submitted products.
type Contributions interface {
	SubmitProduct(ctx context.Context, actor access.Actor, input SubmitProductInput) (*SubmitResult, error)
}

// ObjectStore holds uploaded images.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type wishlistLinker interface {
	LinkInTx(ctx context.Context, tx *gorm.DB, userID, productID uuid.UUID) error
}

type contributionNotifier interface {
	EnqueueProductContributed(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, login string, productID uuid.UUID, slug string) error
}

// ContributionParams groups the dependencies of the contribution service.
type ContributionParams struct {
	Repo           *Repository
	Categories     *categories.Resolver
	Wishlist       wishlistLinker
	Notifier       contributionNotifier
	DB             txRunner
	Store          ObjectStore
	MaxUploadBytes int64
	Metrics        *metrics.SubmissionMetrics
	Logger         *logger.Logger
}

type contributions struct {
	repo       *Repository
	categories *categories.Resolver
	wishlist   wishlistLinker
	notifier   contributionNotifier
	db         txRunner
	store      ObjectStore
	maxUpload  int64
	metrics    *metrics.SubmissionMetrics
	logg       *logger.Logger
}

func NewContributions(params ContributionParams) (Contributions, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Categories == nil:
		return nil, fmt.Errorf("category resolver required")
	case params.Wishlist == nil:
		return nil, fmt.Errorf("wishlist linker required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Store == nil:
		return nil, fmt.Errorf("object store required")
	}
	return &contributions{
		repo:       params.Repo,
		categories: params.Categories,
		wishlist:   params.Wishlist,
		notifier:   params.Notifier,
		db:         params.DB,
		store:      params.Store,
		maxUpload:  params.MaxUploadBytes,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// fieldRejection aborts the transaction with a form error.
type fieldRejection struct {
	field, message string
}

func (f *fieldRejection) Error() string {
	return f.field + ": " + f.message
}

// SubmitProduct validates the form, stores the images and then, in one
// transaction, resolves the category, inserts the product and its gallery
// image and adds it to the contributor's wishlist. Uploaded objects are
// removed again when anything after the upload fails.
func (c *contributions) SubmitProduct(ctx context.Context, actor access.Actor, input SubmitProductInput) (*SubmitResult, error) {
	if !actor.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	form, errs := validateSubmission(input, c.maxUpload)
	if len(errs) > 0 {
		return c.rejected(errs), nil
	}

	var uploaded []string
	mainKey := mainImagePrefix + uuid.NewString() + form.mainImage.extension
	if err := c.store.Upload(ctx, mainKey, form.mainImage.contentType, form.mainImage.data); err != nil {
		c.metrics.Record("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload main image")
	}
	uploaded = append(uploaded, mainKey)

	var extraKey string
	if form.extraImage != nil {
		extraKey = extraImagePrefix + uuid.NewString() + form.extraImage.extension
		if err := c.store.Upload(ctx, extraKey, form.extraImage.contentType, form.extraImage.data); err != nil {
			c.cleanup(ctx, uploaded)
			c.metrics.Record("error")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload extra image")
		}
		uploaded = append(uploaded, extraKey)
	}

	product := &models.Product{
		Name:        form.name,
		Slug:        form.slug,
		Color:       form.color,
		Price:       form.price,
		Description: form.description,
		MainImage:   mainKey,
		URL:         form.url,
	}

	err := c.db.WithTx(ctx, func(tx *gorm.DB) error {
		category, err := c.categories.WithTx(tx).Resolve(ctx, form.category)
		if err != nil {
			if errors.Is(err, categories.ErrCategoryNameRequired) ||
				errors.Is(err, categories.ErrCategoryNameUnusable) ||
				errors.Is(err, categories.ErrCategorySlugConflict) {
				return &fieldRejection{field: "category", message: err.Error()}
			}
			return err
		}
		product.CategoryID = &category.ID

		repo := c.repo.WithTx(tx)
		if err := repo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, slugConstraint) {
				return &fieldRejection{field: "name", message: duplicateNameMessage}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}

		if extraKey != "" {
			if err := repo.CreateImage(ctx, &models.ProductImage{ProductID: product.ID, Image: extraKey}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product image")
			}
		}

		if err := c.wishlist.LinkInTx(ctx, tx, actor.UserID, product.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add product to wishlist")
		}

		if err := c.notifier.EnqueueProductContributed(ctx, tx, actor.UserID, actor.Login, product.ID, product.Slug); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue contribution event")
		}
		return nil
	})
	if err != nil {
		c.cleanup(ctx, uploaded)
		var rejection *fieldRejection
		if errors.As(err, &rejection) {
			return c.rejected(FieldErrors{rejection.field: rejection.message}), nil
		}
		c.metrics.Record("error")
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit product")
		}
		return nil, err
	}

	c.metrics.Record(Created.String())
	return &SubmitResult{Outcome: Created, ProductID: product.ID, Slug: product.Slug}, nil
}

func (c *contributions) rejected(errs FieldErrors) *SubmitResult {
	c.metrics.Record(ValidationFailed.String())
	return &SubmitResult{Outcome: ValidationFailed, Errors: errs}
}

// cleanup deletes objects uploaded for a submission that did not commit.
func (c *contributions) cleanup(ctx context.Context, keys []string) {
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, c.store.Delete(context.WithoutCancel(ctx), key))
	}
	if errs != nil && c.logg != nil {
		c.logg.Error(c.logg.WithField(ctx, "object_keys", keys), "products.upload_cleanup_failed", errs)
	}
}
