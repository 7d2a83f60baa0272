package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/wishlist-backend/api/middleware"
	"github.com/angelmondragon/wishlist-backend/api/responses"
	"github.com/angelmondragon/wishlist-backend/api/validators"
	product "github.com/angelmondragon/wishlist-backend/internal/products"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

// multipartOverhead leaves room for the text fields next to two images.
const multipartOverhead = 1 << 20

type submitResponse struct {
	Outcome   string              `json:"outcome"`
	ProductID *uuid.UUID          `json:"product_id,omitempty"`
	Slug      string              `json:"slug,omitempty"`
	Fields    product.FieldErrors `json:"fields,omitempty"`
}

// SubmitProduct accepts a multipart product contribution from the signed-in user.
func SubmitProduct(svc product.Contributions, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		form, err := validators.ParseMultipart(w, r, 2*maxUploadBytes+multipartOverhead)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := product.SubmitProductInput{
			Name:        form.Value("name"),
			Color:       form.Value("color"),
			Price:       form.Value("price"),
			Category:    form.Value("category"),
			Description: form.OptionalValue("description"),
			URL:         form.OptionalValue("url"),
		}
		for field, dest := range map[string]**product.Upload{"main_image": &input.MainImage, "extra_image": &input.ExtraImage} {
			file, err := form.File(field)
			if err != nil {
				if errors.Is(err, validators.ErrFileMissing) {
					continue
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			*dest = &product.Upload{Filename: file.Filename, Data: file.Data}
		}

		result, err := svc.SubmitProduct(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Outcome != product.Created {
			responses.WriteSuccessStatus(w, http.StatusUnprocessableEntity, submitResponse{
				Outcome: result.Outcome.String(),
				Fields:  result.Errors,
			})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitResponse{
			Outcome:   result.Outcome.String(),
			ProductID: &result.ProductID,
			Slug:      result.Slug,
		})
	}
}
