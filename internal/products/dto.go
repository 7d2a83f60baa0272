package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
)

// URLBuilder turns a stored object key into a browser-facing URL.
type URLBuilder interface {
	PublicURL(key string) string
}

// ProductSummary is the card shape used by catalog and wishlist listings.
type ProductSummary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Color        string     `json:"color"`
	Price        string     `json:"price"`
	MainImageURL string     `json:"main_image_url"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CategoryDTO is the public category shape.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProductImageDTO exposes one gallery image.
type ProductImageDTO struct {
	ID  uuid.UUID `json:"id"`
	URL string    `json:"url"`
}

// SizeStockDTO reports stock for one size of a product.
type SizeStockDTO struct {
	Name  string `json:"name"`
	Stock uint   `json:"stock"`
}

// SizeDTO is a catalog-wide size option.
type SizeDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ProductDetailDTO is the full product page payload.
type ProductDetailDTO struct {
	ProductSummary
	Description *string           `json:"description,omitempty"`
	URL         *string           `json:"url,omitempty"`
	Category    *CategoryDTO      `json:"category,omitempty"`
	Images      []ProductImageDTO `json:"images"`
	Sizes       []SizeStockDTO    `json:"sizes"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ProductListResult is one cursor page of summaries.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewProductSummary maps a stored product to its listing shape.
func NewProductSummary(p *models.Product, urls URLBuilder) ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Color:        p.Color,
		Price:        p.Price.StringFixed(2),
		MainImageURL: publicURL(urls, p.MainImage),
		CategoryID:   p.CategoryID,
		CreatedAt:    p.CreatedAt,
	}
}

// NewProductDetailDTO expects Category, Images and Sizes.Size to be preloaded.
func NewProductDetailDTO(p *models.Product, urls URLBuilder) *ProductDetailDTO {
	dto := &ProductDetailDTO{
		ProductSummary: NewProductSummary(p, urls),
		Description:    p.Description,
		URL:            p.URL,
		Images:         make([]ProductImageDTO, 0, len(p.Images)),
		Sizes:          make([]SizeStockDTO, 0, len(p.Sizes)),
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Category != nil {
		dto.Category = NewCategoryDTO(p.Category)
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ProductImageDTO{ID: img.ID, URL: publicURL(urls, img.Image)})
	}
	for _, ps := range p.Sizes {
		dto.Sizes = append(dto.Sizes, SizeStockDTO{Name: ps.Size.Name, Stock: ps.Stock})
	}
	return dto
}

func NewCategoryDTO(c *models.Category) *CategoryDTO {
	return &CategoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func publicURL(urls URLBuilder, key string) string {
	if urls == nil || key == "" {
		return key
	}
	return urls.PublicURL(key)
}
