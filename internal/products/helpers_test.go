package product

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type staticURLs struct{}

func (staticURLs) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.test/" + key
}

var seedEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type seedProduct struct {
	name     string
	color    string
	price    string
	category *models.Category
	sizes    map[*models.Size]uint
}

// seed inserts products one minute apart, in argument order.
func seed(t *testing.T, conn *gorm.DB, items ...seedProduct) []*models.Product {
	t.Helper()
	out := make([]*models.Product, 0, len(items))
	for i, item := range items {
		p := &models.Product{
			Name:      item.name,
			Slug:      item.name,
			Color:     item.color,
			Price:     decimal.RequireFromString(item.price),
			MainImage: "products/main/" + item.name + ".png",
			CreatedAt: seedEpoch.Add(time.Duration(i) * time.Minute),
			UpdatedAt: seedEpoch.Add(time.Duration(i) * time.Minute),
		}
		if item.category != nil {
			p.CategoryID = &item.category.ID
		}
		require.NoError(t, conn.Omit("Category", "Images", "Sizes").Create(p).Error)
		for size, stock := range item.sizes {
			require.NoError(t, conn.Create(&models.ProductSize{ProductID: p.ID, SizeID: size.ID, Stock: stock}).Error)
		}
		out = append(out, p)
	}
	return out
}

func mustCategory(t *testing.T, conn *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug}
	require.NoError(t, conn.Create(c).Error)
	return c
}

func mustSize(t *testing.T, conn *gorm.DB, name string) *models.Size {
	t.Helper()
	s := &models.Size{Name: name}
	require.NoError(t, conn.Create(s).Error)
	return s
}
