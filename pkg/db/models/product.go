package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Products are never owned by a user; users reach
// them through wishlist edges.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;type:varchar(100);not null"`
	Slug        string          `gorm:"column:slug;type:varchar(100);not null;uniqueIndex:products_slug_key"`
	Color       string          `gorm:"column:color;type:varchar(100);not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Description *string         `gorm:"column:description;type:text"`
	MainImage   string          `gorm:"column:main_image;type:text;not null"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid;index:products_category_id_idx"`
	Category    *Category       `gorm:"foreignKey:CategoryID"`
	URL         *string         `gorm:"column:url;type:text"`
	Feed        bool            `gorm:"column:feed;not null;default:false"`
	Images      []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Sizes       []ProductSize   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime;index:products_created_at_idx"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
