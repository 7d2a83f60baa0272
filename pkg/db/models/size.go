package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Size struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;type:varchar(20);not null;uniqueIndex:sizes_name_key"`
}

func (s *Size) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ProductSize records stock for one size of one product.
type ProductSize struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_sizes_product_size_key"`
	SizeID    uuid.UUID `gorm:"column:size_id;type:uuid;not null;uniqueIndex:product_sizes_product_size_key"`
	Size      Size      `gorm:"foreignKey:SizeID"`
	Stock     uint      `gorm:"column:stock;not null;default:0"`
}

func (p *ProductSize) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
