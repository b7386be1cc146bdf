package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a sellable item in the catalog
type Product struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"not null" json:"name"`
	Slug              string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description       string         `gorm:"type:text" json:"description"`
	Category          string         `gorm:"index" json:"category"`
	Price             float64        `gorm:"not null;check:price >= 0" json:"price"`
	MRP               *float64       `json:"mrp"` // strike-through price, nullable
	StockQuantity     int            `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	LowStockThreshold int            `gorm:"not null" json:"low_stock_threshold"`
	ImageS3Key        *string        `json:"image_s3_key"`
	ImageURL          *string        `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	IsActive          bool           `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// InStock reports whether the product has any sellable units
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// LowStock reports whether the product is at or below its low-stock threshold
func (p *Product) LowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= p.LowStockThreshold
}
