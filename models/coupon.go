package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon discount types
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Coupon represents a discount code
type Coupon struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Code               string         `gorm:"uniqueIndex;not null" json:"code"` // stored uppercased
	Description        *string        `json:"description"`
	DiscountType       string         `gorm:"not null" json:"discount_type"` // percentage or fixed
	DiscountValue      float64        `gorm:"not null;check:discount_value > 0" json:"discount_value"`
	MinimumOrderAmount float64        `gorm:"not null;default:0" json:"minimum_order_amount"`
	MaximumDiscount    *float64       `json:"maximum_discount"` // cap, percentage type only
	UsageLimit         *int           `json:"usage_limit"`      // nil = unlimited
	UsageCount         int            `gorm:"not null;default:0" json:"usage_count"`
	ValidFrom          time.Time      `json:"valid_from"`
	ValidUntil         *time.Time     `json:"valid_until"` // nil = no expiry
	IsActive           bool           `gorm:"not null" json:"is_active"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Coupon model
func (Coupon) TableName() string {
	return "coupons"
}
