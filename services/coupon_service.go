package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/models"
)

// Coupon derived statuses (computed at read time, never stored)
const (
	CouponStatusInactive  = "inactive"
	CouponStatusExpired   = "expired"
	CouponStatusScheduled = "scheduled"
	CouponStatusExhausted = "exhausted"
	CouponStatusActive    = "active"
)

// CouponResult is the outcome of evaluating a coupon against a subtotal.
// Invalid coupons are a soft failure: Valid is false and Error carries the
// user-facing reason, no Go error is returned.
type CouponResult struct {
	Valid          bool           `json:"valid"`
	Coupon         *models.Coupon `json:"coupon,omitempty"`
	DiscountAmount float64        `json:"discount_amount,omitempty"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// NormalizeCouponCode uppercases and trims a client-supplied code
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EvaluateCoupon validates a coupon code against a subtotal and computes the
// discount. Eligibility failures (unknown code, outside validity window,
// usage cap reached, below minimum order) come back as soft-invalid results.
func EvaluateCoupon(db *gorm.DB, code string, subtotal float64) (*CouponResult, error) {
	var coupon models.Coupon
	err := db.Where("code = ? AND is_active = ?", NormalizeCouponCode(code), true).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CouponResult{Valid: false, Error: "Invalid coupon code"}, nil
		}
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}

	now := time.Now()
	if coupon.ValidFrom.After(now) {
		return &CouponResult{Valid: false, Error: "This coupon is not yet active"}, nil
	}
	if coupon.ValidUntil != nil && coupon.ValidUntil.Before(now) {
		return &CouponResult{Valid: false, Error: "This coupon has expired"}, nil
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return &CouponResult{Valid: false, Error: "This coupon has reached its usage limit"}, nil
	}
	if coupon.MinimumOrderAmount > 0 && subtotal < coupon.MinimumOrderAmount {
		return &CouponResult{
			Valid: false,
			Error: fmt.Sprintf("Minimum order of ₹%.0f required for this coupon", coupon.MinimumOrderAmount),
		}, nil
	}

	var discount float64
	var message string
	if coupon.DiscountType == models.DiscountTypePercentage {
		discount = subtotal * coupon.DiscountValue / 100
		if coupon.MaximumDiscount != nil && discount > *coupon.MaximumDiscount {
			discount = *coupon.MaximumDiscount
		}
		message = fmt.Sprintf("%.0f%% discount applied!", coupon.DiscountValue)
	} else {
		discount = coupon.DiscountValue
		message = fmt.Sprintf("₹%.0f discount applied!", coupon.DiscountValue)
	}

	// Discount never exceeds the subtotal it is applied to
	if discount > subtotal {
		discount = subtotal
	}

	return &CouponResult{
		Valid:          true,
		Coupon:         &coupon,
		DiscountAmount: Round2(discount),
		Message:        message,
	}, nil
}

// CouponStatus derives the display status for a coupon at a point in time
func CouponStatus(c *models.Coupon, now time.Time) string {
	switch {
	case !c.IsActive:
		return CouponStatusInactive
	case c.ValidUntil != nil && c.ValidUntil.Before(now):
		return CouponStatusExpired
	case c.ValidFrom.After(now):
		return CouponStatusScheduled
	case c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit:
		return CouponStatusExhausted
	default:
		return CouponStatusActive
	}
}

// IncrementCouponUsage bumps a coupon's usage count by one in a single
// conditional statement. The usage-limit guard means a retried settlement or
// a racing webhook cannot push usage_count past usage_limit.
func IncrementCouponUsage(db *gorm.DB, code string) error {
	result := db.Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", NormalizeCouponCode(code)).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", result.Error)
	}
	return nil
}
