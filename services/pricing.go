package services

import (
	"fmt"
	"math"
)

// Business constants for checkout pricing
const (
	GSTRate               = 0.18
	FreeShippingThreshold = 500.0
	ShippingCost          = 50.0
)

// Pricing is the computed price breakdown for an order
type Pricing struct {
	ShippingCost float64 `json:"shipping_cost"`
	GSTAmount    float64 `json:"gst_amount"`
	TotalAmount  float64 `json:"total_amount"`
}

// PricingError reports malformed numeric input to the pricing calculator
type PricingError struct {
	Message string
}

func (e *PricingError) Error() string {
	return e.Message
}

// Round2 rounds a monetary amount to 2 decimal places
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// CalculatePricing computes shipping, GST and total from a subtotal and a
// pre-capped discount. Shipping is free at or above the threshold; GST is
// charged on the discounted amount.
func CalculatePricing(subtotal, discountAmount float64) (*Pricing, error) {
	if math.IsNaN(subtotal) || math.IsInf(subtotal, 0) || subtotal < 0 {
		return nil, &PricingError{Message: fmt.Sprintf("invalid subtotal: %v", subtotal)}
	}
	if math.IsNaN(discountAmount) || math.IsInf(discountAmount, 0) || discountAmount < 0 {
		return nil, &PricingError{Message: fmt.Sprintf("invalid discount amount: %v", discountAmount)}
	}
	if discountAmount > subtotal {
		return nil, &PricingError{Message: "discount amount exceeds subtotal"}
	}

	shippingCost := ShippingCost
	if subtotal >= FreeShippingThreshold {
		shippingCost = 0
	}

	taxableAmount := Round2(subtotal - discountAmount)
	gstAmount := Round2(taxableAmount * GSTRate)
	totalAmount := Round2(taxableAmount + gstAmount + shippingCost)

	return &Pricing{
		ShippingCost: shippingCost,
		GSTAmount:    gstAmount,
		TotalAmount:  totalAmount,
	}, nil
}
