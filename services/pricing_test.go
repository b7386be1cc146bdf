package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePricing(t *testing.T) {
	tests := []struct {
		name             string
		subtotal         float64
		discount         float64
		expectedShipping float64
		expectedGST      float64
		expectedTotal    float64
	}{
		{
			name:             "Free shipping above threshold, no discount",
			subtotal:         600,
			discount:         0,
			expectedShipping: 0,
			expectedGST:      108.00,
			expectedTotal:    708.00,
		},
		{
			name:             "Paid shipping below threshold with fixed discount",
			subtotal:         300,
			discount:         50,
			expectedShipping: 50,
			expectedGST:      45.00,
			expectedTotal:    345.00,
		},
		{
			name:             "Free shipping with capped percentage discount",
			subtotal:         1000,
			discount:         80,
			expectedShipping: 0,
			expectedGST:      165.60,
			expectedTotal:    1085.60,
		},
		{
			name:             "Shipping charged exactly below threshold",
			subtotal:         499.99,
			discount:         0,
			expectedShipping: 50,
			expectedGST:      90.00,
			expectedTotal:    639.99,
		},
		{
			name:             "Free shipping exactly at threshold",
			subtotal:         500,
			discount:         0,
			expectedShipping: 0,
			expectedGST:      90.00,
			expectedTotal:    590.00,
		},
		{
			name:             "Discount equal to subtotal",
			subtotal:         400,
			discount:         400,
			expectedShipping: 50,
			expectedGST:      0,
			expectedTotal:    50,
		},
		{
			name:             "Zero subtotal",
			subtotal:         0,
			discount:         0,
			expectedShipping: 50,
			expectedGST:      0,
			expectedTotal:    50,
		},
		{
			name:             "Fractional amounts round to paise",
			subtotal:         333.33,
			discount:         33.33,
			expectedShipping: 50,
			expectedGST:      54.00,
			expectedTotal:    404.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, err := CalculatePricing(tt.subtotal, tt.discount)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedShipping, pricing.ShippingCost)
			assert.Equal(t, tt.expectedGST, pricing.GSTAmount)
			assert.Equal(t, tt.expectedTotal, pricing.TotalAmount)
		})
	}
}

func TestCalculatePricing_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		subtotal float64
		discount float64
	}{
		{"Negative subtotal", -1, 0},
		{"Negative discount", 100, -5},
		{"Discount exceeds subtotal", 100, 101},
		{"NaN subtotal", math.NaN(), 0},
		{"Infinite subtotal", math.Inf(1), 0},
		{"NaN discount", 100, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, err := CalculatePricing(tt.subtotal, tt.discount)
			assert.Error(t, err)
			assert.Nil(t, pricing)

			var pricingErr *PricingError
			assert.ErrorAs(t, err, &pricingErr)
		})
	}
}

// The total must always decompose into its parts exactly, across a sweep of
// subtotal and discount combinations
func TestCalculatePricing_TotalInvariant(t *testing.T) {
	subtotals := []float64{0, 0.01, 49.99, 100, 250.50, 499.99, 500, 501.37, 999.99, 1234.56, 10000}
	for _, subtotal := range subtotals {
		for _, discountFraction := range []float64{0, 0.1, 0.5, 1} {
			discount := Round2(subtotal * discountFraction)

			pricing, err := CalculatePricing(subtotal, discount)
			assert.NoError(t, err)

			expectedShipping := 50.0
			if subtotal >= 500 {
				expectedShipping = 0
			}
			taxable := Round2(subtotal - discount)
			expectedGST := Round2(taxable * 0.18)
			expectedTotal := Round2(taxable + expectedGST + expectedShipping)

			assert.Equal(t, expectedShipping, pricing.ShippingCost, "subtotal=%v discount=%v", subtotal, discount)
			assert.Equal(t, expectedGST, pricing.GSTAmount, "subtotal=%v discount=%v", subtotal, discount)
			assert.Equal(t, expectedTotal, pricing.TotalAmount, "subtotal=%v discount=%v", subtotal, discount)
		}
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.56, Round2(10.556))
	assert.Equal(t, 10.55, Round2(10.554))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.0, Round2(99.999))
}
