package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/models"
)

// CartItem is a cart line as claimed by the client
type CartItem struct {
	ID       uint    `json:"id" binding:"required"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
}

// ValidatedCartItem is a cart line re-priced against the catalog
type ValidatedCartItem struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	Subtotal      float64 `json:"subtotal"`
	StockQuantity int     `json:"stock_quantity"`
	PriceChanged  bool    `json:"price_changed"`
}

// CartItemError explains why a cart line was rejected
type CartItemError struct {
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	Error             string `json:"error"`
	AvailableQuantity *int   `json:"available_quantity,omitempty"`
}

// CartValidation is the advisory result of re-checking a cart against the
// catalog. It does not reserve stock or lock prices; order creation performs
// its own authoritative check.
type CartValidation struct {
	Valid           bool                `json:"valid"`
	Items           []ValidatedCartItem `json:"items"`
	Errors          []CartItemError     `json:"errors"`
	Subtotal        float64             `json:"subtotal"`
	HasPriceChanges bool                `json:"has_price_changes"`
	Message         string              `json:"message"`
}

// ValidateCart re-validates a client-supplied cart against authoritative
// product rows: active flag, stock on hand, and current price.
func ValidateCart(db *gorm.DB, items []CartItem) (*CartValidation, error) {
	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ID)
	}

	var products []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products for cart validation: %w", err)
	}

	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	result := &CartValidation{
		Items:  []ValidatedCartItem{},
		Errors: []CartItemError{},
	}

	for _, item := range items {
		product, ok := productMap[item.ID]
		if !ok {
			result.Errors = append(result.Errors, CartItemError{
				ID:    item.ID,
				Name:  item.Name,
				Error: "Product no longer available",
			})
			continue
		}

		if !product.IsActive {
			result.Errors = append(result.Errors, CartItemError{
				ID:    item.ID,
				Name:  product.Name,
				Error: "Product is currently unavailable",
			})
			continue
		}

		if product.StockQuantity <= 0 {
			result.Errors = append(result.Errors, CartItemError{
				ID:    item.ID,
				Name:  product.Name,
				Error: "Product is out of stock",
			})
			continue
		}

		if item.Quantity > product.StockQuantity {
			available := product.StockQuantity
			result.Errors = append(result.Errors, CartItemError{
				ID:                item.ID,
				Name:              product.Name,
				Error:             fmt.Sprintf("Only %d items available", available),
				AvailableQuantity: &available,
			})
			continue
		}

		// Line is valid; subtotal always uses the catalog price
		itemSubtotal := Round2(product.Price * float64(item.Quantity))
		result.Items = append(result.Items, ValidatedCartItem{
			ID:            product.ID,
			Name:          product.Name,
			Price:         product.Price,
			Quantity:      item.Quantity,
			Subtotal:      itemSubtotal,
			StockQuantity: product.StockQuantity,
			PriceChanged:  product.Price != item.Price,
		})
		result.Subtotal = Round2(result.Subtotal + itemSubtotal)
	}

	result.Valid = len(result.Errors) == 0
	for _, item := range result.Items {
		if item.PriceChanged {
			result.HasPriceChanges = true
			break
		}
	}

	switch {
	case !result.Valid:
		result.Message = "Some items in your cart need attention"
	case result.HasPriceChanges:
		result.Message = "Some prices have been updated"
	default:
		result.Message = "Cart is valid"
	}

	return result, nil
}
