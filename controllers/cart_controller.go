package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/services"
)

// ValidateCartRequest represents the request body for cart validation
type ValidateCartRequest struct {
	Items []services.CartItem `json:"items" binding:"dive"`
}

// ValidateCart handles POST /api/v1/cart/validate - re-checks client cart
// lines against the live catalog
func ValidateCart(c *gin.Context) {
	var req ValidateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_CART",
				"message": "Cart is empty",
			},
		})
		return
	}

	validation, err := services.ValidateCart(config.GetDB(), req.Items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to validate cart",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"validation": validation,
	})
}
