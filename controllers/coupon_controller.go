package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// ValidateCouponRequest represents the request body for coupon validation
type ValidateCouponRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal" binding:"required,gt=0"`
}

// ValidateCoupon handles POST /api/v1/coupons/validate. An unusable coupon
// is a normal answer, not an error, so the response is always 200 with a
// valid flag
func ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
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

	result, err := services.EvaluateCoupon(config.GetDB(), req.Code, req.Subtotal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to validate coupon",
			},
		})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"valid":   false,
			"message": result.Error,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"valid":           true,
		"discount_amount": result.DiscountAmount,
		"coupon": gin.H{
			"code":           result.Coupon.Code,
			"discount_type":  result.Coupon.DiscountType,
			"discount_value": result.Coupon.DiscountValue,
		},
	})
}

// couponView is a Coupon with its derived status attached
type couponView struct {
	models.Coupon
	Status string `json:"status"`
}

// AdminListCoupons handles GET /api/v1/admin/coupons
func AdminListCoupons(c *gin.Context) {
	db := config.GetDB()

	query := db.Order("created_at DESC")
	if active := c.Query("active"); active == "true" || active == "false" {
		query = query.Where("is_active = ?", active == "true")
	}

	var coupons []models.Coupon
	if err := query.Find(&coupons).Error; err != nil {
		log.Printf("Error fetching coupons: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch coupons",
			},
		})
		return
	}

	now := time.Now()
	views := make([]couponView, 0, len(coupons))
	for _, coupon := range coupons {
		views = append(views, couponView{Coupon: coupon, Status: services.CouponStatus(&coupon, now)})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coupons": views,
	})
}

// CreateCouponRequest represents the request body for creating a coupon
type CreateCouponRequest struct {
	Code               string     `json:"code" binding:"required"`
	Description        *string    `json:"description"`
	DiscountType       string     `json:"discount_type" binding:"required"`
	DiscountValue      float64    `json:"discount_value" binding:"required,gt=0"`
	MinimumOrderAmount float64    `json:"minimum_order_amount" binding:"gte=0"`
	MaximumDiscount    *float64   `json:"maximum_discount"`
	UsageLimit         *int       `json:"usage_limit"`
	ValidFrom          *time.Time `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until"`
	IsActive           *bool      `json:"is_active"`
}

func validateCouponValues(discountType string, discountValue float64, maximumDiscount *float64, usageLimit *int) (string, string) {
	if discountType != models.DiscountTypePercentage && discountType != models.DiscountTypeFixed {
		return "INVALID_DISCOUNT_TYPE", "Discount type must be percentage or fixed"
	}
	if discountType == models.DiscountTypePercentage && discountValue > 100 {
		return "INVALID_DISCOUNT_VALUE", "Percentage discount cannot exceed 100"
	}
	if maximumDiscount != nil && *maximumDiscount <= 0 {
		return "INVALID_MAXIMUM_DISCOUNT", "Maximum discount must be positive"
	}
	if usageLimit != nil && *usageLimit <= 0 {
		return "INVALID_USAGE_LIMIT", "Usage limit must be positive"
	}
	return "", ""
}

// AdminCreateCoupon handles POST /api/v1/admin/coupons
func AdminCreateCoupon(c *gin.Context) {
	db := config.GetDB()

	var req CreateCouponRequest
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

	if code, message := validateCouponValues(req.DiscountType, req.DiscountValue, req.MaximumDiscount, req.UsageLimit); code != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	normalized := services.NormalizeCouponCode(req.Code)
	if normalized == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Coupon code is required",
			},
		})
		return
	}

	// Soft-deleted rows still hold the unique code, so check with Unscoped
	var existing int64
	db.Unscoped().Model(&models.Coupon{}).Where("code = ?", normalized).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DUPLICATE_CODE",
				"message": "A coupon with this code already exists",
			},
		})
		return
	}

	coupon := models.Coupon{
		Code:               normalized,
		Description:        req.Description,
		DiscountType:       req.DiscountType,
		DiscountValue:      req.DiscountValue,
		MinimumOrderAmount: req.MinimumOrderAmount,
		MaximumDiscount:    req.MaximumDiscount,
		UsageLimit:         req.UsageLimit,
		ValidFrom:          time.Now(),
		ValidUntil:         req.ValidUntil,
		IsActive:           true,
	}
	if req.ValidFrom != nil {
		coupon.ValidFrom = *req.ValidFrom
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := db.Create(&coupon).Error; err != nil {
		log.Printf("Error creating coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create coupon",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"coupon":  couponView{Coupon: coupon, Status: services.CouponStatus(&coupon, time.Now())},
	})
}

// AdminGetCoupon handles GET /api/v1/admin/coupons/:id
func AdminGetCoupon(c *gin.Context) {
	db := config.GetDB()

	var coupon models.Coupon
	if err := db.First(&coupon, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Coupon not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coupon":  couponView{Coupon: coupon, Status: services.CouponStatus(&coupon, time.Now())},
	})
}

// UpdateCouponRequest represents the partial-update body for a coupon
type UpdateCouponRequest struct {
	Description        *string    `json:"description"`
	DiscountType       *string    `json:"discount_type"`
	DiscountValue      *float64   `json:"discount_value"`
	MinimumOrderAmount *float64   `json:"minimum_order_amount"`
	MaximumDiscount    *float64   `json:"maximum_discount"`
	UsageLimit         *int       `json:"usage_limit"`
	ValidFrom          *time.Time `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until"`
	IsActive           *bool      `json:"is_active"`
}

// AdminUpdateCoupon handles PATCH /api/v1/admin/coupons/:id. The code itself
// is immutable once created
func AdminUpdateCoupon(c *gin.Context) {
	db := config.GetDB()

	var coupon models.Coupon
	if err := db.First(&coupon, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Coupon not found",
			},
		})
		return
	}

	var req UpdateCouponRequest
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

	discountType := coupon.DiscountType
	if req.DiscountType != nil {
		discountType = *req.DiscountType
	}
	discountValue := coupon.DiscountValue
	if req.DiscountValue != nil {
		discountValue = *req.DiscountValue
	}
	maximumDiscount := coupon.MaximumDiscount
	if req.MaximumDiscount != nil {
		maximumDiscount = req.MaximumDiscount
	}
	usageLimit := coupon.UsageLimit
	if req.UsageLimit != nil {
		usageLimit = req.UsageLimit
	}
	if discountValue <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DISCOUNT_VALUE",
				"message": "Discount value must be positive",
			},
		})
		return
	}
	if code, message := validateCouponValues(discountType, discountValue, maximumDiscount, usageLimit); code != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DiscountType != nil {
		updates["discount_type"] = *req.DiscountType
	}
	if req.DiscountValue != nil {
		updates["discount_value"] = *req.DiscountValue
	}
	if req.MinimumOrderAmount != nil {
		updates["minimum_order_amount"] = *req.MinimumOrderAmount
	}
	if req.MaximumDiscount != nil {
		updates["maximum_discount"] = *req.MaximumDiscount
	}
	if req.UsageLimit != nil {
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.ValidFrom != nil {
		updates["valid_from"] = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "No valid fields to update",
			},
		})
		return
	}

	if err := db.Model(&coupon).Updates(updates).Error; err != nil {
		log.Printf("Error updating coupon %d: %v", coupon.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update coupon",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"coupon":  couponView{Coupon: coupon, Status: services.CouponStatus(&coupon, time.Now())},
	})
}

// AdminDeleteCoupon handles DELETE /api/v1/admin/coupons/:id. Coupons with
// recorded usage are deactivated instead of removed so past orders keep a
// valid reference
func AdminDeleteCoupon(c *gin.Context) {
	db := config.GetDB()

	var coupon models.Coupon
	if err := db.First(&coupon, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Coupon not found",
			},
		})
		return
	}

	if coupon.UsageCount > 0 {
		if err := db.Model(&coupon).Update("is_active", false).Error; err != nil {
			log.Printf("Error deactivating coupon %d: %v", coupon.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to deactivate coupon",
				},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "Coupon has been used on orders and was deactivated instead of deleted",
			"deactivated": true,
		})
		return
	}

	if err := db.Delete(&coupon).Error; err != nil {
		log.Printf("Error deleting coupon %d: %v", coupon.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete coupon",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Coupon deleted successfully",
	})
}
