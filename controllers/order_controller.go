package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// orderErrorStatus maps a business-rule failure code to an HTTP status
func orderErrorStatus(code string) int {
	switch code {
	case "INSUFFICIENT_STOCK", "PRODUCT_UNAVAILABLE":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// CreateOrder handles POST /api/v1/orders - places a new order
func CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
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

	order, err := services.CreateOrder(config.GetDB(), &req)
	if err != nil {
		var orderErr *services.OrderError
		if errors.As(err, &orderErr) {
			c.JSON(orderErrorStatus(orderErr.Code), gin.H{
				"success": false,
				"error": gin.H{
					"code":    orderErr.Code,
					"message": orderErr.Message,
				},
			})
			return
		}
		log.Printf("Error creating order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_CREATION_FAILED",
				"message": "Failed to create order. Please try again.",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order": gin.H{
			"id":             order.ID,
			"order_number":   order.OrderNumber,
			"subtotal":       order.Subtotal,
			"discount":       order.DiscountAmount,
			"shipping_cost":  order.ShippingCost,
			"gst_amount":     order.GSTAmount,
			"total_amount":   order.TotalAmount,
			"payment_method": order.PaymentMethod,
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
		},
	})
}

// GetOrder handles GET /api/v1/orders/:id - order detail with line items
func GetOrder(c *gin.Context) {
	db := config.GetDB()

	var order models.Order
	if err := db.Preload("Items").First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// TrackOrder handles GET /api/v1/orders/track?order=...&email=...
// A wrong order number or email answers 200 with success false so callers
// cannot discover which order numbers exist
func TrackOrder(c *gin.Context) {
	db := config.GetDB()

	orderNumber := strings.ToUpper(strings.TrimSpace(c.Query("order")))
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if orderNumber == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Order number and email are required",
			},
		})
		return
	}

	var order models.Order
	err := db.Preload("Items").
		Where("order_number = ? AND customer_email = ?", orderNumber, email).
		First(&order).Error
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "No order found with this order number and email",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"order_number":     order.OrderNumber,
			"order_status":     order.OrderStatus,
			"payment_status":   order.PaymentStatus,
			"total_amount":     order.TotalAmount,
			"tracking_number":  order.TrackingNumber,
			"shipping_carrier": order.ShippingCarrier,
			"created_at":       order.CreatedAt,
			"shipped_at":       order.ShippedAt,
			"delivered_at":     order.DeliveredAt,
			"items":            order.Items,
		},
		"timeline": services.BuildTimeline(&order),
	})
}

// adminOrderView is an order list row with its item count attached
type adminOrderView struct {
	models.Order
	ItemCount int `json:"item_count"`
}

// AdminListOrders handles GET /api/v1/admin/orders - paginated order list
// with status, payment, search and date-range filters
func AdminListOrders(c *gin.Context) {
	db := config.GetDB()

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	query := db.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("order_status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("order_number LIKE ? OR customer_email LIKE ?", pattern, pattern)
	}
	if from := c.Query("from"); from != "" {
		if day, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("created_at >= ?", day)
		}
	}
	if to := c.Query("to"); to != "" {
		if day, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("created_at < ?", day.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Error counting orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		log.Printf("Error fetching orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	// One grouped count instead of a query per row
	itemCounts := map[uint]int{}
	if len(orders) > 0 {
		orderIDs := make([]uint, 0, len(orders))
		for _, o := range orders {
			orderIDs = append(orderIDs, o.ID)
		}
		var rows []struct {
			OrderID uint
			Count   int
		}
		if err := db.Model(&models.OrderItem{}).
			Select("order_id, COUNT(*) as count").
			Where("order_id IN ?", orderIDs).
			Group("order_id").
			Scan(&rows).Error; err != nil {
			log.Printf("Error counting order items: %v", err)
		}
		for _, row := range rows {
			itemCounts[row.OrderID] = row.Count
		}
	}

	views := make([]adminOrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, adminOrderView{Order: o, ItemCount: itemCounts[o.ID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  views,
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// adminOrderItemView is an order line with current catalog fields attached.
// Name and price stay the at-order snapshot; slug and image come from the
// product as it is now.
type adminOrderItemView struct {
	models.OrderItem
	ProductSlug     string  `json:"product_slug,omitempty"`
	ProductImageURL *string `json:"product_image_url,omitempty"`
}

// AdminGetOrder handles GET /api/v1/admin/orders/:id - full order detail
func AdminGetOrder(c *gin.Context) {
	db := config.GetDB()

	var order models.Order
	if err := db.Preload("Items").First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	products := map[uint]models.Product{}
	if len(order.Items) > 0 {
		productIDs := make([]uint, 0, len(order.Items))
		for _, item := range order.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		var rows []models.Product
		if err := db.Unscoped().Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
			log.Printf("Error fetching products for order %s: %v", order.OrderNumber, err)
		}
		for _, p := range rows {
			products[p.ID] = p
		}
	}

	items := make([]adminOrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		view := adminOrderItemView{OrderItem: item}
		if p, ok := products[item.ProductID]; ok {
			view.ProductSlug = p.Slug
			view.ProductImageURL = toProductView(p).ImageURL
		}
		items = append(items, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
		"items":   items,
	})
}

// AdminUpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status
func AdminUpdateOrderStatus(c *gin.Context) {
	db := config.GetDB()

	var order models.Order
	if err := db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	var change services.StatusChange
	if err := c.ShouldBindJSON(&change); err != nil {
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

	if err := services.ApplyStatusChange(db, &order, &change); err != nil {
		var orderErr *services.OrderError
		if errors.As(err, &orderErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    orderErr.Code,
					"message": orderErr.Message,
				},
			})
			return
		}
		log.Printf("Error updating status for order %d: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update order status",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status updated successfully",
		"order":   order,
	})
}
