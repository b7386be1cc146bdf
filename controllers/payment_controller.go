package controllers

import (
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// CreatePaymentOrderRequest identifies the order to open a gateway payment for
type CreatePaymentOrderRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreatePaymentOrder handles POST /api/v1/payment/create-order - opens a
// Razorpay order for a pending razorpay-method order. An existing gateway
// order is reused unless the previous payment attempt failed.
func CreatePaymentOrder(c *gin.Context) {
	db := config.GetDB()

	var req CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Order id is required",
			},
		})
		return
	}

	var order models.Order
	if err := db.First(&order, req.OrderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if order.PaymentMethod != models.PaymentMethodRazorpay {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WRONG_METHOD",
				"message": "Order is not a Razorpay order",
			},
		})
		return
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PAID",
				"message": "Order is already paid",
			},
		})
		return
	}

	gateway := services.GetRazorpayService()
	if gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_ERROR",
				"message": "Payment gateway is not configured",
			},
		})
		return
	}

	// After a failed attempt a fresh gateway order is opened; otherwise the
	// existing one is handed back so retries stay on the same payment intent
	if order.RazorpayOrderID != nil && order.PaymentStatus != models.PaymentStatusFailed {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"payment_order": gin.H{
				"razorpay_order_id": *order.RazorpayOrderID,
				"amount":            int64(math.Round(order.TotalAmount * 100)),
				"currency":          "INR",
				"order_number":      order.OrderNumber,
			},
		})
		return
	}

	gatewayOrder, err := gateway.CreateOrder(order.TotalAmount, "INR", order.OrderNumber, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	if err != nil {
		log.Printf("Failed to create gateway order for %s: %v", order.OrderNumber, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_ERROR",
				"message": "Failed to initiate payment. Please try again.",
			},
		})
		return
	}

	updates := map[string]interface{}{
		"razorpay_order_id": gatewayOrder.ID,
	}
	if order.PaymentStatus == models.PaymentStatusFailed {
		updates["payment_status"] = models.PaymentStatusPending
	}
	if err := db.Model(&order).Updates(updates).Error; err != nil {
		log.Printf("Failed to save gateway order id for %s: %v", order.OrderNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save payment order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment_order": gin.H{
			"razorpay_order_id": gatewayOrder.ID,
			"amount":            gatewayOrder.Amount,
			"currency":          gatewayOrder.Currency,
			"order_number":      order.OrderNumber,
		},
	})
}

// VerifyPaymentRequest carries the fields Razorpay checkout hands back to
// the client after a payment attempt
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// VerifyPayment handles POST /api/v1/payment/verify - checks the checkout
// signature and settles the order. A bad signature marks the payment failed.
func VerifyPayment(c *gin.Context) {
	db := config.GetDB()

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Missing payment verification fields",
			},
		})
		return
	}

	var order models.Order
	if err := db.Where("razorpay_order_id = ?", req.RazorpayOrderID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	gateway := services.GetRazorpayService()
	if gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_ERROR",
				"message": "Payment gateway is not configured",
			},
		})
		return
	}

	if !gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		if err := services.MarkPaymentFailed(db, order.ID); err != nil {
			log.Printf("Failed to mark payment failed for order %s: %v", order.OrderNumber, err)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SIGNATURE",
				"message": "Payment verification failed",
			},
		})
		return
	}

	signature := req.RazorpaySignature
	claimed, err := services.SettlePayment(db, &order, req.RazorpayPaymentID, &signature)
	if err != nil {
		log.Printf("Failed to settle payment for order %s: %v", order.OrderNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to record payment",
			},
		})
		return
	}
	if !claimed {
		// The webhook settled this order first; the payment still succeeded
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"order": gin.H{
				"order_number":   order.OrderNumber,
				"payment_status": models.PaymentStatusPaid,
				"order_status":   models.OrderStatusConfirmed,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"order_number":   order.OrderNumber,
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
		},
	})
}
