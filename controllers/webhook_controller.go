package controllers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// webhookEvent mirrors the slice of Razorpay's webhook payload this service
// acts on
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleRazorpayWebhook handles POST /api/v1/webhooks/razorpay. Everything
// after the signature check answers 200 so Razorpay does not retry events
// this service has chosen to ignore.
func HandleRazorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_BODY",
				"message": "Failed to read request body",
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

	signature := c.GetHeader("x-razorpay-signature")
	if signature == "" || !gateway.VerifyWebhookSignature(body, signature) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SIGNATURE",
				"message": "Webhook signature verification failed",
			},
		})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Signed but unparseable; ack so the gateway does not keep retrying
		log.Printf("Webhook body failed to parse: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	db := config.GetDB()

	switch event.Event {
	case "payment.captured":
		handlePaymentCaptured(db, &event)
	case "payment.failed":
		handlePaymentFailed(db, &event)
	case "order.paid":
		// Payment capture already settles the order; observed but not acted on
	case "refund.created", "refund.processed":
		handleRefund(db, &event)
	default:
		log.Printf("Ignoring webhook event %q", event.Event)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handlePaymentCaptured(db *gorm.DB, event *webhookEvent) {
	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" {
		return
	}

	var order models.Order
	if err := db.Where("razorpay_order_id = ?", entity.OrderID).First(&order).Error; err != nil {
		// Unknown gateway order, possibly from another environment
		log.Printf("payment.captured for unknown gateway order %s", entity.OrderID)
		return
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return
	}

	claimed, err := services.SettlePayment(db, &order, entity.ID, nil)
	if err != nil {
		log.Printf("Failed to settle order %s from webhook: %v", order.OrderNumber, err)
		return
	}
	if claimed {
		log.Printf("Order %s settled via webhook payment %s", order.OrderNumber, entity.ID)
	}
}

func handlePaymentFailed(db *gorm.DB, event *webhookEvent) {
	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" {
		return
	}

	var order models.Order
	if err := db.Where("razorpay_order_id = ?", entity.OrderID).First(&order).Error; err != nil {
		log.Printf("payment.failed for unknown gateway order %s", entity.OrderID)
		return
	}

	if err := services.MarkPaymentFailed(db, order.ID); err != nil {
		log.Printf("Failed to mark order %s payment failed: %v", order.OrderNumber, err)
		return
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		if err := services.GetEmailService().SendPaymentFailed(&order); err != nil {
			log.Printf("Failed to send payment-failed email for order %s: %v", order.OrderNumber, err)
		}
	}
}

func handleRefund(db *gorm.DB, event *webhookEvent) {
	entity := event.Payload.Refund.Entity
	if entity.PaymentID == "" {
		return
	}

	var order models.Order
	if err := db.Where("razorpay_payment_id = ?", entity.PaymentID).First(&order).Error; err != nil {
		log.Printf("refund event for unknown payment %s", entity.PaymentID)
		return
	}

	if err := services.MarkPaymentRefunded(db, order.ID); err != nil {
		log.Printf("Failed to mark order %s refunded: %v", order.OrderNumber, err)
	}
}
