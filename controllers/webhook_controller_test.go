package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

// postWebhook sends raw body bytes so the signature covers exactly what the
// handler reads
func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-razorpay-signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func paymentEventBody(t *testing.T, event, paymentID, gatewayOrderID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"order_id": gatewayOrderID,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal webhook body: %v", err)
	}
	return body
}

func refundEventBody(t *testing.T, event, refundID, paymentID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"refund": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":         refundID,
					"payment_id": paymentID,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal webhook body: %v", err)
	}
	return body
}

func setupWebhookTest(t *testing.T) (*gin.Engine, *services.MockRazorpayService, *services.MockEmailService, models.Order, models.Product) {
	db := setupTestDB(t)
	mockGateway, mockEmail := setupTestServices(t)
	product := seedTestProduct(t, db, "Ashwagandha Capsules", "ashwagandha", 299, 10, true)

	router := setupTestRouter()
	router.POST("/orders", CreateOrder)
	router.POST("/payment/create-order", CreatePaymentOrder)
	router.POST("/webhooks/razorpay", HandleRazorpayWebhook)

	w := performRequest(router, http.MethodPost, "/orders", map[string]interface{}{
		"customer":       testCustomerPayload(),
		"items":          []map[string]interface{}{{"id": product.ID, "quantity": 2}},
		"payment_method": "razorpay",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to place order: %s", w.Body.String())
	}

	var order models.Order
	if err := db.First(&order).Error; err != nil {
		t.Fatalf("Failed to load order: %v", err)
	}

	w = performRequest(router, http.MethodPost, "/payment/create-order",
		map[string]interface{}{"order_id": order.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create payment order: %s", w.Body.String())
	}
	if err := db.First(&order, order.ID).Error; err != nil {
		t.Fatalf("Failed to reload order: %v", err)
	}

	return router, mockGateway, mockEmail, order, product
}

func TestWebhook_InvalidSignature(t *testing.T) {
	router, _, _, order, _ := setupWebhookTest(t)

	body := paymentEventBody(t, "payment.captured", "pay_wh", *order.RazorpayOrderID)

	w := postWebhook(router, body, "forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", responseErrorCode(parseResponse(t, w)))

	w = postWebhook(router, body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_PaymentCaptured(t *testing.T) {
	router, mockGateway, mockEmail, order, product := setupWebhookTest(t)
	db := config.GetDB()

	body := paymentEventBody(t, "payment.captured", "pay_wh", *order.RazorpayOrderID)
	w := postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, reloadedOrder.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, reloadedOrder.OrderStatus)
	assert.Equal(t, "pay_wh", *reloadedOrder.RazorpayPaymentID)

	var reloadedProduct models.Product
	assert.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 8, reloadedProduct.StockQuantity)
	assert.Len(t, mockEmail.SentOfKind("confirmation"), 1)

	// Redelivery of the same event is acked and changes nothing
	w = postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 8, reloadedProduct.StockQuantity)
	assert.Len(t, mockEmail.SentOfKind("confirmation"), 1)
}

func TestWebhook_PaymentFailed(t *testing.T) {
	router, mockGateway, mockEmail, order, _ := setupWebhookTest(t)
	db := config.GetDB()

	body := paymentEventBody(t, "payment.failed", "pay_wh", *order.RazorpayOrderID)
	w := postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, reloaded.PaymentStatus)
	assert.Len(t, mockEmail.SentOfKind("payment_failed"), 1)
}

func TestWebhook_Refund(t *testing.T) {
	router, mockGateway, _, order, _ := setupWebhookTest(t)
	db := config.GetDB()

	// Settle first so the refund has a payment to land on
	captured := paymentEventBody(t, "payment.captured", "pay_wh", *order.RazorpayOrderID)
	w := postWebhook(router, captured, mockGateway.SignWebhook(captured))
	assert.Equal(t, http.StatusOK, w.Code)

	refund := refundEventBody(t, "refund.processed", "rfnd_1", "pay_wh")
	w = postWebhook(router, refund, mockGateway.SignWebhook(refund))
	assert.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.PaymentStatusRefunded, reloaded.PaymentStatus)
}

func TestWebhook_IgnoredEvents(t *testing.T) {
	router, mockGateway, _, order, product := setupWebhookTest(t)
	db := config.GetDB()

	// order.paid arrives alongside payment.captured but carries no action here
	body := paymentEventBody(t, "order.paid", "pay_wh", *order.RazorpayOrderID)
	w := postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)

	var reloadedProduct models.Product
	assert.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 10, reloadedProduct.StockQuantity)

	// Entirely unknown events are acked too
	body = paymentEventBody(t, "invoice.expired", "pay_wh", *order.RazorpayOrderID)
	w = postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)

	// As is a captured payment for a gateway order this service never issued
	body = paymentEventBody(t, "payment.captured", "pay_other", "order_foreign")
	w = postWebhook(router, body, mockGateway.SignWebhook(body))
	assert.Equal(t, http.StatusOK, w.Code)
}
