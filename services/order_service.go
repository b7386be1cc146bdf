package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/utils"
)

// orderNumberAttempts bounds the retry loop against order_number collisions
const orderNumberAttempts = 5

// OrderError is a business-rule failure during order processing. Controllers
// map Code to an HTTP status; Message is safe to show to the customer.
type OrderError struct {
	Code    string
	Message string
}

func (e *OrderError) Error() string {
	return e.Message
}

// OrderCustomer carries the contact and shipping fields for an order
type OrderCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
}

// CreateOrderRequest is the payload for placing an order
type CreateOrderRequest struct {
	Customer       OrderCustomer `json:"customer"`
	Items          []CartItem    `json:"items"`
	CouponCode     string        `json:"coupon_code"`
	DiscountAmount float64       `json:"discount_amount"`
	PaymentMethod  string        `json:"payment_method"`
}

// validateCustomer checks the required customer fields and their formats,
// reporting the first missing or malformed field.
func validateCustomer(c *OrderCustomer) *OrderError {
	required := []struct {
		value string
		label string
	}{
		{c.FirstName, "first name"},
		{c.LastName, "last name"},
		{c.Email, "email"},
		{c.Phone, "phone"},
		{c.Address, "address"},
		{c.City, "city"},
		{c.State, "state"},
		{c.Pincode, "pincode"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &OrderError{Code: "VALIDATION_ERROR", Message: fmt.Sprintf("Customer %s is required", f.label)}
		}
	}
	if !utils.IsValidEmail(c.Email) {
		return &OrderError{Code: "VALIDATION_ERROR", Message: "Invalid email address"}
	}
	if !utils.IsValidPhone(c.Phone) {
		return &OrderError{Code: "VALIDATION_ERROR", Message: "Invalid phone number. Must be 10 digits starting with 6-9"}
	}
	if !utils.IsValidPincode(c.Pincode) {
		return &OrderError{Code: "VALIDATION_ERROR", Message: "Invalid pincode. Must be 6 digits"}
	}
	return nil
}

// CreateOrder validates the request against live inventory, prices it,
// persists the order and its line items, and for COD runs the immediate
// confirmation path. Item-insert failure triggers a best-effort compensating
// delete of the order row.
func CreateOrder(db *gorm.DB, req *CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, &OrderError{Code: "VALIDATION_ERROR", Message: "Missing required fields"}
	}
	if req.PaymentMethod != models.PaymentMethodRazorpay && req.PaymentMethod != models.PaymentMethodCOD {
		return nil, &OrderError{Code: "VALIDATION_ERROR", Message: "Invalid payment method"}
	}
	if err := validateCustomer(&req.Customer); err != nil {
		return nil, err
	}

	// Authoritative stock and price check, independent of any earlier cart
	// validation: state may have drifted since the customer built the cart
	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ID)
	}
	var products []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to validate products: %w", err)
	}
	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	var subtotal float64
	orderItems := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := productMap[item.ID]
		if !ok || !product.IsActive {
			name := item.Name
			if name == "" {
				name = fmt.Sprintf("#%d", item.ID)
			}
			return nil, &OrderError{Code: "PRODUCT_UNAVAILABLE", Message: fmt.Sprintf("Product %q is no longer available", name)}
		}
		if product.StockQuantity < item.Quantity {
			return nil, &OrderError{
				Code:    "INSUFFICIENT_STOCK",
				Message: fmt.Sprintf("Insufficient stock for %q. Only %d available.", product.Name, product.StockQuantity),
			}
		}

		itemSubtotal := Round2(product.Price * float64(item.Quantity))
		subtotal = Round2(subtotal + itemSubtotal)
		orderItems = append(orderItems, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			Quantity:     item.Quantity,
			Subtotal:     itemSubtotal,
		})
	}

	// The discount is never taken from the client. With a coupon code it is
	// recomputed by the evaluator; without one it is zero.
	discountAmount := 0.0
	var couponCode *string
	if strings.TrimSpace(req.CouponCode) != "" {
		result, err := EvaluateCoupon(db, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, &OrderError{Code: "COUPON_INVALID", Message: result.Error}
		}
		if Round2(req.DiscountAmount) != result.DiscountAmount {
			return nil, &OrderError{Code: "COUPON_INVALID", Message: "Coupon discount has changed. Please re-apply the coupon."}
		}
		discountAmount = result.DiscountAmount
		code := result.Coupon.Code
		couponCode = &code
	}

	pricing, err := CalculatePricing(subtotal, discountAmount)
	if err != nil {
		return nil, &OrderError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	orderNumber, err := reserveOrderNumber(db)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		OrderNumber:       orderNumber,
		CustomerFirstName: strings.TrimSpace(req.Customer.FirstName),
		CustomerLastName:  strings.TrimSpace(req.Customer.LastName),
		CustomerEmail:     strings.ToLower(strings.TrimSpace(req.Customer.Email)),
		CustomerPhone:     strings.TrimSpace(req.Customer.Phone),
		ShippingAddress:   strings.TrimSpace(req.Customer.Address),
		ShippingCity:      strings.TrimSpace(req.Customer.City),
		ShippingState:     strings.TrimSpace(req.Customer.State),
		ShippingPincode:   strings.TrimSpace(req.Customer.Pincode),
		Subtotal:          subtotal,
		DiscountAmount:    discountAmount,
		CouponCode:        couponCode,
		ShippingCost:      pricing.ShippingCost,
		GSTAmount:         pricing.GSTAmount,
		TotalAmount:       pricing.TotalAmount,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		OrderStatus:       models.OrderStatusPending,
	}

	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for i := range orderItems {
		orderItems[i].OrderID = order.ID
	}
	if err := db.Create(&orderItems).Error; err != nil {
		// Compensating delete; if it fails too we log the orphan and move on
		if delErr := db.Delete(&models.Order{}, order.ID).Error; delErr != nil {
			log.Printf("Failed to roll back order %s after item insert failure: %v", order.OrderNumber, delErr)
		}
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}
	order.Items = orderItems

	// COD skips the gateway entirely: deduct stock, burn the coupon use and
	// confirm in one pass
	if req.PaymentMethod == models.PaymentMethodCOD {
		if err := confirmOrder(db, &order); err != nil {
			return nil, err
		}
	}

	return &order, nil
}

// reserveOrderNumber generates an order number that is not yet in use.
// Suffixes are random, so collisions are possible; the unique index on
// orders.order_number is the real guarantee, this loop just keeps retries
// out of the hot path.
func reserveOrderNumber(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		candidate := utils.GenerateOrderNumber()
		var count int64
		if err := db.Model(&models.Order{}).Where("order_number = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number after %d attempts", orderNumberAttempts)
}

// confirmOrder deducts stock for every line, increments coupon usage and
// flips the order to confirmed. Used by the COD path at creation time.
// A lost stock race unwinds the already-deducted lines and fails the order.
func confirmOrder(db *gorm.DB, order *models.Order) error {
	deducted := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if err := DecrementStock(db, item.ProductID, item.Quantity); err != nil {
			for _, d := range deducted {
				if restoreErr := RestoreStock(db, d.ProductID, d.Quantity); restoreErr != nil {
					log.Printf("Failed to restore stock for product %d on order %s: %v", d.ProductID, order.OrderNumber, restoreErr)
				}
			}
			if delErr := db.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; delErr != nil {
				log.Printf("Failed to roll back items for order %s after stock failure: %v", order.OrderNumber, delErr)
			}
			if delErr := db.Delete(&models.Order{}, order.ID).Error; delErr != nil {
				log.Printf("Failed to roll back order %s after stock failure: %v", order.OrderNumber, delErr)
			}
			var orderErr *OrderError
			if errors.As(err, &orderErr) {
				return &OrderError{
					Code:    "INSUFFICIENT_STOCK",
					Message: fmt.Sprintf("Insufficient stock for %q", item.ProductName),
				}
			}
			return err
		}
		deducted = append(deducted, item)
	}

	if order.CouponCode != nil {
		if err := IncrementCouponUsage(db, *order.CouponCode); err != nil {
			log.Printf("Failed to increment coupon usage for order %s: %v", order.OrderNumber, err)
		}
	}

	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("order_status", models.OrderStatusConfirmed).Error; err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	order.OrderStatus = models.OrderStatusConfirmed

	if err := GetEmailService().SendOrderConfirmation(order); err != nil {
		log.Printf("Failed to send confirmation email for order %s: %v", order.OrderNumber, err)
	}
	return nil
}

// DecrementStock atomically takes qty units off a product's stock. The
// stock_quantity >= qty guard makes the decrement conditional: a concurrent
// purchase of the last units fails here instead of driving stock negative.
func DecrementStock(db *gorm.DB, productID uint, qty int) error {
	result := db.Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock for product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &OrderError{Code: "INSUFFICIENT_STOCK", Message: fmt.Sprintf("Insufficient stock for product %d", productID)}
	}
	return nil
}

// RestoreStock puts qty units back on a product's stock (inverse of
// DecrementStock, used on cancellation)
func RestoreStock(db *gorm.DB, productID uint, qty int) error {
	result := db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if result.Error != nil {
		return fmt.Errorf("failed to restore stock for product %d: %w", productID, result.Error)
	}
	return nil
}

// SettlePayment is the single idempotent payment-captured transition, shared
// by the synchronous verification endpoint and the asynchronous webhook. It
// claims the order with a conditional update; only the claiming caller
// deducts stock, burns the coupon use and sends the confirmation email.
// Returns false when the order was already settled by the other path.
func SettlePayment(db *gorm.DB, order *models.Order, paymentID string, signature *string) (bool, error) {
	updates := map[string]interface{}{
		"payment_status":      models.PaymentStatusPaid,
		"order_status":        models.OrderStatusConfirmed,
		"razorpay_payment_id": paymentID,
	}
	if signature != nil {
		updates["razorpay_signature"] = *signature
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", order.ID, models.PaymentStatusPaid).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update order payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the claim: the other settlement path got here first
		return false, nil
	}

	var items []models.OrderItem
	if err := db.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		log.Printf("Failed to fetch items for settled order %s: %v", order.OrderNumber, err)
	}
	for _, item := range items {
		if err := DecrementStock(db, item.ProductID, item.Quantity); err != nil {
			// The payment is already captured; an out-of-stock line at this
			// point is an operational problem, not a reason to unwind money
			log.Printf("Stock deduction failed for product %d on settled order %s: %v", item.ProductID, order.OrderNumber, err)
		}
	}

	if order.CouponCode != nil {
		if err := IncrementCouponUsage(db, *order.CouponCode); err != nil {
			log.Printf("Failed to increment coupon usage for order %s: %v", order.OrderNumber, err)
		}
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.OrderStatus = models.OrderStatusConfirmed
	order.RazorpayPaymentID = &paymentID
	order.Items = items

	if err := GetEmailService().SendOrderConfirmation(order); err != nil {
		log.Printf("Failed to send confirmation email for order %s: %v", order.OrderNumber, err)
	}
	return true, nil
}

// MarkPaymentFailed flips an order's payment status to failed. Overwrites are
// naturally idempotent; an already-paid order is left alone.
func MarkPaymentFailed(db *gorm.DB, orderID uint) error {
	result := db.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, models.PaymentStatusPaid).
		Update("payment_status", models.PaymentStatusFailed)
	if result.Error != nil {
		return fmt.Errorf("failed to mark payment failed: %w", result.Error)
	}
	return nil
}

// MarkPaymentRefunded flips an order's payment status to refunded
func MarkPaymentRefunded(db *gorm.DB, orderID uint) error {
	result := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", models.PaymentStatusRefunded)
	if result.Error != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", result.Error)
	}
	return nil
}

// StatusChange carries the optional shipping fields for a status update
type StatusChange struct {
	Status         string  `json:"status" binding:"required"`
	TrackingNumber *string `json:"tracking_number"`
	Carrier        *string `json:"shipping_carrier"`
}

// ApplyStatusChange transitions an order to a new status, stamping
// shipped/delivered timestamps and restoring stock on cancellation of an
// order whose stock was already deducted. `returned` is accepted but has no
// stock or refund side effects.
func ApplyStatusChange(db *gorm.DB, order *models.Order, change *StatusChange) error {
	if !models.IsValidOrderStatus(change.Status) {
		return &OrderError{Code: "INVALID_STATUS", Message: "Invalid status"}
	}

	updates := map[string]interface{}{
		"order_status": change.Status,
	}

	now := time.Now()
	if change.Status == models.OrderStatusShipped {
		updates["shipped_at"] = now
		if change.TrackingNumber != nil {
			updates["tracking_number"] = *change.TrackingNumber
		}
		if change.Carrier != nil {
			updates["shipping_carrier"] = *change.Carrier
		}
	}
	if change.Status == models.OrderStatusDelivered {
		updates["delivered_at"] = now
	}

	// Cancelling an order that already took stock puts every line back
	if change.Status == models.OrderStatusCancelled &&
		order.OrderStatus != models.OrderStatusCancelled && order.StockDeducted() {
		var items []models.OrderItem
		if err := db.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to fetch items for cancellation: %w", err)
		}
		for _, item := range items {
			if err := RestoreStock(db, item.ProductID, item.Quantity); err != nil {
				log.Printf("Failed to restore stock for product %d on order %s: %v", item.ProductID, order.OrderNumber, err)
			}
		}
	}

	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	order.OrderStatus = change.Status
	if change.Status == models.OrderStatusShipped {
		order.ShippedAt = &now
		if change.TrackingNumber != nil {
			order.TrackingNumber = change.TrackingNumber
		}
		if change.Carrier != nil {
			order.ShippingCarrier = change.Carrier
		}
		if err := GetEmailService().SendShippingUpdate(order); err != nil {
			log.Printf("Failed to send shipping email for order %s: %v", order.OrderNumber, err)
		}
	}
	if change.Status == models.OrderStatusDelivered {
		order.DeliveredAt = &now
	}

	return nil
}

// TimelineEntry is one step in the customer-facing tracking timeline
type TimelineEntry struct {
	Status    string     `json:"status"`
	Date      *time.Time `json:"date"`
	Completed bool       `json:"completed"`
}

// BuildTimeline derives the tracking timeline from the order's status and
// its shipped/delivered timestamps; nothing here is stored.
func BuildTimeline(order *models.Order) []TimelineEntry {
	reached := func(statuses ...string) bool {
		for _, s := range statuses {
			if order.OrderStatus == s {
				return true
			}
		}
		return false
	}

	createdAt := order.CreatedAt
	updatedAt := order.UpdatedAt
	timeline := []TimelineEntry{
		{Status: "Order Placed", Date: &createdAt, Completed: true},
	}

	if reached(models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered) {
		timeline = append(timeline, TimelineEntry{Status: "Order Confirmed", Date: &createdAt, Completed: true})
	} else {
		timeline = append(timeline, TimelineEntry{Status: "Order Confirmed"})
	}

	if reached(models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered) {
		timeline = append(timeline, TimelineEntry{Status: "Processing", Date: &updatedAt, Completed: true})
	} else {
		timeline = append(timeline, TimelineEntry{Status: "Processing"})
	}

	if reached(models.OrderStatusShipped, models.OrderStatusDelivered) {
		date := order.ShippedAt
		if date == nil {
			date = &updatedAt
		}
		timeline = append(timeline, TimelineEntry{Status: "Shipped", Date: date, Completed: true})
	} else {
		timeline = append(timeline, TimelineEntry{Status: "Shipped"})
	}

	if order.OrderStatus == models.OrderStatusDelivered {
		date := order.DeliveredAt
		if date == nil {
			date = &updatedAt
		}
		timeline = append(timeline, TimelineEntry{Status: "Delivered", Date: date, Completed: true})
	} else {
		timeline = append(timeline, TimelineEntry{Status: "Delivered"})
	}

	return timeline
}
