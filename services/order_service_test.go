package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/herbogene/storefront-api/models"
)

func setupOrderTestDB(t *testing.T) (*gorm.DB, *MockEmailService) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Coupon{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	mockEmail := NewMockEmailService()
	mockEmail.SetAsMockForTesting()
	t.Cleanup(func() { SetEmailService(nil) })

	return db, mockEmail
}

func validCustomer() OrderCustomer {
	return OrderCustomer{
		FirstName: "Asha",
		LastName:  "Nair",
		Email:     "asha@example.com",
		Phone:     "9876543210",
		Address:   "12 MG Road",
		City:      "Kochi",
		State:     "Kerala",
		Pincode:   "682001",
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	product := models.Product{
		Name:          name,
		Slug:          name + "-slug",
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}

func TestCreateOrder_Validation(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 10)

	base := func() *CreateOrderRequest {
		return &CreateOrderRequest{
			Customer:      validCustomer(),
			Items:         []CartItem{{ID: product.ID, Quantity: 1}},
			PaymentMethod: models.PaymentMethodCOD,
		}
	}

	tests := []struct {
		name            string
		mutate          func(req *CreateOrderRequest)
		expectedCode    string
		messageContains string
	}{
		{
			name:         "Empty items",
			mutate:       func(req *CreateOrderRequest) { req.Items = nil },
			expectedCode: "VALIDATION_ERROR",
		},
		{
			name:         "Invalid payment method",
			mutate:       func(req *CreateOrderRequest) { req.PaymentMethod = "upi" },
			expectedCode: "VALIDATION_ERROR",
		},
		{
			name:            "Missing first name",
			mutate:          func(req *CreateOrderRequest) { req.Customer.FirstName = " " },
			expectedCode:    "VALIDATION_ERROR",
			messageContains: "first name",
		},
		{
			name:            "Invalid email",
			mutate:          func(req *CreateOrderRequest) { req.Customer.Email = "not-an-email" },
			expectedCode:    "VALIDATION_ERROR",
			messageContains: "email",
		},
		{
			name:            "Phone must start with 6-9",
			mutate:          func(req *CreateOrderRequest) { req.Customer.Phone = "1234567890" },
			expectedCode:    "VALIDATION_ERROR",
			messageContains: "phone",
		},
		{
			name:            "Pincode must be 6 digits",
			mutate:          func(req *CreateOrderRequest) { req.Customer.Pincode = "12345" },
			expectedCode:    "VALIDATION_ERROR",
			messageContains: "pincode",
		},
		{
			name:         "Unknown product",
			mutate:       func(req *CreateOrderRequest) { req.Items = []CartItem{{ID: 9999, Quantity: 1}} },
			expectedCode: "PRODUCT_UNAVAILABLE",
		},
		{
			name: "Quantity exceeds stock",
			mutate: func(req *CreateOrderRequest) {
				req.Items = []CartItem{{ID: product.ID, Quantity: 11}}
			},
			expectedCode: "INSUFFICIENT_STOCK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)

			order, err := CreateOrder(db, req)
			assert.Nil(t, order)
			assert.Error(t, err)

			var orderErr *OrderError
			assert.ErrorAs(t, err, &orderErr)
			assert.Equal(t, tt.expectedCode, orderErr.Code)
			if tt.messageContains != "" {
				assert.Contains(t, orderErr.Message, tt.messageContains)
			}
		})
	}
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 10)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^HG-\d{4}-\d{5}$`), order.OrderNumber)
}

func TestCreateOrder_RazorpayStaysPending(t *testing.T) {
	db, mockEmail := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 10)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 2}},
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 598.0, order.Subtotal)
	assert.Equal(t, 0.0, order.ShippingCost)
	assert.Equal(t, 107.64, order.GSTAmount)
	assert.Equal(t, 705.64, order.TotalAmount)

	// No stock movement and no email until the payment settles
	var reloaded models.Product
	assert.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity)
	assert.Empty(t, mockEmail.Sent())
}

func TestCreateOrder_COD(t *testing.T) {
	db, mockEmail := setupOrderTestDB(t)
	product := seedProduct(t, db, "Last Unit Tonic", 299, 1)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	var reloaded models.Product
	assert.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 0, reloaded.StockQuantity)

	confirmations := mockEmail.SentOfKind("confirmation")
	assert.Len(t, confirmations, 1)
	assert.Equal(t, order.OrderNumber, confirmations[0].OrderNumber)
	assert.Equal(t, "asha@example.com", confirmations[0].To)
}

func TestCreateOrder_CODWithCoupon(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 300, 10)

	coupon := models.Coupon{
		Code:          "FLAT50",
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 50,
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
	assert.NoError(t, db.Create(&coupon).Error)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:       validCustomer(),
		Items:          []CartItem{{ID: product.ID, Quantity: 1}},
		CouponCode:     "FLAT50",
		DiscountAmount: 50,
		PaymentMethod:  models.PaymentMethodCOD,
	})
	assert.NoError(t, err)
	assert.Equal(t, 50.0, order.DiscountAmount)
	assert.Equal(t, 345.0, order.TotalAmount)
	assert.NotNil(t, order.CouponCode)
	assert.Equal(t, "FLAT50", *order.CouponCode)

	var reloaded models.Coupon
	assert.NoError(t, db.First(&reloaded, coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsageCount)
}

func TestCreateOrder_DiscountRecomputed(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 300, 10)

	coupon := models.Coupon{
		Code:          "FLAT50",
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 50,
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
	assert.NoError(t, db.Create(&coupon).Error)

	// Client claims a bigger discount than the coupon grants
	_, err := CreateOrder(db, &CreateOrderRequest{
		Customer:       validCustomer(),
		Items:          []CartItem{{ID: product.ID, Quantity: 1}},
		CouponCode:     "FLAT50",
		DiscountAmount: 200,
		PaymentMethod:  models.PaymentMethodCOD,
	})
	var orderErr *OrderError
	assert.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "COUPON_INVALID", orderErr.Code)

	// Client claims a discount with no coupon code at all
	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:       validCustomer(),
		Items:          []CartItem{{ID: product.ID, Quantity: 1}},
		DiscountAmount: 200,
		PaymentMethod:  models.PaymentMethodCOD,
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, order.DiscountAmount)
}

func TestDecrementStock(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 2)

	assert.NoError(t, DecrementStock(db, product.ID, 2))

	// Stock is gone; the conditional update refuses to go negative
	err := DecrementStock(db, product.ID, 1)
	var orderErr *OrderError
	assert.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", orderErr.Code)

	var reloaded models.Product
	assert.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 0, reloaded.StockQuantity)
}

func TestSettlePayment_Idempotent(t *testing.T) {
	db, mockEmail := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 300, 10)

	coupon := models.Coupon{
		Code:          "FLAT50",
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: 50,
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
	assert.NoError(t, db.Create(&coupon).Error)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:       validCustomer(),
		Items:          []CartItem{{ID: product.ID, Quantity: 2}},
		CouponCode:     "FLAT50",
		DiscountAmount: 50,
		PaymentMethod:  models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)

	sig := "sig_abc"
	claimed, err := SettlePayment(db, order, "pay_123", &sig)
	assert.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, order.OrderStatus)

	// The second settlement (webhook racing the verify endpoint) is a no-op
	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	claimed, err = SettlePayment(db, &reloadedOrder, "pay_123", nil)
	assert.NoError(t, err)
	assert.False(t, claimed)

	var reloadedProduct models.Product
	assert.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 8, reloadedProduct.StockQuantity)

	var reloadedCoupon models.Coupon
	assert.NoError(t, db.First(&reloadedCoupon, coupon.ID).Error)
	assert.Equal(t, 1, reloadedCoupon.UsageCount)

	assert.Len(t, mockEmail.SentOfKind("confirmation"), 1)
}

func TestMarkPaymentFailed(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 10)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)

	assert.NoError(t, MarkPaymentFailed(db, order.ID))

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, reloaded.PaymentStatus)
}

func TestMarkPaymentFailed_SkipsPaidOrder(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 10)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)

	claimed, err := SettlePayment(db, order, "pay_123", nil)
	assert.NoError(t, err)
	assert.True(t, claimed)

	// A stale failure event must not undo a captured payment
	assert.NoError(t, MarkPaymentFailed(db, order.ID))

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestApplyStatusChange_CancelRestoresStock(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 3}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)

	var afterOrder models.Product
	assert.NoError(t, db.First(&afterOrder, product.ID).Error)
	assert.Equal(t, 2, afterOrder.StockQuantity)

	assert.NoError(t, ApplyStatusChange(db, order, &StatusChange{Status: models.OrderStatusCancelled}))

	var afterCancel models.Product
	assert.NoError(t, db.First(&afterCancel, product.ID).Error)
	assert.Equal(t, 5, afterCancel.StockQuantity)
	assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)
}

func TestApplyStatusChange_CancelPendingLeavesStock(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 3}},
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	assert.NoError(t, err)

	assert.NoError(t, ApplyStatusChange(db, order, &StatusChange{Status: models.OrderStatusCancelled}))

	// Stock was never deducted for this order, so nothing comes back
	var reloaded models.Product
	assert.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 5, reloaded.StockQuantity)
}

func TestApplyStatusChange_Shipped(t *testing.T) {
	db, mockEmail := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)

	tracking := "TRK12345"
	carrier := "Delhivery"
	assert.NoError(t, ApplyStatusChange(db, order, &StatusChange{
		Status:         models.OrderStatusShipped,
		TrackingNumber: &tracking,
		Carrier:        &carrier,
	}))

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusShipped, reloaded.OrderStatus)
	assert.NotNil(t, reloaded.ShippedAt)
	assert.Equal(t, "TRK12345", *reloaded.TrackingNumber)
	assert.Equal(t, "Delhivery", *reloaded.ShippingCarrier)

	assert.Len(t, mockEmail.SentOfKind("shipping_update"), 1)
}

func TestApplyStatusChange_Delivered(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)

	assert.NoError(t, ApplyStatusChange(db, order, &StatusChange{Status: models.OrderStatusDelivered}))

	var reloaded models.Order
	assert.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusDelivered, reloaded.OrderStatus)
	assert.NotNil(t, reloaded.DeliveredAt)
}

func TestApplyStatusChange_InvalidStatus(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)

	err = ApplyStatusChange(db, order, &StatusChange{Status: "teleported"})
	var orderErr *OrderError
	assert.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "INVALID_STATUS", orderErr.Code)
}

func TestApplyStatusChange_ReturnedNoSideEffects(t *testing.T) {
	db, _ := setupOrderTestDB(t)
	product := seedProduct(t, db, "Ashwagandha", 299, 5)

	order, err := CreateOrder(db, &CreateOrderRequest{
		Customer:      validCustomer(),
		Items:         []CartItem{{ID: product.ID, Quantity: 2}},
		PaymentMethod: models.PaymentMethodCOD,
	})
	assert.NoError(t, err)

	assert.NoError(t, ApplyStatusChange(db, order, &StatusChange{Status: models.OrderStatusReturned}))

	var reloadedOrder models.Order
	assert.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.OrderStatusReturned, reloadedOrder.OrderStatus)

	// Returned is bookkeeping only: no stock restore, no refund
	var reloadedProduct models.Product
	assert.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 3, reloadedProduct.StockQuantity)
	assert.Equal(t, models.PaymentStatusPending, reloadedOrder.PaymentStatus)
}

func TestBuildTimeline(t *testing.T) {
	now := time.Now()
	shipped := now.Add(-time.Hour)
	delivered := now.Add(-10 * time.Minute)

	tests := []struct {
		name              string
		order             models.Order
		expectedCompleted []bool
	}{
		{
			name:              "Pending order",
			order:             models.Order{OrderStatus: models.OrderStatusPending, CreatedAt: now},
			expectedCompleted: []bool{true, false, false, false, false},
		},
		{
			name:              "Confirmed order",
			order:             models.Order{OrderStatus: models.OrderStatusConfirmed, CreatedAt: now},
			expectedCompleted: []bool{true, true, false, false, false},
		},
		{
			name:              "Shipped order",
			order:             models.Order{OrderStatus: models.OrderStatusShipped, CreatedAt: now, ShippedAt: &shipped},
			expectedCompleted: []bool{true, true, true, true, false},
		},
		{
			name:              "Delivered order",
			order:             models.Order{OrderStatus: models.OrderStatusDelivered, CreatedAt: now, ShippedAt: &shipped, DeliveredAt: &delivered},
			expectedCompleted: []bool{true, true, true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline := BuildTimeline(&tt.order)
			assert.Len(t, timeline, 5)
			assert.Equal(t, "Order Placed", timeline[0].Status)
			assert.Equal(t, "Delivered", timeline[4].Status)
			for i, want := range tt.expectedCompleted {
				assert.Equal(t, want, timeline[i].Completed, "step %d (%s)", i, timeline[i].Status)
				if want {
					assert.NotNil(t, timeline[i].Date)
				} else {
					assert.Nil(t, timeline[i].Date)
				}
			}
		})
	}
}
