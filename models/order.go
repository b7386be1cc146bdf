package models

import "time"

// Payment methods
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodCOD      = "cod"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

// ValidOrderStatuses is the full set of recognized order statuses
var ValidOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// Order represents one customer purchase attempt
type Order struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	OrderNumber       string      `gorm:"uniqueIndex;not null" json:"order_number"` // HG-YYYY-XXXXX
	CustomerFirstName string      `gorm:"not null" json:"customer_first_name"`
	CustomerLastName  string      `gorm:"not null" json:"customer_last_name"`
	CustomerEmail     string      `gorm:"not null;index" json:"customer_email"`
	CustomerPhone     string      `gorm:"not null" json:"customer_phone"`
	ShippingAddress   string      `gorm:"not null" json:"shipping_address"`
	ShippingCity      string      `gorm:"not null" json:"shipping_city"`
	ShippingState     string      `gorm:"not null" json:"shipping_state"`
	ShippingPincode   string      `gorm:"not null" json:"shipping_pincode"`
	Subtotal          float64     `gorm:"not null" json:"subtotal"`
	DiscountAmount    float64     `gorm:"not null;default:0" json:"discount_amount"`
	CouponCode        *string     `json:"coupon_code"`
	ShippingCost      float64     `gorm:"not null" json:"shipping_cost"`
	GSTAmount         float64     `gorm:"not null" json:"gst_amount"`
	TotalAmount       float64     `gorm:"not null" json:"total_amount"`
	PaymentMethod     string      `gorm:"not null" json:"payment_method"`                     // razorpay or cod
	PaymentStatus     string      `gorm:"not null;default:'pending';index" json:"payment_status"` // pending, paid, failed, refunded
	OrderStatus       string      `gorm:"not null;default:'pending';index" json:"order_status"`
	RazorpayOrderID   *string     `gorm:"index" json:"razorpay_order_id"`
	RazorpayPaymentID *string     `gorm:"index" json:"razorpay_payment_id"`
	RazorpaySignature *string     `json:"-"`
	TrackingNumber    *string     `json:"tracking_number"`
	ShippingCarrier   *string     `json:"shipping_carrier"`
	ShippedAt         *time.Time  `json:"shipped_at"`
	DeliveredAt       *time.Time  `json:"delivered_at"`
	Items             []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsValidOrderStatus reports whether s is a recognized order status
func IsValidOrderStatus(s string) bool {
	for _, v := range ValidOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// StockDeducted reports whether this order has reached a state where stock
// was taken out of inventory (and must be restored on cancellation)
func (o *Order) StockDeducted() bool {
	switch o.OrderStatus {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped:
		return true
	}
	return false
}

// OrderItem is a line item snapshot captured at order time
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	ProductName  string    `gorm:"not null" json:"product_name"`
	ProductPrice float64   `gorm:"not null" json:"product_price"`
	Quantity     int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Subtotal     float64   `gorm:"not null" json:"subtotal"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
