package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
)

// MockRazorpayService is an in-memory gateway for testing. Signatures are
// real HMACs over fixed test secrets so handlers exercise the same
// verification code paths as production.
type MockRazorpayService struct {
	KeySecret     string
	WebhookSecret string
	CreateErr     error

	mu            sync.Mutex
	createdOrders []*GatewayOrder
	payments      map[string]map[string]interface{}
	nextOrderSeq  int
}

// NewMockRazorpayService creates a mock gateway with default test secrets
func NewMockRazorpayService() *MockRazorpayService {
	return &MockRazorpayService{
		KeySecret:     "test_key_secret",
		WebhookSecret: "test_webhook_secret",
		payments:      make(map[string]map[string]interface{}),
	}
}

// SetAsMockForTesting registers this mock as the global gateway instance
func (m *MockRazorpayService) SetAsMockForTesting() {
	SetRazorpayService(m)
}

// CreateOrder simulates creating a gateway order
func (m *MockRazorpayService) CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (*GatewayOrder, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderSeq++
	order := &GatewayOrder{
		ID:       fmt.Sprintf("order_mock%05d", m.nextOrderSeq),
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
	}
	m.createdOrders = append(m.createdOrders, order)
	return order, nil
}

// CreatedOrders returns the gateway orders created so far
func (m *MockRazorpayService) CreatedOrders() []*GatewayOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*GatewayOrder(nil), m.createdOrders...)
}

// RegisterPayment seeds a payment record for FetchPayment
func (m *MockRazorpayService) RegisterPayment(paymentID string, payment map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[paymentID] = payment
}

// FetchPayment returns a seeded payment record
func (m *MockRazorpayService) FetchPayment(paymentID string) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	return payment, nil
}

// SignPayment produces the signature a real checkout would return for the
// given gateway order and payment ids
func (m *MockRazorpayService) SignPayment(orderID, paymentID string) string {
	return hmacHex([]byte(orderID+"|"+paymentID), m.KeySecret)
}

// SignWebhook produces a valid webhook signature for a raw body
func (m *MockRazorpayService) SignWebhook(body []byte) string {
	return hmacHex(body, m.WebhookSecret)
}

// VerifyPaymentSignature checks a payment signature against the test secret
func (m *MockRazorpayService) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return m.SignPayment(orderID, paymentID) == signature
}

// VerifyWebhookSignature checks a webhook signature against the test secret
func (m *MockRazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	return m.SignWebhook(body) == signature
}

func hmacHex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
