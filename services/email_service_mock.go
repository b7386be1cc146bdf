package services

import (
	"sync"

	"github.com/herbogene/storefront-api/models"
)

// SentEmail records one notification dispatched through the mock
type SentEmail struct {
	Kind        string // confirmation, payment_failed, shipping_update
	To          string
	OrderNumber string
}

// MockEmailService records notifications instead of sending them
type MockEmailService struct {
	mu   sync.Mutex
	sent []SentEmail

	// FailNext makes the next send return an error, to verify callers treat
	// email as fire-and-forget
	FailNext error
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SetAsMockForTesting registers this mock as the global email instance
func (m *MockEmailService) SetAsMockForTesting() {
	SetEmailService(m)
}

// Sent returns the notifications recorded so far
func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// SentOfKind returns recorded notifications of one kind
func (m *MockEmailService) SentOfKind(kind string) []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentEmail
	for _, e := range m.sent {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockEmailService) record(kind string, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	m.sent = append(m.sent, SentEmail{Kind: kind, To: order.CustomerEmail, OrderNumber: order.OrderNumber})
	return nil
}

// SendOrderConfirmation records a confirmation notification
func (m *MockEmailService) SendOrderConfirmation(order *models.Order) error {
	return m.record("confirmation", order)
}

// SendPaymentFailed records a payment-failed notification
func (m *MockEmailService) SendPaymentFailed(order *models.Order) error {
	return m.record("payment_failed", order)
}

// SendShippingUpdate records a shipping-update notification
func (m *MockEmailService) SendShippingUpdate(order *models.Order) error {
	return m.record("shipping_update", order)
}
