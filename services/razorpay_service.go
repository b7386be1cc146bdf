package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/herbogene/storefront-api/config"
)

// GatewayOrder is the slice of a Razorpay order the checkout flow needs
type GatewayOrder struct {
	ID       string
	Amount   int64 // minor units (paise)
	Currency string
	Receipt  string
}

// RazorpayInterface defines the payment-gateway operations used by the
// checkout flow. The webhook and verification handlers only ever see this
// interface, so tests can swap in a mock gateway.
type RazorpayInterface interface {
	CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (*GatewayOrder, error)
	FetchPayment(paymentID string) (map[string]interface{}, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// RazorpayService talks to the hosted Razorpay API
type RazorpayService struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

var razorpayServiceInstance RazorpayInterface

// InitRazorpayService initializes the gateway client from configuration
func InitRazorpayService() (RazorpayInterface, error) {
	cfg := config.GetConfig()
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("razorpay credentials not configured")
	}

	razorpayServiceInstance = &RazorpayService{
		client:        razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		keySecret:     cfg.RazorpayKeySecret,
		webhookSecret: cfg.RazorpayWebhookSecret,
	}
	return razorpayServiceInstance, nil
}

// GetRazorpayService returns the gateway service instance
func GetRazorpayService() RazorpayInterface {
	return razorpayServiceInstance
}

// SetRazorpayService replaces the gateway service instance (used in tests)
func SetRazorpayService(s RazorpayInterface) {
	razorpayServiceInstance = s
}

// CreateOrder creates a payment intent on the gateway. The amount is rupees
// and is converted to paise, which is what the gateway expects.
func (s *RazorpayService) CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (*GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)),
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	body, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	order := &GatewayOrder{
		ID:       id,
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
	}
	return order, nil
}

// FetchPayment fetches a payment record from the gateway by id
func (s *RazorpayService) FetchPayment(paymentID string) (map[string]interface{}, error) {
	payment, err := s.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch razorpay payment: %w", err)
	}
	return payment, nil
}

// VerifyPaymentSignature checks the signature Razorpay's checkout returns to
// the client: HMAC-SHA256 over "order_id|payment_id" with the key secret.
func (s *RazorpayService) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, s.keySecret)
}

// VerifyWebhookSignature checks the x-razorpay-signature header against the
// raw webhook body using the webhook secret.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return false
	}
	return verifyHMAC(body, signature, s.webhookSecret)
}

// verifyHMAC compares a hex-encoded HMAC-SHA256 of payload in constant time
func verifyHMAC(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
