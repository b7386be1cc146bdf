package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/models"
)

// EmailInterface defines the outbound notification operations. Delivery is
// fire-and-forget everywhere: callers log failures and keep going, an order
// must never fail because an email did.
type EmailInterface interface {
	SendOrderConfirmation(order *models.Order) error
	SendPaymentFailed(order *models.Order) error
	SendShippingUpdate(order *models.Order) error
}

// EmailService sends transactional email through Resend
type EmailService struct {
	client *resend.Client
	from   string
	appURL string
}

var emailServiceInstance EmailInterface

// InitEmailService initializes the email service. Without an API key it
// installs a no-op sender so the rest of the system keeps working.
func InitEmailService() EmailInterface {
	cfg := config.GetConfig()
	if cfg.ResendAPIKey == "" {
		log.Println("Resend API key not configured - emails will be skipped")
		emailServiceInstance = &noopEmailService{}
		return emailServiceInstance
	}

	emailServiceInstance = &EmailService{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   cfg.EmailFrom,
		appURL: cfg.AppURL,
	}
	return emailServiceInstance
}

// GetEmailService returns the email service instance
func GetEmailService() EmailInterface {
	if emailServiceInstance == nil {
		emailServiceInstance = &noopEmailService{}
	}
	return emailServiceInstance
}

// SetEmailService replaces the email service instance (used in tests)
func SetEmailService(s EmailInterface) {
	emailServiceInstance = s
}

// SendOrderConfirmation emails the customer their order summary
func (s *EmailService) SendOrderConfirmation(order *models.Order) error {
	var itemsList strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&itemsList, "<li>%s x %d - ₹%.2f</li>", item.ProductName, item.Quantity, item.Subtotal)
	}

	paymentLabel := "Online Payment"
	if order.PaymentMethod == models.PaymentMethodCOD {
		paymentLabel = "Cash on Delivery"
	}

	discountRow := ""
	if order.DiscountAmount > 0 {
		code := ""
		if order.CouponCode != nil {
			code = fmt.Sprintf(" (%s)", *order.CouponCode)
		}
		discountRow = fmt.Sprintf("<p>Discount%s: -₹%.2f</p>", code, order.DiscountAmount)
	}

	shippingLabel := fmt.Sprintf("₹%.2f", order.ShippingCost)
	if order.ShippingCost == 0 {
		shippingLabel = "FREE"
	}

	html := fmt.Sprintf(`
		<h1>Order Confirmed!</h1>
		<p>Hi %s,</p>
		<p>Your order <strong>#%s</strong> has been confirmed and is being processed.</p>
		<p>Payment Method: %s</p>
		<ul>%s</ul>
		<p>Subtotal: ₹%.2f</p>
		%s
		<p>Shipping: %s</p>
		<p>GST (18%%): ₹%.2f</p>
		<p><strong>Total: ₹%.2f</strong></p>
		<p>Track your order at %s/order/track</p>`,
		order.CustomerFirstName, order.OrderNumber, paymentLabel, itemsList.String(),
		order.Subtotal, discountRow, shippingLabel, order.GSTAmount, order.TotalAmount, s.appURL)

	return s.send(order.CustomerEmail, fmt.Sprintf("Order Confirmed - %s", order.OrderNumber), html)
}

// SendPaymentFailed emails the customer a retry prompt after a failed payment
func (s *EmailService) SendPaymentFailed(order *models.Order) error {
	html := fmt.Sprintf(`
		<h1>Payment Failed</h1>
		<p>Hi %s,</p>
		<p>The payment for your order <strong>#%s</strong> could not be completed.</p>
		<p>No money has been deducted for this order. You can retry the payment at %s/checkout.</p>`,
		order.CustomerFirstName, order.OrderNumber, s.appURL)

	return s.send(order.CustomerEmail, fmt.Sprintf("Payment Failed - %s", order.OrderNumber), html)
}

// SendShippingUpdate emails the customer their tracking details
func (s *EmailService) SendShippingUpdate(order *models.Order) error {
	tracking := ""
	if order.TrackingNumber != nil {
		carrier := ""
		if order.ShippingCarrier != nil {
			carrier = fmt.Sprintf(" via %s", *order.ShippingCarrier)
		}
		tracking = fmt.Sprintf("<p>Tracking number%s: <strong>%s</strong></p>", carrier, *order.TrackingNumber)
	}

	html := fmt.Sprintf(`
		<h1>Your Order Has Shipped!</h1>
		<p>Hi %s,</p>
		<p>Your order <strong>#%s</strong> is on its way to %s, %s.</p>
		%s`,
		order.CustomerFirstName, order.OrderNumber, order.ShippingCity, order.ShippingState, tracking)

	return s.send(order.CustomerEmail, fmt.Sprintf("Order Shipped - %s", order.OrderNumber), html)
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email %q to %s: %w", subject, to, err)
	}
	return nil
}

// noopEmailService is installed when email is not configured
type noopEmailService struct{}

func (n *noopEmailService) SendOrderConfirmation(order *models.Order) error {
	log.Printf("Email skipped: order confirmation for %s", order.OrderNumber)
	return nil
}

func (n *noopEmailService) SendPaymentFailed(order *models.Order) error {
	log.Printf("Email skipped: payment failed for %s", order.OrderNumber)
	return nil
}

func (n *noopEmailService) SendShippingUpdate(order *models.Order) error {
	log.Printf("Email skipped: shipping update for %s", order.OrderNumber)
	return nil
}
