// Package payment creates hosted checkouts for held bookings and verifies the
// provider's payment callbacks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/config"
)

// ErrInvalidSignature is returned when a callback fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutRequest describes what the customer is paying for.
type CheckoutRequest struct {
	BookingID       string
	ShowID          string
	MovieTitle      string
	StartsAt        time.Time
	Seats           []string
	UnitAmountCents int64
	AmountCents     int64
	ExpiresAt       time.Time // when the hold is released
}

// Checkout is a created payment session.
type Checkout struct {
	Reference string // provider session id
	URL       string // page the customer is redirected to
}

// Event is a verified provider callback reduced to what the booking flow needs.
type Event struct {
	ID        string
	Type      string
	BookingID string
	Reference string
	Paid      bool // funds captured; the booking may be confirmed
}

// Gateway is implemented by every payment provider.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// NewGateway builds the gateway selected by cfg.Provider.
func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		return NewMockGateway(cfg.FrontendURL, cfg.WebhookSecret), nil
	case "stripe":
		return NewStripeGateway(StripeConfig{
			SecretKey:     cfg.SecretKey,
			WebhookSecret: cfg.WebhookSecret,
			Currency:      cfg.Currency,
			SuccessURL:    cfg.FrontendURL + "/loading/my-bookings",
			CancelURL:     cfg.FrontendURL + "/my-bookings",
		})
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}
