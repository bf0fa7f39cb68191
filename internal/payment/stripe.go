package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe rejects Checkout Sessions that expire sooner than this.
const stripeMinSessionTTL = 30 * time.Minute

// StripeConfig holds configuration for the Stripe gateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// StripeGateway creates Stripe Checkout Sessions and verifies Stripe webhooks.
type StripeGateway struct {
	cfg StripeConfig
	now func() time.Time
}

// NewStripeGateway validates cfg and sets the Stripe API key.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg, now: time.Now}, nil
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string { return "stripe" }

// CreateCheckout opens a Checkout Session for the booking.  The booking id
// travels in the session metadata and comes back with the webhook.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	params := g.sessionParams(req)
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout: %w", err)
	}
	return &Checkout{Reference: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) sessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	name := fmt.Sprintf("%s (%s)", req.MovieTitle, strings.Join(req.Seats, ", "))
	expires := g.now().Add(stripeMinSessionTTL)
	if req.ExpiresAt.After(expires) {
		expires = req.ExpiresAt
	}
	return &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(expires.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.cfg.Currency),
				UnitAmount: stripe.Int64(req.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(int64(len(req.Seats))),
		}},
		Metadata: map[string]string{"bookingId": req.BookingID, "showId": req.ShowID},
	}
}

// ParseEvent verifies the Stripe-Signature header and extracts the booking
// id from checkout session events.  Other event types are returned with an
// empty BookingID.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Reference = cs.ID
		out.BookingID = cs.Metadata["bookingId"]
		if out.BookingID == "" {
			out.BookingID = cs.ClientReferenceID
		}
		// Delayed methods complete the session unpaid and succeed later.
		out.Paid = cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			ev.Type == stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded
	}
	return out, nil
}
