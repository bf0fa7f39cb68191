package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// MockEventType is the only event MockGateway.ParseEvent accepts.
const MockEventType = "mock.payment.succeeded"

// MockGateway is a development gateway.  Checkout links point back at the
// frontend and payment is simulated by posting a mock event to the webhook.
type MockGateway struct {
	frontendURL string
	secret      string
}

// NewMockGateway returns a gateway that never talks to a provider.  When
// secret is set, webhook calls must send it as the signature.
func NewMockGateway(frontendURL, secret string) *MockGateway {
	return &MockGateway{frontendURL: frontendURL, secret: secret}
}

// Name returns the gateway name.
func (g *MockGateway) Name() string { return "mock" }

// CreateCheckout returns a fake session reference and a local URL.
func (g *MockGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.BookingID == "" {
		return nil, errors.New("booking id is required")
	}
	ref := "mock_" + uuid.NewString()
	q := url.Values{"booking": {req.BookingID}, "session": {ref}}
	return &Checkout{Reference: ref, URL: g.frontendURL + "/loading/my-bookings?" + q.Encode()}, nil
}

// mockEvent is the body accepted by ParseEvent.
type mockEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	BookingID string `json:"bookingId"`
}

// ParseEvent decodes a mock payment event.
func (g *MockGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if g.secret != "" && subtle.ConstantTimeCompare([]byte(signature), []byte(g.secret)) != 1 {
		return nil, ErrInvalidSignature
	}
	var ev mockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode mock event: %w", err)
	}
	out := &Event{ID: ev.ID, Type: ev.Type}
	if ev.Type == MockEventType {
		out.BookingID = ev.BookingID
		out.Paid = true
	}
	return out, nil
}
