package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

func newTestStripe(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://app.example/loading/my-bookings",
		CancelURL:     "https://app.example/my-bookings",
	})
	require.NoError(t, err)
	return g
}

func signed(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(config.PaymentConfig{Provider: "mock", FrontendURL: "http://localhost:5173"})
	require.NoError(t, err)
	assert.Equal(t, "mock", g.Name())

	_, err = NewGateway(config.PaymentConfig{Provider: "paypal"})
	assert.Error(t, err)

	_, err = NewGateway(config.PaymentConfig{Provider: "stripe"})
	assert.Error(t, err)
}

func TestStripe_SessionParams(t *testing.T) {
	g := newTestStripe(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	p := g.sessionParams(CheckoutRequest{
		BookingID:       "b-1",
		ShowID:          "s-1",
		MovieTitle:      "Dune",
		Seats:           []string{"A1", "A2"},
		UnitAmountCents: 1500,
		AmountCents:     3000,
		ExpiresAt:       now.Add(10 * time.Minute),
	})

	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, "b-1", p.Metadata["bookingId"])
	assert.Equal(t, "b-1", *p.ClientReferenceID)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(2), *p.LineItems[0].Quantity)
	assert.Equal(t, int64(1500), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, "Dune (A1, A2)", *p.LineItems[0].PriceData.ProductData.Name)
	// never shorter than Stripe's minimum
	assert.Equal(t, now.Add(30*time.Minute).Unix(), *p.ExpiresAt)
}

func TestStripe_ParseEvent_CheckoutCompleted(t *testing.T) {
	g := newTestStripe(t)
	payload := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"metadata": {"bookingId": "b-42"}
		}}
	}`

	ev, err := g.ParseEvent([]byte(payload), signed(payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "b-42", ev.BookingID)
	assert.Equal(t, "cs_test_1", ev.Reference)
	assert.True(t, ev.Paid)
}

func TestStripe_ParseEvent_UnpaidCompletion(t *testing.T) {
	g := newTestStripe(t)
	payload := `{"id":"evt_2","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","client_reference_id":"b-7"}}}`

	ev, err := g.ParseEvent([]byte(payload), signed(payload))
	require.NoError(t, err)
	assert.Equal(t, "b-7", ev.BookingID)
	assert.False(t, ev.Paid)
}

func TestStripe_ParseEvent_OtherType(t *testing.T) {
	g := newTestStripe(t)
	payload := `{"id":"evt_3","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`

	ev, err := g.ParseEvent([]byte(payload), signed(payload))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Empty(t, ev.BookingID)
}

func TestStripe_ParseEvent_BadSignature(t *testing.T) {
	g := newTestStripe(t)

	_, err := g.ParseEvent([]byte(`{"id":"evt"}`), "t=1,v1=deadbeef")
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestMock_CreateCheckout(t *testing.T) {
	g := NewMockGateway("http://localhost:5173", "")

	co, err := g.CreateCheckout(context.Background(), CheckoutRequest{BookingID: "b-1"})
	require.NoError(t, err)
	assert.Contains(t, co.Reference, "mock_")
	assert.Contains(t, co.URL, "http://localhost:5173/loading/my-bookings?")
	assert.Contains(t, co.URL, "booking=b-1")

	_, err = g.CreateCheckout(context.Background(), CheckoutRequest{})
	assert.Error(t, err)
}

func TestMock_ParseEvent(t *testing.T) {
	g := NewMockGateway("", "s3cret")
	body := []byte(`{"id":"m1","type":"mock.payment.succeeded","bookingId":"b-9"}`)

	_, err := g.ParseEvent(body, "wrong")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	ev, err := g.ParseEvent(body, "s3cret")
	require.NoError(t, err)
	assert.True(t, ev.Paid)
	assert.Equal(t, "b-9", ev.BookingID)
}
