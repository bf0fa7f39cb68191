package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/reservation"
)

// maxWebhookBody bounds the payload read from the payment provider.
const maxWebhookBody = 64 << 10

// EventParser verifies and decodes provider callbacks.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.Event, error)
}

// Confirmer marks bookings paid.
type Confirmer interface {
	Confirm(ctx context.Context, bookingID string) (reservation.ConfirmOutcome, error)
}

// PaymentWebhookHandler receives payment provider callbacks.
type PaymentWebhookHandler struct {
	Parser EventParser
	Engine Confirmer
	Log    *zap.Logger
}

// NewPaymentWebhookHandler constructs the webhook handler and panics if any
// dependency is nil.
func NewPaymentWebhookHandler(parser EventParser, engine Confirmer, log *zap.Logger) *PaymentWebhookHandler {
	if parser == nil || engine == nil || log == nil {
		panic("nil dependency passed to NewPaymentWebhookHandler")
	}
	return &PaymentWebhookHandler{Parser: parser, Engine: engine, Log: log.Named("webhook")}
}

// Handle serves POST /api/stripe.  A verified event is always acknowledged
// with 200 except when the store fails, so the provider retries only then.
func (h *PaymentWebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Log.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit))
			return fail(c, http.StatusRequestEntityTooLarge, "Webhook Error: payload too large")
		}
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	ev, err := h.Parser.ParseEvent(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.Log.Warn("rejected webhook", zap.Error(err))
			return fail(c, http.StatusBadRequest, "Webhook Error: invalid signature")
		}
		return fail(c, http.StatusBadRequest, "Webhook Error: malformed event")
	}

	log := h.Log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))
	if !ev.Paid || ev.BookingID == "" {
		log.Debug("webhook ignored")
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	out, err := h.Engine.Confirm(c.Request().Context(), ev.BookingID)
	if err != nil {
		log.Error("confirm failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "could not confirm booking")
	}
	if out == reservation.AlreadyReleased {
		// Paid after the hold expired; needs a refund.
		log.Warn("payment for released booking", zap.String("booking_id", ev.BookingID), zap.String("payment_ref", ev.Reference))
	}
	log.Info("webhook handled", zap.String("booking_id", ev.BookingID), zap.Stringer("outcome", out))
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
