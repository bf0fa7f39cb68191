// Package scheduler releases unpaid holds when they expire.  Two paths feed
// the same idempotent release: a per-booking delayed message on RabbitMQ,
// and a periodic sweep of the bookings table that catches anything the
// broker lost.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/reservation"
)

// HoldPublisher parks a hold expiry message until its delay has elapsed.
type HoldPublisher interface {
	PublishHoldExpiry(ctx context.Context, msg queue.HoldExpiryMessage, delay time.Duration) error
}

// Releaser releases a booking if its hold has expired.
type Releaser interface {
	ReleaseExpired(ctx context.Context, bookingID string) (reservation.ReleaseOutcome, error)
}

// AMQPScheduler schedules releases as TTL'd messages on the hold wait queue.
// The broker dead-letters them to the expired queue once due.
//
// Per-message TTLs only expire at the head of a queue, so a message is never
// delivered before every message published ahead of it.  All holds share one
// duration, which keeps publish order and expiry order the same.
type AMQPScheduler struct {
	pub HoldPublisher
	now func() time.Time
}

// NewAMQPScheduler returns a scheduler publishing through pub.
func NewAMQPScheduler(pub HoldPublisher) *AMQPScheduler {
	return &AMQPScheduler{pub: pub, now: time.Now}
}

// Schedule publishes a persistent message that becomes deliverable at fireAt.
func (s *AMQPScheduler) Schedule(ctx context.Context, bookingID string, fireAt time.Time) error {
	msg := queue.HoldExpiryMessage{BookingID: bookingID, FireAt: fireAt.UTC()}
	return s.pub.PublishHoldExpiry(ctx, msg, fireAt.Sub(s.now()))
}

// ExpiryHandler returns the queue handler for the expired queue.
func ExpiryHandler(r Releaser, log *zap.Logger) queue.Handler {
	log = log.Named("expiry")
	return func(ctx context.Context, body []byte) error {
		var msg queue.HoldExpiryMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("decode hold expiry: %w", err)
		}
		if msg.BookingID == "" {
			return fmt.Errorf("hold expiry without booking id")
		}
		out, err := r.ReleaseExpired(ctx, msg.BookingID)
		if err != nil {
			// The sweep retries whatever is left in the table.
			return fmt.Errorf("release %s: %w", msg.BookingID, err)
		}
		log.Debug("hold expiry handled", zap.String("booking_id", msg.BookingID), zap.Stringer("outcome", out))
		return nil
	}
}
