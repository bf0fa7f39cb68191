// Package queue defines the RabbitMQ topology, message payloads and the
// publish/consume plumbing shared by the scheduler and the notifier.
package queue

import "time"

// Queue names.  All queues are durable and all messages persistent.
const (
	// HoldWaitQueue has no consumers.  Messages sit there until their
	// per-message TTL runs out and are then dead-lettered to HoldExpiredQueue.
	HoldWaitQueue = "booking.hold.wait"
	// HoldExpiredQueue receives hold expiry messages when they are due.
	HoldExpiredQueue = "booking.hold.expired"
	// BookingConfirmedQueue receives a message per confirmed booking.
	BookingConfirmedQueue = "booking.confirmed"
	// ShowAddedQueue receives a message per admin show batch.
	ShowAddedQueue = "show.added"
)

// HoldExpiryMessage asks for the hold of BookingID to be released at FireAt.
type HoldExpiryMessage struct {
	BookingID string    `json:"booking_id"`
	FireAt    time.Time `json:"fire_at"`
}

// BookingConfirmedEvent is published once, when a booking becomes paid.  It
// carries enough to address a confirmation without another query, except
// for the recipient's email.
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	ShowID      string    `json:"show_id"`
	MovieTitle  string    `json:"movie_title"`
	StartsAt    time.Time `json:"starts_at"`
	Seats       []string  `json:"seats"`
	AmountCents int64     `json:"amount_cents"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// ShowAddedEvent announces new screenings of a movie.
type ShowAddedEvent struct {
	MovieID    string      `json:"movie_id"`
	MovieTitle string      `json:"movie_title"`
	ShowIDs    []string    `json:"show_ids"`
	StartsAt   []time.Time `json:"starts_at"`
	PriceCents int64       `json:"price_cents"`
	AddedAt    time.Time   `json:"added_at"`
}
