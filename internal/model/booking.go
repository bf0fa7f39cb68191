package model

import "time"

// BookingStatus tracks where a booking is in its lifecycle.
type BookingStatus string

const (
	// BookingPending holds seats and waits for payment.
	BookingPending BookingStatus = "PENDING"
	// BookingPaid is terminal; the seats belong to the customer.
	BookingPaid BookingStatus = "PAID"
	// BookingReleasing has been claimed by the release path; its seats are
	// being returned and the row is about to be deleted.
	BookingReleasing BookingStatus = "RELEASING"
)

// Booking is one customer's claim on a set of seats for a show.
//
// Fields:
//  ID          – UUID primary key.  Also the marker stored in the show's
//                occupancy map for every seat of this booking.
//  UserID      – owner of the booking (subject of the bearer token).
//  ShowID      – the show being booked.
//  Seats       – booked seat labels, unique, in request order.
//  AmountCents – seat count × show price at hold time.  Never recomputed.
//  Status      – PENDING, PAID or RELEASING.
//  PaymentRef  – gateway reference (e.g. a Checkout Session id).
//  PaymentURL  – where the customer completes payment.
//  CreatedAt   – when the hold was placed.
//  ExpiresAt   – when an unpaid hold is released.
//  PaidAt      – when payment was confirmed.  Nil while unpaid.
type Booking struct {
	ID          string        `json:"id"`           // bookings.id
	UserID      string        `json:"userId"`       // bookings.user_id
	ShowID      string        `json:"showId"`       // bookings.show_id
	Seats       []string      `json:"bookedSeats"`  // bookings.booked_seats (JSON)
	AmountCents Cents         `json:"amount"`       // bookings.amount_cents
	Status      BookingStatus `json:"status"`       // bookings.status
	PaymentRef  string        `json:"-"`            // bookings.payment_ref
	PaymentURL  string        `json:"paymentLink"`  // bookings.payment_url
	CreatedAt   time.Time     `json:"createdAt"`    // bookings.created_at
	ExpiresAt   time.Time     `json:"expiresAt"`    // bookings.expires_at
	PaidAt      *time.Time    `json:"paidAt"`       // bookings.paid_at
}

// IsPaid reports whether payment has been confirmed.
func (b *Booking) IsPaid() bool { return b.Status == BookingPaid }

// BookingWithShow is a booking joined with the show it belongs to, as listed
// on the customer's bookings page.
type BookingWithShow struct {
	Booking
	IsPaid bool  `json:"isPaid"`
	Show   *Show `json:"show"`
}
