package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo manages persistence for bookings.  Status changes are
// compare-and-set so the payment and release paths can race safely across
// processes.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo creates a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, show_id, booked_seats, amount_cents, status, payment_ref, payment_url, created_at, expires_at, paid_at`

// Create inserts a new booking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, show_id, booked_seats, amount_cents, status, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.ShowID, seats, b.AmountCents, string(b.Status), b.CreatedAt.UTC(), b.ExpiresAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID loads one booking.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// SetPayment records the gateway reference and payment URL.
func (r *BookingRepo) SetPayment(ctx context.Context, id, ref, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_ref = ?, payment_url = ? WHERE id = ?`, ref, url, id)
	if err != nil {
		return fmt.Errorf("set payment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// MarkPaid moves a PENDING booking to PAID.  It reports false when the
// booking is missing or no longer pending.
func (r *BookingRepo) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx,
		`UPDATE bookings SET status = 'PAID', paid_at = ? WHERE id = ? AND status = 'PENDING'`,
		at.UTC(), id)
}

// MarkReleasing claims a PENDING booking for release.  It reports false when
// the booking is missing or no longer pending.
func (r *BookingRepo) MarkReleasing(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx,
		`UPDATE bookings SET status = 'RELEASING' WHERE id = ? AND status = 'PENDING'`, id)
}

func (r *BookingRepo) transition(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("booking transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes an unpaid booking.  Paid bookings are never deleted; false
// is returned when nothing was removed.
func (r *BookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND status <> 'PAID'`, id)
	if err != nil {
		return false, fmt.Errorf("delete booking %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListReleasable returns unpaid bookings whose hold expired at or before now,
// plus bookings left in RELEASING by an interrupted release.
func (r *BookingRepo) ListReleasable(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE (status = 'PENDING' AND expires_at <= ?) OR status = 'RELEASING'
		 ORDER BY expires_at ASC LIMIT ?`,
		now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list releasable: %w", err)
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser returns a user's bookings with their shows, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingWithShow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.show_id, b.booked_seats, b.amount_cents, b.status, b.payment_ref, b.payment_url,
		        b.created_at, b.expires_at, b.paid_at,
		        s.id, s.movie_id, s.movie_title, s.starts_at, s.price_cents, s.occupied_seats, s.version, s.created_at, s.updated_at
		   FROM bookings b
		   JOIN shows s ON s.id = b.show_id
		  WHERE b.user_id = ?
		  ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.BookingWithShow
	for rows.Next() {
		var (
			b     model.Booking
			s     model.Show
			seats []byte
			occ   []byte
			ref   sql.NullString
			url   sql.NullString
			paid  sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &seats, &b.AmountCents, &b.Status, &ref, &url,
			&b.CreatedAt, &b.ExpiresAt, &paid,
			&s.ID, &s.MovieID, &s.MovieTitle, &s.StartsAt, &s.PriceCents, &occ, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if err := json.Unmarshal(seats, &b.Seats); err != nil {
			return nil, fmt.Errorf("decode booked_seats: %w", err)
		}
		b.PaymentRef, b.PaymentURL = ref.String, url.String
		if paid.Valid {
			t := paid.Time
			b.PaidAt = &t
		}
		out = append(out, model.BookingWithShow{Booking: b, IsPaid: b.IsPaid(), Show: &s})
	}
	return out, rows.Err()
}

func scanBooking(sc rowScanner) (*model.Booking, error) {
	var (
		b     model.Booking
		seats []byte
		ref   sql.NullString
		url   sql.NullString
		paid  sql.NullTime
	)
	if err := sc.Scan(&b.ID, &b.UserID, &b.ShowID, &seats, &b.AmountCents, &b.Status, &ref, &url, &b.CreatedAt, &b.ExpiresAt, &paid); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &b.Seats); err != nil {
		return nil, fmt.Errorf("decode booked_seats: %w", err)
	}
	b.PaymentRef, b.PaymentURL = ref.String, url.String
	if paid.Valid {
		t := paid.Time
		b.PaidAt = &t
	}
	return &b, nil
}
