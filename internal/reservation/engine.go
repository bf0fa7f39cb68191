// Package reservation implements the seat hold lifecycle: holding seats for
// a pending booking, confirming it once paid and releasing it when the hold
// expires unpaid.
//
// Occupancy for a show lives in one versioned document (the show row).  All
// writes are compare-and-set on that version, so engines in several
// processes can run against the same store without a shared lock and no lock
// is ever held across I/O.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// ShowStore loads shows and writes their occupancy with a version check.
type ShowStore interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
	// UpdateOccupancy must fail with repository.ErrVersionConflict when the
	// stored version differs from s.Version, and bump s.Version on success.
	UpdateOccupancy(ctx context.Context, s *model.Show) error
}

// BookingStore persists bookings.  MarkPaid and MarkReleasing are
// compare-and-set from PENDING and report whether they won.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	SetPayment(ctx context.Context, id, ref, url string) error
	MarkPaid(ctx context.Context, id string, at time.Time) (bool, error)
	MarkReleasing(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ReleaseScheduler arranges for a booking's hold to be released at fireAt.
// Delivery may be late or repeated but must survive restarts.
type ReleaseScheduler interface {
	Schedule(ctx context.Context, bookingID string, fireAt time.Time) error
}

// PaymentGateway opens a hosted checkout for a held booking.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error)
}

// EventPublisher emits outbound notifications.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Config tunes the engine.
type Config struct {
	Layout          model.SeatLayout
	HoldTTL         time.Duration
	MaxSeats        int
	MaxWriteRetries int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg       Config
	shows     ShowStore
	bookings  BookingStore
	scheduler ReleaseScheduler
	payments  PaymentGateway
	events    EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewEngine wires an engine.  Zero config values fall back to a 10×9 grid,
// a 10 minute hold, 5 seats per booking and 8 write attempts.
func NewEngine(cfg Config, shows ShowStore, bookings BookingStore, scheduler ReleaseScheduler,
	payments PaymentGateway, events EventPublisher, log *zap.Logger) *Engine {
	if cfg.Layout.Rows == 0 || cfg.Layout.Cols == 0 {
		cfg.Layout = model.DefaultSeatLayout
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 5
	}
	if cfg.MaxWriteRetries <= 0 {
		cfg.MaxWriteRetries = 8
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       cfg,
		shows:     shows,
		bookings:  bookings,
		scheduler: scheduler,
		payments:  payments,
		events:    events,
		log:       log.Named("reservation"),
		now:       now,
	}
}

// Layout returns the seat grid every show uses.
func (e *Engine) Layout() model.SeatLayout { return e.cfg.Layout }

// RequestHold places an all-or-nothing hold on seats for userID.  On success
// the returned booking is pending, its amount is fixed, a release is
// scheduled for its ExpiresAt and PaymentURL is set.
//
// If the payment gateway fails after the seats are held, the booking is
// returned together with an ErrPaymentUnavailable error; the hold is kept and
// expires normally.
func (e *Engine) RequestHold(ctx context.Context, showID string, seats []string, userID string) (*model.Booking, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if err := e.validateSeats(seats); err != nil {
		return nil, err
	}

	show, err := e.loadShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	if show.HasStarted(now) {
		return nil, ErrShowStarted
	}
	if taken := takenSeats(show, seats, ""); len(taken) > 0 {
		return nil, &SeatConflictError{Seats: taken}
	}
	amount, ok := show.PriceCents.Mul(len(seats))
	if !ok || show.PriceCents < 0 || show.PriceCents > model.MaxPriceCents {
		return nil, ErrInvalidPrice
	}

	b := &model.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		ShowID:      show.ID,
		Seats:       append([]string(nil), seats...),
		AmountCents: amount,
		Status:      model.BookingPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.cfg.HoldTTL),
	}
	if err := e.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := e.occupy(ctx, show, b); err != nil {
		e.abandon(ctx, b, err)
		return nil, err
	}

	log := e.log.With(zap.String("booking_id", b.ID), zap.String("show_id", show.ID))
	log.Info("seats held", zap.Strings("seats", b.Seats), zap.Int64("amount_cents", int64(b.AmountCents)),
		zap.Time("expires_at", b.ExpiresAt))

	if err := e.scheduler.Schedule(ctx, b.ID, b.ExpiresAt); err != nil {
		// expires_at is already durable; the sweep releases it if this message never arrives.
		log.Warn("schedule release failed", zap.Error(err))
	}

	co, err := e.payments.CreateCheckout(ctx, payment.CheckoutRequest{
		BookingID:       b.ID,
		ShowID:          show.ID,
		MovieTitle:      show.MovieTitle,
		StartsAt:        show.StartsAt,
		Seats:           b.Seats,
		UnitAmountCents: int64(show.PriceCents),
		AmountCents:     int64(b.AmountCents),
		ExpiresAt:       b.ExpiresAt,
	})
	if err != nil {
		log.Error("create checkout failed", zap.Error(err))
		return b, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	b.PaymentRef, b.PaymentURL = co.Reference, co.URL
	if err := e.bookings.SetPayment(ctx, b.ID, co.Reference, co.URL); err != nil {
		log.Error("store payment link failed", zap.Error(err))
		return b, fmt.Errorf("store payment link: %w", err)
	}
	return b, nil
}

// Confirm marks a booking paid.  It never touches occupancy: the seats are
// already held by this booking.  Repeated calls are harmless and the
// confirmation event is published only by the call that flips the state.
func (e *Engine) Confirm(ctx context.Context, bookingID string) (ConfirmOutcome, error) {
	won, err := e.bookings.MarkPaid(ctx, bookingID, e.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark paid: %w", err)
	}
	log := e.log.With(zap.String("booking_id", bookingID))

	if !won {
		b, err := e.bookings.GetByID(ctx, bookingID)
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			log.Warn("payment received for a released booking")
			return AlreadyReleased, nil
		case err != nil:
			return 0, fmt.Errorf("load booking: %w", err)
		case b.IsPaid():
			return AlreadyConfirmed, nil
		default:
			log.Warn("payment received for a booking being released", zap.String("status", string(b.Status)))
			return AlreadyReleased, nil
		}
	}

	log.Info("booking confirmed")
	e.publishConfirmed(ctx, bookingID)
	return Confirmed, nil
}

// Release returns a booking's seats and deletes it, unless it is paid.  It
// is idempotent and resumes a release that was interrupted midway.
func (e *Engine) Release(ctx context.Context, bookingID string) (ReleaseOutcome, error) {
	return e.release(ctx, bookingID, false)
}

// ReleaseExpired is Release for the deferred-release path: a booking whose
// hold has not expired yet is rescheduled instead of released.
func (e *Engine) ReleaseExpired(ctx context.Context, bookingID string) (ReleaseOutcome, error) {
	return e.release(ctx, bookingID, true)
}

func (e *Engine) release(ctx context.Context, bookingID string, onlyExpired bool) (ReleaseOutcome, error) {
	b, err := e.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return ReleaseSkippedGone, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load booking: %w", err)
	}

	switch b.Status {
	case model.BookingPaid:
		return ReleaseSkippedPaid, nil
	case model.BookingPending:
		if onlyExpired && e.now().Before(b.ExpiresAt) {
			if err := e.scheduler.Schedule(ctx, b.ID, b.ExpiresAt); err != nil {
				e.log.Warn("reschedule release failed", zap.String("booking_id", b.ID), zap.Error(err))
			}
			return ReleaseNotDue, nil
		}
		won, err := e.bookings.MarkReleasing(ctx, b.ID)
		if err != nil {
			return 0, fmt.Errorf("claim booking: %w", err)
		}
		if !won {
			// Lost to Confirm or to another releaser; look again.
			return e.release(ctx, bookingID, false)
		}
	case model.BookingReleasing:
		// interrupted release; finish it
	}

	if err := e.freeSeats(ctx, b); err != nil {
		return 0, err
	}
	if _, err := e.bookings.Delete(ctx, b.ID); err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	e.log.Info("hold released", zap.String("booking_id", b.ID), zap.String("show_id", b.ShowID),
		zap.Strings("seats", b.Seats))
	return Released, nil
}

// GetOccupiedSeats lists held and sold seats of a show in grid order.
func (e *Engine) GetOccupiedSeats(ctx context.Context, showID string) ([]string, error) {
	show, err := e.loadShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	return show.OccupiedLabels(), nil
}

func (e *Engine) validateSeats(seats []string) error {
	if len(seats) == 0 || len(seats) > e.cfg.MaxSeats {
		return fmt.Errorf("%w: %d seats requested, allowed 1 to %d", ErrInvalidSeatCount, len(seats), e.cfg.MaxSeats)
	}
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if !e.cfg.Layout.Contains(s) {
			return fmt.Errorf("%w: %q", ErrInvalidSeatLabel, s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSeat, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func (e *Engine) loadShow(ctx context.Context, id string) (*model.Show, error) {
	show, err := e.shows.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load show: %w", err)
	}
	return show, nil
}

// takenSeats returns the requested seats held by anyone other than owner.
func takenSeats(show *model.Show, seats []string, owner string) []string {
	var taken []string
	for _, s := range seats {
		if holder, ok := show.OccupiedSeats[s]; ok && holder != owner {
			taken = append(taken, s)
		}
	}
	return taken
}

// occupy writes b's seats into the show's occupancy, re-reading and
// re-checking after every version conflict.
func (e *Engine) occupy(ctx context.Context, show *model.Show, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		if taken := takenSeats(show, b.Seats, b.ID); len(taken) > 0 {
			return &SeatConflictError{Seats: taken}
		}
		next := show.Clone()
		for _, s := range b.Seats {
			next.OccupiedSeats[s] = b.ID
		}

		err := e.shows.UpdateOccupancy(ctx, next)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrShowNotFound):
			return ErrShowNotFound
		case !errors.Is(err, repository.ErrVersionConflict):
			return fmt.Errorf("save occupancy: %w", err)
		case attempt >= e.cfg.MaxWriteRetries:
			return ErrContention
		}

		if err := pause(ctx, attempt); err != nil {
			return err
		}
		if show, err = e.loadShow(ctx, show.ID); err != nil {
			return err
		}
	}
}

// freeSeats removes from the show every seat still marked with b's id.
// Seats already reassigned are left alone.
func (e *Engine) freeSeats(ctx context.Context, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		show, err := e.loadShow(ctx, b.ShowID)
		if errors.Is(err, ErrShowNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		next := show.Clone()
		changed := false
		for _, s := range b.Seats {
			if next.OccupiedSeats[s] == b.ID {
				delete(next.OccupiedSeats, s)
				changed = true
			}
		}
		if !changed {
			return nil
		}

		err = e.shows.UpdateOccupancy(ctx, next)
		switch {
		case err == nil, errors.Is(err, repository.ErrShowNotFound):
			return nil
		case !errors.Is(err, repository.ErrVersionConflict):
			return fmt.Errorf("save occupancy: %w", err)
		case attempt >= e.cfg.MaxWriteRetries:
			return ErrContention
		}
		if err := pause(ctx, attempt); err != nil {
			return err
		}
	}
}

// abandon cleans up after a hold that failed once its booking row existed.
// Anything left behind is picked up by the expiry sweep.
func (e *Engine) abandon(ctx context.Context, b *model.Booking, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := e.release(ctx, b.ID, false); err != nil {
		e.log.Warn("abandon hold failed; left for sweep",
			zap.String("booking_id", b.ID), zap.NamedError("cause", cause), zap.Error(err))
	}
}

func (e *Engine) publishConfirmed(ctx context.Context, bookingID string) {
	log := e.log.With(zap.String("booking_id", bookingID))
	b, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		log.Warn("confirmation event skipped", zap.Error(err))
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.Seats,
		AmountCents: int64(b.AmountCents),
		ConfirmedAt: e.now().UTC(),
	}
	if show, err := e.shows.GetByID(ctx, b.ShowID); err == nil {
		ev.MovieTitle, ev.StartsAt = show.MovieTitle, show.StartsAt
	}
	if err := e.events.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Warn("publish booking confirmed failed", zap.Error(err))
	}
}

// pause waits a few jittered milliseconds before a retry.
func pause(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*5*time.Millisecond + time.Duration(rand.IntN(5))*time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
