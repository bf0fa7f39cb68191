package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListAfter(ctx context.Context, afterID string, limit int) ([]model.User, error)
}

const maxSendTries = 3

// Dispatcher consumes booking.confirmed and show.added messages.  Send
// failures are retried, then logged and dropped; a message is never
// redelivered because of a mail problem.
type Dispatcher struct {
	users  UserDirectory
	mailer Mailer
	cfg    config.NotifyConfig
	log    *zap.Logger

	retryInitial time.Duration
	pause        func(ctx context.Context, d time.Duration) bool
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(users UserDirectory, mailer Mailer, cfg config.NotifyConfig, log *zap.Logger) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Dispatcher{
		users:        users,
		mailer:       mailer,
		cfg:          cfg,
		log:          log.Named("notify"),
		retryInitial: 500 * time.Millisecond,
		pause:        sleep,
	}
}

// HandleBookingConfirmed sends the booking confirmation email.
func (d *Dispatcher) HandleBookingConfirmed(ctx context.Context, body []byte) error {
	var ev queue.BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode booking confirmed: %w", err)
	}
	u, err := d.users.GetByID(ctx, ev.UserID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && u.Email == "") {
		d.log.Warn("no email for booking owner", zap.String("booking_id", ev.BookingID), zap.String("user_id", ev.UserID))
		return nil
	}
	if err != nil {
		return err
	}
	msg, err := confirmationMessage(u.Email, u.Name, ev)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	if err := d.send(ctx, msg); err != nil {
		d.log.Error("confirmation email failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
		return nil
	}
	d.log.Info("confirmation email sent", zap.String("booking_id", ev.BookingID))
	return nil
}

// HandleShowAdded announces new shows to every user, BatchSize recipients at
// a time with BatchPause between batches.
func (d *Dispatcher) HandleShowAdded(ctx context.Context, body []byte) error {
	var ev queue.ShowAddedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode show added: %w", err)
	}

	after := ""
	sent, failed, batches := 0, 0, 0
	for {
		users, err := d.users.ListAfter(ctx, after, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}
		if batches > 0 && d.cfg.BatchPause > 0 {
			if !d.pause(ctx, d.cfg.BatchPause) {
				return ctx.Err()
			}
		}
		batches++
		for _, u := range users {
			if u.Email == "" {
				continue
			}
			msg, err := showAddedMessage(u.Email, u.Name, ev)
			if err == nil {
				err = d.send(ctx, msg)
			}
			if err != nil {
				failed++
				d.log.Warn("show announcement failed", zap.String("user_id", u.ID), zap.Error(err))
				continue
			}
			sent++
		}
		after = users[len(users)-1].ID
		if len(users) < d.cfg.BatchSize {
			break
		}
	}
	d.log.Info("show announcement finished",
		zap.String("movie_id", ev.MovieID), zap.Int("sent", sent), zap.Int("failed", failed), zap.Int("batches", batches))
	return nil
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryInitial
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, d.mailer.Send(ctx, msg)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxSendTries))
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
