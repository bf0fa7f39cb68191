package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes JSON messages to the default exchange.  It keeps one
// connection and channel open and redials lazily after a failure.  Callers
// treat publish errors as non-fatal.
type Publisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the broker at url.  No connection is
// made until the first publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log.Named("publisher")}
}

// PublishBookingConfirmed publishes to BookingConfirmedQueue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publishJSON(ctx, BookingConfirmedQueue, ev, 0)
}

// PublishShowAdded publishes to ShowAddedQueue.
func (p *Publisher) PublishShowAdded(ctx context.Context, ev ShowAddedEvent) error {
	return p.publishJSON(ctx, ShowAddedQueue, ev, 0)
}

// PublishHoldExpiry parks msg in HoldWaitQueue until delay has passed.
func (p *Publisher) PublishHoldExpiry(ctx context.Context, msg HoldExpiryMessage, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return p.publishJSON(ctx, HoldWaitQueue, msg, delay)
}

func (p *Publisher) publishJSON(ctx context.Context, queue string, v any, ttl time.Duration) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queue, err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if queue == HoldWaitQueue {
		pub.Expiration = expiration(ttl)
	}

	ch, err := p.channel(queue)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.reset()
		p.log.Warn("publish failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	return nil
}

// expiration formats a per-message TTL in milliseconds as AMQP expects.
func expiration(ttl time.Duration) string {
	return strconv.FormatInt(ttl.Milliseconds(), 10)
}

func (p *Publisher) channel(queue string) (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		_ = p.conn.Close()
		p.conn = nil
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := DeclareAll(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}

// Close shuts the connection down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
