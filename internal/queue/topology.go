package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// queueArgs returns the declaration arguments for name.  Declaring a queue
// twice with different arguments is a channel error, so every caller goes
// through here.
func queueArgs(name string) amqp.Table {
	if name == HoldWaitQueue {
		return amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": HoldExpiredQueue,
		}
	}
	return nil
}

// Declare makes sure the named durable queues exist.
func Declare(ch *amqp.Channel, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, queueArgs(name)); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}
	return nil
}

// DeclareAll declares the full topology.
func DeclareAll(ch *amqp.Channel) error {
	return Declare(ch, HoldExpiredQueue, HoldWaitQueue, BookingConfirmedQueue, ShowAddedQueue)
}
