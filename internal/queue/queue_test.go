package queue

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestQueueArgs_WaitQueueDeadLettersToExpired(t *testing.T) {
	args := queueArgs(HoldWaitQueue)
	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": HoldExpiredQueue,
	}, args)

	assert.Nil(t, queueArgs(HoldExpiredQueue))
	assert.Nil(t, queueArgs(BookingConfirmedQueue))
}

func TestExpiration(t *testing.T) {
	assert.Equal(t, "600000", expiration(10*time.Minute))
	assert.Equal(t, "0", expiration(0))
	assert.Equal(t, "1500", expiration(1500*time.Millisecond))
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}

func TestRedialBackOff_GrowsToCapAndResets(t *testing.T) {
	b := newRedialBackOff()

	first := b.NextBackOff()
	assert.GreaterOrEqual(t, first, 500*time.Millisecond)
	assert.LessOrEqual(t, first, 1500*time.Millisecond)

	var last time.Duration
	for range 20 {
		last = b.NextBackOff()
	}
	// capped at 30s, give or take the default 50% jitter
	assert.GreaterOrEqual(t, last, 15*time.Second)
	assert.LessOrEqual(t, last, 45*time.Second)

	b.Reset()
	assert.LessOrEqual(t, b.NextBackOff(), 1500*time.Millisecond)
}
