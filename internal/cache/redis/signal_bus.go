package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/akbaridria/obrix/internal/domain"
)

// subscriberBuffer bounds how far a slow subscriber may lag before go-redis
// starts dropping messages for it.
const subscriberBuffer = 256

// SignalBus fans out metrics and alert events over Redis Pub/Sub. Delivery
// is best effort; missed events can be re-read from the REST API.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus on c.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends payload to channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, or on a pattern when channel contains glob
// characters. The returned stream closes when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	subscribe := sb.rdb.Subscribe
	if hasPattern(channel) {
		subscribe = sb.rdb.PSubscribe
	}
	pubsub := subscribe(ctx, channel)

	// The first reply confirms the subscription or carries its error.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte)
	go forward(ctx, pubsub, out)
	return out, nil
}

func forward(ctx context.Context, pubsub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer pubsub.Close()

	in := pubsub.Channel(redis.WithChannelSize(subscriberBuffer))
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			msg = m
		}

		select {
		case out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

var _ domain.SignalBus = (*SignalBus)(nil)
