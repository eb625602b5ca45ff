package redis

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RefreshBus implements domain.RefreshBus over a single Redis Pub/Sub
// channel, {prefix}refresh.
type RefreshBus struct {
	c *Client
}

// NewRefreshBus creates a RefreshBus backed by the given Client.
func NewRefreshBus(c *Client) *RefreshBus {
	return &RefreshBus{c: c}
}

func (rb *RefreshBus) channel() string { return rb.c.key("refresh") }

// Publish sends payload to every subscriber.
func (rb *RefreshBus) Publish(ctx context.Context, payload []byte) error {
	if err := rb.c.rdb.Publish(ctx, rb.channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", rb.channel(), err)
	}
	return nil
}

// Subscribe returns a channel of payloads. The subscription and the returned
// channel are closed when ctx is cancelled.
func (rb *RefreshBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := rb.c.rdb.Subscribe(ctx, rb.channel())

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", rb.channel(), err)
	}

	out := make(chan []byte, 16)
	go pump(ctx, pubsub, out)
	return out, nil
}

func pump(ctx context.Context, pubsub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Compile-time interface check.
var _ domain.RefreshBus = (*RefreshBus)(nil)
