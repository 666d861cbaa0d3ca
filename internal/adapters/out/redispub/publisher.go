// Package redispub publishes domain events to Redis pub/sub channels for
// external consumers. Delivery is fire-and-forget from the service's point
// of view; subscribers that need durability should bridge the channel into
// their own store.
package redispub

import (
	"context"
	"encoding/json"
	"fmt"

	"allocation/internal/core/application/messages"

	"github.com/redis/go-redis/v9"
)

// Publisher implements ports.EventPublisher over a Redis client.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a publisher over an already-configured client.
// The caller owns the client's lifecycle.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish JSON-encodes the event and publishes it on the topic channel.
func (p *Publisher) Publish(ctx context.Context, topic string, event messages.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redispub: marshal %s: %w", event.Name(), err)
	}

	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redispub: publish %s to %s: %w", event.Name(), topic, err)
	}
	return nil
}
