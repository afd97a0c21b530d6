package events

import (
	"context"
	"fmt"

	"minisocial/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewBackend builds the broker selected by EVENTS_BACKEND. The redis backend
// reuses rdb and degrades to no broker when Redis is unavailable.
func NewBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client) (Backend, string, error) {
	switch cfg.EventsBackend {
	case "rabbitmq":
		b, err := NewRabbitMQClient(RabbitMQConfig{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, "", fmt.Errorf("connect rabbitmq: %w", err)
		}
		return b, "rabbitmq", nil
	case "pubsub":
		b, err := NewPubSubClient(ctx, PubSubConfig{
			ProjectID:       cfg.PubSubProjectID,
			CredentialsFile: cfg.PubSubCredentialsFile,
		})
		if err != nil {
			return nil, "", fmt.Errorf("connect pubsub: %w", err)
		}
		return b, "pubsub", nil
	case "redis", "":
		if rdb == nil {
			return NopBackend{}, "none", nil
		}
		b, err := NewRedisBackend(rdb)
		if err != nil {
			return nil, "", err
		}
		return b, "redis", nil
	default:
		return NopBackend{}, "none", nil
	}
}
