package events

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend publishes over Redis pub/sub. Delivery is at-most-once: only
// subscribers connected at publish time see a message.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend wraps an existing client. The caller owns the client.
func NewRedisBackend(rdb *redis.Client) (*RedisBackend, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisBackend{rdb: rdb}, nil
}

// Publish sends data on channel. Attributes are not carried; consumers read
// the type from the JSON body.
func (r *RedisBackend) Publish(ctx context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("redis channel is required")
	}
	if err := r.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// Subscribe delivers messages on channel to handler until ctx is done.
func (r *RedisBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("redis channel is required")
	}
	sub := r.rdb.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			// No redelivery on pub/sub; handler errors are dropped.
			_ = handler(ctx, Message{Data: []byte(msg.Payload)})
		}
	}
}

// Close is a no-op; the shared client is closed by its owner.
func (r *RedisBackend) Close() error { return nil }
