// Package events publishes domain events (posts, likes, comments, follows)
// to a message broker and to in-process sinks such as the live feed.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypePostCreated   = "post_created"
	TypeLikeToggled   = "like_toggled"
	TypeCommentAdded  = "comment_added"
	TypeFollowToggled = "follow_toggled"
)

// Event is a committed change. Recipients are the users the live feed
// should notify; brokers receive the whole event.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ActorID    uint      `json:"actor_id"`
	Recipients []uint    `json:"recipients,omitempty"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(eventType string, actorID uint, payload any, recipients ...uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		Recipients: recipients,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Encode renders e as JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Sink receives events in-process after they are published.
type Sink interface {
	Deliver(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, evt Event) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
