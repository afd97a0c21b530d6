package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"minisocial/internal/events"
	"minisocial/internal/featureflags"
)

// LiveFeed is an events.Sink that pushes each event to its recipients'
// websocket connections. With Redis it goes through the Notifier so every
// instance sees it; without Redis it writes to the local hub directly.
type LiveFeed struct {
	notifier *Notifier
	hub      *Hub
	flags    *featureflags.Manager
}

// NewLiveFeed wires the sink. Recipients outside the live_feed rollout are
// skipped; a nil flags manager leaves it on for everyone.
func NewLiveFeed(notifier *Notifier, hub *Hub, flags *featureflags.Manager) *LiveFeed {
	return &LiveFeed{notifier: notifier, hub: hub, flags: flags}
}

type livePayload struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Deliver implements events.Sink.
func (l *LiveFeed) Deliver(ctx context.Context, evt events.Event) error {
	if len(evt.Recipients) == 0 {
		return nil
	}
	data, err := json.Marshal(livePayload{Type: evt.Type, Payload: evt.Payload})
	if err != nil {
		return err
	}
	msg := string(data)

	var errs []error
	for _, uid := range evt.Recipients {
		if l.flags != nil && !l.flags.Enabled(featureflags.LiveFeed, uid) {
			continue
		}
		if l.notifier.Enabled() {
			errs = append(errs, l.notifier.PublishUser(ctx, uid, msg))
			continue
		}
		if l.hub != nil {
			l.hub.Broadcast(uid, msg)
		}
	}
	return errors.Join(errs...)
}
