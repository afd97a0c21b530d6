// Package service holds the social core: follow and like toggles, comment
// append, feed composition, user search and media upload. Services are
// stateless over the repositories.
package service

import (
	"context"

	"minisocial/internal/events"
)

// Emitter receives domain events for committed changes.
type Emitter interface {
	Emit(ctx context.Context, evt events.Event)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, events.Event) {}

func emitterOrNop(e Emitter) Emitter {
	if e == nil {
		return nopEmitter{}
	}
	return e
}
