package service

import (
	"context"

	"minisocial/internal/cache"
	"minisocial/internal/events"
	"minisocial/internal/models"
	"minisocial/internal/observability"
	"minisocial/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// FollowService toggles follow edges.
type FollowService struct {
	followRepo repository.FollowRepository
	rdb        *redis.Client
	events     Emitter
}

// NewFollowService returns a FollowService. rdb may be nil.
func NewFollowService(followRepo repository.FollowRepository, rdb *redis.Client, emitter Emitter) *FollowService {
	return &FollowService{followRepo: followRepo, rdb: rdb, events: emitterOrNop(emitter)}
}

// ToggleFollow makes actorID follow targetID, or stop following if it
// already does. Following yourself is rejected before anything is read.
func (s *FollowService) ToggleFollow(ctx context.Context, actorID, targetID uint) (res *models.FollowResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "ToggleFollow",
		attribute.Int64("user.id", int64(actorID)),
		attribute.Int64("target.id", int64(targetID)))
	defer func() { observability.EndSpan(span, err) }()

	if actorID == targetID {
		return nil, models.NewInvalidOperationError("You cannot follow yourself")
	}

	res, err = s.followRepo.Toggle(ctx, actorID, targetID)
	observability.RecordAction("toggle_follow", err == nil)
	if err != nil {
		return nil, err
	}

	cache.InvalidateProfiles(ctx, s.rdb, actorID, targetID)
	s.events.Emit(ctx, events.New(events.TypeFollowToggled, actorID, map[string]any{
		"follower_id":  actorID,
		"following_id": targetID,
		"followed":     res.Followed,
	}, targetID))

	return res, nil
}
