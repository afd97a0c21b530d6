package service

import (
	"context"
	"sync"

	"minisocial/internal/events"
	"minisocial/internal/models"
	"minisocial/internal/repository"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByIDsFn      func(context.Context, []uint) ([]models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	searchFn        func(context.Context, string, int) ([]models.User, error)
	countFn         func(context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	return s.searchFn(ctx, query, limit)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

type followRepoStub struct {
	toggleFn       func(context.Context, uint, uint) (*models.FollowResult, error)
	followingIDsFn func(context.Context, uint) ([]uint, error)
	followerIDsFn  func(context.Context, uint) ([]uint, error)
	followingFn    func(context.Context, uint) ([]models.User, error)
	followersFn    func(context.Context, uint) ([]models.User, error)
}

func (s *followRepoStub) Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowResult, error) {
	return s.toggleFn(ctx, followerID, followingID)
}
func (s *followRepoStub) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followingIDsFn(ctx, userID)
}
func (s *followRepoStub) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followerIDsFn(ctx, userID)
}
func (s *followRepoStub) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followingFn(ctx, userID)
}
func (s *followRepoStub) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followersFn(ctx, userID)
}

type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listByAuthorsFn func(context.Context, repository.FeedPage) ([]models.Post, error)
	toggleLikeFn    func(context.Context, uint, uint) (*models.LikeResult, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListByAuthors(ctx context.Context, q repository.FeedPage) ([]models.Post, error) {
	return s.listByAuthorsFn(ctx, q)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}

type commentRepoStub struct {
	appendFn     func(context.Context, *models.Comment) (*models.CommentThread, error)
	listByPostFn func(context.Context, uint) ([]models.Comment, error)
}

func (s *commentRepoStub) Append(ctx context.Context, comment *models.Comment) (*models.CommentThread, error) {
	return s.appendFn(ctx, comment)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
