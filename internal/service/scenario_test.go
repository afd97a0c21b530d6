package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"minisocial/internal/database"
	"minisocial/internal/events"
	"minisocial/internal/models"
	"minisocial/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	users    repository.UserRepository
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	feed     *FeedService
	people   *UserService
	emitter  *recordingEmitter
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	emitter := &recordingEmitter{}

	return &world{
		users:    userRepo,
		posts:    NewPostService(postRepo, followRepo, emitter),
		comments: NewCommentService(commentRepo, emitter),
		follows:  NewFollowService(followRepo, nil, emitter),
		feed:     NewFeedService(userRepo, followRepo, postRepo),
		people:   NewUserService(userRepo, followRepo, nil, nil),
		emitter:  emitter,
	}
}

func (w *world) user(t *testing.T, name string) uint {
	t.Helper()
	u := &models.User{Username: name, Password: "x"}
	require.NoError(t, w.users.Create(context.Background(), u))
	return u.ID
}

func (w *world) post(t *testing.T, author uint, text string) uint {
	t.Helper()
	p, err := w.posts.CreatePost(context.Background(), CreatePostInput{UserID: author, ContentText: text})
	require.NoError(t, err)
	// Distinct timestamps keep the ordering assertions about time, not id.
	time.Sleep(2 * time.Millisecond)
	return p.ID
}

func TestScenario_FollowLikeCommentFeed(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	u1, u2 := w.user(t, "u1"), w.user(t, "u2")

	res, err := w.follows.ToggleFollow(ctx, u1, u2)
	require.NoError(t, err)
	assert.True(t, res.Followed)
	assert.Equal(t, []uint{u2}, res.Following)
	assert.Equal(t, []uint{u1}, res.Followers)

	p := w.post(t, u2, "hello")

	like, err := w.posts.ToggleLike(ctx, u1, p)
	require.NoError(t, err)
	assert.Equal(t, &models.LikeResult{Liked: true, LikesCount: 1, PostAuthorID: u2}, like)

	comments, err := w.comments.AddComment(ctx, AddCommentInput{UserID: u1, PostID: p, Text: "nice"})
	require.NoError(t, err)
	require.Len(t, comments, 1)

	feed, err := w.feed.ComposeFeed(ctx, FeedQuery{UserID: u1})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "u2", feed[0].Author.Username)
	assert.Equal(t, []uint{u1}, feed[0].Likes)
	assert.True(t, feed[0].LikedByViewer)
	require.Len(t, feed[0].Comments, 1)
	assert.Equal(t, "nice", feed[0].Comments[0].CommentText)
	assert.Equal(t, "u1", feed[0].Comments[0].Author.Username)

	// Toggling twice restores the original state.
	res, err = w.follows.ToggleFollow(ctx, u1, u2)
	require.NoError(t, err)
	assert.False(t, res.Followed)
	assert.Empty(t, res.Following)
	assert.Empty(t, res.Followers)

	types := make([]string, 0, len(w.emitter.events))
	for _, e := range w.emitter.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		events.TypeFollowToggled, events.TypePostCreated, events.TypeLikeToggled,
		events.TypeCommentAdded, events.TypeFollowToggled,
	}, types)
}

func TestScenario_FeedComposition(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	a, b, c, d := w.user(t, "a"), w.user(t, "b"), w.user(t, "c"), w.user(t, "d")

	_, err := w.follows.ToggleFollow(ctx, a, b)
	require.NoError(t, err)
	_, err = w.follows.ToggleFollow(ctx, a, c)
	require.NoError(t, err)

	pb := w.post(t, b, "b1")
	_ = w.post(t, d, "d1")
	pa := w.post(t, a, "a1")
	pc := w.post(t, c, "c1")

	feed, err := w.feed.ComposeFeed(ctx, FeedQuery{UserID: a})
	require.NoError(t, err)
	ids := make([]uint, 0, len(feed))
	for _, p := range feed {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []uint{pc, pa, pb}, ids)

	page, err := w.feed.ComposeFeed(ctx, FeedQuery{UserID: a, Limit: 1, BeforeID: pa})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, pb, page[0].ID)

	// A user nobody follows and who follows nobody sees only their own posts.
	feed, err = w.feed.ComposeFeed(ctx, FeedQuery{UserID: d})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "d1", feed[0].ContentText)
}

func TestScenario_ProfileAndSearch(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice, bob := w.user(t, "Alice"), w.user(t, "bob_smith")
	_ = w.user(t, "carol")

	_, err := w.follows.ToggleFollow(ctx, bob, alice)
	require.NoError(t, err)

	profile, err := w.people.GetUserProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []models.PublicUser{{ID: bob, Username: "bob_smith"}}, profile.Followers)
	assert.Empty(t, profile.Following)

	found, err := w.people.SearchUsers(ctx, "ALI", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice", found[0].Username)

	// Underscore is literal, not a wildcard.
	found, err = w.people.SearchUsers(ctx, "b_s", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = w.people.SearchUsers(ctx, "o_", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestScenario_ConcurrentLikesStayConsistent(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	author := w.user(t, "author")
	p := w.post(t, author, "popular")

	fans := make([]uint, 0, 6)
	for _, n := range []string{"f1", "f2", "f3", "f4", "f5", "f6"} {
		fans = append(fans, w.user(t, n))
	}

	var wg sync.WaitGroup
	for _, id := range fans {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := w.posts.ToggleLike(ctx, id, p)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	feed, err := w.feed.ComposeFeed(ctx, FeedQuery{UserID: author})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, len(fans), feed[0].LikesCount)
	assert.ElementsMatch(t, fans, feed[0].Likes)
}
