package service

import (
	"context"
	"testing"
	"time"

	"minisocial/internal/models"
	"minisocial/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersByID(all ...models.User) *userRepoStub {
	index := make(map[uint]models.User, len(all))
	for _, u := range all {
		index[u.ID] = u
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			u, ok := index[id]
			if !ok {
				return nil, models.NewNotFoundError("User", id)
			}
			return &u, nil
		},
		getByIDsFn: func(_ context.Context, ids []uint) ([]models.User, error) {
			out := []models.User{}
			for _, id := range ids {
				if u, ok := index[id]; ok {
					out = append(out, u)
				}
			}
			return out, nil
		},
	}
}

func TestFeedService_ComposeFeed(t *testing.T) {
	users := usersByID(
		models.User{ID: 1, Username: "ana", Password: "secret"},
		models.User{ID: 2, Username: "bo"},
		models.User{ID: 3, Username: "cy"},
	)
	follows := noopFollowRepo()
	follows.followingIDsFn = func(context.Context, uint) ([]uint, error) { return []uint{2}, nil }

	now := time.Now()
	var page repository.FeedPage
	posts := &postRepoStub{listByAuthorsFn: func(_ context.Context, q repository.FeedPage) ([]models.Post, error) {
		page = q
		return []models.Post{
			{
				ID: 20, UserID: 2, ContentText: "from bo", CreatedAt: now,
				Likes:    []models.Like{{PostID: 20, UserID: 1}, {PostID: 20, UserID: 3}},
				Comments: []models.Comment{{ID: 1, PostID: 20, UserID: 3, CommentText: "hey", CreatedAt: now}},
			},
			{ID: 10, UserID: 1, ContentText: "mine", CreatedAt: now.Add(-time.Hour)},
		}, nil
	}}

	svc := NewFeedService(users, follows, posts)
	feed, err := svc.ComposeFeed(context.Background(), FeedQuery{UserID: 1, Limit: 500})
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2}, page.AuthorIDs)
	assert.Equal(t, maxFeedLimit, page.Limit)

	require.Len(t, feed, 2)
	assert.Equal(t, models.PublicUser{ID: 2, Username: "bo"}, feed[0].Author)
	assert.Equal(t, []uint{1, 3}, feed[0].Likes)
	assert.Equal(t, 2, feed[0].LikesCount)
	assert.True(t, feed[0].LikedByViewer)
	require.Len(t, feed[0].Comments, 1)
	assert.Equal(t, "cy", feed[0].Comments[0].Author.Username)

	assert.Equal(t, "ana", feed[1].Author.Username)
	assert.False(t, feed[1].LikedByViewer)
	assert.NotNil(t, feed[1].Comments)
	assert.NotNil(t, feed[1].Likes)
}

func TestFeedService_UnknownUser(t *testing.T) {
	posts := &postRepoStub{listByAuthorsFn: func(context.Context, repository.FeedPage) ([]models.Post, error) {
		t.Fatal("posts must not be read")
		return nil, nil
	}}
	svc := NewFeedService(usersByID(), noopFollowRepo(), posts)

	_, err := svc.ComposeFeed(context.Background(), FeedQuery{UserID: 42})
	assert.True(t, models.IsNotFound(err))
}

func TestFeedService_NegativeLimit(t *testing.T) {
	svc := NewFeedService(usersByID(), noopFollowRepo(), &postRepoStub{})
	_, err := svc.ComposeFeed(context.Background(), FeedQuery{UserID: 1, Limit: -1})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestFeedService_DeletedAuthorFallsBackToID(t *testing.T) {
	follows := noopFollowRepo()
	posts := &postRepoStub{listByAuthorsFn: func(context.Context, repository.FeedPage) ([]models.Post, error) {
		return []models.Post{{ID: 1, UserID: 1, Comments: []models.Comment{{ID: 5, UserID: 99}}}}, nil
	}}
	svc := NewFeedService(usersByID(models.User{ID: 1, Username: "ana"}), follows, posts)

	feed, err := svc.ComposeFeed(context.Background(), FeedQuery{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.PublicUser{ID: 99}, feed[0].Comments[0].Author)
}
