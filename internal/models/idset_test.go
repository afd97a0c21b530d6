package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSet(t *testing.T) {
	t.Parallel()

	s := NewIDSet(5, 1, 5, 3)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))

	s.Add(2)
	s.Remove(5)
	s.Remove(42)
	assert.Equal(t, []uint{1, 2, 3}, s.Slice())

	empty := NewIDSet()
	assert.NotNil(t, empty.Slice())
	assert.Empty(t, empty.Slice())
}

func TestPost_LikeSet(t *testing.T) {
	t.Parallel()

	p := Post{Likes: []Like{{PostID: 1, UserID: 4}, {PostID: 1, UserID: 2}}}
	set := p.LikeSet()
	assert.True(t, set.Has(4))
	assert.True(t, set.Has(2))
	assert.Equal(t, []uint{2, 4}, set.Slice())
}

func TestUser_PublicOmitsCredentials(t *testing.T) {
	t.Parallel()

	u := User{ID: 3, Username: "ana", Password: "hash", ProfilePicURL: "/uploads/a.webp", Bio: "hi"}
	assert.Equal(t, PublicUser{ID: 3, Username: "ana", ProfilePicURL: "/uploads/a.webp"}, u.Public())
}
