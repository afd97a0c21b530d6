package models

import (
	"time"
)

// Post is an authored item with an optional text body and an optional media
// reference. CreatedAt is set once on insert.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_posts_user_created,priority:1" json:"user_id"`
	ContentText string    `gorm:"type:text" json:"content_text"`
	MediaURL    string    `gorm:"size:2048" json:"media_url"`
	CreatedAt   time.Time `gorm:"index:idx_posts_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Likes    []Like    `gorm:"foreignKey:PostID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments"`

	// LikeUserIDs is the like set as a sorted id list; not persisted.
	LikeUserIDs []uint `gorm:"-" json:"likes"`
}

// LikeSet returns the ids of the users who like p.
func (p *Post) LikeSet() IDSet {
	set := NewIDSet()
	for _, l := range p.Likes {
		set.Add(l.UserID)
	}
	return set
}

// Like records that UserID likes PostID. The composite key keeps a user's
// like on a post unique.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "post_likes"
}

// Comment is an element of a post's append-only comment sequence, ordered
// by (CreatedAt, ID).
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index:idx_post_comments_post_created,priority:1" json:"post_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	CreatedAt   time.Time `gorm:"index:idx_post_comments_post_created,priority:2" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "post_comments"
}

// LikeResult is returned by a like toggle.
type LikeResult struct {
	Liked        bool `json:"liked"`
	LikesCount   int  `json:"likes_count"`
	PostAuthorID uint `json:"-"`
}

// CommentThread is a post's comment sequence right after an append.
type CommentThread struct {
	PostID       uint
	PostAuthorID uint
	Comments     []Comment
}

// FeedComment is a comment with its author resolved.
type FeedComment struct {
	ID          uint       `json:"id"`
	Author      PublicUser `json:"author"`
	CommentText string     `json:"comment_text"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FeedPost is a post as it appears in a feed: author and commenters
// resolved, likes reduced to ids and a count.
type FeedPost struct {
	ID            uint          `json:"id"`
	Author        PublicUser    `json:"author"`
	ContentText   string        `json:"content_text"`
	MediaURL      string        `json:"media_url"`
	Likes         []uint        `json:"likes"`
	LikesCount    int           `json:"likes_count"`
	LikedByViewer bool          `json:"liked_by_viewer"`
	Comments      []FeedComment `json:"comments"`
	CreatedAt     time.Time     `json:"created_at"`
}
