// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account in the social graph.
// Username is unique and stored case-sensitive; search matches it case-insensitively.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Password      string    `gorm:"not null" json:"-"`
	ProfilePicURL string    `gorm:"size:2048" json:"profile_pic_url"`
	Bio           string    `gorm:"size:500" json:"bio"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PublicUser is the credential-free projection used in search results,
// feed authors and follower lists.
type PublicUser struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// Public returns the public projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		ProfilePicURL: u.ProfilePicURL,
	}
}

// UserProfile is a user with both sides of the follow relation resolved.
type UserProfile struct {
	ID            uint         `json:"id"`
	Username      string       `json:"username"`
	ProfilePicURL string       `json:"profile_pic_url"`
	Bio           string       `json:"bio"`
	Following     []PublicUser `json:"following"`
	Followers     []PublicUser `json:"followers"`
	CreatedAt     time.Time    `json:"created_at"`
}
