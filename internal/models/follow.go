package models

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// The follower's "following" set and the target's "followers" set are both
// read from this one row, so they can never disagree.
type Follow struct {
	FollowerID  uint      `gorm:"primaryKey;autoIncrement:false;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	FollowingID uint      `gorm:"primaryKey;autoIncrement:false;index:idx_follows_following" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Following User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// FollowResult is returned by a follow toggle: the actor's following set and
// the target's followers set after the change.
type FollowResult struct {
	Followed  bool   `json:"followed"`
	Following []uint `json:"following"`
	Followers []uint `json:"followers"`
}
