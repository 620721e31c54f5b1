package models

import (
	"time"
)

// Follow is one directed edge of the follow graph: UserFollowingID follows
// UserBeingFollowedID. The pair is the primary key.
type Follow struct {
	UserBeingFollowedID uint      `gorm:"primaryKey;autoIncrement:false" json:"user_being_followed_id"`
	UserFollowingID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_following_id"`
	UserBeingFollowed   *User     `gorm:"foreignKey:UserBeingFollowedID;constraint:OnDelete:CASCADE" json:"-"`
	UserFollowing       *User     `gorm:"foreignKey:UserFollowingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}
