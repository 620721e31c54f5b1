package models

import (
	"time"
)

// MaxMessageLength is counted in runes, not bytes.
const MaxMessageLength = 140

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"not null;size:140" json:"text"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Likes     []Like    `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}
