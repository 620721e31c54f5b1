package models

import (
	"time"
)

type ProfileView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"` // Profile owner
	ViewerID   *uint     `gorm:"index" json:"viewer_id,omitempty"`
	Timestamp  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
	IPAddress  string    `gorm:"size:45" json:"ip_address,omitempty"`
	Country    string    `gorm:"size:100;default:'Unknown'" json:"country"`
	City       string    `gorm:"size:100" json:"city"`
	Region     string    `gorm:"size:100" json:"region"`
	Browser    string    `gorm:"size:50" json:"browser"`
	OS         string    `gorm:"size:100" json:"os"`
	DeviceType string    `gorm:"size:50" json:"device_type"`
	UserAgent  string    `gorm:"size:255" json:"-"` // Raw header, parsed by the stats worker
}
