package models

import (
	"time"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`           // Nullable for anonymous actions and failed logins
	Action    string    `gorm:"size:50;not null" json:"action"` // e.g. "LOGIN", "CREATE_MESSAGE", "FOLLOW"
	EntityID  string    `gorm:"size:50" json:"entity_id"`       // "message:12", "user:3"
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	Timestamp time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}
