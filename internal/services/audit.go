package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/models"

	"gorm.io/gorm"
)

const (
	ActionSignup        = "SIGNUP"
	ActionLogin         = "LOGIN"
	ActionLoginFailed   = "LOGIN_FAILED"
	ActionLogout        = "LOGOUT"
	ActionCreateMessage = "CREATE_MESSAGE"
	ActionDeleteMessage = "DELETE_MESSAGE"
	ActionFollow        = "FOLLOW"
	ActionUnfollow      = "UNFOLLOW"
	ActionLike          = "LIKE"
	ActionUnlike        = "UNLIKE"
	ActionUpdateProfile = "UPDATE_PROFILE"
	ActionDeleteAccount = "DELETE_ACCOUNT"
	ActionAccessDenied  = "ACCESS_DENIED"
)

const auditBufferSize = 100

type AuditService struct {
	db      *gorm.DB
	logger  *slog.Logger
	entries chan models.AuditLog
}

func NewAuditService(db *gorm.DB, logger *slog.Logger) *AuditService {
	return &AuditService{
		db:      db,
		logger:  logger,
		entries: make(chan models.AuditLog, auditBufferSize),
	}
}

// Start writes queued entries until ctx is cancelled.
func (s *AuditService) Start(ctx context.Context) {
	s.logger.Info("Audit worker starting")
	for {
		select {
		case entry := <-s.entries:
			if err := s.db.Create(&entry).Error; err != nil {
				s.logger.Error("Failed to write audit log", "action", entry.Action, "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("Audit worker stopping")
			return
		}
	}
}

// LogAction queues an entry without blocking the request; entries are
// dropped when the buffer is full.
func (s *AuditService) LogAction(userID *uint, action, entityID string, details interface{}, ip string) {
	var detailText string
	if details != nil {
		detailBytes, _ := json.Marshal(details)
		detailText = string(detailBytes)
	}

	entry := models.AuditLog{
		UserID:    userID,
		Action:    action,
		EntityID:  entityID,
		Details:   detailText,
		IPAddress: ip,
		Timestamp: time.Now(),
	}

	select {
	case s.entries <- entry:
	default:
		s.logger.Warn("Audit channel full, dropping entry", "action", action)
	}
}

// Entity formats an audit entity reference such as "message:12".
func Entity(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
