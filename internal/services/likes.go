package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warbler/internal/models"

	"gorm.io/gorm"
)

type LikeService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewLikeService(db *gorm.DB, publisher EventPublisher) *LikeService {
	return &LikeService{
		db:        db,
		publisher: publisherOrNoop(publisher),
	}
}

// Toggle likes messageID for userID, or removes the like when one exists.
// It reports whether the message is liked afterwards. Users cannot like
// their own messages.
func (s *LikeService) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if msg.UserID == userID {
			return ErrForbidden
		}

		res := tx.Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		liked = true
		return tx.Create(&models.Like{UserID: userID, MessageID: messageID}).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
			return false, err
		case isUniqueViolation(err):
			return false, fmt.Errorf("like %d/%d: %w", userID, messageID, ErrDuplicate)
		}
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	if liked {
		s.publisher.Publish(SubjectMessageLiked, LikeEvent{
			UserID:    userID,
			MessageID: messageID,
			Timestamp: time.Now().UTC(),
		})
	}
	return liked, nil
}

// LikedMessages returns the messages userID liked, newest first.
func (s *LikeService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("messages.timestamp desc, messages.id desc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list liked messages: %w", err)
	}
	return msgs, nil
}

func (s *LikeService) LikedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Pluck("message_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list liked ids: %w", err)
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
