package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/models"

	"gorm.io/gorm"
)

type MessageService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewMessageService(db *gorm.DB, publisher EventPublisher) *MessageService {
	return &MessageService{
		db:        db,
		publisher: publisherOrNoop(publisher),
	}
}

func (s *MessageService) Create(ctx context.Context, authorID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: text is longer than %d characters", ErrInvalidMessage, models.MaxMessageLength)
	}

	msg := models.Message{
		Text:      text,
		Timestamp: time.Now().UTC(),
		UserID:    authorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.publisher.Publish(SubjectMessageCreated, MessageEvent{
		MessageID: msg.ID,
		UserID:    msg.UserID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	return &msg, nil
}

func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).Preload("User").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load message %d: %w", id, err)
	}
	return &msg, nil
}

// Delete removes a message on behalf of actorID, who must be its author.
func (s *MessageService) Delete(ctx context.Context, actorID, messageID uint) error {
	var authorID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if msg.UserID != actorID {
			return ErrForbidden
		}
		authorID = msg.UserID

		if err := tx.Where("message_id = ?", messageID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&msg).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return err
		}
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}

	s.publisher.Publish(SubjectMessageDeleted, MessageEvent{
		MessageID: messageID,
		UserID:    authorID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// ForUser returns the messages userID authored, newest first.
func (s *MessageService) ForUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("timestamp desc, id desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// Feed returns messages by userID and everyone userID follows, newest first.
func (s *MessageService) Feed(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	db := s.db.WithContext(ctx)
	followed := db.Model(&models.Follow{}).
		Select("user_being_followed_id").
		Where("user_following_id = ?", userID)

	var msgs []models.Message
	err := db.
		Preload("User").
		Where("user_id = ? OR user_id IN (?)", userID, followed).
		Order("timestamp desc, id desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return msgs, nil
}
