package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warbler/internal/models"

	"gorm.io/gorm"
)

type FollowService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewFollowService(db *gorm.DB, publisher EventPublisher) *FollowService {
	return &FollowService{
		db:        db,
		publisher: publisherOrNoop(publisher),
	}
}

// Follow adds the edge followerID -> followedID. A repeated follow is a
// commit-time uniqueness conflict and comes back as ErrDuplicate.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return ErrSelfFollow
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", followedID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Create(&models.Follow{
			UserFollowingID:     followerID,
			UserBeingFollowedID: followedID,
		}).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return err
		case isUniqueViolation(err):
			return fmt.Errorf("follow %d -> %d: %w", followerID, followedID, ErrDuplicate)
		}
		return fmt.Errorf("failed to follow user: %w", err)
	}

	s.publisher.Publish(SubjectUserFollowed, FollowEvent{
		FollowerID: followerID,
		FollowedID: followedID,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	var rows int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followedID).
			Delete(&models.Follow{})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// IsFollowing reports whether userID follows otherID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.edgeExists(ctx, userID, otherID)
}

// IsFollowedBy reports whether userID is followed by otherID.
func (s *FollowService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.edgeExists(ctx, otherID, userID)
}

func (s *FollowService) edgeExists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

// Following lists the users userID follows.
func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.user_being_followed_id = users.id").
		Where("follows.user_following_id = ?", userID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return users, nil
}

// Followers lists the users following userID.
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.user_following_id = users.id").
		Where("follows.user_being_followed_id = ?", userID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return users, nil
}

func (s *FollowService) FollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_following_id = ?", userID).
		Pluck("user_being_followed_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list following ids: %w", err)
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
