package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"warbler/internal/models"
	"warbler/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const userCacheTTL = 10 * time.Minute

type ProfileDTO struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	Password       string // Current password, re-checked before any change
}

type UserStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}

type UserService struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *slog.Logger
}

// NewUserService wires the user store. rdb may be nil, which disables the
// profile cache.
func NewUserService(db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *UserService {
	return &UserService{
		db:     db,
		rdb:    rdb,
		logger: logger,
	}
}

// Signup builds a new user with a hashed credential. The user is not
// persisted; call Register to commit it and discover uniqueness conflicts.
func (s *UserService) Signup(username, email, password, imageURL string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}

	return &models.User{
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		ImageURL:       imageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}, nil
}

// Register commits a user built by Signup. A taken username or email is
// reported as ErrDuplicate.
func (s *UserService) Register(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Authenticate returns the user whose username and password match. A nil
// user with a nil error means no match; errors are reserved for database
// faults.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	return authenticate(s.db.WithContext(ctx), username, password)
}

func authenticate(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	if user := s.cachedUser(ctx, id); user != nil {
		return user, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}

	s.cacheUser(ctx, &user)
	return &user, nil
}

// Search lists users whose username contains q, ignoring case. An empty q
// lists everyone.
func (s *UserService) Search(ctx context.Context, q string) ([]models.User, error) {
	var users []models.User
	query := s.db.WithContext(ctx).Order("username")
	if q = strings.TrimSpace(q); q != "" {
		query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// UpdateProfile re-authenticates with the submitted password before writing.
// Empty image fields fall back to the defaults.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, dto ProfileDTO) (*models.User, error) {
	var updated *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.User
		if err := tx.First(&current, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		user, err := authenticate(tx, current.Username, dto.Password)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrInvalidCredentials
		}

		if dto.Username != "" {
			user.Username = dto.Username
		}
		if dto.Email != "" {
			user.Email = dto.Email
		}
		user.ImageURL = dto.ImageURL
		if user.ImageURL == "" {
			user.ImageURL = models.DefaultImageURL
		}
		user.HeaderImageURL = dto.HeaderImageURL
		if user.HeaderImageURL == "" {
			user.HeaderImageURL = models.DefaultHeaderImageURL
		}
		user.Bio = dto.Bio
		user.Location = dto.Location

		if err := tx.Save(user).Error; err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCredentials):
			return nil, err
		case isUniqueViolation(err):
			return nil, fmt.Errorf("username or email: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.invalidate(ctx, userID)
	return updated, nil
}

// Delete removes the user together with everything that references it:
// likes on their messages, their likes, their messages, follow edges in both
// directions and profile views.
func (s *UserService) Delete(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authored := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("message_id IN (?)", authored).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_being_followed_id = ? OR user_following_id = ?", userID, userID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ProfileView{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *UserService) Stats(ctx context.Context, userID uint) (UserStats, error) {
	var stats UserStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Message{}).Where("user_id = ?", userID).Count(&stats.Messages).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Follow{}).Where("user_following_id = ?", userID).Count(&stats.Following).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Follow{}).Where("user_being_followed_id = ?", userID).Count(&stats.Followers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Like{}).Where("user_id = ?", userID).Count(&stats.Likes).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func userCacheKey(id uint) string {
	return "user:" + strconv.FormatUint(uint64(id), 10)
}

func (s *UserService) cachedUser(ctx context.Context, id uint) *models.User {
	if s.rdb == nil {
		return nil
	}
	val, err := s.rdb.Get(ctx, userCacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("User cache unavailable", "error", err)
		}
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		return nil
	}
	return &user
}

func (s *UserService) cacheUser(ctx context.Context, user *models.User) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	s.rdb.Set(ctx, userCacheKey(user.ID), data, userCacheTTL)
}

func (s *UserService) invalidate(ctx context.Context, id uint) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, userCacheKey(id))
}
