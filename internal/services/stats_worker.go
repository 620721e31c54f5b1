package services

import (
	"context"
	"fmt"
	"log/slog"

	"warbler/internal/models"

	"github.com/mssola/user_agent"
	"gorm.io/gorm"
)

// StatsService records profile views off the request path.
type StatsService struct {
	db           *gorm.DB
	logger       *slog.Logger
	viewChannel  chan models.ProfileView
	geoIPService *GeoIPService
}

func NewStatsService(db *gorm.DB, logger *slog.Logger, geoIPService *GeoIPService) *StatsService {
	return &StatsService{
		db:           db,
		logger:       logger,
		viewChannel:  make(chan models.ProfileView, 1000),
		geoIPService: geoIPService,
	}
}

func (s *StatsService) Start(ctx context.Context) {
	s.logger.Info("Stats worker starting")
	for {
		select {
		case view := <-s.viewChannel:
			s.enrichViewData(&view)

			if err := s.db.Create(&view).Error; err != nil {
				s.logger.Error("Failed to record profile view", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("Stats worker stopping")
			return
		}
	}
}

func (s *StatsService) RecordViewAsync(view models.ProfileView) {
	select {
	case s.viewChannel <- view:
	default:
		s.logger.Warn("Stats channel full, dropping profile view")
	}
}

func (s *StatsService) ViewCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProfileView{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count profile views: %w", err)
	}
	return count, nil
}

func (s *StatsService) enrichViewData(view *models.ProfileView) {
	ua := user_agent.New(view.UserAgent)
	browserName, browserVer := ua.Browser()
	view.Browser = browserName + " " + browserVer
	view.OS = ua.OS()

	if ua.Mobile() {
		view.DeviceType = "Mobile"
	} else if ua.Bot() {
		view.DeviceType = "Bot"
	} else {
		view.DeviceType = "Desktop"
	}

	if s.geoIPService != nil {
		view.Country, view.Region, view.City = s.geoIPService.GetLocation(view.IPAddress)
	}

	view.IPAddress = s.maskIP(view.IPAddress)
}

// maskIP zeroes the last IPv4 octet and hides IPv6 addresses entirely.
func (s *StatsService) maskIP(ip string) string {
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == '.' {
			return ip[:i] + ".0"
		}
		if ip[i] == ':' {
			return "IPv6 (Masked)"
		}
	}
	return ip
}
