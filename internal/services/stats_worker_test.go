package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"warbler/internal/config"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_EnrichViewData(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	geoIP := NewGeoIPService(config.Config{}, logger)
	service := NewStatsService(nil, logger, geoIP)

	t.Run("Enrich Mobile User Agent", func(t *testing.T) {
		view := &models.ProfileView{
			UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
			IPAddress: "1.2.3.4",
		}
		service.enrichViewData(view)

		assert.Equal(t, "Mobile", view.DeviceType)
		assert.Contains(t, view.Browser, "Safari")
		assert.Equal(t, "Unknown", view.Country)
		assert.Equal(t, "1.2.3.0", view.IPAddress) // Masked
	})

	t.Run("Enrich Desktop User Agent", func(t *testing.T) {
		view := &models.ProfileView{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			IPAddress: "8.8.8.8",
		}
		service.enrichViewData(view)

		assert.Equal(t, "Desktop", view.DeviceType)
		assert.Contains(t, view.Browser, "Chrome")
		assert.Equal(t, "8.8.8.0", view.IPAddress)
	})

	t.Run("Without GeoIP", func(t *testing.T) {
		bare := NewStatsService(nil, logger, nil)
		view := &models.ProfileView{IPAddress: "127.0.0.1"}
		bare.enrichViewData(view)
		assert.Empty(t, view.Country)
		assert.Equal(t, "127.0.0.0", view.IPAddress)
	})
}

func TestStatsService_MaskIP(t *testing.T) {
	service := &StatsService{}

	assert.Equal(t, "192.168.1.0", service.maskIP("192.168.1.55"))
	assert.Equal(t, "IPv6 (Masked)", service.maskIP("2001:0db8:85a3:0000:0000:8a2e:0370:7334"))
	assert.Equal(t, "127.0.0.0", service.maskIP("127.0.0.1"))
	assert.Equal(t, "localhost", service.maskIP("localhost"))
}

func TestStatsService_RecordView(t *testing.T) {
	db := setupTestDB(t)
	service := NewStatsService(db, slog.Default(), nil)
	user := createUser(t, db, "viewed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Start(ctx)

	service.RecordViewAsync(models.ProfileView{UserID: user.ID, IPAddress: "10.1.2.3", Timestamp: time.Now()})
	service.RecordViewAsync(models.ProfileView{UserID: user.ID, IPAddress: "10.1.2.4", Timestamp: time.Now()})

	require.Eventually(t, func() bool {
		count, err := service.ViewCount(context.Background(), user.ID)
		return err == nil && count == 2
	}, time.Second, 10*time.Millisecond)

	var view models.ProfileView
	require.NoError(t, db.First(&view).Error)
	assert.Equal(t, "10.1.2.0", view.IPAddress)

	count, err := service.ViewCount(context.Background(), 9999)
	require.NoError(t, err)
	assert.Zero(t, count)
}
