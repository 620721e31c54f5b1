package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewIPRateLimiter(t *testing.T) {
	logger := slog.Default()
	r := rate.Limit(10)
	b := 5
	limiter := NewIPRateLimiter(r, b, logger)

	assert.NotNil(t, limiter)
	assert.Equal(t, r, limiter.r)
	assert.Equal(t, b, limiter.b)
	assert.Equal(t, logger, limiter.logger)
	assert.Zero(t, limiter.Len())
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(10), 5, slog.Default())
	ip := "192.168.1.1"

	l1 := limiter.GetLimiter(ip)
	assert.NotNil(t, l1)
	assert.Equal(t, rate.Limit(10), l1.Limit())
	assert.Equal(t, 5, l1.Burst())

	// Get again should return same limiter
	l2 := limiter.GetLimiter(ip)
	assert.Same(t, l1, l2)

	// Different IP should return different limiter
	l3 := limiter.GetLimiter("1.1.1.1")
	assert.NotSame(t, l1, l3)
}

func TestIPRateLimiter_Allow(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2, slog.Default())

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Buckets are per IP
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1, slog.Default())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		limiter.GetLimiter(fmt.Sprintf("ip-%d", i))
	}

	now = now.Add(5 * time.Minute)
	limiter.GetLimiter("ip-0")

	assert.Equal(t, 9, limiter.Cleanup(3*time.Minute))
	assert.Equal(t, 1, limiter.Len())
}

func TestIPRateLimiter_StartCleanup(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1, slog.Default())
	for i := 0; i < 100; i++ {
		limiter.GetLimiter(fmt.Sprintf("ip-%d", i))
	}
	assert.Equal(t, 100, limiter.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go limiter.StartCleanup(ctx, 10*time.Millisecond, 0)

	assert.Eventually(t, func() bool {
		return limiter.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
