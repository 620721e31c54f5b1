package handlers

import (
	"errors"
	"net/http"
	"time"

	"warbler/internal/models"
	"warbler/internal/services"
	"warbler/pkg/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	requestIDKey   = "request_id"
	currentUserKey = "current_user"
)

func (h *Handler) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = utils.GenerateRequestID()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.logger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// LoadCurrentUser resolves the session's user once per request. A session
// pointing at a user that no longer exists is treated as anonymous.
func (h *Handler) LoadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(sessionUserKey).(uint)
		if !ok {
			c.Next()
			return
		}

		user, err := h.userService.Get(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(currentUserKey, user)
		case errors.Is(err, services.ErrNotFound):
			session.Delete(sessionUserKey)
			if err := session.Save(); err != nil {
				h.logger.Error("Failed to drop stale session", "error", err)
			}
		default:
			h.logger.Error("Failed to load current user", "user_id", id, "error", err)
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// authorize is the single access gate. It admits the request when a user is
// signed in and allow (if given) accepts them. Otherwise it flashes
// "Access unauthorized.", redirects home and reports false; the caller must
// return without side effects.
func (h *Handler) authorize(c *gin.Context, allow func(*models.User) bool) (*models.User, bool) {
	user := CurrentUser(c)
	if user != nil && (allow == nil || allow(user)) {
		return user, true
	}

	var userID *uint
	if user != nil {
		userID = &user.ID
	}
	h.audit(c, userID, services.ActionAccessDenied, "", map[string]string{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	h.metrics.AccessDenied.Inc()

	h.flash(c, flashDanger, "Access unauthorized.")
	c.Redirect(http.StatusFound, "/")
	c.Abort()
	return nil, false
}

func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.authorize(c, nil); !ok {
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware re-renders page with 429 when the client IP is over
// its budget.
func (h *Handler) RateLimitMiddleware(limiter *services.IPRateLimiter, page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			h.render(c, http.StatusTooManyRequests, page, gin.H{
				"Error": "Too many attempts. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
