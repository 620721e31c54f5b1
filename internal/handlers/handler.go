package handlers

import (
	"encoding/gob"
	"log/slog"
	"net/http"
	"strconv"

	"warbler/internal/config"
	"warbler/internal/metrics"
	"warbler/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	sessionName    = "warbler_session"
	sessionUserKey = "curr_user"

	flashSuccess = "success"
	flashDanger  = "danger"
	flashInfo    = "info"
)

func init() {
	// Flashes live in the cookie as []interface{} values.
	gob.Register([]interface{}{})
}

type Handler struct {
	cfg           config.Config
	logger        *slog.Logger
	db            *gorm.DB
	rdb           *redis.Client
	userService   *services.UserService
	followService *services.FollowService
	msgService    *services.MessageService
	likeService   *services.LikeService
	auditService  *services.AuditService
	statsService  *services.StatsService
	qrService     *services.QRService
	metrics       *metrics.Metrics
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	rdb *redis.Client,
	userService *services.UserService,
	followService *services.FollowService,
	msgService *services.MessageService,
	likeService *services.LikeService,
	auditService *services.AuditService,
	statsService *services.StatsService,
	qrService *services.QRService,
	m *metrics.Metrics,
) *Handler {
	if cfg.FeedSize <= 0 {
		cfg.FeedSize = 100
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		rdb:           rdb,
		userService:   userService,
		followService: followService,
		msgService:    msgService,
		likeService:   likeService,
		auditService:  auditService,
		statsService:  statsService,
		qrService:     qrService,
		metrics:       m,
	}
}

type flashMessage struct {
	Category string
	Text     string
}

func (h *Handler) flash(c *gin.Context, category, text string) {
	session := sessions.Default(c)
	session.AddFlash(text, category)
	if err := session.Save(); err != nil {
		h.logger.Error("Failed to save flash", "error", err)
	}
}

// popFlashes reads and clears pending flashes of every category.
func (h *Handler) popFlashes(c *gin.Context) []flashMessage {
	session := sessions.Default(c)
	var out []flashMessage
	for _, category := range []string{flashSuccess, flashDanger, flashInfo} {
		for _, f := range session.Flashes(category) {
			if text, ok := f.(string); ok {
				out = append(out, flashMessage{Category: category, Text: text})
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(); err != nil {
			h.logger.Error("Failed to clear flashes", "error", err)
		}
	}
	return out
}

// render adds the current user and pending flashes to every page.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = CurrentUser(c)
	data["Flashes"] = h.popFlashes(c)
	c.HTML(status, name, data)
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "404.html", nil)
}

func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey))
	h.render(c, http.StatusInternalServerError, "500.html", nil)
}

// paramID parses a numeric path parameter; anything else is not found.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func userPath(id uint) string {
	return "/users/" + strconv.FormatUint(uint64(id), 10)
}

func (h *Handler) audit(c *gin.Context, userID *uint, action, entityID string, details interface{}) {
	if h.auditService == nil {
		return
	}
	h.auditService.LogAction(userID, action, entityID, details, c.ClientIP())
}
