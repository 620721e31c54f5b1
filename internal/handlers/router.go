package handlers

import (
	"html/template"
	"net/http"
	"time"

	"warbler/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func (h *Handler) SetupRouter(rateLimiter *services.IPRateLimiter, templatePath string, staticPath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.SetFuncMap(template.FuncMap{
		"date": func(t time.Time) string {
			return t.Format("02 January 2006")
		},
	})

	if templatePath != "" {
		r.LoadHTMLGlob(templatePath)
	}
	if staticPath != "" {
		r.Static("/static", staticPath)
	}

	store := cookie.NewStore([]byte(h.cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   h.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	// Middleware
	r.Use(h.RequestID())
	r.Use(h.RequestLogger())
	r.Use(h.metrics.Middleware())
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(h.LoadCurrentUser())

	limited := func(page string, handler gin.HandlerFunc) []gin.HandlerFunc {
		if rateLimiter == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{h.RateLimitMiddleware(rateLimiter, page), handler}
	}

	r.NoRoute(h.notFound)

	// Routes
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	// Public Routes
	r.GET("/", h.ShowHome)
	r.GET("/signup", h.ShowSignup)
	r.POST("/signup", limited("signup.html", h.HandleSignup)...)
	r.GET("/login", h.ShowLogin)
	r.POST("/login", limited("login.html", h.HandleLogin)...)
	r.GET("/logout", h.Logout)
	r.POST("/logout", h.Logout)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.ShowUser)
	r.GET("/users/:id/qr", h.UserQRCode)
	r.GET("/messages/:id", h.ShowMessage)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(h.AuthRequired())
	{
		authorized.GET("/users/:id/following", h.ShowFollowing)
		authorized.GET("/users/:id/followers", h.ShowFollowers)
		authorized.GET("/users/likes/:id", h.ShowLikes)
		authorized.POST("/users/follow/:id", h.Follow)
		authorized.POST("/users/stop-following/:id", h.StopFollowing)
		authorized.GET("/users/profile", h.EditProfile)
		authorized.POST("/users/profile", h.UpdateProfile)
		authorized.POST("/users/delete", h.DeleteAccount)
		authorized.POST("/users/add_like/:id", h.ToggleLike)
		authorized.GET("/messages/new", h.NewMessage)
		authorized.POST("/messages/new", h.CreateMessage)
		authorized.POST("/messages/:id/delete", h.DeleteMessage)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "healthy"}
	code := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["status"] = "unhealthy"
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}
	c.JSON(code, status)
}
