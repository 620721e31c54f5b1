package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShowHome renders the landing page for visitors and the feed for
// signed-in users.
func (h *Handler) ShowHome(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		h.render(c, http.StatusOK, "home-anon.html", nil)
		return
	}

	ctx := c.Request.Context()
	feed, err := h.msgService.Feed(ctx, user.ID, h.cfg.FeedSize)
	if err != nil {
		h.serverError(c, "Failed to load feed", err)
		return
	}
	liked, err := h.likeService.LikedIDs(ctx, user.ID)
	if err != nil {
		h.serverError(c, "Failed to load likes", err)
		return
	}
	stats, err := h.userService.Stats(ctx, user.ID)
	if err != nil {
		h.serverError(c, "Failed to load user stats", err)
		return
	}

	h.render(c, http.StatusOK, "home.html", gin.H{
		"User":     user,
		"Messages": feed,
		"LikedIDs": liked,
		"Stats":    stats,
	})
}
