package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"warbler/internal/models"
	"warbler/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type ProfileForm struct {
	Username       string `form:"username" binding:"required,max=80"`
	Email          string `form:"email" binding:"required,email,max=120"`
	ImageURL       string `form:"image_url" binding:"omitempty,uri"`
	HeaderImageURL string `form:"header_image_url" binding:"omitempty,uri"`
	Bio            string `form:"bio"`
	Location       string `form:"location" binding:"max=120"`
	Password       string `form:"password" binding:"required"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	q := c.Query("q")
	users, err := h.userService.Search(c.Request.Context(), q)
	if err != nil {
		h.serverError(c, "Failed to search users", err)
		return
	}

	following := map[uint]bool{}
	if user := CurrentUser(c); user != nil {
		if following, err = h.followService.FollowingIDs(c.Request.Context(), user.ID); err != nil {
			h.serverError(c, "Failed to load following", err)
			return
		}
	}

	h.render(c, http.StatusOK, "users.html", gin.H{
		"Users":        users,
		"Query":        q,
		"FollowingIDs": following,
	})
}

// loadProfile fetches the user named by the :id parameter with the numbers
// shown in the profile header. It renders 404 or 500 itself and reports
// false in that case.
func (h *Handler) loadProfile(c *gin.Context) (gin.H, *models.User, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		h.notFound(c)
		return nil, nil, false
	}

	ctx := c.Request.Context()
	user, err := h.userService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, "Failed to load user", err)
		}
		return nil, nil, false
	}

	stats, err := h.userService.Stats(ctx, id)
	if err != nil {
		h.serverError(c, "Failed to load user stats", err)
		return nil, nil, false
	}

	data := gin.H{
		"User":         user,
		"Stats":        stats,
		"IsFollowing":  false,
		"LikedIDs":     map[uint]bool{},
		"FollowingIDs": map[uint]bool{},
	}
	if curr := CurrentUser(c); curr != nil {
		following, err := h.followService.FollowingIDs(ctx, curr.ID)
		if err != nil {
			h.serverError(c, "Failed to load following", err)
			return nil, nil, false
		}
		liked, err := h.likeService.LikedIDs(ctx, curr.ID)
		if err != nil {
			h.serverError(c, "Failed to load likes", err)
			return nil, nil, false
		}
		data["IsFollowing"] = following[user.ID]
		data["FollowingIDs"] = following
		data["LikedIDs"] = liked
	}
	return data, user, true
}

func (h *Handler) ShowUser(c *gin.Context) {
	data, user, ok := h.loadProfile(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	msgs, err := h.msgService.ForUser(ctx, user.ID, h.cfg.FeedSize)
	if err != nil {
		h.serverError(c, "Failed to load messages", err)
		return
	}
	data["Messages"] = msgs

	if h.statsService != nil {
		if views, err := h.statsService.ViewCount(ctx, user.ID); err == nil {
			data["Views"] = views
		}

		curr := CurrentUser(c)
		if curr == nil || curr.ID != user.ID {
			view := models.ProfileView{
				UserID:    user.ID,
				Timestamp: time.Now(),
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			}
			if curr != nil {
				viewer := curr.ID
				view.ViewerID = &viewer
			}
			h.statsService.RecordViewAsync(view)
		}
	}

	h.render(c, http.StatusOK, "show.html", data)
}

func (h *Handler) ShowFollowing(c *gin.Context) {
	data, user, ok := h.loadProfile(c)
	if !ok {
		return
	}
	users, err := h.followService.Following(c.Request.Context(), user.ID)
	if err != nil {
		h.serverError(c, "Failed to list following", err)
		return
	}
	data["Users"] = users
	data["Title"] = "Following"
	h.render(c, http.StatusOK, "following.html", data)
}

func (h *Handler) ShowFollowers(c *gin.Context) {
	data, user, ok := h.loadProfile(c)
	if !ok {
		return
	}
	users, err := h.followService.Followers(c.Request.Context(), user.ID)
	if err != nil {
		h.serverError(c, "Failed to list followers", err)
		return
	}
	data["Users"] = users
	data["Title"] = "Followers"
	h.render(c, http.StatusOK, "followers.html", data)
}

func (h *Handler) ShowLikes(c *gin.Context) {
	data, user, ok := h.loadProfile(c)
	if !ok {
		return
	}
	msgs, err := h.likeService.LikedMessages(c.Request.Context(), user.ID)
	if err != nil {
		h.serverError(c, "Failed to list likes", err)
		return
	}
	data["Messages"] = msgs
	h.render(c, http.StatusOK, "likes.html", data)
}

func (h *Handler) Follow(c *gin.Context) {
	curr := CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		h.notFound(c)
		return
	}

	err := h.followService.Follow(c.Request.Context(), curr.ID, id)
	switch {
	case err == nil:
		h.audit(c, &curr.ID, services.ActionFollow, services.Entity("user", id), nil)
		h.metrics.FollowRequests.Inc()
	case errors.Is(err, services.ErrNotFound):
		h.notFound(c)
		return
	case errors.Is(err, services.ErrSelfFollow):
		h.flash(c, flashDanger, "You cannot follow yourself.")
	case errors.Is(err, services.ErrDuplicate):
		h.flash(c, flashInfo, "You already follow that user.")
	default:
		h.serverError(c, "Failed to follow user", err)
		return
	}

	c.Redirect(http.StatusFound, userPath(curr.ID)+"/following")
}

func (h *Handler) StopFollowing(c *gin.Context) {
	curr := CurrentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		h.notFound(c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.userService.Get(ctx, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, "Failed to load user", err)
		}
		return
	}

	err := h.followService.Unfollow(ctx, curr.ID, id)
	switch {
	case err == nil:
		h.audit(c, &curr.ID, services.ActionUnfollow, services.Entity("user", id), nil)
		h.metrics.Unfollows.Inc()
	case errors.Is(err, services.ErrNotFound):
		h.flash(c, flashInfo, "You were not following that user.")
	default:
		h.serverError(c, "Failed to unfollow user", err)
		return
	}

	c.Redirect(http.StatusFound, userPath(curr.ID)+"/following")
}

func (h *Handler) EditProfile(c *gin.Context) {
	h.render(c, http.StatusOK, "edit.html", gin.H{"User": CurrentUser(c)})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	curr := CurrentUser(c)

	var form ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "edit.html", gin.H{
			"User":  curr,
			"Error": "Please check the highlighted fields and enter your password.",
		})
		return
	}

	updated, err := h.userService.UpdateProfile(c.Request.Context(), curr.ID, services.ProfileDTO{
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
		Password:       form.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidCredentials):
		h.render(c, http.StatusUnauthorized, "edit.html", gin.H{"User": curr, "Error": "Invalid credentials."})
		return
	case errors.Is(err, services.ErrDuplicate):
		h.render(c, http.StatusConflict, "edit.html", gin.H{"User": curr, "Error": "Username or email already taken."})
		return
	default:
		h.serverError(c, "Failed to update profile", err)
		return
	}

	h.audit(c, &curr.ID, services.ActionUpdateProfile, services.Entity("user", curr.ID), nil)
	c.Redirect(http.StatusFound, userPath(updated.ID))
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	curr := CurrentUser(c)

	if err := h.userService.Delete(c.Request.Context(), curr.ID); err != nil && !errors.Is(err, services.ErrNotFound) {
		h.serverError(c, "Failed to delete account", err)
		return
	}
	h.audit(c, nil, services.ActionDeleteAccount, services.Entity("user", curr.ID), map[string]string{"username": curr.Username})

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		h.logger.Error("Failed to clear session", "error", err)
	}

	c.Redirect(http.StatusFound, "/signup")
}

func (h *Handler) UserQRCode(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		h.notFound(c)
		return
	}
	if _, err := h.userService.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, "Failed to load user", err)
		}
		return
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	size, _ := strconv.Atoi(c.Query("size"))

	png, err := h.qrService.GenerateQRCode(services.QROptions{
		Content: scheme + "://" + c.Request.Host + userPath(id),
		Size:    size,
		FgColor: c.Query("fg"),
		BgColor: c.Query("bg"),
	})
	if err != nil {
		h.serverError(c, "Failed to generate QR code", err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
