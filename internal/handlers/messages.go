package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"warbler/internal/models"
	"warbler/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageForm struct {
	Text string `form:"text"`
}

func (h *Handler) NewMessage(c *gin.Context) {
	h.render(c, http.StatusOK, "new.html", nil)
}

// CreateMessage posts as the session user. Any user id in the form is
// ignored.
func (h *Handler) CreateMessage(c *gin.Context) {
	curr := CurrentUser(c)

	var form MessageForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "new.html", gin.H{"Error": "Could not read your message, please try again."})
		return
	}

	msg, err := h.msgService.Create(c.Request.Context(), curr.ID, form.Text)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMessage) {
			h.render(c, http.StatusBadRequest, "new.html", gin.H{
				"Error": "Messages need between 1 and 140 characters.",
				"Text":  form.Text,
			})
			return
		}
		h.serverError(c, "Failed to create message", err)
		return
	}

	h.audit(c, &curr.ID, services.ActionCreateMessage, services.Entity("message", msg.ID), nil)
	h.metrics.MessagesSent.Inc()

	c.Redirect(http.StatusFound, userPath(curr.ID))
}

// loadMessage resolves :id or renders 404/500 itself.
func (h *Handler) loadMessage(c *gin.Context) (*models.Message, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		h.notFound(c)
		return nil, false
	}
	msg, err := h.msgService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(c)
		} else {
			h.serverError(c, "Failed to load message", err)
		}
		return nil, false
	}
	return msg, true
}

func (h *Handler) ShowMessage(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	liked := map[uint]bool{}
	if curr := CurrentUser(c); curr != nil {
		var err error
		if liked, err = h.likeService.LikedIDs(c.Request.Context(), curr.ID); err != nil {
			h.serverError(c, "Failed to load likes", err)
			return
		}
	}

	h.render(c, http.StatusOK, "message.html", gin.H{
		"Message":  msg,
		"LikedIDs": liked,
	})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	curr, ok := h.authorize(c, func(u *models.User) bool { return u.ID == msg.UserID })
	if !ok {
		return
	}

	err := h.msgService.Delete(c.Request.Context(), curr.ID, msg.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound):
		h.notFound(c)
		return
	default:
		h.serverError(c, "Failed to delete message", err)
		return
	}

	h.audit(c, &curr.ID, services.ActionDeleteMessage, services.Entity("message", msg.ID), nil)
	c.Redirect(http.StatusFound, userPath(curr.ID))
}

// ToggleLike likes or unlikes a message and sends the user back where they
// came from. Liking one's own message goes through the access gate.
func (h *Handler) ToggleLike(c *gin.Context) {
	msg, ok := h.loadMessage(c)
	if !ok {
		return
	}

	curr, ok := h.authorize(c, func(u *models.User) bool { return u.ID != msg.UserID })
	if !ok {
		return
	}

	liked, err := h.likeService.Toggle(c.Request.Context(), curr.ID, msg.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, "Failed to toggle like", err)
		return
	}

	action := services.ActionUnlike
	if liked {
		action = services.ActionLike
	}
	h.audit(c, &curr.ID, action, services.Entity("message", msg.ID), nil)
	h.metrics.Likes.Inc()

	c.Redirect(http.StatusFound, localReferer(c))
}

// localReferer returns the Referer path when it points back into this site,
// "/" otherwise.
func localReferer(c *gin.Context) string {
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != c.Request.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
