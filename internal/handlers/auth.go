package handlers

import (
	"errors"
	"net/http"

	"warbler/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type SignupForm struct {
	Username string `form:"username" binding:"required,max=80"`
	Email    string `form:"email" binding:"required,email,max=120"`
	Password string `form:"password" binding:"required,min=6,max=72"`
	ImageURL string `form:"image_url" binding:"omitempty,uri"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) ShowSignup(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", nil)
}

func (h *Handler) HandleSignup(c *gin.Context) {
	var form SignupForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "signup.html", gin.H{
			"Error": "Please fill in a username, a valid email and a password of at least 6 characters.",
			"Form":  form,
		})
		return
	}

	user, err := h.userService.Signup(form.Username, form.Email, form.Password, form.ImageURL)
	if err != nil {
		h.render(c, http.StatusBadRequest, "signup.html", gin.H{"Error": "Invalid password.", "Form": form})
		return
	}

	if err := h.userService.Register(c.Request.Context(), user); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			h.render(c, http.StatusConflict, "signup.html", gin.H{"Error": "Username or email already taken.", "Form": form})
			return
		}
		h.serverError(c, "Failed to register user", err)
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}
	h.audit(c, &user.ID, services.ActionSignup, services.Entity("user", user.ID), nil)
	h.metrics.Signups.Inc()

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) ShowLogin(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) HandleLogin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", gin.H{"Error": "Invalid credentials."})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.serverError(c, "Failed to authenticate", err)
		return
	}
	if user == nil {
		h.audit(c, nil, services.ActionLoginFailed, "", map[string]string{"username": form.Username})
		h.metrics.LoginFailures.Inc()
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid credentials."})
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}
	h.audit(c, &user.ID, services.ActionLogin, services.Entity("user", user.ID), nil)
	h.flash(c, flashSuccess, "Hello, "+user.Username+"!")

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	if user := CurrentUser(c); user != nil {
		h.audit(c, &user.ID, services.ActionLogout, services.Entity("user", user.ID), nil)
	}

	session := sessions.Default(c)
	session.Delete(sessionUserKey)
	session.AddFlash("You have successfully logged out.", flashSuccess)
	if err := session.Save(); err != nil {
		h.logger.Error("Failed to clear session", "error", err)
	}

	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) startSession(c *gin.Context, userID uint) bool {
	session := sessions.Default(c)
	session.Set(sessionUserKey, userID)
	if err := session.Save(); err != nil {
		h.serverError(c, "Failed to save session", err)
		return false
	}
	return true
}
