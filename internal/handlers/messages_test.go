package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessagePage(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)
	user := createTestUser(t, db, "test_name", "test_password")

	client := newClient(t, r)
	client.loginAs(user.ID)
	w := client.get("/messages/new")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Add my message!")
}

func TestAddMessage(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)
	user := createTestUser(t, db, "test_name", "test_password")
	other := createTestUser(t, db, "other", "password")

	t.Run("Logged In", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)

		w := client.post("/messages/new", url.Values{"text": {"Hello"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, fmt.Sprintf("/users/%d", user.ID), w.Header().Get("Location"))

		var msg models.Message
		require.NoError(t, db.Where("text = ?", "Hello").First(&msg).Error)
		assert.Equal(t, user.ID, msg.UserID)
	})

	t.Run("Ignores Posted User ID", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)

		client.post("/messages/new", url.Values{
			"text":    {"Spoofed"},
			"user_id": {fmt.Sprint(other.ID)},
		})

		var msg models.Message
		require.NoError(t, db.Where("text = ?", "Spoofed").First(&msg).Error)
		assert.Equal(t, user.ID, msg.UserID)
	})

	t.Run("Too Long", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)

		w := client.post("/messages/new", url.Values{"text": {strings.Repeat("x", 141)}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Add my message!")
	})

	t.Run("Empty", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)

		w := client.post("/messages/new", url.Values{"text": {"   "}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)

		req, _ := http.NewRequest("POST", "/messages/new", strings.NewReader("text=%zz"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(client.cookie)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Could not read your message")

		var count int64
		db.Model(&models.Message{}).Where("user_id = ?", user.ID).Count(&count)
		assert.Equal(t, int64(2), count)
	})

	t.Run("No Session", func(t *testing.T) {
		client := newClient(t, r)
		w := client.post("/messages/new", url.Values{"text": {"Test message"}})
		home := client.followRedirect(w)

		assert.Equal(t, http.StatusOK, home.Code)
		assert.Contains(t, home.Body.String(), "Access unauthorized")

		var count int64
		db.Model(&models.Message{}).Where("text = ?", "Test message").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Other User", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(222)

		w := client.post("/messages/new", url.Values{"text": {"Test message"}})
		home := client.followRedirect(w)

		assert.Equal(t, http.StatusOK, home.Code)
		assert.Contains(t, home.Body.String(), "Access unauthorized")

		var count int64
		db.Model(&models.Message{}).Where("text = ?", "Test message").Count(&count)
		assert.Zero(t, count)
	})
}

func TestViewMessage(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)
	user := createTestUser(t, db, "test_name", "test_password")
	msg := createTestMessage(t, db, user.ID, "test message")

	client := newClient(t, r)
	client.loginAs(user.ID)

	w := client.get(fmt.Sprintf("/users/%d", user.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test message")

	w = client.get(fmt.Sprintf("/messages/%d", msg.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test message")
	assert.Contains(t, w.Body.String(), fmt.Sprintf("/messages/%d/delete", msg.ID))
}

func TestDeleteMessage(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)
	user := createTestUser(t, db, "test_name", "test_password")
	other := createTestUser(t, db, "other", "password")

	t.Run("Own Message", func(t *testing.T) {
		msg := createTestMessage(t, db, user.ID, "test message")
		require.NoError(t, db.Create(&models.Like{UserID: other.ID, MessageID: msg.ID}).Error)

		client := newClient(t, r)
		client.loginAs(user.ID)

		w := client.post(fmt.Sprintf("/messages/%d/delete", msg.ID), nil)
		page := client.followRedirect(w)

		assert.Equal(t, http.StatusOK, page.Code)
		assert.NotContains(t, page.Body.String(), "test message")

		var count int64
		db.Model(&models.Like{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("No Session", func(t *testing.T) {
		msg := createTestMessage(t, db, user.ID, "keep me")

		client := newClient(t, r)
		w := client.post(fmt.Sprintf("/messages/%d/delete", msg.ID), nil)
		home := client.followRedirect(w)

		assert.Equal(t, http.StatusOK, home.Code)
		assert.Contains(t, home.Body.String(), "Access unauthorized")

		var count int64
		db.Model(&models.Message{}).Where("id = ?", msg.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Other User", func(t *testing.T) {
		msg := createTestMessage(t, db, user.ID, "still here")

		client := newClient(t, r)
		client.loginAs(other.ID)
		w := client.post(fmt.Sprintf("/messages/%d/delete", msg.ID), nil)
		home := client.followRedirect(w)

		assert.Equal(t, http.StatusOK, home.Code)
		assert.Contains(t, home.Body.String(), "Access unauthorized")

		var count int64
		db.Model(&models.Message{}).Where("id = ?", msg.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Missing Message", func(t *testing.T) {
		client := newClient(t, r)
		client.loginAs(user.ID)
		w := client.post("/messages/9999/delete", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestToggleLike(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)
	user := createTestUser(t, db, "test_name", "test_password")
	other := createTestUser(t, db, "other", "password")
	msg := createTestMessage(t, db, other.ID, "likeable")
	own := createTestMessage(t, db, user.ID, "mine")

	client := newClient(t, r)
	client.loginAs(user.ID)
	likePath := fmt.Sprintf("/users/add_like/%d", msg.ID)

	t.Run("Like", func(t *testing.T) {
		w := client.post(likePath, nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		var count int64
		db.Model(&models.Like{}).Where("user_id = ? AND message_id = ?", user.ID, msg.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Unlike", func(t *testing.T) {
		w := client.post(likePath, nil)
		assert.Equal(t, http.StatusFound, w.Code)

		var count int64
		db.Model(&models.Like{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Own Message", func(t *testing.T) {
		w := client.post(fmt.Sprintf("/users/add_like/%d", own.ID), nil)
		assert.Contains(t, client.followRedirect(w).Body.String(), "Access unauthorized")

		var count int64
		db.Model(&models.Like{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Missing Message", func(t *testing.T) {
		w := client.post("/users/add_like/9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("No Session", func(t *testing.T) {
		anon := newClient(t, r)
		w := anon.post(likePath, nil)
		assert.Contains(t, anon.followRedirect(w).Body.String(), "Access unauthorized")
	})
}
