package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/accounts"
	"github.com/typolo/ultimessenger/internal/store"
)

type UsersHandler struct {
	accounts *accounts.Service
}

func NewUsersHandler(accountsSvc *accounts.Service) *UsersHandler {
	return &UsersHandler{accounts: accountsSvc}
}

// Search matches the query against handle, display name and uid; an empty
// query returns everyone.
func (h *UsersHandler) Search(c *gin.Context) {
	users, err := h.accounts.Search(c.Query("q"))
	if err != nil {
		fail(c, err, "failed to fetch users")
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		u := users[i]
		out = append(out, gin.H{
			"uid":          u.UID,
			"numeric_id":   u.NumericID,
			"username":     u.Username,
			"display_name": u.DisplayName,
			"avatar":       u.Avatar,
			"is_bot":       u.IsBot,
			"is_banned":    u.IsBanned,
			"is_online":    h.accounts.IsOnline(&u),
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// GetProfile returns one account by uid.
func (h *UsersHandler) GetProfile(c *gin.Context) {
	user, err := h.accounts.Get(c.Param("uid"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("user not found")})
			return
		}
		fail(c, err, "failed to get user")
		return
	}
	pub := user.Public()
	c.JSON(http.StatusOK, gin.H{"user": pub, "is_online": h.accounts.IsOnline(user)})
}

// UpdateProfile merge-patches the caller's own account.
func (h *UsersHandler) UpdateProfile(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	// Credential and moderation fields never come in through a profile patch.
	delete(patch, "uid")
	delete(patch, "secret_hash")
	delete(patch, "bot_token")
	delete(patch, "is_admin")
	delete(patch, "is_banned")
	delete(patch, "typolo_balance")

	if err := h.accounts.Update(uid, patch); err != nil {
		fail(c, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Heartbeat refreshes the caller's presence stamp.
func (h *UsersHandler) Heartbeat(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if err := h.accounts.Heartbeat(uid); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Block adds the target to the caller's blocked list.
func (h *UsersHandler) Block(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if err := h.accounts.Block(uid, c.Param("uid")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *UsersHandler) Unblock(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if err := h.accounts.Unblock(uid, c.Param("uid")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ban soft-deletes an account (admin only: the route group enforces it).
func (h *UsersHandler) Ban(c *gin.Context) {
	if err := h.accounts.Ban(c.Param("uid")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *UsersHandler) Unban(c *gin.Context) {
	if err := h.accounts.Unban(c.Param("uid")); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Credit adjusts an account's point balance upward (admin only).
func (h *UsersHandler) Credit(c *gin.Context) {
	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if err := h.accounts.Credit(c.Param("uid"), req.Amount); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
