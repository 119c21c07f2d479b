package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/push"
)

type PushHandler struct {
	push     *push.Notifier
	notifier *notify.Notifier
}

func NewPushHandler(pushNotifier *push.Notifier, notifier *notify.Notifier) *PushHandler {
	return &PushHandler{push: pushNotifier, notifier: notifier}
}

// VAPIDKey hands the public key to browsers so they can subscribe.
func (h *PushHandler) VAPIDKey(c *gin.Context) {
	if h.push == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": __("push notifications not configured")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.push.VAPIDPublicKey()})
}

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// Subscribe stores the caller's browser push subscription.
func (h *PushHandler) Subscribe(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if h.push == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": __("push notifications not configured")})
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	sub := models.PushSubscription{
		Endpoint:  req.Endpoint,
		UserID:    uid,
		KeyP256dh: req.Keys.P256dh,
		KeyAuth:   req.Keys.Auth,
	}
	if err := h.push.Subscribe(sub); err != nil {
		fail(c, err, "failed to save subscription")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

type OpenAppRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

// OpenApp broadcasts an open-mini-app command to every connected client
// (admin only).
func (h *PushHandler) OpenApp(c *gin.Context) {
	var req OpenAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	h.notifier.OpenApp(req.URL, req.Title)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
