package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/accounts"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/stream"
)

type StreamHandler struct {
	stream   *stream.Service
	accounts *accounts.Service
}

func NewStreamHandler(streamSvc *stream.Service, accountsSvc *accounts.Service) *StreamHandler {
	return &StreamHandler{stream: streamSvc, accounts: accountsSvc}
}

// Get returns the live stream record, or an empty body when none exists.
func (h *StreamHandler) Get(c *gin.Context) {
	ls, err := h.stream.Get()
	if err != nil {
		fail(c, err, "failed to fetch stream")
		return
	}
	if ls == nil {
		c.JSON(http.StatusOK, gin.H{"stream": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": ls})
}

type StartStreamRequest struct {
	Title string `json:"title" binding:"required"`
}

// Start opens the broadcast (admin only).
func (h *StreamHandler) Start(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	var req StartStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	ls, err := h.stream.Start(req.Title, uid)
	if err != nil {
		if errors.Is(err, stream.ErrAlreadyActive) {
			c.JSON(http.StatusConflict, gin.H{"error": __("stream already active")})
			return
		}
		fail(c, err, "failed to start stream")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stream": ls})
}

// Stop tears the broadcast down (admin only).
func (h *StreamHandler) Stop(c *gin.Context) {
	if err := h.stream.Stop(); err != nil {
		fail(c, err, "failed to stop stream")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Update patches scalar fields of the stream record (admin only).
func (h *StreamHandler) Update(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if err := h.stream.Update(patch); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type JoinRequestBody struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// RequestJoin files the caller's request to come on as guest.
func (h *StreamHandler) RequestJoin(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	var req JoinRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	err := h.stream.AddRequest(models.JoinRequest{UserID: uid, Username: req.Username, Avatar: req.Avatar})
	if err != nil {
		if errors.Is(err, stream.ErrNoStream) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("no active stream")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CancelJoin withdraws the caller's pending request.
func (h *StreamHandler) CancelJoin(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if err := h.stream.RemoveRequest(uid); err != nil && !errors.Is(err, stream.ErrNoStream) {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type SetGuestRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username"`
}

// SetGuest promotes a requester to the guest slot (admin only).
func (h *StreamHandler) SetGuest(c *gin.Context) {
	var req SetGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if err := h.stream.SetGuest(req.UserID, req.Username); err != nil {
		if errors.Is(err, stream.ErrNoStream) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("no active stream")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClearGuest empties the guest slot (admin only).
func (h *StreamHandler) ClearGuest(c *gin.Context) {
	if err := h.stream.ClearGuest(); err != nil && !errors.Is(err, stream.ErrNoStream) {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type StreamMessageRequest struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Amount   int64  `json:"amount"`
}

// SendMessage posts to the stream chat. A positive amount makes it a
// donation: the amount moves from the sender's balance to the host's before
// the message is recorded.
func (h *StreamHandler) SendMessage(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	var req StreamMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if req.Text == "" && req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("empty message")})
		return
	}

	ls, err := h.stream.Get()
	if err != nil {
		fail(c, err, "failed to fetch stream")
		return
	}
	if ls == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": __("no active stream")})
		return
	}

	msg := models.StreamMessage{UserID: uid, Username: req.Username, Text: req.Text}
	if req.Amount > 0 {
		if err := h.accounts.Transfer(uid, ls.HostID, req.Amount); err != nil {
			if errors.Is(err, accounts.ErrInsufficientBalance) {
				c.JSON(http.StatusPaymentRequired, gin.H{"error": __("insufficient balance")})
				return
			}
			if errors.Is(err, accounts.ErrUnknownRecipient) {
				c.JSON(http.StatusNotFound, gin.H{"error": __("user not found")})
				return
			}
			fail(c, err, "internal server error")
			return
		}
		msg.IsDonation = true
		msg.Amount = req.Amount
	}

	if err := h.stream.AddMessage(msg); err != nil {
		// The chat entry is the donation receipt; if it cannot be recorded
		// the points go back to the sender.
		if msg.IsDonation {
			h.accounts.Transfer(ls.HostID, uid, msg.Amount)
		}
		if errors.Is(err, stream.ErrNoStream) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("no active stream")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}
