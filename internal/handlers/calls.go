package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/calls"
	"github.com/typolo/ultimessenger/internal/models"
)

type CallsHandler struct {
	calls *calls.Service
}

func NewCallsHandler(callSvc *calls.Service) *CallsHandler {
	return &CallsHandler{calls: callSvc}
}

type InitiateCallRequest struct {
	ReceiverID   string `json:"receiver_id" binding:"required"`
	Type         string `json:"type" binding:"required"`
	CallerName   string `json:"caller_name"`
	CallerAvatar string `json:"caller_avatar"`
}

// Initiate starts a ringing call session from the caller to a receiver.
func (h *CallsHandler) Initiate(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if req.Type != "audio" && req.Type != "video" {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if req.ReceiverID == uid {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("cannot call yourself")})
		return
	}

	call, err := h.calls.Initiate(models.CallSession{
		CallerID:     uid,
		CallerName:   req.CallerName,
		CallerAvatar: req.CallerAvatar,
		ReceiverID:   req.ReceiverID,
		Type:         req.Type,
	})
	if err != nil {
		fail(c, err, "failed to start call")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"call": call})
}

type UpdateCallRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus advances a call through its state machine; an illegal move is
// rejected rather than applied.
func (h *CallsHandler) UpdateStatus(c *gin.Context) {
	if _, ok := currentUID(c); !ok {
		return
	}

	var req UpdateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if err := h.calls.UpdateStatus(c.Param("id"), req.Status); err != nil {
		if errors.Is(err, calls.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": __("invalid call transition")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Active lists the caller's ringing or connected sessions.
func (h *CallsHandler) Active(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	list, err := h.calls.ActiveFor(uid)
	if err != nil {
		fail(c, err, "failed to fetch calls")
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list})
}
