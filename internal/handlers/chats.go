package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/chats"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

type ChatsHandler struct {
	chats *chats.Service
}

func NewChatsHandler(chatSvc *chats.Service) *ChatsHandler {
	return &ChatsHandler{chats: chatSvc}
}

// Mine lists the caller's conversations, newest activity first.
func (h *ChatsHandler) Mine(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	list, err := h.chats.Mine(uid)
	if err != nil {
		fail(c, err, "failed to fetch conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

type CreateChatRequest struct {
	Name         string   `json:"name"`
	Type         string   `json:"type" binding:"required"`
	Participants []string `json:"participants"`
	Avatar       string   `json:"avatar"`
}

// Create makes a conversation. Private chats get the deterministic pair id;
// the caller is always included as a participant.
func (h *ChatsHandler) Create(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if req.Type != models.ChatPrivate && req.Type != models.ChatGroup && req.Type != models.ChatChannel {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	participants := req.Participants
	found := false
	for _, p := range participants {
		if p == uid {
			found = true
			break
		}
	}
	if !found {
		participants = append(participants, uid)
	}
	if req.Type == models.ChatPrivate && len(participants) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	chat := models.Chat{
		Name:         req.Name,
		Type:         req.Type,
		Status:       "Active",
		Avatar:       req.Avatar,
		Participants: participants,
	}
	if chat.Type == models.ChatPrivate {
		chat.ID = chats.DeterministicID(participants[0], participants[1])
	}
	if err := h.chats.Create(chat); err != nil {
		fail(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": chat})
}

// Update merge-patches a conversation; the caller must be a listed
// participant, channels included.
func (h *ChatsHandler) Update(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	chat, err := h.chats.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("conversation not found")})
			return
		}
		fail(c, err, "failed to fetch conversations")
		return
	}
	if !h.chats.CanModify(chat, uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not a participant")})
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	delete(patch, "id")

	if err := h.chats.Update(id, patch); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete removes a conversation; the caller must be a listed participant,
// channels included.
func (h *ChatsHandler) Delete(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	id := c.Param("id")

	chat, err := h.chats.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("conversation not found")})
			return
		}
		fail(c, err, "failed to fetch conversations")
		return
	}
	if !h.chats.CanModify(chat, uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not a participant")})
		return
	}

	if err := h.chats.Delete(id); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
