package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/typolo/ultimessenger/internal/bootstrap"
	"github.com/typolo/ultimessenger/internal/botfather"
	"github.com/typolo/ultimessenger/internal/chats"
	"github.com/typolo/ultimessenger/internal/messages"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

type MessagesHandler struct {
	messages *messages.Service
	chats    *chats.Service
	bot      *botfather.Service
}

func NewMessagesHandler(msgSvc *messages.Service, chatSvc *chats.Service, botSvc *botfather.Service) *MessagesHandler {
	return &MessagesHandler{messages: msgSvc, chats: chatSvc, bot: botSvc}
}

type SendMessageRequest struct {
	Text       string `json:"text"`
	Type       string `json:"type"`
	Audio      string `json:"audio"`
	MediaURL   string `json:"media_url"`
	MediaType  string `json:"media_type"`
	ReplyToID  string `json:"reply_to_id"`
	SenderName string `json:"sender_name"`
}

// Send stores the message and, when the conversation is with the assistant
// bot, feeds the text through its dialogue machine and posts the reply.
func (h *MessagesHandler) Send(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	chatID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if req.Text == "" && req.Audio == "" && req.MediaURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("empty message")})
		return
	}

	msg := models.Message{
		ChatID:     chatID,
		SenderID:   uid,
		SenderName: req.SenderName,
		Text:       req.Text,
		Type:       req.Type,
		Audio:      req.Audio,
		MediaURL:   req.MediaURL,
		MediaType:  req.MediaType,
		ReplyToID:  req.ReplyToID,
	}
	sent, err := h.messages.Send(chatID, msg)
	if err != nil {
		fail(c, err, "failed to send message")
		return
	}

	h.maybeBotReply(chatID, uid, req.Text)

	c.JSON(http.StatusCreated, gin.H{"message": sent})
}

// maybeBotReply answers on behalf of the assistant bot when it is the peer.
func (h *MessagesHandler) maybeBotReply(chatID, senderUID, text string) {
	if h.bot == nil || text == "" || senderUID == bootstrap.BotFatherUID {
		return
	}
	chat, err := h.chats.Get(chatID)
	if err != nil || !h.chats.IsParticipant(chat, bootstrap.BotFatherUID) {
		return
	}
	reply := h.bot.Handle(senderUID, text)
	h.messages.Send(chatID, models.Message{
		SenderID:   bootstrap.BotFatherUID,
		SenderName: "BotFather",
		Text:       reply,
		SeenBy:     []string{bootstrap.BotFatherUID},
	})
}

// List returns a conversation's messages in send order; the caller must be a
// participant unless it is a channel.
func (h *MessagesHandler) List(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	chatID := c.Param("id")

	chat, err := h.chats.Get(chatID)
	if err == nil && chat.Type != models.ChatChannel && !h.chats.IsParticipant(chat, uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not a participant")})
		return
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		fail(c, err, "failed to fetch messages")
		return
	}

	msgs, err := h.messages.List(chatID)
	if err != nil {
		fail(c, err, "failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Edit replaces the text of the caller's own message.
func (h *MessagesHandler) Edit(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	id := c.Param("messageId")

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}

	msg, err := h.messages.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("message not found")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	if msg.SenderID != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not your message")})
		return
	}

	if err := h.messages.Edit(id, req.Text); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// React toggles the caller on the emoji's reaction entry.
func (h *MessagesHandler) React(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": __("invalid request")})
		return
	}
	if err := h.messages.React(c.Param("messageId"), uid, req.Emoji); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Seen records the caller in the message's seen-by set.
func (h *MessagesHandler) Seen(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	if err := h.messages.MarkSeen(c.Param("messageId"), uid); err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete soft-deletes by default; ?purge=true removes the record.
func (h *MessagesHandler) Delete(c *gin.Context) {
	uid, ok := currentUID(c)
	if !ok {
		return
	}
	id := c.Param("messageId")

	msg, err := h.messages.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": __("message not found")})
			return
		}
		fail(c, err, "internal server error")
		return
	}
	if msg.SenderID != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": __("not your message")})
		return
	}

	if c.Query("purge") == "true" {
		err = h.messages.Delete(id)
	} else {
		err = h.messages.SoftDelete(id)
	}
	if err != nil {
		fail(c, err, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
