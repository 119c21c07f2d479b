// Package messages handles message records and the cached conversation
// previews that every send re-derives.
package messages

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/typolo/ultimessenger/internal/chats"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/push"
	"github.com/typolo/ultimessenger/internal/store"
)

type Service struct {
	store    *store.Store
	notifier *notify.Notifier
	chats    *chats.Service
	push     *push.Notifier
}

func New(st *store.Store, notifier *notify.Notifier, chatSvc *chats.Service, pushNotifier *push.Notifier) *Service {
	return &Service{store: st, notifier: notifier, chats: chatSvc, push: pushNotifier}
}

// Send appends the message and re-derives the parent conversation's preview
// fields, creating a minimal conversation when none exists for the id. Always
// fires the global change signal.
func (s *Service) Send(chatID string, msg models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ChatID = chatID
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	if msg.Status == "" {
		msg.Status = "sent"
	}
	now := time.Now().UnixMilli()
	if msg.Timestamp == 0 {
		msg.Timestamp = now
	}
	if msg.LocalTimestamp == 0 {
		msg.LocalTimestamp = now
	}
	if msg.SeenBy == nil {
		msg.SeenBy = []string{msg.SenderID}
	}

	if err := s.store.Put(store.Messages, msg.ID, msg); err != nil {
		return nil, err
	}

	if err := s.updatePreview(chatID, msg); err != nil {
		return nil, err
	}

	s.notifier.Changed()
	s.notifyPeers(chatID, msg)
	return &msg, nil
}

func (s *Service) updatePreview(chatID string, msg models.Message) error {
	chat, err := s.chats.Get(chatID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	preview := previewText(msg)
	if chat != nil {
		chat.LastMessage = preview
		chat.LastMessageTime = msg.LocalTimestamp
		return s.store.Put(store.Chats, chatID, chat)
	}

	// No conversation for this id yet: synthesize one. A "_" separator marks
	// the deterministic private-pair id form.
	kind := models.ChatGroup
	participants := []string{}
	if strings.Contains(chatID, "_") {
		kind = models.ChatPrivate
		participants = strings.SplitN(chatID, "_", 2)
	}
	newChat := models.Chat{
		ID:              chatID,
		Name:            "Chat",
		Type:            kind,
		Status:          "Active",
		Participants:    participants,
		LastMessage:     preview,
		LastMessageTime: msg.LocalTimestamp,
		UnreadCount:     1,
	}
	return s.store.Put(store.Chats, chatID, newChat)
}

func previewText(msg models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	switch msg.Type {
	case models.MessageVoice:
		return "Voice Message"
	case models.MessageMedia:
		switch msg.MediaType {
		case "video":
			return "Video"
		case "image":
			return "Photo"
		}
		return "Media"
	}
	return "Media"
}

func (s *Service) notifyPeers(chatID string, msg models.Message) {
	if s.push == nil {
		return
	}
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return
	}
	for _, uid := range chat.Participants {
		if uid != msg.SenderID {
			s.push.SendNewMessageNotification(uid, msg.SenderName)
		}
	}
}

// List returns the conversation's messages ordered by send time.
func (s *Service) List(chatID string) ([]models.Message, error) {
	all, err := store.GetAllInto[models.Message](s.store, store.Messages)
	if err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0)
	for _, m := range all {
		if m.ChatID == chatID {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
	return msgs, nil
}

// Subscribe delivers the full time-ordered message list now and again after
// every global change signal, related to this conversation or not. The
// returned function unsubscribes.
func (s *Service) Subscribe(chatID string, cb func([]models.Message)) func() {
	deliver := func() {
		msgs, err := s.List(chatID)
		if err != nil {
			return
		}
		cb(msgs)
	}
	deliver()
	return s.notifier.Listen(func(ev notify.Event) {
		if ev.Type == notify.EventChanged {
			deliver()
		}
	})
}

func (s *Service) Get(id string) (*models.Message, error) {
	var msg models.Message
	if err := s.store.Get(store.Messages, id, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDelete flags the message deleted without removing the record.
func (s *Service) SoftDelete(id string) error {
	return s.mutate(id, func(m *models.Message) {
		m.IsDeleted = true
		m.Text = ""
		m.Audio = ""
		m.MediaURL = ""
	})
}

// Delete physically removes the record. Only explicit deletion does this.
func (s *Service) Delete(id string) error {
	if err := s.store.Delete(store.Messages, id); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// Edit replaces the text, keeping the previous text in the edit history.
func (s *Service) Edit(id, newText string) error {
	return s.mutate(id, func(m *models.Message) {
		m.EditHistory = append(m.EditHistory, models.Edit{Text: m.Text, Time: time.Now().UnixMilli()})
		m.Text = newText
	})
}

// React toggles uid on the emoji's reaction entry.
func (s *Service) React(id, uid, emoji string) error {
	return s.mutate(id, func(m *models.Message) {
		for i := range m.Reactions {
			if m.Reactions[i].Emoji != emoji {
				continue
			}
			for j, u := range m.Reactions[i].UserIDs {
				if u == uid {
					m.Reactions[i].UserIDs = append(m.Reactions[i].UserIDs[:j], m.Reactions[i].UserIDs[j+1:]...)
					if len(m.Reactions[i].UserIDs) == 0 {
						m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
					}
					return
				}
			}
			m.Reactions[i].UserIDs = append(m.Reactions[i].UserIDs, uid)
			return
		}
		m.Reactions = append(m.Reactions, models.Reaction{Emoji: emoji, UserIDs: []string{uid}})
	})
}

// MarkSeen records uid in the message's seen-by set.
func (s *Service) MarkSeen(id, uid string) error {
	return s.mutate(id, func(m *models.Message) {
		for _, u := range m.SeenBy {
			if u == uid {
				return
			}
		}
		m.SeenBy = append(m.SeenBy, uid)
		m.Status = "read"
	})
}

func (s *Service) mutate(id string, fn func(*models.Message)) error {
	var msg models.Message
	err := s.store.Get(store.Messages, id, &msg)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	fn(&msg)
	if err := s.store.Put(store.Messages, id, msg); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}
