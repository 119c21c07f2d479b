// Package chats manages conversation records: private pairs, groups, and
// channels. Membership is decided by the participant list alone; the
// deterministic private-chat id exists so one-to-one conversations stay
// reachable from the two uids, never as a membership test.
package chats

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

type Service struct {
	store    *store.Store
	notifier *notify.Notifier
}

func New(st *store.Store, notifier *notify.Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// DeterministicID derives the canonical id of a one-to-one conversation from
// its two participant uids: the sorted pair joined by "_". Both sides always
// derive the same id.
func DeterministicID(uidA, uidB string) string {
	if uidA > uidB {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}

// GroupID mints a timestamp-based id for groups and channels.
func GroupID(kind string) string {
	return fmt.Sprintf("%s_%d", kind, time.Now().UnixMilli())
}

func (s *Service) Get(id string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.store.Get(store.Chats, id, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// Mine returns the conversations visible to uid: every channel, every group
// listing uid as a participant, and every private chat listing uid as a
// participant — sorted by last-message time descending.
func (s *Service) Mine(uid string) ([]models.Chat, error) {
	all, err := store.GetAllInto[models.Chat](s.store, store.Chats)
	if err != nil {
		return nil, err
	}

	var out []models.Chat
	for _, c := range all {
		switch c.Type {
		case models.ChatChannel:
			out = append(out, c)
		case models.ChatGroup, models.ChatPrivate:
			if contains(c.Participants, uid) {
				out = append(out, c)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageTime != out[j].LastMessageTime {
			return out[i].LastMessageTime > out[j].LastMessageTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Service) Create(chat models.Chat) error {
	if chat.ID == "" {
		if chat.Type == models.ChatPrivate && len(chat.Participants) == 2 {
			chat.ID = DeterministicID(chat.Participants[0], chat.Participants[1])
		} else {
			chat.ID = GroupID(chat.Type)
		}
	}
	if chat.Participants == nil {
		chat.Participants = []string{}
	}
	if err := s.store.Put(store.Chats, chat.ID, chat); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// Update merge-patches a conversation (name, pin, slow mode, avatar, ...).
// Unknown id is a silent no-op.
func (s *Service) Update(id string, patch map[string]interface{}) error {
	var current json.RawMessage
	err := s.store.Get(store.Chats, id, &current)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("failed to decode chat record: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}

	if err := s.store.Put(store.Chats, id, merged); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

func (s *Service) Delete(id string) error {
	if err := s.store.Delete(store.Chats, id); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// IsParticipant reports membership by the participant list. Channels are
// readable by everyone. Use CanModify to gate writes.
func (s *Service) IsParticipant(chat *models.Chat, uid string) bool {
	if chat.Type == models.ChatChannel {
		return true
	}
	return contains(chat.Participants, uid)
}

// CanModify reports whether uid may change or delete the conversation.
// Unlike reads, channel writes are limited to the listed participants.
func (s *Service) CanModify(chat *models.Chat, uid string) bool {
	return contains(chat.Participants, uid)
}

// PrivatePeer returns the other participant of a private chat.
func PrivatePeer(chat *models.Chat, uid string) string {
	for _, p := range chat.Participants {
		if p != uid {
			return p
		}
	}
	// Legacy fallback: participants absent, id still encodes the pair.
	for _, part := range strings.SplitN(chat.ID, "_", 2) {
		if part != uid {
			return part
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
