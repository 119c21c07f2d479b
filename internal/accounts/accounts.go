// Package accounts wraps the users collection with search, merge-patch
// updates, presence, moderation, and balance handling.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/session"
	"github.com/typolo/ultimessenger/internal/store"
)

// ErrInsufficientBalance is returned by Debit when the balance would go
// negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUnknownRecipient is returned by Transfer when the receiving account
// does not exist.
var ErrUnknownRecipient = errors.New("recipient not found")

type Service struct {
	store        *store.Store
	notifier     *notify.Notifier
	sessions     *session.Manager
	onlineWindow time.Duration
}

func New(st *store.Store, notifier *notify.Notifier, sessions *session.Manager, onlineWindow time.Duration) *Service {
	if onlineWindow <= 0 {
		onlineWindow = 2 * time.Minute
	}
	return &Service{store: st, notifier: notifier, sessions: sessions, onlineWindow: onlineWindow}
}

func (s *Service) Get(uid string) (*models.User, error) {
	var user models.User
	if err := s.store.Get(store.Users, uid, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) All() ([]models.User, error) {
	return store.GetAllInto[models.User](s.store, store.Users)
}

// Search matches query as a case-insensitive substring of handle, display
// name, or uid. A leading/embedded @ is stripped; an empty query returns
// every account. Callers needing exact-handle uniqueness must filter the
// result themselves.
func (s *Service) Search(query string) ([]models.User, error) {
	users, err := s.All()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(query, "@", "")))
	if q == "" {
		return users, nil
	}
	var out []models.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.DisplayName), q) ||
			strings.Contains(strings.ToLower(u.UID), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Update applies a shallow merge-patch onto the record: named fields
// overwrite, everything else is untouched. Unknown uid is a silent no-op.
// Fires the global change signal and refreshes the session cache when the
// patched account is active.
func (s *Service) Update(uid string, patch map[string]interface{}) error {
	var current json.RawMessage
	err := s.store.Get(store.Users, uid, &current)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("failed to decode user record: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}

	if err := s.store.Put(store.Users, uid, merged); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.RefreshActive(uid)
	}
	s.notifier.Changed()
	return nil
}

// Heartbeat stamps the account online now. Clients call this on an interval
// (roughly once a minute); IsOnline then holds for the configured window.
func (s *Service) Heartbeat(uid string) error {
	var user models.User
	err := s.store.Get(store.Users, uid, &user)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user.Presence.IsOnline = true
	user.Presence.LastSeen = time.Now().UnixMilli()
	if err := s.store.Put(store.Users, uid, user); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// IsOnline derives liveness from the last heartbeat. This is heuristic
// polling-based presence, not a connection signal.
func (s *Service) IsOnline(u *models.User) bool {
	if u == nil || !u.Presence.IsOnline {
		return false
	}
	last := time.UnixMilli(u.Presence.LastSeen)
	return time.Since(last) < s.onlineWindow
}

func (s *Service) Block(uid, otherUID string) error {
	return s.mutate(uid, func(u *models.User) {
		for _, b := range u.BlockedUsers {
			if b == otherUID {
				return
			}
		}
		u.BlockedUsers = append(u.BlockedUsers, otherUID)
	})
}

func (s *Service) Unblock(uid, otherUID string) error {
	return s.mutate(uid, func(u *models.User) {
		kept := u.BlockedUsers[:0]
		for _, b := range u.BlockedUsers {
			if b != otherUID {
				kept = append(kept, b)
			}
		}
		u.BlockedUsers = kept
	})
}

// Ban is a soft delete: the record stays, flagged and renamed. Login refuses
// banned accounts.
func (s *Service) Ban(uid string) error {
	return s.mutate(uid, func(u *models.User) {
		u.IsBanned = true
		u.DisplayName = "Banned User"
		u.Presence.IsOnline = false
	})
}

func (s *Service) Unban(uid string) error {
	return s.mutate(uid, func(u *models.User) {
		u.IsBanned = false
	})
}

// Credit adds points to the account balance.
func (s *Service) Credit(uid string, amount int64) error {
	return s.mutate(uid, func(u *models.User) {
		u.TypoloBalance += amount
	})
}

// Debit removes points; the balance never goes below zero.
func (s *Service) Debit(uid string, amount int64) error {
	var user models.User
	err := s.store.Get(store.Users, uid, &user)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.TypoloBalance < amount {
		return ErrInsufficientBalance
	}
	user.TypoloBalance -= amount
	if err := s.store.Put(store.Users, uid, user); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.RefreshActive(uid)
	}
	s.notifier.Changed()
	return nil
}

// Transfer moves points from one balance to another. The two legs are
// separate writes; if the credit leg fails the debit is refunded, so points
// never silently vanish.
func (s *Service) Transfer(fromUID, toUID string, amount int64) error {
	if _, err := s.Get(toUID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownRecipient
		}
		return err
	}
	if err := s.Debit(fromUID, amount); err != nil {
		return err
	}
	if err := s.Credit(toUID, amount); err != nil {
		s.Credit(fromUID, amount)
		return err
	}
	return nil
}

// mutate is the shared read-modify-write helper; unknown uids no-op.
func (s *Service) mutate(uid string, fn func(*models.User)) error {
	var user models.User
	err := s.store.Get(store.Users, uid, &user)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("accounts: mutate on unknown uid %s ignored", uid)
		return nil
	}
	if err != nil {
		return err
	}
	fn(&user)
	if err := s.store.Put(store.Users, uid, user); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.RefreshActive(uid)
	}
	s.notifier.Changed()
	return nil
}
