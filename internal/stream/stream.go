// Package stream manages the single global live-broadcast record. Every
// mutation goes through a version-stamped read-modify-write so interleaved
// partial updates fail and retry instead of silently clobbering each other.
package stream

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

// ID is the fixed key of the singleton stream record.
const ID = "global_stream"

const maxRetries = 5

var (
	// ErrNoStream is returned by mutations when no stream record exists.
	ErrNoStream = errors.New("no active stream")

	// ErrAlreadyActive is returned by Start while another stream is live.
	ErrAlreadyActive = errors.New("stream already active")

	errConflict = errors.New("stream version conflict")
)

type Service struct {
	store    *store.Store
	notifier *notify.Notifier

	// writeMu makes the version check-and-write atomic within the process;
	// the version stamp itself catches writers that read a stale record.
	writeMu sync.Mutex
}

func New(st *store.Store, notifier *notify.Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// Get returns the stream record, or nil when none exists.
func (s *Service) Get() (*models.LiveStream, error) {
	var ls models.LiveStream
	err := s.store.Get(store.Stream, ID, &ls)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

// Start creates the singleton record; only one stream exists process-wide.
func (s *Service) Start(title, hostID string) (*models.LiveStream, error) {
	existing, err := s.Get()
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return nil, ErrAlreadyActive
	}

	ls := models.LiveStream{
		ID:        ID,
		Version:   1,
		IsActive:  true,
		Title:     title,
		StartedAt: time.Now().UnixMilli(),
		HostID:    hostID,
		Requests:  []models.JoinRequest{},
		Messages:  []models.StreamMessage{},
	}
	if err := s.store.Put(store.Stream, ID, ls); err != nil {
		return nil, err
	}
	s.notifier.Changed()
	s.notifier.JoinStream(ID)
	return &ls, nil
}

// Stop deletes the singleton record.
func (s *Service) Stop() error {
	if err := s.store.Delete(store.Stream, ID); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// Update applies a partial patch to scalar fields. Absent record is a silent
// no-op, matching the domain-wide not-found policy.
func (s *Service) Update(patch map[string]interface{}) error {
	err := s.mutate(func(ls *models.LiveStream) error {
		applyPatch(ls, patch)
		return nil
	})
	if errors.Is(err, ErrNoStream) {
		return nil
	}
	return err
}

func applyPatch(ls *models.LiveStream, patch map[string]interface{}) {
	for k, v := range patch {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				ls.Title = s
			}
		case "is_active":
			if b, ok := v.(bool); ok {
				ls.IsActive = b
			}
		case "viewers_count":
			if f, ok := v.(float64); ok {
				ls.ViewersCount = int(f)
			}
			if i, ok := v.(int); ok {
				ls.ViewersCount = i
			}
		case "guest_id":
			if s, ok := v.(string); ok {
				ls.GuestID = s
			}
		case "guest_name":
			if s, ok := v.(string); ok {
				ls.GuestName = s
			}
		}
	}
}

// AddRequest records a pending join request, deduplicated by user id.
func (s *Service) AddRequest(req models.JoinRequest) error {
	return s.mutate(func(ls *models.LiveStream) error {
		for _, r := range ls.Requests {
			if r.UserID == req.UserID {
				return nil
			}
		}
		ls.Requests = append(ls.Requests, req)
		return nil
	})
}

// RemoveRequest drops the pending request for uid, if any.
func (s *Service) RemoveRequest(uid string) error {
	return s.mutate(func(ls *models.LiveStream) error {
		kept := ls.Requests[:0]
		for _, r := range ls.Requests {
			if r.UserID != uid {
				kept = append(kept, r)
			}
		}
		ls.Requests = kept
		return nil
	})
}

// AddMessage appends to the stream's chat log (donations included).
func (s *Service) AddMessage(msg models.StreamMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	return s.mutate(func(ls *models.LiveStream) error {
		ls.Messages = append(ls.Messages, msg)
		return nil
	})
}

// SetGuest promotes a requester to the single guest slot and clears their
// pending request.
func (s *Service) SetGuest(uid, name string) error {
	return s.mutate(func(ls *models.LiveStream) error {
		ls.GuestID = uid
		ls.GuestName = name
		kept := ls.Requests[:0]
		for _, r := range ls.Requests {
			if r.UserID != uid {
				kept = append(kept, r)
			}
		}
		ls.Requests = kept
		return nil
	})
}

func (s *Service) ClearGuest() error {
	return s.mutate(func(ls *models.LiveStream) error {
		ls.GuestID = ""
		ls.GuestName = ""
		return nil
	})
}

// mutate runs a versioned read-modify-write: the write is abandoned and
// retried when another writer bumped the version stamp in between.
func (s *Service) mutate(fn func(*models.LiveStream) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var ls models.LiveStream
		err := s.store.Get(store.Stream, ID, &ls)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoStream
		}
		if err != nil {
			return err
		}

		readVersion := ls.Version
		if err := fn(&ls); err != nil {
			return err
		}
		ls.Version = readVersion + 1

		if err := s.writeIfVersion(ls, readVersion); err != nil {
			if errors.Is(err, errConflict) {
				continue
			}
			return err
		}
		s.notifier.Changed()
		return nil
	}
	return fmt.Errorf("stream update failed after %d retries: %w", maxRetries, errConflict)
}

func (s *Service) writeIfVersion(ls models.LiveStream, expected int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var current models.LiveStream
	err := s.store.Get(store.Stream, ID, &current)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoStream
	}
	if err != nil {
		return err
	}
	if current.Version != expected {
		return errConflict
	}
	return s.store.Put(store.Stream, ID, ls)
}
