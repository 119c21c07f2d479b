// Package calls tracks call sessions through a forward-only state machine:
// ringing → connected → ended, with rejected as the alternative terminal.
// There is no timeout expiry; a ringing call persists until updated.
package calls

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

// ErrInvalidTransition is returned for a status change the state machine
// does not allow.
var ErrInvalidTransition = errors.New("invalid call transition")

var transitions = map[string][]string{
	models.CallRinging:   {models.CallConnected, models.CallEnded, models.CallRejected},
	models.CallConnected: {models.CallEnded},
}

type Service struct {
	store    *store.Store
	notifier *notify.Notifier
}

func New(st *store.Store, notifier *notify.Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// Initiate creates a ringing call session.
func (s *Service) Initiate(call models.CallSession) (*models.CallSession, error) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	call.Status = models.CallRinging
	if call.Timestamp == 0 {
		call.Timestamp = time.Now().UnixMilli()
	}
	if err := s.store.Put(store.Calls, call.ID, call); err != nil {
		return nil, err
	}
	s.notifier.Changed()
	return &call, nil
}

func (s *Service) Get(id string) (*models.CallSession, error) {
	var call models.CallSession
	if err := s.store.Get(store.Calls, id, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// UpdateStatus advances the call; moving backwards or out of a terminal
// state is an error. Unknown id is a silent no-op.
func (s *Service) UpdateStatus(id, status string) error {
	var call models.CallSession
	err := s.store.Get(store.Calls, id, &call)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	allowed := false
	for _, next := range transitions[call.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}

	call.Status = status
	if err := s.store.Put(store.Calls, id, call); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}

// ActiveFor returns the non-terminal calls uid is a party to.
func (s *Service) ActiveFor(uid string) ([]models.CallSession, error) {
	all, err := store.GetAllInto[models.CallSession](s.store, store.Calls)
	if err != nil {
		return nil, err
	}
	out := make([]models.CallSession, 0)
	for _, c := range all {
		if c.CallerID != uid && c.ReceiverID != uid {
			continue
		}
		if c.Status == models.CallEnded || c.Status == models.CallRejected {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
