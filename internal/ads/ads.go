// Package ads manages promotional records. "Active" is a distinguishing
// flag, not a uniqueness constraint: Activate enforces at most one active
// record, but inactive records accumulate freely.
package ads

import (
	"errors"

	"github.com/google/uuid"

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

// Set upserts an ad record.
func (s *Service) Set(ad models.AdConfig) (*models.AdConfig, error) {
	if ad.ID == "" {
		ad.ID = uuid.NewString()
	}
	if err := s.store.Put(store.Ads, ad.ID, ad); err != nil {
		return nil, err
	}
	s.notifier.Changed()
	return &ad, nil
}

// Activate flips the given ad active and deactivates every other record.
func (s *Service) Activate(id string) error {
	all, err := s.All()
	if err != nil {
		return err
	}
	for _, ad := range all {
		want := ad.ID == id
		if ad.IsActive == want {
			continue
		}
		ad.IsActive = want
		if err := s.store.Put(store.Ads, ad.ID, ad); err != nil {
			return err
		}
	}
	s.notifier.Changed()
	return nil
}

func (s *Service) All() ([]models.AdConfig, error) {
	return store.GetAllInto[models.AdConfig](s.store, store.Ads)
}

// GetActive returns the first active record, or nil.
func (s *Service) GetActive() (*models.AdConfig, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].IsActive {
			return &all[i], nil
		}
	}
	return nil, nil
}

// IncrementViews bumps the view counter; unknown id is a silent no-op.
func (s *Service) IncrementViews(id string) error {
	var ad models.AdConfig
	err := s.store.Get(store.Ads, id, &ad)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	ad.Views++
	if err := s.store.Put(store.Ads, id, ad); err != nil {
		return err
	}
	s.notifier.Changed()
	return nil
}
