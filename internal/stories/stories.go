// Package stories manages 24-hour story sequences. Expiry is never actively
// pruned; stale records stay in the store and are filtered on read.
package stories

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

type Service struct {
	store    *store.Store
	notifier *notify.Notifier
	ttl      time.Duration
}

func New(st *store.Store, notifier *notify.Notifier, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: st, notifier: notifier, ttl: ttl}
}

// Add stores a story, stamping creation and expiry when absent.
func (s *Service) Add(story models.Story) (*models.Story, error) {
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	now := time.Now()
	if story.CreatedAt == 0 {
		story.CreatedAt = now.UnixMilli()
	}
	if story.ExpiresAt == 0 {
		story.ExpiresAt = now.Add(s.ttl).UnixMilli()
	}
	if story.Frames == nil {
		story.Frames = []models.StoryFrame{}
	}
	if err := s.store.Put(store.Stories, story.ID, story); err != nil {
		return nil, err
	}
	s.notifier.Changed()
	return &story, nil
}

// All returns every stored story, expired ones included.
func (s *Service) All() ([]models.Story, error) {
	return store.GetAllInto[models.Story](s.store, store.Stories)
}

// Active returns the unexpired stories, newest first.
func (s *Service) Active() ([]models.Story, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	out := make([]models.Story, 0, len(all))
	for _, st := range all {
		if st.ExpiresAt > now {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// StaleCount reports how many expired records are still held.
func (s *Service) StaleCount() (int64, error) {
	all, err := s.All()
	if err != nil {
		return 0, err
	}
	now := time.Now().UnixMilli()
	var n int64
	for _, st := range all {
		if st.ExpiresAt <= now {
			n++
		}
	}
	return n, nil
}
