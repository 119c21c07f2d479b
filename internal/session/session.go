// Package session tracks which of up to three locally known accounts is
// active. The known list and active marker live in a small JSON file next to
// the data dir, deliberately outside the main store: this is session routing,
// not account storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

// MaxAccounts is the cap on simultaneously signed-in accounts.
const MaxAccounts = 3

var (
	// ErrAccountLimit is returned when a login would exceed MaxAccounts. The
	// known-accounts list is left unchanged.
	ErrAccountLimit = errors.New("account limit reached")

	// ErrUnknownAccount is returned by SwitchAccount for a uid that was never
	// logged in on this device.
	ErrUnknownAccount = errors.New("account not signed in")
)

type state struct {
	ActiveUID string   `json:"active_uid,omitempty"`
	KnownUIDs []string `json:"known_uids"`
}

type Manager struct {
	path     string
	store    *store.Store
	notifier *notify.Notifier

	mu     sync.Mutex
	st     state
	active *models.User // cached copy of the active account record
}

func New(dataDir string, st *store.Store, notifier *notify.Notifier) (*Manager, error) {
	m := &Manager{
		path:     filepath.Join(dataDir, "session.json"),
		store:    st,
		notifier: notifier,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, &m.st); err != nil {
		// A corrupt session file only loses "who is signed in"; start clean
		// rather than refusing to boot.
		log.Printf("session: resetting corrupt session file: %v", err)
		m.st = state{}
	}
	return nil
}

// save must be called with m.mu held.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Login adds the account to the known list (capped at MaxAccounts) and makes
// it active.
func (m *Manager) Login(user models.User) error {
	m.mu.Lock()
	known := false
	for _, uid := range m.st.KnownUIDs {
		if uid == user.UID {
			known = true
			break
		}
	}
	if !known {
		if len(m.st.KnownUIDs) >= MaxAccounts {
			m.mu.Unlock()
			return ErrAccountLimit
		}
		m.st.KnownUIDs = append(m.st.KnownUIDs, user.UID)
	}
	m.st.ActiveUID = user.UID
	m.active = &user
	err := m.save()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notifier.AuthChanged()
	return nil
}

// SwitchAccount changes only which known account is active.
func (m *Manager) SwitchAccount(uid string) error {
	m.mu.Lock()
	known := false
	for _, k := range m.st.KnownUIDs {
		if k == uid {
			known = true
			break
		}
	}
	if !known {
		m.mu.Unlock()
		return ErrUnknownAccount
	}
	m.st.ActiveUID = uid
	m.active = nil
	err := m.save()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notifier.AuthChanged()
	return nil
}

// Logout removes the active account from the known list and activates the
// next known account, if any. Other accounts' records are untouched.
func (m *Manager) Logout() error {
	m.mu.Lock()
	if m.st.ActiveUID == "" {
		m.mu.Unlock()
		return nil
	}
	remove := m.st.ActiveUID
	kept := m.st.KnownUIDs[:0]
	for _, uid := range m.st.KnownUIDs {
		if uid != remove {
			kept = append(kept, uid)
		}
	}
	m.st.KnownUIDs = kept
	if len(kept) > 0 {
		m.st.ActiveUID = kept[0]
	} else {
		m.st.ActiveUID = ""
	}
	m.active = nil
	err := m.save()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notifier.AuthChanged()
	return nil
}

// ActiveUID returns the active account id, or "" when signed out.
func (m *Manager) ActiveUID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ActiveUID
}

// ActiveUser resolves the active account to its current record. Returns nil
// when signed out or the record is missing.
func (m *Manager) ActiveUser() *models.User {
	m.mu.Lock()
	if m.active != nil && m.active.UID == m.st.ActiveUID {
		u := *m.active
		m.mu.Unlock()
		return &u
	}
	uid := m.st.ActiveUID
	m.mu.Unlock()

	if uid == "" {
		return nil
	}
	var user models.User
	if err := m.store.Get(store.Users, uid, &user); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("session: failed to resolve active account %s: %v", uid, err)
		}
		return nil
	}

	m.mu.Lock()
	m.active = &user
	m.mu.Unlock()
	u := user
	return &u
}

// RefreshActive re-reads the cached active record when uid is the active
// account. Called after account patches so the cache never goes stale.
func (m *Manager) RefreshActive(uid string) {
	m.mu.Lock()
	if m.st.ActiveUID != uid {
		m.mu.Unlock()
		return
	}
	m.active = nil
	m.mu.Unlock()
	m.ActiveUser()
}

// Accounts resolves every known account id to its current record via the
// store. Missing records are skipped.
func (m *Manager) Accounts() ([]models.User, error) {
	m.mu.Lock()
	uids := append([]string(nil), m.st.KnownUIDs...)
	m.mu.Unlock()

	users := make([]models.User, 0, len(uids))
	for _, uid := range uids {
		var user models.User
		err := m.store.Get(store.Users, uid, &user)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// OnAuthStateChanged invokes cb once immediately with the current active
// account (nil when signed out), and again after every auth change. The
// returned function unsubscribes.
func (m *Manager) OnAuthStateChanged(cb func(*models.User)) func() {
	cb(m.ActiveUser())
	return m.notifier.Listen(func(ev notify.Event) {
		if ev.Type != notify.EventAuth {
			return
		}
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		cb(m.ActiveUser())
	})
}
