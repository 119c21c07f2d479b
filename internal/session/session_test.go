package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m, err := New(dir, st, notify.New())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return m, st
}

func seedUser(t *testing.T, st *store.Store, uid string) models.User {
	t.Helper()
	u := models.User{UID: uid, Username: uid, DisplayName: uid}
	if err := st.Put(store.Users, uid, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestLoginCapsAtThreeAccounts(t *testing.T) {
	m, st := newTestManager(t)

	for _, uid := range []string{"a", "b", "c"} {
		if err := m.Login(seedUser(t, st, uid)); err != nil {
			t.Fatalf("Login(%s): %v", uid, err)
		}
	}

	err := m.Login(seedUser(t, st, "d"))
	if !errors.Is(err, ErrAccountLimit) {
		t.Fatalf("fourth Login = %v, want ErrAccountLimit", err)
	}

	// A failed login must not change the known list or the active account.
	accounts, err := m.Accounts()
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("len(accounts) = %d, want 3", len(accounts))
	}
	if m.ActiveUID() != "c" {
		t.Fatalf("ActiveUID = %q, want %q", m.ActiveUID(), "c")
	}
}

func TestReloginKnownAccountDoesNotCount(t *testing.T) {
	m, st := newTestManager(t)

	a := seedUser(t, st, "a")
	for _, uid := range []string{"a", "b", "c"} {
		seedUser(t, st, uid)
	}
	m.Login(a)
	m.Login(models.User{UID: "b", Username: "b"})
	m.Login(models.User{UID: "c", Username: "c"})

	if err := m.Login(a); err != nil {
		t.Fatalf("relogin of known account = %v, want nil", err)
	}
	if m.ActiveUID() != "a" {
		t.Fatalf("ActiveUID = %q, want %q", m.ActiveUID(), "a")
	}
}

func TestSwitchAccount(t *testing.T) {
	m, st := newTestManager(t)
	m.Login(seedUser(t, st, "a"))
	m.Login(seedUser(t, st, "b"))

	if err := m.SwitchAccount("a"); err != nil {
		t.Fatalf("SwitchAccount: %v", err)
	}
	if m.ActiveUID() != "a" {
		t.Fatalf("ActiveUID = %q, want %q", m.ActiveUID(), "a")
	}

	if err := m.SwitchAccount("stranger"); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("SwitchAccount unknown = %v, want ErrUnknownAccount", err)
	}
}

func TestLogoutActivatesNextAccount(t *testing.T) {
	m, st := newTestManager(t)
	m.Login(seedUser(t, st, "a"))
	m.Login(seedUser(t, st, "b"))

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.ActiveUID() != "a" {
		t.Fatalf("ActiveUID after logout = %q, want %q", m.ActiveUID(), "a")
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.ActiveUID() != "" {
		t.Fatalf("ActiveUID after final logout = %q, want empty", m.ActiveUID())
	}
	if u := m.ActiveUser(); u != nil {
		t.Fatalf("ActiveUser after final logout = %+v, want nil", u)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	notifier := notify.New()

	m1, err := New(dir, st, notifier)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	m1.Login(seedUser(t, st, "a"))
	m1.Login(seedUser(t, st, "b"))

	m2, err := New(dir, st, notifier)
	if err != nil {
		t.Fatalf("session.New reload: %v", err)
	}
	if m2.ActiveUID() != "b" {
		t.Fatalf("reloaded ActiveUID = %q, want %q", m2.ActiveUID(), "b")
	}
	accounts, _ := m2.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("reloaded len(accounts) = %d, want 2", len(accounts))
	}
}

func TestOnAuthStateChanged(t *testing.T) {
	m, st := newTestManager(t)
	m.Login(seedUser(t, st, "a"))

	got := make(chan string, 4)
	cancel := m.OnAuthStateChanged(func(u *models.User) {
		if u == nil {
			got <- ""
			return
		}
		got <- u.UID
	})
	defer cancel()

	// Immediate callback with the current account.
	if uid := <-got; uid != "a" {
		t.Fatalf("initial callback uid = %q, want %q", uid, "a")
	}

	m.Login(seedUser(t, st, "b"))
	if uid := <-got; uid != "b" {
		t.Fatalf("callback after login uid = %q, want %q", uid, "b")
	}
}
