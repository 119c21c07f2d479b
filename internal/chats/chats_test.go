package chats

import (
	"path/filepath"
	"testing"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, notify.New()), st
}

func TestDeterministicID(t *testing.T) {
	if got := DeterministicID("bob", "alice"); got != "alice_bob" {
		t.Fatalf("DeterministicID = %q, want %q", got, "alice_bob")
	}
	if DeterministicID("alice", "bob") != DeterministicID("bob", "alice") {
		t.Fatalf("pair id is order-dependent")
	}
}

func TestMineUsesParticipantList(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Create(models.Chat{ID: "alice_bob", Type: models.ChatPrivate, Participants: []string{"alice", "bob"}})
	svc.Create(models.Chat{ID: "g1", Type: models.ChatGroup, Participants: []string{"bob", "carol"}})
	svc.Create(models.Chat{ID: "ch1", Type: models.ChatChannel, Participants: []string{"admin"}})

	mine, err := svc.Mine("alice")
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	ids := map[string]bool{}
	for _, c := range mine {
		ids[c.ID] = true
	}
	if !ids["alice_bob"] {
		t.Fatalf("private chat missing from Mine")
	}
	if !ids["ch1"] {
		t.Fatalf("channel missing from Mine: channels are visible to everyone")
	}
	if ids["g1"] {
		t.Fatalf("group without membership returned by Mine")
	}
}

// A user whose id is a substring of another participant's id must not be
// treated as a member.
func TestMineRejectsSubstringUIDs(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Create(models.Chat{ID: "g1", Type: models.ChatGroup, Participants: []string{"alice_long"}})

	mine, err := svc.Mine("alice")
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	for _, c := range mine {
		if c.ID == "g1" {
			t.Fatalf("substring uid counted as participant")
		}
	}
}

func TestMineSortsByLastActivity(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Create(models.Chat{ID: "old", Type: models.ChatGroup, Participants: []string{"alice"}, LastMessageTime: 100})
	svc.Create(models.Chat{ID: "new", Type: models.ChatGroup, Participants: []string{"alice"}, LastMessageTime: 200})

	mine, err := svc.Mine("alice")
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len(mine) = %d, want 2", len(mine))
	}
	if mine[0].ID != "new" {
		t.Fatalf("first chat = %q, want most recent first", mine[0].ID)
	}
}

func TestUpdateMergePatch(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Create(models.Chat{ID: "g1", Name: "Original", Type: models.ChatGroup, Participants: []string{"alice"}})

	if err := svc.Update("g1", map[string]interface{}{"name": "Renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get("g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("Name = %q, want %q", got.Name, "Renamed")
	}
	if got.Type != models.ChatGroup {
		t.Fatalf("Type clobbered by patch: %q", got.Type)
	}
	if len(got.Participants) != 1 {
		t.Fatalf("Participants clobbered by patch: %v", got.Participants)
	}

	// Unknown id is a silent no-op.
	if err := svc.Update("ghost", map[string]interface{}{"name": "x"}); err != nil {
		t.Fatalf("Update unknown = %v, want nil", err)
	}
}

func TestCanModifyFollowsParticipantList(t *testing.T) {
	svc, _ := newTestService(t)

	channel := models.Chat{ID: "ch1", Type: models.ChatChannel, Participants: []string{"admin"}}
	if !svc.IsParticipant(&channel, "mallory") {
		t.Fatalf("channels must be readable by everyone")
	}
	if svc.CanModify(&channel, "mallory") {
		t.Fatalf("non-participant may modify a channel")
	}
	if !svc.CanModify(&channel, "admin") {
		t.Fatalf("listed participant refused channel write")
	}

	group := models.Chat{ID: "g1", Type: models.ChatGroup, Participants: []string{"alice"}}
	if svc.CanModify(&group, "bob") || !svc.CanModify(&group, "alice") {
		t.Fatalf("group write gate does not follow the participant list")
	}
}

func TestPrivatePeer(t *testing.T) {
	chat := models.Chat{ID: "alice_bob", Type: models.ChatPrivate, Participants: []string{"alice", "bob"}}
	if got := PrivatePeer(&chat, "alice"); got != "bob" {
		t.Fatalf("PrivatePeer = %q, want %q", got, "bob")
	}

	// Legacy records without a participant list fall back to the id split.
	legacy := models.Chat{ID: "alice_bob", Type: models.ChatPrivate}
	if got := PrivatePeer(&legacy, "bob"); got != "alice" {
		t.Fatalf("PrivatePeer legacy = %q, want %q", got, "alice")
	}
}
