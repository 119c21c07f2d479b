package messages

import (
	"path/filepath"
	"testing"

	"github.com/typolo/ultimessenger/internal/chats"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

func newTestService(t *testing.T) (*Service, *chats.Service) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	notifier := notify.New()
	chatSvc := chats.New(st, notifier)
	return New(st, notifier, chatSvc, nil), chatSvc
}

func TestSendFillsDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	sent, err := svc.Send("alice_bob", models.Message{SenderID: "alice", Text: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ID == "" {
		t.Fatalf("ID not assigned")
	}
	if sent.Type != models.MessageText {
		t.Fatalf("Type = %q, want %q", sent.Type, models.MessageText)
	}
	if sent.Status != "sent" {
		t.Fatalf("Status = %q, want %q", sent.Status, "sent")
	}
	if sent.Timestamp == 0 || sent.LocalTimestamp == 0 {
		t.Fatalf("timestamps not stamped")
	}
	if len(sent.SeenBy) != 1 || sent.SeenBy[0] != "alice" {
		t.Fatalf("SeenBy = %v, want sender only", sent.SeenBy)
	}
}

func TestSendUpdatesConversationPreview(t *testing.T) {
	svc, chatSvc := newTestService(t)
	chatSvc.Create(models.Chat{ID: "g1", Name: "Group", Type: models.ChatGroup, Participants: []string{"alice", "bob"}})

	if _, err := svc.Send("g1", models.Message{SenderID: "alice", Text: "latest news"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	chat, err := chatSvc.Get("g1")
	if err != nil {
		t.Fatalf("Get chat: %v", err)
	}
	if chat.LastMessage != "latest news" {
		t.Fatalf("LastMessage = %q, want %q", chat.LastMessage, "latest news")
	}
	if chat.LastMessageTime == 0 {
		t.Fatalf("LastMessageTime not stamped")
	}
}

func TestSendSynthesizesMissingConversation(t *testing.T) {
	svc, chatSvc := newTestService(t)

	if _, err := svc.Send("alice_bob", models.Message{SenderID: "alice", Text: "first"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	chat, err := chatSvc.Get("alice_bob")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if chat.Type != models.ChatPrivate {
		t.Fatalf("Type = %q, want private for pair id", chat.Type)
	}
	if len(chat.Participants) != 2 {
		t.Fatalf("Participants = %v, want both sides of the pair", chat.Participants)
	}
	if chat.LastMessage != "first" {
		t.Fatalf("LastMessage = %q", chat.LastMessage)
	}
}

func TestVoicePreviewText(t *testing.T) {
	svc, chatSvc := newTestService(t)

	_, err := svc.Send("alice_bob", models.Message{SenderID: "alice", Type: models.MessageVoice, Audio: "blob"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	chat, _ := chatSvc.Get("alice_bob")
	if chat.LastMessage != "Voice Message" {
		t.Fatalf("LastMessage = %q, want %q", chat.LastMessage, "Voice Message")
	}
}

func TestListReturnsOnlyChatMessagesInOrder(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Send("c1", models.Message{SenderID: "a", Text: "one", Timestamp: 100})
	svc.Send("c1", models.Message{SenderID: "b", Text: "two", Timestamp: 200})
	svc.Send("c2", models.Message{SenderID: "a", Text: "other", Timestamp: 150})

	msgs, err := svc.List("c1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "one" || msgs[1].Text != "two" {
		t.Fatalf("order = [%s, %s], want [one, two]", msgs[0].Text, msgs[1].Text)
	}
}

func TestEditKeepsHistory(t *testing.T) {
	svc, _ := newTestService(t)
	sent, _ := svc.Send("c1", models.Message{SenderID: "a", Text: "original"})

	if err := svc.Edit(sent.ID, "edited"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, err := svc.Get(sent.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "edited" {
		t.Fatalf("Text = %q, want %q", got.Text, "edited")
	}
	if len(got.EditHistory) != 1 || got.EditHistory[0].Text != "original" {
		t.Fatalf("EditHistory = %v, want previous text kept", got.EditHistory)
	}
}

func TestReactToggles(t *testing.T) {
	svc, _ := newTestService(t)
	sent, _ := svc.Send("c1", models.Message{SenderID: "a", Text: "hi"})

	svc.React(sent.ID, "bob", "👍")
	got, _ := svc.Get(sent.ID)
	if len(got.Reactions) != 1 || len(got.Reactions[0].UserIDs) != 1 {
		t.Fatalf("Reactions = %v, want one entry with bob", got.Reactions)
	}

	svc.React(sent.ID, "carol", "👍")
	got, _ = svc.Get(sent.ID)
	if len(got.Reactions[0].UserIDs) != 2 {
		t.Fatalf("UserIDs = %v, want both reactors", got.Reactions[0].UserIDs)
	}

	// Second toggle by the same user removes them; empty entries disappear.
	svc.React(sent.ID, "bob", "👍")
	svc.React(sent.ID, "carol", "👍")
	got, _ = svc.Get(sent.ID)
	if len(got.Reactions) != 0 {
		t.Fatalf("Reactions = %v, want empty after everyone untoggled", got.Reactions)
	}
}

func TestMarkSeenDeduplicates(t *testing.T) {
	svc, _ := newTestService(t)
	sent, _ := svc.Send("c1", models.Message{SenderID: "a", Text: "hi"})

	svc.MarkSeen(sent.ID, "bob")
	svc.MarkSeen(sent.ID, "bob")
	got, _ := svc.Get(sent.ID)
	if len(got.SeenBy) != 2 {
		t.Fatalf("SeenBy = %v, want [a bob]", got.SeenBy)
	}
	if got.Status != "read" {
		t.Fatalf("Status = %q, want %q", got.Status, "read")
	}
}

func TestSoftDeleteKeepsRecord(t *testing.T) {
	svc, _ := newTestService(t)
	sent, _ := svc.Send("c1", models.Message{SenderID: "a", Text: "secret", MediaURL: "u"})

	if err := svc.SoftDelete(sent.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err := svc.Get(sent.ID)
	if err != nil {
		t.Fatalf("record gone after soft delete: %v", err)
	}
	if !got.IsDeleted {
		t.Fatalf("IsDeleted = false")
	}
	if got.Text != "" || got.MediaURL != "" {
		t.Fatalf("payload not cleared: text=%q media=%q", got.Text, got.MediaURL)
	}

	// Physical delete actually removes it.
	if err := svc.Delete(sent.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(sent.ID); err == nil {
		t.Fatalf("record still readable after delete")
	}
}

func TestMutateUnknownIDIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Edit("ghost", "x"); err != nil {
		t.Fatalf("Edit unknown = %v, want nil", err)
	}
	if err := svc.MarkSeen("ghost", "bob"); err != nil {
		t.Fatalf("MarkSeen unknown = %v, want nil", err)
	}
}
