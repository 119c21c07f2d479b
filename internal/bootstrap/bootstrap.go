// Package bootstrap seeds the built-in records on first run: the system
// admin and BotFather accounts, the pinned helper channel, and the official
// guide story. Every pass checks by handle/id first, so running it on each
// boot is safe.
package bootstrap

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/typolo/ultimessenger/internal/auth"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

const (
	AdminUID     = "admin_official"
	BotFatherUID = "bot_father_official"

	// HelperChatID is the read-only support channel every user sees.
	HelperChatID = "official_helper_channel"

	GuideStoryID = "official_guide_story"

	defaultAdminSecret = "123"
)

// Run seeds missing built-in records. Idempotent by construction.
func Run(st *store.Store) error {
	users, err := store.GetAllInto[models.User](st, store.Users)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	byHandle := make(map[string]bool, len(users))
	for _, u := range users {
		byHandle[auth.NormalizeUsername(u.Username)] = true
	}

	now := time.Now().UnixMilli()

	if !byHandle["admin"] {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminSecret), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("bootstrap: failed to hash password: %w", err)
		}
		admin := baseUser(AdminUID, 1, "admin", "System Admin", now)
		admin.SecretHash = string(hash)
		admin.IsAdmin = true
		admin.TypoloBalance = 999999
		admin.InviteLink = "ultimate.app/admin"
		if err := st.Put(store.Users, admin.UID, admin); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Printf("bootstrap: seeded admin account")
	}

	if !byHandle["botfather"] {
		bot := baseUser(BotFatherUID, 2, "botfather", "BotFather", now)
		bot.IsBot = true
		bot.Bio = "BotFather is the one bot to rule them all. Use it to create new bot accounts and manage your existing bots."
		bot.InviteLink = "ultimate.app/botfather"
		if err := st.Put(store.Users, bot.UID, bot); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Printf("bootstrap: seeded botfather account")
	}

	if err := seedHelperChannel(st, now); err != nil {
		return err
	}
	return seedGuideStory(st, now)
}

func seedHelperChannel(st *store.Store, now int64) error {
	var existing models.Chat
	err := st.Get(store.Chats, HelperChatID, &existing)
	if err == nil {
		return nil
	}
	if err != store.ErrNotFound {
		return fmt.Errorf("bootstrap: %w", err)
	}

	helper := models.Chat{
		ID:           HelperChatID,
		Name:         "تیم پشتیبانی",
		Status:       "Read Only",
		Avatar:       "H",
		Type:         models.ChatChannel,
		Participants: []string{AdminUID},
		LastMessage:  "Tap here for a comprehensive guide on all features.",
		Pinned:       true,
	}
	if err := st.Put(store.Chats, helper.ID, helper); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Printf("bootstrap: seeded helper channel")
	return nil
}

func seedGuideStory(st *store.Store, now int64) error {
	var existing models.Story
	err := st.Get(store.Stories, GuideStoryID, &existing)
	if err == nil {
		return nil
	}
	if err != store.ErrNotFound {
		return fmt.Errorf("bootstrap: %w", err)
	}

	threeDays := int64(3 * 24 * time.Hour / time.Millisecond)
	story := models.Story{
		ID:        GuideStoryID,
		UserID:    AdminUID,
		Username:  "Ultimate App",
		CreatedAt: now,
		ExpiresAt: now + threeDays,
		Frames: []models.StoryFrame{
			{ID: "f1", Title: "خوش آمدید", Description: "به نسل جدید پیام‌رسانی با سرعت و امنیت فوق‌العاده خوش آمدید.", Color: "#24A1DE"},
			{ID: "f2", Title: "امنیت پیشرفته", Description: "تمامی گفتگوهای شما با پروتکل‌های نظامی رمزنگاری می‌شوند.", Color: "#1a1a1a"},
			{ID: "f3", Title: "جوایز Typolo", Description: "با فعالیت در برنامه، امتیاز بگیرید و گیفت‌های NFT بخرید.", Color: "#ffd700"},
		},
	}
	if err := st.Put(store.Stories, story.ID, story); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Printf("bootstrap: seeded guide story")
	return nil
}

func baseUser(uid string, numericID int64, username, displayName string, now int64) models.User {
	return models.User{
		UID:            uid,
		NumericID:      numericID,
		Username:       username,
		DisplayName:    displayName,
		Gifts:          []models.Gift{},
		JoinedChannels: []string{},
		ArchivedChats:  []string{},
		Sessions:       []models.DeviceSession{},
		BlockedUsers:   []string{},
		Contacts:       []string{},
		Presence:       models.Presence{IsOnline: true, LastSeen: now},
		Privacy: models.Privacy{
			InactivityMonths: 12,
			LastSeen:         "everybody",
			Forwarding:       "everybody",
		},
	}
}
