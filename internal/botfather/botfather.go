// Package botfather implements the scripted assistant dialogue as an
// explicit finite-state machine: named states, a transition table, and a
// /cancel escape valid from any state.
package botfather

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/typolo/ultimessenger/internal/auth"
	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
)

type State string

const (
	StateIdle          State = "idle"
	StateAwaitName     State = "await_name"
	StateAwaitUsername State = "await_username"
)

// dialog is one user's progress through the bot-creation flow.
type dialog struct {
	state   State
	botName string
}

type Service struct {
	store *store.Store

	mu      sync.Mutex
	dialogs map[string]*dialog
}

func New(st *store.Store) *Service {
	return &Service{store: st, dialogs: make(map[string]*dialog)}
}

// rule is one row of the transition table: in state From, an input matched by
// Match runs Action and moves to Next.
type rule struct {
	From   State
	Match  func(input string) bool
	Next   State
	Action func(s *Service, uid string, d *dialog, input string) string
}

func command(name string) func(string) bool {
	return func(input string) bool { return strings.EqualFold(strings.TrimSpace(input), name) }
}

func anyText(input string) bool { return strings.TrimSpace(input) != "" }

var table = []rule{
	{StateIdle, command("/newbot"), StateAwaitName, func(*Service, string, *dialog, string) string {
		return "Alright, a new bot. How are we going to call it? Please choose a name for your bot."
	}},
	{StateIdle, command("/mybots"), StateIdle, (*Service).listBots},
	{StateIdle, anyText, StateIdle, func(*Service, string, *dialog, string) string {
		return "I can help you create and manage bots.\n\n/newbot - create a new bot\n/mybots - list your bots\n/revoke <username> - regenerate a bot token\n/cancel - cancel the current operation"
	}},
	{StateAwaitName, anyText, StateAwaitUsername, func(_ *Service, _ string, d *dialog, input string) string {
		d.botName = strings.TrimSpace(input)
		return "Good. Now let's choose a username for your bot. It must end in `bot`. Like this, for example: TetrisBot or tetris_bot."
	}},
	{StateAwaitUsername, anyText, StateIdle, (*Service).createBot},
}

// Handle feeds one user input through the machine and returns the reply.
// "/cancel" resets to idle from any state. The lock spans the whole turn:
// transitions read and write dialog state, and handlers run concurrently.
func (s *Service) Handle(uid, input string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[uid]
	if !ok {
		d = &dialog{state: StateIdle}
		s.dialogs[uid] = d
	}

	if command("/cancel")(input) {
		d.state = StateIdle
		d.botName = ""
		return "The command has been cancelled. Anything else I can do for you?"
	}

	if strings.HasPrefix(strings.TrimSpace(input), "/revoke") && d.state == StateIdle {
		return s.revoke(uid, input)
	}

	for _, r := range table {
		if r.From != d.state || !r.Match(input) {
			continue
		}
		// Next is applied first so an action can veto the move (e.g. keep
		// asking for a username after a rejected one).
		d.state = r.Next
		return r.Action(s, uid, d, input)
	}
	return "Please send me a text message."
}

func (s *Service) listBots(uid string, _ *dialog, _ string) string {
	users, err := store.GetAllInto[models.User](s.store, store.Users)
	if err != nil {
		return "Something went wrong, try again later."
	}
	var names []string
	for _, u := range users {
		if u.IsBot && u.InviterUID == uid {
			names = append(names, "@"+u.Username)
		}
	}
	if len(names) == 0 {
		return "You have no bots yet. Use /newbot to create one."
	}
	return "Choose a bot from the list below:\n" + strings.Join(names, "\n")
}

func (s *Service) createBot(uid string, d *dialog, input string) string {
	username := auth.NormalizeUsername(input)
	if !strings.HasSuffix(username, "bot") {
		d.state = StateAwaitUsername
		return "Sorry, the username must end in `bot`. Try something different."
	}

	users, err := store.GetAllInto[models.User](s.store, store.Users)
	if err != nil {
		return "Something went wrong, try again later."
	}
	var maxNumeric int64
	for _, u := range users {
		if auth.NormalizeUsername(u.Username) == username {
			d.state = StateAwaitUsername
			return "Sorry, this username is already taken. Please try something different."
		}
		if u.NumericID > maxNumeric {
			maxNumeric = u.NumericID
		}
	}

	token := uuid.NewString()
	now := time.Now().UnixMilli()
	bot := models.User{
		UID:            "bot_" + uuid.NewString(),
		NumericID:      maxNumeric + 1,
		Username:       username,
		DisplayName:    d.botName,
		IsBot:          true,
		BotToken:       token,
		InviterUID:     uid,
		Gifts:          []models.Gift{},
		JoinedChannels: []string{},
		ArchivedChats:  []string{},
		Sessions:       []models.DeviceSession{},
		BlockedUsers:   []string{},
		Contacts:       []string{},
		InviteLink:     "ultimate.app/" + username,
		Presence:       models.Presence{IsOnline: true, LastSeen: now},
		Privacy:        models.Privacy{InactivityMonths: 12, LastSeen: "everybody", Forwarding: "everybody"},
	}
	if err := s.store.Put(store.Users, bot.UID, bot); err != nil {
		return "Something went wrong, try again later."
	}

	d.botName = ""
	return fmt.Sprintf("Done! Congratulations on your new bot. You will find it at ultimate.app/%s.\n\nUse this token to access the API:\n%s\n\nKeep your token secure and store it safely.", username, token)
}

func (s *Service) revoke(uid, input string) string {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return "Usage: /revoke <bot username>"
	}
	username := auth.NormalizeUsername(strings.TrimPrefix(fields[1], "@"))

	users, err := store.GetAllInto[models.User](s.store, store.Users)
	if err != nil {
		return "Something went wrong, try again later."
	}
	for _, u := range users {
		if !u.IsBot || auth.NormalizeUsername(u.Username) != username {
			continue
		}
		if u.InviterUID != uid {
			return "You can only manage your own bots."
		}
		u.BotToken = uuid.NewString()
		if err := s.store.Put(store.Users, u.UID, u); err != nil {
			return "Something went wrong, try again later."
		}
		return "Token regenerated:\n" + u.BotToken
	}
	return "Bot not found. Use /mybots to list your bots."
}

// StateOf reports the current dialogue state for uid.
func (s *Service) StateOf(uid string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dialogs[uid]; ok {
		return d.state
	}
	return StateIdle
}
