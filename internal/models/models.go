package models

// Presence is derived from a periodically refreshed heartbeat; a user counts
// as online while lastSeen is within the configured window.
type Presence struct {
	IsOnline     bool  `json:"is_online"`
	LastSeen     int64 `json:"last_seen"`
	StatusHidden bool  `json:"status_hidden"`
}

type Privacy struct {
	InactivityMonths int    `json:"inactivity_months"`
	TransferToID     string `json:"transfer_to_id,omitempty"`
	LastSeen         string `json:"last_seen"`  // everybody, contacts, nobody
	Forwarding       string `json:"forwarding"` // everybody, nobody
}

type DeviceSession struct {
	ID         string `json:"id"`
	DeviceName string `json:"device_name"`
	OS         string `json:"os"`
	IP         string `json:"ip,omitempty"`
	LastActive int64  `json:"last_active"`
	AppVersion string `json:"app_version"`
}

type Gift struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Emoji  string `json:"emoji"`
	Rarity string `json:"rarity"`
}

type User struct {
	UID            string          `json:"uid"`
	NumericID      int64           `json:"numeric_id"`
	Username       string          `json:"username"`
	DisplayName    string          `json:"display_name"`
	Bio            string          `json:"bio,omitempty"`
	BirthDate      string          `json:"birth_date,omitempty"` // YYYY-MM-DD
	Phone          string          `json:"phone,omitempty"`
	SecretHash     string          `json:"secret_hash,omitempty"`
	Avatar         string          `json:"avatar,omitempty"`
	TypoloBalance  int64           `json:"typolo_balance"`
	Gifts          []Gift          `json:"gifts"`
	JoinedChannels []string        `json:"joined_channels"`
	ArchivedChats  []string        `json:"archived_chats"`
	IsAdmin        bool            `json:"is_admin"`
	IsBanned       bool            `json:"is_banned,omitempty"`
	IsBot          bool            `json:"is_bot,omitempty"`
	BotToken       string          `json:"bot_token,omitempty"`
	WebAppURL      string          `json:"web_app_url,omitempty"`
	OwnedBots      []string        `json:"owned_bots,omitempty"`
	Presence       Presence        `json:"presence"`
	Sessions       []DeviceSession `json:"sessions"`
	BlockedUsers   []string        `json:"blocked_users"`
	Contacts       []string        `json:"contacts"`
	InviteLink     string          `json:"invite_link"`
	InviterUID     string          `json:"inviter_uid,omitempty"`
	ReferralCount  int             `json:"referral_count"`
	Privacy        Privacy         `json:"privacy"`
}

// Public returns a copy safe for API responses: credential material zeroed.
func (u User) Public() User {
	u.SecretHash = ""
	u.BotToken = ""
	return u
}

const (
	ChatPrivate = "private"
	ChatGroup   = "group"
	ChatChannel = "channel"
)

type Chat struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	Avatar          string   `json:"avatar"`
	Type            string   `json:"type"` // private, group, channel
	Participants    []string `json:"participants"`
	LastMessage     string   `json:"last_message,omitempty"`
	LastMessageTime int64    `json:"last_message_time,omitempty"`
	UnreadCount     int      `json:"unread_count,omitempty"`
	Pinned          bool     `json:"pinned,omitempty"`
	SlowModeSeconds int      `json:"slow_mode_seconds,omitempty"`
	PeerAvatar      string   `json:"peer_avatar,omitempty"`
}

const (
	MessageText   = "text"
	MessageVoice  = "voice"
	MessageMedia  = "media"
	MessageSystem = "system"
)

type Edit struct {
	Text string `json:"text"`
	Time int64  `json:"time"`
}

type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"user_ids"`
}

type Message struct {
	ID              string     `json:"id"`
	ChatID          string     `json:"chat_id"`
	SenderID        string     `json:"sender_id"`
	SenderName      string     `json:"sender_name"`
	Text            string     `json:"text,omitempty"`
	Audio           string     `json:"audio,omitempty"`
	MediaURL        string     `json:"media_url,omitempty"`
	MediaType       string     `json:"media_type,omitempty"` // image, video, file
	Type            string     `json:"type"`
	Status          string     `json:"status"` // pending, sent, read, failed
	ReplyToID       string     `json:"reply_to_id,omitempty"`
	ForwardedFromID string     `json:"forwarded_from_id,omitempty"`
	IsForwarded     bool       `json:"is_forwarded,omitempty"`
	ForwardHidden   bool       `json:"forward_hidden,omitempty"`
	Timestamp       int64      `json:"timestamp"`
	LocalTimestamp  int64      `json:"local_timestamp"`
	SeenBy          []string   `json:"seen_by"`
	IsDeleted       bool       `json:"is_deleted,omitempty"`
	EditHistory     []Edit     `json:"edit_history,omitempty"`
	Reactions       []Reaction `json:"reactions,omitempty"`
}

type StoryFrame struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Color       string `json:"color"`
}

type Story struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Username  string       `json:"username"`
	Avatar    string       `json:"avatar"`
	Frames    []StoryFrame `json:"frames"`
	Seen      bool         `json:"seen"`
	CreatedAt int64        `json:"created_at"`
	ExpiresAt int64        `json:"expires_at"`
}

const (
	CallRinging   = "ringing"
	CallConnected = "connected"
	CallEnded     = "ended"
	CallRejected  = "rejected"
)

type CallSession struct {
	ID           string `json:"id"`
	CallerID     string `json:"caller_id"`
	CallerName   string `json:"caller_name"`
	CallerAvatar string `json:"caller_avatar,omitempty"`
	ReceiverID   string `json:"receiver_id"`
	Type         string `json:"type"`   // audio, video
	Status       string `json:"status"` // ringing, connected, ended, rejected
	Timestamp    int64  `json:"timestamp"`
}

type StreamMessage struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Text       string `json:"text"`
	IsDonation bool   `json:"is_donation,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type JoinRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type LiveStream struct {
	ID           string          `json:"id"`
	Version      int64           `json:"version"`
	IsActive     bool            `json:"is_active"`
	Title        string          `json:"title"`
	ViewersCount int             `json:"viewers_count"`
	StartedAt    int64           `json:"started_at"`
	HostID       string          `json:"host_id"`
	GuestID      string          `json:"guest_id,omitempty"`
	GuestName    string          `json:"guest_name,omitempty"`
	Requests     []JoinRequest   `json:"requests"`
	Messages     []StreamMessage `json:"messages"`
}

type AdConfig struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Image      string `json:"image,omitempty"`
	Link       string `json:"link,omitempty"`
	ButtonText string `json:"button_text,omitempty"`
	IsActive   bool   `json:"is_active"`
	Views      int64  `json:"views"`
}

type PushSubscription struct {
	Endpoint  string `json:"endpoint"`
	UserID    string `json:"user_id"`
	KeyP256dh string `json:"p256dh"`
	KeyAuth   string `json:"auth"`
}
