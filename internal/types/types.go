package types

import (
	"encoding/json"
	"time"
)

// GlobalServerId is the synthetic server holding direct-message
// channels. It has no member roster or presence bookkeeping.
const GlobalServerId = "global"

type ChannelKind string

const (
	ChannelTextual ChannelKind = "textual"
	ChannelVoice   ChannelKind = "voice"
)

type User struct {
	Id             string          `json:"id"`
	Email          string          `json:"email,omitempty"`
	Username       string          `json:"username"`
	DisplayName    string          `json:"display_name"`
	Avatar         string          `json:"avatar,omitempty"`
	Banner         string          `json:"banner,omitempty"`
	About          json.RawMessage `json:"about,omitempty"`
	Facts          json.RawMessage `json:"facts,omitempty"`
	Links          []string        `json:"links,omitempty"`
	GradientTop    string          `json:"gradient_top,omitempty"`
	GradientBottom string          `json:"gradient_bottom,omitempty"`
}

// PartialUser carries the subset of profile fields broadcast with
// roster and message events. Zero-valued fields mean "not provided".
type PartialUser struct {
	Id          string          `json:"id"`
	Username    string          `json:"username,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Banner      string          `json:"banner,omitempty"`
	About       json.RawMessage `json:"about,omitempty"`
	Facts       json.RawMessage `json:"facts,omitempty"`
	Links       []string        `json:"links,omitempty"`
}

type Attachment struct {
	Id       string `json:"id"`
	Url      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int64  `json:"size,omitempty"`
}

type Message struct {
	Id               string          `json:"id"`
	Author           PartialUser     `json:"author"`
	ServerId         string          `json:"server_id"`
	ChannelId        string          `json:"channel_id"`
	Content          json.RawMessage `json:"content"`
	Everyone         bool            `json:"everyone,omitempty"`
	MentionsUsers    []string        `json:"mentions_users"`
	MentionsChannels []string        `json:"mentions_channels"`
	Attachments      []Attachment    `json:"attachments,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at,omitempty"`
}

type VoiceUser struct {
	UserId string `json:"user_id"`
	Mute   bool   `json:"mute"`
	Deafen bool   `json:"deafen"`
}

type Channel struct {
	Id          string      `json:"id"`
	ServerId    string      `json:"server_id"`
	Name        string      `json:"name"`
	Kind        ChannelKind `json:"type"`
	Description string      `json:"description,omitempty"`
	X           int         `json:"x"`
	Y           int         `json:"y"`

	// Messages is nil until history is explicitly loaded. A nil list
	// is distinct from an empty one: mutations on an unloaded channel
	// are no-ops.
	Messages []Message `json:"messages,omitempty"`

	LastMessageSent string   `json:"last_message_sent,omitempty"`
	LastMessageRead string   `json:"last_message_read,omitempty"`
	LastMentions    []string `json:"last_mentions,omitempty"`

	// Users is set on direct-message channels under the global server.
	Users []PartialUser `json:"users,omitempty"`

	VoiceUsers []VoiceUser `json:"voice_users,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Server struct {
	Id          string              `json:"id"`
	OwnerId     string              `json:"owner_id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Avatar      string              `json:"avatar,omitempty"`
	Banner      string              `json:"banner,omitempty"`
	Channels    map[string]*Channel `json:"channels"`
	ActiveCount []string            `json:"active_count,omitempty"`
	MemberCount int                 `json:"member_count"`
	Members     []PartialUser       `json:"members,omitempty"`
	Hidden      bool                `json:"hidden,omitempty"`
	CreatedAt   time.Time           `json:"created_at,omitempty"`
}

type Friend struct {
	PartialUser
	FriendshipId string `json:"friendship_id"`
	Accepted     bool   `json:"accepted"`
	Sender       bool   `json:"sender"`
	ChannelId    string `json:"channel_id,omitempty"`
}

type Emoji struct {
	Id        string   `json:"id"`
	Shortcode string   `json:"shortcode"`
	Url       string   `json:"url"`
	Unicode   string   `json:"unicode,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// LastState serializes per-channel read state for persistence. The
// three slices are positionally correlated: index i of each slice
// describes the same channel.
type LastState struct {
	ChannelIds     []string   `json:"channel_ids"`
	LastMessageIds []string   `json:"last_message_ids"`
	MentionsIds    [][]string `json:"mentions_ids"`
}

// DM describes an unread direct-message conversation for the DM list.
type DM struct {
	FriendId  string `json:"friend_id"`
	ChannelId string `json:"channel_id"`
	Avatar    string `json:"avatar"`
	Username  string `json:"username"`
}

type Setup struct {
	User    User               `json:"user"`
	Servers map[string]*Server `json:"servers"`
	Friends []Friend           `json:"friends"`
	Emojis  []Emoji            `json:"emojis"`
}
