// Package wire implements the binary envelope carried on the realtime
// socket. Each frame is a protobuf-encoded WSMessage whose oneof
// content field selects exactly one event payload. The field layout is
// a fixed external contract; the codec is written directly against
// protowire so every event decodes into a closed tagged union.
package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope oneof field numbers.
const (
	fieldChatMessage        = 1
	fieldChannelCreation    = 2
	fieldChannelRemoved     = 3
	fieldNewUser            = 4
	fieldUserConnect        = 5
	fieldUserDisconnect     = 6
	fieldDeleteMessage      = 7
	fieldEditMessage        = 8
	fieldFriendInvite       = 9
	fieldAcceptFriend       = 10
	fieldDeleteFriend       = 11
	fieldUserChanged        = 12
	fieldConnectToCall      = 13
	fieldDisconnectFromCall = 14
	fieldCallUsers          = 15
)

// DecodeError reports a malformed frame or payload. The dispatcher
// drops the frame; it never reaches application state.
type DecodeError struct {
	Case string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Case == "" {
		return fmt.Sprintf("wire: bad envelope: %v", e.Err)
	}
	return fmt.Sprintf("wire: bad %s payload: %v", e.Case, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Event is the closed union of realtime events. Exactly one concrete
// type is produced per frame.
type Event interface {
	isEvent()
}

// User is the partial profile embedded in roster and message events.
// About and Facts are raw JSON byte buffers; the dispatcher decodes
// them when non-empty.
type User struct {
	Id             string
	Username       string
	DisplayName    string
	Avatar         string
	Banner         string
	About          []byte
	Facts          []byte
	Links          []string
	GradientTop    string
	GradientBottom string
	Email          string
}

type VoiceUser struct {
	UserId string
	Mute   bool
	Deafen bool
}

type ChatMessage struct {
	Id               string
	Author           User
	ServerId         string
	ChannelId        string
	Content          []byte
	Everyone         bool
	MentionsUsers    []string
	MentionsChannels []string
	Attachments      []byte
	CreatedAt        time.Time
}

type ChannelCreation struct {
	Id          string
	ServerId    string
	Name        string
	Type        string
	Description string
	X           int
	Y           int
	Users       []User
	CreatedAt   time.Time
}

type ChannelRemoved struct {
	ServerId  string
	ChannelId string
}

type NewUser struct {
	ServerId string
	User     User
}

type UserConnect struct {
	ServerId       string
	UserId         string
	ConnectedUsers []string
	Type           string
}

type UserDisconnect struct {
	ServerId string
	UserId   string
	Type     string
}

type DeleteMessage struct {
	ServerId  string
	ChannelId string
	MessageId string
}

type EditMessage struct {
	ServerId         string
	ChannelId        string
	MessageId        string
	Content          []byte
	MentionsUsers    []string
	MentionsChannels []string
	UpdatedAt        time.Time
}

type FriendInvite struct {
	FriendshipId string
	User         User
}

type AcceptFriend struct {
	FriendshipId string
	ChannelId    string
	Sender       bool
	Friend       User
}

type DeleteFriend struct {
	FriendshipId string
}

type UserChanged struct {
	UserId   string
	ServerId string
	User     User
}

type ConnectToCall struct {
	ServerId  string
	ChannelId string
	UserId    string
}

type DisconnectFromCall struct {
	ServerId  string
	ChannelId string
	UserId    string
}

type CallUsers struct {
	ServerId  string
	ChannelId string
	Users     []VoiceUser
}

func (*ChatMessage) isEvent()        {}
func (*ChannelCreation) isEvent()    {}
func (*ChannelRemoved) isEvent()     {}
func (*NewUser) isEvent()            {}
func (*UserConnect) isEvent()        {}
func (*UserDisconnect) isEvent()     {}
func (*DeleteMessage) isEvent()      {}
func (*EditMessage) isEvent()        {}
func (*FriendInvite) isEvent()       {}
func (*AcceptFriend) isEvent()       {}
func (*DeleteFriend) isEvent()       {}
func (*UserChanged) isEvent()        {}
func (*ConnectToCall) isEvent()      {}
func (*DisconnectFromCall) isEvent() {}
func (*CallUsers) isEvent()          {}

// Decode parses one envelope frame. It returns (nil, nil) when the
// envelope carries no recognized event, letting the dispatcher drop
// unknown cases silently.
func Decode(frame []byte) (Event, error) {
	var ev Event
	b := frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, &DecodeError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, &DecodeError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			continue
		}

		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, &DecodeError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		var err error
		switch num {
		case fieldChatMessage:
			ev, err = decodeChatMessage(payload)
		case fieldChannelCreation:
			ev, err = decodeChannelCreation(payload)
		case fieldChannelRemoved:
			ev, err = decodeChannelRemoved(payload)
		case fieldNewUser:
			ev, err = decodeNewUser(payload)
		case fieldUserConnect:
			ev, err = decodeUserConnect(payload)
		case fieldUserDisconnect:
			ev, err = decodeUserDisconnect(payload)
		case fieldDeleteMessage:
			ev, err = decodeDeleteMessage(payload)
		case fieldEditMessage:
			ev, err = decodeEditMessage(payload)
		case fieldFriendInvite:
			ev, err = decodeFriendInvite(payload)
		case fieldAcceptFriend:
			ev, err = decodeAcceptFriend(payload)
		case fieldDeleteFriend:
			ev, err = decodeDeleteFriend(payload)
		case fieldUserChanged:
			ev, err = decodeUserChanged(payload)
		case fieldConnectToCall:
			ev, err = decodeConnectToCall(payload)
		case fieldDisconnectFromCall:
			ev, err = decodeDisconnectFromCall(payload)
		case fieldCallUsers:
			ev, err = decodeCallUsers(payload)
		default:
			// Unknown case, skip.
		}
		if err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// field walks one encoded field per call. Scalar payloads are returned
// raw; the per-message decoders interpret them.
type field struct {
	num protowire.Number
	// set for BytesType fields
	bytes []byte
	// set for VarintType fields
	varint uint64
}

func walkFields(name string, b []byte, apply func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &DecodeError{Case: name, Err: protowire.ParseError(n)}
		}
		b = b[n:]

		f := field{num: num}
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return &DecodeError{Case: name, Err: protowire.ParseError(n)}
			}
			f.bytes = v
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return &DecodeError{Case: name, Err: protowire.ParseError(n)}
			}
			f.varint = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return &DecodeError{Case: name, Err: protowire.ParseError(n)}
			}
			b = b[n:]
			continue
		}

		if err := apply(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeTimestamp(name string, b []byte) (time.Time, error) {
	var secs int64
	var nanos int64
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			secs = int64(f.varint)
		case 2:
			nanos = int64(f.varint)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if secs == 0 && nanos == 0 {
		return time.Time{}, nil
	}
	return time.Unix(secs, nanos).UTC(), nil
}

func decodeUser(name string, b []byte) (User, error) {
	var u User
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			u.Id = string(f.bytes)
		case 2:
			u.Username = string(f.bytes)
		case 3:
			u.DisplayName = string(f.bytes)
		case 4:
			u.Avatar = string(f.bytes)
		case 5:
			u.Banner = string(f.bytes)
		case 6:
			u.About = append([]byte(nil), f.bytes...)
		case 7:
			u.Facts = append([]byte(nil), f.bytes...)
		case 8:
			u.Links = append(u.Links, string(f.bytes))
		case 9:
			u.GradientTop = string(f.bytes)
		case 10:
			u.GradientBottom = string(f.bytes)
		case 11:
			u.Email = string(f.bytes)
		}
		return nil
	})
	return u, err
}

func decodeChatMessage(b []byte) (*ChatMessage, error) {
	const name = "chatMessage"
	ev := &ChatMessage{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.Id = string(f.bytes)
		case 2:
			author, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.Author = author
		case 3:
			ev.ServerId = string(f.bytes)
		case 4:
			ev.ChannelId = string(f.bytes)
		case 5:
			ev.Content = append([]byte(nil), f.bytes...)
		case 6:
			ev.Everyone = f.varint != 0
		case 7:
			ev.MentionsUsers = append(ev.MentionsUsers, string(f.bytes))
		case 8:
			ev.MentionsChannels = append(ev.MentionsChannels, string(f.bytes))
		case 9:
			ev.Attachments = append([]byte(nil), f.bytes...)
		case 10:
			ts, err := decodeTimestamp(name, f.bytes)
			if err != nil {
				return err
			}
			ev.CreatedAt = ts
		}
		return nil
	})
	return ev, err
}

func decodeChannelCreation(b []byte) (*ChannelCreation, error) {
	const name = "channelCreation"
	ev := &ChannelCreation{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.Id = string(f.bytes)
		case 2:
			ev.ServerId = string(f.bytes)
		case 3:
			ev.Name = string(f.bytes)
		case 4:
			ev.Type = string(f.bytes)
		case 5:
			ev.Description = string(f.bytes)
		case 6:
			ev.X = int(int64(f.varint))
		case 7:
			ev.Y = int(int64(f.varint))
		case 8:
			u, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.Users = append(ev.Users, u)
		case 9:
			ts, err := decodeTimestamp(name, f.bytes)
			if err != nil {
				return err
			}
			ev.CreatedAt = ts
		}
		return nil
	})
	return ev, err
}

func decodeChannelRemoved(b []byte) (*ChannelRemoved, error) {
	ev := &ChannelRemoved{}
	err := walkFields("channelRemoved", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeNewUser(b []byte) (*NewUser, error) {
	const name = "newUser"
	ev := &NewUser{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			u, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.User = u
		}
		return nil
	})
	return ev, err
}

func decodeUserConnect(b []byte) (*UserConnect, error) {
	ev := &UserConnect{}
	err := walkFields("userConnect", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.UserId = string(f.bytes)
		case 3:
			ev.ConnectedUsers = append(ev.ConnectedUsers, string(f.bytes))
		case 4:
			ev.Type = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeUserDisconnect(b []byte) (*UserDisconnect, error) {
	ev := &UserDisconnect{}
	err := walkFields("userDisconnect", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.UserId = string(f.bytes)
		case 3:
			ev.Type = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeDeleteMessage(b []byte) (*DeleteMessage, error) {
	ev := &DeleteMessage{}
	err := walkFields("deleteMessage", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			ev.MessageId = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeEditMessage(b []byte) (*EditMessage, error) {
	const name = "editMessage"
	ev := &EditMessage{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			ev.MessageId = string(f.bytes)
		case 4:
			ev.Content = append([]byte(nil), f.bytes...)
		case 5:
			ev.MentionsUsers = append(ev.MentionsUsers, string(f.bytes))
		case 6:
			ev.MentionsChannels = append(ev.MentionsChannels, string(f.bytes))
		case 7:
			ts, err := decodeTimestamp(name, f.bytes)
			if err != nil {
				return err
			}
			ev.UpdatedAt = ts
		}
		return nil
	})
	return ev, err
}

func decodeFriendInvite(b []byte) (*FriendInvite, error) {
	const name = "friendInvite"
	ev := &FriendInvite{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.FriendshipId = string(f.bytes)
		case 2:
			u, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.User = u
		}
		return nil
	})
	return ev, err
}

func decodeAcceptFriend(b []byte) (*AcceptFriend, error) {
	const name = "acceptFriend"
	ev := &AcceptFriend{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.FriendshipId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			ev.Sender = f.varint != 0
		case 4:
			u, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.Friend = u
		}
		return nil
	})
	return ev, err
}

func decodeDeleteFriend(b []byte) (*DeleteFriend, error) {
	ev := &DeleteFriend{}
	err := walkFields("deleteFriend", b, func(f field) error {
		if f.num == 1 {
			ev.FriendshipId = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeUserChanged(b []byte) (*UserChanged, error) {
	const name = "userChanged"
	ev := &UserChanged{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.UserId = string(f.bytes)
		case 2:
			ev.ServerId = string(f.bytes)
		case 3:
			u, err := decodeUser(name, f.bytes)
			if err != nil {
				return err
			}
			ev.User = u
		}
		return nil
	})
	return ev, err
}

func decodeConnectToCall(b []byte) (*ConnectToCall, error) {
	ev := &ConnectToCall{}
	err := walkFields("connectToCall", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			ev.UserId = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeDisconnectFromCall(b []byte) (*DisconnectFromCall, error) {
	ev := &DisconnectFromCall{}
	err := walkFields("disconnectFromCall", b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			ev.UserId = string(f.bytes)
		}
		return nil
	})
	return ev, err
}

func decodeCallUsers(b []byte) (*CallUsers, error) {
	const name = "callUsers"
	ev := &CallUsers{}
	err := walkFields(name, b, func(f field) error {
		switch f.num {
		case 1:
			ev.ServerId = string(f.bytes)
		case 2:
			ev.ChannelId = string(f.bytes)
		case 3:
			var vu VoiceUser
			err := walkFields(name, f.bytes, func(uf field) error {
				switch uf.num {
				case 1:
					vu.UserId = string(uf.bytes)
				case 2:
					vu.Mute = uf.varint != 0
				case 3:
					vu.Deafen = uf.varint != 0
				}
				return nil
			})
			if err != nil {
				return err
			}
			ev.Users = append(ev.Users, vu)
		}
		return nil
	})
	return ev, err
}
