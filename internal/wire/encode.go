package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes an event into an envelope frame using the same
// field layout Decode expects.
func Marshal(ev Event) ([]byte, error) {
	var num protowire.Number
	var payload []byte

	switch e := ev.(type) {
	case *ChatMessage:
		num, payload = fieldChatMessage, appendChatMessage(nil, e)
	case *ChannelCreation:
		num, payload = fieldChannelCreation, appendChannelCreation(nil, e)
	case *ChannelRemoved:
		num, payload = fieldChannelRemoved, appendStrings(nil, e.ServerId, e.ChannelId)
	case *NewUser:
		num = fieldNewUser
		payload = appendString(nil, 1, e.ServerId)
		payload = appendMessage(payload, 2, appendUser(nil, &e.User))
	case *UserConnect:
		num = fieldUserConnect
		payload = appendStrings(nil, e.ServerId, e.UserId)
		for _, id := range e.ConnectedUsers {
			payload = appendString(payload, 3, id)
		}
		payload = appendString(payload, 4, e.Type)
	case *UserDisconnect:
		num, payload = fieldUserDisconnect, appendStrings(nil, e.ServerId, e.UserId, e.Type)
	case *DeleteMessage:
		num, payload = fieldDeleteMessage, appendStrings(nil, e.ServerId, e.ChannelId, e.MessageId)
	case *EditMessage:
		num = fieldEditMessage
		payload = appendStrings(nil, e.ServerId, e.ChannelId, e.MessageId)
		payload = appendBytes(payload, 4, e.Content)
		for _, id := range e.MentionsUsers {
			payload = appendString(payload, 5, id)
		}
		for _, id := range e.MentionsChannels {
			payload = appendString(payload, 6, id)
		}
		payload = appendTimestamp(payload, 7, e.UpdatedAt)
	case *FriendInvite:
		num = fieldFriendInvite
		payload = appendString(nil, 1, e.FriendshipId)
		payload = appendMessage(payload, 2, appendUser(nil, &e.User))
	case *AcceptFriend:
		num = fieldAcceptFriend
		payload = appendStrings(nil, e.FriendshipId, e.ChannelId)
		payload = appendBool(payload, 3, e.Sender)
		payload = appendMessage(payload, 4, appendUser(nil, &e.Friend))
	case *DeleteFriend:
		num, payload = fieldDeleteFriend, appendString(nil, 1, e.FriendshipId)
	case *UserChanged:
		num = fieldUserChanged
		payload = appendStrings(nil, e.UserId, e.ServerId)
		payload = appendMessage(payload, 3, appendUser(nil, &e.User))
	case *ConnectToCall:
		num, payload = fieldConnectToCall, appendStrings(nil, e.ServerId, e.ChannelId, e.UserId)
	case *DisconnectFromCall:
		num, payload = fieldDisconnectFromCall, appendStrings(nil, e.ServerId, e.ChannelId, e.UserId)
	case *CallUsers:
		num = fieldCallUsers
		payload = appendStrings(nil, e.ServerId, e.ChannelId)
		for _, u := range e.Users {
			var b []byte
			b = appendString(b, 1, u.UserId)
			b = appendBool(b, 2, u.Mute)
			b = appendBool(b, 3, u.Deafen)
			payload = appendMessage(payload, 3, b)
		}
	default:
		return nil, fmt.Errorf("wire: unsupported event %T", ev)
	}

	return appendMessage(nil, num, payload), nil
}

func appendChatMessage(b []byte, e *ChatMessage) []byte {
	b = appendString(b, 1, e.Id)
	b = appendMessage(b, 2, appendUser(nil, &e.Author))
	b = appendString(b, 3, e.ServerId)
	b = appendString(b, 4, e.ChannelId)
	b = appendBytes(b, 5, e.Content)
	b = appendBool(b, 6, e.Everyone)
	for _, id := range e.MentionsUsers {
		b = appendString(b, 7, id)
	}
	for _, id := range e.MentionsChannels {
		b = appendString(b, 8, id)
	}
	b = appendBytes(b, 9, e.Attachments)
	b = appendTimestamp(b, 10, e.CreatedAt)
	return b
}

func appendChannelCreation(b []byte, e *ChannelCreation) []byte {
	b = appendString(b, 1, e.Id)
	b = appendString(b, 2, e.ServerId)
	b = appendString(b, 3, e.Name)
	b = appendString(b, 4, e.Type)
	b = appendString(b, 5, e.Description)
	b = appendVarint(b, 6, uint64(e.X))
	b = appendVarint(b, 7, uint64(e.Y))
	for i := range e.Users {
		b = appendMessage(b, 8, appendUser(nil, &e.Users[i]))
	}
	b = appendTimestamp(b, 9, e.CreatedAt)
	return b
}

func appendUser(b []byte, u *User) []byte {
	b = appendString(b, 1, u.Id)
	b = appendString(b, 2, u.Username)
	b = appendString(b, 3, u.DisplayName)
	b = appendString(b, 4, u.Avatar)
	b = appendString(b, 5, u.Banner)
	b = appendBytes(b, 6, u.About)
	b = appendBytes(b, 7, u.Facts)
	for _, l := range u.Links {
		b = appendString(b, 8, l)
	}
	b = appendString(b, 9, u.GradientTop)
	b = appendString(b, 10, u.GradientBottom)
	b = appendString(b, 11, u.Email)
	return b
}

// appendStrings appends non-empty values as consecutive string fields
// starting at field 1.
func appendStrings(b []byte, values ...string) []byte {
	for i, v := range values {
		b = appendString(b, protowire.Number(i+1), v)
	}
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendTimestamp(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	var ts []byte
	ts = appendVarint(ts, 1, uint64(t.Unix()))
	ts = appendVarint(ts, 2, uint64(t.Nanosecond()))
	return appendMessage(b, num, ts)
}
