package store

import (
	"log"
	"sync"

	"github.com/okzmo/kyob-client/internal/types"
)

// Users holds the authenticated user's own state: profile, friend
// list, custom emojis, call tokens and the local mute/deafen flags.
// Pure state; sound cues and media-session calls are the call
// coordinator's job.
type Users struct {
	mu         sync.RWMutex
	user       *types.User
	friends    []types.Friend
	emojis     []types.Emoji
	callTokens map[string]string
	mute       bool
	deafen     bool

	servers *Servers
	log     *log.Logger
}

func NewUsers(logger *log.Logger, servers *Servers) *Users {
	return &Users{
		callTokens: make(map[string]string),
		servers:    servers,
		log:        logger,
	}
}

func (u *Users) SetUser(user types.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.user = &user
	if u.servers != nil {
		u.servers.SetSelf(user.Id)
	}
}

func (u *Users) User() *types.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.user
}

func (u *Users) SelfId() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.user == nil {
		return ""
	}
	return u.user.Id
}

// UpdateUser applies a partial update to the profile: only provided
// fields overwrite.
func (u *Users) UpdateUser(partial types.PartialUser) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.user == nil {
		return
	}
	if partial.Username != "" {
		u.user.Username = partial.Username
	}
	if partial.DisplayName != "" {
		u.user.DisplayName = partial.DisplayName
	}
	if partial.Avatar != "" {
		u.user.Avatar = partial.Avatar
	}
	if partial.Banner != "" {
		u.user.Banner = partial.Banner
	}
	if partial.About != nil {
		u.user.About = partial.About
	}
	if partial.Facts != nil {
		u.user.Facts = partial.Facts
	}
	if partial.Links != nil {
		u.user.Links = partial.Links
	}
}

// GetDms lists unread direct-message conversations from the global
// server's channels.
func (u *Users) GetDms() []types.DM {
	selfId := u.SelfId()
	if u.servers == nil {
		return nil
	}
	global := u.servers.GetServer(types.GlobalServerId)
	if global == nil {
		return nil
	}

	dms := []types.DM{}
	for _, ch := range u.servers.GetChannels(types.GlobalServerId) {
		if ch.LastMessageRead >= ch.LastMessageSent {
			continue
		}
		for _, peer := range ch.Users {
			if peer.Id == selfId {
				continue
			}
			dms = append(dms, types.DM{
				FriendId:  peer.Id,
				ChannelId: ch.Id,
				Avatar:    peer.Avatar,
				Username:  peer.Username,
			})
			break
		}
	}
	return dms
}

func (u *Users) SetMute(mute bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.mute = mute
}

func (u *Users) Muted() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.mute
}

func (u *Users) SetDeafen(deafen bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deafen = deafen
}

func (u *Users) Deafened() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.deafen
}

func (u *Users) SetCallToken(channelId, token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callTokens[channelId] = token
}

func (u *Users) CallToken(channelId string) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.callTokens[channelId]
}

func (u *Users) AddEmojis(emojis ...types.Emoji) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.emojis = append(u.emojis, emojis...)
}

func (u *Users) Emojis() []types.Emoji {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]types.Emoji(nil), u.emojis...)
}

func (u *Users) SetupFriends(friends []types.Friend) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.friends = friends
}

func (u *Users) AddFriend(friend types.Friend) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.friends = append(u.friends, friend)
}

func (u *Users) GetFriend(id string) *types.Friend {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for i := range u.friends {
		if u.friends[i].Id == id {
			f := u.friends[i]
			return &f
		}
	}
	return nil
}

func (u *Users) GetFriendByFriendship(friendshipId string) *types.Friend {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for i := range u.friends {
		if u.friends[i].FriendshipId == friendshipId {
			f := u.friends[i]
			return &f
		}
	}
	return nil
}

func (u *Users) Friends() []types.Friend {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]types.Friend(nil), u.friends...)
}

// ModifyFriend applies a partial profile update to a friend entry.
func (u *Users) ModifyFriend(friendId string, partial types.PartialUser) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.friends {
		if u.friends[i].Id != friendId {
			continue
		}
		applyPartialUser(&u.friends[i].PartialUser, partial)
		return
	}
}

// AcceptFriend resolves a pending friendship. On the receiving side
// the pending entry is flipped to accepted; on the sending side the
// server's accept event materializes the full friend entry instead.
func (u *Users) AcceptFriend(friendshipId string, friend *types.Friend, sender bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !sender {
		for i := range u.friends {
			if u.friends[i].FriendshipId == friendshipId {
				u.friends[i].Accepted = true
				return
			}
		}
		return
	}
	if friend != nil {
		u.friends = append(u.friends, *friend)
	}
}

// SetFriendChannelId back-fills the DM channel id once the server has
// created the channel for an accepted friendship.
func (u *Users) SetFriendChannelId(friendshipId, channelId string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.friends {
		if u.friends[i].FriendshipId == friendshipId {
			u.friends[i].ChannelId = channelId
			return
		}
	}
}

func (u *Users) DeleteFriend(friendshipId string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.friends {
		if u.friends[i].FriendshipId == friendshipId {
			u.friends = append(u.friends[:i], u.friends[i+1:]...)
			return
		}
	}
}
