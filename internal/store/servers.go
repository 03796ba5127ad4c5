package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/okzmo/kyob-client/internal/types"
)

// Presence event kinds that carry membership side effects in addition
// to the presence change itself.
const (
	EventJoinServer  = "JOIN_SERVER"
	EventLeaveServer = "LEAVE_SERVER"
)

// HistoryLoader fetches a channel's message history the first time it
// is requested. Implemented by the api client.
type HistoryLoader interface {
	ChannelMessages(ctx context.Context, channelId string) ([]types.Message, error)
}

// WindowPresence reports whether a chat window for a channel is
// currently open. Mention bookkeeping is suppressed while the user is
// looking at the channel.
type WindowPresence interface {
	ChannelWindowOpen(channelId string) bool
}

// Servers is the normalized server/channel/message state container.
// All mutations go through its methods; it performs no network calls
// except lazily loading message history through the injected
// HistoryLoader.
type Servers struct {
	mu      sync.RWMutex
	servers map[string]*types.Server
	selfId  string

	history  HistoryLoader
	presence WindowPresence
	log      *log.Logger
}

func NewServers(logger *log.Logger, history HistoryLoader, presence WindowPresence) *Servers {
	return &Servers{
		servers:  make(map[string]*types.Server),
		history:  history,
		presence: presence,
		log:      logger,
	}
}

// SetupServers installs the initial server graph from the setup
// payload, replacing any previous state.
func (s *Servers) SetupServers(servers map[string]*types.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if servers == nil {
		servers = make(map[string]*types.Server)
	}
	s.servers = servers
}

// SetSelf records the authenticated user's id, used for mention
// matching.
func (s *Servers) SetSelf(userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfId = userId
}

func (s *Servers) IsOwner(userId, serverId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv := s.servers[serverId]
	return srv != nil && srv.OwnerId == userId
}

func (s *Servers) GetServer(id string) *types.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[id]
}

// GetServers returns all servers sorted by id for stable enumeration.
func (s *Servers) GetServers() []*types.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedServersLocked()
}

func (s *Servers) sortedServersLocked() []*types.Server {
	out := make([]*types.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// GetChannels returns a server's channels sorted by id. Empty when
// the server is unknown.
func (s *Servers) GetChannels(serverId string) []*types.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedChannelsLocked(serverId)
}

func (s *Servers) sortedChannelsLocked(serverId string) []*types.Channel {
	srv := s.servers[serverId]
	if srv == nil {
		return nil
	}
	out := make([]*types.Channel, 0, len(srv.Channels))
	for _, ch := range srv.Channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (s *Servers) GetChannel(serverId, channelId string) *types.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelLocked(serverId, channelId)
}

func (s *Servers) channelLocked(serverId, channelId string) *types.Channel {
	srv := s.servers[serverId]
	if srv == nil {
		return nil
	}
	return srv.Channels[channelId]
}

func (s *Servers) GetActiveMembers(serverId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv := s.servers[serverId]
	if srv == nil {
		return 0
	}
	return len(srv.ActiveCount)
}

func (s *Servers) GetMemberById(serverId, userId string) *types.PartialUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv := s.servers[serverId]
	if srv == nil {
		return nil
	}
	for i := range srv.Members {
		if srv.Members[i].Id == userId {
			return &srv.Members[i]
		}
	}
	return nil
}

func (s *Servers) AddServer(server *types.Server) {
	if server == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if server.Channels == nil {
		server.Channels = make(map[string]*types.Channel)
	}
	s.servers[server.Id] = server
}

func (s *Servers) RemoveServer(serverId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, serverId)
}

// AddChannel is a no-op when the server is unknown, which happens when
// a channel event races a server removal.
func (s *Servers) AddChannel(serverId string, channel *types.Channel) {
	if channel == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil {
		return
	}
	if srv.Channels == nil {
		srv.Channels = make(map[string]*types.Channel)
	}
	srv.Channels[channel.Id] = channel
}

func (s *Servers) RemoveChannel(serverId, channelId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil {
		return
	}
	delete(srv.Channels, channelId)
}

// GetMessages returns the channel's cached history, loading it through
// the HistoryLoader on first access. Concurrent first loads are not
// deduplicated; the last writer wins.
func (s *Servers) GetMessages(ctx context.Context, serverId, channelId string) ([]types.Message, error) {
	s.mu.RLock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		s.mu.RUnlock()
		return nil, nil
	}
	if ch.Messages != nil {
		msgs := ch.Messages
		s.mu.RUnlock()
		return msgs, nil
	}
	s.mu.RUnlock()

	msgs, err := s.history.ChannelMessages(ctx, channelId)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []types.Message{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch = s.channelLocked(serverId, channelId)
	if ch == nil {
		return nil, nil
	}
	ch.Messages = msgs
	return ch.Messages, nil
}

// MarkChannelAsRead moves the read watermark to the newest cached
// message and clears pending mentions. No-op on unloaded channels.
func (s *Servers) MarkChannelAsRead(serverId, channelId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil || len(ch.Messages) == 0 {
		return
	}
	ch.LastMessageRead = ch.Messages[0].Id
	ch.LastMentions = nil
}

// AddMessage prepends a message into the channel's cache. A channel
// whose history was never loaded keeps a nil cache: the prepend is
// skipped, never implicitly creating the list. Unread and mention
// bookkeeping only happens while no window for the channel is open.
func (s *Servers) AddMessage(serverId string, message types.Message) {
	windowOpen := s.presence != nil && s.presence.ChannelWindowOpen(message.ChannelId)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, message.ChannelId)
	if ch == nil {
		return
	}

	if ch.Messages != nil {
		ch.Messages = append([]types.Message{message}, ch.Messages...)
	}

	if windowOpen {
		return
	}

	ch.LastMessageSent = message.Id
	if s.mentionsSelfLocked(message) {
		ch.LastMentions = append(ch.LastMentions, message.Id)
	}
}

func (s *Servers) mentionsSelfLocked(message types.Message) bool {
	if message.Everyone {
		return true
	}
	for _, id := range message.MentionsUsers {
		if id == s.selfId {
			return true
		}
	}
	return false
}

// EditMessage overwrites an existing message's editable fields in
// place and returns a copy of the result, or nil when the message is
// not cached. The caller re-tests mention conditions on the returned
// message.
func (s *Servers) EditMessage(serverId, channelId, messageId string, content []byte, mentionsUsers, mentionsChannels []string, updatedAt time.Time) *types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil || ch.Messages == nil {
		return nil
	}
	for i := range ch.Messages {
		if ch.Messages[i].Id != messageId {
			continue
		}
		ch.Messages[i].Content = content
		ch.Messages[i].MentionsUsers = mentionsUsers
		ch.Messages[i].MentionsChannels = mentionsChannels
		ch.Messages[i].UpdatedAt = updatedAt
		edited := ch.Messages[i]
		return &edited
	}
	return nil
}

func (s *Servers) GetMessage(serverId, channelId, messageId string) *types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		return nil
	}
	for i := range ch.Messages {
		if ch.Messages[i].Id == messageId {
			msg := ch.Messages[i]
			return &msg
		}
	}
	return nil
}

// DeleteMessage removes the identified message from the cache. No-op
// when the channel, its cache, or the message is absent.
func (s *Servers) DeleteMessage(serverId, channelId, messageId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil || ch.Messages == nil {
		return
	}
	for i := range ch.Messages {
		if ch.Messages[i].Id == messageId {
			ch.Messages = append(ch.Messages[:i], ch.Messages[i+1:]...)
			return
		}
	}
}

// ConnectUser folds two signals into one call: a non-empty
// connectedUsers slice authoritatively replaces the presence roster,
// and userId is incrementally added if absent. A JOIN_SERVER event
// additionally bumps the member count.
func (s *Servers) ConnectUser(serverId, userId string, connectedUsers []string, eventType string) {
	if serverId == types.GlobalServerId {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil {
		return
	}

	if len(connectedUsers) > 0 {
		srv.ActiveCount = append([]string(nil), connectedUsers...)
	} else if srv.ActiveCount == nil {
		srv.ActiveCount = []string{}
	}

	present := false
	for _, id := range srv.ActiveCount {
		if id == userId {
			present = true
			break
		}
	}
	if !present {
		srv.ActiveCount = append(srv.ActiveCount, userId)
	}

	if eventType == EventJoinServer {
		srv.MemberCount++
	}
}

// DisconnectUser removes userId from the presence roster. A
// LEAVE_SERVER event additionally drops the member entry and
// decrements the member count.
func (s *Servers) DisconnectUser(serverId, userId, eventType string) {
	if serverId == types.GlobalServerId {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil || srv.ActiveCount == nil {
		return
	}

	active := srv.ActiveCount[:0]
	for _, id := range srv.ActiveCount {
		if id != userId {
			active = append(active, id)
		}
	}
	srv.ActiveCount = active

	if eventType == EventLeaveServer {
		for i := range srv.Members {
			if srv.Members[i].Id == userId {
				srv.Members = append(srv.Members[:i], srv.Members[i+1:]...)
				break
			}
		}
		srv.MemberCount--
	}
}

func (s *Servers) AddMember(serverId string, user types.PartialUser) {
	if serverId == types.GlobalServerId {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil {
		return
	}
	srv.Members = append(srv.Members, user)
}

// ModifyMember applies a partial profile update to a server member:
// only provided fields overwrite.
func (s *Servers) ModifyMember(serverId, userId string, user types.PartialUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.servers[serverId]
	if srv == nil {
		return
	}
	for i := range srv.Members {
		if srv.Members[i].Id != userId {
			continue
		}
		applyPartialUser(&srv.Members[i], user)
		return
	}
}

func applyPartialUser(dst *types.PartialUser, src types.PartialUser) {
	if src.Avatar != "" {
		dst.Avatar = src.Avatar
	}
	if src.DisplayName != "" {
		dst.DisplayName = src.DisplayName
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.About != nil {
		dst.About = src.About
	}
	if src.Facts != nil {
		dst.Facts = src.Facts
	}
	if src.Links != nil {
		dst.Links = src.Links
	}
}

// IsInCall reports whether userId is on the channel's voice roster.
func (s *Servers) IsInCall(serverId, channelId, userId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		return false
	}
	for _, u := range ch.VoiceUsers {
		if u.UserId == userId {
			return true
		}
	}
	return false
}

// InitiateCall replaces the channel's voice roster wholesale, used to
// hydrate call state on (re)join.
func (s *Servers) InitiateCall(serverId, channelId string, users []types.VoiceUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		return
	}
	ch.VoiceUsers = users
}

func (s *Servers) ConnectUserToCall(serverId, channelId, userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		return
	}
	ch.VoiceUsers = append(ch.VoiceUsers, types.VoiceUser{UserId: userId})
}

func (s *Servers) DisconnectUserFromCall(serverId, channelId, userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channelLocked(serverId, channelId)
	if ch == nil {
		return
	}
	for i := range ch.VoiceUsers {
		if ch.VoiceUsers[i].UserId == userId {
			ch.VoiceUsers = append(ch.VoiceUsers[:i], ch.VoiceUsers[i+1:]...)
			return
		}
	}
}

// HasUnreadChannels reports whether any channel's read watermark is
// behind its latest message.
func (s *Servers) HasUnreadChannels(serverId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.sortedChannelsLocked(serverId) {
		if ch.LastMessageRead != "" && ch.LastMessageSent != "" && ch.LastMessageRead < ch.LastMessageSent {
			return true
		}
	}
	return false
}

// HasMentionsInChannels returns the pending mention count of the first
// channel holding mentions, or zero. It deliberately does not sum
// across channels; badge rendering only needs a non-zero signal.
func (s *Servers) HasMentionsInChannels(serverId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.sortedChannelsLocked(serverId) {
		if len(ch.LastMentions) > 0 {
			return len(ch.LastMentions)
		}
	}
	return 0
}

// GetLastState flattens per-channel read state into three positionally
// correlated slices for the save-state beacon.
func (s *Servers) GetLastState() types.LastState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := types.LastState{
		ChannelIds:     []string{},
		LastMessageIds: []string{},
		MentionsIds:    [][]string{},
	}

	for _, srv := range s.sortedServersLocked() {
		for _, ch := range s.sortedChannelsLocked(srv.Id) {
			mentions := ch.LastMentions
			if mentions == nil {
				mentions = []string{}
			}
			state.ChannelIds = append(state.ChannelIds, ch.Id)
			state.LastMessageIds = append(state.LastMessageIds, ch.LastMessageRead)
			state.MentionsIds = append(state.MentionsIds, mentions)
		}
	}

	return state
}
