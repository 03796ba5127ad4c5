// Package gateway owns the realtime socket: it decodes inbound binary
// envelopes, applies each event to the stores in receipt order, and
// fires the derived side effects (sound cues, window closes, call
// roster changes). Reconnection is the transport owner's problem; this
// layer logs connection errors and stops.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okzmo/kyob-client/internal/call"
	"github.com/okzmo/kyob-client/internal/sound"
	"github.com/okzmo/kyob-client/internal/stats"
	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/types"
	"github.com/okzmo/kyob-client/internal/windows"
	"github.com/okzmo/kyob-client/internal/wire"
)

const (
	// heartbeatLiteral is sent as a text frame on a fixed cadence and
	// dropped by literal equality on receipt; it never reaches the
	// binary decoder.
	heartbeatLiteral  = "heartbeat"
	heartbeatInterval = 10 * time.Second

	// connectDebounce absorbs rapid connect/disconnect flicker before
	// presence updates are applied.
	connectDebounce = 500 * time.Millisecond
)

// LastStateSaver receives the read-state beacon on teardown.
type LastStateSaver interface {
	SaveLastState(state types.LastState)
}

// ProfileView is an open profile panel; it is one of the three
// projections a userChanged event must keep consistent.
type ProfileView interface {
	UserId() string
	Apply(partial types.PartialUser)
}

type Gateway struct {
	url       string
	sessionId string

	servers *store.Servers
	users   *store.Users
	wins    *windows.Manager
	calls   *call.Coordinator
	sounds  sound.Player
	stats   stats.StatsProvider
	beacon  LastStateSaver
	log     *log.Logger

	conn *websocket.Conn
	done chan struct{}

	mu        sync.Mutex
	timers    map[*time.Timer]struct{}
	profile   ProfileView
	closed    bool
	connected bool
}

func New(logger *log.Logger, url string, servers *store.Servers, users *store.Users, wins *windows.Manager, calls *call.Coordinator, sounds sound.Player, st stats.StatsProvider, beacon LastStateSaver) *Gateway {
	return &Gateway{
		url:       url,
		sessionId: uuid.NewString(),
		servers:   servers,
		users:     users,
		wins:      wins,
		calls:     calls,
		sounds:    sounds,
		stats:     st,
		beacon:    beacon,
		log:       logger,
		done:      make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),
	}
}

// SessionId identifies this connection for reconnect correlation.
func (g *Gateway) SessionId() string {
	return g.sessionId
}

// SetProfileView registers the currently open profile panel, or nil
// when it closes.
func (g *Gateway) SetProfileView(v ProfileView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profile = v
}

// Connect dials the realtime endpoint and starts the read loop and
// heartbeat cadence.
func (g *Gateway) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return err
	}
	g.conn = conn

	g.mu.Lock()
	if g.connected {
		g.stats.Incr(stats.Reconnects)
	}
	g.connected = true
	g.mu.Unlock()

	go g.readLoop()
	go g.heartbeat()
	return nil
}

// Close tears the connection down: pending debounce timers are
// cancelled, the read-state beacon is sent best-effort, and the socket
// is closed.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	for t := range g.timers {
		t.Stop()
	}
	g.timers = make(map[*time.Timer]struct{})
	g.mu.Unlock()

	close(g.done)

	if g.beacon != nil {
		g.beacon.SaveLastState(g.servers.GetLastState())
	}

	if g.conn != nil {
		if err := g.conn.Close(); err != nil {
			g.log.Println("gateway close:", err)
		}
	}
}

func (g *Gateway) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if err := g.conn.WriteMessage(websocket.TextMessage, []byte(heartbeatLiteral)); err != nil {
				g.log.Println("heartbeat:", err)
				return
			}
		}
	}
}

func (g *Gateway) readLoop() {
	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			select {
			case <-g.done:
			default:
				g.log.Println("gateway read:", err)
			}
			return
		}

		if string(data) == heartbeatLiteral {
			continue
		}

		ev, err := wire.Decode(data)
		if err != nil {
			g.stats.Incr(stats.DecodeErrors)
			g.log.Println("gateway decode:", err)
			continue
		}
		if ev == nil {
			continue
		}

		g.stats.Incr(stats.EventsDispatched)
		g.dispatch(ev)
	}
}

// dispatch applies one event synchronously. Events are handled in
// receipt order; only presence updates are deferred, through the
// connect debounce.
func (g *Gateway) dispatch(ev wire.Event) {
	switch e := ev.(type) {
	case *wire.ChatMessage:
		g.handleChatMessage(e)
	case *wire.ChannelCreation:
		g.handleChannelCreation(e)
	case *wire.ChannelRemoved:
		g.servers.RemoveChannel(e.ServerId, e.ChannelId)
		if w := g.wins.GetWindow(windows.Lookup{ChannelId: e.ChannelId}); w != nil {
			g.wins.CloseDeadWindow(w.Id)
		}
	case *wire.NewUser:
		g.servers.AddMember(e.ServerId, partialUser(e.User))
	case *wire.UserConnect:
		g.scheduleConnect(e)
	case *wire.UserDisconnect:
		// A stale broadcast for our own connection must not evict us.
		if e.UserId == g.users.SelfId() {
			return
		}
		g.servers.DisconnectUser(e.ServerId, e.UserId, e.Type)
	case *wire.DeleteMessage:
		g.servers.DeleteMessage(e.ServerId, e.ChannelId, e.MessageId)
	case *wire.EditMessage:
		edited := g.servers.EditMessage(e.ServerId, e.ChannelId, e.MessageId, e.Content, e.MentionsUsers, e.MentionsChannels, e.UpdatedAt)
		if edited != nil {
			g.maybeNotify(e.ServerId, *edited)
		}
	case *wire.FriendInvite:
		g.users.AddFriend(types.Friend{
			PartialUser:  partialUser(e.User),
			FriendshipId: e.FriendshipId,
		})
	case *wire.AcceptFriend:
		g.handleAcceptFriend(e)
	case *wire.DeleteFriend:
		g.handleDeleteFriend(e)
	case *wire.UserChanged:
		g.handleUserChanged(e)
	case *wire.ConnectToCall:
		g.calls.HandleConnect(e.ServerId, e.ChannelId, e.UserId)
	case *wire.DisconnectFromCall:
		g.calls.HandleDisconnect(e.ServerId, e.ChannelId, e.UserId)
	case *wire.CallUsers:
		users := make([]types.VoiceUser, len(e.Users))
		for i, u := range e.Users {
			users[i] = types.VoiceUser(u)
		}
		g.calls.HandleRoster(e.ServerId, e.ChannelId, users)
	}
}

func (g *Gateway) handleChatMessage(e *wire.ChatMessage) {
	msg := types.Message{
		Id:               e.Id,
		Author:           partialUser(e.Author),
		ServerId:         e.ServerId,
		ChannelId:        e.ChannelId,
		Content:          json.RawMessage(e.Content),
		Everyone:         e.Everyone,
		MentionsUsers:    e.MentionsUsers,
		MentionsChannels: e.MentionsChannels,
		CreatedAt:        e.CreatedAt,
	}
	if len(e.Attachments) > 0 {
		if err := json.Unmarshal(e.Attachments, &msg.Attachments); err != nil {
			g.log.Println("attachments decode:", err)
		}
	}

	g.servers.AddMessage(e.ServerId, msg)
	g.stats.Incr(stats.MessagesReceived)
	g.maybeNotify(e.ServerId, msg)
}

// maybeNotify plays the notification cue when someone else's message
// mentions us or lands in a DM, and no window for that channel is
// open.
func (g *Gateway) maybeNotify(serverId string, msg types.Message) {
	selfId := g.users.SelfId()
	if msg.Author.Id == selfId {
		return
	}

	mentioned := msg.Everyone
	for _, id := range msg.MentionsUsers {
		if id == selfId {
			mentioned = true
			break
		}
	}
	isDM := serverId == types.GlobalServerId
	if !mentioned && !isDM {
		return
	}

	if g.wins.GetWindow(windows.Lookup{ChannelId: msg.ChannelId}) != nil {
		return
	}

	g.sounds.Play(sound.CueNotification)
	g.stats.Incr(stats.NotificationsPlayed)
}

func (g *Gateway) handleChannelCreation(e *wire.ChannelCreation) {
	ch := &types.Channel{
		Id:          e.Id,
		ServerId:    e.ServerId,
		Name:        e.Name,
		Kind:        types.ChannelKind(e.Type),
		Description: e.Description,
		X:           e.X,
		Y:           e.Y,
		CreatedAt:   e.CreatedAt,
		VoiceUsers:  []types.VoiceUser{},
	}
	for _, u := range e.Users {
		ch.Users = append(ch.Users, partialUser(u))
	}
	g.servers.AddChannel(e.ServerId, ch)
}

// scheduleConnect defers the presence update by the debounce delay.
// Timers are tracked so teardown can cancel what never fired.
func (g *Gateway) scheduleConnect(e *wire.UserConnect) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(connectDebounce, func() {
		g.servers.ConnectUser(e.ServerId, e.UserId, e.ConnectedUsers, e.Type)
		g.mu.Lock()
		delete(g.timers, t)
		g.mu.Unlock()
	})
	g.timers[t] = struct{}{}
}

func (g *Gateway) handleAcceptFriend(e *wire.AcceptFriend) {
	if e.Sender {
		friend := types.Friend{
			PartialUser:  partialUser(e.Friend),
			FriendshipId: e.FriendshipId,
			Accepted:     true,
			Sender:       true,
			ChannelId:    e.ChannelId,
		}
		g.users.AcceptFriend(e.FriendshipId, &friend, true)
		return
	}

	g.users.AcceptFriend(e.FriendshipId, nil, false)
	g.users.SetFriendChannelId(e.FriendshipId, e.ChannelId)
}

func (g *Gateway) handleDeleteFriend(e *wire.DeleteFriend) {
	friend := g.users.GetFriendByFriendship(e.FriendshipId)
	g.users.DeleteFriend(e.FriendshipId)
	if friend == nil {
		return
	}
	if w := g.wins.GetWindow(windows.Lookup{FriendId: friend.Id}); w != nil {
		g.wins.CloseDeadWindow(w.Id)
	}
}

// handleUserChanged applies a partial profile update to whichever
// projection owns the user: a server member when the event carries a
// server id, the friend entry otherwise, and always any open profile
// panel showing that user.
func (g *Gateway) handleUserChanged(e *wire.UserChanged) {
	partial := partialUser(e.User)
	partial.Id = e.UserId

	if e.ServerId != "" {
		g.servers.ModifyMember(e.ServerId, e.UserId, partial)
	} else {
		g.users.ModifyFriend(e.UserId, partial)
	}

	g.mu.Lock()
	profile := g.profile
	g.mu.Unlock()
	if profile != nil && profile.UserId() == e.UserId {
		profile.Apply(partial)
	}
}

func partialUser(u wire.User) types.PartialUser {
	out := types.PartialUser{
		Id:          u.Id,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Banner:      u.Banner,
		Links:       u.Links,
	}
	if len(u.About) > 0 {
		out.About = json.RawMessage(u.About)
	}
	if len(u.Facts) > 0 {
		out.Facts = json.RawMessage(u.Facts)
	}
	return out
}
