// Package call keeps channel-level voice rosters consistent with the
// live media session. Track subscription and reconnect mechanics live
// in the session implementation; this coordinator only translates
// high-level connect/disconnect/roster events.
package call

import (
	"context"
	"log"
	"sync"

	"github.com/okzmo/kyob-client/internal/sound"
	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/types"
)

// MediaSession is the external voice/video session collaborator.
type MediaSession interface {
	Connect(ctx context.Context, token string) error
	Disconnect(ctx context.Context) error
	SetMuted(muted bool) error
	SetParticipantAudio(userId string, enabled bool) error
}

type Coordinator struct {
	mu        sync.Mutex
	serverId  string
	channelId string
	inCall    bool

	session MediaSession
	servers *store.Servers
	users   *store.Users
	sounds  sound.Player
	log     *log.Logger
}

func NewCoordinator(logger *log.Logger, session MediaSession, servers *store.Servers, users *store.Users, sounds sound.Player) *Coordinator {
	return &Coordinator{
		session: session,
		servers: servers,
		users:   users,
		sounds:  sounds,
		log:     logger,
	}
}

// CurrentChannel returns the joined voice channel, empty when not in a
// call.
func (c *Coordinator) CurrentChannel() (serverId, channelId string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverId, c.channelId, c.inCall
}

// JoinCall connects the media session to a voice channel. The roster
// itself arrives through realtime events.
func (c *Coordinator) JoinCall(ctx context.Context, serverId, channelId, token string) error {
	if err := c.session.Connect(ctx, token); err != nil {
		return err
	}

	c.mu.Lock()
	c.serverId = serverId
	c.channelId = channelId
	c.inCall = true
	c.mu.Unlock()

	c.users.SetCallToken(channelId, token)
	return nil
}

func (c *Coordinator) LeaveCall(ctx context.Context) error {
	c.mu.Lock()
	wasInCall := c.inCall
	c.serverId, c.channelId, c.inCall = "", "", false
	c.mu.Unlock()

	if !wasInCall {
		return nil
	}
	return c.session.Disconnect(ctx)
}

// ToggleMute flips the local mute flag, plays the cue, and mutes the
// local publication when a session is live.
func (c *Coordinator) ToggleMute() error {
	muted := !c.users.Muted()
	c.users.SetMute(muted)

	if muted {
		c.sounds.Play(sound.CueMuteOn)
	} else {
		c.sounds.Play(sound.CueMuteOff)
	}

	if _, _, ok := c.CurrentChannel(); !ok {
		return nil
	}
	return c.session.SetMuted(muted)
}

// ToggleDeafen flips the local deafen flag and enables or disables the
// audio subscription of every remote participant in the current call.
func (c *Coordinator) ToggleDeafen() error {
	deafened := !c.users.Deafened()
	c.users.SetDeafen(deafened)

	if deafened {
		c.sounds.Play(sound.CueMuteOn)
	} else {
		c.sounds.Play(sound.CueMuteOff)
	}

	serverId, channelId, ok := c.CurrentChannel()
	if !ok {
		return nil
	}

	selfId := c.users.SelfId()
	ch := c.servers.GetChannel(serverId, channelId)
	if ch == nil {
		return nil
	}
	for _, vu := range ch.VoiceUsers {
		if vu.UserId == selfId {
			continue
		}
		if err := c.session.SetParticipantAudio(vu.UserId, !deafened); err != nil {
			c.log.Printf("participant audio %s: %v", vu.UserId, err)
		}
	}
	return nil
}

// HandleConnect applies a connect-to-call event. The call-on cue only
// plays when the local user is the one who joined.
func (c *Coordinator) HandleConnect(serverId, channelId, userId string) {
	if c.servers.IsInCall(serverId, channelId, userId) {
		return
	}
	c.servers.ConnectUserToCall(serverId, channelId, userId)

	if userId == c.users.SelfId() {
		c.sounds.Play(sound.CueCallOn)
		return
	}

	// A locally deafened user keeps new participants silent too.
	if _, cur, ok := c.CurrentChannel(); ok && cur == channelId && c.users.Deafened() {
		if err := c.session.SetParticipantAudio(userId, false); err != nil {
			c.log.Printf("participant audio %s: %v", userId, err)
		}
	}
}

// HandleDisconnect applies a disconnect-from-call event. The call-off
// cue only plays when the local user is the one who left.
func (c *Coordinator) HandleDisconnect(serverId, channelId, userId string) {
	c.servers.DisconnectUserFromCall(serverId, channelId, userId)

	if userId == c.users.SelfId() {
		c.sounds.Play(sound.CueCallOff)
	}
}

// HandleRoster hydrates a channel's voice roster wholesale, used on
// session start and rejoin.
func (c *Coordinator) HandleRoster(serverId, channelId string, users []types.VoiceUser) {
	c.servers.InitiateCall(serverId, channelId, users)
}
