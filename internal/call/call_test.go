package call

import (
	"context"
	"errors"
	"testing"

	"github.com/okzmo/kyob-client/internal/sound"
	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/testutil"
	"github.com/okzmo/kyob-client/internal/types"
	"github.com/stretchr/testify/assert"
)

type testCall struct {
	coord   *Coordinator
	session *MockMediaSession
	sounds  *sound.MockPlayer
	servers *store.Servers
	users   *store.Users
}

func newTestCall(t *testing.T) *testCall {
	t.Helper()
	logger := testutil.TestLogger(t)
	servers := store.NewServers(logger, nil, nil)
	servers.SetupServers(map[string]*types.Server{
		"srv-1": {
			Id: "srv-1",
			Channels: map[string]*types.Channel{
				"voice-1": {Id: "voice-1", Kind: types.ChannelVoice},
			},
		},
	})
	users := store.NewUsers(logger, servers)
	users.SetUser(types.User{Id: "me"})

	session := &MockMediaSession{}
	sounds := &sound.MockPlayer{}
	return &testCall{
		coord:   NewCoordinator(logger, session, servers, users, sounds),
		session: session,
		sounds:  sounds,
		servers: servers,
		users:   users,
	}
}

func TestJoinLeaveCall(t *testing.T) {
	t.Run("join connects session and records state", func(t *testing.T) {
		tc := newTestCall(t)
		tc.session.On("Connect", context.Background(), "tok").Return(nil)

		err := tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok")
		assert.NoError(t, err)

		serverId, channelId, ok := tc.coord.CurrentChannel()
		assert.True(t, ok)
		assert.Equal(t, "srv-1", serverId)
		assert.Equal(t, "voice-1", channelId)
		assert.Equal(t, "tok", tc.users.CallToken("voice-1"))
		tc.session.AssertExpectations(t)
	})

	t.Run("join failure leaves state untouched", func(t *testing.T) {
		tc := newTestCall(t)
		tc.session.On("Connect", context.Background(), "tok").Return(errors.New("dial failed"))

		err := tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok")
		assert.Error(t, err)

		_, _, ok := tc.coord.CurrentChannel()
		assert.False(t, ok)
		assert.Empty(t, tc.users.CallToken("voice-1"))
	})

	t.Run("leave disconnects session once", func(t *testing.T) {
		tc := newTestCall(t)
		tc.session.On("Connect", context.Background(), "tok").Return(nil)
		tc.session.On("Disconnect", context.Background()).Return(nil)

		assert.NoError(t, tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok"))
		assert.NoError(t, tc.coord.LeaveCall(context.Background()))

		_, _, ok := tc.coord.CurrentChannel()
		assert.False(t, ok)

		// already out of the call, no second disconnect
		assert.NoError(t, tc.coord.LeaveCall(context.Background()))
		tc.session.AssertNumberOfCalls(t, "Disconnect", 1)
	})
}

func TestToggleMute(t *testing.T) {
	t.Run("outside a call only flips flag and cue", func(t *testing.T) {
		tc := newTestCall(t)
		tc.sounds.On("Play", sound.CueMuteOn).Once()
		tc.sounds.On("Play", sound.CueMuteOff).Once()

		assert.NoError(t, tc.coord.ToggleMute())
		assert.True(t, tc.users.Muted())

		assert.NoError(t, tc.coord.ToggleMute())
		assert.False(t, tc.users.Muted())

		tc.sounds.AssertExpectations(t)
		tc.session.AssertNotCalled(t, "SetMuted", true)
	})

	t.Run("in a call mutes the session", func(t *testing.T) {
		tc := newTestCall(t)
		tc.session.On("Connect", context.Background(), "tok").Return(nil)
		tc.session.On("SetMuted", true).Return(nil)
		tc.sounds.On("Play", sound.CueMuteOn)

		assert.NoError(t, tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok"))
		assert.NoError(t, tc.coord.ToggleMute())

		tc.session.AssertCalled(t, "SetMuted", true)
	})
}

func TestToggleDeafen(t *testing.T) {
	tc := newTestCall(t)
	tc.session.On("Connect", context.Background(), "tok").Return(nil)
	tc.sounds.On("Play", sound.CueMuteOn)
	tc.servers.InitiateCall("srv-1", "voice-1", []types.VoiceUser{
		{UserId: "me"},
		{UserId: "u1"},
		{UserId: "u2"},
	})

	tc.session.On("SetParticipantAudio", "u1", false).Return(nil)
	tc.session.On("SetParticipantAudio", "u2", false).Return(nil)

	assert.NoError(t, tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok"))
	assert.NoError(t, tc.coord.ToggleDeafen())

	assert.True(t, tc.users.Deafened())
	tc.session.AssertExpectations(t)
	tc.session.AssertNotCalled(t, "SetParticipantAudio", "me", false)
}

func TestHandleConnect(t *testing.T) {
	t.Run("self join plays call-on", func(t *testing.T) {
		tc := newTestCall(t)
		tc.sounds.On("Play", sound.CueCallOn).Once()

		tc.coord.HandleConnect("srv-1", "voice-1", "me")

		assert.True(t, tc.servers.IsInCall("srv-1", "voice-1", "me"))
		tc.sounds.AssertExpectations(t)
	})

	t.Run("remote join is silent", func(t *testing.T) {
		tc := newTestCall(t)

		tc.coord.HandleConnect("srv-1", "voice-1", "u1")

		assert.True(t, tc.servers.IsInCall("srv-1", "voice-1", "u1"))
		tc.sounds.AssertNotCalled(t, "Play", sound.CueCallOn)
	})

	t.Run("duplicate join is dropped", func(t *testing.T) {
		tc := newTestCall(t)
		tc.sounds.On("Play", sound.CueCallOn).Once()

		tc.coord.HandleConnect("srv-1", "voice-1", "me")
		tc.coord.HandleConnect("srv-1", "voice-1", "me")

		ch := tc.servers.GetChannel("srv-1", "voice-1")
		assert.Len(t, ch.VoiceUsers, 1)
		tc.sounds.AssertNumberOfCalls(t, "Play", 1)
	})

	t.Run("deafened local user silences newcomer", func(t *testing.T) {
		tc := newTestCall(t)
		tc.session.On("Connect", context.Background(), "tok").Return(nil)
		tc.sounds.On("Play", sound.CueMuteOn)
		tc.session.On("SetParticipantAudio", "u1", false).Return(nil)

		assert.NoError(t, tc.coord.JoinCall(context.Background(), "srv-1", "voice-1", "tok"))
		assert.NoError(t, tc.coord.ToggleDeafen())

		tc.coord.HandleConnect("srv-1", "voice-1", "u1")

		tc.session.AssertCalled(t, "SetParticipantAudio", "u1", false)
	})
}

func TestHandleDisconnect(t *testing.T) {
	tc := newTestCall(t)
	tc.sounds.On("Play", sound.CueCallOn)
	tc.sounds.On("Play", sound.CueCallOff).Once()
	tc.coord.HandleConnect("srv-1", "voice-1", "me")
	tc.coord.HandleConnect("srv-1", "voice-1", "u1")

	tc.coord.HandleDisconnect("srv-1", "voice-1", "u1")
	assert.False(t, tc.servers.IsInCall("srv-1", "voice-1", "u1"))
	tc.sounds.AssertNotCalled(t, "Play", sound.CueCallOff)

	tc.coord.HandleDisconnect("srv-1", "voice-1", "me")
	assert.False(t, tc.servers.IsInCall("srv-1", "voice-1", "me"))
	tc.sounds.AssertExpectations(t)
}

func TestHandleRoster(t *testing.T) {
	tc := newTestCall(t)

	tc.coord.HandleRoster("srv-1", "voice-1", []types.VoiceUser{
		{UserId: "u1", Mute: true},
		{UserId: "u2"},
	})

	ch := tc.servers.GetChannel("srv-1", "voice-1")
	assert.Equal(t, []types.VoiceUser{{UserId: "u1", Mute: true}, {UserId: "u2"}}, ch.VoiceUsers)
}
