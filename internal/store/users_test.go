package store

import (
	"testing"

	"github.com/okzmo/kyob-client/internal/testutil"
	"github.com/okzmo/kyob-client/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestUsers(t *testing.T) (*Users, *Servers) {
	t.Helper()
	servers := newTestServers(t, nil, &fakePresence{})
	return NewUsers(testutil.TestLogger(t), servers), servers
}

func TestSetUser(t *testing.T) {
	u, servers := newTestUsers(t)
	servers.SetupServers(map[string]*types.Server{"srv-1": serverWithChannel("srv-1", "chan-1")})

	u.SetUser(types.User{Id: "me", Username: "me"})

	assert.Equal(t, "me", u.SelfId())
	assert.Equal(t, "me", u.User().Username)

	// self id propagates to mention matching
	servers.AddMessage("srv-1", types.Message{Id: "m1", ChannelId: "chan-1", MentionsUsers: []string{"me"}})
	assert.Equal(t, []string{"m1"}, servers.GetChannel("srv-1", "chan-1").LastMentions)
}

func TestUpdateUser(t *testing.T) {
	u, _ := newTestUsers(t)
	u.SetUser(types.User{Id: "me", Username: "old", DisplayName: "Old", Avatar: "a.png"})

	u.UpdateUser(types.PartialUser{DisplayName: "New", About: []byte(`{"bio":"hi"}`)})

	user := u.User()
	assert.Equal(t, "New", user.DisplayName)
	assert.Equal(t, "old", user.Username, "unset fields are preserved")
	assert.Equal(t, "a.png", user.Avatar)
	assert.JSONEq(t, `{"bio":"hi"}`, string(user.About))
}

func TestGetDms(t *testing.T) {
	u, servers := newTestUsers(t)
	u.SetUser(types.User{Id: "me"})
	servers.SetupServers(map[string]*types.Server{
		types.GlobalServerId: {
			Id: types.GlobalServerId,
			Channels: map[string]*types.Channel{
				"dm-1": {
					Id:              "dm-1",
					LastMessageRead: "m1",
					LastMessageSent: "m3",
					Users:           []types.PartialUser{{Id: "me"}, {Id: "friend", Username: "friend", Avatar: "f.png"}},
				},
				"dm-2": {
					Id:              "dm-2",
					LastMessageRead: "m5",
					LastMessageSent: "m5",
					Users:           []types.PartialUser{{Id: "me"}, {Id: "other"}},
				},
			},
		},
	})

	dms := u.GetDms()
	assert.Len(t, dms, 1)
	assert.Equal(t, "friend", dms[0].FriendId)
	assert.Equal(t, "dm-1", dms[0].ChannelId)
	assert.Equal(t, "f.png", dms[0].Avatar)
}

func TestFriends(t *testing.T) {
	t.Run("accept on receiving side flips pending entry", func(t *testing.T) {
		u, _ := newTestUsers(t)
		u.SetupFriends([]types.Friend{
			{PartialUser: types.PartialUser{Id: "u1"}, FriendshipId: "f1"},
		})

		u.AcceptFriend("f1", nil, false)
		u.SetFriendChannelId("f1", "dm-1")

		f := u.GetFriendByFriendship("f1")
		assert.True(t, f.Accepted)
		assert.Equal(t, "dm-1", f.ChannelId)
	})

	t.Run("accept on sending side materializes entry", func(t *testing.T) {
		u, _ := newTestUsers(t)

		u.AcceptFriend("f1", &types.Friend{
			PartialUser:  types.PartialUser{Id: "u1", Username: "alice"},
			FriendshipId: "f1",
			Accepted:     true,
			ChannelId:    "dm-1",
		}, true)

		assert.Len(t, u.Friends(), 1)
		f := u.GetFriend("u1")
		assert.True(t, f.Accepted)
		assert.Equal(t, "dm-1", f.ChannelId)
	})

	t.Run("modify applies partial update", func(t *testing.T) {
		u, _ := newTestUsers(t)
		u.AddFriend(types.Friend{PartialUser: types.PartialUser{Id: "u1", Username: "alice", Avatar: "a.png"}, FriendshipId: "f1"})

		u.ModifyFriend("u1", types.PartialUser{Avatar: "b.png"})

		f := u.GetFriend("u1")
		assert.Equal(t, "b.png", f.Avatar)
		assert.Equal(t, "alice", f.Username)
	})

	t.Run("delete removes by friendship id", func(t *testing.T) {
		u, _ := newTestUsers(t)
		u.SetupFriends([]types.Friend{
			{PartialUser: types.PartialUser{Id: "u1"}, FriendshipId: "f1"},
			{PartialUser: types.PartialUser{Id: "u2"}, FriendshipId: "f2"},
		})

		u.DeleteFriend("f1")

		assert.Len(t, u.Friends(), 1)
		assert.Nil(t, u.GetFriendByFriendship("f1"))
		assert.NotNil(t, u.GetFriendByFriendship("f2"))
	})
}

func TestMuteDeafenAndTokens(t *testing.T) {
	u, _ := newTestUsers(t)

	assert.False(t, u.Muted())
	u.SetMute(true)
	assert.True(t, u.Muted())

	assert.False(t, u.Deafened())
	u.SetDeafen(true)
	assert.True(t, u.Deafened())

	u.SetCallToken("chan-1", "tok")
	assert.Equal(t, "tok", u.CallToken("chan-1"))
	assert.Empty(t, u.CallToken("chan-2"))
}

func TestEmojis(t *testing.T) {
	u, _ := newTestUsers(t)
	u.AddEmojis(types.Emoji{Id: "e1", Shortcode: "party_cat"})
	u.AddEmojis(types.Emoji{Id: "e2", Shortcode: "ship_it"})

	emojis := u.Emojis()
	assert.Len(t, emojis, 2)

	// returned slice is a copy
	emojis[0].Shortcode = "changed"
	assert.Equal(t, "party_cat", u.Emojis()[0].Shortcode)
}
