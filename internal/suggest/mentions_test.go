package suggest

import (
	"testing"

	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/testutil"
	"github.com/okzmo/kyob-client/internal/types"
	"github.com/okzmo/kyob-client/internal/windows"
	"github.com/stretchr/testify/assert"
)

func newMentionFixture(t *testing.T) (*windows.Manager, *store.Servers) {
	t.Helper()
	servers := store.NewServers(testutil.TestLogger(t), nil, nil)
	servers.SetupServers(map[string]*types.Server{
		"srv-1": {
			Id: "srv-1",
			Channels: map[string]*types.Channel{
				"chan-1": {Id: "chan-1"},
			},
			Members: []types.PartialUser{
				{Id: "u1", Username: "alice", DisplayName: "Alice"},
				{Id: "u2", Username: "bob", DisplayName: "Bobby"},
				{Id: "u3", Username: "carol", DisplayName: "Carol"},
			},
		},
		types.GlobalServerId: {
			Id: types.GlobalServerId,
			Channels: map[string]*types.Channel{
				"dm-1": {
					Id:    "dm-1",
					Users: []types.PartialUser{{Id: "me", Username: "me"}, {Id: "u1", Username: "alice"}},
				},
			},
		},
	})
	return windows.NewManager(), servers
}

func TestMentionItems(t *testing.T) {
	t.Run("server window matches member roster", func(t *testing.T) {
		wins, servers := newMentionFixture(t)
		wins.CreateWindow(windows.Window{Id: "w1", ServerId: "srv-1", ChannelId: "chan-1"})

		items := MentionItems(wins, servers)

		res := items("bo")
		assert.Len(t, res, 1)
		assert.Equal(t, "bob", res[0].(types.PartialUser).Username)
	})

	t.Run("matches display name case-insensitively", func(t *testing.T) {
		wins, servers := newMentionFixture(t)
		wins.CreateWindow(windows.Window{Id: "w1", ServerId: "srv-1", ChannelId: "chan-1"})

		items := MentionItems(wins, servers)

		res := items("BOBB")
		assert.Len(t, res, 1)
		assert.Equal(t, "u2", res[0].(types.PartialUser).Id)
	})

	t.Run("empty query matches everyone in scope", func(t *testing.T) {
		wins, servers := newMentionFixture(t)
		wins.CreateWindow(windows.Window{Id: "w1", ServerId: "srv-1", ChannelId: "chan-1"})

		items := MentionItems(wins, servers)
		assert.Len(t, items(""), 3)
	})

	t.Run("direct message window matches channel users", func(t *testing.T) {
		wins, servers := newMentionFixture(t)
		wins.CreateWindow(windows.Window{Id: "w1", ServerId: types.GlobalServerId, ChannelId: "dm-1"})

		items := MentionItems(wins, servers)

		res := items("ali")
		assert.Len(t, res, 1)
		assert.Equal(t, "u1", res[0].(types.PartialUser).Id)
	})

	t.Run("no active window yields nothing", func(t *testing.T) {
		wins, servers := newMentionFixture(t)

		items := MentionItems(wins, servers)
		assert.Nil(t, items("alice"))
	})
}

type fakeListView struct {
	shown   []Props
	hidden  int
	handled map[string]bool
}

func (v *fakeListView) Show(props Props)            { v.shown = append(v.shown, props) }
func (v *fakeListView) Hide()                       { v.hidden++ }
func (v *fakeListView) HandleKeyDown(k string) bool { return v.handled[k] }

func TestProvider(t *testing.T) {
	t.Run("update publishes items", func(t *testing.T) {
		view := &fakeListView{}
		p := NewProvider('@', func(q string) []any { return []any{q} }, view)

		p.Update("al")

		assert.Len(t, view.shown, 1)
		assert.Equal(t, "al", view.shown[0].Query)
		assert.Equal(t, []any{"al"}, view.shown[0].Items)
	})

	t.Run("exit hides once", func(t *testing.T) {
		view := &fakeListView{}
		p := NewProvider('@', func(q string) []any { return nil }, view)

		p.Exit()
		assert.Zero(t, view.hidden, "exit before open is a no-op")

		p.Update("a")
		p.Exit()
		p.Exit()
		assert.Equal(t, 1, view.hidden)
	})

	t.Run("escape dismisses and is consumed", func(t *testing.T) {
		view := &fakeListView{handled: map[string]bool{"ArrowDown": true}}
		p := NewProvider(':', func(q string) []any { return nil }, view)

		assert.False(t, p.KeyDown("ArrowDown"), "closed provider ignores keys")

		p.Update("a")
		assert.True(t, p.KeyDown("ArrowDown"))
		assert.True(t, p.KeyDown("Escape"))
		assert.Equal(t, 1, view.hidden)
		assert.False(t, p.KeyDown("ArrowDown"), "dismissed provider ignores keys")
	})
}
