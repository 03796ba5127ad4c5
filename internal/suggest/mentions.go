package suggest

import (
	"strings"

	"github.com/okzmo/kyob-client/internal/store"
	"github.com/okzmo/kyob-client/internal/types"
	"github.com/okzmo/kyob-client/internal/windows"
)

// MentionItems builds the '@' item resolver. The roster depends on the
// active window's scope: direct-message channels under the global
// server match against the channel's users, everything else against
// the full server member list.
func MentionItems(wins *windows.Manager, servers *store.Servers) ItemsFunc {
	return func(query string) []any {
		active := wins.GetActiveWindow()
		if active == nil || active.ServerId == "" {
			return nil
		}

		var users []types.PartialUser
		if active.ServerId == types.GlobalServerId && active.ChannelId != "" {
			ch := servers.GetChannel(active.ServerId, active.ChannelId)
			if ch != nil {
				users = ch.Users
			}
		} else {
			srv := servers.GetServer(active.ServerId)
			if srv != nil {
				users = srv.Members
			}
		}

		q := strings.ToLower(query)
		res := []any{}
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), q) ||
				strings.Contains(strings.ToLower(u.DisplayName), q) {
				res = append(res, u)
			}
		}
		return res
	}
}
