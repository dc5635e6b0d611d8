package extensions

import (
	"github.com/hearthchat/hearth/sync/common"
)

// CollectTyping reports the live typing sets of the selected rooms. Typing
// is cursor-free: the delta reflects the state at collection time, with
// the requester excluded, and rooms with an empty set omitted entirely.
func CollectTyping(si SyncInfo, conn *common.Connection, window common.Window) *common.TypingDelta {
	delta := &common.TypingDelta{}

	for _, roomID := range selector(conn, window, conn.Extensions.Typing) {
		users := si.Stores.Typing.Users(roomID, si.UserID)
		if len(users) == 0 {
			continue
		}
		if delta.Rooms == nil {
			delta.Rooms = map[string][]string{}
		}
		delta.Rooms[roomID] = users
	}

	if delta.Rooms == nil {
		return nil
	}
	return delta
}
