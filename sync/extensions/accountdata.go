package extensions

import (
	"github.com/hearthchat/hearth/sync/common"
)

// CollectAccountData gathers the global account-data events in
// (GlobalSince, NextBatch] and the per-room events in (RoomSince,
// NextBatch] for every selected room. Rooms that have no cursor on the
// connection yet are skipped; their delta starts with the cursor the
// connection records for them at the end of this poll.
func CollectAccountData(si SyncInfo, conn *common.Connection, window common.Window) *common.AccountDataDelta {
	delta := &common.AccountDataDelta{}

	global, err := si.Stores.Account.GlobalChanges(si.UserID, conn.GlobalSince, conn.NextBatch)
	if err != nil {
		log.Warningf("global account data for %s failed, omitting: %v", si.UserID, err)
	} else {
		delta.Global = global
	}

	for _, roomID := range selector(conn, window, conn.Extensions.AccountData) {
		rc, ok := conn.Rooms[roomID]
		if !ok {
			continue
		}
		events, err := si.Stores.Account.RoomChanges(si.UserID, roomID, rc.RoomSince, conn.NextBatch)
		if err != nil {
			log.Warningf("account data for %s in %s failed, omitting room: %v", si.UserID, roomID, err)
			continue
		}
		if len(events) == 0 {
			continue
		}
		if delta.Rooms == nil {
			delta.Rooms = map[string][]common.Event{}
		}
		delta.Rooms[roomID] = events
	}

	if len(delta.Global) == 0 && delta.Rooms == nil {
		return nil
	}
	return delta
}
