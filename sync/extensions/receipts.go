package extensions

import (
	"github.com/hearthchat/hearth/sync/common"
)

// CollectReceipts gathers the read receipts in (RoomSince, NextBatch] for
// every selected room. Public receipts from authors the requester has
// ignored are dropped; the requester's own private read marker is added
// when it moved within the interval and is never shown to anyone else.
func CollectReceipts(si SyncInfo, conn *common.Connection, window common.Window) *common.ReceiptsDelta {
	delta := &common.ReceiptsDelta{}

	for _, roomID := range selector(conn, window, conn.Extensions.Receipts) {
		rc, ok := conn.Rooms[roomID]
		if !ok {
			continue
		}

		public, err := si.Stores.Receipts.PublicSince(roomID, rc.RoomSince, conn.NextBatch)
		if err != nil {
			log.Warningf("receipts for %s in %s failed, omitting room: %v", si.UserID, roomID, err)
			continue
		}

		receipts := make([]common.Receipt, 0, len(public))
		for _, r := range public {
			if si.Stores.Ignore.IsIgnored(si.UserID, r.UserID) {
				continue
			}
			receipts = append(receipts, r)
		}

		if private, loaded, err := si.Stores.Receipts.PrivateRead(si.UserID, roomID); err != nil {
			log.Warningf("private read marker for %s in %s failed, omitting: %v", si.UserID, roomID, err)
		} else if loaded && private.Cursor > rc.RoomSince && private.Cursor <= conn.NextBatch {
			receipts = append(receipts, private)
		}

		if len(receipts) == 0 {
			continue
		}
		if delta.Rooms == nil {
			delta.Rooms = map[string][]common.Receipt{}
		}
		delta.Rooms[roomID] = receipts
	}

	if delta.Rooms == nil {
		return nil
	}
	return delta
}
