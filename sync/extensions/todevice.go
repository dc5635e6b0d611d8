package extensions

import (
	"github.com/hearthchat/hearth/sync/common"
)

// CollectToDevice first deletes the messages the client acknowledged by
// polling with its previous position (everything at or below GlobalSince),
// then returns the messages still outstanding up to NextBatch. Messages
// are therefore retained until the next poll proves receipt, and a
// response that was never acknowledged is re-delivered as-is.
//
// Sessions without a device id have no message queue; they get nothing.
func CollectToDevice(si SyncInfo, conn *common.Connection) *common.ToDeviceDelta {
	if si.DeviceID == "" {
		return nil
	}

	if _, err := si.Stores.ToDevice.DeleteUpTo(si.UserID, si.DeviceID, conn.GlobalSince); err != nil {
		// Not fatal: the acknowledged messages are re-deleted on the
		// next poll.
		log.Warningf("to-device gc for %s/%s failed: %v", si.UserID, si.DeviceID, err)
	}

	events, err := si.Stores.ToDevice.EventsUpTo(si.UserID, si.DeviceID, conn.NextBatch)
	if err != nil {
		log.Warningf("to-device read for %s/%s failed, omitting: %v", si.UserID, si.DeviceID, err)
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	return &common.ToDeviceDelta{
		NextBatch: common.FormatPos(conn.NextBatch),
		Events:    events,
	}
}
