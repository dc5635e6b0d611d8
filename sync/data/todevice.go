package data

import (
	"encoding/json"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/oklog/ulid/v2"
)

// ToDevice stores direct device messages. Messages queue up per
// (user, device) until the owning device acknowledges them through its
// connection's global since cursor; acknowledged messages are deleted
// during collection rather than by a background pass.
type ToDevice struct {
	log oplog.ILog
}

// Send queues a message for the given device and returns the stored form.
func (t *ToDevice) Send(sender, userID, deviceID, msgType string, content json.RawMessage) (common.ToDeviceMessage, error) {
	msg := common.ToDeviceMessage{
		ID:      ulid.Make().String(),
		Sender:  sender,
		Type:    msgType,
		Content: content,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return common.ToDeviceMessage{}, oplog.NewError(oplog.RetCInternalError, "failed to encode device message: "+err.Error())
	}
	_, err = t.log.Append(func(c oplog.Cursor) (string, []byte) {
		return todevPrefix + userID + "/" + deviceID + "/" + oplog.PadCursor(c), value
	})
	if err != nil {
		return common.ToDeviceMessage{}, err
	}
	return msg, nil
}

// DeleteUpTo removes all messages of the device with a cursor at or below
// ack and returns how many were removed.
func (t *ToDevice) DeleteUpTo(userID, deviceID string, ack oplog.Cursor) (int, error) {
	prefix := todevPrefix + userID + "/" + deviceID + "/"

	var stale []string
	err := t.log.Range(prefix, func(key string, value []byte) bool {
		c, ok := tailCursorSeg(key)
		if !ok || c > ack {
			return false
		}
		stale = append(stale, key)
		return true
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		if err := t.log.Delete(key); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// EventsUpTo returns the outstanding messages of the device up to and
// including the upTo cursor, oldest first.
func (t *ToDevice) EventsUpTo(userID, deviceID string, upTo oplog.Cursor) ([]common.ToDeviceMessage, error) {
	prefix := todevPrefix + userID + "/" + deviceID + "/"

	var msgs []common.ToDeviceMessage
	err := t.log.Range(prefix, func(key string, value []byte) bool {
		c, ok := tailCursorSeg(key)
		if !ok || c > upTo {
			return false
		}
		var msg common.ToDeviceMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			log.Warningf("skipping corrupt device message %s: %v", key, err)
			return true
		}
		msgs = append(msgs, msg)
		return true
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
