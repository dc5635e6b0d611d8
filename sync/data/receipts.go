package data

import (
	"encoding/json"
	"strings"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
)

// Receipts stores read receipts. Public receipts are room-scoped and
// visible to every member; the private read marker is per (user, room) and
// only ever delivered back to its owner.
type Receipts struct {
	log oplog.ILog
}

// receiptValue is the stored form of a receipt entry.
type receiptValue struct {
	EventID string       `json:"event_id"`
	Cursor  oplog.Cursor `json:"cursor,omitempty"`
}

// PutPublic records that user has publicly read up to eventID in room.
func (r *Receipts) PutPublic(roomID, userID, eventID string) (oplog.Cursor, error) {
	value, err := json.Marshal(receiptValue{EventID: eventID})
	if err != nil {
		return 0, oplog.NewError(oplog.RetCInternalError, "failed to encode receipt: "+err.Error())
	}
	return r.log.Append(func(c oplog.Cursor) (string, []byte) {
		return rcptPrefix + roomID + "/" + oplog.PadCursor(c) + "/" + userID, value
	})
}

// PublicSince returns the public receipts of a room in the half-open
// cursor interval (since, upTo], oldest first.
func (r *Receipts) PublicSince(roomID string, since, upTo oplog.Cursor) ([]common.Receipt, error) {
	prefix := rcptPrefix + roomID + "/"

	var receipts []common.Receipt
	err := r.log.RangeAfter(prefix, since, func(key string, value []byte) bool {
		// Key shape: <prefix><cursor>/<user>
		rest := strings.TrimPrefix(key, prefix)
		seg, userID, ok := strings.Cut(rest, "/")
		if !ok {
			log.Warningf("skipping malformed receipt key %s", key)
			return true
		}
		c, err := oplog.ParseCursor(seg)
		if err != nil {
			log.Warningf("skipping malformed receipt key %s: %v", key, err)
			return true
		}
		if c > upTo {
			return false
		}
		var v receiptValue
		if err := json.Unmarshal(value, &v); err != nil {
			log.Warningf("skipping corrupt receipt entry %s: %v", key, err)
			return true
		}
		receipts = append(receipts, common.Receipt{
			UserID:  userID,
			EventID: v.EventID,
			Cursor:  c,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// SetPrivate moves the user's private read marker in room to eventID. The
// cursor of the move is stored inside the value since the key is fixed per
// (user, room).
func (r *Receipts) SetPrivate(userID, roomID, eventID string) (oplog.Cursor, error) {
	return r.log.Append(func(c oplog.Cursor) (string, []byte) {
		value, _ := json.Marshal(receiptValue{EventID: eventID, Cursor: c})
		return rcptPrivPfx + userID + "/" + roomID, value
	})
}

// PrivateRead returns the user's private read marker for room, if any.
func (r *Receipts) PrivateRead(userID, roomID string) (common.Receipt, bool, error) {
	value, loaded, err := getRetry(r.log, rcptPrivPfx+userID+"/"+roomID)
	if err != nil || !loaded {
		return common.Receipt{}, false, err
	}
	var v receiptValue
	if err := json.Unmarshal(value, &v); err != nil {
		log.Warningf("discarding corrupt private receipt for %s in %s: %v", userID, roomID, err)
		return common.Receipt{}, false, nil
	}
	return common.Receipt{
		UserID:  userID,
		EventID: v.EventID,
		Cursor:  v.Cursor,
		Private: true,
	}, true, nil
}
