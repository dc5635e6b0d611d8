package data

import (
	"encoding/json"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
)

// AccountData stores per-user account-data events, either global or scoped
// to one room. Events are append-only; the entry key carries the cursor
// assigned at write time, so "what changed since" is a single prefix scan.
type AccountData struct {
	log oplog.ILog
}

// PutGlobal appends a global account-data event for the user.
func (a *AccountData) PutGlobal(userID string, ev common.Event) (oplog.Cursor, error) {
	return a.put(userID, acctGlobalSeg, ev)
}

// PutRoom appends a room-scoped account-data event for the user.
func (a *AccountData) PutRoom(userID, roomID string, ev common.Event) (oplog.Cursor, error) {
	return a.put(userID, roomID, ev)
}

func (a *AccountData) put(userID, scope string, ev common.Event) (oplog.Cursor, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return 0, oplog.NewError(oplog.RetCInternalError, "failed to encode account data event: "+err.Error())
	}
	return a.log.Append(func(c oplog.Cursor) (string, []byte) {
		return acctPrefix + userID + "/" + scope + "/" + oplog.PadCursor(c), value
	})
}

// GlobalChanges returns the user's global account-data events in the
// half-open cursor interval (since, upTo].
func (a *AccountData) GlobalChanges(userID string, since, upTo oplog.Cursor) ([]common.Event, error) {
	return a.changes(userID, acctGlobalSeg, since, upTo)
}

// RoomChanges returns the user's account-data events for one room in the
// half-open cursor interval (since, upTo].
func (a *AccountData) RoomChanges(userID, roomID string, since, upTo oplog.Cursor) ([]common.Event, error) {
	return a.changes(userID, roomID, since, upTo)
}

func (a *AccountData) changes(userID, scope string, since, upTo oplog.Cursor) ([]common.Event, error) {
	prefix := acctPrefix + userID + "/" + scope + "/"

	var events []common.Event
	err := a.log.RangeAfter(prefix, since, func(key string, value []byte) bool {
		c, ok := tailCursorSeg(key)
		if !ok || c > upTo {
			return false
		}
		var ev common.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			log.Warningf("skipping corrupt account data entry %s: %v", key, err)
			return true
		}
		events = append(events, ev)
		return true
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
