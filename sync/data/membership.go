package data

import (
	"encoding/json"
	"strings"

	"github.com/hearthchat/hearth/lib/oplog"
)

// Membership states a user can hold in a room.
const (
	MembershipJoin   = "join"
	MembershipInvite = "invite"
	MembershipLeave  = "leave"
)

// MemberRecord is one (user, room) membership entry. Lists carries the
// names of the subscribed lists the room belongs to for this user; the
// room selector intersects these with the lists a connection subscribed.
type MemberRecord struct {
	RoomID     string   `json:"-"`
	Membership string   `json:"membership"`
	Lists      []string `json:"lists,omitempty"`
}

// Membership is the room-selection service: it resolves which rooms belong
// to a user's subscribed lists at a given moment.
type Membership struct {
	log oplog.ILog
}

// Set records the user's membership in a room together with its list tags.
func (m *Membership) Set(userID, roomID string, rec MemberRecord) (oplog.Cursor, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return 0, oplog.NewError(oplog.RetCInternalError, "failed to encode member record: "+err.Error())
	}
	return m.log.Put(memberPrefix+userID+"/"+roomID, value)
}

// JoinedRooms returns all rooms the user is currently joined to, in
// lexicographic room-id order.
func (m *Membership) JoinedRooms(userID string) ([]MemberRecord, error) {
	prefix := memberPrefix + userID + "/"

	var rooms []MemberRecord
	err := m.log.Range(prefix, func(key string, value []byte) bool {
		var rec MemberRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			log.Warningf("skipping corrupt member record %s: %v", key, err)
			return true
		}
		if rec.Membership != MembershipJoin {
			return true
		}
		rec.RoomID = strings.TrimPrefix(key, prefix)
		rooms = append(rooms, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
