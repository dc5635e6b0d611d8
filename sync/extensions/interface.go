package extensions

import (
	"sort"

	"github.com/hearthchat/hearth/sync/common"
	"github.com/hearthchat/hearth/sync/data"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("extensions")

// SyncInfo identifies the requester of one poll and carries the
// stored-state accessors the collectors read from. DeviceID may be empty
// for sessions not bound to a device.
type SyncInfo struct {
	UserID   string
	DeviceID string
	Stores   *data.Stores
}

// selector resolves the rooms an extension operates on for this poll. It
// unions (a) the window rooms implied by the extension's subscribed lists
// and (b) the explicitly requested room ids, deduplicated. A room is only
// ever considered if it is part of the current poll window.
//
// A nil Lists or Rooms in the scope means "all" (wildcard); an empty
// non-nil slice means "none". The WildcardSubscribed rooms entry expands
// to all explicitly subscribed rooms.
func selector(conn *common.Connection, window common.Window, scope common.ExtScope) []string {
	seen := make(map[string]struct{}, len(window))

	add := func(roomID string) {
		if _, ok := window[roomID]; !ok {
			return
		}
		seen[roomID] = struct{}{}
	}

	// Explicitly requested rooms
	if scope.Rooms != nil {
		for _, roomID := range *scope.Rooms {
			if roomID == common.WildcardSubscribed {
				for subscribed := range conn.Subscriptions {
					add(subscribed)
				}
				continue
			}
			add(roomID)
		}
	}

	// Rooms implied by the subscribed lists
	for roomID, room := range window {
		if scope.Lists == nil {
			add(roomID)
			continue
		}
		for _, want := range *scope.Lists {
			if containsList(room.Lists, want) {
				add(roomID)
				break
			}
		}
	}

	rooms := make([]string, 0, len(seen))
	for roomID := range seen {
		rooms = append(rooms, roomID)
	}
	sort.Strings(rooms)
	return rooms
}

func containsList(lists []string, want string) bool {
	for _, l := range lists {
		if l == want {
			return true
		}
	}
	return false
}
