package extensions

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/lib/oplog/memlog"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/hearthchat/hearth/sync/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	log    oplog.ILog
	stores *data.Stores
	si     SyncInfo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := memlog.NewMemoryLog(nil)
	s := data.NewStores(l)
	return &fixture{
		log:    l,
		stores: s,
		si:     SyncInfo{UserID: "alice", DeviceID: "phone", Stores: s},
	}
}

// pad advances the log tail by n unrelated writes, so the next write lands
// at a known cursor.
func (f *fixture) pad(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.log.Put(fmt.Sprintf("pad/%d", f.log.Tail()), []byte("x"))
		require.NoError(t, err)
	}
}

func newConn(nextBatch oplog.Cursor, rooms ...string) *common.Connection {
	conn := common.NewConnection()
	conn.NextBatch = nextBatch
	for _, roomID := range rooms {
		conn.Rooms[roomID] = common.RoomCursor{}
	}
	return conn
}

func windowOf(rooms ...string) common.Window {
	w := common.Window{}
	for _, roomID := range rooms {
		w[roomID] = &common.WindowRoom{RoomID: roomID, Lists: []string{"all"}}
	}
	return w
}

func boolPtr(b bool) *bool { return &b }

func listPtr(items ...string) *[]string { return &items }

// --------------------------------------------------------------------------
// Selector
// --------------------------------------------------------------------------

func TestSelectorWildcardDefaults(t *testing.T) {
	conn := common.NewConnection()
	window := windowOf("!a", "!b")

	// nil lists and nil rooms select every window room
	got := selector(conn, window, common.ExtScope{})
	assert.Equal(t, []string{"!a", "!b"}, got)
}

func TestSelectorListFilter(t *testing.T) {
	conn := common.NewConnection()
	window := common.Window{
		"!dm":  &common.WindowRoom{RoomID: "!dm", Lists: []string{"dms"}},
		"!pub": &common.WindowRoom{RoomID: "!pub", Lists: []string{"all"}},
	}

	got := selector(conn, window, common.ExtScope{Lists: listPtr("dms")})
	assert.Equal(t, []string{"!dm"}, got)

	// Empty non-nil lists means no list-implied rooms at all
	got = selector(conn, window, common.ExtScope{Lists: listPtr(), Rooms: listPtr()})
	assert.Empty(t, got)
}

func TestSelectorExplicitRooms(t *testing.T) {
	conn := common.NewConnection()
	conn.Subscriptions["!sub"] = common.RoomSubscription{}
	window := windowOf("!a", "!sub")

	// Explicit rooms outside the window are ignored
	got := selector(conn, window, common.ExtScope{Lists: listPtr(), Rooms: listPtr("!a", "!gone")})
	assert.Equal(t, []string{"!a"}, got)

	// The subscription wildcard expands to the subscribed rooms
	got = selector(conn, window, common.ExtScope{Lists: listPtr(), Rooms: listPtr(common.WildcardSubscribed)})
	assert.Equal(t, []string{"!sub"}, got)
}

func TestSelectorDeduplicates(t *testing.T) {
	conn := common.NewConnection()
	window := windowOf("!a")

	got := selector(conn, window, common.ExtScope{Rooms: listPtr("!a", "!a")})
	assert.Equal(t, []string{"!a"}, got)
}

// --------------------------------------------------------------------------
// Account data
// --------------------------------------------------------------------------

func TestAccountDataInterval(t *testing.T) {
	f := newFixture(t)

	c1, err := f.stores.Account.PutGlobal("alice", common.Event{Type: "m.push_rules", Content: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = f.stores.Account.PutRoom("alice", "!a", common.Event{Type: "m.tag", Content: json.RawMessage(`{}`)})
	require.NoError(t, err)

	conn := newConn(f.log.Tail(), "!a")
	conn.GlobalSince = c1 // the first global event is already delivered

	delta := CollectAccountData(f.si, conn, windowOf("!a"))
	require.NotNil(t, delta)
	assert.Empty(t, delta.Global)
	require.Contains(t, delta.Rooms, "!a")
	assert.Equal(t, "m.tag", delta.Rooms["!a"][0].Type)
}

func TestAccountDataOmittedWhenEmpty(t *testing.T) {
	f := newFixture(t)

	conn := newConn(f.log.Tail(), "!a")
	assert.Nil(t, CollectAccountData(f.si, conn, windowOf("!a")))
}

func TestAccountDataSkipsEnteringRooms(t *testing.T) {
	f := newFixture(t)

	_, err := f.stores.Account.PutRoom("alice", "!new", common.Event{Type: "m.tag", Content: json.RawMessage(`{}`)})
	require.NoError(t, err)

	// The room is in the window but has no cursor on the connection yet
	conn := newConn(f.log.Tail())
	assert.Nil(t, CollectAccountData(f.si, conn, windowOf("!new")))
}

// --------------------------------------------------------------------------
// Receipts
// --------------------------------------------------------------------------

func TestReceiptsIgnoredAuthorsFiltered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.stores.Ignore.Ignore("alice", "mallory"))

	_, err := f.stores.Receipts.PutPublic("!a", "mallory", "$e1")
	require.NoError(t, err)
	_, err = f.stores.Receipts.PutPublic("!a", "bob", "$e2")
	require.NoError(t, err)

	delta := CollectReceipts(f.si, newConn(f.log.Tail(), "!a"), windowOf("!a"))
	require.NotNil(t, delta)
	require.Len(t, delta.Rooms["!a"], 1)
	assert.Equal(t, "bob", delta.Rooms["!a"][0].UserID)
}

func TestReceiptsPrivateMarkerIsolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.stores.Receipts.SetPrivate("alice", "!a", "$e1")
	require.NoError(t, err)

	// The owner sees their private marker
	delta := CollectReceipts(f.si, newConn(f.log.Tail(), "!a"), windowOf("!a"))
	require.NotNil(t, delta)
	require.Len(t, delta.Rooms["!a"], 1)
	assert.True(t, delta.Rooms["!a"][0].Private)
	assert.Equal(t, "alice", delta.Rooms["!a"][0].UserID)

	// Nobody else does
	bob := SyncInfo{UserID: "bob", DeviceID: "laptop", Stores: f.stores}
	assert.Nil(t, CollectReceipts(bob, newConn(f.log.Tail(), "!a"), windowOf("!a")))
}

func TestReceiptsPrivateMarkerDeliveredOnce(t *testing.T) {
	f := newFixture(t)

	c, err := f.stores.Receipts.SetPrivate("alice", "!a", "$e1")
	require.NoError(t, err)

	// A poll whose room cursor already covers the marker does not repeat it
	conn := newConn(f.log.Tail())
	conn.Rooms["!a"] = common.RoomCursor{RoomSince: c}
	assert.Nil(t, CollectReceipts(f.si, conn, windowOf("!a")))
}

// --------------------------------------------------------------------------
// Typing
// --------------------------------------------------------------------------

func TestTypingLiveSet(t *testing.T) {
	f := newFixture(t)
	f.stores.Typing.Start("!a", "bob")
	f.stores.Typing.Start("!a", "alice")

	delta := CollectTyping(f.si, newConn(f.log.Tail(), "!a"), windowOf("!a"))
	require.NotNil(t, delta)
	assert.Equal(t, []string{"bob"}, delta.Rooms["!a"], "requester must be excluded")
}

func TestTypingOmittedWhenEmpty(t *testing.T) {
	f := newFixture(t)

	// Nobody typing at all
	assert.Nil(t, CollectTyping(f.si, newConn(f.log.Tail(), "!a"), windowOf("!a")))

	// Only the requester typing counts as empty too
	f.stores.Typing.Start("!a", "alice")
	assert.Nil(t, CollectTyping(f.si, newConn(f.log.Tail(), "!a"), windowOf("!a")))
}

// --------------------------------------------------------------------------
// To-device
// --------------------------------------------------------------------------

func TestToDeviceAcknowledgeAndDeliver(t *testing.T) {
	f := newFixture(t)

	// Place messages at cursors 8, 12 and 15
	f.pad(t, 7)
	_, err := f.stores.ToDevice.Send("bob", "alice", "phone", "m.room_key", json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	f.pad(t, 3)
	_, err = f.stores.ToDevice.Send("bob", "alice", "phone", "m.room_key", json.RawMessage(`{"n":2}`))
	require.NoError(t, err)
	f.pad(t, 2)
	_, err = f.stores.ToDevice.Send("bob", "alice", "phone", "m.room_key", json.RawMessage(`{"n":3}`))
	require.NoError(t, err)
	require.Equal(t, oplog.Cursor(15), f.log.Tail())

	// The client last acknowledged position 10: the message at 8 is
	// deleted, 12 and 15 are delivered
	conn := newConn(20)
	conn.GlobalSince = 10

	delta := CollectToDevice(f.si, conn)
	require.NotNil(t, delta)
	require.Len(t, delta.Events, 2)
	assert.Equal(t, json.RawMessage(`{"n":2}`), delta.Events[0].Content)
	assert.Equal(t, json.RawMessage(`{"n":3}`), delta.Events[1].Content)
	assert.Equal(t, "20", delta.NextBatch)

	remaining, err := f.stores.ToDevice.EventsUpTo("alice", "phone", 100)
	require.NoError(t, err)
	assert.Len(t, remaining, 2, "only the acknowledged message may be deleted")
}

func TestToDeviceUnacknowledgedRedelivery(t *testing.T) {
	f := newFixture(t)

	_, err := f.stores.ToDevice.Send("bob", "alice", "phone", "m.room_key", json.RawMessage(`{}`)) // cursor 1
	require.NoError(t, err)

	conn := newConn(5)

	first := CollectToDevice(f.si, conn)
	require.NotNil(t, first)
	require.Len(t, first.Events, 1)

	// The client never came back with the new position: the same poll
	// again yields the same message
	second := CollectToDevice(f.si, conn)
	require.NotNil(t, second)
	assert.Equal(t, first.Events, second.Events)
}

func TestToDeviceWithoutDevice(t *testing.T) {
	f := newFixture(t)

	_, err := f.stores.ToDevice.Send("bob", "alice", "phone", "m.room_key", json.RawMessage(`{}`))
	require.NoError(t, err)

	deviceless := SyncInfo{UserID: "alice", Stores: f.stores}
	assert.Nil(t, CollectToDevice(deviceless, newConn(5)))
}

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

func TestHandleRunsOnlyEnabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.stores.Account.PutGlobal("alice", common.Event{Type: "m.direct", Content: json.RawMessage(`{}`)})
	require.NoError(t, err)
	f.stores.Typing.Start("!a", "bob")

	conn := newConn(f.log.Tail(), "!a")
	conn.Extensions.AccountData.Enabled = boolPtr(true)

	delta := Handle(f.si, conn, windowOf("!a"))
	require.NotNil(t, delta.AccountData)
	assert.Len(t, delta.AccountData.Global, 1)
	assert.Nil(t, delta.Typing, "disabled extensions must not collect")
	assert.Nil(t, delta.Receipts)
	assert.Nil(t, delta.ToDevice)
	assert.False(t, delta.Empty())
}

func TestHandleEmptyWhenNothingChanged(t *testing.T) {
	f := newFixture(t)

	conn := newConn(f.log.Tail(), "!a")
	conn.Extensions.AccountData.Enabled = boolPtr(true)
	conn.Extensions.Receipts.Enabled = boolPtr(true)
	conn.Extensions.Typing.Enabled = boolPtr(true)
	conn.Extensions.ToDevice.Enabled = boolPtr(true)

	delta := Handle(f.si, conn, windowOf("!a"))
	assert.True(t, delta.Empty())
}
