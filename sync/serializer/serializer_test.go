package serializer

import (
	"reflect"
	"testing"

	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/sync/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IConnSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGobSerializer,
}

// testConnections creates a set of test connections with different fields filled
func testConnections() []*common.Connection {
	enabled := true
	lists := []string{"dms"}

	full := common.NewConnection()
	full.GlobalSince = 17
	full.NextBatch = 42
	full.Rooms["!a:hearth.test"] = common.RoomCursor{RoomSince: 23}
	full.Rooms["!b:hearth.test"] = common.RoomCursor{RoomSince: 40}
	full.Lists["all"] = common.ListConfig{RequiredState: []string{"m.room.name"}}
	full.Subscriptions["!a:hearth.test"] = common.RoomSubscription{TimelineLimit: 20}
	full.Extensions.AccountData = common.ExtScope{Enabled: &enabled, Lists: &lists}
	full.Extensions.ToDevice = common.ExtToDevice{Enabled: &enabled}

	return []*common.Connection{
		// Fresh connection with initialized empty maps
		common.NewConnection(),

		// Cursors only
		{
			GlobalSince: 5,
			NextBatch:   9,
			Rooms:       map[string]common.RoomCursor{},
		},

		// Connection with all fields filled
		full,
	}
}

// TestSerializerRoundTrip tests that connections survive a round trip unchanged
func TestSerializerRoundTrip(t *testing.T) {
	conns := testConnections()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, conn := range conns {
				// Serialize
				data, err := serializer.Serialize(conn)
				if err != nil {
					t.Errorf("Failed to serialize connection %d: %v", i, err)
					continue
				}

				// Deserialize
				result := common.NewConnection()
				err = serializer.Deserialize(data, result)
				if err != nil {
					t.Errorf("Failed to deserialize connection %d: %v", i, err)
					continue
				}

				// Compare cursors and room state; maps that were nil on the
				// input may come back empty, so compare the fields that matter
				if result.GlobalSince != conn.GlobalSince || result.NextBatch != conn.NextBatch {
					t.Errorf("Connection %d cursors don't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, conn, result)
				}
				if len(conn.Rooms) > 0 && !reflect.DeepEqual(conn.Rooms, result.Rooms) {
					t.Errorf("Connection %d rooms don't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, conn.Rooms, result.Rooms)
				}
				if len(conn.Lists) > 0 && !reflect.DeepEqual(conn.Lists, result.Lists) {
					t.Errorf("Connection %d lists don't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, conn.Lists, result.Lists)
				}
				if conn.Extensions.AccountData.On() != result.Extensions.AccountData.On() ||
					conn.Extensions.ToDevice.On() != result.Extensions.ToDevice.On() {
					t.Errorf("Connection %d extension state doesn't match after round trip", i)
				}
			}
		})
	}
}

// TestDeserializeGarbage tests that corrupt blobs surface as Malformed
func TestDeserializeGarbage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			conn := common.NewConnection()
			err := serializer.Deserialize([]byte{0xff, 0x00, 0x13, 0x37}, conn)
			if err == nil {
				t.Fatalf("Expected error when deserializing garbage")
			}
			if oplog.CodeOf(err) != oplog.RetCMalformed {
				t.Errorf("Expected Malformed code for garbage blob, got %s", oplog.CodeOf(err))
			}
		})
	}
}

// TestForName tests the config-driven serializer selection
func TestForName(t *testing.T) {
	if _, ok := ForName("gob").(*gobSerializerImpl); !ok {
		t.Errorf("Expected gob name to select the gob serializer")
	}
	if _, ok := ForName("json").(*jsonSerializerImpl); !ok {
		t.Errorf("Expected json name to select the JSON serializer")
	}
	if _, ok := ForName("").(*jsonSerializerImpl); !ok {
		t.Errorf("Expected unknown name to fall back to JSON")
	}
}
