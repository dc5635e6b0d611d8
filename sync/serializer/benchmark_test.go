package serializer

import (
	"fmt"
	"testing"

	"github.com/hearthchat/hearth/sync/common"
)

// benchmarkConnections returns a set of connections for targeted benchmarking
func benchmarkConnections() map[string]*common.Connection {
	fresh := common.NewConnection()

	small := common.NewConnection()
	small.GlobalSince = 100
	small.NextBatch = 250
	small.Rooms["!room:hearth.test"] = common.RoomCursor{RoomSince: 230}
	small.Lists["all"] = common.ListConfig{}

	medium := common.NewConnection()
	medium.GlobalSince = 10_000
	medium.NextBatch = 12_000
	for i := 0; i < 50; i++ {
		medium.Rooms[fmt.Sprintf("!room-%d:hearth.test", i)] = common.RoomCursor{RoomSince: 11_000}
	}
	medium.Lists["all"] = common.ListConfig{RequiredState: []string{"m.room.name", "m.room.avatar"}}
	medium.Lists["dms"] = common.ListConfig{}

	large := common.NewConnection()
	large.GlobalSince = 1_000_000
	large.NextBatch = 1_200_000
	for i := 0; i < 1000; i++ {
		roomID := fmt.Sprintf("!room-%d:hearth.test", i)
		large.Rooms[roomID] = common.RoomCursor{RoomSince: 1_100_000}
		if i%10 == 0 {
			large.Subscriptions[roomID] = common.RoomSubscription{TimelineLimit: 50}
		}
	}

	return map[string]*common.Connection{
		"Fresh":       fresh,
		"SingleRoom":  small,
		"FiftyRooms":  medium,
		"ThousandRms": large,
	}
}

// BenchmarkSerialize benchmarks serialization for each codec and record size
func BenchmarkSerialize(b *testing.B) {
	for serName, factory := range testSerializers {
		serializer := factory()
		for connName, conn := range benchmarkConnections() {
			b.Run(fmt.Sprintf("%s/%s", serName, connName), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(conn); err != nil {
						b.Fatalf("Serialize failed: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for each codec and record size
func BenchmarkDeserialize(b *testing.B) {
	for serName, factory := range testSerializers {
		serializer := factory()
		for connName, conn := range benchmarkConnections() {
			blob, err := serializer.Serialize(conn)
			if err != nil {
				b.Fatalf("Serialize failed: %v", err)
			}
			b.Run(fmt.Sprintf("%s/%s", serName, connName), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					result := common.NewConnection()
					if err := serializer.Deserialize(blob, result); err != nil {
						b.Fatalf("Deserialize failed: %v", err)
					}
				}
			})
		}
	}
}
