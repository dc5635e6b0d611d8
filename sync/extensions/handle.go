package extensions

import (
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hearthchat/hearth/sync/common"
)

// Handle runs the enabled extension collectors for one poll and aggregates
// their deltas. Collectors are independent of one another and run
// concurrently; they only read stored state and the connection snapshot.
//
// An extension that is disabled, or whose collector produced nothing,
// contributes a nil entry so it is omitted from the serialized response.
func Handle(si SyncInfo, conn *common.Connection, window common.Window) common.ExtensionDelta {
	var (
		wg    sync.WaitGroup
		delta common.ExtensionDelta
	)

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if conn.Extensions.AccountData.On() {
		run(func() { delta.AccountData = CollectAccountData(si, conn, window) })
	}
	if conn.Extensions.Receipts.On() {
		run(func() { delta.Receipts = CollectReceipts(si, conn, window) })
	}
	if conn.Extensions.Typing.On() {
		run(func() { delta.Typing = CollectTyping(si, conn, window) })
	}
	if conn.Extensions.ToDevice.On() {
		run(func() { delta.ToDevice = CollectToDevice(si, conn) })
	}

	wg.Wait()

	if !delta.Empty() {
		metrics.GetOrCreateCounter("hearth_extensions_nonempty_total").Inc()
	}
	return delta
}
