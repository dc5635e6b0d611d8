package conncache

import (
	"sync"

	"github.com/hearthchat/hearth/lib/notify"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/hearthchat/hearth/sync/data"
)

// watchSet combines everything that can wake one suspended poll: the
// notifier registrations for the session's key prefixes and the live
// typing channels of the window rooms. The first source to fire resolves
// Done; Cancel releases whatever has not fired.
type watchSet struct {
	handles []*notify.WakeHandle

	done     chan struct{}
	fireOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

// watch registers the session's wake sources for its current window:
// the device message queue, the user's account data, membership and
// private read markers, and per window room the public receipts and the
// live typing state.
func (c *Cache) watch(key common.SessionKey, window common.Window) *watchSet {
	w := &watchSet{
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}

	prefixes := []string{
		data.AccountWatchPrefix(key.UserID),
		data.MemberWatchPrefix(key.UserID),
		data.PrivateReceiptWatchPrefix(key.UserID),
	}
	if key.DeviceID != "" {
		prefixes = append(prefixes, data.ToDeviceWatchPrefix(key.UserID, key.DeviceID))
	}
	for roomID := range window {
		prefixes = append(prefixes, data.ReceiptWatchPrefix(roomID))
	}

	for _, prefix := range prefixes {
		h := c.notifier.Register(prefix)
		w.handles = append(w.handles, h)
		w.pipe(h.Done())
	}
	for roomID := range window {
		w.pipe(c.stores.Typing.Wait(roomID))
	}

	return w
}

// pipe forwards the first fire of ch into the combined done channel.
func (w *watchSet) pipe(ch <-chan struct{}) {
	go func() {
		select {
		case <-ch:
			w.fireOnce.Do(func() { close(w.done) })
		case <-w.stop:
		}
	}()
}

// Done returns the channel closed when any wake source fires.
func (w *watchSet) Done() <-chan struct{} {
	return w.done
}

// Cancel removes all unfired registrations and releases the forwarding
// goroutines. Must be called exactly once per watch, fired or not.
func (w *watchSet) Cancel() {
	w.stopOnce.Do(func() {
		close(w.stop)
		for _, h := range w.handles {
			h.Cancel()
		}
	})
}
