package notify

import (
	"sort"
	"strings"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

var (
	metricFired      = metrics.GetOrCreateCounter("hearth_notify_fired_total")
	metricRegistered = metrics.GetOrCreateCounter("hearth_notify_registered_total")
)

// --------------------------------------------------------------------------
// Wake Handle
// --------------------------------------------------------------------------

// WakeHandle represents a single registration with the notifier. It resolves
// exactly once: the first time any key carrying the registered prefix is
// written after registration. A handle that is no longer needed must be
// cancelled, otherwise it stays in the waiter table until it fires.
type WakeHandle struct {
	n      *Notifier
	prefix string
	id     uint64
	ch     chan struct{}
}

// Done returns the channel that is closed when the registration fires.
func (h *WakeHandle) Done() <-chan struct{} {
	return h.ch
}

// Cancel removes the registration without firing it. Cancelling an already
// fired or already cancelled handle is a no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently
// with Notify.
func (h *WakeHandle) Cancel() {
	h.n.cancel(h)
}

// --------------------------------------------------------------------------
// Notifier
// --------------------------------------------------------------------------

// waiter is one entry of the waiter table. Entries are kept sorted by
// (prefix, id) so that Notify can locate all matching prefixes with a single
// binary search plus a backward scan.
type waiter struct {
	prefix string
	id     uint64
	ch     chan struct{}
}

// Notifier implements the change-notification primitive of the storage
// layer: long-poll requests register interest in a byte-string key prefix
// and suspend; every successful log write reports its key via Notify, which
// wakes all registrations whose prefix is a prefix of the written key.
//
// The waiter table is only ever mutated under a short-held mutex and no I/O
// happens while the mutex is held, keeping Notify cheap on the write hot
// path.
type Notifier struct {
	mu      sync.Mutex
	waiters []waiter
	nextID  uint64
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Register adds a registration for the given prefix and returns its handle.
// Multiple registrations for the same prefix are independent; a single
// triggering write fires all of them.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (n *Notifier) Register(prefix string) *WakeHandle {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	h := &WakeHandle{
		n:      n,
		prefix: prefix,
		id:     n.nextID,
		ch:     make(chan struct{}),
	}

	// Insert sorted by (prefix, id) to keep the table scannable
	idx := sort.Search(len(n.waiters), func(i int) bool {
		w := n.waiters[i]
		return w.prefix > prefix || (w.prefix == prefix && w.id > h.id)
	})
	n.waiters = append(n.waiters, waiter{})
	copy(n.waiters[idx+1:], n.waiters[idx:])
	n.waiters[idx] = waiter{prefix: prefix, id: h.id, ch: h.ch}

	metricRegistered.Inc()
	return h
}

// Notify must be invoked with the key of every successful log write. It
// fires and removes every registration whose prefix is a prefix of key
// (including an exact match).
//
// Because a prefix always sorts before all keys that extend it, a single
// backward scan from the table position of key suffices: the scan stops at
// the first entry that is not a prefix of key. This keeps Notify at
// O(log W + M) for W waiters and M matches.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (n *Notifier) Notify(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// First table position strictly after all entries with prefix <= key.
	end := sort.Search(len(n.waiters), func(i int) bool {
		return n.waiters[i].prefix > key
	})

	fired := 0
	lo := end
	for lo > 0 && strings.HasPrefix(key, n.waiters[lo-1].prefix) {
		close(n.waiters[lo-1].ch)
		fired++
		lo--
	}

	if fired > 0 {
		// Firing consumes the registration
		n.waiters = append(n.waiters[:lo], n.waiters[end:]...)
		metricFired.Add(fired)
	}
}

// Waiters returns the current number of registrations. Intended for tests
// and introspection.
func (n *Notifier) Waiters() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.waiters)
}

// cancel removes the handle's entry from the table if it has not fired yet.
func (n *Notifier) cancel(h *WakeHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	idx := sort.Search(len(n.waiters), func(i int) bool {
		w := n.waiters[i]
		return w.prefix > h.prefix || (w.prefix == h.prefix && w.id >= h.id)
	})
	if idx < len(n.waiters) && n.waiters[idx].prefix == h.prefix && n.waiters[idx].id == h.id {
		n.waiters = append(n.waiters[:idx], n.waiters[idx+1:]...)
	}
}
