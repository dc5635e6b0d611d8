package flight

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var metricShared = metrics.GetOrCreateCounter("hearth_flight_shared_total")

// call is one in-flight computation. Waiters block on done and then read
// val/err; both are written exactly once, before done is closed.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Map collapses concurrent identical expensive operations into a single
// execution. At most one producer runs per key at any time; all concurrent
// callers for the same key receive the leader's result.
type Map[K comparable, V any] struct {
	calls *xsync.MapOf[K, *call[V]]
}

// NewMap creates an empty single-flight map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		calls: xsync.NewMapOf[K, *call[V]](),
	}
}

// Do runs producer for key, unless a computation for key is already in
// flight, in which case it blocks until that computation completes and
// returns its shared result. The slot is released on completion and on
// producer panic; a panicking producer never leaves a permanently blocked
// key. Waiters are not woken in FIFO order, only eventual completion is
// guaranteed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Do(key K, producer func() (V, error)) (V, error) {
	c := &call[V]{done: make(chan struct{})}

	actual, loaded := m.calls.LoadOrStore(key, c)
	if loaded {
		// Someone else holds the slot, wait for their result
		<-actual.done
		metricShared.Inc()
		return actual.val, actual.err
	}

	panicked := true
	defer func() {
		if panicked {
			// Release the slot and unblock waiters before the panic
			// continues up the leader's stack
			c.err = fmt.Errorf("single-flight producer panicked")
			m.calls.Delete(key)
			close(c.done)
		}
	}()

	c.val, c.err = producer()
	panicked = false

	m.calls.Delete(key)
	close(c.done)
	return c.val, c.err
}

// Forget drops the slot for key so the next Do starts a fresh computation
// instead of joining an in-flight one. Callers already waiting keep
// waiting for the old result.
func (m *Map[K, V]) Forget(key K) {
	m.calls.Delete(key)
}

// InFlight reports whether a computation for key is currently running.
func (m *Map[K, V]) InFlight(key K) bool {
	_, loaded := m.calls.Load(key)
	return loaded
}
