package memlog

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hearthchat/hearth/lib/notify"
	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/puzpuzpuz/xsync/v3"
)

// logImpl implements oplog.ILog with a process-local store: values live in
// a concurrent map, the key order lives in a sorted index guarded by a
// mutex. The same mutex is the single global increment point for cursor
// allocation, so cursor order always matches the order in which writes
// became visible to readers.
type logImpl struct {
	notifier *notify.Notifier

	mu   sync.RWMutex
	keys []string // sorted index over all present keys
	tail atomic.Uint64

	data *xsync.MapOf[string, []byte]
}

// NewMemoryLog creates a new in-memory ordered log. Every successful write
// is reported to the given notifier; notifier may be nil for tests that do
// not exercise long polling.
func NewMemoryLog(notifier *notify.Notifier) oplog.ILog {
	return &logImpl{
		notifier: notifier,
		data:     xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (l *logImpl) Put(key string, value []byte) (oplog.Cursor, error) {
	return l.Append(func(oplog.Cursor) (string, []byte) {
		return key, value
	})
}

func (l *logImpl) Append(build func(c oplog.Cursor) (string, []byte)) (oplog.Cursor, error) {
	l.mu.Lock()

	c := oplog.Cursor(l.tail.Load() + 1)
	key, value := build(c)

	// Copy value to prevent memory corruption by the caller
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	l.insertKeyLocked(key)
	l.data.Store(key, valueCopy)
	l.tail.Store(uint64(c))
	l.mu.Unlock()

	// Notify outside the lock; the write is already visible
	if l.notifier != nil {
		l.notifier.Notify(key)
	}
	return c, nil
}

func (l *logImpl) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := sort.SearchStrings(l.keys, key)
	if idx < len(l.keys) && l.keys[idx] == key {
		l.keys = append(l.keys[:idx], l.keys[idx+1:]...)
	}
	l.data.Delete(key)
	return nil
}

// insertKeyLocked adds key to the sorted index if not already present.
// Caller must hold mu.
func (l *logImpl) insertKeyLocked(key string) {
	idx := sort.SearchStrings(l.keys, key)
	if idx < len(l.keys) && l.keys[idx] == key {
		return
	}
	l.keys = append(l.keys, "")
	copy(l.keys[idx+1:], l.keys[idx:])
	l.keys[idx] = key
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

func (l *logImpl) Get(key string) ([]byte, bool, error) {
	value, loaded := l.data.Load(key)
	return value, loaded, nil
}

func (l *logImpl) Range(prefix string, fn func(key string, value []byte) bool) error {
	return l.rangeFrom(prefix, prefix, fn)
}

func (l *logImpl) RangeAfter(prefix string, after oplog.Cursor, fn func(key string, value []byte) bool) error {
	// The cursor segment directly follows the prefix, so starting the scan
	// at prefix+pad(after+1) skips everything at or below the bound.
	return l.rangeFrom(prefix, prefix+oplog.PadCursor(after+1), fn)
}

// rangeFrom iterates all keys >= start that still carry prefix, in
// ascending order. The key snapshot is taken under the read lock; values
// are loaded from the concurrent map afterwards, so an entry deleted
// mid-iteration is skipped rather than reported with a nil value.
func (l *logImpl) rangeFrom(prefix, start string, fn func(key string, value []byte) bool) error {
	l.mu.RLock()
	idx := sort.SearchStrings(l.keys, start)
	matched := make([]string, 0, len(l.keys)-idx)
	for ; idx < len(l.keys); idx++ {
		key := l.keys[idx]
		if !strings.HasPrefix(key, prefix) {
			break
		}
		matched = append(matched, key)
	}
	l.mu.RUnlock()

	for _, key := range matched {
		value, loaded := l.data.Load(key)
		if !loaded {
			continue
		}
		if !fn(key, value) {
			break
		}
	}
	return nil
}

func (l *logImpl) Tail() oplog.Cursor {
	return oplog.Cursor(l.tail.Load())
}
