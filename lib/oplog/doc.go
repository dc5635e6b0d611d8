// Package oplog defines the append-only, globally-ordered key-value log that
// every other component of the sync engine is built on.
//
// The package focuses on:
//   - A unified interface (ILog) for ordered log access across different
//     backends, with cursor allocation on every write
//   - A structured error reporting mechanism using typed error codes
//   - Cursor encoding helpers that keep lexicographic key order identical
//     to numeric cursor order
//
// Key Components:
//
//   - Cursor: a strictly monotonically increasing uint64 assigned at the
//     moment a record becomes visible to readers. The cursor order matches
//     the order in which writes became visible, across the whole log (not
//     per key prefix). Cursors are the "since" tokens of the sync protocol:
//     every delta collector reads a half-open cursor interval.
//
//   - ILog Interface: the core abstraction defining Put/Append/Get/Range/
//     RangeAfter/Delete/Tail. Append exists because many key layouts embed
//     the assigned cursor into the key (or value) itself; the build callback
//     receives the cursor before the write becomes visible.
//
//   - Error System: typed error codes (RetCode) covering the failure
//     taxonomy of the sync engine: NotFound, Forbidden, StorageFailure,
//     Malformed, InvalidOperation. Callers branch on CodeOf(err) rather than
//     string matching.
//
// Implementations:
//
//	The package includes one implementation of the ILog interface:
//
//	- Memory Log (memlog): a process-local implementation backed by a
//	  concurrent value map and a sorted key index. It wires every write
//	  into a notify.Notifier so that suspended long polls wake up.
//	  Available in the "github.com/hearthchat/hearth/lib/oplog/memlog"
//	  package.
package oplog
