// Package memlog provides the in-memory implementation of the ordered log.
//
// Values are held in an xsync.MapOf for lock-free reads; the sorted key
// index and the cursor counter share one mutex, which makes that mutex the
// single global increment point required for cursor allocation: two writes
// can never observe the same cursor, and cursor order equals visibility
// order.
//
// Writes notify the attached change notifier after the entry is visible,
// so a long poll woken by the notification is guaranteed to observe the
// triggering write when it re-reads.
package memlog
