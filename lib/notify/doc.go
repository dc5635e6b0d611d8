// Package notify implements the change-notification primitive of the
// storage layer.
//
// A long-poll request that found nothing new registers one WakeHandle per
// key prefix it cares about and suspends on the handles' Done channels.
// Every successful write to the ordered log reports its key via
// Notifier.Notify, which fires all registrations whose prefix is a prefix
// of the written key.
//
// The waiter table is a slice kept sorted by prefix. Since a prefix always
// sorts before every key extending it, Notify needs one binary search to
// the position of the written key followed by a backward scan that stops at
// the first non-matching entry: O(log W + M) for W waiters and M matches.
//
// Guarantees:
//   - A registration fires at most once and is removed when it fires.
//   - Cancelling a registration removes it without firing; a long poll that
//     times out or is disconnected must cancel its handles so the table
//     does not leak.
//   - Only "something with this prefix changed since registration" is
//     promised. No ordering between distinct keys and no delivery of
//     intermediate states.
package notify
