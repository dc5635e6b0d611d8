// Package data implements the stored-state accessors the delta collectors
// read from: account data, read receipts, to-device messages, membership
// (the room-selection service), the ignore-list service and the live
// typing registry.
//
// Each accessor owns one key prefix of the ordered log and encodes its
// records so that the cursor segment directly follows the prefix. That
// uniform layout is what makes every "changed since" question a single
// RangeAfter scan over the half-open interval (since, nextBatch], and it
// is also what the change notifier's prefix registrations key on: a long
// poll watching "todev/alice/phone/" wakes exactly when a message for that
// device is written.
//
// Typing is deliberately different: typing state is live, in-process and
// cursor-free. Collectors report the set of currently typing users at
// collection time, and long polls wake on the registry's per-room wake
// channel instead of a log prefix.
package data
